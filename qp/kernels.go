package qp

import (
	"math"

	"github.com/gonum-community/pdlp/sharder"
)

// MatVec returns A x, computed row-parallel over the cached transpose
// (row i of A is column i of AT, so each output entry is an independent
// dot product with no write contention across shards).
func (s *ShardedQuadraticProgram) MatVec(x []float64) []float64 {
	out := make([]float64, s.qp.NumConstraints())
	s.dualSharder.ForEachShard(func(sh sharder.Shard) {
		for i := sh.Start(); i < sh.End(); i++ {
			var sum float64
			s.at.Column(i, func(j int, v float64) { sum += v * x[j] })
			out[i] = sum
		}
	})
	return out
}

// MatVecTranspose returns Aᵀ y, computed column-parallel over A (each
// output entry is an independent dot product over one column of A).
func (s *ShardedQuadraticProgram) MatVecTranspose(y []float64) []float64 {
	out := make([]float64, s.qp.NumVariables())
	s.columnSharder.ForEachShard(func(sh sharder.Shard) {
		for j := sh.Start(); j < sh.End(); j++ {
			var sum float64
			s.qp.A.Column(j, func(i int, v float64) { sum += v * y[i] })
			out[j] = sum
		}
	})
	return out
}

// ColumnAndRowLInfNorms returns, for the current (possibly partially
// rescaled) A, the L-infinity norm of every row and every column.
func (s *ShardedQuadraticProgram) ColumnAndRowLInfNorms() (rowNorm, colNorm []float64) {
	rowNorm = make([]float64, s.qp.NumConstraints())
	colNorm = make([]float64, s.qp.NumVariables())
	s.dualSharder.ForEachShard(func(sh sharder.Shard) {
		for i := sh.Start(); i < sh.End(); i++ {
			var m float64
			s.at.Column(i, func(_ int, v float64) {
				if a := math.Abs(v); a > m {
					m = a
				}
			})
			rowNorm[i] = m
		}
	})
	s.columnSharder.ForEachShard(func(sh sharder.Shard) {
		for j := sh.Start(); j < sh.End(); j++ {
			var m float64
			s.qp.A.Column(j, func(_ int, v float64) {
				if a := math.Abs(v); a > m {
					m = a
				}
			})
			colNorm[j] = m
		}
	})
	return rowNorm, colNorm
}

// ColumnAndRowL2Norms returns, for the current A, the L2 norm of every
// row and every column.
func (s *ShardedQuadraticProgram) ColumnAndRowL2Norms() (rowNorm, colNorm []float64) {
	rowNorm = make([]float64, s.qp.NumConstraints())
	colNorm = make([]float64, s.qp.NumVariables())
	s.dualSharder.ForEachShard(func(sh sharder.Shard) {
		for i := sh.Start(); i < sh.End(); i++ {
			var sum float64
			s.at.Column(i, func(_ int, v float64) { sum += v * v })
			rowNorm[i] = math.Sqrt(sum)
		}
	})
	s.columnSharder.ForEachShard(func(sh sharder.Shard) {
		for j := sh.Start(); j < sh.End(); j++ {
			var sum float64
			s.qp.A.Column(j, func(_ int, v float64) { sum += v * v })
			colNorm[j] = math.Sqrt(sum)
		}
	})
	return rowNorm, colNorm
}
