package sharder

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Dot returns the sharded dot product of u and v. Both must have
// NumElements() entries. Summation is shard-local first (via
// gonum/floats.Dot), then shard totals are summed in index order by
// ParallelSum, making the result reproducible for a fixed Sharder shape.
func (s *Sharder) Dot(u, v []float64) float64 {
	return s.ParallelSum(func(sh Shard) float64 {
		return floats.Dot(sh.Slice(u), sh.Slice(v))
	})
}

// L1Norm returns the sharded L1 norm of v.
func (s *Sharder) L1Norm(v []float64) float64 {
	return s.ParallelSum(func(sh Shard) float64 {
		return floats.Norm(sh.Slice(v), 1)
	})
}

// L2Norm returns the sharded L2 norm of v.
func (s *Sharder) L2Norm(v []float64) float64 {
	return math.Sqrt(s.SquaredL2Norm(v))
}

// SquaredL2Norm returns the sharded squared L2 norm of v, summed
// shard-local-first for reproducibility.
func (s *Sharder) SquaredL2Norm(v []float64) float64 {
	return s.ParallelSum(func(sh Shard) float64 {
		part := sh.Slice(v)
		var sum float64
		for _, x := range part {
			sum += x * x
		}
		return sum
	})
}

// LInfNorm returns the sharded L-infinity norm of v.
func (s *Sharder) LInfNorm(v []float64) float64 {
	maxes := make([]float64, s.NumShards())
	s.ForEachShard(func(sh Shard) {
		var m float64
		for _, x := range sh.Slice(v) {
			if a := math.Abs(x); a > m {
				m = a
			}
		}
		maxes[sh.Index()] = m
	})
	var m float64
	for _, x := range maxes {
		if x > m {
			m = x
		}
	}
	return m
}

// WeightedSquaredL2Norm returns the sharded squared L2 norm of v under a
// per-coordinate positive weight, i.e. sum(weight[i]*v[i]^2).
func (s *Sharder) WeightedSquaredL2Norm(v, weight []float64) float64 {
	return s.ParallelSum(func(sh Shard) float64 {
		vp := sh.Slice(v)
		wp := sh.Slice(weight)
		var sum float64
		for i, x := range vp {
			sum += wp[i] * x * x
		}
		return sum
	})
}

// Sub returns a newly allocated a-b, computed shard-parallel.
func (s *Sharder) Sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	s.ForEachShard(func(sh Shard) {
		ap, bp, op := sh.Slice(a), sh.Slice(b), sh.Slice(out)
		for i := range ap {
			op[i] = ap[i] - bp[i]
		}
	})
	return out
}

// SquaredL2Distance returns the sharded squared L2 distance between a
// and b, i.e. sum((a[i]-b[i])^2), summed shard-local-first for
// reproducibility.
func (s *Sharder) SquaredL2Distance(a, b []float64) float64 {
	return s.ParallelSum(func(sh Shard) float64 {
		ap, bp := sh.Slice(a), sh.Slice(b)
		var sum float64
		for i, x := range ap {
			d := x - bp[i]
			sum += d * d
		}
		return sum
	})
}

// L2Distance returns the sharded L2 distance between a and b.
func (s *Sharder) L2Distance(a, b []float64) float64 {
	return math.Sqrt(s.SquaredL2Distance(a, b))
}

// AddScaled computes dst += alpha*src in place, shard-parallel.
func (s *Sharder) AddScaled(dst []float64, alpha float64, src []float64) {
	s.ForEachShard(func(sh Shard) {
		floats.AddScaled(sh.Slice(dst), alpha, sh.Slice(src))
	})
}

// Assign computes dst[i] = f(src[i]) in place, shard-parallel.
func (s *Sharder) Assign(dst []float64, src []float64, f func(float64) float64) {
	s.ForEachShard(func(sh Shard) {
		d := sh.Slice(dst)
		for i, x := range sh.Slice(src) {
			d[i] = f(x)
		}
	})
}

// HasNaN reports whether v contains a NaN, checked shard-parallel.
func (s *Sharder) HasNaN(v []float64) bool {
	return !s.ParallelAll(func(sh Shard) bool {
		return !floats.HasNaN(sh.Slice(v))
	})
}
