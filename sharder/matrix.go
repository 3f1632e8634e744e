package sharder

// ColumnMass is the mass function used to shard a column-major sparse
// matrix by its columns: one unit for the column itself plus one per
// nonzero, so that columns with many entries don't get bundled together
// with many sparse neighbors into one overloaded shard.
func ColumnMass(nnzPerColumn []int) []float64 {
	mass := make([]float64, len(nnzPerColumn))
	for i, nnz := range nnzPerColumn {
		mass[i] = float64(1 + nnz)
	}
	return mass
}

// DenseThreshold is the default column/row density (fraction of nonzero
// entries) above which NewForMatrix warns about poor parallelism
// potential, per the constraint-matrix density check
const DenseThreshold = 0.1

// NewForMatrix builds a Sharder over a matrix's columns using
// ColumnMass, and reports whether any column's density exceeds
// DenseThreshold (out of numRows entries).
func NewForMatrix(nnzPerColumn []int, numRows, numShards int, scheduler Scheduler) (s *Sharder, denseColumnWarning bool) {
	mass := ColumnMass(nnzPerColumn)
	s = NewWeighted(mass, numShards, scheduler)
	if numRows <= 0 {
		return s, false
	}
	for _, nnz := range nnzPerColumn {
		if float64(nnz)/float64(numRows) > DenseThreshold {
			return s, true
		}
	}
	return s, false
}
