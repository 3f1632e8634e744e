package qp

import "github.com/gonum-community/pdlp/sharder"

// ShardedQuadraticProgram exclusively owns a QuadraticProgram, a cached
// transpose of A, and four Sharders: over A's columns, over Aᵀ's
// columns (i.e. A's rows), over primal indices, and over dual indices.
// Primal/dual sharders use uniform mass since projections
// and averages touch every coordinate equally; the matrix sharders use
// ColumnMass so that dense columns don't overload one shard.
type ShardedQuadraticProgram struct {
	qp *QuadraticProgram
	at *SparseMatrix

	columnSharder *sharder.Sharder // shards A's columns (primal-indexed)
	rowSharder    *sharder.Sharder // shards Aᵀ's columns, i.e. A's rows (dual-indexed)
	primalSharder *sharder.Sharder // uniform, over [0, n)
	dualSharder   *sharder.Sharder // uniform, over [0, m)

	// DenseColumnWarning/DenseRowWarning record whether a column of A,
	// respectively a row of A (column of Aᵀ), exceeded
	// sharder.DenseThreshold. Dense columns limit parallelism but are
	// not an error.
	DenseColumnWarning bool
	DenseRowWarning    bool
}

// NewShardedQuadraticProgram builds a ShardedQuadraticProgram over qp,
// targeting approximately numShards shards per sharder and running
// parallel kernels through sched.
func NewShardedQuadraticProgram(qp *QuadraticProgram, numShards int, sched sharder.Scheduler) *ShardedQuadraticProgram {
	at := qp.A.Transpose()

	colSharder, denseCol := sharder.NewForMatrix(qp.A.NNZPerColumn(), qp.A.NumRows(), numShards, sched)
	rowSharder, denseRow := sharder.NewForMatrix(at.NNZPerColumn(), at.NumRows(), numShards, sched)

	return &ShardedQuadraticProgram{
		qp:                 qp,
		at:                 at,
		columnSharder:      colSharder,
		rowSharder:         rowSharder,
		primalSharder:      sharder.New(qp.NumVariables(), numShards, sched),
		dualSharder:        sharder.New(qp.NumConstraints(), numShards, sched),
		DenseColumnWarning: denseCol,
		DenseRowWarning:    denseRow,
	}
}

// QP returns the owned QuadraticProgram. Callers may read it freely;
// mutation outside of the rescaling/swap operations on this type breaks
// the cached-transpose invariant.
func (s *ShardedQuadraticProgram) QP() *QuadraticProgram { return s.qp }

// A returns the (possibly rescaled) constraint matrix.
func (s *ShardedQuadraticProgram) A() *SparseMatrix { return s.qp.A }

// AT returns the cached transpose of A.
func (s *ShardedQuadraticProgram) AT() *SparseMatrix { return s.at }

// PrimalSharder returns the uniform sharder over variable indices.
func (s *ShardedQuadraticProgram) PrimalSharder() *sharder.Sharder { return s.primalSharder }

// DualSharder returns the uniform sharder over constraint indices.
func (s *ShardedQuadraticProgram) DualSharder() *sharder.Sharder { return s.dualSharder }

// ColumnSharder returns the mass-weighted sharder over A's columns.
func (s *ShardedQuadraticProgram) ColumnSharder() *sharder.Sharder { return s.columnSharder }

// RowSharder returns the mass-weighted sharder over A's rows (Aᵀ's
// columns).
func (s *ShardedQuadraticProgram) RowSharder() *sharder.Sharder { return s.rowSharder }

// ApplyScalingDelta multiplies every stored entry A[i,j] by
// rowDelta[i]*colDelta[j] (and updates the cached transpose the same
// way), and propagates the corresponding change to the objective,
// quadratic diagonal, and bounds, per the scaling relations:
//
//	A_work = diag(Row) A diag(Col),  c_work = diag(Col) c
//	l_v_work = l_v / Col,  u_v_work = u_v / Col
//	l_c_work = l_c * Row,  u_c_work = u_c * Row
//
// rowDelta and colDelta are the incremental rescaling applied by one
// Ruiz or L2 pass (ScalingVectors accumulates the running product
// separately); entries with a zero delta are left unchanged, matching
// the "a component of the divisor equal to 0 leaves the corresponding
// scaling unchanged" rule.
func (s *ShardedQuadraticProgram) ApplyScalingDelta(rowDelta, colDelta []float64) {
	for j := 0; j < s.qp.A.cols; j++ {
		cd := safeScale(colDelta[j])
		for k := s.qp.A.colStart[j]; k < s.qp.A.colStart[j+1]; k++ {
			i := int(s.qp.A.rowIdx[k])
			s.qp.A.values[k] *= safeScale(rowDelta[i]) * cd
		}
		s.qp.Objective[j] *= cd
		if s.qp.QuadraticDiag != nil {
			s.qp.QuadraticDiag[j] *= cd * cd
		}
		if cd != 0 {
			s.qp.VariableLowerBounds[j] = divBound(s.qp.VariableLowerBounds[j], cd)
			s.qp.VariableUpperBounds[j] = divBound(s.qp.VariableUpperBounds[j], cd)
		}
	}
	for i := 0; i < s.qp.NumConstraints(); i++ {
		rd := safeScale(rowDelta[i])
		if rd != 0 {
			s.qp.ConstraintLowerBounds[i] = mulBound(s.qp.ConstraintLowerBounds[i], rd)
			s.qp.ConstraintUpperBounds[i] = mulBound(s.qp.ConstraintUpperBounds[i], rd)
		}
	}
	// Rebuild the cached transpose's values to match A's, entry for
	// entry; the sparsity pattern (row/col indices) never changes
	// under rescaling.
	s.at = s.qp.A.Transpose()
}

func safeScale(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func divBound(b, scale float64) float64 {
	if b == 0 {
		return 0
	}
	return b / scale
}

func mulBound(b, scale float64) float64 {
	if b == 0 {
		return 0
	}
	return b * scale
}

// SwapObjectiveAndBounds replaces the objective, variable bounds, and
// constraint bounds with the given values, returning a restore function
// that swaps the originals back. The explicit scope-guard pattern makes
// feasibility polishing's "objective/bounds swapped back on completion"
// invariant structural:
//
//	restore := sqp.SwapObjectiveAndBounds(newObj, nil, newVarLB, newVarUB, newConLB, newConUB)
//	defer restore()
//
// A nil argument leaves the corresponding field untouched.
func (s *ShardedQuadraticProgram) SwapObjectiveAndBounds(obj, quadDiag, varLB, varUB, conLB, conUB []float64) (restore func()) {
	origObj, origQuad := s.qp.Objective, s.qp.QuadraticDiag
	origVarLB, origVarUB := s.qp.VariableLowerBounds, s.qp.VariableUpperBounds
	origConLB, origConUB := s.qp.ConstraintLowerBounds, s.qp.ConstraintUpperBounds

	if obj != nil {
		s.qp.Objective = obj
	}
	if quadDiag != nil {
		s.qp.QuadraticDiag = quadDiag
	}
	if varLB != nil {
		s.qp.VariableLowerBounds = varLB
	}
	if varUB != nil {
		s.qp.VariableUpperBounds = varUB
	}
	if conLB != nil {
		s.qp.ConstraintLowerBounds = conLB
	}
	if conUB != nil {
		s.qp.ConstraintUpperBounds = conUB
	}
	return func() {
		s.qp.Objective = origObj
		s.qp.QuadraticDiag = origQuad
		s.qp.VariableLowerBounds = origVarLB
		s.qp.VariableUpperBounds = origVarUB
		s.qp.ConstraintLowerBounds = origConLB
		s.qp.ConstraintUpperBounds = origConUB
	}
}
