// Package qp defines the quadratic-program data model, its validation
// and rescaling, and the sharded wrapper used by the PDHG solver.
package qp

import (
	"fmt"
	"math"
)

// MagnitudeFatalThreshold is the absolute value above which a matrix,
// bound, or objective entry makes a problem invalid.
const MagnitudeFatalThreshold = 1e50

// DynamicRangeWarningThreshold is the matrix dynamic-range ratio above
// which Validate reports a warning rather than an error.
const DynamicRangeWarningThreshold = 1e20

// QuadraticProgram is
//
//	minimize   c·x + ½ x·Q·x
//	subject to l_c ≤ A x ≤ u_c
//	           l_v ≤ x  ≤ u_v
//
// where Q is diagonal and nonnegative. QuadraticDiag == nil means Q = 0,
// i.e. a pure LP. QuadraticProgram is a value type: copying it copies
// the slice headers, not backing arrays, matching the "movable" contract
// (callers that need a private copy must clone explicitly).
type QuadraticProgram struct {
	// Objective is c, length NumVariables.
	Objective []float64
	// QuadraticDiag is the nonnegative diagonal of Q, length
	// NumVariables, or nil for a pure LP.
	QuadraticDiag []float64

	// A is the constraint matrix, NumConstraints x NumVariables.
	A *SparseMatrix

	// ConstraintLowerBounds and ConstraintUpperBounds are l_c, u_c.
	ConstraintLowerBounds []float64
	ConstraintUpperBounds []float64

	// VariableLowerBounds and VariableUpperBounds are l_v, u_v.
	VariableLowerBounds []float64
	VariableUpperBounds []float64

	// ObjectiveOffset is added to c·x + ½x·Q·x before ObjectiveScale is
	// applied.
	ObjectiveOffset float64
	// ObjectiveScale is a nonzero scalar; negative encodes maximization.
	ObjectiveScale float64

	ProblemName     string
	VariableNames   []string
	ConstraintNames []string
}

// NumVariables returns n, the length of Objective.
func (qp *QuadraticProgram) NumVariables() int { return len(qp.Objective) }

// NumConstraints returns m, the length of ConstraintLowerBounds.
func (qp *QuadraticProgram) NumConstraints() int { return len(qp.ConstraintLowerBounds) }

// IsLinearProgram reports whether the quadratic term is absent (Q = 0).
func (qp *QuadraticProgram) IsLinearProgram() bool { return qp.QuadraticDiag == nil }

// ApplyObjective maps a working-problem objective value back to the
// user-facing value: obj_scale * (value + obj_offset)
func (qp *QuadraticProgram) ApplyObjective(value float64) float64 {
	return qp.ObjectiveScale * (value + qp.ObjectiveOffset)
}

// ValidationError reports a single invalid-problem condition found by
// Validate, at the given severity.
type ValidationError struct {
	Message string
	Fatal   bool
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks dimension consistency and magnitude bounds. It
// returns all warnings (non-fatal) and the
// first fatal error encountered, if any. A nil error with a non-empty
// warning list means the problem is usable but noteworthy.
func Validate(qp *QuadraticProgram) (warnings []*ValidationError, err *ValidationError) {
	n := qp.NumVariables()
	m := qp.NumConstraints()

	if len(qp.VariableLowerBounds) != n || len(qp.VariableUpperBounds) != n {
		return warnings, fatalf("qp: variable bound length mismatch: n=%d, lower=%d, upper=%d",
			n, len(qp.VariableLowerBounds), len(qp.VariableUpperBounds))
	}
	if len(qp.ConstraintLowerBounds) != m || len(qp.ConstraintUpperBounds) != m {
		return warnings, fatalf("qp: constraint bound length mismatch: m=%d, lower=%d, upper=%d",
			m, len(qp.ConstraintLowerBounds), len(qp.ConstraintUpperBounds))
	}
	if qp.A == nil {
		return warnings, fatalf("qp: constraint matrix A is nil")
	}
	rows, cols := qp.A.Dims()
	if rows != m || cols != n {
		return warnings, fatalf("qp: A has dims (%d,%d), want (%d,%d)", rows, cols, m, n)
	}
	if qp.ObjectiveScale == 0 {
		return warnings, fatalf("qp: objective scale must be nonzero")
	}

	for i := 0; i < m; i++ {
		l, u := qp.ConstraintLowerBounds[i], qp.ConstraintUpperBounds[i]
		if math.IsNaN(l) || math.IsNaN(u) {
			return warnings, fatalf("qp: NaN constraint bound at row %d", i)
		}
		if l > u {
			return warnings, fatalf("qp: constraint %d has l_c > u_c (%g > %g)", i, l, u)
		}
		if l == math.Inf(1) || u == math.Inf(-1) {
			return warnings, fatalf("qp: constraint %d has an impossible infinite bound", i)
		}
		if math.Abs(l) > MagnitudeFatalThreshold && !math.IsInf(l, 0) ||
			math.Abs(u) > MagnitudeFatalThreshold && !math.IsInf(u, 0) {
			return warnings, fatalf("qp: constraint %d bound magnitude exceeds %g", i, MagnitudeFatalThreshold)
		}
	}
	for j := 0; j < n; j++ {
		l, u := qp.VariableLowerBounds[j], qp.VariableUpperBounds[j]
		if math.IsNaN(l) || math.IsNaN(u) {
			return warnings, fatalf("qp: NaN variable bound at col %d", j)
		}
		if l > u {
			return warnings, fatalf("qp: variable %d has l_v > u_v (%g > %g)", j, l, u)
		}
		if l == math.Inf(1) || u == math.Inf(-1) {
			return warnings, fatalf("qp: variable %d has an impossible infinite bound", j)
		}
		if math.IsNaN(qp.Objective[j]) {
			return warnings, fatalf("qp: NaN objective coefficient at col %d", j)
		}
		if math.Abs(qp.Objective[j]) > MagnitudeFatalThreshold {
			return warnings, fatalf("qp: objective coefficient at col %d exceeds %g", j, MagnitudeFatalThreshold)
		}
		if qp.QuadraticDiag != nil {
			q := qp.QuadraticDiag[j]
			if math.IsNaN(q) {
				return warnings, fatalf("qp: NaN quadratic diagonal at col %d", j)
			}
			if q < 0 {
				return warnings, fatalf("qp: quadratic diagonal at col %d is negative (%g); Q must be PSD diagonal", j, q)
			}
		}
	}
	if qp.QuadraticDiag != nil && len(qp.QuadraticDiag) != n {
		return warnings, fatalf("qp: quadratic diagonal length mismatch: n=%d, got=%d", n, len(qp.QuadraticDiag))
	}

	minAbs, maxAbs := math.Inf(1), 0.0
	qp.A.forEachNonzero(func(_, _ int, v float64) {
		a := math.Abs(v)
		if math.IsNaN(v) {
			err = &ValidationError{Message: "qp: NaN entry in constraint matrix", Fatal: true}
			return
		}
		if a > MagnitudeFatalThreshold {
			err = &ValidationError{Message: fmt.Sprintf("qp: constraint matrix entry magnitude exceeds %g", MagnitudeFatalThreshold), Fatal: true}
			return
		}
		if a > 0 {
			if a < minAbs {
				minAbs = a
			}
			if a > maxAbs {
				maxAbs = a
			}
		}
	})
	if err != nil {
		return warnings, err
	}
	if maxAbs > 0 && minAbs > 0 && maxAbs/minAbs > DynamicRangeWarningThreshold {
		warnings = append(warnings, &ValidationError{
			Message: fmt.Sprintf("qp: constraint matrix dynamic range %.3g exceeds recommended %.3g", maxAbs/minAbs, DynamicRangeWarningThreshold),
		})
	}
	return warnings, nil
}

func fatalf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Fatal: true}
}
