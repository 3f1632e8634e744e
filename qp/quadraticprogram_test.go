package qp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQP() *QuadraticProgram {
	m := NewSparseMatrixFromColumns(1, [][]int64{{0}}, [][]float64{{1}})
	return &QuadraticProgram{
		Objective:             []float64{1},
		A:                     m,
		ConstraintLowerBounds: []float64{0},
		ConstraintUpperBounds: []float64{1},
		VariableLowerBounds:   []float64{0},
		VariableUpperBounds:   []float64{1},
		ObjectiveScale:        1,
	}
}

func TestValidateAcceptsWellFormedProblem(t *testing.T) {
	_, err := Validate(validQP())
	assert.Nil(t, err)
}

func TestValidateRejectsDimensionMismatch(t *testing.T) {
	q := validQP()
	q.VariableLowerBounds = []float64{0, 0}
	_, err := Validate(q)
	require.NotNil(t, err)
	assert.True(t, err.Fatal)
}

func TestValidateRejectsInvertedConstraintBounds(t *testing.T) {
	q := validQP()
	q.ConstraintLowerBounds[0] = 5
	q.ConstraintUpperBounds[0] = 1
	_, err := Validate(q)
	require.NotNil(t, err)
}

func TestValidateRejectsHugeMatrixEntry(t *testing.T) {
	q := validQP()
	q.A = NewSparseMatrixFromColumns(1, [][]int64{{0}}, [][]float64{{1e51}})
	_, err := Validate(q)
	require.NotNil(t, err)
	assert.True(t, err.Fatal)
}

func TestValidateRejectsNaNObjective(t *testing.T) {
	q := validQP()
	q.Objective[0] = math.NaN()
	_, err := Validate(q)
	require.NotNil(t, err)
}

func TestValidateRejectsNegativeQuadraticDiagonal(t *testing.T) {
	q := validQP()
	q.QuadraticDiag = []float64{-1}
	_, err := Validate(q)
	require.NotNil(t, err)
}

func TestValidateWarnsOnExtremeDynamicRange(t *testing.T) {
	q := &QuadraticProgram{
		Objective:             []float64{1, 1},
		A:                     NewSparseMatrixFromColumns(1, [][]int64{{0}, {0}}, [][]float64{{1}, {1e-21}}),
		ConstraintLowerBounds: []float64{0},
		ConstraintUpperBounds: []float64{1},
		VariableLowerBounds:   []float64{0, 0},
		VariableUpperBounds:   []float64{1, 1},
		ObjectiveScale:        1,
	}
	warnings, err := Validate(q)
	assert.Nil(t, err)
	assert.NotEmpty(t, warnings)
}

func TestIsLinearProgram(t *testing.T) {
	q := validQP()
	assert.True(t, q.IsLinearProgram())
	q.QuadraticDiag = []float64{1}
	assert.False(t, q.IsLinearProgram())
}

func TestApplyObjective(t *testing.T) {
	q := validQP()
	q.ObjectiveOffset = 3
	q.ObjectiveScale = -1 // maximization encoding
	assert.Equal(t, -7.0, q.ApplyObjective(4))
}
