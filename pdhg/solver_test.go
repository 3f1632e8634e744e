package pdhg

import (
	"testing"

	"github.com/gonum-community/pdlp/qp"
	"github.com/gonum-community/pdlp/sharder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSolverInitializesFromX0Y0(t *testing.T) {
	s := simpleLPSolver(t, baseConfig())
	assert.Equal(t, []float64{1, 1}, s.X)
	assert.Equal(t, []float64{0}, s.Y)
	assert.Equal(t, 0, s.Iteration)
	assert.Greater(t, s.StepSize, 0.0)
	assert.Greater(t, s.PrimalWeight, 0.0)
}

func TestNewSolverDerivesPrimalWeightWhenNotConfigured(t *testing.T) {
	cfg := baseConfig()
	s := simpleLPSolver(t, cfg)
	// c = [1,1], combined constraint bound magnitude = 10 -> ||c||/||b|| = sqrt(2)/10
	assert.Greater(t, s.PrimalWeight, 0.0)
}

func TestNewSolverUsesConfiguredInitialPrimalWeight(t *testing.T) {
	cfg := baseConfig()
	w := 3.5
	cfg.InitialPrimalWeight = &w
	s := simpleLPSolver(t, cfg)
	assert.Equal(t, 3.5, s.PrimalWeight)
}

func TestNewSolverDeterministicStepSizeAcrossRuns(t *testing.T) {
	s1 := simpleLPSolver(t, baseConfig())
	s2 := simpleLPSolver(t, baseConfig())
	require.Equal(t, s1.StepSize, s2.StepSize, "the fixed MT19937 seed must make the power-iteration estimate reproducible")
}

func TestEstimateMaxSingularValueZeroVariables(t *testing.T) {
	// NumVariables() == 0 returns 0 without panicking and without
	// drawing from the rng, which is therefore nil here.
	m := qp.NewSparseMatrixFromColumns(0, [][]int64{}, [][]float64{})
	prog := &qp.QuadraticProgram{
		Objective:             []float64{},
		A:                     m,
		ConstraintLowerBounds: []float64{},
		ConstraintUpperBounds: []float64{},
		VariableLowerBounds:   []float64{},
		VariableUpperBounds:   []float64{},
		ObjectiveScale:        1,
	}
	sqp := qp.NewShardedQuadraticProgram(prog, 1, sharder.Sequential())
	sigma := estimateMaxSingularValue(sqp, nil, 10)
	assert.Equal(t, 0.0, sigma)
}
