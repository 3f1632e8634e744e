package pdhg

import (
	"math"
	"testing"

	"github.com/gonum-community/pdlp/sharder"
	"github.com/gonum-community/pdlp/trustregion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restartTestConfig(strategy RestartStrategy) Config {
	cfg := baseConfig()
	cfg.RestartStrategy = strategy
	cfg.SufficientReductionForRestart = 0.2
	cfg.NecessaryReductionForRestart = 0.8
	return cfg
}

func TestIsMajorIteration(t *testing.T) {
	s := simpleLPSolver(t, baseConfig())
	s.Config.MajorIterationFrequency = 10

	s.Iteration = 0
	assert.False(t, s.IsMajorIteration())
	s.Iteration = 10
	assert.True(t, s.IsMajorIteration())
	s.Iteration = 15
	assert.False(t, s.IsMajorIteration())

	s.Config.MajorIterationFrequency = 0
	s.Iteration = 10
	assert.False(t, s.IsMajorIteration())
}

func TestRestartToClearsAveragesAndUpdatesBaseline(t *testing.T) {
	s := simpleLPSolver(t, restartTestConfig(RestartNone))
	s.PrimalAvg.Add([]float64{1, 1}, 1)
	s.DualAvg.Add([]float64{1}, 1)

	newX := []float64{2, 3}
	newY := []float64{4}
	s.restartTo(newX, newY)

	assert.Equal(t, newX, s.X)
	assert.Equal(t, newY, s.Y)
	assert.EqualValues(t, 0, s.PrimalAvg.NumTerms())
	assert.EqualValues(t, 0, s.DualAvg.NumTerms())
	assert.Equal(t, newX, s.restartX)
	assert.Equal(t, newY, s.restartY)
}

func TestRestartNoneAlwaysRestartsToCurrent(t *testing.T) {
	s := simpleLPSolver(t, restartTestConfig(RestartNone))
	choice := s.MaybeRestart()
	assert.Equal(t, RestartToCurrent, choice)
}

func TestRestartEveryMajorAlwaysRestartsToAverage(t *testing.T) {
	s := simpleLPSolver(t, restartTestConfig(RestartEveryMajor))
	s.PrimalAvg.Add(s.X, 1)
	s.DualAvg.Add(s.Y, 1)
	choice := s.MaybeRestart()
	assert.Equal(t, RestartToAverage, choice)
}

func TestUpdatePrimalWeightIgnoresDegenerateDistances(t *testing.T) {
	s := simpleLPSolver(t, baseConfig())
	original := s.PrimalWeight

	s.updatePrimalWeight(0, 1) // dp == 0, outside (1e-10, 1e10)
	assert.Equal(t, original, s.PrimalWeight)

	s.updatePrimalWeight(1e11, 1) // dp too large
	assert.Equal(t, original, s.PrimalWeight)
}

func TestUpdatePrimalWeightMovesTowardRatio(t *testing.T) {
	s := simpleLPSolver(t, baseConfig())
	s.PrimalWeight = 1
	s.Config.PrimalWeightUpdateSmoothing = 1 // fully trust the new ratio

	s.updatePrimalWeight(1, 4) // dd/dp = 4
	require.InDelta(t, 4.0, s.PrimalWeight, 1e-9)
}

func TestL2Distance(t *testing.T) {
	sh := sharder.New(2, 1, sharder.Sequential())
	assert.InDelta(t, 5.0, sh.L2Distance([]float64{3, 0}, []float64{0, 4}), 1e-12)
}

func TestNormalizedPotentialInfiniteAtZeroRadius(t *testing.T) {
	b := trustregion.LagrangianBounds{LowerBound: 0, UpperBound: 1, Radius: 0}
	assert.True(t, math.IsInf(normalizedPotential(b), 1))
}

func TestNormalizedPotentialFiniteAtPositiveRadius(t *testing.T) {
	b := trustregion.LagrangianBounds{LowerBound: 1, UpperBound: 5, Radius: 2}
	assert.InDelta(t, 1.0, normalizedPotential(b), 1e-12) // (5-1)/2^2 = 1
}

func TestPickRestartCandidatePrefersSmallerPotential(t *testing.T) {
	s := simpleLPSolver(t, baseConfig())
	choice, cur, avg := s.pickRestartCandidate()
	assert.Contains(t, []RestartChoice{RestartToCurrent, RestartToAverage}, choice)
	if choice == RestartToAverage {
		assert.LessOrEqual(t, normalizedPotential(avg), normalizedPotential(cur))
	} else {
		assert.Greater(t, normalizedPotential(avg), normalizedPotential(cur))
	}
}
