package pdlp

import (
	"math"
	"testing"

	"github.com/gonum-community/pdlp/qp"
	"github.com/gonum-community/pdlp/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kInf = math.Inf(1)

func scenarioParams() Params {
	p := DefaultParams()
	p.IterationLimit = 200000
	p.TerminationCheckFrequency = 20
	p.MajorIterationFrequency = 20
	return p
}

// fourVarLp is a 4-variable LP with equality, one-sided, and two-sided
// constraints and a mix of finite and infinite variable bounds. Optimum
// x* = (-1, 8, 1, 2.5) with objective -34.
func fourVarLp() *qp.QuadraticProgram {
	a := qp.NewSparseMatrixFromColumns(4,
		[][]int64{{0, 1, 2}, {0}, {0, 1, 3}, {0, 3}},
		[][]float64{{2, 1, 4}, {1}, {1, 1, 1.5}, {2, -1}},
	)
	return &qp.QuadraticProgram{
		Objective:             []float64{5.5, -2, -1, 1},
		A:                     a,
		ConstraintLowerBounds: []float64{12, -kInf, -4, -1},
		ConstraintUpperBounds: []float64{12, 7, kInf, 1},
		VariableLowerBounds:   []float64{-kInf, -2, -kInf, 2.5},
		VariableUpperBounds:   []float64{kInf, kInf, 6, 3.5},
		ObjectiveOffset:       -14,
		ObjectiveScale:        1,
	}
}

func TestSolveFourVariableLPOptimal(t *testing.T) {
	result := Solve(fourVarLp(), scenarioParams(), nil)

	require.Equal(t, Optimal, result.Log.TerminationReason)
	assert.InDelta(t, -34.0, result.Log.PrimalObjective, 1e-3)

	want := []float64{-1, 8, 1, 2.5}
	for j, w := range want {
		assert.InDelta(t, w, result.PrimalSolution[j], 1e-3, "x[%d]", j)
	}
	wantDual := []float64{-2, 0, 2.375, 2.0 / 3.0}
	for i, w := range wantDual {
		assert.InDelta(t, w, result.DualSolution[i], 1e-2, "y[%d]", i)
	}
}

// tinyLp is a box-bounded LP with one equality and two one-sided
// constraints. Optimum x* = (1, 0, 6, 2) with objective -1.
func tinyLp() *qp.QuadraticProgram {
	a := qp.NewSparseMatrixFromColumns(3,
		[][]int64{{0, 1}, {0}, {0, 1, 2}, {0, 2}},
		[][]float64{{2, 1}, {1}, {1, 1, 1}, {2, -1}},
	)
	return &qp.QuadraticProgram{
		Objective:             []float64{5, 2, 1, 1},
		A:                     a,
		ConstraintLowerBounds: []float64{12, 7, 1},
		ConstraintUpperBounds: []float64{12, kInf, kInf},
		VariableLowerBounds:   []float64{0, 0, 0, 0},
		VariableUpperBounds:   []float64{2, 4, 6, 3},
		ObjectiveOffset:       -14,
		ObjectiveScale:        1,
	}
}

func TestSolveTinyLPOptimal(t *testing.T) {
	result := Solve(tinyLp(), scenarioParams(), nil)

	require.Equal(t, Optimal, result.Log.TerminationReason)
	assert.InDelta(t, -1.0, result.Log.PrimalObjective, 1e-3)

	want := []float64{1, 0, 6, 2}
	for j, w := range want {
		assert.InDelta(t, w, result.PrimalSolution[j], 1e-3, "x[%d]", j)
	}
	wantDual := []float64{0.5, 4, 0}
	for i, w := range wantDual {
		assert.InDelta(t, w, result.DualSolution[i], 1e-2, "y[%d]", i)
	}
}

// diagonalQp is min 2*x0^2 + x1^2/2 - x0 - x1 + 5 subject to
// x0 + x1 <= 1 and box bounds. Optimum x* = (1, 0) with objective 6.
func diagonalQp() *qp.QuadraticProgram {
	a := qp.NewSparseMatrixFromColumns(1,
		[][]int64{{0}, {0}},
		[][]float64{{1}, {1}},
	)
	return &qp.QuadraticProgram{
		Objective:             []float64{-1, -1},
		QuadraticDiag:         []float64{4, 1},
		A:                     a,
		ConstraintLowerBounds: []float64{-kInf},
		ConstraintUpperBounds: []float64{1},
		VariableLowerBounds:   []float64{1, -2},
		VariableUpperBounds:   []float64{2, 4},
		ObjectiveOffset:       5,
		ObjectiveScale:        1,
	}
}

func TestSolveDiagonalQPOptimal(t *testing.T) {
	result := Solve(diagonalQp(), scenarioParams(), nil)

	require.Equal(t, Optimal, result.Log.TerminationReason)
	assert.InDelta(t, 6.0, result.Log.PrimalObjective, 1e-3)

	want := []float64{1, 0}
	for j, w := range want {
		assert.InDelta(t, w, result.PrimalSolution[j], 1e-3, "x[%d]", j)
	}
	assert.InDelta(t, -1.0, result.DualSolution[0], 1e-2)

	wantReduced := []float64{4, 0}
	for j, w := range wantReduced {
		assert.InDelta(t, w, result.ReducedCosts[j], 1e-2, "reduced cost[%d]", j)
	}
}

// smallPrimalInfeasibleLp is min x0+x1 s.t. x0-x1 <= 1, -x0+x1 <= -2,
// x >= 0; the two constraints are jointly unsatisfiable.
func smallPrimalInfeasibleLp() *qp.QuadraticProgram {
	a := qp.NewSparseMatrixFromColumns(2,
		[][]int64{{0, 1}, {0, 1}},
		[][]float64{{1, -1}, {-1, 1}},
	)
	return &qp.QuadraticProgram{
		Objective:             []float64{1, 1},
		A:                     a,
		ConstraintLowerBounds: []float64{-kInf, -kInf},
		ConstraintUpperBounds: []float64{1, -2},
		VariableLowerBounds:   []float64{0, 0},
		VariableUpperBounds:   []float64{kInf, kInf},
		ObjectiveScale:        1,
	}
}

func TestSolvePrimalInfeasibleLP(t *testing.T) {
	result := Solve(smallPrimalInfeasibleLp(), scenarioParams(), nil)
	assert.Equal(t, PrimalInfeasible, result.Log.TerminationReason)
}

// smallDualInfeasibleLp is min -x0-x1 s.t. x0-x1 <= 1, -x0+x1 <= 2,
// x >= 0; the objective is unbounded along the ray (1, 1).
func smallDualInfeasibleLp() *qp.QuadraticProgram {
	a := qp.NewSparseMatrixFromColumns(2,
		[][]int64{{0, 1}, {0, 1}},
		[][]float64{{1, -1}, {-1, 1}},
	)
	return &qp.QuadraticProgram{
		Objective:             []float64{-1, -1},
		A:                     a,
		ConstraintLowerBounds: []float64{-kInf, -kInf},
		ConstraintUpperBounds: []float64{1, 2},
		VariableLowerBounds:   []float64{0, 0},
		VariableUpperBounds:   []float64{kInf, kInf},
		ObjectiveScale:        1,
	}
}

func TestSolveDualInfeasibleLP(t *testing.T) {
	result := Solve(smallDualInfeasibleLp(), scenarioParams(), nil)
	assert.Equal(t, DualInfeasible, result.Log.TerminationReason)
}

// TestSolveInvalidProblemHugeEntry checks that a constraint-matrix entry
// above the 1e50 fatal-magnitude threshold aborts before a single
// iteration runs.
func TestSolveInvalidProblemHugeEntry(t *testing.T) {
	a := qp.NewSparseMatrixFromColumns(1, [][]int64{{0}}, [][]float64{{1e51}})
	prog := &qp.QuadraticProgram{
		Objective:             []float64{1},
		A:                     a,
		ConstraintLowerBounds: []float64{0},
		ConstraintUpperBounds: []float64{1},
		VariableLowerBounds:   []float64{0},
		VariableUpperBounds:   []float64{1},
		ObjectiveScale:        1,
	}

	result := Solve(prog, scenarioParams(), nil)

	assert.Equal(t, InvalidProblem, result.Log.TerminationReason)
	assert.Equal(t, 0, result.Log.FinalIteration)
	assert.Nil(t, result.PrimalSolution)
}

// TestDeterministicReproduction checks that two solves with identical
// inputs, parameters, and shard count produce bit-identical primal,
// dual, and reduced-cost vectors.
func TestDeterministicReproduction(t *testing.T) {
	params := scenarioParams()
	params.NumShards = 2
	params.SchedulerType = SchedulerGoroutinePool
	params.NumThreads = 4

	r1 := Solve(fourVarLp(), params, nil)
	r2 := Solve(fourVarLp(), params, nil)

	require.Equal(t, Optimal, r1.Log.TerminationReason)
	require.Equal(t, Optimal, r2.Log.TerminationReason)
	assert.Equal(t, r1.PrimalSolution, r2.PrimalSolution)
	assert.Equal(t, r1.DualSolution, r2.DualSolution)
	assert.Equal(t, r1.ReducedCosts, r2.ReducedCosts)
	assert.Equal(t, r1.Log.TerminationReason, r2.Log.TerminationReason)
}

// TestFeasibilityPolishingLP checks that with polishing enabled on an
// LP the solve still reaches optimality, possibly via the polishing
// candidate.
func TestFeasibilityPolishingLP(t *testing.T) {
	params := scenarioParams()
	params.UseFeasibilityPolishing = true

	result := Solve(tinyLp(), params, nil)

	require.Equal(t, Optimal, result.Log.TerminationReason)
	assert.InDelta(t, -1.0, result.Log.PrimalObjective, 1e-2)
}

// Feasibility polishing is only valid for LPs; requesting it on a
// diagonal QP is an invalid-parameter error, not a silent downgrade.
func TestInvalidParameterFeasibilityPolishingOnQP(t *testing.T) {
	params := scenarioParams()
	params.UseFeasibilityPolishing = true

	prog := diagonalQp()
	require.False(t, prog.IsLinearProgram(), "fixture must be a genuine QP for this test to be meaningful")

	result := Solve(prog, params, nil)
	assert.Equal(t, InvalidParameter, result.Log.TerminationReason)
}

// A negative epsilon is rejected before any iteration runs.
func TestInvalidParameterNegativeEpsilon(t *testing.T) {
	params := scenarioParams()
	params.EpsOptimalAbsolute = -1

	result := Solve(tinyLp(), params, nil)
	assert.Equal(t, InvalidParameter, result.Log.TerminationReason)
}

// An initial solution with the wrong length, a NaN, or an excessive
// magnitude is rejected before any iteration runs.
func TestInvalidInitialSolution(t *testing.T) {
	cases := []struct {
		name   string
		primal []float64
	}{
		{"wrong length", []float64{1}},
		{"nan entry", []float64{math.NaN(), 0, 0, 0}},
		{"huge entry", []float64{1e51, 0, 0, 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := scenarioParams()
			params.InitialPrimalSolution = tc.primal

			result := Solve(tinyLp(), params, nil)
			assert.Equal(t, InvalidInitialSolution, result.Log.TerminationReason)
			assert.Equal(t, 0, result.Log.FinalIteration)
		})
	}
}

// A warm start at the known optimum still converges to it.
func TestWarmStartConverges(t *testing.T) {
	params := scenarioParams()
	params.InitialPrimalSolution = []float64{1, 0, 6, 2}
	params.InitialDualSolution = []float64{0.5, 4, 0}

	result := Solve(tinyLp(), params, nil)

	require.Equal(t, Optimal, result.Log.TerminationReason)
	assert.InDelta(t, -1.0, result.Log.PrimalObjective, 1e-3)
}

// RecordIterationStats fills SolveLog.IterationStats with one snapshot
// per termination check, and the callback sees the same stream.
func TestRecordIterationStatsAndCallback(t *testing.T) {
	params := scenarioParams()
	params.RecordIterationStats = true
	var calls int
	params.IterationStatsCallback = func(st stats.IterationStats) { calls++ }

	result := Solve(fourVarLp(), params, nil)

	require.Equal(t, Optimal, result.Log.TerminationReason)
	require.NotEmpty(t, result.Log.IterationStats)
	assert.Equal(t, len(result.Log.IterationStats), calls)
	first := result.Log.IterationStats[0]
	assert.Len(t, first.ConvergenceInformation, 2)
	assert.Len(t, first.InfeasibilityInformation, 2)
}
