package stats

import (
	"math"
	"testing"

	"github.com/gonum-community/pdlp/qp"
	"github.com/stretchr/testify/assert"
)

func simpleQP() *qp.QuadraticProgram {
	// minimize x0 + x1, subject to 0 <= x0 + x1 <= 10, 0 <= x <= 5.
	m := qp.NewSparseMatrixFromColumns(1,
		[][]int64{{0}, {0}},
		[][]float64{{1}, {1}})
	return &qp.QuadraticProgram{
		Objective:             []float64{1, 1},
		A:                     m,
		ConstraintLowerBounds: []float64{0},
		ConstraintUpperBounds: []float64{10},
		VariableLowerBounds:   []float64{0, 0},
		VariableUpperBounds:   []float64{5, 5},
		ObjectiveScale:        1,
	}
}

func TestComputePrimalResidualsZeroWhenFeasible(t *testing.T) {
	q := simpleQP()
	scale := qp.NewIdentityScaling(2, 1)
	ax := []float64{3} // within [0, 10]

	res := ComputePrimalResiduals(q, scale, ax, 1)
	assert.Equal(t, 0.0, res.LInf)
	assert.Equal(t, 0.0, res.L2)
}

func TestComputePrimalResidualsPositiveWhenInfeasible(t *testing.T) {
	q := simpleQP()
	scale := qp.NewIdentityScaling(2, 1)
	ax := []float64{15} // exceeds upper bound of 10

	res := ComputePrimalResiduals(q, scale, ax, 1)
	assert.InDelta(t, 5.0, res.LInf, 1e-12)
}

func TestComputePrimalResidualsUnscalesByRow(t *testing.T) {
	q := simpleQP()
	scale := &qp.ScalingVectors{Col: []float64{1, 1}, Row: []float64{2}}
	// ax_work = 20, unscaled ax = 20/2 = 10, exactly at the upper bound.
	ax := []float64{20}

	res := ComputePrimalResiduals(q, scale, ax, 1)
	assert.Equal(t, 0.0, res.LInf)
}

func TestComputeDualResidualsZeroAtInteriorGradient(t *testing.T) {
	q := simpleQP()
	scale := qp.NewIdentityScaling(2, 1)
	grad := []float64{0, 0}
	x := []float64{1, 1}

	res := ComputeDualResiduals(q, scale, grad, x, Tolerances{}, 1)
	assert.Equal(t, 0.0, res.ResidualLInf)
}

func TestComputeDualResidualsZeroWhenFiniteBoundAbsorbsGradient(t *testing.T) {
	q := simpleQP()
	scale := qp.NewIdentityScaling(2, 1)
	// x0's lower bound is finite (0) so a positive gradient is absorbed
	// into the reduced-cost correction, not the residual.
	grad := []float64{3, 0}
	x := []float64{0, 1}

	res := ComputeDualResiduals(q, scale, grad, x, Tolerances{}, 1)
	assert.Equal(t, 0.0, res.ResidualLInf)
	assert.InDelta(t, 0.0, res.ObjectiveCorrection, 1e-12) // l=0 so correction is 0
}

func TestCheckOptimalityRequiresAllThreeBelowThreshold(t *testing.T) {
	tol := Tolerances{EpsOptimalAbsolute: 1e-6, EpsOptimalRelative: 1e-6}
	boundNorm := func(OptimalityNorm) float64 { return 1 }

	good := ConvergenceInformation{PrimalObjective: 1, DualObjective: 1}
	assert.True(t, CheckOptimality(good, boundNorm, tol))

	bad := ConvergenceInformation{PrimalObjective: 1, DualObjective: 1, PrimalResidualLInf: 1}
	assert.False(t, CheckOptimality(bad, boundNorm, tol))
}

func TestCheckPrimalInfeasibilityRequiresImprovingFiniteObjective(t *testing.T) {
	tol := Tolerances{EpsPrimalInfeasible: 1e-6}

	ok := InfeasibilityInformation{DualRayObjective: 1, MaxDualRayInfeasibility: 0}
	assert.True(t, CheckPrimalInfeasibility(ok, tol))

	infObj := InfeasibilityInformation{DualRayObjective: math.Inf(1), MaxDualRayInfeasibility: 0}
	assert.False(t, CheckPrimalInfeasibility(infObj, tol))

	nonImproving := InfeasibilityInformation{DualRayObjective: -1, MaxDualRayInfeasibility: 0}
	assert.False(t, CheckPrimalInfeasibility(nonImproving, tol))

	tooInfeasible := InfeasibilityInformation{DualRayObjective: 1, MaxDualRayInfeasibility: 1e-3}
	assert.False(t, CheckPrimalInfeasibility(tooInfeasible, tol))
}

func TestCheckDualInfeasibilityRequiresNegativeLinearObjective(t *testing.T) {
	tol := Tolerances{EpsDualInfeasible: 1e-6}

	ok := InfeasibilityInformation{PrimalRayLinearObjective: -1, MaxPrimalRayInfeasibility: 0}
	assert.True(t, CheckDualInfeasibility(ok, tol))

	bad := InfeasibilityInformation{PrimalRayLinearObjective: 1, MaxPrimalRayInfeasibility: 0}
	assert.False(t, CheckDualInfeasibility(bad, tol))

	tooInfeasible := InfeasibilityInformation{PrimalRayLinearObjective: -1, MaxPrimalRayInfeasibility: 1e-3}
	assert.False(t, CheckDualInfeasibility(tooInfeasible, tol))
}
