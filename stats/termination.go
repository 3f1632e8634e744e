package stats

import (
	"math"

	"github.com/gonum-community/pdlp/qp"
)

// OptimalityNorm selects which residual norm termination is evaluated
// under.
type OptimalityNorm int

const (
	LInf OptimalityNorm = iota
	L2
	ComponentwiseLInf
)

// Tolerances bundles the epsilon parameters termination checks consume.
type Tolerances struct {
	EpsOptimalAbsolute  float64
	EpsOptimalRelative  float64
	EpsPrimalInfeasible float64
	EpsDualInfeasible   float64
	Norm                OptimalityNorm

	// HandleSomePrimalGradientsOnFiniteBoundsAsResiduals selects the
	// lazy effective-bound policy for the (uncorrected)
	// dual residual; the corrected dual objective always uses the
	// strict policy regardless of this flag.
	HandleSomePrimalGradientsOnFiniteBoundsAsResiduals bool
}

// EpsRatio returns eps_abs / eps_rel, used as the denominator floor in
// the relative-residual tests.
func (t Tolerances) EpsRatio() float64 {
	if t.EpsOptimalRelative == 0 {
		return math.Inf(1)
	}
	return t.EpsOptimalAbsolute / t.EpsOptimalRelative
}

// combinedBound returns the componentwise-max-truncated-to-finite bound
// magnitude used as the relative-residual denominator.
func combinedBound(l, u float64) float64 {
	var m float64
	if !math.IsInf(l, 0) {
		m = math.Abs(l)
	}
	if !math.IsInf(u, 0) {
		if a := math.Abs(u); a > m {
			m = a
		}
	}
	return m
}

// componentResidual returns residual / (offset + |bound|), handling the
// exact-zero case so 0/0 never arises.
func componentResidual(residual, bound, offset float64) float64 {
	denom := offset + math.Abs(bound)
	if denom == 0 {
		if residual == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return residual / denom
}

// PrimalResiduals holds the unscaled primal residuals computed from one
// iterate, plus the componentwise vector for diagnostics.
type PrimalResiduals struct {
	LInf, L2, ComponentwiseLInf float64
	Componentwise               []float64
}

// ComputePrimalResiduals computes, per row, the distance of Ax from
// [l_c, u_c] and reduces the rows in a sequential loop. q is the
// original (unscaled) problem; axWork is A_work * x_work, and each entry
// is un-scaled here by dividing by scale.Row before the comparison.
func ComputePrimalResiduals(q *qp.QuadraticProgram, scale *qp.ScalingVectors, axWork []float64, componentOffset float64) PrimalResiduals {
	m := q.NumConstraints()
	comp := make([]float64, m)
	var lInf, sumSq float64
	for i := 0; i < m; i++ {
		ax := axWork[i] / scale.Row[i]
		l, u := q.ConstraintLowerBounds[i], q.ConstraintUpperBounds[i]
		var r float64
		switch {
		case ax < l:
			r = l - ax
		case ax > u:
			r = ax - u
		}
		comp[i] = componentResidual(r, combinedBound(l, u), componentOffset)
		if r > lInf {
			lInf = r
		}
		sumSq += r * r
	}
	var compLInf float64
	for _, c := range comp {
		if c > compLInf {
			compLInf = c
		}
	}
	return PrimalResiduals{LInf: lInf, L2: math.Sqrt(sumSq), ComponentwiseLInf: compLInf, Componentwise: comp}
}

// DualResult bundles the dual residual and reduced-cost-corrected
// objective computation.
type DualResult struct {
	ResidualLInf, ResidualL2, ResidualComponentwiseLInf float64
	ReducedCosts                                        []float64
	ObjectiveCorrection                                 float64
	CorrectedObjectiveCorrection                        float64
}

// ComputeDualResiduals implements the effective-bound-policy gradient
// split: for each primal index j with gradient
// g_j = (c + Qx - Aᵀy)_j, the effective bound is either treated as
// finite (contributing to the reduced cost / objective correction) or
// infinite (contributing to the dual residual), depending on lazy or
// strict policy. The corrected-dual-objective correction is always
// computed under the strict policy, regardless of t.
func ComputeDualResiduals(q *qp.QuadraticProgram, scale *qp.ScalingVectors, gradWork []float64, xWork []float64, t Tolerances, componentOffset float64) DualResult {
	n := q.NumVariables()
	reducedCosts := make([]float64, n)
	comp := make([]float64, n)
	var lInf, sumSq, correction, strictCorrection float64

	for j := 0; j < n; j++ {
		g := gradWork[j] / scale.Col[j]
		l, u := q.VariableLowerBounds[j], q.VariableUpperBounds[j]
		x := xWork[j] * scale.Col[j]

		lFinite, uFinite := !math.IsInf(l, 0), !math.IsInf(u, 0)
		if t.HandleSomePrimalGradientsOnFiniteBoundsAsResiduals {
			if lFinite && g > 0 && math.Abs(x-l) > math.Abs(x) {
				lFinite = false
			}
			if uFinite && g < 0 && math.Abs(x-u) > math.Abs(x) {
				uFinite = false
			}
		}

		var residual float64
		switch {
		case g > 0:
			if lFinite {
				correction += l * g
			} else {
				residual = g
			}
		case g < 0:
			if uFinite {
				correction += u * g
			} else {
				residual = -g
			}
		}

		// Strict-policy correction for the corrected dual objective,
		// independent of the lazy flag above.
		switch {
		case g > 0 && !math.IsInf(l, 0):
			strictCorrection += l * g
		case g < 0 && !math.IsInf(u, 0):
			strictCorrection += u * g
		}

		reducedCosts[j] = g
		comp[j] = componentResidual(residual, combinedBound(l, u), componentOffset)
		if residual > lInf {
			lInf = residual
		}
		sumSq += residual * residual
	}
	var compLInf float64
	for _, c := range comp {
		if c > compLInf {
			compLInf = c
		}
	}
	return DualResult{
		ResidualLInf:                 lInf,
		ResidualL2:                   math.Sqrt(sumSq),
		ResidualComponentwiseLInf:    compLInf,
		ReducedCosts:                 reducedCosts,
		ObjectiveCorrection:          correction,
		CorrectedObjectiveCorrection: strictCorrection,
	}
}

// RelativeOptimalityGap computes |primal-dual| / (eps_ratio + |primal| + |dual|).
func RelativeOptimalityGap(primalObj, dualObj float64, t Tolerances) float64 {
	return math.Abs(primalObj-dualObj) / (t.EpsRatio() + math.Abs(primalObj) + math.Abs(dualObj))
}

// RelativeResidual picks the residual flavor selected by t.Norm and
// divides it by (eps_ratio + the matching norm of the combined bounds).
func RelativeResidual(residualLInf, residualL2, residualCompLInf float64, boundNorm func(norm OptimalityNorm) float64, t Tolerances) float64 {
	ratio := t.EpsRatio()
	switch t.Norm {
	case L2:
		return residualL2 / (ratio + boundNorm(L2))
	case ComponentwiseLInf:
		return residualCompLInf / (ratio + boundNorm(ComponentwiseLInf))
	default:
		return residualLInf / (ratio + boundNorm(LInf))
	}
}

// TerminationReason mirrors pdlp.TerminationReason without importing the
// root package (which itself imports stats); pdlp.Solve maps between
// the two one-to-one.
type TerminationReason int

const (
	NotTerminated TerminationReason = iota
	Optimal
	PrimalInfeasible
	DualInfeasible
	PrimalOrDualInfeasible
	TimeLimit
	IterationLimit
	KKTPassLimit
	NumericalError
	Interrupted
)

// CheckOptimality reports whether every residual and the gap is below
// eps_abs + eps_rel * norm.
//
// Because RelativeResidual already divides by (eps_ratio + norm), the
// "below eps_abs + eps_rel*norm" test becomes "relative value <=
// eps_rel" after dividing through by eps_rel (when eps_rel > 0); for
// eps_rel == 0 the residuals of the selected flavor and the absolute gap
// are compared against eps_abs directly.
func CheckOptimality(ci ConvergenceInformation, boundNorm func(OptimalityNorm) float64, t Tolerances) bool {
	if t.EpsOptimalRelative == 0 {
		primalRes, dualRes := ci.PrimalResidualLInf, ci.DualResidualLInf
		switch t.Norm {
		case L2:
			primalRes, dualRes = ci.PrimalResidualL2, ci.DualResidualL2
		case ComponentwiseLInf:
			primalRes, dualRes = ci.PrimalResidualComponentwiseLInf, ci.DualResidualComponentwiseLInf
		}
		eps := t.EpsOptimalAbsolute
		return primalRes <= eps && dualRes <= eps && math.Abs(ci.PrimalObjective-ci.DualObjective) <= eps
	}
	primalRel := RelativeResidual(ci.PrimalResidualLInf, ci.PrimalResidualL2, ci.PrimalResidualComponentwiseLInf, boundNorm, t)
	dualRel := RelativeResidual(ci.DualResidualLInf, ci.DualResidualL2, ci.DualResidualComponentwiseLInf, boundNorm, t)
	gapRel := RelativeOptimalityGap(ci.PrimalObjective, ci.DualObjective, t)

	threshold := t.EpsOptimalRelative
	if threshold == 0 {
		threshold = t.EpsOptimalAbsolute
	}
	return primalRel <= threshold && dualRel <= threshold && gapRel <= threshold
}

// CheckPrimalInfeasibility reports whether the dual ray certifies an
// infeasible primal: a finite, strictly improving (positive) ray
// objective with infeasibility below eps_primal_infeasible relative to
// it. The ratio form keeps the test invariant under rescaling of the
// ray.
func CheckPrimalInfeasibility(info InfeasibilityInformation, t Tolerances) bool {
	return !math.IsInf(info.DualRayObjective, 0) &&
		info.DualRayObjective > 0 &&
		info.MaxDualRayInfeasibility <= t.EpsPrimalInfeasible*info.DualRayObjective
}

// CheckDualInfeasibility reports whether the primal ray certifies an
// unbounded (dual infeasible) problem: a strictly negative linear
// objective with infeasibility below eps_dual_infeasible relative to
// it, or (for a QP) a nonzero quadratic part with linear part <= 0.
func CheckDualInfeasibility(info InfeasibilityInformation, t Tolerances) bool {
	if info.PrimalRayLinearObjective < 0 {
		return info.MaxPrimalRayInfeasibility <= t.EpsDualInfeasible*(-info.PrimalRayLinearObjective)
	}
	return info.PrimalRayQuadraticNorm != 0 && info.PrimalRayLinearObjective <= 0 &&
		info.MaxPrimalRayInfeasibility <= t.EpsDualInfeasible*info.PrimalRayQuadraticNorm
}
