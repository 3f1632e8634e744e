package trustregion

import "math"

// Problem bundles the inputs to SolveLinear/SolveDiagonalQP for one of
// the primal, dual, or joint trust-region instantiations.
type Problem struct {
	G, X0, L, U, W []float64
	Q              []float64 // nil for the linear-only (LP) case
}

// Solve dispatches to SolveDiagonalQP when p.Q is non-nil, else
// SolveLinear, returning a common (X, radius) shape.
func (p Problem) Solve(r, diagTol float64) (x []float64, radius float64) {
	if p.Q != nil {
		res := SolveDiagonalQP(p.G, p.X0, p.L, p.U, p.W, p.Q, r, diagTol)
		return res.X, res.Radius
	}
	res := SolveLinear(p.G, p.X0, p.L, p.U, p.W, r)
	return res.X, res.Radius
}

// PrimalTR builds the primal trust-region problem:
// objective g·(x-x0), bounds = variable bounds, unit weights.
func PrimalTR(g, x0, l, u []float64, quadDiag []float64) Problem {
	w := make([]float64, len(g))
	for i := range w {
		w[i] = 1
	}
	return Problem{G: g, X0: x0, L: l, U: u, W: w, Q: quadDiag}
}

// DualTR builds the dual trust-region problem:
// objective -g·(y-y0), with implicit one-sided dual bounds: lower=0
// when the constraint's upper bound is infinite, upper=0 when the
// constraint's lower bound is infinite. A two-sided finite constraint
// leaves its dual free; a fully free constraint pins its dual to 0.
func DualTR(g, y0, conLower, conUpper []float64) Problem {
	n := len(g)
	l := make([]float64, n)
	u := make([]float64, n)
	w := make([]float64, n)
	negG := make([]float64, n)
	for i := 0; i < n; i++ {
		negG[i] = -g[i]
		w[i] = 1
		l[i] = math.Inf(-1)
		u[i] = math.Inf(1)
		if math.IsInf(conUpper[i], 0) {
			l[i] = 0
		}
		if math.IsInf(conLower[i], 0) {
			u[i] = 0
		}
	}
	return Problem{G: negG, X0: y0, L: l, U: u, W: w}
}

// JointTR builds the combined primal+dual trust region:
// weights ½ω on the primal block, ½/ω on the dual block. gx, gy are
// the primal and dual gradients, already sign-adjusted: callers pass
// (g_x, -g_y), and both are used as given as the objective. The dual
// block takes its bounds from DualTR.
func JointTR(gx, gy, x0, y0, varLower, varUpper, conLower, conUpper []float64, omega float64, quadDiag []float64) Problem {
	np, nd := len(gx), len(gy)
	n := np + nd
	g := make([]float64, n)
	x0all := make([]float64, n)
	l := make([]float64, n)
	u := make([]float64, n)
	w := make([]float64, n)
	var q []float64
	if quadDiag != nil {
		q = make([]float64, n)
	}

	copy(g[:np], gx)
	copy(x0all[:np], x0)
	copy(l[:np], varLower)
	copy(u[:np], varUpper)
	for i := 0; i < np; i++ {
		w[i] = 0.5 * omega
		if quadDiag != nil {
			q[i] = quadDiag[i]
		}
	}

	dual := DualTR(gy, y0, conLower, conUpper)
	copy(g[np:], gy)
	copy(x0all[np:], dual.X0)
	copy(l[np:], dual.L)
	copy(u[np:], dual.U)
	for i := 0; i < nd; i++ {
		w[np+i] = 0.5 / omega
	}

	return Problem{G: g, X0: x0all, L: l, U: u, W: w, Q: q}
}

// LagrangianBounds is the {lagrangian_value, lower_bound, upper_bound,
// radius} tuple returned for one restart candidate.
type LagrangianBounds struct {
	LagrangianValue float64
	LowerBound      float64
	UpperBound      float64
	Radius          float64
}

// MaxNormBounds computes LocalizedLagrangianBounds with primal and dual
// sub-problems decoupled (the "max-norm" flavor):
//
//	lower = L(x,y) + min_x ∇_x L · (x - x0)     (primal TR, radius r*sqrt(2)/sqrt(omega))
//	upper = L(x,y) - min_y (-∇_y L) · (y - y0)  (dual TR,   radius r*sqrt(2)*sqrt(omega))
func MaxNormBounds(lagrangianValue float64, gradX, gradY, x0, y0, varLower, varUpper, conLower, conUpper []float64, omega, r, diagTol float64, quadDiag []float64) LagrangianBounds {
	primalRadius := r * math.Sqrt2 / math.Sqrt(omega)
	dualRadius := r * math.Sqrt2 * math.Sqrt(omega)

	primal := PrimalTR(gradX, x0, varLower, varUpper, quadDiag)
	_, primalObjShift := evalLinearMin(primal, primalRadius, diagTol)

	dual := DualTR(gradY, y0, conLower, conUpper)
	_, dualObjShift := evalLinearMin(dual, dualRadius, diagTol)

	return LagrangianBounds{
		LagrangianValue: lagrangianValue,
		LowerBound:      lagrangianValue + primalObjShift,
		UpperBound:      lagrangianValue - dualObjShift,
		Radius:          r,
	}
}

// EuclideanBounds computes LocalizedLagrangianBounds via a single
// JointTR with squared-norm weights (½ω, ½/ω), the Euclidean-norm
// flavor. When quadDiag is non-nil the diagonal-QP trust region is used
// so the quadratic term contributes to the bound. The joint minimizer's
// objective splits by block: the primal block's share tightens the lower
// bound, the dual block's share tightens the upper bound.
func EuclideanBounds(lagrangianValue float64, gradX, gradY, x0, y0, varLower, varUpper, conLower, conUpper []float64, omega, r, diagTol float64, quadDiag []float64) LagrangianBounds {
	joint := JointTR(gradX, negate(gradY), x0, y0, varLower, varUpper, conLower, conUpper, omega, quadDiag)
	x, _ := joint.Solve(r, diagTol)
	np := len(gradX)
	var primalShift, dualShift float64
	for i := 0; i < np; i++ {
		primalShift += joint.G[i] * (x[i] - joint.X0[i])
	}
	for i := np; i < len(x); i++ {
		dualShift += joint.G[i] * (x[i] - joint.X0[i])
	}
	return LagrangianBounds{
		LagrangianValue: lagrangianValue,
		LowerBound:      lagrangianValue + primalShift,
		UpperBound:      lagrangianValue - dualShift,
		Radius:          r,
	}
}

// evalLinearMin solves p and returns (x*, the attained objective
// g·(x*-x0)).
func evalLinearMin(p Problem, r, diagTol float64) (x []float64, objective float64) {
	x, _ = p.Solve(r, diagTol)
	for i := range x {
		objective += p.G[i] * (x[i] - p.X0[i])
	}
	return x, objective
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}
