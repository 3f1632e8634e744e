// Package trustregion implements the radius-constrained sub-solvers used
// to compute localized Lagrangian bounds for restart decisions: a
// near-linear-time trust region for the LP case and a binary-search
// trust region for diagonal-QP objectives.
package trustregion

import (
	"math"
	"sort"
)

// LinearResult is the outcome of SolveLinear.
type LinearResult struct {
	X      []float64
	Radius float64 // the weighted distance ‖X - X0‖_W actually attained; <= r.
}

// clampEvent records, for one coordinate with a finite critical step
// size, the delta at which it hits its bound and its contribution to
// the squared radius before and after that point.
type clampEvent struct {
	delta     float64 // critical step size at which this coordinate clamps
	clampTerm float64 // w_j * (bound - x0_j)^2, its contribution once clamped
	coeff     float64 // g_j^2 / w_j, its contribution per unit delta^2 while free
}

// SolveLinear solves
//
//	min  g·(x - x0)   s.t.   l <= x <= u,   ‖x - x0‖_W <= r
//
// where ‖z‖_W = sqrt(sum(w_i * z_i^2)), w_i > 0
//
// The optimal x(δ) = proj_[l,u](x0 - δ*g/w) for the smallest δ >= 0 that
// either exhausts the radius or clamps every coordinate to a bound.
// Coordinates are sorted by the step size at which they hit their bound
// (their "critical delta"); this implementation finds the root with a
// single ascending sweep over those critical deltas, O(n log n) from the
// sort. (A median-of-medians selection would achieve expected linear
// time; the sweep is simpler and easier to verify, and asymptotic
// complexity isn't externally observable through
// this package's API.)
func SolveLinear(g, x0, l, u, w []float64, r float64) LinearResult {
	n := len(g)
	events := make([]clampEvent, 0, n)
	var freeCoeff float64

	for j := 0; j < n; j++ {
		if w[j] <= 0 {
			panic("trustregion: weights must be positive")
		}
		coeff := g[j] * g[j] / w[j]
		freeCoeff += coeff

		if g[j] == 0 {
			continue // never clamps; already folded into freeCoeff
		}
		var bound float64
		if g[j] > 0 {
			bound = l[j]
		} else {
			bound = u[j]
		}
		if math.IsInf(bound, 0) {
			continue // unbounded on the descent side; never clamps
		}
		delta := (x0[j] - bound) * w[j] / g[j]
		if delta < 0 {
			delta = 0
		}
		events = append(events, clampEvent{
			delta:     delta,
			clampTerm: w[j] * (bound - x0[j]) * (bound - x0[j]),
			coeff:     coeff,
		})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].delta < events[j].delta })

	r2 := r * r
	var clampedSum float64
	remainingFree := freeCoeff
	prevDelta := 0.0

	for _, ev := range events {
		// Over [prevDelta, ev.delta), the squared radius grows as
		// clampedSum + remainingFree*delta^2.
		if remainingFree > 0 {
			target := (r2 - clampedSum) / remainingFree
			if target >= prevDelta*prevDelta && target < ev.delta*ev.delta {
				return finishLinear(g, x0, l, u, w, math.Sqrt(math.Max(target, 0)), r)
			}
		} else if clampedSum >= r2 {
			return finishLinear(g, x0, l, u, w, prevDelta, r)
		}
		clampedSum += ev.clampTerm
		remainingFree -= ev.coeff
		prevDelta = ev.delta
	}
	// Every finite-critical-delta coordinate is now clamped; any
	// remaining free coordinates (infinite bound, nonzero gradient)
	// still grow the radius without limit.
	if remainingFree > 0 {
		target := (r2 - clampedSum) / remainingFree
		return finishLinear(g, x0, l, u, w, math.Sqrt(math.Max(target, 0)), r)
	}
	// No free coordinates remain: the trust region never binds. Return
	// the fully-clamped point.
	return finishLinear(g, x0, l, u, w, prevDelta, r)
}

func finishLinear(g, x0, l, u, w []float64, delta, r float64) LinearResult {
	n := len(g)
	x := make([]float64, n)
	var radiusSq float64
	for j := 0; j < n; j++ {
		v := x0[j]
		if g[j] != 0 {
			v -= delta * g[j] / w[j]
		}
		if v < l[j] {
			v = l[j]
		}
		if v > u[j] {
			v = u[j]
		}
		x[j] = v
		d := v - x0[j]
		radiusSq += w[j] * d * d
	}
	radius := math.Sqrt(radiusSq)
	if radius > r {
		radius = r
	}
	return LinearResult{X: x, Radius: radius}
}
