package trustregion

import "math"

// DiagonalResult is the outcome of SolveDiagonalQP.
type DiagonalResult struct {
	X      []float64
	Lambda float64 // the dual multiplier on the trust-region constraint
	Radius float64
}

// SolveDiagonalQP solves
//
//	min  ½(x-x0)ᵀQ(x-x0) + g·(x-x0)   s.t.   l <= x <= u,   ‖x-x0‖_W <= r
//
// for diagonal, nonnegative Q. Under the substitution
// u = sqrt(W)*(x-x0), the optimality conditions reduce to finding the
// scalar λ >= 0 with ‖u(λ)‖_2 = r, where
//
//	u_i(λ) = clamp( -g_i/sqrt(W_i) / (Q_i/W_i + λ), sqrt(W_i)*(l_i-x0_i), sqrt(W_i)*(u_i-x0_i) )
//
// ‖u(λ)‖ is monotonically non-increasing in λ (larger λ shrinks the
// unclamped term toward zero), so a binary search converges: start with
// [0, 1], double the upper bound while ‖u(λ)‖ >= r, then bisect until
// the interval width is within tol*max(1, λ_lower).
func SolveDiagonalQP(g, x0, l, u, w, q []float64, r, tol float64) DiagonalResult {
	n := len(g)
	sqrtW := make([]float64, n)
	for i, wi := range w {
		if wi <= 0 {
			panic("trustregion: weights must be positive")
		}
		sqrtW[i] = math.Sqrt(wi)
	}

	uAt := func(lambda float64) []float64 {
		out := make([]float64, n)
		for i := 0; i < n; i++ {
			denom := q[i]/w[i] + lambda
			var ui float64
			switch {
			case denom > 0:
				ui = -g[i] / sqrtW[i] / denom
			case g[i] > 0:
				ui = math.Inf(-1)
			case g[i] < 0:
				ui = math.Inf(1)
			}
			lo := sqrtW[i] * (l[i] - x0[i])
			hi := sqrtW[i] * (u[i] - x0[i])
			if ui < lo {
				ui = lo
			}
			if ui > hi {
				ui = hi
			}
			out[i] = ui
		}
		return out
	}
	norm := func(v []float64) float64 {
		var s float64
		for _, x := range v {
			s += x * x
		}
		return math.Sqrt(s)
	}

	lo, hi := 0.0, 1.0
	for norm(uAt(hi)) >= r {
		lo = hi
		hi *= 2
		if hi > 1e300 {
			break
		}
	}
	// If even lambda=0 already satisfies the radius, the trust region
	// doesn't bind; the unconstrained-by-radius, bound-clamped minimizer
	// is optimal.
	if norm(uAt(0)) <= r {
		uu := uAt(0)
		return finishDiagonal(x0, sqrtW, uu, 0)
	}

	for hi-lo > tol*math.Max(1, lo) {
		mid := (lo + hi) / 2
		if norm(uAt(mid)) >= r {
			lo = mid
		} else {
			hi = mid
		}
	}
	lambda := (lo + hi) / 2
	return finishDiagonal(x0, sqrtW, uAt(lambda), lambda)
}

func finishDiagonal(x0, sqrtW, uu []float64, lambda float64) DiagonalResult {
	n := len(x0)
	x := make([]float64, n)
	var radiusSq float64
	for i := 0; i < n; i++ {
		x[i] = x0[i] + uu[i]/sqrtW[i]
		radiusSq += uu[i] * uu[i]
	}
	return DiagonalResult{X: x, Lambda: lambda, Radius: math.Sqrt(radiusSq)}
}
