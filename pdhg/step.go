package pdhg

import (
	"math"

	"github.com/gonum-community/pdlp/sharder"
)

// projectPrimal applies the closed-form coordinate projection: for an LP
// coordinate (quadDiag == nil or Q_jj == 0),
// x'_j = clamp(x_j - etaP*(c_j - (Aᵀy)_j), bounds); for a diagonal-QP
// coordinate the 1-D minimizer divides by (1 + etaP*Q_jj). Evaluated
// shard-parallel over sh.
func projectPrimal(sh *sharder.Sharder, x, c, atY, quadDiag, lower, upper []float64, etaP float64) []float64 {
	out := make([]float64, len(x))
	sh.ForEachShard(func(sd sharder.Shard) {
		xp, cp, atYp := sd.Slice(x), sd.Slice(c), sd.Slice(atY)
		lp, up, outp := sd.Slice(lower), sd.Slice(upper), sd.Slice(out)
		var qd []float64
		if quadDiag != nil {
			qd = sd.Slice(quadDiag)
		}
		for j := range xp {
			grad := cp[j] - atYp[j]
			var v float64
			if qd == nil || qd[j] == 0 {
				v = xp[j] - etaP*grad
			} else {
				v = (xp[j] - etaP*grad) / (1 + etaP*qd[j])
			}
			if v < lp[j] {
				v = lp[j]
			}
			if v > up[j] {
				v = up[j]
			}
			outp[j] = v
		}
	})
	return out
}

// projectDual applies the closed-form dual update:
//
//	tmp = y - etaD*(A xTilde)
//	y' = min(0, tmp + etaD*u_c) or max(0, tmp + etaD*l_c)
//
// folding the dual toward the active side when both bounds are finite.
// Evaluated shard-parallel over sh.
func projectDual(sh *sharder.Sharder, y, axTilde, lc, uc []float64, etaD float64) []float64 {
	out := make([]float64, len(y))
	sh.ForEachShard(func(sd sharder.Shard) {
		yp, axp := sd.Slice(y), sd.Slice(axTilde)
		lp, up, outp := sd.Slice(lc), sd.Slice(uc), sd.Slice(out)
		for i := range yp {
			tmp := yp[i] - etaD*axp[i]
			lFinite, uFinite := !math.IsInf(lp[i], 0), !math.IsInf(up[i], 0)
			switch {
			case uFinite && lFinite:
				hi := tmp + etaD*up[i]
				lo := tmp + etaD*lp[i]
				if hi < 0 {
					outp[i] = hi
				} else if lo > 0 {
					outp[i] = lo
				} else {
					outp[i] = 0
				}
			case uFinite:
				v := tmp + etaD*up[i]
				if v < 0 {
					outp[i] = v
				}
			case lFinite:
				v := tmp + etaD*lp[i]
				if v > 0 {
					outp[i] = v
				}
			default:
				outp[i] = 0
			}
		}
	})
	return out
}

// movement computes M = ½ω‖Δx‖² + ½ω⁻¹‖Δy‖², via the primal/dual
// sharders' SquaredL2Norm kernel.
func movement(primalSh, dualSh *sharder.Sharder, dx, dy []float64, omega float64) float64 {
	sx := primalSh.SquaredL2Norm(dx)
	sy := dualSh.SquaredL2Norm(dy)
	return 0.5*omega*sx + 0.5/omega*sy
}

// nonlinearity computes N = -Δx·(Aᵀy' - Aᵀy), via the primal sharder's
// Sub and Dot kernels.
func nonlinearity(primalSh *sharder.Sharder, dx, atYNew, atYOld []float64) float64 {
	diff := primalSh.Sub(atYNew, atYOld)
	return -primalSh.Dot(dx, diff)
}

// Step advances the solver by one PDHG iteration, dispatching to the
// configured step rule. On an accepted step it mutates s.X, s.Y, s.AtY
// and the running averages and advances s.Iteration; s.StepSize and
// s.CumulativeKKTPasses are updated as each rule's trial steps dictate.
// It returns a non-empty numerical-error message, without advancing
// s.Iteration, if the step must terminate the solve (movement exactly
// zero, movement past 1e100, a NaN iterate, or the Malitsky-Pock inner
// cap of 60).
func (s *Solver) Step() (numericalError string) {
	switch s.Config.StepRule {
	case AdaptiveStep:
		return s.stepAdaptive()
	case MalitskyPockStep:
		return s.stepMalitskyPock()
	default:
		return s.stepConstant()
	}
}

func (s *Solver) commit(xNew, yNew, atYNew []float64, stepWeight float64) {
	s.X, s.Y, s.AtY = xNew, yNew, atYNew
	s.PrimalAvg.Add(s.X, stepWeight)
	s.DualAvg.Add(s.Y, stepWeight)
	s.Iteration++
	s.CumulativeKKTPasses++
}

func (s *Solver) stepConstant() string {
	q := s.Sqp.QP()
	primalSh, dualSh := s.Sqp.PrimalSharder(), s.Sqp.DualSharder()
	etaP := s.StepSize / s.PrimalWeight
	etaD := s.StepSize * s.PrimalWeight

	xNew := projectPrimal(primalSh, s.X, q.Objective, s.AtY, q.QuadraticDiag, q.VariableLowerBounds, q.VariableUpperBounds, etaP)
	xTilde := extrapolate(primalSh, xNew, s.X, 1)
	axTilde := s.Sqp.MatVec(xTilde)
	yNew := projectDual(dualSh, s.Y, axTilde, q.ConstraintLowerBounds, q.ConstraintUpperBounds, etaD)
	atYNew := s.Sqp.MatVecTranspose(yNew)

	if primalSh.HasNaN(xNew) || dualSh.HasNaN(yNew) {
		return "iterate contains NaN"
	}

	dx, dy := primalSh.Sub(xNew, s.X), dualSh.Sub(yNew, s.Y)
	m := movement(primalSh, dualSh, dx, dy, s.PrimalWeight)
	if m == 0 {
		return "movement is exactly zero; iterates are not moving"
	}
	if m > 1e100 {
		return "movement exceeds 1e100; solve has diverged"
	}
	s.commit(xNew, yNew, atYNew, s.StepSize)
	return ""
}

// stepAdaptive implements the Auslender-Teboulle adaptive step rule: a
// trial step of the current s.StepSize is
// accepted iff eta <= M/N (unconditionally when N <= 0); after the
// trial, s.StepSize is always updated toward
//
//	min((1-(k+1)^-alphaRed)*(M/N), (1+(k+1)^-alphaGrow)*eta)
//
// where k counts the trial steps attempted so far, this one included,
// so k >= 1 and the reduction factor is positive from the first trial.
func (s *Solver) stepAdaptive() string {
	q := s.Sqp.QP()
	primalSh, dualSh := s.Sqp.PrimalSharder(), s.Sqp.DualSharder()
	for {
		eta := s.StepSize
		etaP := eta / s.PrimalWeight
		etaD := eta * s.PrimalWeight

		xNew := projectPrimal(primalSh, s.X, q.Objective, s.AtY, q.QuadraticDiag, q.VariableLowerBounds, q.VariableUpperBounds, etaP)
		xTilde := extrapolate(primalSh, xNew, s.X, 1)
		axTilde := s.Sqp.MatVec(xTilde)
		yNew := projectDual(dualSh, s.Y, axTilde, q.ConstraintLowerBounds, q.ConstraintUpperBounds, etaD)
		atYNew := s.Sqp.MatVecTranspose(yNew)
		s.CumulativeKKTPasses++

		if primalSh.HasNaN(xNew) || dualSh.HasNaN(yNew) {
			return "iterate contains NaN"
		}

		dx, dy := primalSh.Sub(xNew, s.X), dualSh.Sub(yNew, s.Y)
		m := movement(primalSh, dualSh, dx, dy, s.PrimalWeight)
		if m > 1e100 {
			return "movement exceeds 1e100; solve has diverged"
		}
		n := nonlinearity(primalSh, dx, atYNew, s.AtY)

		k := s.adaptiveK + 1
		var ratioBound float64
		if n > 0 {
			ratioBound = m / n
		} else {
			ratioBound = math.Inf(1)
		}
		accepted := n <= 0 || eta <= ratioBound

		grown := eta * (1 + math.Pow(float64(k+1), -s.Config.AdaptiveGrowthExponent))
		var shrunk float64
		if n > 0 {
			shrunk = (1 - math.Pow(float64(k+1), -s.Config.AdaptiveReductionExponent)) * ratioBound
		} else {
			shrunk = grown
		}
		s.StepSize = math.Min(shrunk, grown)
		s.adaptiveK++

		if !accepted {
			s.CumulativeRejectedSteps++
			continue
		}
		if m == 0 {
			return "movement is exactly zero; iterates are not moving"
		}
		s.commit(xNew, yNew, atYNew, eta)
		return ""
	}
}

// stepMalitskyPock implements the Malitsky-Pock step rule. The primal
// update uses the current s.StepSize; only the dual update (with
// extrapolation factor eta+/eta) is retried across shrinking trial step
// sizes, up to the hard cap of 60 attempts.
func (s *Solver) stepMalitskyPock() string {
	q := s.Sqp.QP()
	primalSh, dualSh := s.Sqp.PrimalSharder(), s.Sqp.DualSharder()
	eta := s.StepSize
	etaP := eta / s.PrimalWeight

	xNew := projectPrimal(primalSh, s.X, q.Objective, s.AtY, q.QuadraticDiag, q.VariableLowerBounds, q.VariableUpperBounds, etaP)
	dx := primalSh.Sub(xNew, s.X)

	ratio := s.ratioLastTwoStepSizes
	if ratio == 0 {
		ratio = 1
	}
	trial := eta * (1 + s.Config.MalitskyPockStepSizeGrowth*(math.Sqrt(1+ratio)-1))

	for attempt := 0; attempt < 60; attempt++ {
		etaD := trial * s.PrimalWeight
		theta := trial / eta
		xTilde := extrapolate(primalSh, xNew, s.X, theta)
		axTilde := s.Sqp.MatVec(xTilde)
		yNew := projectDual(dualSh, s.Y, axTilde, q.ConstraintLowerBounds, q.ConstraintUpperBounds, etaD)
		atYNew := s.Sqp.MatVecTranspose(yNew)
		s.CumulativeKKTPasses++

		if primalSh.HasNaN(xNew) || dualSh.HasNaN(yNew) {
			return "iterate contains NaN"
		}

		dy := dualSh.Sub(yNew, s.Y)
		diffAtY := primalSh.Sub(atYNew, s.AtY)
		lhs := s.PrimalWeight * trial * primalSh.L2Norm(diffAtY)
		rhs := s.Config.MalitskyPockDownscalingFactor * dualSh.L2Norm(dy)

		if lhs <= rhs {
			m := movement(primalSh, dualSh, dx, dy, s.PrimalWeight)
			if m == 0 {
				return "movement is exactly zero; iterates are not moving"
			}
			if m > 1e100 {
				return "movement exceeds 1e100; solve has diverged"
			}
			s.ratioLastTwoStepSizes = trial / eta
			s.StepSize = trial
			s.commit(xNew, yNew, atYNew, trial)
			return ""
		}
		s.CumulativeRejectedSteps++
		trial *= s.Config.MalitskyPockLinesearchContraction
	}
	return "Malitsky-Pock inner line search exceeded 60 attempts"
}

// extrapolate computes xNew + theta*(xNew-xOld), shard-parallel over sh.
func extrapolate(sh *sharder.Sharder, xNew, xOld []float64, theta float64) []float64 {
	diff := sh.Sub(xNew, xOld)
	out := append([]float64(nil), xNew...)
	sh.AddScaled(out, theta, diff)
	return out
}
