package pdhg

import (
	"math"

	"github.com/gonum-community/pdlp/stats"
	"github.com/gonum-community/pdlp/trustregion"
)

// lagrangianValue computes c·x + ½x·Qx - y·(Ax), the saddle-point
// Lagrangian evaluated at (x, y) ignoring the (already-enforced)
// box-constraint indicator terms.
func (s *Solver) lagrangianValue(x, y, ax []float64) float64 {
	q := s.Sqp.QP()
	var obj float64
	for j, c := range q.Objective {
		obj += c * x[j]
		if q.QuadraticDiag != nil {
			obj += 0.5 * q.QuadraticDiag[j] * x[j] * x[j]
		}
	}
	var yax float64
	for i, yi := range y {
		yax += yi * ax[i]
	}
	return obj - yax
}

// primalGradient returns c + Q⊙x - Aᵀy.
func (s *Solver) primalGradient(x, atY []float64) []float64 {
	q := s.Sqp.QP()
	g := make([]float64, len(x))
	for j := range g {
		g[j] = q.Objective[j] - atY[j]
		if q.QuadraticDiag != nil {
			g[j] += q.QuadraticDiag[j] * x[j]
		}
	}
	return g
}

// localizedBounds computes the localized Lagrangian bounds for the
// candidate (x, y) at weighted distance radius from (x0, y0).
func (s *Solver) localizedBounds(x, y, x0, y0 []float64, radius float64) trustregion.LagrangianBounds {
	q := s.Sqp.QP()
	ax := s.Sqp.MatVec(x)
	atY := s.Sqp.MatVecTranspose(y)
	gx := s.primalGradient(x, atY)
	gy := make([]float64, len(ax)) // grad_y L = -Ax
	for i, v := range ax {
		gy[i] = -v
	}

	lv := s.lagrangianValue(x, y, ax)
	if s.Config.UseDiagonalQPTrustRegionSolver && q.QuadraticDiag != nil {
		return trustregion.EuclideanBounds(lv, gx, gy, x, y,
			q.VariableLowerBounds, q.VariableUpperBounds,
			q.ConstraintLowerBounds, q.ConstraintUpperBounds,
			s.PrimalWeight, radius, s.Config.DiagonalQPTrustRegionSolverTolerance, q.QuadraticDiag)
	}
	return trustregion.MaxNormBounds(lv, gx, gy, x, y,
		q.VariableLowerBounds, q.VariableUpperBounds,
		q.ConstraintLowerBounds, q.ConstraintUpperBounds,
		s.PrimalWeight, radius, s.Config.DiagonalQPTrustRegionSolverTolerance, nil)
}

// weightedDistance returns sqrt(omega*||x-x0||^2 + (1/omega)*||y-y0||^2),
// the joint primal-dual norm used to size restart trust regions.
func (s *Solver) weightedDistance(x, y, x0, y0 []float64) float64 {
	dx := s.Sqp.PrimalSharder().SquaredL2Distance(x, x0)
	dy := s.Sqp.DualSharder().SquaredL2Distance(y, y0)
	return math.Sqrt(s.PrimalWeight*dx + dy/s.PrimalWeight)
}

func normalizedPotential(b trustregion.LagrangianBounds) float64 {
	if b.Radius == 0 {
		return math.Inf(1)
	}
	gap := b.UpperBound - b.LowerBound
	return gap / (b.Radius * b.Radius)
}

// MaybeRestart evaluates the configured restart strategy at a major
// iteration and, if it decides to restart, resets the running averages,
// sets a new restart baseline, and updates the primal weight. It returns
// which choice was taken.
func (s *Solver) MaybeRestart() RestartChoice {
	switch s.Config.RestartStrategy {
	case RestartNone:
		s.restartTo(s.X, s.Y)
		return RestartToCurrent
	case RestartEveryMajor:
		s.restartTo(s.PrimalAvg.Avg(), s.DualAvg.Avg())
		return RestartToAverage
	case RestartAdaptiveDistance:
		return s.maybeRestartAdaptiveDistance()
	default:
		return s.maybeRestartAdaptiveHeuristic()
	}
}

func (s *Solver) maybeRestartAdaptiveHeuristic() RestartChoice {
	choice, currentBound, avgBound := s.pickRestartCandidate()
	bestBound := currentBound
	if choice == RestartToAverage {
		bestBound = avgBound
	}

	current := normalizedPotential(currentBound)
	best := normalizedPotential(bestBound)
	reduction := 1.0
	if !math.IsInf(current, 0) && current != 0 {
		reduction = best / current
	}

	sufficient := reduction <= s.Config.SufficientReductionForRestart
	necessaryAndWorseThanLastTrial := reduction <= s.Config.NecessaryReductionForRestart &&
		(!s.haveLastNormalizedGap || best > s.lastNormalizedGap)

	s.lastNormalizedGap = best
	s.haveLastNormalizedGap = true

	if !sufficient && !necessaryAndWorseThanLastTrial {
		return NoRestart
	}
	return s.commitRestart(choice)
}

func (s *Solver) maybeRestartAdaptiveDistance() RestartChoice {
	distance := s.weightedDistance(s.X, s.Y, s.restartX, s.restartY)
	shrunk := true
	if s.haveLastNormalizedGap && s.lastNormalizedGap > 0 {
		shrunk = distance <= s.Config.SufficientReductionForRestart*s.lastNormalizedGap
	}
	s.lastNormalizedGap = distance
	s.haveLastNormalizedGap = true

	if !shrunk {
		return NoRestart
	}
	choice, _, _ := s.pickRestartCandidate()
	return s.commitRestart(choice)
}

// pickRestartCandidate evaluates the normalized potential of the current
// iterate and the running average and reports which is smaller.
func (s *Solver) pickRestartCandidate() (choice RestartChoice, currentBound, avgBound trustregion.LagrangianBounds) {
	radius := s.weightedDistance(s.X, s.Y, s.restartX, s.restartY)
	currentBound = s.localizedBounds(s.X, s.Y, s.restartX, s.restartY, radius)
	avgBound = s.localizedBounds(s.PrimalAvg.Avg(), s.DualAvg.Avg(), s.restartX, s.restartY, radius)

	if normalizedPotential(avgBound) <= normalizedPotential(currentBound) {
		return RestartToAverage, currentBound, avgBound
	}
	return RestartToCurrent, currentBound, avgBound
}

func (s *Solver) commitRestart(choice RestartChoice) RestartChoice {
	if choice == RestartToAverage {
		s.restartTo(s.PrimalAvg.Avg(), s.DualAvg.Avg())
	} else {
		s.restartTo(s.X, s.Y)
	}
	return choice
}

// restartTo sets x, y (and the cached Aᵀy) to the given point, clears
// the running averages, records the new restart baseline, and updates
// the primal weight.
func (s *Solver) restartTo(x, y []float64) {
	newX := append([]float64(nil), x...)
	newY := append([]float64(nil), y...)

	dp := s.Sqp.PrimalSharder().L2Distance(newX, s.restartX)
	dd := s.Sqp.DualSharder().L2Distance(newY, s.restartY)
	s.updatePrimalWeight(dp, dd)

	s.X = newX
	s.Y = newY
	s.AtY = s.Sqp.MatVecTranspose(s.Y)
	s.PrimalAvg.Clear()
	s.DualAvg.Clear()
	s.restartX = append([]float64(nil), newX...)
	s.restartY = append([]float64(nil), newY...)

	q := s.Sqp.QP()
	newActivePrimal := activeSet(newX, q.VariableLowerBounds, q.VariableUpperBounds)
	newActiveDual := make([]bool, len(newY))
	for i, v := range newY {
		newActiveDual[i] = v != 0
	}
	s.restartActivePrimal = newActivePrimal
	s.restartActiveDual = newActiveDual
}

// activeSet reports, for each coordinate of x, whether it sits at one of
// its finite bounds within isActiveTolerance.
func activeSet(x, lower, upper []float64) []bool {
	active := make([]bool, len(x))
	for i, v := range x {
		active[i] = isActive(v, lower[i], upper[i])
	}
	return active
}

// isActiveTolerance is the absolute slack below which a coordinate at a
// finite bound counts as active in PointMetadata's active-set
// bookkeeping.
const isActiveTolerance = 1e-9

func isActive(v, lower, upper float64) bool {
	if !math.IsInf(lower, 0) && math.Abs(v-lower) <= isActiveTolerance {
		return true
	}
	if !math.IsInf(upper, 0) && math.Abs(v-upper) <= isActiveTolerance {
		return true
	}
	return false
}

// countChanges counts how many entries differ between two equal-length
// boolean active-set snapshots.
func countChanges(a, b []bool) int {
	n := 0
	for i := range a {
		if a[i] != b[i] {
			n++
		}
	}
	return n
}

// pointMetadata summarizes (x, y) with PointMetadata's active-set and
// random-projection bookkeeping: how many primal/dual coordinates are
// currently active, how many have flipped
// since the last restart baseline, and a handful of fixed random linear
// projections of each iterate, cheap enough to compute every reported
// iteration.
func (s *Solver) pointMetadata(x, y []float64) stats.PointMetadata {
	q := s.Sqp.QP()
	activePrimal := activeSet(x, q.VariableLowerBounds, q.VariableUpperBounds)
	activeDual := make([]bool, len(y))
	numActiveDual := 0
	for i, v := range y {
		activeDual[i] = v != 0
		if activeDual[i] {
			numActiveDual++
		}
	}
	numActivePrimal := 0
	for _, a := range activePrimal {
		if a {
			numActivePrimal++
		}
	}

	primalSh, dualSh := s.Sqp.PrimalSharder(), s.Sqp.DualSharder()
	primalProj := make([]float64, len(s.primalProjDirs))
	for i, dir := range s.primalProjDirs {
		primalProj[i] = primalSh.Dot(x, dir)
	}
	dualProj := make([]float64, len(s.dualProjDirs))
	for i, dir := range s.dualProjDirs {
		dualProj[i] = dualSh.Dot(y, dir)
	}

	return stats.PointMetadata{
		NumActivePrimalVariables:       numActivePrimal,
		NumActiveDualVariables:         numActiveDual,
		NumActivePrimalVariableChanges: countChanges(activePrimal, s.restartActivePrimal),
		NumActiveDualVariableChanges:   countChanges(activeDual, s.restartActiveDual),
		RandomPrimalProjections:        primalProj,
		RandomDualProjections:          dualProj,
	}
}

// updatePrimalWeight recomputes the primal weight at a restart:
// omega_new = exp(s*ln(dd/dp) + (1-s)*ln(omega_old)) when both distances
// are within (1e-10, 1e10); otherwise omega is left unchanged.
func (s *Solver) updatePrimalWeight(dp, dd float64) {
	const lo, hi = 1e-10, 1e10
	if dp <= lo || dp >= hi || dd <= lo || dd >= hi {
		return
	}
	smoothing := s.Config.PrimalWeightUpdateSmoothing
	s.PrimalWeight = math.Exp(smoothing*math.Log(dd/dp) + (1-smoothing)*math.Log(s.PrimalWeight))
}

// IsMajorIteration reports whether s.Iteration is a major iteration
// boundary: divisible by the configured frequency and not the first.
func (s *Solver) IsMajorIteration() bool {
	freq := s.Config.MajorIterationFrequency
	if freq <= 0 {
		return false
	}
	return s.Iteration > 0 && s.Iteration%freq == 0
}
