package pdhg

import (
	"math"
	"time"

	"github.com/gonum-community/pdlp/stats"
)

// RunResult is what Run hands back to the caller once the loop exits:
// the winning candidate's iterate (in working coordinates), which
// iterate it came from, and the reason the loop stopped.
type RunResult struct {
	X, Y          []float64
	ReducedCosts  []float64
	DualObjective float64
	Point         stats.CandidateType
	Reason        stats.TerminationReason
	Stats         stats.IterationStats

	// History holds one IterationStats per termination check, recorded
	// only when Config.RecordIterationStats is set.
	History []stats.IterationStats
}

// Run drives the PDHG iteration to termination: one Step per loop pass,
// restart checks at major iterations, termination checks every
// TerminationCheckFrequency iterations, and (if enabled) feasibility
// polishing: in the periodic rounds ShouldPolish schedules, and once
// more when a limit is reached or the solve is interrupted if the
// matching ApplyFeasibilityPolishing* option is set. s.OriginalQP must
// be set.
func (s *Solver) Run() RunResult {
	s.StartTime = time.Now()
	polishTrigger := 0
	lastLog := s.StartTime

	checkFreq := s.Config.TerminationCheckFrequency
	if checkFreq <= 0 {
		checkFreq = 1
	}

	for {
		if errMsg := s.Step(); errMsg != "" {
			s.Config.logf(LogWarning, "numerical error: %s", errMsg)
			return s.finish(stats.NumericalError)
		}

		if s.IsMajorIteration() {
			s.MaybeRestart()
		}

		if s.ShouldPolish(&polishTrigger) {
			polished := s.RunFeasibilityPolishing()
			if reason, ok := s.checkPolishedConvergence(polished); ok {
				s.X, s.Y = polished.X, polished.Y
				return s.finishAt(reason, stats.CandidateFeasibilityPolishing)
			}
		}

		if s.Iteration%checkFreq == 0 {
			s.reportCheckpoint(&lastLog)
			if reason, point := s.checkTermination(); reason != stats.NotTerminated {
				return s.finishAt(reason, point)
			}
			if s.Config.Interrupt != nil && s.Config.Interrupt.Load() {
				return s.finishOnInterrupt()
			}
		}

		if limit := s.Config.IterationLimit; limit > 0 && s.Iteration >= limit {
			return s.finishOnLimit(stats.IterationLimit)
		}
		if limit := s.Config.KKTMatrixPassLimit; limit > 0 && s.CumulativeKKTPasses >= limit {
			return s.finishOnLimit(stats.KKTPassLimit)
		}
		if limit := s.Config.TimeLimitSeconds; limit > 0 && time.Since(s.StartTime).Seconds() >= limit {
			return s.finishOnLimit(stats.TimeLimit)
		}
	}
}

// reportCheckpoint feeds the per-check observers: the iteration-stats
// callback, the recorded history, and the periodic progress log. The
// detailed snapshot is only computed when at least one observer wants
// it, since it costs up to four extra KKT-matrix passes per candidate
// (a product with A and one with Aᵀ for each of the convergence and the
// infeasibility information).
func (s *Solver) reportCheckpoint(lastLog *time.Time) {
	logDue := s.Config.MessageCallback != nil && s.Config.VerbosityLevel > 0 &&
		time.Since(*lastLog).Seconds() >= s.Config.LogIntervalSeconds
	if !logDue && !s.Config.RecordIterationStats && s.Config.IterationStatsCallback == nil {
		return
	}

	st := s.detailedStats()
	if s.Config.IterationStatsCallback != nil {
		s.Config.IterationStatsCallback(st)
	}
	if s.Config.RecordIterationStats {
		s.statsHistory = append(s.statsHistory, st)
	}
	if logDue {
		*lastLog = time.Now()
		if ci := st.BestConvergenceInformation(stats.CandidateAverage); ci != nil {
			s.Config.logf(LogInfo, "iter %d: primal %.6e dual %.6e primal_res %.3e dual_res %.3e",
				st.IterationNumber, ci.PrimalObjective, ci.DualObjective,
				ci.PrimalResidualLInf, ci.DualResidualLInf)
		}
	}
}

// detailedStats builds a full IterationStats snapshot: work counters
// plus convergence and infeasibility information for both the current
// iterate and the running average.
func (s *Solver) detailedStats() stats.IterationStats {
	return stats.IterationStats{
		IterationNumber:         s.Iteration,
		CumulativeKKTPasses:     s.CumulativeKKTPasses,
		CumulativeTime:          time.Since(s.StartTime),
		CumulativeRejectedSteps: s.CumulativeRejectedSteps,
		StepSize:                s.StepSize,
		PrimalWeight:            s.PrimalWeight,
		ConvergenceInformation: []stats.ConvergenceInformation{
			s.convergenceInfo(stats.CandidateCurrent, s.X, s.Y),
			s.convergenceInfo(stats.CandidateAverage, s.PrimalAvg.Avg(), s.DualAvg.Avg()),
		},
		InfeasibilityInformation: []stats.InfeasibilityInformation{
			s.infeasibilityInfo(stats.CandidateCurrent, s.X, s.Y),
			s.infeasibilityInfo(stats.CandidateAverage, s.PrimalAvg.Avg(), s.DualAvg.Avg()),
		},
		PointMetadata: []stats.PointMetadata{s.pointMetadata(s.X, s.Y)},
	}
}

// finishOnInterrupt applies the apply-polishing-if-interrupted option
// before settling on the Interrupted reason.
func (s *Solver) finishOnInterrupt() RunResult {
	if s.Config.UseFeasibilityPolishing && s.Config.ApplyFeasibilityPolishingIfInterrupted {
		polished := s.RunFeasibilityPolishing()
		s.X, s.Y = polished.X, polished.Y
		return s.finishAt(stats.Interrupted, stats.CandidateFeasibilityPolishing)
	}
	return s.finish(stats.Interrupted)
}

// finishOnLimit applies the end-of-budget feasibility polishing option
// before settling on reason.
func (s *Solver) finishOnLimit(reason stats.TerminationReason) RunResult {
	if s.Config.UseFeasibilityPolishing && s.Config.ApplyFeasibilityPolishingAfterLimitsReached {
		polished := s.RunFeasibilityPolishing()
		s.X, s.Y = polished.X, polished.Y
		return s.finishAt(reason, stats.CandidateFeasibilityPolishing)
	}
	return s.finish(reason)
}

// finish settles on reason with the candidate checkTermination names:
// the running average or the current iterate if one of them passes an
// optimality or infeasibility check, otherwise the current iterate. The
// two candidates are not otherwise scored against each other.
func (s *Solver) finish(reason stats.TerminationReason) RunResult {
	_, point := s.checkTermination()
	return s.finishAt(reason, point)
}

func (s *Solver) finishAt(reason stats.TerminationReason, point stats.CandidateType) RunResult {
	s.TerminationReason = reason
	x, y := s.X, s.Y
	if point == stats.CandidateAverage {
		x, y = s.PrimalAvg.Avg(), s.DualAvg.Avg()
	}
	st := stats.IterationStats{
		IterationNumber:         s.Iteration,
		CumulativeKKTPasses:     s.CumulativeKKTPasses,
		CumulativeTime:          time.Since(s.StartTime),
		CumulativeRejectedSteps: s.CumulativeRejectedSteps,
		StepSize:                s.StepSize,
		PrimalWeight:            s.PrimalWeight,
		PointMetadata:           []stats.PointMetadata{s.pointMetadata(x, y)},
	}
	dualObj, reducedCosts := s.dualObjectiveAndReducedCosts(point, x, y)
	return RunResult{X: x, Y: y, ReducedCosts: reducedCosts, DualObjective: dualObj, Point: point, Reason: reason, Stats: st, History: s.statsHistory}
}

// dualObjectiveAndReducedCosts recomputes the corrected dual objective and
// the reduced-cost vector (c + Qx - Aᵀy, every component as
// stats.ComputeDualResiduals returns it; none is zeroed) for the winning candidate,
// in original-problem coordinates. Only meaningful when OriginalQP is set;
// callers that never intend to run the full loop (unit tests of Step in
// isolation) leave it nil and get zero values back.
func (s *Solver) dualObjectiveAndReducedCosts(candidate stats.CandidateType, xWork, yWork []float64) (float64, []float64) {
	if s.OriginalQP == nil {
		return 0, nil
	}
	ci := s.convergenceInfo(candidate, xWork, yWork)
	gradWork := s.gradientWork(xWork, yWork)
	dualRes := stats.ComputeDualResiduals(s.OriginalQP, s.Scale, gradWork, xWork, s.Config.Tolerances, s.Config.Tolerances.EpsOptimalAbsolute)
	return ci.CorrectedDualObjective, dualRes.ReducedCosts
}

// gradientWork returns c + Qx - Aᵀy in working coordinates, the
// quantity both the corrected-dual-objective and reduced-cost
// computations are built from.
func (s *Solver) gradientWork(xWork, yWork []float64) []float64 {
	atYWork := s.Sqp.MatVecTranspose(yWork)
	gradWork := make([]float64, len(xWork))
	for j := range gradWork {
		gradWork[j] = s.Sqp.QP().Objective[j] - atYWork[j]
		if s.Sqp.QP().QuadraticDiag != nil {
			gradWork[j] += s.Sqp.QP().QuadraticDiag[j] * xWork[j]
		}
	}
	return gradWork
}

// checkPolishedConvergence evaluates the merged feasibility-polishing
// candidate for optimality; it never reports infeasibility, since a
// zero-objective feasibility subproblem carries no certificate meaning.
func (s *Solver) checkPolishedConvergence(p PolishResult) (stats.TerminationReason, bool) {
	ci := s.convergenceInfo(stats.CandidateFeasibilityPolishing, p.X, p.Y)
	if stats.CheckOptimality(ci, s.boundNorm, s.Config.Tolerances) {
		return stats.Optimal, true
	}
	return stats.NotTerminated, false
}

// checkTermination evaluates the current iterate and the running
// average for optimality and infeasibility, preferring
// optimality over infeasibility and the average over the current iterate
// when both satisfy the same check.
func (s *Solver) checkTermination() (stats.TerminationReason, stats.CandidateType) {
	avgCI := s.convergenceInfo(stats.CandidateAverage, s.PrimalAvg.Avg(), s.DualAvg.Avg())
	if stats.CheckOptimality(avgCI, s.boundNorm, s.Config.Tolerances) {
		return stats.Optimal, stats.CandidateAverage
	}
	curCI := s.convergenceInfo(stats.CandidateCurrent, s.X, s.Y)
	if stats.CheckOptimality(curCI, s.boundNorm, s.Config.Tolerances) {
		return stats.Optimal, stats.CandidateCurrent
	}

	avgInf := s.infeasibilityInfo(stats.CandidateAverage, s.PrimalAvg.Avg(), s.DualAvg.Avg())
	if stats.CheckPrimalInfeasibility(avgInf, s.Config.Tolerances) {
		return stats.PrimalInfeasible, stats.CandidateAverage
	}
	if stats.CheckDualInfeasibility(avgInf, s.Config.Tolerances) {
		return stats.DualInfeasible, stats.CandidateAverage
	}
	curInf := s.infeasibilityInfo(stats.CandidateCurrent, s.X, s.Y)
	if stats.CheckPrimalInfeasibility(curInf, s.Config.Tolerances) {
		return stats.PrimalInfeasible, stats.CandidateCurrent
	}
	if stats.CheckDualInfeasibility(curInf, s.Config.Tolerances) {
		return stats.DualInfeasible, stats.CandidateCurrent
	}
	return stats.NotTerminated, stats.CandidateCurrent
}

// convergenceInfo computes a ConvergenceInformation for (x, y) in
// working coordinates, unscaling to the original problem throughout.
func (s *Solver) convergenceInfo(candidate stats.CandidateType, xWork, yWork []float64) stats.ConvergenceInformation {
	q := s.OriginalQP
	x := s.Scale.UnscalePrimal(xWork)
	y := s.Scale.UnscaleDual(yWork)

	axWork := s.Sqp.MatVec(xWork)
	gradWork := s.gradientWork(xWork, yWork)

	primalRes := stats.ComputePrimalResiduals(q, s.Scale, axWork, s.Config.Tolerances.EpsOptimalAbsolute)
	dualRes := stats.ComputeDualResiduals(q, s.Scale, gradWork, xWork, s.Config.Tolerances, s.Config.Tolerances.EpsOptimalAbsolute)

	var linTerm, quadTerm float64
	for j, c := range q.Objective {
		linTerm += c * x[j]
		if q.QuadraticDiag != nil {
			quadTerm += 0.5 * q.QuadraticDiag[j] * x[j] * x[j]
		}
	}
	primalObj := q.ApplyObjective(linTerm + quadTerm)

	var dualLinear float64
	for i, yi := range y {
		l, u := q.ConstraintLowerBounds[i], q.ConstraintUpperBounds[i]
		switch {
		case yi > 0 && !math.IsInf(l, 0):
			dualLinear += l * yi
		case yi < 0 && !math.IsInf(u, 0):
			dualLinear += u * yi
		}
	}
	dualObjRaw := dualLinear + dualRes.ObjectiveCorrection - quadTerm
	correctedDualObjRaw := dualLinear + dualRes.CorrectedObjectiveCorrection - quadTerm
	dualObj := q.ApplyObjective(dualObjRaw)
	correctedDualObj := q.ApplyObjective(correctedDualObjRaw)

	return stats.ConvergenceInformation{
		Candidate:                       candidate,
		PrimalObjective:                 primalObj,
		DualObjective:                   dualObj,
		CorrectedDualObjective:          correctedDualObj,
		PrimalResidualLInf:              primalRes.LInf,
		PrimalResidualL2:                primalRes.L2,
		PrimalResidualComponentwiseLInf: primalRes.ComponentwiseLInf,
		DualResidualLInf:                dualRes.ResidualLInf,
		DualResidualL2:                  dualRes.ResidualL2,
		DualResidualComponentwiseLInf:   dualRes.ResidualComponentwiseLInf,
		PrimalVariableLInfNorm:          s.Sqp.PrimalSharder().LInfNorm(x),
		PrimalVariableL2Norm:            s.Sqp.PrimalSharder().L2Norm(x),
		DualVariableLInfNorm:            s.Sqp.DualSharder().LInfNorm(y),
		DualVariableL2Norm:              s.Sqp.DualSharder().L2Norm(y),
	}
}

// boundNorm returns the norm (of the requested flavor) of the combined
// variable+constraint bound vector, the denominator RelativeResidual
// divides by.
func (s *Solver) boundNorm(norm stats.OptimalityNorm) float64 {
	q := s.OriginalQP
	var lInf, sumSq, compLInf float64
	accumulate := func(l, u float64) {
		var m float64
		if !math.IsInf(l, 0) {
			m = math.Abs(l)
		}
		if !math.IsInf(u, 0) {
			if a := math.Abs(u); a > m {
				m = a
			}
		}
		if m > lInf {
			lInf = m
		}
		sumSq += m * m
		if m > compLInf {
			compLInf = m
		}
	}
	for i := range q.ConstraintLowerBounds {
		accumulate(q.ConstraintLowerBounds[i], q.ConstraintUpperBounds[i])
	}
	for j := range q.VariableLowerBounds {
		accumulate(q.VariableLowerBounds[j], q.VariableUpperBounds[j])
	}
	switch norm {
	case stats.L2:
		return math.Sqrt(sumSq)
	case stats.ComponentwiseLInf:
		return compLInf
	default:
		return lInf
	}
}

// infeasibilityInfo builds a ray candidate from (x, y) normalized to
// unit norm: x/||x|| is the candidate certificate of dual infeasibility,
// y/||y|| of primal infeasibility. Ray feasibility is measured against
// the recession cone of the bounds: a finite bound demands the matching
// sign (or zero) from the ray, an infinite bound demands nothing.
func (s *Solver) infeasibilityInfo(candidate stats.CandidateType, xWork, yWork []float64) stats.InfeasibilityInformation {
	q := s.OriginalQP
	x := s.Scale.UnscalePrimal(xWork)
	y := s.Scale.UnscaleDual(yWork)

	xNorm := s.Sqp.PrimalSharder().L2Norm(x)
	yNorm := s.Sqp.DualSharder().L2Norm(y)

	info := stats.InfeasibilityInformation{Candidate: candidate}

	if xNorm > 0 {
		ray := make([]float64, len(x))
		for i, v := range x {
			ray[i] = v / xNorm
		}
		var linObj, quadNorm, maxInfeas float64
		for j, c := range q.Objective {
			linObj += c * ray[j]
			if q.QuadraticDiag != nil {
				quadNorm += q.QuadraticDiag[j] * ray[j] * ray[j]
			}
			lF := !math.IsInf(q.VariableLowerBounds[j], 0)
			uF := !math.IsInf(q.VariableUpperBounds[j], 0)
			var viol float64
			switch {
			case lF && uF:
				viol = math.Abs(ray[j])
			case lF:
				viol = math.Max(0, -ray[j])
			case uF:
				viol = math.Max(0, ray[j])
			}
			if viol > maxInfeas {
				maxInfeas = viol
			}
		}
		ax := s.Sqp.MatVec(s.Scale.ScalePrimal(ray))
		for i, v := range ax {
			a := v / s.Scale.Row[i]
			lF := !math.IsInf(q.ConstraintLowerBounds[i], 0)
			uF := !math.IsInf(q.ConstraintUpperBounds[i], 0)
			var viol float64
			switch {
			case lF && uF:
				viol = math.Abs(a)
			case lF:
				viol = math.Max(0, -a)
			case uF:
				viol = math.Max(0, a)
			}
			if viol > maxInfeas {
				maxInfeas = viol
			}
		}
		info.PrimalRayLinearObjective = linObj
		info.PrimalRayQuadraticNorm = quadNorm
		info.MaxPrimalRayInfeasibility = maxInfeas
	} else {
		info.PrimalRayLinearObjective = math.Inf(1)
	}

	if yNorm > 0 {
		ray := make([]float64, len(y))
		for i, v := range y {
			ray[i] = v / yNorm
		}
		var obj, maxInfeas float64
		for i, yi := range ray {
			l, u := q.ConstraintLowerBounds[i], q.ConstraintUpperBounds[i]
			switch {
			case yi > 0 && !math.IsInf(l, 0):
				obj += l * yi
			case yi < 0 && !math.IsInf(u, 0):
				obj += u * yi
			case yi > 0:
				maxInfeas = math.Max(maxInfeas, yi)
			case yi < 0:
				maxInfeas = math.Max(maxInfeas, -yi)
			}
		}
		// The ray's reduced costs -Aᵀr must be absorbable by a finite
		// variable bound in the gradient's direction; anything left over
		// is ray infeasibility, and what is absorbed contributes
		// bound-weighted terms to the ray objective.
		atRayWork := s.Sqp.MatVecTranspose(s.Scale.ScaleDual(ray))
		for j := range atRayWork {
			g := -atRayWork[j] / s.Scale.Col[j]
			switch {
			case g > 0:
				if l := q.VariableLowerBounds[j]; !math.IsInf(l, 0) {
					obj += l * g
				} else {
					maxInfeas = math.Max(maxInfeas, g)
				}
			case g < 0:
				if u := q.VariableUpperBounds[j]; !math.IsInf(u, 0) {
					obj += u * g
				} else {
					maxInfeas = math.Max(maxInfeas, -g)
				}
			}
		}
		info.DualRayObjective = obj
		info.MaxDualRayInfeasibility = maxInfeas
	} else {
		info.DualRayObjective = math.Inf(-1)
	}

	return info
}
