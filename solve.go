package pdlp

import (
	"fmt"
	"math"
	"time"

	"github.com/gonum-community/pdlp/pdhg"
	"github.com/gonum-community/pdlp/presolve"
	"github.com/gonum-community/pdlp/qp"
	"github.com/gonum-community/pdlp/sharder"
	"github.com/gonum-community/pdlp/stats"
)

// Solve runs the full pipeline: validation, an optional
// presolve pass, large-bound clamping, Ruiz/L2 rescaling, sharding, the
// PDHG solve, and mapping the result back to the caller's coordinates.
// presolver may be nil, which selects presolve.Identity.
func Solve(problem *qp.QuadraticProgram, params Params, presolver presolve.Presolver) SolverResult {
	start := time.Now()

	if warnings, fatal := qp.Validate(problem); fatal != nil {
		return invalidResult(InvalidProblem, fatal.Error(), start)
	} else if len(warnings) > 0 && params.MessageCallback != nil {
		for _, w := range warnings {
			params.MessageCallback(pdhg.LogWarning, w.Error())
		}
	}

	if msg := validateParams(problem, params); msg != "" {
		return invalidResult(InvalidParameter, msg, start)
	}

	if presolver == nil {
		presolver = presolve.Identity{}
	}

	reduced, status, solved := presolver.Preprocess(problem)
	if status != presolve.StatusInit {
		return presolveTerminalResult(status, solved, presolver, start)
	}

	// original is a snapshot of the problem before clamping or rescaling:
	// the residual and objective computations in pdhg.Run need it, and
	// it must never alias memory the solve mutates in place (clamping
	// and rescaling both mutate their QuadraticProgram argument
	// in-place, and reduced may be the caller's own problem pointer when
	// presolver is Identity).
	original := cloneQP(reduced)
	working := cloneQP(reduced)

	qp.ClampLargeBounds(working, params.InfiniteConstraintBoundThreshold)

	sched := buildScheduler(params)
	numShards := params.NumShards
	if numShards <= 0 {
		numShards = 1
	}

	sqp := qp.NewShardedQuadraticProgram(working, numShards, sched)
	scale := qp.NewIdentityScaling(working.NumVariables(), working.NumConstraints())

	if params.UseRuizRescaling {
		iters := params.RuizIterations
		if iters <= 0 {
			iters = qp.RuizIterations
		}
		qp.ApplyRuizRescaling(sqp, scale, iters)
	}
	if params.UseL2Rescaling {
		qp.ApplyL2Rescaling(sqp, scale)
	}

	x0 := make([]float64, working.NumVariables())
	y0 := make([]float64, working.NumConstraints())
	if params.InitialPrimalSolution != nil || params.InitialDualSolution != nil {
		if msg := validateInitialSolution(working, params); msg != "" {
			return invalidResult(InvalidInitialSolution, msg, start)
		}
		if params.InitialPrimalSolution != nil {
			x0 = scale.ScalePrimal(params.InitialPrimalSolution)
		}
		if params.InitialDualSolution != nil {
			y0 = scale.ScaleDual(params.InitialDualSolution)
		}
	}

	config := buildConfig(params)
	solver := pdhg.NewSolverWithOriginal(sqp, scale, config, x0, y0, original)
	result := solver.Run()

	return toSolverResult(result, original, scale, presolver, start)
}

// validateParams checks the invalid-parameter conditions
// that depend on both params and the problem being solved (feasibility
// polishing is only valid for LPs; epsilons must be nonnegative). It
// returns a non-empty message when params are rejected.
func validateParams(problem *qp.QuadraticProgram, params Params) string {
	if params.UseFeasibilityPolishing && !problem.IsLinearProgram() {
		return "pdlp: feasibility polishing is only supported for linear programs (quadratic_diag is set)"
	}
	if params.EpsOptimalAbsolute < 0 || params.EpsOptimalRelative < 0 ||
		params.EpsPrimalInfeasible < 0 || params.EpsDualInfeasible < 0 {
		return "pdlp: epsilon parameters must be nonnegative"
	}
	return ""
}

// validateInitialSolution checks a caller-supplied warm start for shape,
// NaNs, and magnitude. It returns a non-empty message when the start is
// unusable.
func validateInitialSolution(problem *qp.QuadraticProgram, params Params) string {
	check := func(name string, v []float64, want int) string {
		if v == nil {
			return ""
		}
		if len(v) != want {
			return fmt.Sprintf("pdlp: initial %s solution has length %d, want %d", name, len(v), want)
		}
		for _, x := range v {
			if math.IsNaN(x) {
				return fmt.Sprintf("pdlp: initial %s solution contains NaN", name)
			}
			if math.Abs(x) > qp.MagnitudeFatalThreshold {
				return fmt.Sprintf("pdlp: initial %s solution magnitude exceeds %g", name, qp.MagnitudeFatalThreshold)
			}
		}
		return ""
	}
	if msg := check("primal", params.InitialPrimalSolution, problem.NumVariables()); msg != "" {
		return msg
	}
	return check("dual", params.InitialDualSolution, problem.NumConstraints())
}

func buildScheduler(params Params) sharder.Scheduler {
	switch params.SchedulerType {
	case SchedulerGoroutinePool:
		return sharder.NewGoroutineScheduler(params.NumThreads)
	default:
		return sharder.Sequential()
	}
}

func buildConfig(p Params) pdhg.Config {
	return pdhg.Config{
		StepRule:                    p.StepRule,
		RestartStrategy:             p.RestartStrategy,
		InitialStepSizeScaling:      p.InitialStepSizeScaling,
		InitialPrimalWeight:         p.InitialPrimalWeight,
		PrimalWeightUpdateSmoothing: p.PrimalWeightUpdateSmoothing,
		AdaptiveReductionExponent:   p.AdaptiveReductionExponent,
		AdaptiveGrowthExponent:      p.AdaptiveGrowthExponent,

		MalitskyPockStepSizeGrowth:        p.MalitskyPockStepSizeGrowth,
		MalitskyPockLinesearchContraction: p.MalitskyPockLinesearchContraction,
		MalitskyPockDownscalingFactor:     p.MalitskyPockDownscalingFactor,

		MajorIterationFrequency:   p.MajorIterationFrequency,
		TerminationCheckFrequency: p.TerminationCheckFrequency,

		SufficientReductionForRestart: p.SufficientReductionForRestart,
		NecessaryReductionForRestart:  p.NecessaryReductionForRestart,

		UseDiagonalQPTrustRegionSolver:       p.UseDiagonalQPTrustRegionSolver,
		DiagonalQPTrustRegionSolverTolerance: p.DiagonalQPTrustRegionSolverTolerance,

		Tolerances: stats.Tolerances{
			EpsOptimalAbsolute:  p.EpsOptimalAbsolute,
			EpsOptimalRelative:  p.EpsOptimalRelative,
			EpsPrimalInfeasible: p.EpsPrimalInfeasible,
			EpsDualInfeasible:   p.EpsDualInfeasible,
			Norm:                p.OptimalityNorm,
			HandleSomePrimalGradientsOnFiniteBoundsAsResiduals: p.HandleSomePrimalGradientsOnFiniteBoundsAsResiduals,
		},

		IterationLimit:     p.IterationLimit,
		KKTMatrixPassLimit: p.KKTMatrixPassLimit,
		TimeLimitSeconds:   p.TimeLimitSeconds,

		UseFeasibilityPolishing:                     p.UseFeasibilityPolishing,
		ApplyFeasibilityPolishingAfterLimitsReached: p.ApplyFeasibilityPolishingAfterLimitsReached,
		ApplyFeasibilityPolishingIfInterrupted:      p.ApplyFeasibilityPolishingIfInterrupted,

		RecordIterationStats:   p.RecordIterationStats,
		IterationStatsCallback: p.IterationStatsCallback,
		VerbosityLevel:         p.VerbosityLevel,
		LogIntervalSeconds:     p.LogIntervalSeconds,
		MessageCallback:        p.MessageCallback,
		Interrupt:              p.Interrupt,
	}
}

// cloneQP deep-copies a QuadraticProgram so later in-place rescaling of
// the working copy never disturbs the caller's original-coordinate view.
func cloneQP(q *qp.QuadraticProgram) *qp.QuadraticProgram {
	clone := *q
	clone.Objective = append([]float64(nil), q.Objective...)
	if q.QuadraticDiag != nil {
		clone.QuadraticDiag = append([]float64(nil), q.QuadraticDiag...)
	}
	clone.A = q.A.Clone()
	clone.ConstraintLowerBounds = append([]float64(nil), q.ConstraintLowerBounds...)
	clone.ConstraintUpperBounds = append([]float64(nil), q.ConstraintUpperBounds...)
	clone.VariableLowerBounds = append([]float64(nil), q.VariableLowerBounds...)
	clone.VariableUpperBounds = append([]float64(nil), q.VariableUpperBounds...)
	return &clone
}

func invalidResult(reason TerminationReason, msg string, start time.Time) SolverResult {
	return SolverResult{
		Point: PointUnspecified,
		Log: SolveLog{
			TerminationReason: reason,
			SolveTime:         time.Since(start),
			Warnings:          []string{msg},
		},
	}
}

func presolveTerminalResult(status presolve.ProblemStatus, solved presolve.Solution, presolver presolve.Presolver, start time.Time) SolverResult {
	recovered := presolver.RecoverSolution(solved)
	reason := Other
	switch status {
	case presolve.StatusOptimal:
		reason = Optimal
	case presolve.StatusPrimalInfeasible:
		reason = PrimalInfeasible
	case presolve.StatusDualInfeasible:
		reason = DualInfeasible
	case presolve.StatusInvalid:
		reason = InvalidProblem
	case presolve.StatusAbnormal, presolve.StatusImprecise:
		reason = Other
	}
	return SolverResult{
		PrimalSolution: recovered.Primal,
		DualSolution:   recovered.Dual,
		Point:          PointPresolver,
		Log: SolveLog{
			TerminationReason: reason,
			SolveTime:         time.Since(start),
		},
	}
}

// toSolverResult maps a pdhg.RunResult (working coordinates) back to the
// original problem's coordinates via scale and the presolver's recovery
// map. An Optimal result is downgraded to NumericalError whenever the
// presolver's recovery map is not known to be exact (see
// presolverPreservesOptimality); the recovered point itself is not
// re-checked against the optimality tolerances.
func toSolverResult(r pdhg.RunResult, original *qp.QuadraticProgram, scale *qp.ScalingVectors, presolver presolve.Presolver, start time.Time) SolverResult {
	x := scale.UnscalePrimal(r.X)
	y := scale.UnscaleDual(r.Y)

	recovered := presolver.RecoverSolution(presolve.Solution{Primal: x, Dual: y})

	var linTerm, quadTerm float64
	for j, c := range original.Objective {
		linTerm += c * recovered.Primal[j]
		if original.QuadraticDiag != nil {
			quadTerm += 0.5 * original.QuadraticDiag[j] * recovered.Primal[j] * recovered.Primal[j]
		}
	}
	primalObj := original.ApplyObjective(linTerm + quadTerm)

	reason := mapTerminationReason(r.Reason)
	if reason == Optimal && !presolverPreservesOptimality(presolver) {
		// A presolver whose recovery map is not exact (e.g. it fixed
		// variables that are only approximately at their bound) could
		// hand back a point that no longer satisfies the original
		// problem's optimality tolerances, which downgrades the result
		// to NumericalError. Identity always
		// preserves optimality, so this never fires here.
		reason = NumericalError
	}

	return SolverResult{
		PrimalSolution: recovered.Primal,
		DualSolution:   recovered.Dual,
		ReducedCosts:   r.ReducedCosts,
		Point:          mapPointType(r.Point),
		Log: SolveLog{
			TerminationReason:       reason,
			PrimalObjective:         primalObj,
			DualObjective:           r.DualObjective,
			FinalIteration:          r.Stats.IterationNumber,
			SolveTime:               time.Since(start),
			CumulativeKKTPasses:     r.Stats.CumulativeKKTPasses,
			CumulativeRejectedSteps: r.Stats.CumulativeRejectedSteps,
			IterationStats:          r.History,
		},
	}
}

// presolverPreservesOptimality reports whether presolver's recovery map
// is known to be exact. Identity always is; any other implementation
// must opt in explicitly by implementing this interface.
func presolverPreservesOptimality(presolver presolve.Presolver) bool {
	if _, ok := presolver.(presolve.Identity); ok {
		return true
	}
	type exactRecovery interface{ ExactRecovery() bool }
	if e, ok := presolver.(exactRecovery); ok {
		return e.ExactRecovery()
	}
	return false
}

func mapTerminationReason(r stats.TerminationReason) TerminationReason {
	switch r {
	case stats.Optimal:
		return Optimal
	case stats.PrimalInfeasible:
		return PrimalInfeasible
	case stats.DualInfeasible:
		return DualInfeasible
	case stats.PrimalOrDualInfeasible:
		return PrimalOrDualInfeasible
	case stats.TimeLimit:
		return TimeLimit
	case stats.IterationLimit:
		return IterationLimit
	case stats.KKTPassLimit:
		return KKTPassLimit
	case stats.NumericalError:
		return NumericalError
	case stats.Interrupted:
		return Interrupted
	default:
		return Unspecified
	}
}

func mapPointType(c stats.CandidateType) PointType {
	switch c {
	case stats.CandidateCurrent:
		return PointCurrent
	case stats.CandidateAverage:
		return PointAverage
	case stats.CandidateFeasibilityPolishing:
		return PointFeasibilityPolishing
	default:
		return PointUnspecified
	}
}
