package pdlp

import (
	"time"

	"github.com/gonum-community/pdlp/stats"
)

// TerminationReason is the public-facing reason a Solve call stopped,
// extending stats.TerminationReason with abort paths that never reach
// the PDHG loop at all.
type TerminationReason int

const (
	Unspecified TerminationReason = iota
	Optimal
	PrimalInfeasible
	DualInfeasible
	PrimalOrDualInfeasible
	TimeLimit
	IterationLimit
	KKTPassLimit
	NumericalError
	Interrupted
	InvalidProblem
	InvalidParameter
	InvalidInitialSolution
	Other
)

func (r TerminationReason) String() string {
	switch r {
	case Optimal:
		return "optimal"
	case PrimalInfeasible:
		return "primal_infeasible"
	case DualInfeasible:
		return "dual_infeasible"
	case PrimalOrDualInfeasible:
		return "primal_or_dual_infeasible"
	case TimeLimit:
		return "time_limit"
	case IterationLimit:
		return "iteration_limit"
	case KKTPassLimit:
		return "kkt_pass_limit"
	case NumericalError:
		return "numerical_error"
	case Interrupted:
		return "interrupted"
	case InvalidProblem:
		return "invalid_problem"
	case InvalidParameter:
		return "invalid_parameter"
	case InvalidInitialSolution:
		return "invalid_initial_solution"
	case Other:
		return "other"
	default:
		return "unspecified"
	}
}

// PointType records which internal candidate a SolverResult's solution
// was drawn from.
type PointType int

const (
	PointUnspecified PointType = iota
	PointCurrent
	PointAverage
	PointIterateDifference
	PointPresolver
	PointFeasibilityPolishing
)

// SolverResult is what Solve returns: the solution (in original problem
// coordinates), what kind of point it is, and the solve log.
type SolverResult struct {
	PrimalSolution []float64
	DualSolution   []float64
	ReducedCosts   []float64

	Point PointType
	Log   SolveLog
}

// SolveLog records why the solve stopped and basic work counters.
type SolveLog struct {
	TerminationReason TerminationReason
	PrimalObjective   float64
	DualObjective     float64
	FinalIteration    int
	SolveTime         time.Duration

	CumulativeKKTPasses     float64
	CumulativeRejectedSteps int

	// IterationStats holds one snapshot per termination check, recorded
	// only when Params.RecordIterationStats is set.
	IterationStats []stats.IterationStats

	Warnings []string
}
