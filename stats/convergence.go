package stats

// CandidateType tags which iterate a ConvergenceInformation or
// InfeasibilityInformation was computed from.
type CandidateType int

const (
	// CandidateCurrent is the solver's current (not averaged) iterate.
	CandidateCurrent CandidateType = iota
	// CandidateAverage is the running weighted average iterate.
	CandidateAverage
	// CandidateFeasibilityPolishing is the merged output of the primal-
	// and dual-feasibility polishing subproblems.
	CandidateFeasibilityPolishing
)

func (c CandidateType) String() string {
	switch c {
	case CandidateCurrent:
		return "current"
	case CandidateAverage:
		return "average"
	case CandidateFeasibilityPolishing:
		return "feasibility_polishing"
	default:
		return "unknown"
	}
}

// ConvergenceInformation holds the per-iterate quantities termination
// checks are evaluated against, on the original (unscaled) problem.
type ConvergenceInformation struct {
	Candidate CandidateType

	PrimalObjective        float64
	DualObjective          float64
	CorrectedDualObjective float64

	PrimalResidualLInf              float64
	PrimalResidualL2                float64
	PrimalResidualComponentwiseLInf float64

	DualResidualLInf              float64
	DualResidualL2                float64
	DualResidualComponentwiseLInf float64

	PrimalVariableLInfNorm float64
	PrimalVariableL2Norm   float64
	DualVariableLInfNorm   float64
	DualVariableL2Norm     float64
}

// InfeasibilityInformation holds the scaled residuals of a primal or
// dual infeasibility ray candidate.
type InfeasibilityInformation struct {
	Candidate CandidateType

	// Primal ray (candidate certificate of dual infeasibility).
	PrimalRayQuadraticNorm    float64
	PrimalRayLinearObjective  float64
	MaxPrimalRayInfeasibility float64

	// Dual ray (candidate certificate of primal infeasibility).
	DualRayObjective        float64
	MaxDualRayInfeasibility float64
}

// PointMetadata holds active-set bookkeeping and random projections used
// to cheaply compare iterates across restarts.
type PointMetadata struct {
	NumActivePrimalVariables       int
	NumActiveDualVariables         int
	NumActivePrimalVariableChanges int
	NumActiveDualVariableChanges   int

	RandomPrimalProjections []float64
	RandomDualProjections   []float64
}
