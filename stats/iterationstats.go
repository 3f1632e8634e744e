package stats

import "time"

// IterationStats bundles the work counters and candidate information
// recorded at one termination check.
type IterationStats struct {
	IterationNumber         int
	CumulativeKKTPasses     float64
	CumulativeTime          time.Duration
	CumulativeRejectedSteps int

	StepSize     float64
	PrimalWeight float64

	// RestartUsed has room for a restart decision as a pdhg.RestartChoice
	// value, kept as an int to avoid a stats -> pdhg import cycle.
	// pdhg.Solver does not fill it in: it stays 0 (pdhg.NoRestart) in
	// every snapshot, whatever restart was taken.
	RestartUsed int

	ConvergenceInformation   []ConvergenceInformation
	InfeasibilityInformation []InfeasibilityInformation
	PointMetadata            []PointMetadata
}

// BestConvergenceInformation returns the ConvergenceInformation entry
// tagged want, or nil if absent.
func (s *IterationStats) BestConvergenceInformation(want CandidateType) *ConvergenceInformation {
	for i := range s.ConvergenceInformation {
		if s.ConvergenceInformation[i].Candidate == want {
			return &s.ConvergenceInformation[i]
		}
	}
	return nil
}

// BestInfeasibilityInformation returns the InfeasibilityInformation
// entry tagged want, or nil if absent.
func (s *IterationStats) BestInfeasibilityInformation(want CandidateType) *InfeasibilityInformation {
	for i := range s.InfeasibilityInformation {
		if s.InfeasibilityInformation[i].Candidate == want {
			return &s.InfeasibilityInformation[i]
		}
	}
	return nil
}
