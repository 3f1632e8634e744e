// Package pdlp implements a sharded, parallel primal-dual hybrid
// gradient solver for linear and separable-diagonal-quadratic programs,
// with adaptive restarts and optional feasibility polishing.
package pdlp

import (
	"sync/atomic"

	"github.com/gonum-community/pdlp/pdhg"
	"github.com/gonum-community/pdlp/stats"
)

// SchedulerType selects the parallel-for backend Solve builds.
type SchedulerType int

const (
	// SchedulerSequential runs every shard inline; deterministic and
	// useful for tests.
	SchedulerSequential SchedulerType = iota
	// SchedulerGoroutinePool dispatches shards across a fixed worker
	// pool.
	SchedulerGoroutinePool
)

// Params bundles every user-facing solver knob, mapped down into
// qp/pdhg/presolve configuration by Solve. Zero-value Params is invalid;
// start from DefaultParams().
type Params struct {
	EpsOptimalAbsolute  float64
	EpsOptimalRelative  float64
	EpsPrimalInfeasible float64
	EpsDualInfeasible   float64
	OptimalityNorm      stats.OptimalityNorm

	HandleSomePrimalGradientsOnFiniteBoundsAsResiduals bool

	IterationLimit     int
	KKTMatrixPassLimit float64
	TimeLimitSeconds   float64

	NumThreads    int
	NumShards     int
	SchedulerType SchedulerType

	UseRuizRescaling bool
	RuizIterations   int
	UseL2Rescaling   bool

	InfiniteConstraintBoundThreshold float64

	StepRule pdhg.StepRule

	InitialStepSizeScaling float64

	InitialPrimalWeight         *float64
	PrimalWeightUpdateSmoothing float64

	AdaptiveReductionExponent float64
	AdaptiveGrowthExponent    float64

	MalitskyPockStepSizeGrowth        float64
	MalitskyPockLinesearchContraction float64
	MalitskyPockDownscalingFactor     float64

	RestartStrategy           pdhg.RestartStrategy
	MajorIterationFrequency   int
	TerminationCheckFrequency int

	SufficientReductionForRestart float64
	NecessaryReductionForRestart  float64

	UseDiagonalQPTrustRegionSolver       bool
	DiagonalQPTrustRegionSolverTolerance float64

	UseFeasibilityPolishing                     bool
	ApplyFeasibilityPolishingAfterLimitsReached bool
	ApplyFeasibilityPolishingIfInterrupted      bool

	// PresolveOptions is opaque to this package; a caller supplying a
	// custom presolve.Presolver interprets it itself.
	PresolveOptions interface{}

	// InitialPrimalSolution and InitialDualSolution, when non-nil, seed
	// the iteration instead of the all-zero start. Both are given in
	// original-problem coordinates and are validated for length, NaNs,
	// and magnitude before the solve begins.
	InitialPrimalSolution []float64
	InitialDualSolution   []float64

	RecordIterationStats bool
	VerbosityLevel       int
	LogIntervalSeconds   float64

	MessageCallback func(level int, msg string)

	// IterationStatsCallback, when non-nil, receives a full
	// IterationStats snapshot at every termination check.
	IterationStatsCallback func(stats.IterationStats)

	// Interrupt, when non-nil, lets external code request cancellation;
	// it is polled only at termination checks.
	Interrupt *atomic.Bool
}

// DefaultParams returns the conservative, broadly-applicable parameter
// set: adaptive step rule, adaptive-heuristic restarts,
// both rescaling passes on, componentwise-L-infinity optimality norm,
// no feasibility polishing, sequential scheduling on one thread with a
// single shard.
func DefaultParams() Params {
	return Params{
		EpsOptimalAbsolute:  1e-6,
		EpsOptimalRelative:  1e-6,
		EpsPrimalInfeasible: 1e-8,
		EpsDualInfeasible:   1e-8,
		OptimalityNorm:      stats.ComponentwiseLInf,

		IterationLimit:     0, // unlimited
		KKTMatrixPassLimit: 0,
		TimeLimitSeconds:   0,

		NumThreads:    1,
		NumShards:     1,
		SchedulerType: SchedulerSequential,

		UseRuizRescaling: true,
		RuizIterations:   10,
		UseL2Rescaling:   true,

		InfiniteConstraintBoundThreshold: 1e20,

		StepRule:               pdhg.AdaptiveStep,
		InitialStepSizeScaling: 1,

		PrimalWeightUpdateSmoothing: 0.5,

		AdaptiveReductionExponent: 0.3,
		AdaptiveGrowthExponent:    0.6,

		MalitskyPockStepSizeGrowth:        1,
		MalitskyPockLinesearchContraction: 0.5,
		MalitskyPockDownscalingFactor:     0.99,

		RestartStrategy:           pdhg.RestartAdaptiveHeuristic,
		MajorIterationFrequency:   40,
		TerminationCheckFrequency: 40,

		SufficientReductionForRestart: 0.2,
		NecessaryReductionForRestart:  0.8,

		UseDiagonalQPTrustRegionSolver:       false,
		DiagonalQPTrustRegionSolverTolerance: 1e-10,

		UseFeasibilityPolishing:                     false,
		ApplyFeasibilityPolishingAfterLimitsReached: false,
		ApplyFeasibilityPolishingIfInterrupted:      false,

		RecordIterationStats: false,
		VerbosityLevel:       0,
		LogIntervalSeconds:   0,
	}
}
