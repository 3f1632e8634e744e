// Package pdhg implements the primal-dual hybrid gradient inner step,
// its three step-size rules, the restart policy, and feasibility
// polishing.
package pdhg

import (
	"fmt"
	"sync/atomic"

	"github.com/gonum-community/pdlp/stats"
)

// StepRule selects which of the three step-size policies drives the iteration.
type StepRule int

const (
	ConstantStep StepRule = iota
	AdaptiveStep
	MalitskyPockStep
)

// RestartStrategy selects the restart policy.
type RestartStrategy int

const (
	RestartNone RestartStrategy = iota
	RestartEveryMajor
	RestartAdaptiveHeuristic
	RestartAdaptiveDistance
)

// RestartChoice records what a major iteration decided.
type RestartChoice int

const (
	NoRestart RestartChoice = iota
	RestartToCurrent
	RestartToAverage
)

// Config bundles every solver-behavior parameter pdhg.Solver needs, a
// subset of the root package's Params mapped in by the caller (pdhg
// does not import the root package, to avoid a cycle: the root package
// imports pdhg to build and drive a Solver).
type Config struct {
	StepRule        StepRule
	RestartStrategy RestartStrategy

	InitialStepSizeScaling      float64
	InitialPrimalWeight         *float64 // nil = derive from ||c||/||b|| at start
	PrimalWeightUpdateSmoothing float64

	// Adaptive step rule exponents, both positive; smaller values bite
	// harder as the attempted-step count k grows slower than (k+1)^alpha.
	AdaptiveReductionExponent float64
	AdaptiveGrowthExponent    float64

	// Malitsky-Pock sub-parameters.
	MalitskyPockStepSizeGrowth        float64 // s
	MalitskyPockLinesearchContraction float64 // beta
	MalitskyPockDownscalingFactor     float64 // c (acceptance threshold)

	MajorIterationFrequency   int
	TerminationCheckFrequency int

	SufficientReductionForRestart float64
	NecessaryReductionForRestart  float64

	UseDiagonalQPTrustRegionSolver       bool
	DiagonalQPTrustRegionSolverTolerance float64

	Tolerances stats.Tolerances

	IterationLimit     int
	KKTMatrixPassLimit float64
	TimeLimitSeconds   float64

	UseFeasibilityPolishing                     bool
	ApplyFeasibilityPolishingAfterLimitsReached bool
	ApplyFeasibilityPolishingIfInterrupted      bool

	RecordIterationStats bool

	// IterationStatsCallback, when non-nil, receives a full
	// IterationStats snapshot at every termination check.
	IterationStatsCallback func(stats.IterationStats)

	VerbosityLevel     int
	LogIntervalSeconds float64

	MessageCallback func(level int, msg string)

	// Interrupt is polled only at termination checks, so cancellation
	// latency is bounded by one termination-check interval.
	// Nil means no external cancellation is possible.
	Interrupt *atomic.Bool
}

// LogWarning and LogInfo are the levels Config.MessageCallback may be
// invoked with.
const (
	LogInfo = iota
	LogWarning
)

func (c *Config) logf(level int, format string, args ...interface{}) {
	if c.MessageCallback == nil {
		return
	}
	c.MessageCallback(level, fmt.Sprintf(format, args...))
}
