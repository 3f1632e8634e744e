// Package presolve defines the hook for a problem preprocessing stage
// between validation and rescaling: an
// implementation may shrink the problem (fixing variables, removing
// redundant rows) before the solve and expand the returned solution back
// to the original shape afterward. Only Identity, a no-op, is provided;
// future presolve passes plug in behind the same interface without
// touching the solver or the root package's call sites.
package presolve

import "github.com/gonum-community/pdlp/qp"

// ProblemStatus classifies the outcome a Presolver may short-circuit
// the solve with.
type ProblemStatus int

const (
	StatusInit ProblemStatus = iota
	StatusOptimal
	StatusPrimalInfeasible
	StatusDualInfeasible
	StatusAbnormal
	StatusImprecise
	StatusInvalid
)

// Solution is a primal/dual point in whatever coordinate space the
// Presolver that produced it operates in.
type Solution struct {
	Primal, Dual []float64
}

// Presolver transforms a QuadraticProgram before the solve and maps a
// solution of the transformed problem back to the original one
// afterward. A Presolver that detects the problem is already solved (or
// is trivially infeasible) during Preprocess may report a terminal
// status instead of returning a problem to solve.
type Presolver interface {
	// Preprocess returns a (possibly smaller) problem to hand to the
	// solver, or status != StatusInit if the presolve step alone
	// determined the outcome, in which case solved is the final answer
	// and reduced is unused.
	Preprocess(problem *qp.QuadraticProgram) (reduced *qp.QuadraticProgram, status ProblemStatus, solved Solution)

	// RecoverSolution maps a solution of the reduced problem back to the
	// original problem's variable and constraint space.
	RecoverSolution(reduced Solution) Solution
}

// Identity is the no-op Presolver: Preprocess returns the problem
// unchanged and RecoverSolution is the identity map.
type Identity struct{}

func (Identity) Preprocess(problem *qp.QuadraticProgram) (*qp.QuadraticProgram, ProblemStatus, Solution) {
	return problem, StatusInit, Solution{}
}

func (Identity) RecoverSolution(reduced Solution) Solution {
	return reduced
}
