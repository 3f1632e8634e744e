package pdhg

import (
	"math"

	"github.com/gonum-community/pdlp/sharder"
)

// PolishResult is the merged outcome of one feasibility-polishing round:
// a primal iterate drawn from the primal-feasibility subproblem and a
// dual iterate drawn from the dual-feasibility subproblem.
type PolishResult struct {
	X, Y []float64
}

// ShouldPolish reports whether a feasibility-polishing round is due:
// first at iteration 100, doubling thereafter.
func (s *Solver) ShouldPolish(nextTrigger *int) bool {
	if !s.Config.UseFeasibilityPolishing {
		return false
	}
	if *nextTrigger == 0 {
		*nextTrigger = 100
	}
	if s.Iteration < *nextTrigger {
		return false
	}
	*nextTrigger *= 2
	return true
}

// RunFeasibilityPolishing runs the two auxiliary zero-objective PDHG
// subproblems and returns their merge. Each subproblem
// is budgeted to at most iterSoFar/8 steps, a conservative cap so
// polishing never dominates the overall work limit. The primal
// subproblem starts from the running-average primal and a zero dual,
// keeping both the variable and constraint bounds of the scaled working
// problem active so its x is driven toward primal feasibility; the dual
// subproblem starts from the running-average dual and a zero primal,
// with constraint and variable bounds relaxed to their homogeneous
// (zero-at-finite-bound) versions so y converges to dual feasibility
// undisturbed by the primal's bound projections.
func (s *Solver) RunFeasibilityPolishing() PolishResult {
	budget := s.Iteration / 8
	if budget < 1 {
		budget = 1
	}

	q := s.Sqp.QP()
	n := q.NumVariables()
	m := q.NumConstraints()
	zeroObj := make([]float64, n)
	zeroX := make([]float64, n)
	zeroY := make([]float64, m)

	primalX, _ := s.feasibilitySubSolve(zeroObj, nil, nil, nil, nil, s.PrimalAvg.Avg(), zeroY, budget)

	dualSh, primalSh := s.Sqp.DualSharder(), s.Sqp.PrimalSharder()
	homConLB := homogeneousBounds(dualSh, q.ConstraintLowerBounds)
	homConUB := homogeneousBounds(dualSh, q.ConstraintUpperBounds)
	homVarLB := homogeneousBounds(primalSh, q.VariableLowerBounds)
	homVarUB := homogeneousBounds(primalSh, q.VariableUpperBounds)
	_, dualY := s.feasibilitySubSolve(zeroObj, homVarLB, homVarUB, homConLB, homConUB, zeroX, s.DualAvg.Avg(), budget)

	return PolishResult{X: primalX, Y: dualY}
}

// homogeneousBounds maps every finite bound to 0, leaving infinities
// alone. Evaluated shard-parallel over sh.
func homogeneousBounds(sh *sharder.Sharder, b []float64) []float64 {
	out := make([]float64, len(b))
	sh.Assign(out, b, func(v float64) float64 {
		if math.IsInf(v, 0) {
			return v
		}
		return 0
	})
	return out
}

// feasibilitySubSolve swaps in a zero objective (and optionally relaxed
// variable/constraint bounds) via the ShardedQuadraticProgram scope
// guard, runs a fresh Solver seeded at (x0, y0) for up to budget steps,
// and restores the original objective/bounds before returning. A
// numerical error from the inner solve simply stops it early; the
// iterate reached so far is still returned, since any improvement over
// the starting point is useful to the caller's merge.
func (s *Solver) feasibilitySubSolve(zeroObj, varLB, varUB, conLB, conUB []float64, x0, y0 []float64, budget int) (x, y []float64) {
	restore := s.Sqp.SwapObjectiveAndBounds(zeroObj, nil, varLB, varUB, conLB, conUB)
	defer restore()

	subConfig := s.Config
	subConfig.RestartStrategy = RestartNone
	subConfig.UseFeasibilityPolishing = false

	sub := NewSolver(s.Sqp, s.Scale, subConfig, x0, y0)
	sub.PrimalWeight = s.PrimalWeight
	for i := 0; i < budget; i++ {
		if errMsg := sub.Step(); errMsg != "" {
			s.Config.logf(LogWarning, "feasibility polishing sub-solve stopped early: %s", errMsg)
			break
		}
	}
	return sub.X, sub.Y
}
