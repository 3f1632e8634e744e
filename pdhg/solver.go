package pdhg

import (
	"math"
	"time"

	"golang.org/x/exp/rand"

	"github.com/gonum-community/pdlp/internal/prng"
	"github.com/gonum-community/pdlp/qp"
	"github.com/gonum-community/pdlp/sharder"
	"github.com/gonum-community/pdlp/stats"
)

// numRandomProjectionDirs is the number of fixed random directions used
// to summarize an iterate cheaply across restarts in
// PointMetadata.RandomPrimalProjections/RandomDualProjections.
const numRandomProjectionDirs = 4

// Solver runs the PDHG iteration on a working (scaled) QuadraticProgram,
// driving restarts and optional feasibility polishing. A Solver holds all mutable iteration state exclusively; it reads the
// shared ShardedQuadraticProgram but never mutates it outside of
// feasibility polishing's scoped objective/bound swap.
type Solver struct {
	Sqp    *qp.ShardedQuadraticProgram
	Scale  *qp.ScalingVectors
	Config Config

	// OriginalQP is a pristine, never-rescaled copy of the problem, used
	// only to compute residuals and objective values in original
	// coordinates; Sqp.QP() is mutated in place by rescaling and no
	// longer reflects it.
	OriginalQP *qp.QuadraticProgram

	X, Y []float64 // current primal/dual iterate, in working coordinates
	AtY  []float64 // cached Aᵀy

	StepSize     float64
	PrimalWeight float64

	restartX, restartY []float64 // x0, y0 as of the last restart

	PrimalAvg, DualAvg *stats.ShardedWeightedAverage

	Iteration               int
	CumulativeKKTPasses     float64
	CumulativeRejectedSteps int
	StartTime               time.Time

	ratioLastTwoStepSizes float64 // Malitsky-Pock only
	adaptiveK             int     // adaptive-rule trial steps attempted before the current one

	lastNormalizedGap     float64 // previous restart check's value: best potential (heuristic) or distance (adaptive distance)
	haveLastNormalizedGap bool

	statsHistory []stats.IterationStats // filled only when Config.RecordIterationStats

	// restartActivePrimal/restartActiveDual record, per coordinate,
	// whether the variable/constraint was active (at a finite bound) as
	// of the last restart baseline, so PointMetadata can report how many
	// flipped since then. primalProjDirs/dualProjDirs are fixed random
	// directions used to project the current iterate for the same
	// PointMetadata summary.
	restartActivePrimal []bool
	restartActiveDual   []bool
	primalProjDirs      [][]float64
	dualProjDirs        [][]float64

	rng *rand.Rand

	// TerminationReason is set once the loop exits; NotTerminated
	// until then.
	TerminationReason stats.TerminationReason
}

// NewSolver constructs a Solver over sqp with the given scaling and
// config, starting from x0, y0 (already in working coordinates).
// originalQP may be nil; NewSolverWithOriginal should be used instead
// when residual/objective computation in original coordinates is
// required (i.e. whenever the caller intends to run the full loop
// rather than just exercise the step rules).
func NewSolver(sqp *qp.ShardedQuadraticProgram, scale *qp.ScalingVectors, config Config, x0, y0 []float64) *Solver {
	s := &Solver{
		Sqp:      sqp,
		Scale:    scale,
		Config:   config,
		X:        append([]float64(nil), x0...),
		Y:        append([]float64(nil), y0...),
		restartX: append([]float64(nil), x0...),
		restartY: append([]float64(nil), y0...),
		rng:      rand.New(prng.NewMT19937Source()),
	}
	s.AtY = sqp.MatVecTranspose(s.Y)
	s.PrimalAvg = stats.NewShardedWeightedAverage(sqp.PrimalSharder())
	s.DualAvg = stats.NewShardedWeightedAverage(sqp.DualSharder())

	if config.InitialPrimalWeight != nil {
		s.PrimalWeight = *config.InitialPrimalWeight
	} else {
		s.PrimalWeight = initialPrimalWeight(sqp.QP())
	}

	s.StepSize = initialStepSize(sqp, config, s.rng)

	s.restartActivePrimal = activeSet(s.X, sqp.QP().VariableLowerBounds, sqp.QP().VariableUpperBounds)
	s.restartActiveDual = make([]bool, len(s.Y))
	for i, v := range s.Y {
		s.restartActiveDual[i] = v != 0
	}
	s.primalProjDirs = randomProjectionDirs(len(s.X), s.rng, numRandomProjectionDirs)
	s.dualProjDirs = randomProjectionDirs(len(s.Y), s.rng, numRandomProjectionDirs)
	return s
}

// randomProjectionDirs generates count fixed random unit-ish direction
// vectors of length n from rng, used to cheaply summarize an iterate for
// PointMetadata's RandomPrimalProjections/RandomDualProjections.
func randomProjectionDirs(n int, rng *rand.Rand, count int) [][]float64 {
	dirs := make([][]float64, count)
	for k := range dirs {
		d := make([]float64, n)
		for i := range d {
			d[i] = rng.NormFloat64()
		}
		dirs[k] = d
	}
	return dirs
}

// NewSolverWithOriginal is NewSolver plus the pristine, never-rescaled
// problem that Run needs for residual and objective computation.
func NewSolverWithOriginal(sqp *qp.ShardedQuadraticProgram, scale *qp.ScalingVectors, config Config, x0, y0 []float64, originalQP *qp.QuadraticProgram) *Solver {
	s := NewSolver(sqp, scale, config, x0, y0)
	s.OriginalQP = originalQP
	return s
}

// initialPrimalWeight derives a starting primal weight from the
// objective and constraint-bound magnitudes when none is supplied,
// following the common PDLP heuristic ω0 = ||c|| / ||b_effective||
// (falling back to 1 when either is degenerate).
func initialPrimalWeight(q *qp.QuadraticProgram) float64 {
	var cNorm, bNorm float64
	for _, c := range q.Objective {
		cNorm += c * c
	}
	for i := range q.ConstraintLowerBounds {
		b := combinedFinite(q.ConstraintLowerBounds[i], q.ConstraintUpperBounds[i])
		bNorm += b * b
	}
	cNorm = math.Sqrt(cNorm)
	bNorm = math.Sqrt(bNorm)
	if cNorm == 0 || bNorm == 0 {
		return 1
	}
	return cNorm / bNorm
}

func combinedFinite(l, u float64) float64 {
	var m float64
	if !math.IsInf(l, 0) {
		m = math.Abs(l)
	}
	if !math.IsInf(u, 0) {
		if a := math.Abs(u); a > m {
			m = a
		}
	}
	return m
}

// initialStepSize implements the constant step rule's one-time
// randomized power-iteration estimate of A's largest singular value;
// the adaptive and Malitsky-Pock rules also use it as their starting
// point before adapting.
func initialStepSize(sqp *qp.ShardedQuadraticProgram, config Config, rng *rand.Rand) float64 {
	sigma := estimateMaxSingularValue(sqp, rng, 100)
	if sigma <= 0 {
		sigma = 1
	}
	scaling := config.InitialStepSizeScaling
	if scaling <= 0 {
		scaling = 1
	}
	return scaling / sigma
}

// estimateMaxSingularValue runs randomized power iteration on AᵀA,
// seeded by a deterministic Mersenne Twister (internal/prng.MT19937) so
// the estimate does not depend on the number of worker threads.
func estimateMaxSingularValue(sqp *qp.ShardedQuadraticProgram, rng *rand.Rand, iterations int) float64 {
	n := sqp.QP().NumVariables()
	if n == 0 {
		return 0
	}
	primalSh := sqp.PrimalSharder()

	v := make([]float64, n)
	for i := range v {
		v[i] = rng.NormFloat64()
	}
	normalize(primalSh, v)

	var lambda float64
	for i := 0; i < iterations; i++ {
		av := sqp.MatVec(v)
		atav := sqp.MatVecTranspose(av)
		lambda = math.Sqrt(math.Max(primalSh.Dot(v, atav), 0))
		if !normalize(primalSh, atav) {
			break
		}
		v = atav
	}
	return lambda
}

// normalize rescales v to unit L2 norm in place, via sh, and reports
// whether v was nonzero.
func normalize(sh *sharder.Sharder, v []float64) bool {
	sumSq := sh.SquaredL2Norm(v)
	if sumSq == 0 {
		return false
	}
	norm := math.Sqrt(sumSq)
	sh.Assign(v, v, func(x float64) float64 { return x / norm })
	return true
}
