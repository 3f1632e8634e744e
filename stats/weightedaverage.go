// Package stats holds the iterate statistics, weighted-average
// accumulator, and termination-check logic of the PDHG solver.
package stats

import "github.com/gonum-community/pdlp/sharder"

// ShardedWeightedAverage accumulates a running weighted average of
// vectors using the online update avg += (w/(W+w))*(x-avg); W += w.
// This guarantees the exactness invariant: if every added datapoint
// equals the same constant vector v, the average is exactly v with no
// floating-point drift, because every update collapses to avg += (w/(W+w))*(v-avg), and once avg == v the
// term is identically zero regardless of rounding in w/(W+w).
type ShardedWeightedAverage struct {
	sharder *sharder.Sharder

	avg        []float64
	sumWeights float64
	numTerms   int64
}

// NewShardedWeightedAverage returns an empty average over vectors of
// length sh.NumElements().
func NewShardedWeightedAverage(sh *sharder.Sharder) *ShardedWeightedAverage {
	return &ShardedWeightedAverage{
		sharder: sh,
		avg:     make([]float64, sh.NumElements()),
	}
}

// Add folds x into the running average with weight w >= 0. Adding a
// zero weight increments NumTerms but leaves Avg unchanged.
func (a *ShardedWeightedAverage) Add(x []float64, w float64) {
	if w < 0 {
		panic("stats: negative average weight")
	}
	a.numTerms++
	if w == 0 {
		return
	}
	newSum := a.sumWeights + w
	ratio := w / newSum
	a.sharder.ForEachShard(func(sh sharder.Shard) {
		avgPart := sh.Slice(a.avg)
		xPart := sh.Slice(x)
		for i := range avgPart {
			avgPart[i] += ratio * (xPart[i] - avgPart[i])
		}
	})
	a.sumWeights = newSum
}

// Avg returns the current running average. The returned slice aliases
// internal state and must not be mutated by the caller.
func (a *ShardedWeightedAverage) Avg() []float64 { return a.avg }

// SumWeights returns the cumulative weight folded in so far.
func (a *ShardedWeightedAverage) SumWeights() float64 { return a.sumWeights }

// NumTerms returns the number of Add calls made, including zero-weight
// ones.
func (a *ShardedWeightedAverage) NumTerms() int64 { return a.numTerms }

// Clear resets the average to zero, as done on every restart.
func (a *ShardedWeightedAverage) Clear() {
	for i := range a.avg {
		a.avg[i] = 0
	}
	a.sumWeights = 0
	a.numTerms = 0
}
