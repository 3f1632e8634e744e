// Package sharder partitions index ranges into balanced-mass shards for
// data-parallel execution, and runs them through a pluggable Scheduler.
//
// A Sharder never looks at the data it shards; it only knows element
// counts and a caller-supplied mass function. Kernels that operate on
// vectors, diagonal matrices or column-major sparse matrices use a
// Sharder's Shard values to carve out the contiguous segment of indices
// that belongs to each worker.
package sharder

// Shard is a contiguous, half-open range of indices [Start, Start+Size)
// assigned to one worker of a Sharder.
type Shard struct {
	index int
	start int
	size  int
}

// Index returns the shard's position among its parent's shards, in
// [0, NumShards()).
func (s Shard) Index() int { return s.index }

// Start returns the first index belonging to the shard.
func (s Shard) Start() int { return s.start }

// Size returns the number of indices belonging to the shard.
func (s Shard) Size() int { return s.size }

// End returns the first index past the shard's range.
func (s Shard) End() int { return s.start + s.size }

// Slice returns the portion of v that belongs to the shard. It panics if
// v is shorter than the shard's End(); a longer v is not rejected.
func (s Shard) Slice(v []float64) []float64 {
	return v[s.start : s.start+s.size]
}

// Sharder partitions [0, N) into shards of roughly equal mass and drives
// their parallel execution through a Scheduler.
//
// Sharder is immutable after construction and safe for concurrent use by
// multiple callers.
type Sharder struct {
	numElements int
	shards      []Shard
	shardMass   []float64
	totalMass   float64
	scheduler   Scheduler
}

// New builds a Sharder over numElements elements with uniform mass,
// targeting approximately numShards shards. If numShards >= numElements,
// one shard is created per element. Empty shards are never created.
func New(numElements, numShards int, scheduler Scheduler) *Sharder {
	if numElements < 0 {
		panic("sharder: negative numElements")
	}
	if numShards < 1 {
		numShards = 1
	}
	mass := make([]float64, numElements)
	for i := range mass {
		mass[i] = 1
	}
	return NewWeighted(mass, numShards, scheduler)
}

// NewWeighted builds a Sharder over len(mass) elements, where mass[i] is
// the nonnegative weight of element i. Shards are built greedily: the
// next element is appended to the current shard until its midpoint would
// push the running mass to or past total/numShards, at which point the
// shard is flushed and a new one started. This guarantees every shard's
// mass lies within [total/numShards - maxMass/2, maxMass + ceil(maxMass/2) + ceil(total/numShards)].
func NewWeighted(mass []float64, numShards int, scheduler Scheduler) *Sharder {
	if numShards < 1 {
		numShards = 1
	}
	n := len(mass)
	var total, maxMass float64
	for _, m := range mass {
		if m < 0 {
			panic("sharder: negative element mass")
		}
		total += m
		if m > maxMass {
			maxMass = m
		}
	}
	shards := make([]Shard, 0, numShards)
	if n == 0 {
		return &Sharder{numElements: 0, shards: shards, scheduler: scheduler}
	}
	target := total / float64(numShards)
	if target <= 0 {
		target = maxMass
	}
	shardMass := make([]float64, 0, numShards)
	start := 0
	var running float64
	for i := 0; i < n; i++ {
		if i > start && running+mass[i]/2 >= target {
			shards = append(shards, Shard{index: len(shards), start: start, size: i - start})
			shardMass = append(shardMass, running)
			start = i
			running = 0
		}
		running += mass[i]
	}
	shards = append(shards, Shard{index: len(shards), start: start, size: n - start})
	shardMass = append(shardMass, running)

	if scheduler == nil {
		scheduler = Sequential()
	}
	return &Sharder{numElements: n, shards: shards, shardMass: shardMass, totalMass: total, scheduler: scheduler}
}

// NumElements returns the total number of indices sharded, N.
func (s *Sharder) NumElements() int { return s.numElements }

// NumShards returns the number of shards actually produced.
func (s *Sharder) NumShards() int { return len(s.shards) }

// ShardStart returns the first index of shard i.
func (s *Sharder) ShardStart(i int) int { return s.shards[i].start }

// ShardSize returns the number of indices in shard i.
func (s *Sharder) ShardSize(i int) int { return s.shards[i].size }

// ShardMass returns the sum of per-element mass assigned to shard i. When
// the Sharder was built with uniform mass, this equals ShardSize(i).
func (s *Sharder) ShardMass(i int) float64 {
	if s.shardMass == nil {
		return float64(s.shards[i].size)
	}
	return s.shardMass[i]
}

// Shard returns the i'th shard descriptor.
func (s *Sharder) Shard(i int) Shard { return s.shards[i] }

// Scheduler returns the Scheduler driving this Sharder's parallel calls.
func (s *Sharder) Scheduler() Scheduler { return s.scheduler }

// ForEachShard runs f once per shard. On the Sequential scheduler the
// calls happen inline and in order; on a parallel Scheduler they are
// dispatched to worker goroutines and joined with a barrier before
// ForEachShard returns.
func (s *Sharder) ForEachShard(f func(Shard)) {
	n := len(s.shards)
	if n == 0 {
		return
	}
	s.scheduler.ParallelFor(0, n, func(i int) {
		f(s.shards[i])
	})
}

// ParallelSum computes f for each shard and returns the sum of the
// results. Summation order is fixed by shard index, so two calls over
// Sharders with identical shard boundaries are bit-identical.
func (s *Sharder) ParallelSum(f func(Shard) float64) float64 {
	n := len(s.shards)
	if n == 0 {
		return 0
	}
	partial := make([]float64, n)
	s.scheduler.ParallelFor(0, n, func(i int) {
		partial[i] = f(s.shards[i])
	})
	var total float64
	for _, p := range partial {
		total += p
	}
	return total
}

// ParallelAll computes f for each shard and returns the logical AND of
// the results. All shards are evaluated (no short-circuiting), so the
// call has the same cost regardless of where, or whether, f returns
// false.
func (s *Sharder) ParallelAll(f func(Shard) bool) bool {
	n := len(s.shards)
	if n == 0 {
		return true
	}
	partial := make([]bool, n)
	s.scheduler.ParallelFor(0, n, func(i int) {
		partial[i] = f(s.shards[i])
	})
	for _, p := range partial {
		if !p {
			return false
		}
	}
	return true
}
