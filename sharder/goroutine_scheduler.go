package sharder

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// GoroutineScheduler dispatches parallel-for work across a fixed pool of
// worker goroutines, using an errgroup.Group as the barrier join. It is
// the "otherwise dispatched to the scheduler and barrier-joined" backend
// described for Sharder.ForEachShard.
type GoroutineScheduler struct {
	numThreads int
}

// NewGoroutineScheduler returns a GoroutineScheduler using numThreads
// workers. A numThreads <= 0 selects runtime.GOMAXPROCS(0).
func NewGoroutineScheduler(numThreads int) *GoroutineScheduler {
	if numThreads <= 0 {
		numThreads = runtime.GOMAXPROCS(0)
	}
	return &GoroutineScheduler{numThreads: numThreads}
}

// NumThreads implements Scheduler.
func (g *GoroutineScheduler) NumThreads() int { return g.numThreads }

// ParallelFor implements Scheduler. Each index in [start, end) is handed
// to exactly one call of f; calls may run concurrently across at most
// NumThreads goroutines. ParallelFor blocks until every call returns.
//
// f is expected to be a pure, panic-free computation over its shard; a
// panic inside f propagates via errgroup's recovery-free goroutine
// semantics and crashes the process; programmer errors fail fast.
func (g *GoroutineScheduler) ParallelFor(start, end int, f func(i int)) {
	n := end - start
	if n <= 0 {
		return
	}
	if n == 1 || g.numThreads <= 1 {
		for i := start; i < end; i++ {
			f(i)
		}
		return
	}

	var eg errgroup.Group
	workers := g.numThreads
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := start + w*chunk
		hi := lo + chunk
		if hi > end {
			hi = end
		}
		if lo >= hi {
			continue
		}
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				f(i)
			}
			return nil
		})
	}
	_ = eg.Wait()
}
