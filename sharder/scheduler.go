package sharder

// Scheduler runs parallel-for loops with a barrier join. Implementations
// are interchangeable behind this interface; the PDHG core never
// distinguishes between them beyond NumThreads().
type Scheduler interface {
	// NumThreads returns the number of workers the scheduler will use.
	NumThreads() int

	// ParallelFor calls f(i) for every i in [start, end), possibly from
	// multiple goroutines, and blocks until all calls have returned.
	ParallelFor(start, end int, f func(i int))
}

// sequential runs every ParallelFor call inline, in index order, on the
// calling goroutine. Sequential returns it; the root package's Solve
// uses it unless Params.SchedulerType selects the goroutine pool.
type sequential struct{}

// Sequential returns the single-thread Scheduler.
func Sequential() Scheduler { return sequential{} }

func (sequential) NumThreads() int { return 1 }

func (sequential) ParallelFor(start, end int, f func(i int)) {
	for i := start; i < end; i++ {
		f(i)
	}
}
