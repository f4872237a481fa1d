package core

import "sync/atomic"

// JobSystemStats represents runtime observability state for a job system.
type JobSystemStats struct {
	Fibers  int
	Threads int
	Running bool

	// Flag snapshots; the bootstrap fiber and every fiber holding a thread
	// are neither Free nor Waiting.
	FreeFibers    int
	WaitingFibers int

	QueuedJobs    int
	JobsSubmitted uint64
	JobsExecuted  uint64
	JobsPanicked  uint64
	JobsRejected  uint64

	// FiberSwitches counts every transfer of a thread between contexts,
	// including thread start and shutdown handovers.
	FiberSwitches uint64
	FastWaits     uint64
	SlowWaits     uint64
}

type jobSystemCounters struct {
	jobsSubmitted atomic.Uint64
	jobsExecuted  atomic.Uint64
	jobsPanicked  atomic.Uint64
	jobsRejected  atomic.Uint64
	fiberSwitches atomic.Uint64
	fastWaits     atomic.Uint64
	slowWaits     atomic.Uint64
}
