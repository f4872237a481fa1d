package core

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	stateCreated int32 = iota
	stateRunning
	stateStopped
)

// JobSystem runs jobs on a fixed pool of fibers multiplexed over a fixed pool
// of threads. It is owned by the caller and reached from jobs through the
// context they receive; there is no process-wide instance.
type JobSystem struct {
	queue *JobQueue

	fibers   *FiberPool
	threads  []*Thread
	idle     IdlePolicy
	quitting atomic.Bool
	state    atomic.Int32

	logger       Logger
	panicHandler PanicHandler
	metrics      Metrics
	rejected     RejectedJobHandler

	history *executionHistory
	stats   jobSystemCounters
}

// NewJobSystem creates a job system with numFibers fibers and at most
// maxNumThreads threads (0 means one per GOMAXPROCS).
func NewJobSystem(numFibers, maxNumThreads int) (*JobSystem, error) {
	cfg := DefaultConfig()
	cfg.NumFibers = numFibers
	cfg.MaxNumThreads = maxNumThreads
	return NewJobSystemWithConfig(cfg)
}

func NewJobSystemWithConfig(config *Config) (*JobSystem, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.NumFibers < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFiberCount, config.NumFibers)
	}

	numThreads := resolveThreadCount(config.MaxNumThreads)
	if config.NumFibers < numThreads {
		return nil, fmt.Errorf("%w: %d fibers for %d threads", ErrTooFewFibers, config.NumFibers, numThreads)
	}

	js := &JobSystem{
		queue:        NewJobQueue(),
		idle:         config.Idle,
		logger:       config.Logger,
		panicHandler: config.PanicHandler,
		metrics:      config.Metrics,
		rejected:     config.RejectedJobHandler,
		history:      newExecutionHistory(config.HistoryCapacity),
	}

	// Use defaults if not provided
	if js.logger == nil {
		js.logger = NewNoOpLogger()
	}
	if js.panicHandler == nil {
		js.panicHandler = &LoggingPanicHandler{Logger: js.logger}
	}
	if js.metrics == nil {
		js.metrics = &NilMetrics{}
	}
	if js.rejected == nil {
		js.rejected = &DefaultRejectedJobHandler{}
	}

	js.fibers = newFiberPool(js, config.NumFibers)
	js.threads = make([]*Thread, numThreads)
	for i := range js.threads {
		js.threads[i] = newThread(uint32(i + 1))
	}

	return js, nil
}

// SubmitJobs enqueues a batch and returns its counter without blocking.
// The counter target is len(jobs); an empty batch is already satisfied.
func (js *JobSystem) SubmitJobs(jobs ...Job) *Counter {
	counter := newCounter(uint32(len(jobs)))
	if len(jobs) == 0 {
		return counter
	}

	if !js.queue.pushBatch(jobs, counter) {
		js.stats.jobsRejected.Add(uint64(len(jobs)))
		js.metrics.RecordJobRejected(len(jobs), "shut down")
		js.rejected.HandleRejectedJobs(len(jobs), "shut down")
		return counter
	}

	js.stats.jobsSubmitted.Add(uint64(len(jobs)))
	js.metrics.RecordQueueDepth(js.queue.Len())
	return counter
}

// Wait returns once counter is satisfied. ctx must belong to a fiber of this
// job system (the ctx passed to a running job or to the entry function).
//
// If the counter is not yet satisfied the calling fiber yields its thread to
// a Free fiber and is resumed later by whichever scheduler loop sees the
// counter complete, possibly on another thread. Running out of Free fibers
// is fatal.
func (js *JobSystem) Wait(ctx context.Context, counter *Counter) {
	if counter == nil || counter.Done() {
		js.stats.fastWaits.Add(1)
		js.metrics.RecordWait(true)
		return
	}

	self := fiberFromContext(ctx)
	if self == nil || self.js != js {
		panic(ErrNotOnFiber)
	}

	js.stats.slowWaits.Add(1)
	js.metrics.RecordWait(false)

	target := js.fibers.claimFree()
	if target == nil {
		js.logger.Error("no free fiber to yield to",
			F("fiber", self.id),
			F("fibers", js.fibers.Len()),
			F("waiting", js.fibers.WaitingCount()),
		)
		panic(fmt.Errorf("%w: fiber %d waiting on %v, pool of %d", ErrNoFreeFiber, self.id, counter, js.fibers.Len()))
	}

	self.local.waitingCounter = counter
	target.local.markWaiting = self.id
	js.switchTo(self, target)

	js.applyDeferredMarks(self)
	self.local.waitingCounter = nil
}

// BootstrapMainTask starts every thread and fiber, runs entry on the
// bootstrap fiber and blocks until entry has returned and every worker thread
// has shut down. It may only be called once.
//
// Jobs still queued when entry returns are dropped, and fibers still parked
// in Wait are terminated.
func (js *JobSystem) BootstrapMainTask(entry JobFunc, arg any) error {
	if entry == nil {
		return ErrNilEntry
	}
	if !js.state.CompareAndSwap(stateCreated, stateRunning) {
		return ErrAlreadyBootstrapped
	}

	mainJob := Job{Func: entry, Arg: arg, Name: "main", counter: newCounter(1)}
	js.fibers.start(js.bootstrapFiber(mainJob), js.schedulerLoop)

	mainThread := js.threads[0]
	unpin := mainThread.pin()
	defer unpin()

	var g errgroup.Group
	ready := make(chan error, len(js.threads)-1)
	for _, t := range js.threads[1:] {
		g.Go(func() error {
			return js.runThread(t, ready)
		})
	}
	for range js.threads[1:] {
		if err := <-ready; err != nil {
			js.logger.Error("worker thread failed to start", F("error", err))
			panic(err)
		}
	}

	js.logger.Info("job system started",
		F("fibers", js.fibers.Len()),
		F("threads", len(js.threads)),
		F("idle", js.idle.Strategy.String()),
	)

	js.countSwitch()
	mainThread.enter(js.fibers.Get(1))

	err := g.Wait()
	js.shutdown()
	return err
}

// runThread is the body of every worker thread except the creation thread.
func (js *JobSystem) runThread(t *Thread, ready chan<- error) error {
	unpin := t.pin()
	defer unpin()

	f := js.fibers.claimFree()
	if f == nil {
		err := fmt.Errorf("%w: thread %d has no fiber to start on", ErrNoFreeFiber, t.id)
		ready <- err
		return err
	}
	js.countSwitch()
	ready <- nil

	js.logger.Debug("worker thread started", F("thread", t.id), F("os_thread", t.osThreadID), F("fiber", f.id))
	t.enter(f)
	js.logger.Debug("worker thread stopped", F("thread", t.id))
	return nil
}

// bootstrapFiber runs the entry job directly instead of the scheduler loop,
// then stops the system.
func (js *JobSystem) bootstrapFiber(mainJob Job) func(*Fiber) {
	return func(f *Fiber) {
		js.execute(f, mainJob)
		js.quitting.Store(true)
		js.logger.Debug("entry job returned", F("thread", f.local.thread.id))
		js.switchHome(f)
	}
}

func (js *JobSystem) shutdown() {
	js.queue.Close()
	dropped := js.queue.Clear()
	parked := js.fibers.WaitingCount()
	js.fibers.close()
	js.state.Store(stateStopped)

	js.logger.Info("job system stopped",
		F("jobs_executed", js.stats.jobsExecuted.Load()),
		F("jobs_dropped", dropped),
		F("fibers_parked", parked),
		F("fiber_switches", js.stats.fiberSwitches.Load()),
	)
}

// IsRunning reports whether BootstrapMainTask is in progress.
func (js *JobSystem) IsRunning() bool {
	return js.state.Load() == stateRunning
}

func (js *JobSystem) NumFibers() int { return js.fibers.Len() }

func (js *JobSystem) NumThreads() int { return len(js.threads) }

// Stats returns a snapshot of the job system state.
func (js *JobSystem) Stats() JobSystemStats {
	return JobSystemStats{
		Fibers:        js.fibers.Len(),
		Threads:       len(js.threads),
		Running:       js.IsRunning(),
		FreeFibers:    js.fibers.FreeCount(),
		WaitingFibers: js.fibers.WaitingCount(),
		QueuedJobs:    js.queue.Len(),
		JobsSubmitted: js.stats.jobsSubmitted.Load(),
		JobsExecuted:  js.stats.jobsExecuted.Load(),
		JobsPanicked:  js.stats.jobsPanicked.Load(),
		JobsRejected:  js.stats.jobsRejected.Load(),
		FiberSwitches: js.stats.fiberSwitches.Load(),
		FastWaits:     js.stats.fastWaits.Load(),
		SlowWaits:     js.stats.slowWaits.Load(),
	}
}

// History returns up to limit recent job executions, newest first.
func (js *JobSystem) History(limit int) []JobExecutionRecord {
	return js.history.Recent(limit)
}
