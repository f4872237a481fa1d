package core

import (
	"errors"
	"runtime/debug"
	"time"
)

// maxIdlePasses bounds the idle pass count fed to the idle policy.
const maxIdlePasses = 64

// schedulerLoop is the body of every fiber except the bootstrap fiber. Each
// pass applies marks left by the previous holder of the thread, then resumes
// a satisfied waiter, else runs one queued job, else idles.
func (js *JobSystem) schedulerLoop(f *Fiber) {
	for !js.quitting.Load() {
		js.applyDeferredMarks(f)

		if w := js.findResumable(); w != nil {
			// w marks this fiber Free once this fiber has let go of the thread.
			w.local.markFree = f.id
			js.switchTo(f, w)
			f.local.idlePasses = 0
			continue
		}

		if job, ok := js.queue.TryPop(); ok {
			js.execute(f, job)
			f.local.idlePasses = 0
			continue
		}

		js.idle.idle(f.local.idlePasses)
		if f.local.idlePasses < maxIdlePasses {
			f.local.idlePasses++
		}
	}

	js.switchHome(f)
}

// findResumable claims a Waiting fiber whose counter is satisfied. Fibers
// claimed but not yet satisfied are flagged Waiting again.
func (js *JobSystem) findResumable() *Fiber {
	p := js.fibers
	for i, w := range p.fibers {
		if !p.waiting[i].Load() {
			continue
		}
		if !p.tryClaimWaiting(w.id) {
			continue
		}
		if w.local.waitingCounter.Done() {
			return w
		}
		p.markWaiting(w.id)
	}
	return nil
}

// applyDeferredMarks flags the fibers that handed their thread to f. A fiber
// cannot flag itself before the handover completes, or another thread could
// claim it while it is still running.
func (js *JobSystem) applyDeferredMarks(f *Fiber) {
	if id := f.local.markWaiting; id != 0 {
		f.local.markWaiting = 0
		js.fibers.markWaiting(id)
	}
	if id := f.local.markFree; id != 0 {
		f.local.markFree = 0
		js.fibers.markFree(id)
	}
}

// switchTo hands the thread running from to the fiber to, then parks from
// until some context hands it a thread again.
func (js *JobSystem) switchTo(from, to *Fiber) {
	t := from.local.thread
	from.local.thread = nil
	js.countSwitch()
	to.resume <- t
	from.park()
}

// switchHome hands the thread running from back to its home context. from
// does not run again.
func (js *JobSystem) switchHome(from *Fiber) {
	t := from.local.thread
	from.local.thread = nil
	js.countSwitch()
	t.home <- t
}

func (js *JobSystem) countSwitch() {
	js.stats.fiberSwitches.Add(1)
	js.metrics.RecordFiberSwitch()
}

// execute runs job synchronously on f and completes its counter. A job panic
// is reported and still counts as completion; fatal scheduler errors are
// re-raised.
func (js *JobSystem) execute(f *Fiber, job Job) {
	name := job.name()
	startThread := f.local.thread.id
	startedAt := time.Now()
	completed := false

	defer func() {
		panicked := false
		if r := recover(); r != nil {
			if isFatal(r) {
				panic(r)
			}
			panicked = true
			js.stats.jobsPanicked.Add(1)
			js.metrics.RecordJobPanic(name, r)
			js.panicHandler.HandlePanic(f.ctx, name, f.id, r, debug.Stack())
		} else if !completed {
			// Fiber terminated during teardown while parked in Wait.
			return
		}

		finishedAt := time.Now()
		js.history.Add(JobExecutionRecord{
			Name:          name,
			FiberID:       f.id,
			StartThreadID: startThread,
			EndThreadID:   f.local.thread.id,
			StartedAt:     startedAt,
			FinishedAt:    finishedAt,
			Duration:      finishedAt.Sub(startedAt),
			Panicked:      panicked,
		})
		js.metrics.RecordJobDuration(name, finishedAt.Sub(startedAt))
		js.stats.jobsExecuted.Add(1)

		if job.counter != nil {
			job.counter.increment()
		}
	}()

	job.Func(f.ctx, job.Arg)
	completed = true
}

func isFatal(r any) bool {
	err, ok := r.(error)
	if !ok {
		return false
	}
	return errors.Is(err, ErrNoFreeFiber) ||
		errors.Is(err, ErrNotOnFiber) ||
		errors.Is(err, ErrCounterOverflow) ||
		errors.Is(err, ErrFlagConflict)
}
