// Package fiberjobs provides a fiber-based job system for Go.
//
// A fixed pool of worker threads cooperatively multiplexes a larger fixed pool
// of fibers. Jobs are submitted in batches; every batch gets a Counter that
// completes once all of its jobs have run. Waiting on a Counter from inside a
// job never blocks the thread: the waiting fiber parks with its stack intact
// and the thread moves on to a free fiber that keeps running jobs.
//
// # Quick Start
//
// Create a job system and hand it the entry function:
//
//	js, err := fiberjobs.New(64, 4) // 64 fibers, up to 4 threads
//	if err != nil {
//		log.Fatal(err)
//	}
//	err = js.BootstrapMainTask(func(ctx context.Context, _ any) {
//		counter := js.SubmitJobs(jobs...)
//		js.Wait(ctx, counter)
//	}, nil)
//
// BootstrapMainTask returns once the entry function has returned and every
// worker thread has stopped.
//
// # Key Concepts
//
// Job: a function plus an opaque argument. The ctx a job receives belongs to
// the fiber running it and must be passed to Wait.
//
// Counter: completion tracker of one SubmitJobs batch. Wait on a satisfied
// Counter returns immediately without switching fibers.
//
// Fiber: a parked goroutine that runs only while it holds a thread. Fibers
// are Free (available to be switched into), Waiting (parked in Wait) or
// running. The pool never grows: nesting Wait deeper than the number of fibers
// is fatal, so size NumFibers for the deepest concurrent wait chain.
//
// # Limits
//
// There is no preemption, cancellation or timeout. A job that blocks on I/O
// holds its thread for the duration.
//
// For more details, see https://github.com/Swind/go-fiber-jobs
package fiberjobs
