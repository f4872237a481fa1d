package core

import "errors"

var (
	// ErrInvalidFiberCount is returned when the fiber pool would be empty.
	ErrInvalidFiberCount = errors.New("fiberjobs: fiber count must be at least 1")

	// ErrTooFewFibers is returned when there are not enough fibers for every
	// worker thread to start on one.
	ErrTooFewFibers = errors.New("fiberjobs: fiber count must be at least the thread count")

	// ErrAlreadyBootstrapped is returned by a second call to BootstrapMainTask.
	ErrAlreadyBootstrapped = errors.New("fiberjobs: job system already bootstrapped")

	// ErrNilEntry is returned when BootstrapMainTask is given a nil entry function.
	ErrNilEntry = errors.New("fiberjobs: nil entry function")

	// The errors below are fatal. They are raised with panic from the
	// scheduling path because the pools were sized wrong for the workload.

	// ErrNoFreeFiber means Wait needed to yield but every fiber was busy or parked.
	ErrNoFreeFiber = errors.New("fiberjobs: out of free fibers")

	// ErrNotOnFiber means Wait was called with a context that does not belong to a fiber.
	ErrNotOnFiber = errors.New("fiberjobs: wait called outside of a fiber")

	// ErrCounterOverflow means a counter was incremented past its target.
	ErrCounterOverflow = errors.New("fiberjobs: counter incremented past target")

	// ErrFlagConflict means a fiber would be flagged Free and Waiting at once.
	ErrFlagConflict = errors.New("fiberjobs: fiber flagged free and waiting")
)
