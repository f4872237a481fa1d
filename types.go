package fiberjobs

import (
	"context"

	"github.com/Swind/go-fiber-jobs/core"
)

// Re-export commonly used types from core package for convenience.
// This allows users to import only the fiberjobs package for most use cases.

// JobSystem owns the fiber and thread pools
type JobSystem = core.JobSystem

// Job is the unit of work (function + opaque argument)
type Job = core.Job

// JobFunc is the job signature
type JobFunc = core.JobFunc

// Counter tracks completion of one batch
type Counter = core.Counter

// Config holds construction parameters and handlers
type Config = core.Config

// JobSystemStats is a snapshot of scheduler state
type JobSystemStats = core.JobSystemStats

// IdlePolicy controls what an idle scheduler loop does
type IdlePolicy = core.IdlePolicy

// Logger is the structured logging interface used by the job system
type Logger = core.Logger

// Idle strategies
const (
	IdleYield   = core.IdleYield
	IdleSpin    = core.IdleSpin
	IdleBackoff = core.IdleBackoff
)

// Convenience functions
var (
	NewJob          = core.NewJob
	NewNamedJob     = core.NewNamedJob
	JobFromFunc     = core.JobFromFunc
	DefaultConfig   = core.DefaultConfig
	FromContext     = core.FromContext
	CurrentFiberID  = core.CurrentFiberID
	CurrentThreadID = core.CurrentThreadID
)

// New creates a JobSystem with numFibers fibers and at most maxNumThreads
// threads, using default handlers.
func New(numFibers, maxNumThreads int) (*JobSystem, error) {
	return core.NewJobSystem(numFibers, maxNumThreads)
}

// NewWithConfig creates a JobSystem from a full config.
func NewWithConfig(config *Config) (*JobSystem, error) {
	return core.NewJobSystemWithConfig(config)
}

// Map applies fn to every element of in as one batch, preserving order.
// ctx must belong to a fiber of js.
func Map[T, R any](ctx context.Context, js *JobSystem, in []T, fn func(ctx context.Context, v T) R) []R {
	return core.Map(ctx, js, in, fn)
}
