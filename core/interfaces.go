package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// PanicHandler: Interface for handling job panics
// =============================================================================

// PanicHandler is called when a job panics during execution. The job still
// counts as completed so waiters on its batch are released.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a job panics.
	//
	// Parameters:
	// - ctx: The context of the fiber that ran the job
	// - jobName: The job name (explicit or derived from the function)
	// - fiberID: The id of the fiber that ran the job
	// - panicInfo: The panic value recovered from the job
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, jobName string, fiberID uint32, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, jobName string, fiberID uint32, panicInfo any, stackTrace []byte) {
	fmt.Printf("[Fiber %d @ thread %d] Job %s panic: %v\nStack trace:\n%s",
		fiberID, CurrentThreadID(ctx), jobName, panicInfo, stackTrace)
}

// LoggingPanicHandler reports panics through a Logger.
type LoggingPanicHandler struct {
	Logger Logger
}

func (h *LoggingPanicHandler) HandlePanic(ctx context.Context, jobName string, fiberID uint32, panicInfo any, stackTrace []byte) {
	h.Logger.Error("job panicked",
		F("job", jobName),
		F("fiber", fiberID),
		F("thread", CurrentThreadID(ctx)),
		F("panic", panicInfo),
		F("stack", string(stackTrace)),
	)
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting job system metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods are called from the scheduling path and must be non-blocking and fast.
type Metrics interface {
	// RecordJobDuration records how long a job ran, including any time
	// spent parked inside Wait.
	RecordJobDuration(jobName string, duration time.Duration)

	// RecordJobPanic records that a job panicked during execution.
	RecordJobPanic(jobName string, panicInfo any)

	// RecordJobRejected records jobs submitted after shutdown.
	RecordJobRejected(count int, reason string)

	// RecordQueueDepth records the job queue depth after a submission.
	RecordQueueDepth(depth int)

	// RecordFiberSwitch records one transfer of a thread between contexts.
	RecordFiberSwitch()

	// RecordWait records a Wait call; fast is true when the counter was
	// already satisfied and no switch happened.
	RecordWait(fast bool)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordJobDuration(jobName string, duration time.Duration) {}
func (m *NilMetrics) RecordJobPanic(jobName string, panicInfo any)             {}
func (m *NilMetrics) RecordJobRejected(count int, reason string)               {}
func (m *NilMetrics) RecordQueueDepth(depth int)                               {}
func (m *NilMetrics) RecordFiberSwitch()                                       {}
func (m *NilMetrics) RecordWait(fast bool)                                     {}

// =============================================================================
// RejectedJobHandler: Interface for handling rejected jobs
// =============================================================================

// RejectedJobHandler is called when SubmitJobs runs after the job system has
// shut down. The returned counter of such a batch never completes.
type RejectedJobHandler interface {
	HandleRejectedJobs(count int, reason string)
}

// DefaultRejectedJobHandler provides a basic handler that logs rejected jobs.
type DefaultRejectedJobHandler struct{}

// HandleRejectedJobs logs the rejected batch.
func (h *DefaultRejectedJobHandler) HandleRejectedJobs(count int, reason string) {
	fmt.Printf("[JobSystem] %d job(s) rejected: %s\n", count, reason)
}

// =============================================================================
// Config: Configuration for JobSystem
// =============================================================================

const (
	DefaultNumFibers       = 100
	DefaultMaxNumThreads   = 4
	defaultHistoryCapacity = 100
)

// Config holds construction parameters of a JobSystem. Pool sizes are fixed
// for the lifetime of the system.
// All handlers are optional; if not provided, default implementations will be used.
type Config struct {
	// NumFibers is the fixed fiber pool size, including the bootstrap fiber.
	NumFibers int

	// MaxNumThreads caps the worker thread count; the effective count is
	// min(MaxNumThreads, GOMAXPROCS). Zero means no cap.
	MaxNumThreads int

	// Idle controls what a scheduler loop does on a pass that found no work.
	Idle IdlePolicy

	// HistoryCapacity is the size of the job execution history ring.
	HistoryCapacity int

	// Logger defaults to NoOpLogger.
	Logger Logger

	// PanicHandler defaults to a LoggingPanicHandler over Logger.
	PanicHandler PanicHandler

	// Metrics defaults to NilMetrics.
	Metrics Metrics

	// RejectedJobHandler defaults to DefaultRejectedJobHandler.
	RejectedJobHandler RejectedJobHandler
}

// DefaultConfig returns a config with the reference pool sizes and default handlers.
func DefaultConfig() *Config {
	return &Config{
		NumFibers:          DefaultNumFibers,
		MaxNumThreads:      DefaultMaxNumThreads,
		Idle:               DefaultIdlePolicy(),
		HistoryCapacity:    defaultHistoryCapacity,
		Logger:             NewNoOpLogger(),
		Metrics:            &NilMetrics{},
		RejectedJobHandler: &DefaultRejectedJobHandler{},
	}
}
