package core

import (
	"context"
	"reflect"
	"runtime"
)

// JobFunc is the unit of work. ctx belongs to the fiber running the job and
// can be passed to Wait or FromContext; arg is the opaque argument the job was
// submitted with.
type JobFunc func(ctx context.Context, arg any)

// Job is a queued unit of work. SubmitJobs attaches the batch counter; a job
// is consumed exactly once by whichever fiber dequeues it.
type Job struct {
	Func JobFunc
	Arg  any
	// Name is optional and only used for history and logging.
	Name string

	counter *Counter
}

// NewJob creates a Job from a function and its argument.
func NewJob(fn JobFunc, arg any) Job {
	return Job{Func: fn, Arg: arg}
}

// NewNamedJob creates a Job with an explicit name.
func NewNamedJob(name string, fn JobFunc, arg any) Job {
	return Job{Func: fn, Arg: arg, Name: name}
}

// JobFromFunc adapts a closure that needs no argument.
func JobFromFunc(fn func(ctx context.Context)) Job {
	return Job{Func: func(ctx context.Context, _ any) { fn(ctx) }, Name: funcName(fn)}
}

// Counter returns the batch counter, or nil before the job is submitted.
func (j Job) Counter() *Counter {
	return j.counter
}

func (j Job) name() string {
	if j.Name != "" {
		return j.Name
	}
	return funcName(j.Func)
}

func funcName(fn any) string {
	if fn == nil {
		return "anonymous"
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "anonymous"
	}

	f := runtime.FuncForPC(v.Pointer())
	if f == nil || f.Name() == "" {
		return "anonymous"
	}
	return f.Name()
}

// =============================================================================
// Context Helper
// =============================================================================

type fiberKeyType struct{}

var fiberKey fiberKeyType

// FromContext returns the JobSystem owning the fiber that ctx belongs to.
func FromContext(ctx context.Context) *JobSystem {
	if f := fiberFromContext(ctx); f != nil {
		return f.js
	}
	return nil
}

// CurrentFiberID returns the id of the fiber running ctx, or 0 outside the job system.
func CurrentFiberID(ctx context.Context) uint32 {
	if f := fiberFromContext(ctx); f != nil {
		return f.id
	}
	return 0
}

// CurrentThreadID returns the id of the thread currently running the fiber
// behind ctx, or 0 outside the job system. Only meaningful when called from
// that fiber, since the fiber may move threads across a Wait.
func CurrentThreadID(ctx context.Context) uint32 {
	if f := fiberFromContext(ctx); f != nil && f.local.thread != nil {
		return f.local.thread.id
	}
	return 0
}

func fiberFromContext(ctx context.Context) *Fiber {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(fiberKey).(*Fiber); ok {
		return v
	}
	return nil
}
