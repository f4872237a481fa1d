package core

import "context"

// ParallelFor runs fn(ctx, i) for every i in [0, n) as one batch and waits
// for all of them. ctx must belong to a fiber of js.
func (js *JobSystem) ParallelFor(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	if n <= 0 {
		return
	}

	body := func(ctx context.Context, arg any) { fn(ctx, arg.(int)) }
	jobs := make([]Job, n)
	for i := range jobs {
		jobs[i] = Job{Func: body, Arg: i, Name: "parallel-for"}
	}
	js.Wait(ctx, js.SubmitJobs(jobs...))
}

// ParallelForRange splits [0, n) into chunks of at most chunkSize and runs
// fn(ctx, lo, hi) for each chunk as one batch.
func (js *JobSystem) ParallelForRange(ctx context.Context, n, chunkSize int, fn func(ctx context.Context, lo, hi int)) {
	if n <= 0 {
		return
	}
	if chunkSize <= 0 {
		chunkSize = 1
	}

	type span struct{ lo, hi int }
	body := func(ctx context.Context, arg any) {
		s := arg.(span)
		fn(ctx, s.lo, s.hi)
	}
	jobs := make([]Job, 0, (n+chunkSize-1)/chunkSize)
	for lo := 0; lo < n; lo += chunkSize {
		jobs = append(jobs, Job{Func: body, Arg: span{lo, min(lo+chunkSize, n)}, Name: "parallel-range"})
	}
	js.Wait(ctx, js.SubmitJobs(jobs...))
}

// Map applies fn to every element of in as one batch and returns the results
// in input order.
func Map[T, R any](ctx context.Context, js *JobSystem, in []T, fn func(ctx context.Context, v T) R) []R {
	out := make([]R, len(in))
	js.ParallelFor(ctx, len(in), func(ctx context.Context, i int) {
		out[i] = fn(ctx, in[i])
	})
	return out
}
