package main

import (
	"context"
	"sync/atomic"

	"github.com/Swind/go-fiber-jobs/core"
	"github.com/Swind/go-fiber-jobs/internal/config"
)

type report struct {
	sum, expected          uint64
	leaves, expectedLeaves int64
}

func (r report) ok() bool {
	return r.sum == r.expected && r.leaves == r.expectedLeaves
}

// runWorkload must run on a fiber of js.
func runWorkload(ctx context.Context, js *core.JobSystem, w config.Workload) report {
	var rep report
	rep.sum = parallelSum(ctx, js, w.Items, w.ChunkSize)
	n := uint64(w.Items)
	rep.expected = n * (n + 1) / 2

	rep.leaves = nestedBatches(ctx, js, w.Depth, w.Fanout)
	rep.expectedLeaves = 1
	for range w.Depth {
		rep.expectedLeaves *= int64(w.Fanout)
	}
	return rep
}

// parallelSum fills 1..n and sums it, one job per chunk for each stage.
func parallelSum(ctx context.Context, js *core.JobSystem, n, chunk int) uint64 {
	if n == 0 {
		return 0
	}
	input := make([]uint64, n)
	js.ParallelForRange(ctx, n, chunk, func(ctx context.Context, lo, hi int) {
		for i := lo; i < hi; i++ {
			input[i] = uint64(i + 1)
		}
	})

	partial := make([]uint64, (n+chunk-1)/chunk)
	js.ParallelForRange(ctx, n, chunk, func(ctx context.Context, lo, hi int) {
		var s uint64
		for _, v := range input[lo:hi] {
			s += v
		}
		partial[lo/chunk] = s
	})

	var total uint64
	for _, s := range partial {
		total += s
	}
	return total
}

// nestedBatches builds a tree of depth levels where every inner job submits
// fanout children and waits on them. It returns the number of leaves run.
func nestedBatches(ctx context.Context, js *core.JobSystem, depth, fanout int) int64 {
	var leaves atomic.Int64

	var node core.JobFunc
	node = func(ctx context.Context, arg any) {
		level := arg.(int)
		if level == 0 {
			leaves.Add(1)
			return
		}
		jobs := make([]core.Job, fanout)
		for i := range jobs {
			jobs[i] = core.NewNamedJob("nested", node, level-1)
		}
		sys := core.FromContext(ctx)
		sys.Wait(ctx, sys.SubmitJobs(jobs...))
	}

	node(ctx, depth)
	return leaves.Load()
}

// fibersNeeded is the worst case of every inner node of the nested stage
// parked in Wait at once, plus one running fiber per thread.
func fibersNeeded(w config.Workload, threads int) int {
	inner, width := 0, 1
	for range w.Depth {
		inner += width
		width *= w.Fanout
	}
	return inner + threads + 1
}
