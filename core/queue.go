package core

import (
	"sync"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// JobQueue is a FIFO of pending jobs, safe for any number of producers and
// consumers. Order is only meaningful among jobs pushed by one PushBatch.
type JobQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	jobs   []Job
	closed bool
}

func NewJobQueue() *JobQueue {
	q := &JobQueue{
		jobs: make([]Job, 0, defaultQueueCap),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues one job. It returns false if the queue is closed.
func (q *JobQueue) Push(job Job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.jobs = append(q.jobs, job)
	q.cond.Signal()
	return true
}

// PushBatch enqueues jobs in slice order under a single lock acquisition.
// It returns false, and enqueues nothing, if the queue is closed.
func (q *JobQueue) PushBatch(jobs []Job) bool {
	return q.pushBatch(jobs, nil)
}

// pushBatch is PushBatch that also attaches counter to every job as it is
// copied into the queue, so a submission costs no extra allocation.
func (q *JobQueue) pushBatch(jobs []Job, counter *Counter) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	for _, job := range jobs {
		if counter != nil {
			job.counter = counter
		}
		q.jobs = append(q.jobs, job)
	}
	switch len(jobs) {
	case 0:
	case 1:
		q.cond.Signal()
	default:
		q.cond.Broadcast()
	}
	return true
}

// TryPop removes the oldest job without blocking.
func (q *JobQueue) TryPop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// WaitPop blocks until a job is available. It returns false once the queue
// is closed and empty.
func (q *JobQueue) WaitPop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.jobs) == 0 && !q.closed {
		q.cond.Wait()
	}
	return q.popLocked()
}

func (q *JobQueue) popLocked() (Job, bool) {
	if len(q.jobs) == 0 {
		return Job{}, false
	}

	job := q.jobs[0]
	// Zero out the element in the underlying array to prevent memory leak
	q.jobs[0] = Job{}
	q.jobs = q.jobs[1:]
	q.maybeCompactLocked()

	return job, true
}

func (q *JobQueue) maybeCompactLocked() {
	n := len(q.jobs)
	c := cap(q.jobs)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		q.jobs = make([]Job, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)

	newSlice := make([]Job, n, newCap)
	copy(newSlice, q.jobs)
	q.jobs = newSlice
}

// Close rejects further pushes and wakes every WaitPop caller. Jobs already
// queued can still be popped.
func (q *JobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *JobQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *JobQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Clear drops all queued jobs and releases their references. It returns the
// number of jobs dropped.
func (q *JobQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.jobs)
	q.jobs = make([]Job, 0, defaultQueueCap)
	return n
}
