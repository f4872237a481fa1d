package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

func argJob(i int) Job {
	return NewJob(func(ctx context.Context, arg any) {}, i)
}

// TestJobQueue_FIFO verifies pop order
// Given: A queue with jobs pushed one at a time
// When: Jobs are popped
// Then: They come out in push order
func TestJobQueue_FIFO(t *testing.T) {
	// Arrange
	q := NewJobQueue()
	for i := range 5 {
		q.Push(argJob(i))
	}

	// Act & Assert
	for i := range 5 {
		job, ok := q.TryPop()
		if !ok {
			t.Fatalf("Step %d: queue is empty", i)
		}
		if job.Arg.(int) != i {
			t.Errorf("Step %d: arg = %v, want %d", i, job.Arg, i)
		}
	}

	if !q.IsEmpty() {
		t.Errorf("queue should be empty, has %d", q.Len())
	}
}

// TestJobQueue_TryPopEmpty verifies TryPop never blocks
func TestJobQueue_TryPopEmpty(t *testing.T) {
	q := NewJobQueue()

	job, ok := q.TryPop()
	if ok {
		t.Fatalf("TryPop on empty queue returned %+v", job)
	}
}

// TestJobQueue_PushBatchOrder verifies a batch keeps slice order
// Given: Two batches pushed back to back
// When: The queue is drained
// Then: Jobs of each batch appear in slice order and batches do not interleave
func TestJobQueue_PushBatchOrder(t *testing.T) {
	q := NewJobQueue()
	q.PushBatch([]Job{argJob(0), argJob(1), argJob(2)})
	q.PushBatch([]Job{argJob(3), argJob(4)})

	for i := range 5 {
		job, ok := q.TryPop()
		if !ok || job.Arg.(int) != i {
			t.Fatalf("Step %d: got (%v, %v), want arg %d", i, job.Arg, ok, i)
		}
	}
}

// TestJobQueue_PushBatchAttachesCounter verifies every queued job carries the batch counter
func TestJobQueue_PushBatchAttachesCounter(t *testing.T) {
	q := NewJobQueue()
	c := newCounter(2)
	jobs := []Job{argJob(0), argJob(1)}

	if !q.pushBatch(jobs, c) {
		t.Fatal("pushBatch on open queue returned false")
	}

	for i := range 2 {
		job, _ := q.TryPop()
		if job.Counter() != c {
			t.Errorf("job %d counter = %p, want %p", i, job.Counter(), c)
		}
	}
	// Caller's slice is copied, not mutated.
	if jobs[0].Counter() != nil {
		t.Error("pushBatch mutated the caller's slice")
	}
}

// TestJobQueue_WaitPopWakesOnPush verifies a blocked consumer is woken
// Given: A consumer blocked in WaitPop
// When: A job is pushed
// Then: The consumer receives it
func TestJobQueue_WaitPopWakesOnPush(t *testing.T) {
	q := NewJobQueue()
	got := make(chan int, 1)

	go func() {
		job, ok := q.WaitPop()
		if ok {
			got <- job.Arg.(int)
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(argJob(7))

	select {
	case v := <-got:
		if v != 7 {
			t.Errorf("WaitPop got %d, want 7", v)
		}
	case <-time.After(time.Second):
		t.Fatal("WaitPop was not woken by Push")
	}
}

// TestJobQueue_CloseWakesWaiters verifies Close releases every blocked consumer
func TestJobQueue_CloseWakesWaiters(t *testing.T) {
	q := NewJobQueue()
	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := q.WaitPop(); ok {
				t.Error("WaitPop returned a job from an empty closed queue")
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not wake WaitPop callers")
	}
}

// TestJobQueue_ClosedRejectsPush verifies pushes after Close are refused
// but queued jobs stay poppable
func TestJobQueue_ClosedRejectsPush(t *testing.T) {
	q := NewJobQueue()
	q.Push(argJob(1))
	q.Close()

	if q.Push(argJob(2)) {
		t.Error("Push after Close returned true")
	}
	if q.PushBatch([]Job{argJob(3)}) {
		t.Error("PushBatch after Close returned true")
	}
	if !q.IsClosed() {
		t.Error("IsClosed = false after Close")
	}

	job, ok := q.WaitPop()
	if !ok || job.Arg.(int) != 1 {
		t.Fatalf("WaitPop after Close = (%v, %v), want (1, true)", job.Arg, ok)
	}
}

// TestJobQueue_Clear verifies Clear drops everything and reports the count
func TestJobQueue_Clear(t *testing.T) {
	q := NewJobQueue()
	for i := range 4 {
		q.Push(argJob(i))
	}

	if n := q.Clear(); n != 4 {
		t.Errorf("Clear = %d, want 4", n)
	}
	if q.Len() != 0 {
		t.Errorf("Len after Clear = %d", q.Len())
	}
}

// TestJobQueue_Compaction verifies the backing array shrinks after a large drain
func TestJobQueue_Compaction(t *testing.T) {
	q := NewJobQueue()
	for i := range 1000 {
		q.Push(argJob(i))
	}
	for range 990 {
		q.TryPop()
	}

	q.mu.Lock()
	c := cap(q.jobs)
	n := len(q.jobs)
	q.mu.Unlock()

	if n != 10 {
		t.Fatalf("len = %d, want 10", n)
	}
	if c >= 1000 {
		t.Errorf("cap = %d after draining, want compaction below 1000", c)
	}
}

// TestJobQueue_ConcurrentProducersConsumers verifies no job is lost or duplicated
func TestJobQueue_ConcurrentProducersConsumers(t *testing.T) {
	const producers, perProducer = 4, 250
	q := NewJobQueue()

	var seen sync.Map
	var consumers sync.WaitGroup
	for range 4 {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				job, ok := q.WaitPop()
				if !ok {
					return
				}
				if _, dup := seen.LoadOrStore(job.Arg.(int), true); dup {
					t.Errorf("job %d popped twice", job.Arg.(int))
				}
			}
		}()
	}

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				q.Push(argJob(p*perProducer + i))
			}
		}()
	}
	wg.Wait()

	for !q.IsEmpty() {
		time.Sleep(time.Millisecond)
	}
	q.Close()
	consumers.Wait()

	count := 0
	seen.Range(func(_, _ any) bool { count++; return true })
	if count != producers*perProducer {
		t.Errorf("popped %d distinct jobs, want %d", count, producers*perProducer)
	}
}
