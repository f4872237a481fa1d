package core

import (
	"fmt"
	"sync/atomic"
)

// Counter tracks completion of one job batch. It is satisfied once every job
// in the batch has finished and incremented it.
//
// Counters are shared: the queue, every job of the batch and every waiter hold
// the same pointer.
type Counter struct {
	count  atomic.Uint32
	target uint32
}

func newCounter(target uint32) *Counter {
	return &Counter{target: target}
}

// Value returns the number of completed jobs.
func (c *Counter) Value() uint32 {
	return c.count.Load()
}

// Target returns the batch size.
func (c *Counter) Target() uint32 {
	return c.target
}

// Done reports whether every job of the batch has completed.
func (c *Counter) Done() bool {
	return c.count.Load() == c.target
}

// increment records one completed job. A job completes exactly once, so
// overshooting the target is an invariant violation.
func (c *Counter) increment() {
	for {
		cur := c.count.Load()
		if cur >= c.target {
			panic(fmt.Errorf("%w: count %d, target %d", ErrCounterOverflow, cur, c.target))
		}
		if c.count.CompareAndSwap(cur, cur+1) {
			return
		}
	}
}

func (c *Counter) String() string {
	return fmt.Sprintf("Counter(%d/%d)", c.Value(), c.target)
}
