package core

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
)

// Fiber is a stackful execution context: a goroutine that only runs while it
// holds a Thread. Control moves between fibers by handing the thread over the
// target's resume channel and parking on one's own.
//
// Ids are stable and range over [1, numFibers]. Fiber 1 is the bootstrap
// fiber and runs the entry job; every other fiber runs the scheduler loop.
type Fiber struct {
	id     uint32
	js     *JobSystem
	ctx    context.Context
	resume chan *Thread
	local  fiberLocalStorage
}

// fiberLocalStorage is only touched by its fiber, or by the fiber that hands
// control to it right before the handover.
type fiberLocalStorage struct {
	// thread is the thread running this fiber, nil while parked.
	thread *Thread
	// waitingCounter is the counter this fiber is parked on inside Wait.
	waitingCounter *Counter
	// markWaiting is the id of a fiber that yielded into this one from Wait.
	// It can only be flagged Waiting once it has let go of its thread.
	markWaiting uint32
	// markFree is the id of the fiber that resumed this one from its
	// scheduler loop. It becomes Free once it has let go of its thread.
	markFree uint32
	// idlePasses counts consecutive scheduler passes without work.
	idlePasses int
}

func (f *Fiber) ID() uint32 { return f.id }

func (f *Fiber) String() string {
	return fmt.Sprintf("Fiber(%d)", f.id)
}

// park blocks until another context hands this fiber a thread. During
// teardown every parked fiber exits instead.
func (f *Fiber) park() {
	select {
	case t := <-f.resume:
		f.local.thread = t
	case <-f.js.fibers.closed:
		runtime.Goexit()
	}
}

// =============================================================================
// FiberPool: dense arena of fibers plus Free/Waiting flags
// =============================================================================

// FiberPool owns every fiber of a job system. Flags are claimed with
// compare-and-swap so exactly one claimant wins a given fiber.
type FiberPool struct {
	fibers  []*Fiber
	free    []atomic.Bool
	waiting []atomic.Bool

	wg        sync.WaitGroup
	closed    chan struct{}
	closeOnce sync.Once
}

func newFiberPool(js *JobSystem, n int) *FiberPool {
	p := &FiberPool{
		fibers:  make([]*Fiber, n),
		free:    make([]atomic.Bool, n),
		waiting: make([]atomic.Bool, n),
		closed:  make(chan struct{}),
	}
	for i := range p.fibers {
		f := &Fiber{
			id:     uint32(i + 1),
			js:     js,
			resume: make(chan *Thread, 1),
		}
		f.ctx = context.WithValue(context.Background(), fiberKey, f)
		p.fibers[i] = f
	}
	return p
}

// start launches one parked goroutine per fiber. Fiber 1 runs main and
// starts claimed; all others run loop and start Free.
func (p *FiberPool) start(main, loop func(*Fiber)) {
	for i, f := range p.fibers {
		body := loop
		if i == 0 {
			body = main
		} else {
			p.free[i].Store(true)
		}

		p.wg.Add(1)
		go func(f *Fiber, body func(*Fiber)) {
			defer p.wg.Done()
			f.park()
			body(f)
		}(f, body)
	}
}

// close terminates every fiber still parked and waits for all fiber
// goroutines to exit. Must only be called once no thread is running a fiber.
func (p *FiberPool) close() {
	p.closeOnce.Do(func() { close(p.closed) })
	p.wg.Wait()
}

func (p *FiberPool) Len() int { return len(p.fibers) }

// Get returns the fiber with the given id, or nil if out of range.
func (p *FiberPool) Get(id uint32) *Fiber {
	if id == 0 || int(id) > len(p.fibers) {
		return nil
	}
	return p.fibers[id-1]
}

// claimFree scans for a Free fiber and claims it. It returns nil if every
// fiber is busy or parked.
func (p *FiberPool) claimFree() *Fiber {
	for i := range p.free {
		if p.free[i].CompareAndSwap(true, false) {
			return p.fibers[i]
		}
	}
	return nil
}

// tryClaimWaiting claims the Waiting flag of fiber id.
func (p *FiberPool) tryClaimWaiting(id uint32) bool {
	return p.waiting[id-1].CompareAndSwap(true, false)
}

func (p *FiberPool) markFree(id uint32) {
	if p.waiting[id-1].Load() {
		panic(fmt.Errorf("%w: fiber %d", ErrFlagConflict, id))
	}
	p.free[id-1].Store(true)
}

func (p *FiberPool) markWaiting(id uint32) {
	if p.free[id-1].Load() {
		panic(fmt.Errorf("%w: fiber %d", ErrFlagConflict, id))
	}
	p.waiting[id-1].Store(true)
}

// FreeCount returns a snapshot of the number of Free fibers.
func (p *FiberPool) FreeCount() int {
	n := 0
	for i := range p.free {
		if p.free[i].Load() {
			n++
		}
	}
	return n
}

// WaitingCount returns a snapshot of the number of fibers flagged Waiting.
func (p *FiberPool) WaitingCount() int {
	n := 0
	for i := range p.waiting {
		if p.waiting[i].Load() {
			n++
		}
	}
	return n
}
