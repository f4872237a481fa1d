package core

import (
	"fmt"
	"runtime"
)

// Thread is a worker slot bound to one OS thread for the lifetime of the job
// system. At most one fiber holds a given thread at any instant; that fiber is
// the only one running on it.
//
// Ids range over [1, numThreads]. Thread 1 is the goroutine that called
// BootstrapMainTask.
type Thread struct {
	id uint32
	// osThreadID is the kernel id of the OS thread the home context is
	// pinned to (0 where the platform does not expose one).
	osThreadID int
	// home is the resume channel of the context that created the thread.
	// The thread may only terminate once control is handed back to it.
	home chan *Thread
}

func newThread(id uint32) *Thread {
	return &Thread{id: id, home: make(chan *Thread, 1)}
}

func (t *Thread) ID() uint32 { return t.id }

func (t *Thread) OSThreadID() int { return t.osThreadID }

func (t *Thread) String() string {
	return fmt.Sprintf("Thread(%d, os=%d)", t.id, t.osThreadID)
}

// pin binds the calling goroutine to its OS thread and records the thread id.
// The returned func undoes the binding.
func (t *Thread) pin() func() {
	runtime.LockOSThread()
	t.osThreadID = osThreadID()
	return runtime.UnlockOSThread
}

// enter hands this thread to f and blocks until some fiber hands it back home.
func (t *Thread) enter(f *Fiber) {
	f.resume <- t
	<-t.home
}

// resolveThreadCount caps the requested thread count by the available
// hardware parallelism. maxNumThreads == 0 means no cap.
func resolveThreadCount(maxNumThreads int) int {
	hw := runtime.GOMAXPROCS(0)
	if maxNumThreads > 0 && hw > maxNumThreads {
		return maxNumThreads
	}
	return hw
}
