package core

import (
	"errors"
	"sync"
	"testing"
)

func newFreePool(n int) *FiberPool {
	p := newFiberPool(nil, n)
	for i := range p.free {
		p.free[i].Store(true)
	}
	return p
}

// TestFiberPool_IDs verifies ids are dense and 1-based
func TestFiberPool_IDs(t *testing.T) {
	p := newFiberPool(nil, 4)

	for id := uint32(1); id <= 4; id++ {
		f := p.Get(id)
		if f == nil || f.ID() != id {
			t.Fatalf("Get(%d) = %v", id, f)
		}
		if CurrentFiberID(f.ctx) != id {
			t.Errorf("fiber %d ctx reports id %d", id, CurrentFiberID(f.ctx))
		}
	}
	if p.Get(0) != nil || p.Get(5) != nil {
		t.Error("Get out of range should return nil")
	}
}

// TestFiberPool_ClaimFreeSingleWinner verifies CAS claiming
// Given: A pool of 16 Free fibers
// When: 64 goroutines race to claim fibers
// Then: Exactly 16 claims succeed and no fiber is claimed twice
func TestFiberPool_ClaimFreeSingleWinner(t *testing.T) {
	const fibers, claimants = 16, 64
	p := newFreePool(fibers)

	var mu sync.Mutex
	won := make(map[uint32]int)
	misses := 0

	var wg sync.WaitGroup
	start := make(chan struct{})
	for range claimants {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			f := p.claimFree()
			mu.Lock()
			defer mu.Unlock()
			if f == nil {
				misses++
				return
			}
			won[f.id]++
		}()
	}
	close(start)
	wg.Wait()

	if len(won) != fibers {
		t.Errorf("claimed %d distinct fibers, want %d", len(won), fibers)
	}
	for id, n := range won {
		if n != 1 {
			t.Errorf("fiber %d claimed %d times", id, n)
		}
	}
	if misses != claimants-fibers {
		t.Errorf("misses = %d, want %d", misses, claimants-fibers)
	}
	if p.FreeCount() != 0 {
		t.Errorf("FreeCount = %d after claiming all", p.FreeCount())
	}
}

// TestFiberPool_TryClaimWaitingSingleWinner verifies only one resumer wins a waiter
func TestFiberPool_TryClaimWaitingSingleWinner(t *testing.T) {
	p := newFiberPool(nil, 2)
	p.markWaiting(2)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.tryClaimWaiting(2) {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("tryClaimWaiting winners = %d, want 1", wins)
	}
	if p.WaitingCount() != 0 {
		t.Errorf("WaitingCount = %d after claim", p.WaitingCount())
	}
}

// TestFiberPool_FlagConflict verifies a fiber is never Free and Waiting at once
func TestFiberPool_FlagConflict(t *testing.T) {
	t.Run("waiting then free", func(t *testing.T) {
		p := newFiberPool(nil, 1)
		p.markWaiting(1)

		err := recoverError(func() { p.markFree(1) })
		if !errors.Is(err, ErrFlagConflict) {
			t.Fatalf("markFree on waiting fiber: err = %v, want ErrFlagConflict", err)
		}
	})

	t.Run("free then waiting", func(t *testing.T) {
		p := newFreePool(1)

		err := recoverError(func() { p.markWaiting(1) })
		if !errors.Is(err, ErrFlagConflict) {
			t.Fatalf("markWaiting on free fiber: err = %v, want ErrFlagConflict", err)
		}
	})
}

func TestFiberPool_ClaimFreeEmpty(t *testing.T) {
	p := newFiberPool(nil, 3)

	if f := p.claimFree(); f != nil {
		t.Errorf("claimFree on pool with no Free fibers = %v", f)
	}
}

// TestFiberPool_CloseTerminatesParked verifies close exits every parked fiber goroutine
func TestFiberPool_CloseTerminatesParked(t *testing.T) {
	js := &JobSystem{}
	p := newFiberPool(js, 8)
	js.fibers = p

	ran := make(chan uint32, 8)
	body := func(f *Fiber) { ran <- f.id }
	p.start(body, body)

	done := make(chan struct{})
	go func() {
		p.close()
		close(done)
	}()
	<-done

	if len(ran) != 0 {
		t.Errorf("%d fibers ran without being handed a thread", len(ran))
	}
}

func TestResolveThreadCount(t *testing.T) {
	withGOMAXPROCS(t, 4)

	tests := []struct {
		max  int
		want int
	}{
		{0, 4},
		{2, 2},
		{4, 4},
		{16, 4},
	}
	for _, tt := range tests {
		if got := resolveThreadCount(tt.max); got != tt.want {
			t.Errorf("resolveThreadCount(%d) = %d, want %d", tt.max, got, tt.want)
		}
	}
}
