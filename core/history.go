package core

import (
	"sync"
	"time"
)

// JobExecutionRecord captures a completed job execution.
type JobExecutionRecord struct {
	Name string
	// FiberID is the fiber that ran the job.
	FiberID uint32
	// StartThreadID and EndThreadID differ when the job moved threads
	// across a Wait.
	StartThreadID uint32
	EndThreadID   uint32
	StartedAt     time.Time
	FinishedAt    time.Time
	Duration      time.Duration
	Panicked      bool
}

type executionHistory struct {
	mu    sync.Mutex
	items []JobExecutionRecord
	head  int
	count int
}

func newExecutionHistory(capacity int) *executionHistory {
	if capacity < 0 {
		capacity = defaultHistoryCapacity
	}
	return &executionHistory{items: make([]JobExecutionRecord, capacity)}
}

func (h *executionHistory) Add(record JobExecutionRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.items) == 0 {
		return
	}

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. limit <= 0 returns all.
func (h *executionHistory) Recent(limit int) []JobExecutionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}

	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]JobExecutionRecord, 0, limit)
	for i := range limit {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}
