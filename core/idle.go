package core

import (
	"runtime"
	"time"
)

// IdleStrategy selects what a scheduler loop does on a pass that found
// neither a resumable waiter nor a queued job.
type IdleStrategy int

const (
	// IdleYield yields the goroutine to the Go scheduler and polls again.
	IdleYield IdleStrategy = iota

	// IdleSpin polls again immediately.
	IdleSpin

	// IdleBackoff sleeps for an exponentially growing delay, reset whenever
	// work is found.
	IdleBackoff
)

func (s IdleStrategy) String() string {
	switch s {
	case IdleYield:
		return "yield"
	case IdleSpin:
		return "spin"
	case IdleBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// ParseIdleStrategy maps a name produced by String back to a strategy.
func ParseIdleStrategy(name string) (IdleStrategy, bool) {
	switch name {
	case "yield", "":
		return IdleYield, true
	case "spin":
		return IdleSpin, true
	case "backoff":
		return IdleBackoff, true
	default:
		return IdleYield, false
	}
}

// IdlePolicy defines idle behavior of the scheduler loop.
type IdlePolicy struct {
	Strategy IdleStrategy

	// InitialDelay is the sleep after the first idle pass (IdleBackoff only)
	InitialDelay time.Duration

	// MaxDelay caps the sleep between passes (IdleBackoff only)
	MaxDelay time.Duration

	// BackoffRatio is the multiplier for delay after each idle pass (e.g., 2.0 for exponential)
	// For example, with InitialDelay=10µs and BackoffRatio=2.0:
	// - pass 1 delay: 10µs
	// - pass 2 delay: 20µs
	// - pass 3 delay: 40µs (capped by MaxDelay)
	BackoffRatio float64
}

// DefaultIdlePolicy yields between idle passes.
func DefaultIdlePolicy() IdlePolicy {
	return IdlePolicy{
		Strategy:     IdleYield,
		InitialDelay: 10 * time.Microsecond,
		MaxDelay:     time.Millisecond,
		BackoffRatio: 2.0,
	}
}

// idle runs one idle step. pass is 0-indexed (0 = first idle pass in a row).
func (p IdlePolicy) idle(pass int) {
	switch p.Strategy {
	case IdleSpin:
	case IdleBackoff:
		if d := p.calculateDelay(pass); d > 0 {
			time.Sleep(d)
			return
		}
		runtime.Gosched()
	default:
		runtime.Gosched()
	}
}

func (p IdlePolicy) calculateDelay(pass int) time.Duration {
	if p.InitialDelay == 0 {
		return 0
	}

	// Calculate exponential backoff
	delay := float64(p.InitialDelay)
	for i := 0; i < pass; i++ {
		delay *= p.BackoffRatio
		if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
			break
		}
	}

	// Cap at MaxDelay
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	return time.Duration(delay)
}
