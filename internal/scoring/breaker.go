package scoring

import (
	"sync"
	"time"
)

// breaker tracks consecutive inference failures:
// - Open after N consecutive failures; while open, remote calls are skipped
//   and the fallback verdict is used, so a dead service does not cost a
//   timeout per transaction.
// - While open, one trial call is let through per cooldown interval; M
//   consecutive trial successes close the circuit again.
type breaker struct {
	mu               sync.Mutex
	open             bool
	lastTrial        time.Time
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
}

func newBreaker() *breaker {
	return &breaker{
		failureThreshold: 5,
		successThreshold: 3,
		cooldown:         10 * time.Second,
	}
}

// Allow reports whether a remote call may proceed now. While open it admits
// at most one trial per cooldown interval.
func (b *breaker) Allow(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return true
	}
	if now.Sub(b.lastTrial) >= b.cooldown {
		b.lastTrial = now
		return true
	}
	return false
}

// RecordFailure returns true once the circuit transitions to open.
func (b *breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount++
	b.successCount = 0
	if !b.open && b.failureCount >= b.failureThreshold {
		b.open = true
		b.lastTrial = time.Now()
		return true
	}
	return false
}

// RecordSuccess returns true once the circuit transitions back to closed.
func (b *breaker) RecordSuccess() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		b.failureCount = 0
		return false
	}
	b.successCount++
	if b.successCount >= b.successThreshold {
		b.open = false
		b.failureCount = 0
		b.successCount = 0
		return true
	}
	return false
}
