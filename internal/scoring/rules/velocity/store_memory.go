package velocity

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore implements Store with a per-tail sliding window. Single
// instance only; use RedisStore when the pipeline runs replicated.
type InMemoryStore struct {
	mu      sync.Mutex
	window  time.Duration
	windows map[string][]time.Time
}

// NewInMemory creates an in-memory velocity store.
func NewInMemory(window time.Duration) *InMemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &InMemoryStore{
		window:  window,
		windows: make(map[string][]time.Time),
	}
}

// Observe appends the observation and returns the in-window count.
func (s *InMemoryStore) Observe(_ context.Context, cardTail string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := at.Add(-s.window)
	kept := s.windows[cardTail][:0]
	for _, ts := range s.windows[cardTail] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, at)
	s.windows[cardTail] = kept
	return len(kept), nil
}
