package streamclient

import (
	"sync"
	"sync/atomic"
	"time"

	"fraudlens/internal/domain"
)

// recentBuffer is the capacity-bounded history of received insights, newest
// first, plus the transient set of recently arrived event ids. Highlight
// membership is independent of buffer membership: an insight stops being
// "new" after the TTL even while it stays in the buffer.
type recentBuffer struct {
	mu         sync.Mutex
	insights   []domain.Insight
	highlights map[string]time.Time
	capacity   int
	ttl        time.Duration
	now        func() time.Time
}

func newRecentBuffer(capacity int, ttl time.Duration, now func() time.Time) *recentBuffer {
	return &recentBuffer{
		insights:   make([]domain.Insight, 0, capacity),
		highlights: make(map[string]time.Time),
		capacity:   capacity,
		ttl:        ttl,
		now:        now,
	}
}

// add inserts newest-first, evicting the oldest entry once full.
func (b *recentBuffer) add(insight domain.Insight) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.insights = append(b.insights, domain.Insight{})
	copy(b.insights[1:], b.insights)
	b.insights[0] = insight
	if len(b.insights) > b.capacity {
		b.insights = b.insights[:b.capacity]
	}

	now := b.now()
	b.highlights[insight.EventID] = now
	b.pruneLocked(now)
}

func (b *recentBuffer) snapshot() []domain.Insight {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Insight, len(b.insights))
	copy(out, b.insights)
	return out
}

func (b *recentBuffer) isNew(eventID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	at, ok := b.highlights[eventID]
	if !ok {
		return false
	}
	if b.now().Sub(at) >= b.ttl {
		delete(b.highlights, eventID)
		return false
	}
	return true
}

// pruneLocked drops expired highlight entries. Caller must hold b.mu.
func (b *recentBuffer) pruneLocked(now time.Time) {
	for id, at := range b.highlights {
		if now.Sub(at) >= b.ttl {
			delete(b.highlights, id)
		}
	}
}

// atomicState is a lock-free State holder.
type atomicState struct {
	v atomic.Int32
}

func (s *atomicState) set(st State) { s.v.Store(int32(st)) }
func (s *atomicState) get() State   { return State(s.v.Load()) }
