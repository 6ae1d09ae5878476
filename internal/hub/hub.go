// Package hub owns the set of live subscriber connections and fans each
// insight out to all of them. The registry is the single source of truth
// for who is subscribed and the only mutable shared state in the pipeline.
package hub

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"fraudlens/internal/domain"
	"fraudlens/internal/hub/metrics"
	"fraudlens/internal/platform/config"
)

// Subscriber is one live push connection. Created by Subscribe, owned
// exclusively by the hub, destroyed on unsubscribe or write failure. A
// reconnecting client is a brand-new Subscriber.
type Subscriber struct {
	id     string
	frames chan []byte
	closed bool // guarded by the hub mutex
}

// ID returns the connection identifier, used for log correlation.
func (s *Subscriber) ID() string { return s.id }

// Frames is the outbound frame stream. The channel is closed when the hub
// deregisters the subscriber.
func (s *Subscriber) Frames() <-chan []byte { return s.frames }

// Hub fans serialized insights out to every registered subscriber and
// replays a bounded catch-up buffer to each new one.
type Hub struct {
	mu      sync.Mutex
	subs    map[*Subscriber]struct{}
	catchup [][]byte // insertion order, oldest first

	catchupCap int
	bufferCap  int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New builds an empty hub. metrics may be nil.
func New(cfg config.Hub, logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		subs:       make(map[*Subscriber]struct{}),
		catchupCap: cfg.CatchUp,
		bufferCap:  cfg.SubscriberBuffer,
		logger:     logger,
		metrics:    m,
	}
}

// Subscribe registers a new connection and queues the catch-up buffer into
// it, in original insertion order, before any later publish can reach it.
func (h *Hub) Subscribe() *Subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Buffer holds the full catch-up set plus live headroom so the replay
	// can never be the overflow that drops a brand-new subscriber.
	sub := &Subscriber{
		id:     uuid.NewString(),
		frames: make(chan []byte, h.bufferCap+h.catchupCap),
	}
	for _, frame := range h.catchup {
		sub.frames <- frame
	}
	h.subs[sub] = struct{}{}
	h.metrics.SetSubscribers(len(h.subs))
	h.logger.Info("subscriber connected", "subscriber", sub.id, "total", len(h.subs))
	return sub
}

// Unsubscribe removes the connection. Idempotent.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub, "disconnect")
}

// Publish serializes the insight once, records it in the catch-up buffer,
// and offers the frame to every live subscriber without blocking. A
// subscriber whose buffer is full is dropped, not waited on: a consumer
// that far behind is indistinguishable from a dead one, and its reconnect
// path already covers recovery. Errors never reach the caller.
func (h *Hub) Publish(insight domain.Insight) {
	frame, err := insight.Encode()
	if err != nil {
		h.logger.Error("dropping unencodable insight", "event_id", insight.EventID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.catchup = append(h.catchup, frame)
	if len(h.catchup) > h.catchupCap {
		h.catchup = h.catchup[len(h.catchup)-h.catchupCap:]
	}

	for sub := range h.subs {
		select {
		case sub.frames <- frame:
		default:
			h.remove(sub, "overflow")
			h.metrics.IncDropped()
		}
	}
	h.metrics.IncPublished()
}

// Seed pre-populates the catch-up buffer, typically with sample insights at
// boot so the first subscribers see data immediately.
func (h *Hub) Seed(insights []domain.Insight) {
	for _, ins := range insights {
		h.Publish(ins)
	}
}

// Len reports the current number of live subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// remove deregisters and closes a subscriber. Caller must hold h.mu.
// Closing under the mutex keeps Publish from writing to a closed channel.
func (h *Hub) remove(sub *Subscriber, reason string) {
	if sub.closed {
		return
	}
	sub.closed = true
	delete(h.subs, sub)
	close(sub.frames)
	h.metrics.SetSubscribers(len(h.subs))
	h.logger.Info("subscriber removed", "subscriber", sub.id, "reason", reason, "total", len(h.subs))
}
