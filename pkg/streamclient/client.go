// Package streamclient is the subscriber-side counterpart of the broadcast
// hub: a persistent SSE consumer with automatic reconnect, a bounded
// recent-history buffer, and transient new-item markers for presentation
// layers. It owns no rendering or filtering logic.
package streamclient

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"fraudlens/internal/domain"
)

// State is the connection lifecycle phase.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Defaults for the consumer contract.
const (
	DefaultReconnectDelay = 3 * time.Second
	DefaultBufferCapacity = 400
	DefaultHighlightTTL   = 3 * time.Second
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the HTTP client used to dial the stream.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithReconnectDelay overrides the fixed delay before the single reconnect
// attempt scheduled after a drop.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectDelay = d }
}

// WithBufferCapacity overrides the recent-history capacity.
func WithBufferCapacity(n int) Option {
	return func(c *Client) { c.bufferCap = n }
}

// WithHighlightTTL overrides how long an insight counts as newly arrived.
func WithHighlightTTL(d time.Duration) Option {
	return func(c *Client) { c.highlightTTL = d }
}

// WithLogger attaches a logger; the default discards nothing but writes
// through slog's default handler.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client consumes one push stream. Safe for concurrent use: Run owns the
// connection while Recent, IsNew, and State may be called from any
// goroutine.
type Client struct {
	url            string
	onInsight      func(domain.Insight)
	httpClient     *http.Client
	reconnectDelay time.Duration
	highlightTTL   time.Duration
	bufferCap      int
	logger         *slog.Logger
	now            func() time.Time

	buffer *recentBuffer
	state  atomicState
}

// New builds a client for the stream at url. onInsight is invoked for every
// parsed frame, catch-up and live alike; it may be nil.
func New(url string, onInsight func(domain.Insight), opts ...Option) *Client {
	c := &Client{
		url:            url,
		onInsight:      onInsight,
		httpClient:     &http.Client{},
		reconnectDelay: DefaultReconnectDelay,
		highlightTTL:   DefaultHighlightTTL,
		bufferCap:      DefaultBufferCapacity,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.buffer = newRecentBuffer(c.bufferCap, c.highlightTTL, c.now)
	return c
}

// Run maintains the connection until ctx is cancelled, the only terminal
// teardown. Each drop schedules exactly one reconnect after the fixed
// delay; the loop is sequential, so two connections never coexist.
func (c *Client) Run(ctx context.Context) error {
	for {
		c.state.set(StateConnecting)
		err := c.stream(ctx)
		c.state.set(StateClosed)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("stream connection lost, reconnecting",
			"url", c.url,
			"delay", c.reconnectDelay,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}
	}
}

// stream dials the endpoint and consumes frames until the connection ends.
// Malformed frames are dropped without closing the connection.
func (c *Client) stream(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	c.state.set(StateOpen)
	c.logger.Info("stream connected", "url", c.url)

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		payload = strings.TrimSpace(payload)
		if payload == "" {
			continue
		}
		insight, err := domain.ParseInsight([]byte(payload))
		if err != nil {
			c.logger.Debug("dropping malformed frame", "error", err)
			continue
		}
		c.buffer.add(insight)
		if c.onInsight != nil {
			c.onInsight(insight)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	// Clean EOF still counts as a drop; the server never closes a healthy
	// stream on purpose.
	return io.EOF
}

// Recent returns a copy of the recent-history buffer, newest first.
func (c *Client) Recent() []domain.Insight {
	return c.buffer.snapshot()
}

// IsNew reports whether the insight arrived within the highlight window.
func (c *Client) IsNew(eventID string) bool {
	return c.buffer.isNew(eventID)
}

// State returns the current connection phase.
func (c *Client) State() State {
	return c.state.get()
}
