package streamclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudlens/internal/domain"
)

func frame(id string) string {
	return fmt.Sprintf(`data: {"event_id":%q,"transaction_id":"tx_%s","risk":"OK","score":0.1,"explanation":"routine","ts":"2026-08-28T00:00:00Z"}`+"\n\n", id, id)
}

// scriptedStream serves one scripted SSE response per connection, in order,
// and keeps the last connection open until the test ends.
type scriptedStream struct {
	t       *testing.T
	scripts []func(w http.ResponseWriter, done <-chan struct{})
	conns   atomic.Int32
	done    chan struct{}
}

func newScriptedStream(t *testing.T, scripts ...func(w http.ResponseWriter, done <-chan struct{})) (*scriptedStream, *httptest.Server) {
	ss := &scriptedStream{t: t, scripts: scripts, done: make(chan struct{})}
	srv := httptest.NewServer(ss)
	t.Cleanup(func() {
		close(ss.done)
		srv.Close()
	})
	return ss, srv
}

func (ss *scriptedStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(ss.conns.Add(1)) - 1
	if n >= len(ss.scripts) {
		n = len(ss.scripts) - 1
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	w.(http.Flusher).Flush()
	ss.scripts[n](w, ss.done)
}

func sendFrames(ids ...string) func(w http.ResponseWriter, done <-chan struct{}) {
	return func(w http.ResponseWriter, done <-chan struct{}) {
		for _, id := range ids {
			fmt.Fprint(w, frame(id))
		}
		w.(http.Flusher).Flush()
		<-done
	}
}

func sendFramesThenClose(ids ...string) func(w http.ResponseWriter, done <-chan struct{}) {
	return func(w http.ResponseWriter, done <-chan struct{}) {
		for _, id := range ids {
			fmt.Fprint(w, frame(id))
		}
		w.(http.Flusher).Flush()
	}
}

func newTestClient(t *testing.T, url string, received chan<- domain.Insight) *Client {
	return New(url,
		func(ins domain.Insight) { received <- ins },
		WithReconnectDelay(20*time.Millisecond),
		WithLogger(slog.New(slog.DiscardHandler)),
	)
}

func waitInsight(t *testing.T, received <-chan domain.Insight) domain.Insight {
	t.Helper()
	select {
	case ins := <-received:
		return ins
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an insight")
		return domain.Insight{}
	}
}

func TestClientReceivesFrames(t *testing.T) {
	received := make(chan domain.Insight, 16)
	_, srv := newScriptedStream(t, sendFrames("a", "b"))

	c := newTestClient(t, srv.URL, received)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Equal(t, "a", waitInsight(t, received).EventID)
	b := waitInsight(t, received)
	assert.Equal(t, "b", b.EventID)
	assert.Equal(t, "tx_b", b.TransactionID)

	// Recent is newest first and both ids count as newly arrived.
	recent := c.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].EventID)
	assert.Equal(t, "a", recent[1].EventID)
	assert.True(t, c.IsNew("a"))
	assert.True(t, c.IsNew("b"))
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	received := make(chan domain.Insight, 16)
	ss, srv := newScriptedStream(t,
		sendFramesThenClose("first"),
		sendFrames("second"),
	)

	c := newTestClient(t, srv.URL, received)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Equal(t, "first", waitInsight(t, received).EventID)
	assert.Equal(t, "second", waitInsight(t, received).EventID)
	assert.Equal(t, int32(2), ss.conns.Load(), "exactly one reconnect after the drop")
	assert.Equal(t, StateOpen, c.State())
}

func TestClientRetriesAfterBadStatus(t *testing.T) {
	received := make(chan domain.Insight, 16)
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if conns.Add(1) == 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, frame("after_recovery"))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, received)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Equal(t, "after_recovery", waitInsight(t, received).EventID)
	assert.GreaterOrEqual(t, conns.Load(), int32(2))
}

func TestClientDropsMalformedFrameAndContinues(t *testing.T) {
	received := make(chan domain.Insight, 16)
	ss, srv := newScriptedStream(t, func(w http.ResponseWriter, done <-chan struct{}) {
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, "data: {\"transaction_id\":\"missing_event_id\",\"risk\":\"OK\"}\n\n")
		fmt.Fprint(w, ": comment line\n\n")
		fmt.Fprint(w, frame("valid"))
		w.(http.Flusher).Flush()
		<-done
	})

	c := newTestClient(t, srv.URL, received)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	assert.Equal(t, "valid", waitInsight(t, received).EventID)
	assert.Equal(t, int32(1), ss.conns.Load(), "malformed frames must not drop the connection")
	require.Len(t, c.Recent(), 1)
}

func TestClientStopsOnCancel(t *testing.T) {
	received := make(chan domain.Insight, 16)
	_, srv := newScriptedStream(t, sendFrames("a"))

	c := newTestClient(t, srv.URL, received)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	waitInsight(t, received)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop on cancel")
	}
	assert.Equal(t, StateClosed, c.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "closed", StateClosed.String())
}
