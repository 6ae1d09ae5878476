package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudlens/internal/domain"
	"fraudlens/internal/hub"
	"fraudlens/internal/platform/config"
	"fraudlens/internal/scoring"
	"fraudlens/internal/source"
)

// listSource emits a fixed set of transactions, then blocks until cancel.
type listSource struct {
	txs []domain.Transaction
}

func (s *listSource) Probe(ctx context.Context) error { return nil }

func (s *listSource) Run(ctx context.Context, emit source.EmitFunc) error {
	for _, tx := range s.txs {
		emit(tx)
	}
	<-ctx.Done()
	return ctx.Err()
}

// jitterScorer sleeps a random few milliseconds so completions race.
type jitterScorer struct {
	calls atomic.Int32
}

func (s *jitterScorer) Score(ctx context.Context, tx domain.Transaction) domain.RiskScore {
	s.calls.Add(1)
	time.Sleep(time.Duration(rand.IntN(5)) * time.Millisecond)
	return domain.RiskScore{Risk: domain.RiskOK, Score: 0.1, Explanation: "ok"}
}

func newTestHub() *hub.Hub {
	return hub.New(config.Hub{CatchUp: 0, SubscriberBuffer: 1024}, slog.New(slog.DiscardHandler), nil)
}

func collect(sub *hub.Subscriber, n int, timeout time.Duration) ([]domain.Insight, error) {
	deadline := time.After(timeout)
	out := make([]domain.Insight, 0, n)
	for len(out) < n {
		select {
		case frame, ok := <-sub.Frames():
			if !ok {
				return out, fmt.Errorf("subscriber closed after %d frames", len(out))
			}
			ins, err := domain.ParseInsight(frame)
			if err != nil {
				return out, err
			}
			out = append(out, ins)
		case <-deadline:
			return out, fmt.Errorf("timed out after %d frames", len(out))
		}
	}
	return out, nil
}

// Insights must be published in intake order even though scoring latencies
// vary per transaction.
func TestPipelinePreservesIntakeOrder(t *testing.T) {
	const n = 200
	txs := make([]domain.Transaction, 0, n)
	for i := range n {
		txs = append(txs, domain.Transaction{TransactionID: fmt.Sprintf("tx_%04d", i)})
	}

	h := newTestHub()
	sub := h.Subscribe()
	scorer := &jitterScorer{}
	p := New(&listSource{txs: txs}, scorer, h, 8, 32, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	got, err := collect(sub, n, 10*time.Second)
	require.NoError(t, err)

	for i, ins := range got {
		assert.Equal(t, fmt.Sprintf("tx_%04d", i), ins.TransactionID)
	}
	assert.Equal(t, int32(n), scorer.calls.Load())

	cancel()
	assert.NoError(t, <-done)
}

// A scorer that always falls back still yields one valid insight per
// transaction: subscribers see fallback verdicts, not gaps.
func TestPipelineSurvivesScoringOutage(t *testing.T) {
	h := newTestHub()
	sub := h.Subscribe()
	src := &listSource{txs: []domain.Transaction{
		{TransactionID: "tx_1", MerchantName: "Online Casino", Amount: 5000},
	}}

	fallback := scoring.ScorerFunc(func(ctx context.Context, tx domain.Transaction) domain.RiskScore {
		return scoring.Fallback()
	})
	p := New(src, fallback, h, 2, 4, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = p.Run(ctx) }()

	got, err := collect(sub, 1, 5*time.Second)
	require.NoError(t, err)

	ins := got[0]
	assert.Equal(t, domain.RiskReview, ins.Risk)
	assert.Equal(t, scoring.FallbackScore, ins.Score)
	assert.Equal(t, scoring.FallbackExplanation, ins.Explanation)
	assert.Equal(t, "tx_1", ins.TransactionID)
	assert.Equal(t, "Online Casino", ins.MerchantName)
	assert.Equal(t, 5000.0, ins.Amount)
	assert.NotEmpty(t, ins.EventID)
}

func TestPipelineStopsOnCancel(t *testing.T) {
	h := newTestHub()
	p := New(&listSource{}, &jitterScorer{}, h, 2, 4, slog.New(slog.DiscardHandler))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop on cancel")
	}
}
