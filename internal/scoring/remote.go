package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"fraudlens/internal/domain"
	"fraudlens/internal/platform/config"
	"fraudlens/internal/scoring/metrics"
)

// RemoteScorer calls an external model-inference endpoint. Exactly one
// attempt is made per transaction under a hard timeout; every failure path
// returns the fixed fallback so worst-case scoring latency is bounded.
type RemoteScorer struct {
	endpoint  string
	timeout   time.Duration
	maxTokens int
	client    *http.Client
	breaker   *breaker
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewRemote builds the inference client. metrics may be nil.
func NewRemote(cfg config.Scoring, logger *slog.Logger, m *metrics.Metrics) *RemoteScorer {
	return &RemoteScorer{
		endpoint:  cfg.Endpoint,
		timeout:   cfg.Timeout,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{},
		breaker:   newBreaker(),
		logger:    logger,
		metrics:   m,
	}
}

// inferenceRequest is the structured prompt sent to the inference boundary.
type inferenceRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

// inferenceResponse wraps the model's textual payload. Some gateways return
// the verdict JSON directly; both shapes are accepted.
type inferenceResponse struct {
	Completion string `json:"completion"`
}

// verdict is the shape the model response must parse into.
type verdict struct {
	Risk        domain.Risk    `json:"risk"`
	Score       float64        `json:"score"`
	Explanation string         `json:"explanation"`
	Flags       map[string]any `json:"flags"`
}

// Score asks the inference service for a verdict, substituting the fixed
// fallback on timeout, transport error, or a malformed response.
func (s *RemoteScorer) Score(ctx context.Context, tx domain.Transaction) domain.RiskScore {
	start := time.Now()
	if !s.breaker.Allow(start) {
		s.metrics.ObserveFallback("circuit_open")
		s.metrics.ObserveVerdict(string(domain.RiskReview), time.Since(start).Seconds())
		return Fallback()
	}

	v, err := s.invoke(ctx, tx)
	if err != nil {
		if s.breaker.RecordFailure() {
			s.logger.Error("inference circuit opened", "endpoint", s.endpoint)
			s.metrics.SetBreakerOpen(true)
		}
		s.logger.Warn("inference failed, substituting fallback",
			"transaction_id", tx.TransactionID,
			"error", err,
		)
		s.metrics.ObserveFallback(failureReason(err))
		s.metrics.ObserveVerdict(string(domain.RiskReview), time.Since(start).Seconds())
		return Fallback()
	}

	if s.breaker.RecordSuccess() {
		s.logger.Info("inference circuit closed", "endpoint", s.endpoint)
		s.metrics.SetBreakerOpen(false)
	}
	s.metrics.ObserveVerdict(string(v.Risk), time.Since(start).Seconds())
	return domain.RiskScore{
		Risk:        v.Risk,
		Score:       v.Score,
		Explanation: v.Explanation,
		Flags:       v.Flags,
	}
}

var errMalformedResponse = errors.New("malformed inference response")

// invoke performs the single scoring attempt.
func (s *RemoteScorer) invoke(ctx context.Context, tx domain.Transaction) (verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(inferenceRequest{
		Prompt:    buildPrompt(tx),
		MaxTokens: s.maxTokens,
	})
	if err != nil {
		return verdict{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return verdict{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return verdict{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return verdict{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return verdict{}, err
	}
	return parseVerdict(payload)
}

// buildPrompt serializes the transaction with the classification
// instruction the inference service expects.
func buildPrompt(tx domain.Transaction) string {
	raw, _ := json.Marshal(tx)
	return fmt.Sprintf(
		"Analyze this transaction for fraud: %s. Return JSON with risk (OK/REVIEW/LIKELY_FRAUD), score (0-1), and explanation.",
		raw,
	)
}

// parseVerdict defensively decodes the model payload. Anything that does not
// yield a known risk tier and a score in [0,1] counts as a failure.
func parseVerdict(payload []byte) (verdict, error) {
	raw := payload
	var envelope inferenceResponse
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Completion != "" {
		raw = []byte(envelope.Completion)
	}

	var v verdict
	if err := json.Unmarshal(raw, &v); err != nil {
		return verdict{}, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}
	if !v.Risk.Valid() {
		return verdict{}, fmt.Errorf("%w: unknown risk tier %q", errMalformedResponse, v.Risk)
	}
	if v.Score < 0 || v.Score > 1 {
		return verdict{}, fmt.Errorf("%w: score %v out of range", errMalformedResponse, v.Score)
	}
	return v, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, errMalformedResponse):
		return "malformed_response"
	default:
		return "transport"
	}
}
