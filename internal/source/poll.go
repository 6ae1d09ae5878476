package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"fraudlens/internal/domain"
	"fraudlens/internal/platform/config"
)

// PollSource queries an external endpoint on a fixed interval. Each cycle
// may return zero or more transaction records; the endpoint is expected to
// only hand out records it has not returned before.
type PollSource struct {
	endpoint string
	interval time.Duration
	limit    int
	client   *http.Client
	logger   *slog.Logger
}

// NewPoll builds a polling adapter against cfg.Endpoint.
func NewPoll(cfg config.Source, logger *slog.Logger) *PollSource {
	return &PollSource{
		endpoint: cfg.Endpoint,
		interval: cfg.PollInterval,
		limit:    cfg.PollLimit,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// Probe performs one query. An unreachable endpoint at startup is fatal;
// transient failures after startup are handled per cycle instead.
func (s *PollSource) Probe(ctx context.Context) error {
	if s.endpoint == "" {
		return fmt.Errorf("%w: poll endpoint not configured", ErrSourceUnavailable)
	}
	if _, err := s.query(ctx, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	return nil
}

// Run queries the endpoint every interval until ctx is cancelled. A failed
// cycle is logged and retried on the next tick; malformed elements within a
// response are skipped individually.
func (s *PollSource) Run(ctx context.Context, emit EmitFunc) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		raws, err := s.query(ctx, s.limit)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("poll cycle failed", "endpoint", s.endpoint, "error", err)
			continue
		}
		for _, raw := range raws {
			var tx domain.Transaction
			if err := json.Unmarshal(raw, &tx); err != nil {
				s.logger.Warn("skipping malformed record", "endpoint", s.endpoint, "error", err)
				continue
			}
			emit(tx)
		}
	}
}

// query fetches up to limit records. The endpoint may respond with a bare
// JSON array or a {"records": [...]} envelope.
func (s *PollSource) query(ctx context.Context, limit int) ([]json.RawMessage, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err == nil {
		return raws, nil
	}
	var envelope struct {
		Records []json.RawMessage `json:"records"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return envelope.Records, nil
}
