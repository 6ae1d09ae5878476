package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fraudlens/internal/domain"
	"fraudlens/internal/hub"
	hubmetrics "fraudlens/internal/hub/metrics"
	"fraudlens/internal/normalize"
	"fraudlens/internal/pipeline"
	"fraudlens/internal/platform/config"
	"fraudlens/internal/platform/httpserver"
	"fraudlens/internal/platform/logger"
	platformredis "fraudlens/internal/platform/redis"
	"fraudlens/internal/scoring"
	scoringmetrics "fraudlens/internal/scoring/metrics"
	"fraudlens/internal/scoring/rules"
	"fraudlens/internal/scoring/rules/velocity"
	"fraudlens/internal/source"
	"fraudlens/internal/transport/stream"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Pipeline logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSrc, err := buildSource(cfg.Source, log)
	if err != nil {
		log.Error("source setup failed", "kind", cfg.Source.Kind, "error", err)
		os.Exit(1)
	}
	defer closeSrc()

	// An unreachable ingestion boundary is fatal at startup; recovery is a
	// process restart, not an internal retry loop.
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = src.Probe(probeCtx)
	cancel()
	if err != nil {
		log.Error("source probe failed", "kind", cfg.Source.Kind, "error", err)
		os.Exit(1)
	}

	scorer, err := buildScorer(ctx, cfg.Scoring, log)
	if err != nil {
		log.Error("scorer setup failed", "kind", cfg.Scoring.Kind, "error", err)
		os.Exit(1)
	}

	h := hub.New(cfg.Hub, log, hubmetrics.New())
	seedHub(h, cfg.Hub.SeedSamples, log)

	pipe := pipeline.New(src, scorer, h, cfg.Scoring.Workers, cfg.Scoring.Queue, log)
	router := stream.NewRouter(stream.New(h, cfg.Source.Kind, log))
	srv := httpserver.New(cfg.Server.Addr, router)

	pipeDone := make(chan error, 1)
	go func() { pipeDone <- pipe.Run(ctx) }()

	go func() {
		log.Info("fraudlens listening",
			"addr", cfg.Server.Addr,
			"source", cfg.Source.Kind,
			"scorer", cfg.Scoring.Kind,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := <-pipeDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("pipeline stopped with error", "error", err)
		os.Exit(1)
	}
}

// buildSource selects the ingestion adapter by configured kind.
func buildSource(cfg config.Source, log *slog.Logger) (source.Source, func(), error) {
	switch cfg.Kind {
	case "kafka":
		src, err := source.NewKafka(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	case "poll":
		return source.NewPoll(cfg, log), func() {}, nil
	case "synthetic":
		return source.NewSynthetic(), func() {}, nil
	default:
		return nil, nil, errors.New("unknown source kind " + cfg.Kind)
	}
}

// buildScorer selects the scorer by configured kind.
func buildScorer(ctx context.Context, cfg config.Scoring, log *slog.Logger) (scoring.Scorer, error) {
	switch cfg.Kind {
	case "remote":
		return scoring.NewRemote(cfg, log, scoringmetrics.New()), nil
	case "rules":
		store, err := buildVelocityStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return rules.New(store, log), nil
	default:
		return nil, errors.New("unknown scorer kind " + cfg.Kind)
	}
}

func buildVelocityStore(ctx context.Context, cfg config.Scoring) (velocity.Store, error) {
	if cfg.RedisURL == "" {
		return velocity.NewInMemory(velocity.DefaultWindow), nil
	}
	client, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return velocity.NewRedis(client.Client, velocity.DefaultWindow), nil
}

// seedHub pre-fills the catch-up buffer with scored sample insights so the
// first subscribers see data before the live stream produces anything.
func seedHub(h *hub.Hub, n int, log *slog.Logger) {
	if n <= 0 {
		return
	}
	sampler := rules.New(velocity.NewInMemory(velocity.DefaultWindow), log)
	insights := make([]domain.Insight, 0, n)
	for _, tx := range source.SampleTransactions(n) {
		insights = append(insights, normalize.Normalize(tx, sampler.Score(context.Background(), tx)))
	}
	h.Seed(insights)
}
