// Package pipeline runs the ingest → score → normalize → fan-out loop.
//
// Scoring calls are the dominant suspension points, so they run on a fixed
// worker pool; the pool size caps concurrent outbound inference calls. The
// published order must still match intake order, so intake assigns each
// transaction a slot in a FIFO at admission time and a single forwarder
// drains that FIFO in order, waiting on each slot's verdict before
// normalizing and publishing. Workers may complete out of order; the
// forwarder is the single-writer merge point that restores the total order.
package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fraudlens/internal/domain"
	"fraudlens/internal/hub"
	"fraudlens/internal/normalize"
	"fraudlens/internal/scoring"
	"fraudlens/internal/source"
)

// Pipeline wires one source, one scorer, and one hub.
type Pipeline struct {
	source  source.Source
	scorer  scoring.Scorer
	hub     *hub.Hub
	workers int
	queue   int
	logger  *slog.Logger
}

// New builds a pipeline. workers caps concurrent scoring calls; queue
// bounds admitted-but-unpublished transactions, back-pressuring the source
// when full.
func New(src source.Source, scorer scoring.Scorer, h *hub.Hub, workers, queue int, logger *slog.Logger) *Pipeline {
	if workers < 1 {
		workers = 1
	}
	if queue < workers {
		queue = workers
	}
	return &Pipeline{
		source:  src,
		scorer:  scorer,
		hub:     h,
		workers: workers,
		queue:   queue,
		logger:  logger,
	}
}

// slot carries one transaction through scoring. done has capacity 1 so a
// worker never blocks handing over its verdict.
type slot struct {
	tx   domain.Transaction
	done chan domain.RiskScore
}

// Run processes transactions until ctx is cancelled, then stops intake,
// lets in-flight scoring finish or time out, flushes the FIFO, and exits.
func (p *Pipeline) Run(ctx context.Context) error {
	pending := make(chan *slot, p.queue) // admission order, drained by the forwarder
	work := make(chan *slot, p.queue)    // same slots, claimed by workers

	g, ctx := errgroup.WithContext(ctx)

	// Intake. Enqueues to pending first so the forwarder's view of the
	// order is fixed before any worker can touch the slot.
	g.Go(func() error {
		defer close(pending)
		defer close(work)
		err := p.source.Run(ctx, func(tx domain.Transaction) {
			s := &slot{tx: tx, done: make(chan domain.RiskScore, 1)}
			pending <- s
			work <- s
		})
		if err != nil && ctx.Err() == nil {
			p.logger.Error("source stopped", "error", err)
			return err
		}
		return nil
	})

	// Scoring workers. Shutdown must not abort a claimed transaction:
	// the scorer applies its own timeout, so score with a detached context
	// and let the call complete or time out.
	for range p.workers {
		g.Go(func() error {
			for s := range work {
				s.done <- p.scorer.Score(context.WithoutCancel(ctx), s.tx)
			}
			return nil
		})
	}

	// Forwarder: the single-writer merge point.
	g.Go(func() error {
		for s := range pending {
			verdict := <-s.done
			insight := normalize.Normalize(s.tx, verdict)
			p.hub.Publish(insight)
			p.logger.Debug("insight published",
				"event_id", insight.EventID,
				"transaction_id", insight.TransactionID,
				"risk", insight.Risk,
			)
		}
		return nil
	})

	return g.Wait()
}
