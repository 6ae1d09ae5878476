// Package source provides the ingestion adapters that feed raw transactions
// into the pipeline. All adapters share the same contract: a startup probe
// whose failure is fatal, and a run loop that skips malformed records and
// only ever stops on context cancellation.
package source

import (
	"context"
	"errors"

	"fraudlens/internal/domain"
)

// ErrSourceUnavailable marks an ingestion boundary that cannot be reached.
// Fatal at startup; the process owner decides whether to restart.
var ErrSourceUnavailable = errors.New("source unavailable")

// EmitFunc receives each transaction the adapter produces. Implementations
// may block to exert back-pressure on the adapter's intake loop.
type EmitFunc func(domain.Transaction)

// Source produces an unbounded, at-least-once sequence of transactions.
// Ordering is guaranteed only within a single partition or poll cycle.
type Source interface {
	// Probe verifies the underlying transport is reachable. Called once at
	// startup; an error here is a fatal SourceConnectError.
	Probe(ctx context.Context) error

	// Run delivers transactions to emit until ctx is cancelled, then returns
	// ctx.Err(). Malformed individual records are logged and skipped, never
	// fatal.
	Run(ctx context.Context, emit EmitFunc) error
}
