// Package velocity tracks how many transactions share a card tail inside a
// short burst window. The in-memory store is the default; the Redis store
// serves deployments running more than one pipeline instance.
package velocity

import (
	"context"
	"time"
)

// DefaultWindow is the burst window the rules classifier evaluates.
const DefaultWindow = 2 * time.Second

// Store records one observation per transaction and reports how many
// observations for the same card tail fall inside the window, the new one
// included.
type Store interface {
	Observe(ctx context.Context, cardTail string, at time.Time) (int, error)
}
