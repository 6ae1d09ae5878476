// Package scoring assigns a fraud-risk verdict to each transaction. The
// remote scorer calls an external inference service; availability of a
// verdict is prioritized over verdict accuracy, so every failure path ends
// in a fixed fallback instead of an error.
package scoring

import (
	"context"

	"fraudlens/internal/domain"
)

// FallbackExplanation is the exact wording carried by fallback verdicts.
const FallbackExplanation = "Analysis unavailable"

// FallbackScore is the fixed score of a fallback verdict, never random.
const FallbackScore = 0.5

// Scorer produces a fraud verdict for one transaction. There is no error
// return: implementations must absorb failures into a usable verdict so the
// pipeline never stalls or drops a transaction.
type Scorer interface {
	Score(ctx context.Context, tx domain.Transaction) domain.RiskScore
}

// ScorerFunc adapts a plain function to the Scorer interface.
type ScorerFunc func(ctx context.Context, tx domain.Transaction) domain.RiskScore

func (f ScorerFunc) Score(ctx context.Context, tx domain.Transaction) domain.RiskScore {
	return f(ctx, tx)
}

// Fallback is the verdict substituted whenever inference fails. The
// fallback flag lets downstreams tell degraded verdicts from real ones.
func Fallback() domain.RiskScore {
	return domain.RiskScore{
		Risk:        domain.RiskReview,
		Score:       FallbackScore,
		Explanation: FallbackExplanation,
		Flags:       map[string]any{"fallback": true},
	}
}
