// Package rules is the deterministic local risk classifier. It reproduces
// the production scoring weights so a deployment without an inference
// service still yields meaningful verdicts, and it backs demo setups where
// outbound calls are unwanted.
package rules

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"fraudlens/internal/domain"
	"fraudlens/internal/scoring/rules/velocity"
)

// Per-category amount caps; spend above the cap is a risk signal.
var amountCaps = map[string]float64{
	"Gas":              125,
	"Clothing":         400,
	"Groceries":        350,
	"Entertainment":    300,
	"Travel":           250,
	"Home Improvement": 350,
	"Dining":           120,
	"Shopping":         400,
	"Healthcare":       300,
}

const defaultAmountCap = 300

// Expected category by merchant-name substring.
var merchantCategories = map[string]string{
	"shell":       "Gas",
	"chevron":     "Gas",
	"whole foods": "Groceries",
	"walmart":     "Shopping",
	"home depot":  "Home Improvement",
	"best buy":    "Electronics",
	"mcdonald":    "Dining",
	"nike":        "Clothing",
	"macy":        "Clothing",
	"nordstrom":   "Clothing",
	"costco":      "Shopping",
	"apple store": "Electronics",
	"starbucks":   "Dining",
	"target":      "Shopping",
	"amazon":      "Shopping",
}

type cityState struct{ city, state string }

// City/state pairs that cannot legitimately co-occur on one card.
var invalidGeoPairs = map[cityState]struct{}{
	{"Los Angeles", "PA"}:  {},
	{"Los Angeles", "TX"}:  {},
	{"Phoenix", "OH"}:      {},
	{"San Diego", "TX"}:    {},
	{"San Diego", "OH"}:    {},
	{"New York", "FL"}:     {},
	{"Philadelphia", "FL"}: {},
	{"Philadelphia", "AZ"}: {},
	{"Chicago", "AZ"}:      {},
	{"Dallas", "CA"}:       {},
	{"San Jose", "IL"}:     {},
	{"Houston", "NC"}:      {},
}

// Signal weights. Two or more fired signals earn an extra bonus.
const (
	weightMismatch      = 0.40
	weightGeoInvalid    = 0.35
	weightAmountHigh    = 0.25
	weightVelocityBurst = 0.30
	weightHighAmount    = 0.20
	multiSignalBonus    = 0.15

	highAmountFloor = 1000
	burstCount      = 3
)

// Verdict thresholds on the blended score.
const (
	thresholdLikelyFraud = 0.60
	thresholdReview      = 0.35
)

// ruleWeight and refineWeight blend the signal score with the heuristic
// refinement pass.
const (
	ruleWeight   = 0.6
	refineWeight = 0.4
)

// Scorer is the deterministic classifier. It satisfies scoring.Scorer.
type Scorer struct {
	velocity velocity.Store
	logger   *slog.Logger
	now      func() time.Time
}

// New builds a rules scorer on the given velocity store.
func New(store velocity.Store, logger *slog.Logger) *Scorer {
	return &Scorer{velocity: store, logger: logger, now: time.Now}
}

// Score classifies one transaction without any outbound call.
func (s *Scorer) Score(ctx context.Context, tx domain.Transaction) domain.RiskScore {
	ruleScore, flags, fired := s.classify(ctx, tx)
	refineScore, notes := refine(tx)

	final := round2(ruleWeight*ruleScore + refineWeight*refineScore)
	risk := domain.RiskOK
	switch {
	case final >= thresholdLikelyFraud:
		risk = domain.RiskLikelyFraud
	case final >= thresholdReview:
		risk = domain.RiskReview
	}

	explanation := strings.Join(append(fired, notes...), "; ")
	if explanation == "" {
		explanation = "No risk signals fired"
	}

	return domain.RiskScore{
		Risk:        risk,
		Score:       final,
		Explanation: explanation,
		Flags:       flags,
	}
}

// classify evaluates the weighted rule signals.
func (s *Scorer) classify(ctx context.Context, tx domain.Transaction) (float64, map[string]any, []string) {
	merchant := strings.ToLower(tx.MerchantName)

	expected := ""
	for sub, category := range merchantCategories {
		if strings.Contains(merchant, sub) {
			expected = category
			break
		}
	}
	mismatch := expected != "" && expected != tx.Category

	_, geoInvalid := invalidGeoPairs[cityState{tx.City, tx.State}]

	limit, ok := amountCaps[tx.Category]
	if !ok {
		limit = defaultAmountCap
	}
	amountHigh := tx.Amount > limit

	velocityBurst := s.burst(ctx, tx)
	highAmount := tx.Amount > highAmountFloor

	score := 0.0
	fired := make([]string, 0, 5)
	if mismatch {
		score += weightMismatch
		fired = append(fired, fmt.Sprintf("Merchant %q does not match category %q", tx.MerchantName, tx.Category))
	}
	if geoInvalid {
		score += weightGeoInvalid
		fired = append(fired, fmt.Sprintf("Implausible location %s, %s", tx.City, tx.State))
	}
	if amountHigh {
		score += weightAmountHigh
		fired = append(fired, fmt.Sprintf("Amount above %s category cap", tx.Category))
	}
	if velocityBurst {
		score += weightVelocityBurst
		fired = append(fired, "Rapid transactions on same card")
	}
	if highAmount {
		score += weightHighAmount
		fired = append(fired, "Very high transaction amount")
	}

	count := 0
	for _, hit := range []bool{mismatch, geoInvalid, amountHigh, velocityBurst, highAmount} {
		if hit {
			count++
		}
	}
	if count >= 2 {
		score += multiSignalBonus
	}

	flags := map[string]any{
		"mismatch":       mismatch,
		"geo_invalid":    geoInvalid,
		"amount_high":    amountHigh,
		"velocity_burst": velocityBurst,
		"high_amount":    highAmount,
	}
	if expected != "" {
		flags["expected"] = expected
	}

	return math.Min(1.0, score), flags, fired
}

// burst records the transaction in the velocity window. A store failure
// degrades to "no burst" rather than failing the verdict.
func (s *Scorer) burst(ctx context.Context, tx domain.Transaction) bool {
	at := s.now()
	if tx.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, tx.Timestamp); err == nil {
			at = parsed
		}
	}
	n, err := s.velocity.Observe(ctx, tx.CardTail(), at)
	if err != nil {
		s.logger.Warn("velocity store unavailable", "card_tail", tx.CardTail(), "error", err)
		return false
	}
	return n >= burstCount
}

// refine applies the secondary heuristics on top of the hard rules.
func refine(tx domain.Transaction) (float64, []string) {
	merchant := strings.ToLower(tx.MerchantName)
	score := 0.0
	var notes []string

	if strings.Contains(merchant, "gas") && tx.Amount > 200 {
		score += 0.2
		notes = append(notes, "Unusually high gas station transaction")
	}
	if (strings.Contains(merchant, "online") || strings.Contains(merchant, "store")) && tx.Amount > 500 {
		score += 0.15
		notes = append(notes, "High-value online transaction")
	}
	if tx.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, tx.Timestamp); err == nil {
			hour := parsed.Hour()
			if hour < 6 || hour > 22 {
				score += 0.1
				notes = append(notes, "Unusual transaction time")
			}
		}
	}
	switch tx.City {
	case "Los Angeles", "New York", "Chicago":
		if tx.Amount > 300 {
			score += 0.1
			notes = append(notes, "High-value transaction in major city")
		}
	}

	return math.Min(1.0, score), notes
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
