package domain

// Risk is the fraud verdict tier assigned to a transaction.
type Risk string

const (
	RiskOK          Risk = "OK"
	RiskReview      Risk = "REVIEW"
	RiskLikelyFraud Risk = "LIKELY_FRAUD"
)

// Valid reports whether r is one of the three known tiers.
func (r Risk) Valid() bool {
	switch r {
	case RiskOK, RiskReview, RiskLikelyFraud:
		return true
	}
	return false
}

// RiskScore is the outcome of scoring one transaction. Produced exactly once
// per transaction and never mutated afterwards.
type RiskScore struct {
	Risk        Risk
	Score       float64 // 0..1, higher is riskier
	Explanation string
	Flags       map[string]any // optional structured signals, may be nil
}
