package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedInsight marks a wire frame that does not decode into a valid
// insight. Consumers drop such frames and keep their connection open.
var ErrMalformedInsight = errors.New("malformed insight")

// Insight is the broadcast-ready union of a Transaction and its RiskScore,
// plus an event identity and creation timestamp. Insights are immutable and
// ephemeral: created by the normalizer, fanned out once, never persisted.
type Insight struct {
	EventID     string  `json:"event_id"`
	Risk        Risk    `json:"risk"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
	TS          string  `json:"ts"` // insight creation time, RFC3339

	TransactionID string  `json:"transaction_id"`
	CardID        string  `json:"card_id"`
	CustomerID    string  `json:"customer_id"`
	MerchantID    string  `json:"merchant_id"`
	CardNumber    string  `json:"card_number"`
	MerchantName  string  `json:"merchant_name"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Zip           string  `json:"zip"`
	Status        Status  `json:"status"`
	FraudFlag1    bool    `json:"fraud_flag1"`
	FraudFlag2    bool    `json:"fraud_flag2"`
	FraudFlag3    bool    `json:"fraud_flag3"`

	AIFlags map[string]any `json:"ai_flags,omitempty"`
}

// Encode serializes the insight into its wire frame payload.
func (i Insight) Encode() ([]byte, error) {
	return json.Marshal(i)
}

// ParseInsight decodes a wire frame payload. A frame must carry an event id
// and a known risk tier; anything else is ErrMalformedInsight. A missing
// ai_flags object defaults to an empty map so both ends of the wire agree.
func ParseInsight(data []byte) (Insight, error) {
	var ins Insight
	if err := json.Unmarshal(data, &ins); err != nil {
		return Insight{}, fmt.Errorf("%w: %v", ErrMalformedInsight, err)
	}
	if ins.EventID == "" {
		return Insight{}, fmt.Errorf("%w: missing event_id", ErrMalformedInsight)
	}
	if !ins.Risk.Valid() {
		return Insight{}, fmt.Errorf("%w: unknown risk tier %q", ErrMalformedInsight, ins.Risk)
	}
	if ins.AIFlags == nil {
		ins.AIFlags = map[string]any{}
	}
	return ins, nil
}
