package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInsight() Insight {
	return Insight{
		EventID:       "0f6a3d9e-6c3f-4f9a-8f25-1c51cf6c9a01",
		Risk:          RiskLikelyFraud,
		Score:         0.92,
		Explanation:   "High risk: multiple failed attempts from new location",
		TS:            "2026-08-28T10:00:00Z",
		TransactionID: "tx_001",
		CardID:        "card_042",
		CustomerID:    "cust_007",
		MerchantID:    "merch_009",
		CardNumber:    "****-****-****-4242",
		MerchantName:  "Online Casino",
		Category:      "Entertainment",
		Amount:        5000,
		Currency:      "USD",
		City:          "New York",
		State:         "FL",
		Zip:           "10001",
		Status:        StatusPending,
		FraudFlag1:    true,
		AIFlags:       map[string]any{},
	}
}

func TestInsightRoundTrip(t *testing.T) {
	original := sampleInsight()

	frame, err := original.Encode()
	require.NoError(t, err)

	parsed, err := ParseInsight(frame)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestInsightRoundTripDefaultsFlags(t *testing.T) {
	// An encoder that never set ai_flags and a parser that saw no ai_flags
	// must agree on the empty map.
	original := sampleInsight()
	original.AIFlags = nil

	frame, err := original.Encode()
	require.NoError(t, err)
	assert.NotContains(t, string(frame), "ai_flags")

	parsed, err := ParseInsight(frame)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, parsed.AIFlags)
}

func TestInsightWireFieldSet(t *testing.T) {
	frame, err := sampleInsight().Encode()
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(frame, &fields))

	for _, name := range []string{
		"event_id", "risk", "score", "explanation", "ts",
		"transaction_id", "card_id", "customer_id", "merchant_id",
		"card_number", "merchant_name", "category", "amount", "currency",
		"city", "state", "zip", "status",
		"fraud_flag1", "fraud_flag2", "fraud_flag3",
	} {
		assert.Contains(t, fields, name)
	}
}

func TestParseInsightRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":          `data garbage`,
		"missing event id":  `{"risk":"OK","score":0.1}`,
		"unknown risk tier": `{"event_id":"e1","risk":"MAYBE","score":0.1}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseInsight([]byte(payload))
			assert.ErrorIs(t, err, ErrMalformedInsight)
		})
	}
}

func TestCardTail(t *testing.T) {
	assert.Equal(t, "4242", Transaction{CardNumber: "****-****-****-4242"}.CardTail())
	assert.Equal(t, "12", Transaction{CardNumber: "12"}.CardTail())
}
