package normalize

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraudlens/internal/domain"
)

func TestNormalizeMergesFields(t *testing.T) {
	tx := domain.Transaction{
		TransactionID: "tx_1",
		CardID:        "card_1",
		CustomerID:    "cust_1",
		MerchantID:    "merch_1",
		CardNumber:    "****-****-****-4242",
		MerchantName:  "Online Casino",
		Category:      "Entertainment",
		Amount:        5000,
		Currency:      "USD",
		City:          "Las Vegas",
		State:         "NV",
		Zip:           "89101",
		Status:        domain.StatusApproved,
		FraudFlag1:    true,
	}
	score := domain.RiskScore{
		Risk:        domain.RiskReview,
		Score:       0.5,
		Explanation: "Analysis unavailable",
		Flags:       map[string]any{"fallback": true},
	}

	ins := Normalize(tx, score)

	// Transaction fields pass through unchanged.
	assert.Equal(t, tx.TransactionID, ins.TransactionID)
	assert.Equal(t, tx.CardNumber, ins.CardNumber)
	assert.Equal(t, tx.MerchantName, ins.MerchantName)
	assert.Equal(t, tx.Amount, ins.Amount)
	assert.Equal(t, tx.Status, ins.Status)
	assert.True(t, ins.FraudFlag1)

	// Verdict fields pass through unchanged.
	assert.Equal(t, domain.RiskReview, ins.Risk)
	assert.Equal(t, 0.5, ins.Score)
	assert.Equal(t, "Analysis unavailable", ins.Explanation)
	assert.Equal(t, map[string]any{"fallback": true}, ins.AIFlags)
}

func TestNormalizeStampsIdentityAndTime(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	ins := Normalize(domain.Transaction{}, domain.RiskScore{Risk: domain.RiskOK})
	after := time.Now().UTC().Add(time.Second)

	_, err := uuid.Parse(ins.EventID)
	require.NoError(t, err, "event_id must be a UUID")

	ts, err := time.Parse(time.RFC3339, ins.TS)
	require.NoError(t, err)
	assert.True(t, ts.After(before) && ts.Before(after), "ts is stamped at normalization time")
}

func TestNormalizeDefaultsMissingFlags(t *testing.T) {
	ins := Normalize(domain.Transaction{}, domain.RiskScore{Risk: domain.RiskOK})
	assert.Equal(t, map[string]any{}, ins.AIFlags)
}

func TestNormalizeEventIDsUnique(t *testing.T) {
	const n = 10000
	seen := make(map[string]struct{}, n)
	for range n {
		ins := Normalize(domain.Transaction{}, domain.RiskScore{Risk: domain.RiskOK})
		seen[ins.EventID] = struct{}{}
	}
	assert.Len(t, seen, n)
}
