// Package normalize merges a transaction with its verdict into the
// broadcast-ready insight record.
package normalize

import (
	"time"

	"github.com/google/uuid"

	"fraudlens/internal/domain"
)

// Normalize is a pure, synchronous merge: no I/O, no failure modes. The
// event id is a random UUID so ids stay unique under concurrent generation;
// ts is stamped here, at insight creation, not transaction time. A scorer
// that returned no flags yields an empty map so both ends of the wire
// default identically.
func Normalize(tx domain.Transaction, score domain.RiskScore) domain.Insight {
	flags := score.Flags
	if flags == nil {
		flags = map[string]any{}
	}
	return domain.Insight{
		EventID:     uuid.NewString(),
		Risk:        score.Risk,
		Score:       score.Score,
		Explanation: score.Explanation,
		TS:          time.Now().UTC().Format(time.RFC3339),

		TransactionID: tx.TransactionID,
		CardID:        tx.CardID,
		CustomerID:    tx.CustomerID,
		MerchantID:    tx.MerchantID,
		CardNumber:    tx.CardNumber,
		MerchantName:  tx.MerchantName,
		Category:      tx.Category,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		City:          tx.City,
		State:         tx.State,
		Zip:           tx.Zip,
		Status:        tx.Status,
		FraudFlag1:    tx.FraudFlag1,
		FraudFlag2:    tx.FraudFlag2,
		FraudFlag3:    tx.FraudFlag3,

		AIFlags: flags,
	}
}
