package domain

// Status is the settlement state reported by the ingestion source.
type Status string

const (
	StatusApproved Status = "approved"
	StatusDeclined Status = "declined"
	StatusPending  Status = "pending"
)

// Transaction is a raw financial event as handed over by a source adapter.
// Adapters own a Transaction until they emit it; after that it is immutable
// and safe to share across goroutines without locking.
type Transaction struct {
	TransactionID string  `json:"transaction_id"`
	CardID        string  `json:"card_id"`
	CustomerID    string  `json:"customer_id"`
	MerchantID    string  `json:"merchant_id"`
	CardNumber    string  `json:"card_number"` // masked, last four visible
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

	// Timestamp is the source-side event time (RFC3339), when the source
	// provides one. Empty for sources that do not stamp their records.
	Timestamp string `json:"ts,omitempty"`
}

// CardTail returns the last four digits of the card number, used to group
// transactions for velocity analysis without handling the full PAN.
func (t Transaction) CardTail() string {
	if len(t.CardNumber) < 4 {
		return t.CardNumber
	}
	return t.CardNumber[len(t.CardNumber)-4:]
}
