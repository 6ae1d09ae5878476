package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"fraudlens/internal/domain"
)

// SyntheticSource generates plausible random transactions for first-run and
// demo setups. It exists only behind the Source interface so sample-data
// synthesis never leaks into scoring or fan-out logic.
type SyntheticSource struct {
	minInterval time.Duration
	maxInterval time.Duration
}

// NewSynthetic builds a generator emitting one transaction every 3-5s.
func NewSynthetic() *SyntheticSource {
	return &SyntheticSource{minInterval: 3 * time.Second, maxInterval: 5 * time.Second}
}

// Probe always succeeds; there is no transport behind the generator.
func (s *SyntheticSource) Probe(ctx context.Context) error {
	return nil
}

// Run emits a random transaction on a jittered interval until ctx cancels.
func (s *SyntheticSource) Run(ctx context.Context, emit EmitFunc) error {
	for {
		jitter := s.minInterval + rand.N(s.maxInterval-s.minInterval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jitter):
		}
		emit(RandomTransaction())
	}
}

var (
	syntheticMerchants = []struct {
		name     string
		category string
	}{
		{"Amazon", "Shopping"},
		{"Starbucks", "Dining"},
		{"Shell", "Gas"},
		{"Whole Foods", "Groceries"},
		{"Best Buy", "Electronics"},
		{"Online Store", "Shopping"},
		{"Home Depot", "Home Improvement"},
	}
	syntheticCities = []struct {
		city  string
		state string
		zip   string
	}{
		{"New York", "NY", "10001"},
		{"Los Angeles", "CA", "90001"},
		{"Chicago", "IL", "60601"},
		{"Houston", "TX", "77001"},
		{"Phoenix", "AZ", "85001"},
	}
	syntheticStatuses = []domain.Status{
		domain.StatusApproved, domain.StatusApproved, domain.StatusApproved,
		domain.StatusPending, domain.StatusDeclined,
	}
)

// RandomTransaction builds one schema-valid random transaction.
func RandomTransaction() domain.Transaction {
	merchant := syntheticMerchants[rand.IntN(len(syntheticMerchants))]
	loc := syntheticCities[rand.IntN(len(syntheticCities))]
	return domain.Transaction{
		TransactionID: "tx_" + uuid.NewString(),
		CardID:        fmt.Sprintf("card_%03d", rand.IntN(1000)),
		CustomerID:    fmt.Sprintf("cust_%03d", rand.IntN(1000)),
		MerchantID:    fmt.Sprintf("merch_%03d", rand.IntN(100)),
		CardNumber:    fmt.Sprintf("****-****-****-%04d", rand.IntN(10000)),
		MerchantName:  merchant.name,
		Category:      merchant.category,
		Amount:        float64(rand.IntN(200000)) / 100,
		Currency:      "USD",
		City:          loc.city,
		State:         loc.state,
		Zip:           loc.zip,
		Status:        syntheticStatuses[rand.IntN(len(syntheticStatuses))],
		FraudFlag1:    rand.IntN(10) == 0,
		FraudFlag2:    rand.IntN(20) == 0,
		FraudFlag3:    rand.IntN(20) == 0,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	}
}

// SampleTransactions returns n random transactions, used to seed the hub's
// catch-up buffer so first subscribers see data immediately.
func SampleTransactions(n int) []domain.Transaction {
	txs := make([]domain.Transaction, 0, n)
	for range n {
		txs = append(txs, RandomTransaction())
	}
	return txs
}
