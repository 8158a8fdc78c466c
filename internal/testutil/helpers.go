package testutil

import (
	"database/sql"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/costs"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/engine"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/repository"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/yahoo"
)

// NewTestCostModel returns the built-in cost schedule.
func NewTestCostModel(t *testing.T) *costs.Model {
	t.Helper()

	m, err := costs.New(costs.DefaultSchedule())
	if err != nil {
		t.Fatalf("Failed to create cost model: %v", err)
	}
	return m
}

// NewTestExecutor returns an NSE executor with the built-in cost schedule and no order limits.
func NewTestExecutor(t *testing.T) *engine.Executor {
	t.Helper()

	x, err := engine.NewExecutor(NewTestCostModel(t), "NSE", engine.Limits{})
	if err != nil {
		t.Fatalf("Failed to create executor: %v", err)
	}
	return x
}

// NewTestGameService wires a GameService over db with the given price source.
// Pass a metrics.Metrics to assert on counters, or nil to skip them.
func NewTestGameService(t *testing.T, db *sql.DB, prices service.PriceSource, m *metrics.Metrics) *service.GameService {
	t.Helper()

	return service.NewGameService(
		db,
		repository.NewGameRepository(db),
		repository.NewValuationRepository(db),
		NewTestExecutor(t),
		NewTestCostModel(t),
		prices,
		m,
		service.GameDefaults{
			InitialCapital: decimal.NewFromInt(1000000),
			Currency:       "INR",
			TotalDays:      30,
		},
	)
}

// NewTestMarketService wires a MarketService over db with a mock Yahoo client.
func NewTestMarketService(t *testing.T, db *sql.DB, client yahoo.Client, m *metrics.Metrics) *service.MarketService {
	t.Helper()

	return service.NewMarketService(
		repository.NewPriceRepository(db),
		client,
		".NS",
		m,
	)
}

// NewTestSystemService wires a SystemService over db.
func NewTestSystemService(t *testing.T, db *sql.DB) *service.SystemService {
	t.Helper()
	return service.NewSystemService(db)
}

// MakeID generates a UUID string for use in tests.
//
// Example usage:
//
//	id := testutil.MakeID()
//	// Returns: "550e8400-e29b-41d4-a716-446655440000"
func MakeID() string {
	return uuid.New().String()
}

// MakeSymbol generates a stock ticker symbol for testing.
//
// Example usage:
//
//	symbol := testutil.MakeSymbol("INFY")
//	// Returns: "INFY1A2B"
func MakeSymbol(base string) string {
	if base == "" {
		base = "TEST"
	}
	return base + randomAlphanumeric(4)
}

// MakeGameName generates a unique game name for testing.
//
// Example usage:
//
//	name := testutil.MakeGameName("Practice")
//	// Returns: "Practice ABC123"
func MakeGameName(base string) string {
	if base == "" {
		base = "Game"
	}
	return base + " " + randomAlphanumeric(6)
}

// randomAlphanumeric generates a random alphanumeric string of specified length.
func randomAlphanumeric(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, length)
	for i := range result {
		//nolint:gosec // G404: Using math/rand for test data generation is acceptable
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
