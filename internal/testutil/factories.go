package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/repository"
)

// DefaultStartDate is the start date of games built without WithStartDate.
var DefaultStartDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// GameBuilder provides a fluent interface for creating test games.
//
// Example usage:
//
//	// Simple creation with defaults
//	game := testutil.NewGame().Build(t, db)
//
//	// Customized game
//	game := testutil.NewGame().
//	    WithCapital("50000").
//	    WithTotalDays(5).
//	    Completed().
//	    Build(t, db)
type GameBuilder struct {
	ID             string
	Name           string
	InitialCapital decimal.Decimal
	Currency       string
	Venue          string
	StartDate      time.Time
	CurrentDay     int
	TotalDays      int
	Status         string
}

// NewGame creates a GameBuilder with sensible defaults: 1,000,000 INR on NSE over 30 days.
func NewGame() *GameBuilder {
	return &GameBuilder{
		ID:             MakeID(),
		Name:           MakeGameName("Test Game"),
		InitialCapital: decimal.NewFromInt(1000000),
		Currency:       "INR",
		Venue:          "NSE",
		StartDate:      DefaultStartDate,
		CurrentDay:     0,
		TotalDays:      30,
		Status:         model.GameStatusActive,
	}
}

// WithID sets a custom ID.
func (b *GameBuilder) WithID(id string) *GameBuilder {
	b.ID = id
	return b
}

// WithName sets a custom name.
func (b *GameBuilder) WithName(name string) *GameBuilder {
	b.Name = name
	return b
}

// WithCapital sets the initial capital, which is also the opening cash.
func (b *GameBuilder) WithCapital(capital string) *GameBuilder {
	b.InitialCapital = decimal.RequireFromString(capital)
	return b
}

// WithCurrency sets the currency code.
func (b *GameBuilder) WithCurrency(currency string) *GameBuilder {
	b.Currency = currency
	return b
}

// WithStartDate sets the first trading date.
func (b *GameBuilder) WithStartDate(date time.Time) *GameBuilder {
	b.StartDate = date
	return b
}

// WithCurrentDay sets how many days the game has advanced.
func (b *GameBuilder) WithCurrentDay(day int) *GameBuilder {
	b.CurrentDay = day
	return b
}

// WithTotalDays sets the game length.
func (b *GameBuilder) WithTotalDays(days int) *GameBuilder {
	b.TotalDays = days
	return b
}

// Completed marks the game as finished.
func (b *GameBuilder) Completed() *GameBuilder {
	b.Status = model.GameStatusCompleted
	b.CurrentDay = b.TotalDays
	return b
}

// Build creates the game in the database and returns it.
func (b *GameBuilder) Build(t *testing.T, db *sql.DB) model.Game {
	t.Helper()

	g := model.Game{
		ID:             b.ID,
		Name:           b.Name,
		InitialCapital: b.InitialCapital,
		Currency:       b.Currency,
		Venue:          b.Venue,
		StartDate:      b.StartDate,
		CurrentDay:     b.CurrentDay,
		TotalDays:      b.TotalDays,
		Status:         b.Status,
		CreatedAt:      time.Now().UTC(),
	}

	repo := repository.NewGameRepository(db)
	if err := repo.InsertGame(context.Background(), g, b.InitialCapital); err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}

	return g
}

// CreateGame is a convenience function for creating a simple game.
func CreateGame(t *testing.T, db *sql.DB) model.Game {
	t.Helper()
	return NewGame().Build(t, db)
}

// CreatePrice stores a cached close price.
//
// Example usage:
//
//	testutil.CreatePrice(t, db, "RELIANCE", testutil.DefaultStartDate, "2450.55")
func CreatePrice(t *testing.T, db *sql.DB, symbol string, date time.Time, closePrice string) {
	t.Helper()

	repo := repository.NewPriceRepository(db)
	err := repo.UpsertClose(context.Background(), symbol, date, decimal.RequireFromString(closePrice), "test")
	if err != nil {
		t.Fatalf("Failed to create price: %v", err)
	}
}
