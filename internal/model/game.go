package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Game status values.
const (
	GameStatusActive    = "active"
	GameStatusCompleted = "completed"
)

// Game is a single simulation session. The portfolio it owns is persisted
// separately as a Snapshot.
type Game struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	InitialCapital decimal.Decimal `json:"initialCapital"`
	Currency       string          `json:"currency"`
	Venue          string          `json:"venue"`
	StartDate      time.Time       `json:"startDate"`
	CurrentDay     int             `json:"currentDay"`
	TotalDays      int             `json:"totalDays"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// CurrentDate returns the simulated trading date of the game.
func (g Game) CurrentDate() time.Time {
	return g.StartDate.AddDate(0, 0, g.CurrentDay)
}

// Snapshot is the persisted form of a portfolio: cash plus every symbol's
// ordered ledger. Lots are never stored; they are rebuilt on load.
type Snapshot struct {
	InitialCapital decimal.Decimal            `json:"initialCapital"`
	Cash           decimal.Decimal            `json:"cash"`
	Currency       string                     `json:"currency"`
	Ledgers        map[string][]LedgerEntry   `json:"ledgers"`
	Marks          map[string]decimal.Decimal `json:"marks,omitempty"`
}

// PortfolioSummary aggregates the derived figures of every position.
type PortfolioSummary struct {
	Cash           decimal.Decimal `json:"cash"`
	InitialCapital decimal.Decimal `json:"initialCapital"`
	CostBasis      decimal.Decimal `json:"costBasis"`
	MarketValue    decimal.Decimal `json:"marketValue"`
	RealizedPnL    decimal.Decimal `json:"realizedPnl"`
	UnrealizedPnL  decimal.Decimal `json:"unrealizedPnl"`
	TotalPnL       decimal.Decimal `json:"totalPnl"`
	TotalValue     decimal.Decimal `json:"totalValue"`
}

// GameState is the full read model of a game for presentation.
type GameState struct {
	Game        Game               `json:"game"`
	CurrentDate time.Time          `json:"currentDate"`
	Summary     PortfolioSummary   `json:"summary"`
	Positions   []PositionSnapshot `json:"positions"`
}

// MarkRefresh reports the outcome of re-pricing a game's held symbols.
// Symbols whose price could not be resolved keep their previous mark.
type MarkRefresh struct {
	GameID  string                     `json:"gameId"`
	Date    time.Time                  `json:"date"`
	Updated map[string]decimal.Decimal `json:"updated"`
	Failed  map[string]string          `json:"failed,omitempty"`
}

// Valuation is a game's portfolio summary as of one simulated day.
type Valuation struct {
	Day           int             `json:"day"`
	Date          time.Time       `json:"date"`
	Cash          decimal.Decimal `json:"cash"`
	CostBasis     decimal.Decimal `json:"costBasis"`
	MarketValue   decimal.Decimal `json:"marketValue"`
	RealizedPnL   decimal.Decimal `json:"realizedPnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnl"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	CalculatedAt  time.Time       `json:"calculatedAt"`
}
