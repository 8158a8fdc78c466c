package request

import "github.com/shopspring/decimal"

// CreateGameRequest is the body of POST /api/game. Omitted fields take the
// server defaults.
type CreateGameRequest struct {
	Name           string           `json:"name"`
	InitialCapital *decimal.Decimal `json:"initialCapital,omitempty"`
	Currency       string           `json:"currency,omitempty"`
	StartDate      string           `json:"startDate,omitempty"`
	TotalDays      *int             `json:"totalDays,omitempty"`
}

// TradeRequest is the body of POST /api/game/{uuid}/trade. Without a price the
// order fills at the close of the game's current date.
type TradeRequest struct {
	Symbol   string           `json:"symbol"`
	Side     string           `json:"side"`
	Quantity int64            `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}
