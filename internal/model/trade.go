package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotMatch describes how much of an earlier buy a sell consumed under FIFO.
type LotMatch struct {
	BuyEntryID string          `json:"buyEntryId"`
	BoughtAt   time.Time       `json:"boughtAt"`
	Quantity   int64           `json:"quantity"`
	UnitCost   decimal.Decimal `json:"unitCost"`
	Cost       decimal.Decimal `json:"cost"`
}

// Lot is the open remainder of a single buy. RemainingCost is the part of the
// buy's cost (gross amount plus charges) still attributed to held shares.
type Lot struct {
	BuyEntryID    string          `json:"buyEntryId"`
	BoughtAt      time.Time       `json:"boughtAt"`
	Quantity      int64           `json:"quantity"`
	Remaining     int64           `json:"remaining"`
	UnitCost      decimal.Decimal `json:"unitCost"`
	RemainingCost decimal.Decimal `json:"remainingCost"`
}

// PositionSnapshot is a read-only view of a position at a point in time.
type PositionSnapshot struct {
	Symbol        string          `json:"symbol"`
	Quantity      int64           `json:"quantity"`
	CostBasis     decimal.Decimal `json:"costBasis"`
	AverageCost   decimal.Decimal `json:"averageCost"`
	RealizedPnL   decimal.Decimal `json:"realizedPnl"`
	MarkPrice     decimal.Decimal `json:"markPrice"`
	MarketValue   decimal.Decimal `json:"marketValue"`
	UnrealizedPnL decimal.Decimal `json:"unrealizedPnl"`
	TotalPnL      decimal.Decimal `json:"totalPnl"`
	Trades        int             `json:"trades"`
}

// TradeResult is returned for every successfully executed order.
type TradeResult struct {
	Entry         LedgerEntry      `json:"entry"`
	Symbol        string           `json:"symbol"`
	Side          Side             `json:"side"`
	Quantity      int64            `json:"quantity"`
	ExecutedPrice decimal.Decimal  `json:"executedPrice"`
	Costs         CostBreakdown    `json:"costs"`
	TotalCosts    decimal.Decimal  `json:"totalCosts"`
	CashImpact    decimal.Decimal  `json:"cashImpact"`
	CashAfter     decimal.Decimal  `json:"cashAfter"`
	RealizedPnL   decimal.Decimal  `json:"realizedPnl"`
	Matches       []LotMatch       `json:"matches,omitempty"`
	Position      PositionSnapshot `json:"position"`
	Message       string           `json:"message"`
}

// CostQuote previews the charges of an order without executing it.
type CostQuote struct {
	OrderValue decimal.Decimal `json:"orderValue"`
	Side       Side            `json:"side"`
	Venue      string          `json:"venue"`
	Costs      CostBreakdown   `json:"costs"`
	TotalCosts decimal.Decimal `json:"totalCosts"`
	// NetAmount is what a buy would debit or a sell would credit, before rounding.
	NetAmount  decimal.Decimal `json:"netAmount"`
}
