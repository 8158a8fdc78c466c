package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known trade side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// CostBreakdown holds the individual charges levied on a single order.
// All components are non-negative and kept at full precision; rounding to the
// currency subunit only happens when cash is debited or credited.
type CostBreakdown struct {
	Brokerage     decimal.Decimal `json:"brokerage"`
	SecuritiesTax decimal.Decimal `json:"securitiesTax"`
	ExchangeFee   decimal.Decimal `json:"exchangeFee"`
	Tax           decimal.Decimal `json:"tax"`
	RegulatoryFee decimal.Decimal `json:"regulatoryFee"`
}

// Total returns the sum of all cost components.
func (c CostBreakdown) Total() decimal.Decimal {
	return c.Brokerage.
		Add(c.SecuritiesTax).
		Add(c.ExchangeFee).
		Add(c.Tax).
		Add(c.RegulatoryFee)
}

// Equal reports whether both breakdowns hold numerically identical components.
func (c CostBreakdown) Equal(o CostBreakdown) bool {
	return c.Brokerage.Equal(o.Brokerage) &&
		c.SecuritiesTax.Equal(o.SecuritiesTax) &&
		c.ExchangeFee.Equal(o.ExchangeFee) &&
		c.Tax.Equal(o.Tax) &&
		c.RegulatoryFee.Equal(o.RegulatoryFee)
}

// LedgerEntry is one executed trade in a symbol's ledger.
// Entries are immutable once written and are never removed, even after the
// position returns to zero quantity: realized P&L and XIRR are rebuilt from them.
//
// NetCashImpact is the signed cash movement actually applied to the portfolio,
// already rounded to the currency subunit: negative for buys, positive for sells.
type LedgerEntry struct {
	ID            string          `json:"id"`
	Sequence      int             `json:"sequence"`
	Symbol        string          `json:"symbol"`
	Timestamp     time.Time       `json:"timestamp"`
	Side          Side            `json:"side"`
	Quantity      int64           `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Costs         CostBreakdown   `json:"costs"`
	GrossAmount   decimal.Decimal `json:"grossAmount"`
	NetCashImpact decimal.Decimal `json:"netCashImpact"`
}

// Equal compares two entries field by field, using numeric equality for decimals
// and instant equality for timestamps.
func (e LedgerEntry) Equal(o LedgerEntry) bool {
	return e.ID == o.ID &&
		e.Sequence == o.Sequence &&
		e.Symbol == o.Symbol &&
		e.Timestamp.Equal(o.Timestamp) &&
		e.Side == o.Side &&
		e.Quantity == o.Quantity &&
		e.UnitPrice.Equal(o.UnitPrice) &&
		e.Costs.Equal(o.Costs) &&
		e.GrossAmount.Equal(o.GrossAmount) &&
		e.NetCashImpact.Equal(o.NetCashImpact)
}
