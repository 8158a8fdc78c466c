package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

// CostModel prices the charges of an order. costs.Model implements it.
type CostModel interface {
	Calculate(orderValue decimal.Decimal, side model.Side, venue string) (model.CostBreakdown, error)
}

// Limits are order sanity bounds. A zero value disables the bound.
type Limits struct {
	MaxQuantity int64
	MaxPrice    decimal.Decimal
}

// feeSchedule binds a cost model to a venue that NewExecutor has already accepted.
type feeSchedule struct {
	model CostModel
	venue string
}

func (f feeSchedule) calculate(value decimal.Decimal, side model.Side) model.CostBreakdown {
	c, err := f.model.Calculate(value, side, f.venue)
	if err != nil {
		// NewExecutor accepted the venue, so the cost model has changed under us.
		panic(fmt.Sprintf("cost model rejected venue %s after NewExecutor accepted it: %v", f.venue, err))
	}
	return c
}

// Executor is the only writer of portfolio state. Every successful Execute
// appends one ledger entry and moves cash by exactly its NetCashImpact.
type Executor struct {
	fees   feeSchedule
	limits Limits
	newID  func() string
}

// NewExecutor returns an executor charging costs at the given venue.
// An unknown venue is a configuration error reported here rather than at trade time.
func NewExecutor(costs CostModel, venue string, limits Limits) (*Executor, error) {
	venue = strings.ToUpper(strings.TrimSpace(venue))
	if _, err := costs.Calculate(decimal.Zero, model.SideBuy, venue); err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}
	if limits.MaxQuantity < 0 || limits.MaxPrice.IsNegative() {
		return nil, fmt.Errorf("failed to create executor: order limits must not be negative")
	}
	return &Executor{
		fees:   feeSchedule{model: costs, venue: venue},
		limits: limits,
		newID:  uuid.NewString,
	}, nil
}

// Venue returns the exchange code used for charges.
func (x *Executor) Venue() string {
	return x.fees.venue
}

// Limits returns the order bounds in force.
func (x *Executor) Limits() Limits {
	return x.limits
}

// Quote returns the charges of a hypothetical order without touching any state.
func (x *Executor) Quote(orderValue decimal.Decimal, side model.Side) (model.CostBreakdown, error) {
	return x.fees.model.Calculate(orderValue, side, x.fees.venue)
}

// Execute validates and applies one order to p.
//
// Orders are rejected before any mutation with ErrInvalidOrder (non-positive
// quantity or price, unknown side, empty symbol, zero timestamp, a timestamp
// earlier than the symbol's last entry, an order above Limits, a buy that would
// overflow the position quantity, or an order too small to move any cash),
// ErrInsufficientFunds (the rounded debit exceeds cash) or ErrInsufficientShares.
// On success the ledger entry and the cash movement are applied together.
func (x *Executor) Execute(p *Portfolio, symbol string, side model.Side, qty int64, price decimal.Decimal, ts time.Time) (model.TradeResult, error) {
	symbol = NormalizeSymbol(symbol)
	if err := x.validateOrder(p, symbol, side, qty, price, ts); err != nil {
		return model.TradeResult{}, err
	}

	orderValue := price.Mul(decimal.NewFromInt(qty))
	costs, err := x.fees.model.Calculate(orderValue, side, x.fees.venue)
	if err != nil {
		return model.TradeResult{}, fmt.Errorf("failed to calculate costs: %w", err)
	}

	impact := netCashImpact(p.currency, side, orderValue, costs)
	if impact.IsZero() {
		return model.TradeResult{}, fmt.Errorf("%w: order value %s rounds to no cash movement in %s",
			apperrors.ErrInvalidOrder, orderValue, p.currency.code)
	}

	entry := model.LedgerEntry{
		ID:            x.newID(),
		Sequence:      p.sequence + 1,
		Symbol:        symbol,
		Timestamp:     ts,
		Side:          side,
		Quantity:      qty,
		UnitPrice:     price,
		Costs:         costs,
		GrossAmount:   orderValue,
		NetCashImpact: impact,
	}

	realized, matches, err := x.apply(p, entry)
	if err != nil {
		return model.TradeResult{}, err
	}

	pos := p.positions[symbol]
	pos.setMark(price)

	return model.TradeResult{
		Entry:         entry,
		Symbol:        symbol,
		Side:          side,
		Quantity:      qty,
		ExecutedPrice: price,
		Costs:         costs,
		TotalCosts:    costs.Total(),
		CashImpact:    entry.NetCashImpact,
		CashAfter:     p.cash,
		RealizedPnL:   realized,
		Matches:       matches,
		Position:      pos.Snapshot(),
		Message:       tradeMessage(p.currency, entry, realized),
	}, nil
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (x *Executor) validateOrder(p *Portfolio, symbol string, side model.Side, qty int64, price decimal.Decimal, ts time.Time) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", apperrors.ErrInvalidOrder)
	}
	if !side.Valid() {
		return fmt.Errorf("%w: unknown side %q", apperrors.ErrInvalidOrder, side)
	}
	if err := validateFill(qty, price); err != nil {
		return err
	}
	if x.limits.MaxQuantity > 0 && qty > x.limits.MaxQuantity {
		return fmt.Errorf("%w: quantity %d exceeds maximum of %d", apperrors.ErrInvalidOrder, qty, x.limits.MaxQuantity)
	}
	if x.limits.MaxPrice.IsPositive() && price.GreaterThan(x.limits.MaxPrice) {
		return fmt.Errorf("%w: price %s exceeds maximum of %s", apperrors.ErrInvalidOrder, price, x.limits.MaxPrice)
	}
	if ts.IsZero() {
		return fmt.Errorf("%w: timestamp is required", apperrors.ErrInvalidOrder)
	}
	if pos, ok := p.positions[symbol]; ok {
		if side == model.SideBuy && qty > math.MaxInt64-pos.quantity {
			return fmt.Errorf("%w: quantity %d would overflow the %s position of %d",
				apperrors.ErrInvalidOrder, qty, symbol, pos.quantity)
		}
		if last := pos.ledger.lastTimestamp(); ts.Before(last) {
			return fmt.Errorf("%w: timestamp %s is before the last %s trade at %s",
				apperrors.ErrInvalidOrder, ts.Format(time.RFC3339), symbol, last.Format(time.RFC3339))
		}
	}
	return nil
}

// netCashImpact rounds the cash movement of an order to the currency subunit:
// -(value + charges) for a buy, value - charges for a sell.
func netCashImpact(c currency, side model.Side, orderValue decimal.Decimal, costs model.CostBreakdown) decimal.Decimal {
	if side == model.SideBuy {
		return c.round(orderValue.Add(costs.Total())).Neg()
	}
	return c.round(orderValue.Sub(costs.Total()))
}

// apply is the single mutation path shared by Execute and Restore. All checks
// run before the position or cash is touched.
func (x *Executor) apply(p *Portfolio, e model.LedgerEntry) (decimal.Decimal, []model.LotMatch, error) {
	if cashAfter := p.cash.Add(e.NetCashImpact); cashAfter.IsNegative() {
		return decimal.Zero, nil, fmt.Errorf("%w: order needs %s, available cash is %s",
			apperrors.ErrInsufficientFunds, p.currency.format(e.NetCashImpact.Neg()), p.currency.format(p.cash))
	}

	pos, exists := p.positions[e.Symbol]
	realized := decimal.Zero
	var matches []model.LotMatch

	switch e.Side {
	case model.SideBuy:
		if !exists {
			pos = newPositionAccount(e.Symbol, x.fees)
		}
		if err := pos.applyBuy(e); err != nil {
			return decimal.Zero, nil, err
		}
		if !exists {
			p.addPosition(pos)
		}
	case model.SideSell:
		if !exists {
			return decimal.Zero, nil, fmt.Errorf("%w: no position in %s", apperrors.ErrInsufficientShares, e.Symbol)
		}
		var err error
		if realized, matches, err = pos.applySell(e); err != nil {
			return decimal.Zero, nil, err
		}
	default:
		return decimal.Zero, nil, fmt.Errorf("%w: unknown side %q", apperrors.ErrInvalidOrder, e.Side)
	}

	p.cash = p.cash.Add(e.NetCashImpact)
	p.sequence = e.Sequence
	return realized, matches, nil
}

// replay validates a persisted entry against its own stored figures and applies it.
// Charges are taken from the entry so a later change of cost schedule does not
// rewrite history.
func (x *Executor) replay(p *Portfolio, e model.LedgerEntry) error {
	if e.Sequence <= p.sequence {
		return fmt.Errorf("entry %s: sequence %d does not follow %d", e.ID, e.Sequence, p.sequence)
	}
	if !e.Side.Valid() {
		return fmt.Errorf("entry %s: unknown side %q", e.ID, e.Side)
	}
	if err := validateFill(e.Quantity, e.UnitPrice); err != nil {
		return fmt.Errorf("entry %s: %w", e.ID, err)
	}
	if gross := e.UnitPrice.Mul(decimal.NewFromInt(e.Quantity)); !gross.Equal(e.GrossAmount) {
		return fmt.Errorf("entry %s: gross amount %s, expected %s", e.ID, e.GrossAmount, gross)
	}
	if want := netCashImpact(p.currency, e.Side, e.GrossAmount, e.Costs); !want.Equal(e.NetCashImpact) {
		return fmt.Errorf("entry %s: net cash impact %s, expected %s", e.ID, e.NetCashImpact, want)
	}
	if pos, ok := p.positions[e.Symbol]; ok && e.Timestamp.Before(pos.ledger.lastTimestamp()) {
		return fmt.Errorf("entry %s: timestamp out of order", e.ID)
	}
	_, _, err := x.apply(p, e)
	return err
}

func tradeMessage(c currency, e model.LedgerEntry, realized decimal.Decimal) string {
	if e.Side == model.SideBuy {
		return fmt.Sprintf("Bought %d %s at %s for %s including %s charges",
			e.Quantity, e.Symbol, c.format(e.UnitPrice), c.format(e.NetCashImpact.Neg()), c.format(e.Costs.Total()))
	}
	return fmt.Sprintf("Sold %d %s at %s for net proceeds of %s after %s charges, realized P&L %s",
		e.Quantity, e.Symbol, c.format(e.UnitPrice), c.format(e.NetCashImpact), c.format(e.Costs.Total()), c.format(realized))
}
