package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/xirr"
)

// PositionAccount is a symbol's ledger plus its FIFO lot index.
//
// Only the Executor mutates a PositionAccount. Once created it is kept for the life
// of the portfolio, also at zero quantity, since its ledger still carries realized
// P&L and XIRR history.
type PositionAccount struct {
	symbol   string
	ledger   *Ledger
	lots     lotQueue
	quantity int64
	realized decimal.Decimal
	mark     decimal.Decimal
	fees     feeSchedule
}

func newPositionAccount(symbol string, fees feeSchedule) *PositionAccount {
	return &PositionAccount{
		symbol:   symbol,
		ledger:   newLedger(symbol),
		realized: decimal.Zero,
		mark:     decimal.Zero,
		fees:     fees,
	}
}

// Symbol returns the ticker of the position.
func (p *PositionAccount) Symbol() string { return p.symbol }

// Ledger returns the read-only trade history.
func (p *PositionAccount) Ledger() *Ledger { return p.ledger }

// Quantity returns buys minus sells.
func (p *PositionAccount) Quantity() int64 { return p.quantity }

// RealizedPnL returns the cumulative FIFO gain or loss of all sells, net of charges.
func (p *PositionAccount) RealizedPnL() decimal.Decimal { return p.realized }

// Mark returns the last mark price set on the position, zero if never marked.
func (p *PositionAccount) Mark() decimal.Decimal { return p.mark }

// CostBasis returns the cost still attributed to open lots, charges included.
func (p *PositionAccount) CostBasis() decimal.Decimal {
	return p.lots.costBasis()
}

// AverageCost returns CostBasis divided by Quantity, zero for a flat position.
func (p *PositionAccount) AverageCost() decimal.Decimal {
	if p.quantity == 0 {
		return decimal.Zero
	}
	return p.CostBasis().Div(decimal.NewFromInt(p.quantity))
}

// OpenLots returns the open lots oldest first.
func (p *PositionAccount) OpenLots() []model.Lot {
	return p.lots.open()
}

// HypotheticalNetProceeds is what selling the whole position at mark would return
// after charges. It is zero for a flat position.
func (p *PositionAccount) HypotheticalNetProceeds(mark decimal.Decimal) decimal.Decimal {
	if p.quantity == 0 {
		return decimal.Zero
	}
	value := mark.Mul(decimal.NewFromInt(p.quantity))
	return value.Sub(p.fees.calculate(value, model.SideSell).Total())
}

// UnrealizedPnL returns the hypothetical net proceeds at mark minus the cost basis.
// Sell charges are deducted so the figure never exceeds what a sale could realize.
func (p *PositionAccount) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	if p.quantity == 0 {
		return decimal.Zero
	}
	return p.HypotheticalNetProceeds(mark).Sub(p.CostBasis())
}

// TotalPnL is realized plus unrealized P&L at mark.
func (p *PositionAccount) TotalPnL(mark decimal.Decimal) decimal.Decimal {
	return p.realized.Add(p.UnrealizedPnL(mark))
}

// Snapshot returns the derived figures of the position at its current mark.
func (p *PositionAccount) Snapshot() model.PositionSnapshot {
	return model.PositionSnapshot{
		Symbol:        p.symbol,
		Quantity:      p.quantity,
		CostBasis:     p.CostBasis(),
		AverageCost:   p.AverageCost(),
		RealizedPnL:   p.realized,
		MarkPrice:     p.mark,
		MarketValue:   p.mark.Mul(decimal.NewFromInt(p.quantity)),
		UnrealizedPnL: p.UnrealizedPnL(p.mark),
		TotalPnL:      p.TotalPnL(p.mark),
		Trades:        p.ledger.Len(),
	}
}

// CashFlows returns the XIRR series of the position: every ledger entry's
// NetCashImpact at its original timestamp, plus the hypothetical net proceeds at
// asOf while shares are held.
func (p *PositionAccount) CashFlows(mark decimal.Decimal, asOf time.Time) []xirr.CashFlow {
	entries := p.ledger.entries
	flows := make([]xirr.CashFlow, 0, len(entries)+1)
	for _, e := range entries {
		flows = append(flows, xirr.CashFlow{Date: e.Timestamp, Amount: e.NetCashImpact.InexactFloat64()})
	}
	if p.quantity > 0 {
		flows = append(flows, xirr.CashFlow{Date: asOf, Amount: p.HypotheticalNetProceeds(mark).InexactFloat64()})
	}
	return flows
}

func (p *PositionAccount) setMark(price decimal.Decimal) {
	p.mark = price
}

func validateFill(qty int64, price decimal.Decimal) error {
	if qty <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", apperrors.ErrInvalidOrder, qty)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", apperrors.ErrInvalidOrder, price)
	}
	return nil
}

// applyBuy appends a buy entry and opens a lot for it.
func (p *PositionAccount) applyBuy(e model.LedgerEntry) error {
	if err := validateFill(e.Quantity, e.UnitPrice); err != nil {
		return err
	}
	p.ledger.append(e)
	p.lots.push(e)
	p.quantity += e.Quantity
	return nil
}

// applySell consumes open lots FIFO, books realized P&L and appends the sell
// entry. It fails without mutation if the position holds fewer than e.Quantity shares.
func (p *PositionAccount) applySell(e model.LedgerEntry) (decimal.Decimal, []model.LotMatch, error) {
	if err := validateFill(e.Quantity, e.UnitPrice); err != nil {
		return decimal.Zero, nil, err
	}
	if e.Quantity > p.quantity {
		return decimal.Zero, nil, fmt.Errorf("%w: %s holds %d, sell of %d requested",
			apperrors.ErrInsufficientShares, p.symbol, p.quantity, e.Quantity)
	}

	matchedCost, matches := p.lots.consume(e.Quantity)
	netProceeds := e.GrossAmount.Sub(e.Costs.Total())
	pnl := netProceeds.Sub(matchedCost)

	p.realized = p.realized.Add(pnl)
	p.quantity -= e.Quantity
	p.ledger.append(e)
	return pnl, matches, nil
}
