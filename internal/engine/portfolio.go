package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/xirr"
)

// Portfolio owns the cash balance and every position of one game.
//
// A Portfolio is not safe for concurrent use. Callers serialise access, and all
// state changes go through Executor.
type Portfolio struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	currency       currency
	positions      map[string]*PositionAccount
	sequence       int
}

// NewPortfolio returns a portfolio holding only cash. The capital is rounded to
// the currency subunit.
func NewPortfolio(initialCapital decimal.Decimal, currencyCode string) (*Portfolio, error) {
	cur, err := lookupCurrency(currencyCode)
	if err != nil {
		return nil, err
	}
	if !initialCapital.IsPositive() {
		return nil, fmt.Errorf("initial capital must be positive, got %s", initialCapital)
	}
	capital := cur.round(initialCapital)
	return &Portfolio{
		initialCapital: capital,
		cash:           capital,
		currency:       cur,
		positions:      make(map[string]*PositionAccount),
	}, nil
}

// InitialCapital returns the starting cash.
func (p *Portfolio) InitialCapital() decimal.Decimal { return p.initialCapital }

// Cash returns the current cash balance.
func (p *Portfolio) Cash() decimal.Decimal { return p.cash }

// Currency returns the ISO 4217 code of the portfolio.
func (p *Portfolio) Currency() string { return p.currency.code }

// Sequence returns the sequence number of the last applied ledger entry.
func (p *Portfolio) Sequence() int { return p.sequence }

// Position returns the account for symbol, if it was ever traded.
func (p *Portfolio) Position(symbol string) (*PositionAccount, bool) {
	pos, ok := p.positions[NormalizeSymbol(symbol)]
	return pos, ok
}

// Positions returns every account, flat ones included, sorted by symbol.
func (p *Portfolio) Positions() []*PositionAccount {
	out := make([]*PositionAccount, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].symbol < out[j].symbol })
	return out
}

// HeldSymbols returns the symbols with a non-zero quantity, sorted.
func (p *Portfolio) HeldSymbols() []string {
	var out []string
	for _, pos := range p.Positions() {
		if pos.quantity > 0 {
			out = append(out, pos.symbol)
		}
	}
	return out
}

// LastTradeAt returns the latest ledger timestamp across all symbols, or the zero time.
func (p *Portfolio) LastTradeAt() time.Time {
	var last time.Time
	for _, pos := range p.positions {
		if ts := pos.ledger.lastTimestamp(); ts.After(last) {
			last = ts
		}
	}
	return last
}

// SetMark records the current market price of a traded symbol.
func (p *Portfolio) SetMark(symbol string, price decimal.Decimal) error {
	pos, ok := p.Position(symbol)
	if !ok {
		return fmt.Errorf("%w: %s", apperrors.ErrPositionNotFound, symbol)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: mark for %s must be positive, got %s", apperrors.ErrPriceUnavailable, symbol, price)
	}
	pos.setMark(price)
	return nil
}

// Marks returns the mark price of every position.
func (p *Portfolio) Marks() map[string]decimal.Decimal {
	marks := make(map[string]decimal.Decimal, len(p.positions))
	for sym, pos := range p.positions {
		marks[sym] = pos.mark
	}
	return marks
}

// Summary aggregates all positions at their current marks. TotalValue is cash
// plus what selling every holding would return after charges.
func (p *Portfolio) Summary() model.PortfolioSummary {
	s := model.PortfolioSummary{
		Cash:           p.cash,
		InitialCapital: p.initialCapital,
		CostBasis:      decimal.Zero,
		MarketValue:    decimal.Zero,
		RealizedPnL:    decimal.Zero,
		UnrealizedPnL:  decimal.Zero,
		TotalValue:     p.cash,
	}
	for _, pos := range p.positions {
		s.CostBasis = s.CostBasis.Add(pos.CostBasis())
		s.MarketValue = s.MarketValue.Add(pos.mark.Mul(decimal.NewFromInt(pos.quantity)))
		s.RealizedPnL = s.RealizedPnL.Add(pos.realized)
		s.UnrealizedPnL = s.UnrealizedPnL.Add(pos.UnrealizedPnL(pos.mark))
		s.TotalValue = s.TotalValue.Add(pos.HypotheticalNetProceeds(pos.mark))
	}
	s.TotalPnL = s.RealizedPnL.Add(s.UnrealizedPnL)
	return s
}

// PositionSnapshots returns the read model of every position, sorted by symbol.
func (p *Portfolio) PositionSnapshots() []model.PositionSnapshot {
	positions := p.Positions()
	out := make([]model.PositionSnapshot, 0, len(positions))
	for _, pos := range positions {
		out = append(out, pos.Snapshot())
	}
	return out
}

// CashFlows returns the XIRR series of the whole portfolio: every ledger entry
// across all symbols plus one terminal flow at asOf holding the liquidation
// value of the open positions.
func (p *Portfolio) CashFlows(asOf time.Time) []xirr.CashFlow {
	var flows []xirr.CashFlow
	terminal := decimal.Zero
	for _, pos := range p.Positions() {
		for _, e := range pos.ledger.entries {
			flows = append(flows, xirr.CashFlow{Date: e.Timestamp, Amount: e.NetCashImpact.InexactFloat64()})
		}
		terminal = terminal.Add(pos.HypotheticalNetProceeds(pos.mark))
	}
	if terminal.IsPositive() {
		flows = append(flows, xirr.CashFlow{Date: asOf, Amount: terminal.InexactFloat64()})
	}
	return flows
}

// CheckInvariants verifies that cash equals initial capital plus every ledger
// entry's NetCashImpact, and that each position's quantity agrees with both its
// ledger and its open lots.
func (p *Portfolio) CheckInvariants() error {
	expected := p.initialCapital
	for _, pos := range p.Positions() {
		var fromLedger int64
		for _, e := range pos.ledger.entries {
			expected = expected.Add(e.NetCashImpact)
			switch e.Side {
			case model.SideBuy:
				fromLedger += e.Quantity
			case model.SideSell:
				fromLedger -= e.Quantity
			}
			if fromLedger < 0 {
				return fmt.Errorf("%w: %s goes short at entry %s", apperrors.ErrDataInconsistency, pos.symbol, e.ID)
			}
		}
		if fromLedger != pos.quantity {
			return fmt.Errorf("%w: %s quantity %d, ledger says %d", apperrors.ErrDataInconsistency, pos.symbol, pos.quantity, fromLedger)
		}

		var open int64
		for _, l := range pos.lots.lots {
			open += l.remaining
		}
		if open != pos.quantity {
			return fmt.Errorf("%w: %s quantity %d, open lots hold %d", apperrors.ErrDataInconsistency, pos.symbol, pos.quantity, open)
		}
	}
	if !expected.Equal(p.cash) {
		return fmt.Errorf("%w: cash %s, ledger implies %s", apperrors.ErrDataInconsistency, p.cash, expected)
	}
	return nil
}

// Snapshot returns the persisted form of the portfolio.
func (p *Portfolio) Snapshot() model.Snapshot {
	s := model.Snapshot{
		InitialCapital: p.initialCapital,
		Cash:           p.cash,
		Currency:       p.currency.code,
		Ledgers:        make(map[string][]model.LedgerEntry, len(p.positions)),
		Marks:          make(map[string]decimal.Decimal, len(p.positions)),
	}
	for sym, pos := range p.positions {
		s.Ledgers[sym] = pos.ledger.Entries()
		if pos.mark.IsPositive() {
			s.Marks[sym] = pos.mark
		}
	}
	return s
}

// Restore rebuilds a portfolio by replaying every ledger entry of s in sequence
// order through x. Lots and realized P&L are derived again from the entries.
// A snapshot whose ledgers do not reproduce its cash balance, or whose entries
// fail validation, yields ErrRoundTripMismatch.
func Restore(s model.Snapshot, x *Executor) (*Portfolio, error) {
	p, err := NewPortfolio(s.InitialCapital, s.Currency)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRoundTripMismatch, err)
	}
	if !p.initialCapital.Equal(s.InitialCapital) {
		return nil, fmt.Errorf("%w: initial capital %s is not a whole subunit amount", apperrors.ErrRoundTripMismatch, s.InitialCapital)
	}

	var entries []model.LedgerEntry
	for sym, ledger := range s.Ledgers {
		for _, e := range ledger {
			if e.Symbol != sym {
				return nil, fmt.Errorf("%w: entry %s of %s filed under %s", apperrors.ErrRoundTripMismatch, e.ID, e.Symbol, sym)
			}
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Sequence < entries[j].Sequence })

	for _, e := range entries {
		if err := x.replay(p, e); err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrRoundTripMismatch, err)
		}
	}

	for sym, pos := range p.positions {
		if mark, ok := s.Marks[sym]; ok && mark.IsPositive() {
			pos.setMark(mark)
		} else if last, ok := pos.ledger.Last(); ok {
			pos.setMark(last.UnitPrice)
		}
	}

	if !p.cash.Equal(s.Cash) {
		return nil, fmt.Errorf("%w: stored cash %s, replayed ledger gives %s", apperrors.ErrRoundTripMismatch, s.Cash, p.cash)
	}
	if err := p.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrRoundTripMismatch, err)
	}
	return p, nil
}

func (p *Portfolio) addPosition(pos *PositionAccount) {
	p.positions[pos.symbol] = pos
}
