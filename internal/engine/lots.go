package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

// lot is the open remainder of one buy entry.
//
// It carries the cost still attributed to the remaining shares rather than only a
// unit cost, so consuming the last share of a lot releases exactly what is left
// and division residue never accumulates in the cost basis.
type lot struct {
	entryID   string
	boughtAt  time.Time
	quantity  int64
	remaining int64
	cost      decimal.Decimal
}

func newLot(e model.LedgerEntry) lot {
	return lot{
		entryID:   e.ID,
		boughtAt:  e.Timestamp,
		quantity:  e.Quantity,
		remaining: e.Quantity,
		cost:      e.GrossAmount.Add(e.Costs.Total()),
	}
}

// unitCost is (gross + charges) / quantity of the originating buy.
func (l lot) unitCost() decimal.Decimal {
	if l.remaining == 0 {
		return decimal.Zero
	}
	return l.cost.Div(decimal.NewFromInt(l.remaining))
}

// take removes qty shares (qty <= remaining) and returns the cost they carried.
func (l *lot) take(qty int64) decimal.Decimal {
	if qty == l.remaining {
		taken := l.cost
		l.remaining, l.cost = 0, decimal.Zero
		return taken
	}
	taken := l.cost.Mul(decimal.NewFromInt(qty)).Div(decimal.NewFromInt(l.remaining))
	l.remaining -= qty
	l.cost = l.cost.Sub(taken)
	return taken
}

// lotQueue holds open lots oldest first.
type lotQueue struct {
	lots []lot
}

func (q *lotQueue) push(e model.LedgerEntry) {
	q.lots = append(q.lots, newLot(e))
}

// consume matches qty shares against open lots in FIFO order. The caller must
// have checked that enough shares are open.
func (q *lotQueue) consume(qty int64) (decimal.Decimal, []model.LotMatch) {
	matched := decimal.Zero
	var matches []model.LotMatch

	for qty > 0 && len(q.lots) > 0 {
		head := &q.lots[0]
		n := min(qty, head.remaining)
		unit := head.unitCost()
		cost := head.take(n)

		matched = matched.Add(cost)
		matches = append(matches, model.LotMatch{
			BuyEntryID: head.entryID,
			BoughtAt:   head.boughtAt,
			Quantity:   n,
			UnitCost:   unit,
			Cost:       cost,
		})

		qty -= n
		if head.remaining == 0 {
			q.lots = q.lots[1:]
		}
	}
	return matched, matches
}

func (q *lotQueue) costBasis() decimal.Decimal {
	total := decimal.Zero
	for _, l := range q.lots {
		total = total.Add(l.cost)
	}
	return total
}

func (q *lotQueue) open() []model.Lot {
	out := make([]model.Lot, 0, len(q.lots))
	for _, l := range q.lots {
		out = append(out, model.Lot{
			BuyEntryID:    l.entryID,
			BoughtAt:      l.boughtAt,
			Quantity:      l.quantity,
			Remaining:     l.remaining,
			UnitCost:      l.unitCost(),
			RemainingCost: l.cost,
		})
	}
	return out
}
