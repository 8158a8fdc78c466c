// Package engine is the portfolio accounting core: per-symbol append-only
// ledgers, FIFO lots, realized and unrealized P&L, and the executor that is the
// only path by which cash and ledgers change.
package engine

import (
	"time"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

// Ledger is the append-only trade history of one symbol. It is the source of
// truth for a position: lots, realized P&L and cash flows are all derived from it.
type Ledger struct {
	symbol  string
	entries []model.LedgerEntry
}

func newLedger(symbol string) *Ledger {
	return &Ledger{symbol: symbol}
}

// Symbol returns the ticker the ledger belongs to.
func (l *Ledger) Symbol() string {
	return l.symbol
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Entries returns a copy of the entries in execution order.
func (l *Ledger) Entries() []model.LedgerEntry {
	out := make([]model.LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Last returns the most recent entry.
func (l *Ledger) Last() (model.LedgerEntry, bool) {
	if len(l.entries) == 0 {
		return model.LedgerEntry{}, false
	}
	return l.entries[len(l.entries)-1], true
}

// lastTimestamp returns the zero time for an empty ledger.
func (l *Ledger) lastTimestamp() time.Time {
	if e, ok := l.Last(); ok {
		return e.Timestamp
	}
	return time.Time{}
}

func (l *Ledger) append(e model.LedgerEntry) {
	l.entries = append(l.entries, e)
}
