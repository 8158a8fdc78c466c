package engine

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

func TestNewExecutor(t *testing.T) {
	t.Run("unknown venue", func(t *testing.T) {
		_, err := NewExecutor(newCostModel(t), "LSE", Limits{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrUnknownVenue))
	})

	t.Run("venue is normalised", func(t *testing.T) {
		x, err := NewExecutor(newCostModel(t), " bse ", Limits{})
		require.NoError(t, err)
		assert.Equal(t, "BSE", x.Venue())
	})

	t.Run("negative limits", func(t *testing.T) {
		_, err := NewExecutor(newCostModel(t), "NSE", Limits{MaxQuantity: -1})
		assert.Error(t, err)
	})
}

func TestExecute_Buy(t *testing.T) {
	x := newTestExecutor(t)
	p := newTestPortfolio(t, "1000000")

	res := mustExecute(t, x, p, " reliance.ns ", model.SideBuy, 10, "1000", t0)

	assert.Equal(t, "RELIANCE.NS", res.Symbol)
	requireDecimalEqual(t, dec("3.9335"), res.TotalCosts)
	requireDecimalEqual(t, dec("-10003.93"), res.CashImpact)
	requireDecimalEqual(t, dec("989996.07"), res.CashAfter)
	requireDecimalEqual(t, dec("989996.07"), p.Cash())

	e := res.Entry
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 1, e.Sequence)
	assert.Equal(t, model.SideBuy, e.Side)
	assert.Equal(t, int64(10), e.Quantity)
	requireDecimalEqual(t, dec("10000"), e.GrossAmount)
	assert.True(t, e.Timestamp.Equal(t0))

	assert.Equal(t, int64(10), res.Position.Quantity)
	requireDecimalEqual(t, dec("10003.9335"), res.Position.CostBasis)
	requireDecimalEqual(t, dec("1000"), res.Position.MarkPrice)
	assert.Contains(t, res.Message, "Bought 10 RELIANCE.NS")
}

func TestExecute_Sell(t *testing.T) {
	x := newTestExecutor(t)
	p := newTestPortfolio(t, "1000000")

	mustExecute(t, x, p, "TCS.NS", model.SideBuy, 10, "1000", day(0))
	res := mustExecute(t, x, p, "TCS.NS", model.SideSell, 10, "1000", day(1))

	requireDecimalEqual(t, dec("13.9335"), res.TotalCosts)
	requireDecimalEqual(t, dec("9986.07"), res.CashImpact)
	requireDecimalEqual(t, dec("-17.867"), res.RealizedPnL)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, int64(10), res.Matches[0].Quantity)
	assert.Equal(t, 2, res.Entry.Sequence)
	assert.Contains(t, res.Message, "Sold 10 TCS.NS")
}

func TestExecute_RejectsInvalidOrders(t *testing.T) {
	x, err := NewExecutor(newCostModel(t), "NSE", Limits{MaxQuantity: 1000, MaxPrice: dec("50000")})
	require.NoError(t, err)

	tests := []struct {
		name   string
		symbol string
		side   model.Side
		qty    int64
		price  string
		ts     time.Time
	}{
		{name: "zero quantity", symbol: "INFY", side: model.SideBuy, qty: 0, price: "100", ts: day(2)},
		{name: "negative quantity", symbol: "INFY", side: model.SideBuy, qty: -5, price: "100", ts: day(2)},
		{name: "zero price", symbol: "INFY", side: model.SideBuy, qty: 1, price: "0", ts: day(2)},
		{name: "negative price", symbol: "INFY", side: model.SideSell, qty: 1, price: "-1", ts: day(2)},
		{name: "empty symbol", symbol: "  ", side: model.SideBuy, qty: 1, price: "100", ts: day(2)},
		{name: "unknown side", symbol: "INFY", side: model.Side("short"), qty: 1, price: "100", ts: day(2)},
		{name: "zero timestamp", symbol: "INFY", side: model.SideBuy, qty: 1, price: "100", ts: time.Time{}},
		{name: "timestamp before last trade", symbol: "INFY", side: model.SideBuy, qty: 1, price: "100", ts: day(0)},
		{name: "quantity above limit", symbol: "INFY", side: model.SideBuy, qty: 1001, price: "1", ts: day(2)},
		{name: "price above limit", symbol: "INFY", side: model.SideBuy, qty: 1, price: "50000.01", ts: day(2)},
		{name: "worth less than half a paisa", symbol: "INFY", side: model.SideBuy, qty: 1, price: "0.004", ts: day(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPortfolio(t, "1000000")
			mustExecute(t, x, p, "INFY", model.SideBuy, 10, "1500", day(1))
			before := p.Snapshot()

			_, err := x.Execute(p, tt.symbol, tt.side, tt.qty, dec(tt.price), tt.ts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidOrder), "got %v", err)
			assertSnapshotUnchanged(t, before, p.Snapshot())
		})
	}
}

func TestExecute_RejectsQuantityOverflow(t *testing.T) {
	x, err := NewExecutor(zeroCosts{}, "NSE", Limits{})
	require.NoError(t, err)
	p := newTestPortfolio(t, "1000")

	half := int64(math.MaxInt64/2 + 1)
	mustExecute(t, x, p, "ABC", model.SideBuy, half, "0.0000000000000000001", day(1))
	before := p.Snapshot()

	_, err = x.Execute(p, "ABC", model.SideBuy, half, dec("0.0000000000000000001"), day(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidOrder), "got %v", err)
	assertSnapshotUnchanged(t, before, p.Snapshot())

	pos, ok := p.Position("ABC")
	require.True(t, ok)
	assert.Equal(t, half, pos.Quantity())
	require.NoError(t, p.CheckInvariants())
}

func TestExecute_InsufficientFunds(t *testing.T) {
	x := newTestExecutor(t)
	p := newTestPortfolio(t, "1000")

	// 10 x 100 costs exactly the capital before charges.
	_, err := x.Execute(p, "SBIN", model.SideBuy, 10, dec("100"), t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientFunds))
	requireDecimalEqual(t, dec("1000"), p.Cash())
	_, ok := p.Position("SBIN")
	assert.False(t, ok, "rejected first buy must not create a position")

	res := mustExecute(t, x, p, "SBIN", model.SideBuy, 9, "100", t0)
	assert.True(t, res.CashAfter.IsPositive())
}

func TestExecute_OversellLeavesStateUnchanged(t *testing.T) {
	x := newTestExecutor(t)
	p := newTestPortfolio(t, "500000")

	mustExecute(t, x, p, "HDFCBANK", model.SideBuy, 40, "1612.45", day(0))
	mustExecute(t, x, p, "HDFCBANK", model.SideSell, 15, "1650", day(1))
	before := p.Snapshot()
	pos, _ := p.Position("HDFCBANK")
	realizedBefore := pos.RealizedPnL()

	_, err := x.Execute(p, "HDFCBANK", model.SideSell, 26, dec("1700"), day(2))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientShares))

	assertSnapshotUnchanged(t, before, p.Snapshot())
	assert.Equal(t, int64(25), pos.Quantity())
	requireDecimalEqual(t, realizedBefore, pos.RealizedPnL())
	require.Len(t, pos.OpenLots(), 1)
	assert.Equal(t, int64(25), pos.OpenLots()[0].Remaining)
}

func TestExecute_SellWithoutPosition(t *testing.T) {
	x := newTestExecutor(t)
	p := newTestPortfolio(t, "1000")

	_, err := x.Execute(p, "WIPRO", model.SideSell, 1, dec("10"), t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientShares))
	assert.Empty(t, p.Positions())
}

// Hundreds of random trades must leave cash equal to the initial capital plus
// the independently recomputed rounded cash movements, with no drift.
func TestExecute_CashInvariantOverManyTrades(t *testing.T) {
	x := newTestExecutor(t)
	p := newTestPortfolio(t, "100000000")
	cm := newCostModel(t)
	rng := rand.New(rand.NewSource(42))
	symbols := []string{"RELIANCE.NS", "TCS.NS", "INFY.NS", "ITC.NS"}

	expected := dec("100000000")
	ts := t0
	for i := 0; i < 600; i++ {
		ts = ts.Add(time.Duration(rng.Intn(48)+1) * time.Hour)
		symbol := symbols[rng.Intn(len(symbols))]
		price := decimal.New(int64(rng.Intn(300000)+100), -2)

		side := model.SideBuy
		qty := int64(rng.Intn(50) + 1)
		if pos, ok := p.Position(symbol); ok && pos.Quantity() > 0 && rng.Intn(100) < 45 {
			side = model.SideSell
			qty = rng.Int63n(pos.Quantity()) + 1
		}

		res, err := x.Execute(p, symbol, side, qty, price, ts)
		require.NoError(t, err, "trade %d", i)

		value := price.Mul(decimal.NewFromInt(qty))
		charges, err := cm.Calculate(value, side, "NSE")
		require.NoError(t, err)
		if side == model.SideBuy {
			expected = expected.Sub(value.Add(charges.Total()).Round(2))
		} else {
			expected = expected.Add(value.Sub(charges.Total()).Round(2))
		}
		requireDecimalEqual(t, expected, res.CashAfter, "after trade", i)
	}

	requireDecimalEqual(t, expected, p.Cash())
	assert.True(t, p.Cash().Equal(p.Cash().Round(2)), "cash stays at subunit precision")
	assert.Equal(t, 600, p.Sequence())
	require.NoError(t, p.CheckInvariants())
}

func TestQuote(t *testing.T) {
	x := newTestExecutor(t)

	c, err := x.Quote(dec("1000000"), model.SideSell)
	require.NoError(t, err)
	requireDecimalEqual(t, dec("1062.95"), c.Total())
}

func assertSnapshotUnchanged(t *testing.T, before, after model.Snapshot) {
	t.Helper()
	requireDecimalEqual(t, before.Cash, after.Cash, "cash")
	require.Len(t, after.Ledgers, len(before.Ledgers))
	for sym, entries := range before.Ledgers {
		got := after.Ledgers[sym]
		require.Len(t, got, len(entries), sym)
		for i := range entries {
			assert.True(t, entries[i].Equal(got[i]), "%s entry %d changed", sym, i)
		}
	}
}
