package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/costs"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

var t0 = time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(n int) time.Time {
	return t0.AddDate(0, 0, n)
}

func newCostModel(t *testing.T) *costs.Model {
	t.Helper()
	m, err := costs.New(costs.DefaultSchedule())
	require.NoError(t, err)
	return m
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	x, err := NewExecutor(newCostModel(t), "NSE", Limits{})
	require.NoError(t, err)
	return x
}

func newTestPortfolio(t *testing.T, capital string) *Portfolio {
	t.Helper()
	p, err := NewPortfolio(dec(capital), "INR")
	require.NoError(t, err)
	return p
}

// zeroCosts charges nothing, which keeps cash flows round for XIRR checks.
type zeroCosts struct{}

func (zeroCosts) Calculate(decimal.Decimal, model.Side, string) (model.CostBreakdown, error) {
	return model.CostBreakdown{}, nil
}

func mustExecute(t *testing.T, x *Executor, p *Portfolio, symbol string, side model.Side, qty int64, price string, ts time.Time) model.TradeResult {
	t.Helper()
	res, err := x.Execute(p, symbol, side, qty, dec(price), ts)
	require.NoError(t, err)
	return res
}

// requireDecimalEqual compares numerically, ignoring exponent differences.
func requireDecimalEqual(t *testing.T, want, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, want.Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}
