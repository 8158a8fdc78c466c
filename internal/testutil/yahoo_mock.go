package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/yahoo"
)

// MockYahooClient is a mock implementation of yahoo.Client for testing.
// It returns predefined test data instead of making actual API calls.
type MockYahooClient struct {
	mu sync.Mutex

	// MockResponse is the response to return from query methods
	MockResponse yahoo.Response
	// MockError is the error to return from query methods
	MockError error
	// QueryCount tracks how many times a query method was called
	QueryCount int
	// LastSymbol is the ticker of the most recent query
	LastSymbol string
	// Delay blocks each query, for exercising concurrent callers
	Delay time.Duration
}

// NewMockYahooClient creates a new mock Yahoo client with five days of
// closes ending on DefaultStartDate.
func NewMockYahooClient() *MockYahooClient {
	return &MockYahooClient{
		MockResponse: CreateMockYahooResponse(DefaultStartDate, 5),
	}
}

// QueryYahooSymbolByDateRange mocks the date range query with predefined test data.
func (m *MockYahooClient) QueryYahooSymbolByDateRange(ctx context.Context, symbol string, _, _ time.Time) (yahoo.Response, error) {
	m.mu.Lock()
	m.QueryCount++
	m.LastSymbol = symbol
	delay, resp, err := m.Delay, m.MockResponse, m.MockError
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return yahoo.Response{}, ctx.Err()
		}
	}
	if err != nil {
		return yahoo.Response{}, err
	}
	return resp, nil
}

// ParseChart delegates to the real ParseChart method since it's pure logic with no side effects.
func (m *MockYahooClient) ParseChart(yahooResult yahoo.Response) (yahoo.PriceChart, error) {
	return yahoo.NewFinanceClient("", 0).ParseChart(yahooResult)
}

// Queries returns QueryCount under the lock.
func (m *MockYahooClient) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.QueryCount
}

// WithError configures the mock to return the specified error.
func (m *MockYahooClient) WithError(err error) *MockYahooClient {
	m.MockError = err
	return m
}

// WithResponse configures the mock to return the specified response.
func (m *MockYahooClient) WithResponse(resp yahoo.Response) *MockYahooClient {
	m.MockResponse = resp
	return m
}

// CreateMockYahooResponse creates a chart response with `days` daily closes ending
// on last. Closes start at 100 and rise by 0.5 a day.
func CreateMockYahooResponse(last time.Time, days int) yahoo.Response {
	timestamps := make([]int64, days)
	closes := make([]*float64, days)
	volumes := make([]*int64, days)

	for i := 0; i < days; i++ {
		date := last.AddDate(0, 0, -days+i+1)
		timestamps[i] = date.Unix()

		closePrice := 100.0 + float64(i)*0.5
		volume := int64(1000000 + i*10000)
		closes[i] = &closePrice
		volumes[i] = &volume
	}

	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{
				{
					Meta: yahoo.Meta{
						Symbol:       "TEST.NS",
						Currency:     "INR",
						ExchangeName: "NSI",
					},
					Timestamp: timestamps,
					Indicators: yahoo.IndicatorsContainer{
						Quote: []yahoo.Quote{{Close: closes, Volume: volumes}},
					},
				},
			},
		},
	}
}

// CreateMockYahooResponseForDate creates a mock Yahoo response with a single day's close.
func CreateMockYahooResponseForDate(date time.Time, price float64) yahoo.Response {
	return yahoo.Response{
		Chart: yahoo.Chart{
			Result: []yahoo.Result{
				{
					Meta:      yahoo.Meta{Symbol: "TEST.NS", Currency: "INR"},
					Timestamp: []int64{date.Unix()},
					Indicators: yahoo.IndicatorsContainer{
						Quote: []yahoo.Quote{{Close: []*float64{&price}}},
					},
				},
			},
		},
	}
}

// FakePriceSource is an in-memory service.PriceSource keyed by symbol. A symbol
// without a price yields apperrors.ErrPriceUnavailable.
type FakePriceSource struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	Calls  int
}

// NewFakePriceSource creates a FakePriceSource from symbol/price pairs.
//
// Example usage:
//
//	prices := testutil.NewFakePriceSource(map[string]string{"ITC": "405.35"})
func NewFakePriceSource(prices map[string]string) *FakePriceSource {
	f := &FakePriceSource{prices: map[string]decimal.Decimal{}}
	for symbol, price := range prices {
		f.prices[symbol] = decimal.RequireFromString(price)
	}
	return f
}

// Set changes the price returned for symbol.
func (f *FakePriceSource) Set(symbol, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[symbol] = decimal.RequireFromString(price)
}

// ClosePrice returns the configured price regardless of date.
func (f *FakePriceSource) ClosePrice(_ context.Context, symbol string, _ time.Time) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++

	price, ok := f.prices[symbol]
	if !ok || !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", apperrors.ErrPriceUnavailable, symbol)
	}
	return price, nil
}
