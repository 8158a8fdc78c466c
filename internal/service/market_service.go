package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/engine"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/repository"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/yahoo"
)

// PriceSource resolves the close price of a symbol on a trading date.
// Implementations return apperrors.ErrPriceUnavailable when no positive price exists.
type PriceSource interface {
	ClosePrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error)
}

// lookback is how far before the requested date a close is searched for, so that
// weekends and exchange holidays resolve to the previous session.
const lookback = 7 * 24 * time.Hour

// sourceYahoo is recorded in the price table for closes fetched remotely.
const sourceYahoo = "yahoo"

// MarketService resolves close prices through the price table, falling back to
// Yahoo Finance. Concurrent misses for the same symbol and date share one request.
type MarketService struct {
	priceRepo   *repository.PriceRepository
	yahooClient yahoo.Client
	suffix      string
	metrics     *metrics.Metrics
	group       singleflight.Group
}

// NewMarketService creates a MarketService. suffix is appended to plain symbols
// to form the Yahoo ticker (".NS" for the National Stock Exchange of India).
func NewMarketService(
	priceRepo *repository.PriceRepository,
	yahooClient yahoo.Client,
	suffix string,
	m *metrics.Metrics,
) *MarketService {
	return &MarketService{
		priceRepo:   priceRepo,
		yahooClient: yahooClient,
		suffix:      suffix,
		metrics:     m,
	}
}

// ClosePrice returns the close of symbol on date, or the last close before it when
// the exchange did not trade that day. Results are cached in the price table.
func (s *MarketService) ClosePrice(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	symbol = engine.NormalizeSymbol(symbol)
	if symbol == "" {
		return decimal.Zero, apperrors.ErrInvalidSymbol
	}
	day := truncateDay(date)

	cached, err := s.priceRepo.GetClose(ctx, symbol, day)
	if err == nil && cached.IsPositive() {
		s.metrics.RecordPriceLookup(metrics.SourceCache, metrics.ResultHit)
		return cached, nil
	}
	if err != nil && !errors.Is(err, apperrors.ErrPriceNotFound) {
		return decimal.Zero, err
	}
	s.metrics.RecordPriceLookup(metrics.SourceCache, metrics.ResultMiss)

	key := symbol + "|" + day.Format("2006-01-02")
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.fetchClose(ctx, symbol, day)
	})
	if err != nil {
		s.metrics.RecordPriceLookup(metrics.SourceRemote, metrics.ResultFailed)
		return decimal.Zero, err
	}
	s.metrics.RecordPriceLookup(metrics.SourceRemote, metrics.ResultOK)

	if shared {
		log.Debug().Str("symbol", symbol).Time("date", day).Msg("shared in-flight price lookup")
	}
	return v.(decimal.Decimal), nil
}

func (s *MarketService) fetchClose(ctx context.Context, symbol string, day time.Time) (decimal.Decimal, error) {
	ticker := s.Ticker(symbol)

	raw, err := s.yahooClient.QueryYahooSymbolByDateRange(ctx, ticker, day.Add(-lookback), day.Add(24*time.Hour))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s on %s: %w", apperrors.ErrPriceUnavailable, symbol, day.Format("2006-01-02"), err)
	}
	chart, err := s.yahooClient.ParseChart(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s on %s: %w", apperrors.ErrPriceUnavailable, symbol, day.Format("2006-01-02"), err)
	}

	ind, ok := latestOnOrBefore(chart.Indicators, day)
	if !ok || ind.PriceClose <= 0 {
		return decimal.Zero, fmt.Errorf("%w: no close for %s on or before %s", apperrors.ErrPriceUnavailable, symbol, day.Format("2006-01-02"))
	}

	closePrice := decimal.NewFromFloat(ind.PriceClose)
	if err := s.priceRepo.UpsertClose(ctx, symbol, day, closePrice, sourceYahoo); err != nil {
		// The price is still good; only the cache write failed.
		log.Warn().Err(err).Str("symbol", symbol).Msg("failed to cache close price")
	}

	log.Info().
		Str("symbol", symbol).
		Str("ticker", ticker).
		Time("date", day).
		Time("session", ind.Date).
		Str("close", closePrice.String()).
		Msg("fetched close price")
	return closePrice, nil
}

// Ticker returns the Yahoo ticker for symbol. Symbols that already carry an
// exchange suffix or an index prefix are used as given.
func (s *MarketService) Ticker(symbol string) string {
	if s.suffix == "" || strings.ContainsAny(symbol, ".^") {
		return symbol
	}
	return symbol + s.suffix
}

func latestOnOrBefore(indicators []yahoo.Indicators, day time.Time) (yahoo.Indicators, bool) {
	var best yahoo.Indicators
	found := false
	for _, ind := range indicators {
		if ind.Date.After(day) {
			continue
		}
		if !found || ind.Date.After(best.Date) {
			best = ind
			found = true
		}
	}
	return best, found
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
