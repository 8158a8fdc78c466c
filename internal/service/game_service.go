package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/engine"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/repository"
)

// GameDefaults are applied to CreateGame fields left empty.
type GameDefaults struct {
	InitialCapital decimal.Decimal
	Currency       string
	TotalDays      int
}

// CreateGameInput describes a new game. Zero fields take GameDefaults.
type CreateGameInput struct {
	Name           string
	InitialCapital decimal.Decimal
	Currency       string
	StartDate      time.Time
	TotalDays      int
}

// TradeInput is one order against a game. A zero Price trades at the market
// close of the game's current date.
type TradeInput struct {
	Symbol   string
	Side     model.Side
	Quantity int64
	Price    decimal.Decimal
}

// GameService handles the game lifecycle and routes every portfolio mutation
// through engine.Executor. Operations on one game are serialised; different
// games proceed in parallel.
type GameService struct {
	db            *sql.DB
	gameRepo      *repository.GameRepository
	valuationRepo *repository.ValuationRepository
	executor      *engine.Executor
	costs         engine.CostModel
	prices        PriceSource
	metrics       *metrics.Metrics
	defaults      GameDefaults
	now           func() time.Time

	locks sync.Map // game ID -> *sync.Mutex
}

// NewGameService creates a new GameService with the provided dependencies.
func NewGameService(
	db *sql.DB,
	gameRepo *repository.GameRepository,
	valuationRepo *repository.ValuationRepository,
	executor *engine.Executor,
	costs engine.CostModel,
	prices PriceSource,
	m *metrics.Metrics,
	defaults GameDefaults,
) *GameService {
	return &GameService{
		db:            db,
		gameRepo:      gameRepo,
		valuationRepo: valuationRepo,
		executor:      executor,
		costs:         costs,
		prices:        prices,
		metrics:       m,
		defaults:      defaults,
		now:           time.Now,
	}
}

func (s *GameService) lock(gameID string) func() {
	mu, _ := s.locks.LoadOrStore(gameID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// CreateGame stores a new game with its opening cash balance and the day 0
// valuation. The initial capital is rounded to the currency subunit.
func (s *GameService) CreateGame(ctx context.Context, in CreateGameInput) (model.Game, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Game{}, fmt.Errorf("%w: name is required", apperrors.ErrInvalidGameConfig)
	}

	capital := in.InitialCapital
	if capital.IsZero() {
		capital = s.defaults.InitialCapital
	}
	currency := in.Currency
	if currency == "" {
		currency = s.defaults.Currency
	}
	totalDays := in.TotalDays
	if totalDays == 0 {
		totalDays = s.defaults.TotalDays
	}
	if totalDays < 0 {
		return model.Game{}, fmt.Errorf("%w: total days must be positive", apperrors.ErrInvalidGameConfig)
	}

	p, err := engine.NewPortfolio(capital, currency)
	if err != nil {
		return model.Game{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidGameConfig, err)
	}

	start := in.StartDate
	if start.IsZero() {
		start = s.now()
	}

	g := model.Game{
		ID:             uuid.New().String(),
		Name:           name,
		InitialCapital: p.InitialCapital(),
		Currency:       p.Currency(),
		Venue:          s.executor.Venue(),
		StartDate:      truncateDay(start),
		CurrentDay:     0,
		TotalDays:      totalDays,
		Status:         model.GameStatusActive,
		CreatedAt:      s.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Game{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.gameRepo.WithTx(tx).InsertGame(ctx, g, p.Cash()); err != nil {
		return model.Game{}, err
	}
	if err := s.valuationRepo.WithTx(tx).UpsertValuation(ctx, g.ID, s.valuation(g, p)); err != nil {
		return model.Game{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Game{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Str("game_id", g.ID).
		Str("capital", g.InitialCapital.String()).
		Str("currency", g.Currency).
		Int("total_days", g.TotalDays).
		Msg("game created")
	s.updateActiveGames(ctx)
	return g, nil
}

// ListGames returns every game, newest first.
func (s *GameService) ListGames(ctx context.Context) ([]model.Game, error) {
	return s.gameRepo.GetGames(ctx)
}

// GetGame returns a single game.
func (s *GameService) GetGame(ctx context.Context, gameID string) (model.Game, error) {
	return s.gameRepo.GetGame(ctx, gameID)
}

// GetState rebuilds a game's portfolio from its ledger and returns the summary
// and positions at the stored marks.
func (s *GameService) GetState(ctx context.Context, gameID string) (model.GameState, error) {
	unlock := s.lock(gameID)
	defer unlock()

	g, p, err := s.load(ctx, gameID)
	if err != nil {
		return model.GameState{}, err
	}
	return buildState(g, p), nil
}

// ExecuteTrade prices and executes one order, then persists the new ledger entry,
// cash and marks in a single database transaction. Rejected orders leave the
// stored game untouched.
func (s *GameService) ExecuteTrade(ctx context.Context, gameID string, in TradeInput) (model.TradeResult, error) {
	unlock := s.lock(gameID)
	defer unlock()

	started := s.now()
	side := string(in.Side)
	symbol := engine.NormalizeSymbol(in.Symbol)

	g, p, err := s.load(ctx, gameID)
	if err != nil {
		return model.TradeResult{}, err
	}
	if g.Status == model.GameStatusCompleted {
		s.metrics.RecordTrade(side, metrics.ResultRejected, s.now().Sub(started))
		return model.TradeResult{}, apperrors.ErrGameCompleted
	}

	price := in.Price
	if price.IsZero() {
		price, err = s.prices.ClosePrice(ctx, symbol, g.CurrentDate())
		if err != nil {
			s.metrics.RecordTrade(side, metrics.ResultRejected, s.now().Sub(started))
			return model.TradeResult{}, err
		}
	}

	ts := s.tradeTimestamp(g, p)
	result, err := s.executor.Execute(p, symbol, in.Side, in.Quantity, price, ts)
	if err != nil {
		s.metrics.RecordTrade(side, metrics.ResultRejected, s.now().Sub(started))
		log.Warn().
			Err(err).
			Str("game_id", gameID).
			Str("symbol", symbol).
			Str("side", side).
			Int64("quantity", in.Quantity).
			Str("price", price.String()).
			Msg("trade rejected")
		return model.TradeResult{}, err
	}

	if err := s.save(ctx, gameID, p); err != nil {
		s.metrics.RecordTrade(side, metrics.ResultFailed, s.now().Sub(started))
		return model.TradeResult{}, err
	}

	s.metrics.RecordTrade(side, metrics.ResultExecuted, s.now().Sub(started))
	log.Info().
		Str("game_id", gameID).
		Str("entry_id", result.Entry.ID).
		Int("sequence", result.Entry.Sequence).
		Str("symbol", result.Symbol).
		Str("side", side).
		Int64("quantity", result.Quantity).
		Str("price", result.ExecutedPrice.String()).
		Str("costs", result.TotalCosts.String()).
		Str("cash_after", result.CashAfter.String()).
		Msg("trade executed")
	return result, nil
}

// tradeTimestamp places the trade on the game's current date at the wall-clock
// time of day, never earlier than the last recorded trade.
func (s *GameService) tradeTimestamp(g model.Game, p *engine.Portfolio) time.Time {
	now := s.now().UTC()
	ts := g.CurrentDate().Add(now.Sub(truncateDay(now)))
	if last := p.LastTradeAt(); !ts.After(last) {
		ts = last.Add(time.Millisecond)
	}
	return ts
}

// AdvanceDay moves a game to its next trading day, refreshes the marks of held
// symbols and records the valuation of the new day. The game is completed once
// the current day reaches its total days.
func (s *GameService) AdvanceDay(ctx context.Context, gameID string) (model.GameState, error) {
	unlock := s.lock(gameID)
	defer unlock()

	g, p, err := s.load(ctx, gameID)
	if err != nil {
		return model.GameState{}, err
	}
	if g.Status == model.GameStatusCompleted {
		return model.GameState{}, apperrors.ErrGameCompleted
	}

	g.CurrentDay++
	if g.CurrentDay >= g.TotalDays {
		g.Status = model.GameStatusCompleted
	}

	refresh := s.refreshMarks(ctx, g, p)
	s.metrics.RecordMarkRefresh(metrics.TriggerAdvance, refreshResult(refresh))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.GameState{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	repo := s.gameRepo.WithTx(tx)
	if err := repo.UpdateGameProgress(ctx, g.ID, g.CurrentDay, g.Status); err != nil {
		return model.GameState{}, err
	}
	if err := repo.UpsertMarks(ctx, g.ID, p.Snapshot().Marks); err != nil {
		return model.GameState{}, err
	}
	if err := s.valuationRepo.WithTx(tx).UpsertValuation(ctx, g.ID, s.valuation(g, p)); err != nil {
		return model.GameState{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.GameState{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Str("game_id", g.ID).
		Int("day", g.CurrentDay).
		Str("status", g.Status).
		Int("marks_updated", len(refresh.Updated)).
		Int("marks_failed", len(refresh.Failed)).
		Msg("day advanced")
	if g.Status == model.GameStatusCompleted {
		s.updateActiveGames(ctx)
	}
	return buildState(g, p), nil
}

// RefreshMarks re-prices every held symbol at the close of the game's current date.
// Symbols whose price cannot be resolved keep their previous mark and are listed in
// MarkRefresh.Failed; this is not an error.
func (s *GameService) RefreshMarks(ctx context.Context, gameID, trigger string) (model.MarkRefresh, error) {
	unlock := s.lock(gameID)
	defer unlock()

	g, p, err := s.load(ctx, gameID)
	if err != nil {
		return model.MarkRefresh{}, err
	}

	refresh := s.refreshMarks(ctx, g, p)
	s.metrics.RecordMarkRefresh(trigger, refreshResult(refresh))

	if len(refresh.Updated) > 0 {
		if err := s.gameRepo.UpsertMarks(ctx, g.ID, refresh.Updated); err != nil {
			return model.MarkRefresh{}, err
		}
	}
	return refresh, nil
}

func (s *GameService) refreshMarks(ctx context.Context, g model.Game, p *engine.Portfolio) model.MarkRefresh {
	date := g.CurrentDate()
	refresh := model.MarkRefresh{
		GameID:  g.ID,
		Date:    date,
		Updated: map[string]decimal.Decimal{},
	}

	for _, symbol := range p.HeldSymbols() {
		price, err := s.prices.ClosePrice(ctx, symbol, date)
		if err == nil {
			err = p.SetMark(symbol, price)
		}
		if err != nil {
			if refresh.Failed == nil {
				refresh.Failed = map[string]string{}
			}
			refresh.Failed[symbol] = err.Error()
			log.Warn().Err(err).Str("game_id", g.ID).Str("symbol", symbol).Msg("mark price not refreshed")
			continue
		}
		refresh.Updated[symbol] = price
	}
	return refresh
}

func refreshResult(r model.MarkRefresh) string {
	if len(r.Failed) > 0 {
		return metrics.ResultFailed
	}
	return metrics.ResultOK
}

// Performance returns the XIRR of every position and of the whole portfolio,
// valued at the stored marks at the end of the game's current date.
func (s *GameService) Performance(ctx context.Context, gameID string) (model.PerformanceReport, error) {
	unlock := s.lock(gameID)
	defer unlock()

	g, p, err := s.load(ctx, gameID)
	if err != nil {
		return model.PerformanceReport{}, err
	}

	asOf := g.CurrentDate().Add(24*time.Hour - time.Nanosecond)
	if last := p.LastTradeAt(); last.After(asOf) {
		asOf = last
	}

	report := p.Performance(asOf)
	s.metrics.RecordPerformance(report.Portfolio.Available)
	for _, pp := range report.Positions {
		s.metrics.RecordPerformance(pp.Performance.Available)
	}
	return report, nil
}

// History returns the recorded end-of-day valuations of a game, day 0 first.
func (s *GameService) History(ctx context.Context, gameID string) ([]model.Valuation, error) {
	g, err := s.gameRepo.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	end := g.StartDate.AddDate(0, 0, g.TotalDays)
	history := make([]model.Valuation, 0, g.CurrentDay+1)
	err = s.valuationRepo.GetValuationHistory(ctx, g.ID, g.StartDate, end, func(v model.Valuation) error {
		history = append(history, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return history, nil
}

func (s *GameService) valuation(g model.Game, p *engine.Portfolio) model.Valuation {
	sum := p.Summary()
	return model.Valuation{
		Day:           g.CurrentDay,
		Date:          g.CurrentDate(),
		Cash:          sum.Cash,
		CostBasis:     sum.CostBasis,
		MarketValue:   sum.MarketValue,
		RealizedPnL:   sum.RealizedPnL,
		UnrealizedPnL: sum.UnrealizedPnL,
		TotalValue:    sum.TotalValue,
		CalculatedAt:  s.now().UTC(),
	}
}

// Ledger returns the entries of one symbol in sequence order.
// Returns apperrors.ErrPositionNotFound if the symbol was never traded.
func (s *GameService) Ledger(ctx context.Context, gameID, symbol string) ([]model.LedgerEntry, error) {
	if _, err := s.gameRepo.GetGame(ctx, gameID); err != nil {
		return nil, err
	}

	symbol = engine.NormalizeSymbol(symbol)
	ledgers, err := s.gameRepo.GetLedgerEntries(ctx, gameID, symbol)
	if err != nil {
		return nil, err
	}
	entries, ok := ledgers[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrPositionNotFound, symbol)
	}
	return entries, nil
}

// QuoteCosts previews the charges of an order. An empty venue uses the venue
// games are created with.
func (s *GameService) QuoteCosts(orderValue decimal.Decimal, side model.Side, venue string) (model.CostQuote, error) {
	if !side.Valid() {
		return model.CostQuote{}, apperrors.ErrInvalidSide
	}
	if orderValue.IsNegative() {
		return model.CostQuote{}, fmt.Errorf("%w: order value must not be negative", apperrors.ErrInvalidOrder)
	}

	venue = strings.ToUpper(strings.TrimSpace(venue))
	if venue == "" {
		venue = s.executor.Venue()
	}

	c, err := s.costs.Calculate(orderValue, side, venue)
	if err != nil {
		return model.CostQuote{}, err
	}

	net := orderValue.Add(c.Total())
	if side == model.SideSell {
		net = orderValue.Sub(c.Total())
	}
	return model.CostQuote{
		OrderValue: orderValue,
		Side:       side,
		Venue:      venue,
		Costs:      c,
		TotalCosts: c.Total(),
		NetAmount:  net,
	}, nil
}

// ActiveGameIDs returns the IDs of games still in progress.
func (s *GameService) ActiveGameIDs(ctx context.Context) ([]string, error) {
	games, err := s.gameRepo.GetGamesByStatus(ctx, model.GameStatusActive)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(games))
	for i, g := range games {
		ids[i] = g.ID
	}
	return ids, nil
}

// load reads a game and replays its ledger. A ledger that does not reproduce the
// stored cash is reported as apperrors.ErrRoundTripMismatch.
func (s *GameService) load(ctx context.Context, gameID string) (model.Game, *engine.Portfolio, error) {
	g, err := s.gameRepo.GetGame(ctx, gameID)
	if err != nil {
		return model.Game{}, nil, err
	}

	snap, err := s.gameRepo.LoadSnapshot(ctx, g)
	if err != nil {
		return model.Game{}, nil, err
	}

	p, err := engine.Restore(snap, s.executor)
	if err != nil {
		if errors.Is(err, apperrors.ErrRoundTripMismatch) {
			s.metrics.RecordRoundTripError()
		}
		log.Error().Err(err).Str("game_id", gameID).Msg("failed to restore portfolio")
		return model.Game{}, nil, err
	}
	return g, p, nil
}

func (s *GameService) save(ctx context.Context, gameID string, p *engine.Portfolio) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.gameRepo.WithTx(tx).SaveSnapshot(ctx, gameID, p.Snapshot()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *GameService) updateActiveGames(ctx context.Context) {
	ids, err := s.ActiveGameIDs(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count active games")
		return
	}
	s.metrics.SetActiveGames(len(ids))
}

func buildState(g model.Game, p *engine.Portfolio) model.GameState {
	positions := p.PositionSnapshots()
	sort.SliceStable(positions, func(i, j int) bool {
		// Open positions first, then flat ones; each group by symbol.
		oi, oj := positions[i].Quantity > 0, positions[j].Quantity > 0
		if oi != oj {
			return oi
		}
		return positions[i].Symbol < positions[j].Symbol
	})

	return model.GameState{
		Game:        g,
		CurrentDate: g.CurrentDate(),
		Summary:     p.Summary(),
		Positions:   positions,
	}
}
