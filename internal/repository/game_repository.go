package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

// GameRepository provides data access methods for the game, ledger_entry and
// mark_price tables. Ledger rows are insert-only: a saved entry is never updated
// or deleted while its game exists.
type GameRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewGameRepository creates a new GameRepository with the provided database connection.
func NewGameRepository(db *sql.DB) *GameRepository {
	return &GameRepository{db: db}
}

// WithTx returns a new GameRepository scoped to the provided transaction.
func (r *GameRepository) WithTx(tx *sql.Tx) *GameRepository {
	return &GameRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *GameRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const gameColumns = `id, name, initial_capital, currency, venue, start_date, current_day, total_days, status, created_at`

func scanGame(row interface{ Scan(dest ...any) error }) (model.Game, error) {
	var g model.Game
	var startDate, createdAt string

	err := row.Scan(
		&g.ID,
		&g.Name,
		&g.InitialCapital,
		&g.Currency,
		&g.Venue,
		&startDate,
		&g.CurrentDay,
		&g.TotalDays,
		&g.Status,
		&createdAt,
	)
	if err != nil {
		return model.Game{}, err
	}

	if g.StartDate, err = ParseTime(startDate); err != nil {
		return model.Game{}, err
	}
	if g.CreatedAt, err = ParseTime(createdAt); err != nil {
		return model.Game{}, err
	}
	return g, nil
}

// InsertGame stores a new game together with its opening cash balance.
func (r *GameRepository) InsertGame(ctx context.Context, g model.Game, cash decimal.Decimal) error {
	query := `
        INSERT INTO game (id, name, initial_capital, cash, currency, venue, start_date, current_day, total_days, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	now := formatTimestamp(g.CreatedAt)
	_, err := r.getQuerier().ExecContext(ctx, query,
		g.ID,
		g.Name,
		g.InitialCapital.String(),
		cash.String(),
		g.Currency,
		g.Venue,
		g.StartDate.Format(dateLayout),
		g.CurrentDay,
		g.TotalDays,
		g.Status,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	return nil
}

// GetGames retrieves all games, newest first. Returns an empty slice if there are none.
func (r *GameRepository) GetGames(ctx context.Context) ([]model.Game, error) {
	return r.queryGames(ctx, `SELECT `+gameColumns+` FROM game ORDER BY created_at DESC, id`)
}

// GetGamesByStatus retrieves the games in the given status, oldest first.
func (r *GameRepository) GetGamesByStatus(ctx context.Context, status string) ([]model.Game, error) {
	return r.queryGames(ctx, `SELECT `+gameColumns+` FROM game WHERE status = ? ORDER BY created_at, id`, status)
}

func (r *GameRepository) queryGames(ctx context.Context, query string, args ...any) ([]model.Game, error) {
	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query game table: %w", err)
	}
	defer rows.Close()

	games := []model.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game table results: %w", err)
		}
		games = append(games, g)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game table: %w", err)
	}
	return games, nil
}

// GetGame retrieves a single game. Returns apperrors.ErrGameNotFound if it does not exist.
func (r *GameRepository) GetGame(ctx context.Context, gameID string) (model.Game, error) {
	row := r.getQuerier().QueryRowContext(ctx, `SELECT `+gameColumns+` FROM game WHERE id = ?`, gameID)

	g, err := scanGame(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Game{}, apperrors.ErrGameNotFound
	}
	if err != nil {
		return model.Game{}, fmt.Errorf("failed to query game: %w", err)
	}
	return g, nil
}

// UpdateGameProgress stores the current day and status of a game.
func (r *GameRepository) UpdateGameProgress(ctx context.Context, gameID string, currentDay int, status string) error {
	query := `UPDATE game SET current_day = ?, status = ?, updated_at = ? WHERE id = ?`

	result, err := r.getQuerier().ExecContext(ctx, query, currentDay, status, formatTimestamp(time.Now()), gameID)
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}
	return requireAffected(result, apperrors.ErrGameNotFound)
}

// LoadSnapshot reads the persisted portfolio of a game: cash, every ledger entry
// grouped by symbol in sequence order, and the stored mark prices.
func (r *GameRepository) LoadSnapshot(ctx context.Context, g model.Game) (model.Snapshot, error) {
	var cash decimal.Decimal
	err := r.getQuerier().QueryRowContext(ctx, `SELECT cash FROM game WHERE id = ?`, g.ID).Scan(&cash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, apperrors.ErrGameNotFound
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to query game cash: %w", err)
	}

	ledgers, err := r.GetLedgerEntries(ctx, g.ID, "")
	if err != nil {
		return model.Snapshot{}, err
	}
	marks, err := r.GetMarks(ctx, g.ID)
	if err != nil {
		return model.Snapshot{}, err
	}

	return model.Snapshot{
		InitialCapital: g.InitialCapital,
		Cash:           cash,
		Currency:       g.Currency,
		Ledgers:        ledgers,
		Marks:          marks,
	}, nil
}

// SaveSnapshot persists cash, inserts the ledger entries not yet stored and
// replaces the mark prices. Entries already stored are never rewritten. A
// snapshot holding fewer entries than the database is rejected with
// apperrors.ErrDataInconsistency. Run it inside WithTx so the game row, the ledger
// and the marks change together.
func (r *GameRepository) SaveSnapshot(ctx context.Context, gameID string, s model.Snapshot) error {
	stored, err := r.GetLastSequence(ctx, gameID)
	if err != nil {
		return err
	}

	var pending []model.LedgerEntry
	latest := 0
	for _, entries := range s.Ledgers {
		for _, e := range entries {
			latest = max(latest, e.Sequence)
			if e.Sequence > stored {
				pending = append(pending, e)
			}
		}
	}
	if latest < stored {
		return fmt.Errorf("%w: snapshot ends at sequence %d, database holds %d", apperrors.ErrDataInconsistency, latest, stored)
	}

	if err := r.InsertLedgerEntries(ctx, gameID, pending); err != nil {
		return err
	}

	result, err := r.getQuerier().ExecContext(ctx,
		`UPDATE game SET cash = ?, updated_at = ? WHERE id = ?`,
		s.Cash.String(), formatTimestamp(time.Now()), gameID,
	)
	if err != nil {
		return fmt.Errorf("failed to update game cash: %w", err)
	}
	if err := requireAffected(result, apperrors.ErrGameNotFound); err != nil {
		return err
	}

	return r.UpsertMarks(ctx, gameID, s.Marks)
}

// GetLastSequence returns the highest stored ledger sequence of a game, 0 if none.
func (r *GameRepository) GetLastSequence(ctx context.Context, gameID string) (int, error) {
	var seq sql.NullInt64
	err := r.getQuerier().QueryRowContext(ctx, `SELECT MAX(sequence) FROM ledger_entry WHERE game_id = ?`, gameID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to query ledger sequence: %w", err)
	}
	return int(seq.Int64), nil
}

// InsertLedgerEntries appends entries to a game's ledger.
func (r *GameRepository) InsertLedgerEntries(ctx context.Context, gameID string, entries []model.LedgerEntry) error {
	query := `
        INSERT INTO ledger_entry (
            id, game_id, sequence, symbol, timestamp, side, quantity, unit_price,
            brokerage, securities_tax, exchange_fee, tax, regulatory_fee,
            gross_amount, net_cash_impact
        )
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `

	for _, e := range entries {
		_, err := r.getQuerier().ExecContext(ctx, query,
			e.ID,
			gameID,
			e.Sequence,
			e.Symbol,
			formatTimestamp(e.Timestamp),
			string(e.Side),
			e.Quantity,
			e.UnitPrice.String(),
			e.Costs.Brokerage.String(),
			e.Costs.SecuritiesTax.String(),
			e.Costs.ExchangeFee.String(),
			e.Costs.Tax.String(),
			e.Costs.RegulatoryFee.String(),
			e.GrossAmount.String(),
			e.NetCashImpact.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert ledger entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// GetLedgerEntries retrieves a game's ledger grouped by symbol, each in sequence
// order. An empty symbol returns every symbol.
func (r *GameRepository) GetLedgerEntries(ctx context.Context, gameID, symbol string) (map[string][]model.LedgerEntry, error) {
	query := `
        SELECT id, sequence, symbol, timestamp, side, quantity, unit_price,
               brokerage, securities_tax, exchange_fee, tax, regulatory_fee,
               gross_amount, net_cash_impact
        FROM ledger_entry
        WHERE game_id = ?
    `
	args := []any{gameID}
	if symbol != "" {
		query += ` AND symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY sequence ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger_entry table: %w", err)
	}
	defer rows.Close()

	ledgers := make(map[string][]model.LedgerEntry)
	for rows.Next() {
		var e model.LedgerEntry
		var ts, side string

		err := rows.Scan(
			&e.ID,
			&e.Sequence,
			&e.Symbol,
			&ts,
			&side,
			&e.Quantity,
			&e.UnitPrice,
			&e.Costs.Brokerage,
			&e.Costs.SecuritiesTax,
			&e.Costs.ExchangeFee,
			&e.Costs.Tax,
			&e.Costs.RegulatoryFee,
			&e.GrossAmount,
			&e.NetCashImpact,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger_entry table results: %w", err)
		}

		e.Side = model.Side(side)
		if e.Timestamp, err = parseTimestamp(ts); err != nil {
			return nil, err
		}
		ledgers[e.Symbol] = append(ledgers[e.Symbol], e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger_entry table: %w", err)
	}
	return ledgers, nil
}

// UpsertMarks stores the latest mark price per symbol.
func (r *GameRepository) UpsertMarks(ctx context.Context, gameID string, marks map[string]decimal.Decimal) error {
	query := `
        INSERT INTO mark_price (game_id, symbol, price, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(game_id, symbol) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at
    `

	now := formatTimestamp(time.Now())
	for symbol, price := range marks {
		if _, err := r.getQuerier().ExecContext(ctx, query, gameID, symbol, price.String(), now); err != nil {
			return fmt.Errorf("failed to upsert mark price for %s: %w", symbol, err)
		}
	}
	return nil
}

// GetMarks retrieves the stored mark prices of a game.
func (r *GameRepository) GetMarks(ctx context.Context, gameID string) (map[string]decimal.Decimal, error) {
	rows, err := r.getQuerier().QueryContext(ctx, `SELECT symbol, price FROM mark_price WHERE game_id = ?`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to query mark_price table: %w", err)
	}
	defer rows.Close()

	marks := make(map[string]decimal.Decimal)
	for rows.Next() {
		var symbol string
		var price decimal.Decimal
		if err := rows.Scan(&symbol, &price); err != nil {
			return nil, fmt.Errorf("failed to scan mark_price table results: %w", err)
		}
		marks[symbol] = price
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mark_price table: %w", err)
	}
	return marks, nil
}

func requireAffected(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
