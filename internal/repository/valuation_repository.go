package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

// ValuationRepository provides data access methods for the game_valuation table,
// the stored end-of-day summaries of each game.
type ValuationRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewValuationRepository creates a new repository instance.
func NewValuationRepository(db *sql.DB) *ValuationRepository {
	return &ValuationRepository{db: db}
}

// WithTx returns a new ValuationRepository scoped to the provided transaction.
func (r *ValuationRepository) WithTx(tx *sql.Tx) *ValuationRepository {
	return &ValuationRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *ValuationRepository) getQuerier() interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// UpsertValuation stores the summary of one game day, replacing an earlier
// calculation for the same day.
func (r *ValuationRepository) UpsertValuation(ctx context.Context, gameID string, v model.Valuation) error {
	query := `
        INSERT INTO game_valuation (game_id, day, date, cash, cost_basis, market_value,
                                    realized_pnl, unrealized_pnl, total_value, calculated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(game_id, day) DO UPDATE SET
            date = excluded.date,
            cash = excluded.cash,
            cost_basis = excluded.cost_basis,
            market_value = excluded.market_value,
            realized_pnl = excluded.realized_pnl,
            unrealized_pnl = excluded.unrealized_pnl,
            total_value = excluded.total_value,
            calculated_at = excluded.calculated_at
    `

	_, err := r.getQuerier().ExecContext(ctx, query,
		gameID,
		v.Day,
		v.Date.Format(dateLayout),
		v.Cash.String(),
		v.CostBasis.String(),
		v.MarketValue.String(),
		v.RealizedPnL.String(),
		v.UnrealizedPnL.String(),
		v.TotalValue.String(),
		formatTimestamp(v.CalculatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert valuation: %w", err)
	}
	return nil
}

// GetValuationHistory streams a game's valuations between two dates (inclusive)
// in day order. Records are handed to callback one at a time; an error from
// callback stops the scan and is returned.
func (r *ValuationRepository) GetValuationHistory(
	ctx context.Context,
	gameID string,
	startDate, endDate time.Time,
	callback func(v model.Valuation) error,
) error {
	query := `
        SELECT day, date, cash, cost_basis, market_value, realized_pnl,
               unrealized_pnl, total_value, calculated_at
        FROM game_valuation
        WHERE game_id = ?
        AND date >= ?
        AND date <= ?
        ORDER BY day ASC
    `

	rows, err := r.getQuerier().QueryContext(ctx, query,
		gameID,
		startDate.Format(dateLayout),
		endDate.Format(dateLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to query game_valuation: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v model.Valuation
		var date, calculatedAt string

		err := rows.Scan(
			&v.Day,
			&date,
			&v.Cash,
			&v.CostBasis,
			&v.MarketValue,
			&v.RealizedPnL,
			&v.UnrealizedPnL,
			&v.TotalValue,
			&calculatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan game_valuation: %w", err)
		}

		if v.Date, err = ParseTime(date); err != nil {
			return err
		}
		if v.CalculatedAt, err = ParseTime(calculatedAt); err != nil {
			return err
		}

		if err := callback(v); err != nil {
			return err
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating game_valuation rows: %w", err)
	}
	return nil
}
