package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
)

// PriceRepository provides data access methods for the price table, a cache of
// daily close prices keyed by symbol and date.
type PriceRepository struct {
	db *sql.DB
}

// NewPriceRepository creates a new PriceRepository with the provided database connection.
func NewPriceRepository(db *sql.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// GetClose returns the cached close of symbol on date.
// Returns apperrors.ErrPriceNotFound if nothing is stored.
func (r *PriceRepository) GetClose(ctx context.Context, symbol string, date time.Time) (decimal.Decimal, error) {
	var closePrice decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		`SELECT close FROM price WHERE symbol = ? AND date = ?`,
		symbol, date.Format(dateLayout),
	).Scan(&closePrice)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, apperrors.ErrPriceNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query price: %w", err)
	}
	return closePrice, nil
}

// UpsertClose stores the close of symbol on date, replacing any earlier value.
func (r *PriceRepository) UpsertClose(ctx context.Context, symbol string, date time.Time, closePrice decimal.Decimal, source string) error {
	query := `
        INSERT INTO price (symbol, date, close, source, fetched_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close, source = excluded.source, fetched_at = excluded.fetched_at
    `

	_, err := r.db.ExecContext(ctx, query,
		symbol,
		date.Format(dateLayout),
		closePrice.String(),
		source,
		formatTimestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price: %w", err)
	}
	return nil
}
