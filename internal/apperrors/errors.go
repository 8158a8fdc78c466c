package apperrors

import (
	"errors"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/xirr"
)

// Domain entity errors represent missing or invalid entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrGameNotFound indicates that a game with the given ID does not exist.
	ErrGameNotFound = errors.New("game not found")

	// ErrPositionNotFound indicates that the portfolio never traded the requested symbol.
	ErrPositionNotFound = errors.New("position not found")

	// ErrPriceNotFound indicates no stored close price for a specific symbol and date combination.
	ErrPriceNotFound = errors.New("price not found")

	// ErrUnknownVenue indicates that the cost schedule has no exchange rate for a venue.
	ErrUnknownVenue = errors.New("unknown venue")

	// ErrUnknownCurrency indicates an ISO 4217 code with no known subunit.
	ErrUnknownCurrency = errors.New("unknown currency")
)

// Trade errors are returned by the accounting engine before any state is touched.
// A caller receiving one of these can rely on cash and ledger being unchanged.
var (
	// ErrInvalidOrder indicates a non-positive quantity or price, an empty symbol,
	// a missing or out-of-order timestamp, or an order above the configured limits.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInsufficientFunds indicates that a buy costs more than the available cash.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInsufficientShares indicates that a sell transaction cannot be completed
	// because the portfolio does not hold enough shares of the symbol.
	ErrInsufficientShares = errors.New("insufficient shares for sale")

	// ErrPriceUnavailable indicates that no positive price could be resolved for a symbol.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrGameCompleted indicates that the game has reached its last day and accepts no more trades.
	ErrGameCompleted = errors.New("game is completed")
)

// Numerical and data integrity errors.
var (
	// ErrNoConvergence indicates that XIRR is undefined for the cash-flow series.
	// It is reported as "N/A" and never treated as fatal.
	ErrNoConvergence = xirr.ErrNoConvergence

	// ErrRoundTripMismatch indicates that a reloaded ledger does not reproduce the persisted
	// cash balance or violates a ledger invariant.
	ErrRoundTripMismatch = errors.New("persistence round-trip mismatch")

	// ErrDataInconsistency indicates that the data is in an inconsistent state
	// (e.g., a ledger row references a game that does not exist).
	ErrDataInconsistency = errors.New("data inconsistency detected")
)

// Validation errors for required fields
var (
	ErrInvalidGameID = errors.New("game ID is required")
	ErrInvalidSymbol = errors.New("symbol is required")
	ErrInvalidDate   = errors.New("date parameter is required")
	ErrInvalidSide   = errors.New("side must be buy or sell")

	// ErrInvalidGameConfig indicates game creation parameters that cannot start a game.
	ErrInvalidGameConfig = errors.New("invalid game parameters")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
// These errors indicate that an operation failed, but not due to missing entities or validation issues.
var (
	ErrFailedToRetrieveGames        = errors.New("failed to retrieve games")
	ErrFailedToRetrieveGame         = errors.New("failed to retrieve game")
	ErrFailedToCreateGame           = errors.New("failed to create game")
	ErrFailedToExecuteTrade         = errors.New("failed to execute trade")
	ErrFailedToAdvanceDay           = errors.New("failed to advance day")
	ErrFailedToRefreshMarks         = errors.New("failed to refresh mark prices")
	ErrFailedToRetrieveLedger       = errors.New("failed to retrieve ledger")
	ErrFailedToRetrieveHistory      = errors.New("failed to retrieve valuation history")
	ErrFailedToCalculatePerformance = errors.New("failed to calculate performance")
	ErrFailedToQuoteCosts           = errors.New("failed to quote costs")
	ErrFailedToGetVersionInfo       = errors.New("failed to get version information")
)
