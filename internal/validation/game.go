package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

const (
	maxGameNameLength = 100
	maxSymbolLength   = 20
	maxTotalDays      = 3650
)

// ValidateCreateGame validates a game creation request.
//
// Required fields:
//   - name: non-empty, at most 100 characters
//
// Optional fields (validated if provided):
//   - initialCapital: must be positive
//   - currency: three-letter ISO 4217 code
//   - startDate: YYYY-MM-DD
//   - totalDays: between 1 and 3650
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateCreateGame(req request.CreateGameRequest) error {
	errors := make(map[string]string)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errors["name"] = "name is required"
	} else if len(name) > maxGameNameLength {
		errors["name"] = fmt.Sprintf("name must be at most %d characters", maxGameNameLength)
	}

	if req.InitialCapital != nil && !req.InitialCapital.IsPositive() {
		errors["initialCapital"] = "initialCapital must be positive"
	}

	if req.Currency != "" && len(strings.TrimSpace(req.Currency)) != 3 {
		errors["currency"] = fmt.Sprintf("invalid currency code: %s", req.Currency)
	}

	if req.StartDate != "" {
		if _, err := time.Parse("2006-01-02", req.StartDate); err != nil {
			errors["startDate"] = "startDate must be in YYYY-MM-DD format"
		}
	}

	if req.TotalDays != nil && (*req.TotalDays <= 0 || *req.TotalDays > maxTotalDays) {
		errors["totalDays"] = fmt.Sprintf("totalDays must be between 1 and %d", maxTotalDays)
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}

// ValidateTrade validates a trade request.
//
// Required fields:
//   - symbol: non-empty, at most 20 characters
//   - side: buy or sell
//   - quantity: positive whole number of shares
//
// Optional fields:
//   - price: must be positive if provided
func ValidateTrade(req request.TradeRequest) error {
	errors := make(map[string]string)

	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		errors["symbol"] = "symbol is required"
	} else if len(symbol) > maxSymbolLength {
		errors["symbol"] = fmt.Sprintf("symbol must be at most %d characters", maxSymbolLength)
	}

	if strings.TrimSpace(req.Side) == "" {
		errors["side"] = "side is required"
	} else if !model.Side(strings.ToLower(req.Side)).Valid() {
		errors["side"] = fmt.Sprintf("invalid side: %s", req.Side)
	}

	if req.Quantity <= 0 {
		errors["quantity"] = "quantity must be positive"
	}

	if req.Price != nil && !req.Price.IsPositive() {
		errors["price"] = "price must be positive"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}
	return nil
}
