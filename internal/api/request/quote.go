package request

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

// QuoteParams are the query parameters of GET /api/costs/quote.
type QuoteParams struct {
	Value decimal.Decimal
	Side  model.Side
	Venue string
}

// ParseQuoteParams validates the cost preview query.
//
// Validation rules:
//   - value: required, a non-negative decimal
//   - side: required, buy or sell (case-insensitive)
//   - venue: optional, upper-cased; empty means the default venue
func ParseQuoteParams(valueParam, sideParam, venueParam string) (QuoteParams, error) {
	var params QuoteParams

	if strings.TrimSpace(valueParam) == "" {
		return params, fmt.Errorf("value is required")
	}
	value, err := decimal.NewFromString(strings.TrimSpace(valueParam))
	if err != nil {
		return params, fmt.Errorf("invalid value %q: %w", valueParam, err)
	}
	if value.IsNegative() {
		return params, fmt.Errorf("value must not be negative")
	}
	params.Value = value

	side := model.Side(strings.ToLower(strings.TrimSpace(sideParam)))
	if !side.Valid() {
		return params, fmt.Errorf("invalid side: %q", sideParam)
	}
	params.Side = side

	params.Venue = strings.ToUpper(strings.TrimSpace(venueParam))
	return params, nil
}
