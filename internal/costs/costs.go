// Package costs implements the transaction-cost model applied to every order:
// brokerage, securities transaction tax, exchange fee, tax on services and the
// regulatory levy.
package costs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

// Schedule holds the rates used by the cost model.
//
// Rates are fractions of order value (0.0003 is 0.03%). BrokerageCap is an
// absolute amount in the portfolio currency. VenueRates maps an exchange code
// to its transaction charge rate.
type Schedule struct {
	BrokerageRate  decimal.Decimal
	BrokerageCap   decimal.Decimal
	SellTaxRate    decimal.Decimal
	TaxRate        decimal.Decimal
	RegulatoryRate decimal.Decimal
	VenueRates     map[string]decimal.Decimal
}

// DefaultSchedule returns the delivery-trade schedule for Indian equities:
// 0.03% brokerage capped at 20, 0.1% STT on sells, NSE/BSE exchange charges,
// 18% GST on brokerage plus exchange charges and SEBI fees of 10 per crore.
func DefaultSchedule() Schedule {
	return Schedule{
		BrokerageRate:  decimal.RequireFromString("0.0003"),
		BrokerageCap:   decimal.NewFromInt(20),
		SellTaxRate:    decimal.RequireFromString("0.001"),
		TaxRate:        decimal.RequireFromString("0.18"),
		RegulatoryRate: decimal.RequireFromString("0.000001"),
		VenueRates: map[string]decimal.Decimal{
			"NSE": decimal.RequireFromString("0.0000325"),
			"BSE": decimal.RequireFromString("0.0000375"),
		},
	}
}

// Validate checks that every rate is non-negative and that at least one venue is configured.
func (s Schedule) Validate() error {
	fields := map[string]decimal.Decimal{
		"brokerage_rate":  s.BrokerageRate,
		"brokerage_cap":   s.BrokerageCap,
		"sell_tax_rate":   s.SellTaxRate,
		"tax_rate":        s.TaxRate,
		"regulatory_rate": s.RegulatoryRate,
	}
	for name, v := range fields {
		if v.IsNegative() {
			return fmt.Errorf("cost schedule: %s must not be negative, got %s", name, v)
		}
	}
	if len(s.VenueRates) == 0 {
		return fmt.Errorf("cost schedule: at least one venue rate is required")
	}
	for venue, v := range s.VenueRates {
		if v.IsNegative() {
			return fmt.Errorf("cost schedule: venue %s rate must not be negative, got %s", venue, v)
		}
	}
	return nil
}

// Model computes cost breakdowns. It is immutable after construction and safe
// for concurrent use.
type Model struct {
	schedule Schedule
}

// New creates a Model from a validated copy of the schedule.
// Venue codes are normalised to upper case.
func New(s Schedule) (*Model, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	venues := make(map[string]decimal.Decimal, len(s.VenueRates))
	for k, v := range s.VenueRates {
		venues[strings.ToUpper(k)] = v
	}
	s.VenueRates = venues
	return &Model{schedule: s}, nil
}

// Schedule returns the rates in use.
func (m *Model) Schedule() Schedule {
	return m.schedule
}

// Venues returns the configured venue codes in sorted order.
func (m *Model) Venues() []string {
	venues := make([]string, 0, len(m.schedule.VenueRates))
	for v := range m.schedule.VenueRates {
		venues = append(venues, v)
	}
	sort.Strings(venues)
	return venues
}

// HasVenue reports whether the venue has a configured exchange rate.
func (m *Model) HasVenue(venue string) bool {
	_, ok := m.schedule.VenueRates[strings.ToUpper(venue)]
	return ok
}

// Calculate returns the cost breakdown for an order of the given value.
//
// The calculation is deterministic and side-effect free:
//   - brokerage     = min(value * brokerageRate, brokerageCap)
//   - securitiesTax = value * sellTaxRate on sells, zero on buys
//   - exchangeFee   = value * venueRate
//   - tax           = (brokerage + exchangeFee) * taxRate
//   - regulatoryFee = value * regulatoryRate
//
// A zero order value yields an all-zero breakdown. Rejecting non-positive values is
// the caller's job. Results keep full precision.
func (m *Model) Calculate(orderValue decimal.Decimal, side model.Side, venue string) (model.CostBreakdown, error) {
	venueRate, ok := m.schedule.VenueRates[strings.ToUpper(venue)]
	if !ok {
		return model.CostBreakdown{}, fmt.Errorf("%w: %s", apperrors.ErrUnknownVenue, venue)
	}

	brokerage := decimal.Min(orderValue.Mul(m.schedule.BrokerageRate), m.schedule.BrokerageCap)

	securitiesTax := decimal.Zero
	if side == model.SideSell {
		securitiesTax = orderValue.Mul(m.schedule.SellTaxRate)
	}

	exchangeFee := orderValue.Mul(venueRate)

	return model.CostBreakdown{
		Brokerage:     brokerage,
		SecuritiesTax: securitiesTax,
		ExchangeFee:   exchangeFee,
		Tax:           brokerage.Add(exchangeFee).Mul(m.schedule.TaxRate),
		RegulatoryFee: orderValue.Mul(m.schedule.RegulatoryRate),
	}, nil
}
