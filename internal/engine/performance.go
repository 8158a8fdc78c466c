package engine

import (
	"fmt"
	"time"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/xirr"
)

// NotAvailable is shown in place of an undefined return.
const NotAvailable = "N/A"

// Evaluate solves the series and converts the outcome for presentation.
// An unsolvable series is reported as unavailable, never as an error.
func Evaluate(flows []xirr.CashFlow) model.Performance {
	r, err := xirr.Solve(flows)
	if err != nil {
		return model.Performance{Display: NotAvailable, Flows: len(flows)}
	}
	return model.Performance{
		XIRR:      r,
		Available: true,
		Display:   FormatRate(r),
		Flows:     len(flows),
	}
}

// FormatRate renders an annual rate as a percentage with two decimals.
func FormatRate(r float64) string {
	return fmt.Sprintf("%.2f%%", r*100)
}

// Performance returns the XIRR of the position at its current mark, valued at asOf.
func (p *PositionAccount) Performance(asOf time.Time) model.Performance {
	return Evaluate(p.CashFlows(p.mark, asOf))
}

// Performance returns the XIRR of every position and of the portfolio as a whole.
func (p *Portfolio) Performance(asOf time.Time) model.PerformanceReport {
	positions := p.Positions()
	report := model.PerformanceReport{
		AsOf:      asOf,
		Portfolio: Evaluate(p.CashFlows(asOf)),
		Positions: make([]model.PositionPerformance, 0, len(positions)),
	}
	for _, pos := range positions {
		report.Positions = append(report.Positions, model.PositionPerformance{
			Symbol:      pos.symbol,
			Performance: pos.Performance(asOf),
		})
	}
	return report
}
