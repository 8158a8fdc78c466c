// Package xirr solves for the annualized internal rate of return of an
// irregularly spaced cash-flow series.
//
// The solver is pure: it knows nothing about ledgers or portfolios. Callers
// build the series (negative amounts for money paid in, positive for money
// received) and interpret ErrNoConvergence as "undefined".
package xirr

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrNoConvergence is returned when no rate sets the NPV of the series to zero
// within the search range: fewer than two flows, flows of a single sign, a
// series spanning no time, or a root that cannot be bracketed.
var ErrNoConvergence = errors.New("xirr did not converge")

const (
	// DaysPerYear is the day-count basis for annualization.
	DaysPerYear = 365.0
	// InitialGuess is the Newton-Raphson starting rate.
	InitialGuess = 0.1
	// LowerBound and UpperBound delimit the bisection search and the accepted result range.
	LowerBound = -0.999
	UpperBound = 10.0
	// MaxIterations bounds both Newton-Raphson and bisection.
	MaxIterations = 200
	// Tolerance is the accepted |NPV|, relative to the sum of absolute flow amounts.
	Tolerance = 1e-9

	minDerivative = 1e-12
	minStep       = 1e-15
)

// CashFlow is a single dated amount.
type CashFlow struct {
	Date   time.Time
	Amount float64
}

// Solve returns the rate r such that sum(amount_i / (1+r)^(days_i/365)) = 0,
// where days_i is measured from the earliest flow.
//
// Newton-Raphson with an analytic derivative is tried first from InitialGuess.
// If a step diverges (non-finite, at or below -100%, or outside the bounds) or
// the derivative vanishes, bisection over [LowerBound, UpperBound] takes over.
func Solve(flows []CashFlow) (float64, error) {
	years, amounts, err := prepare(flows)
	if err != nil {
		return 0, err
	}

	var scale float64
	for _, a := range amounts {
		scale += math.Abs(a)
	}
	tol := Tolerance * scale

	if r, ok := newton(years, amounts, tol); ok {
		return r, nil
	}
	return bisect(years, amounts, tol)
}

// NPV returns the net present value of the flows at the given annual rate,
// discounting to the earliest flow date.
func NPV(flows []CashFlow, rate float64) float64 {
	if len(flows) == 0 {
		return 0
	}
	sorted := sortedCopy(flows)
	years := make([]float64, len(sorted))
	amounts := make([]float64, len(sorted))
	for i, f := range sorted {
		years[i] = yearsBetween(sorted[0].Date, f.Date)
		amounts[i] = f.Amount
	}
	return npv(years, amounts, rate)
}

func prepare(flows []CashFlow) ([]float64, []float64, error) {
	if len(flows) < 2 {
		return nil, nil, ErrNoConvergence
	}

	var hasInflow, hasOutflow bool
	for _, f := range flows {
		if math.IsNaN(f.Amount) || math.IsInf(f.Amount, 0) {
			return nil, nil, ErrNoConvergence
		}
		switch {
		case f.Amount > 0:
			hasInflow = true
		case f.Amount < 0:
			hasOutflow = true
		}
	}
	if !hasInflow || !hasOutflow {
		return nil, nil, ErrNoConvergence
	}

	sorted := sortedCopy(flows)
	first, last := sorted[0].Date, sorted[len(sorted)-1].Date
	if !last.After(first) {
		return nil, nil, ErrNoConvergence
	}

	years := make([]float64, len(sorted))
	amounts := make([]float64, len(sorted))
	for i, f := range sorted {
		years[i] = yearsBetween(first, f.Date)
		amounts[i] = f.Amount
	}
	return years, amounts, nil
}

func sortedCopy(flows []CashFlow) []CashFlow {
	sorted := make([]CashFlow, len(flows))
	copy(sorted, flows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

func yearsBetween(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / DaysPerYear
}

func npv(years, amounts []float64, rate float64) float64 {
	var sum float64
	base := 1 + rate
	for i, a := range amounts {
		sum += a * math.Pow(base, -years[i])
	}
	return sum
}

func dnpv(years, amounts []float64, rate float64) float64 {
	var sum float64
	base := 1 + rate
	for i, a := range amounts {
		sum -= years[i] * a * math.Pow(base, -years[i]-1)
	}
	return sum
}

func newton(years, amounts []float64, tol float64) (float64, bool) {
	r := InitialGuess
	for range MaxIterations {
		f := npv(years, amounts, r)
		if math.Abs(f) <= tol {
			return r, inRange(r)
		}

		d := dnpv(years, amounts, r)
		if math.Abs(d) < minDerivative || math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, false
		}

		next := r - f/d
		if math.IsNaN(next) || math.IsInf(next, 0) || next <= -1 {
			return 0, false
		}
		if math.Abs(next-r) < minStep {
			return next, inRange(next) && math.Abs(npv(years, amounts, next)) <= tol
		}
		r = next
	}
	return 0, false
}

func bisect(years, amounts []float64, tol float64) (float64, error) {
	lo, hi := LowerBound, UpperBound
	flo := npv(years, amounts, lo)
	fhi := npv(years, amounts, hi)

	switch {
	case math.Abs(flo) <= tol:
		return lo, nil
	case math.Abs(fhi) <= tol:
		return hi, nil
	case math.IsNaN(flo) || math.IsNaN(fhi):
		return 0, ErrNoConvergence
	case math.Signbit(flo) == math.Signbit(fhi):
		return 0, ErrNoConvergence
	}

	mid := (lo + hi) / 2
	for range MaxIterations {
		mid = (lo + hi) / 2
		fm := npv(years, amounts, mid)
		if math.Abs(fm) <= tol || (hi-lo)/2 < minStep {
			return mid, nil
		}
		if math.Signbit(fm) == math.Signbit(flo) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return mid, nil
}

func inRange(r float64) bool {
	return r >= LowerBound && r <= UpperBound
}
