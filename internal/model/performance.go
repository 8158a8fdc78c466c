package model

import "time"

// Performance is an annualized return that may be undefined.
// When Available is false the UI shows "N/A"; XIRR is then always zero.
type Performance struct {
	XIRR      float64 `json:"xirr"`
	Available bool    `json:"available"`
	Display   string  `json:"display"`
	Flows     int     `json:"flows"`
}

// PositionPerformance pairs a symbol with its XIRR.
type PositionPerformance struct {
	Symbol      string      `json:"symbol"`
	Performance Performance `json:"performance"`
}

// PerformanceReport is the XIRR of every position plus the portfolio as a whole.
type PerformanceReport struct {
	AsOf      time.Time             `json:"asOf"`
	Portfolio Performance           `json:"portfolio"`
	Positions []PositionPerformance `json:"positions"`
}
