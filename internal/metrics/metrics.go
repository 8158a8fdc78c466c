// Package metrics exposes Prometheus instrumentation for trades, price lookups
// and performance evaluation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the simulator's collectors on a private registry.
// All methods are safe on a nil receiver, which disables recording.
type Metrics struct {
	registry *prometheus.Registry

	Trades          *prometheus.CounterVec
	TradeDuration   prometheus.Histogram
	PriceLookups    *prometheus.CounterVec
	MarkRefreshes   *prometheus.CounterVec
	Performance     *prometheus.CounterVec
	ActiveGames     prometheus.Gauge
	RoundTripErrors prometheus.Counter
}

// New creates and registers all collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulator_trades_total",
				Help: "Orders processed, by side and outcome",
			},
			[]string{"side", "result"},
		),
		TradeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "simulator_trade_duration_seconds",
				Help:    "Time to load, execute and persist an order",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
		),
		PriceLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulator_price_lookups_total",
				Help: "Close price lookups, by source and outcome",
			},
			[]string{"source", "result"},
		),
		MarkRefreshes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulator_mark_refreshes_total",
				Help: "Mark price refreshes, by trigger and outcome",
			},
			[]string{"trigger", "result"},
		),
		Performance: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "simulator_xirr_evaluations_total",
				Help: "XIRR evaluations, split by whether a rate was found",
			},
			[]string{"result"},
		),
		ActiveGames: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "simulator_active_games",
				Help: "Games still accepting trades",
			},
		),
		RoundTripErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "simulator_round_trip_errors_total",
				Help: "Stored games whose ledger failed to replay",
			},
		),
	}

	m.registry.MustRegister(
		m.Trades,
		m.TradeDuration,
		m.PriceLookups,
		m.MarkRefreshes,
		m.Performance,
		m.ActiveGames,
		m.RoundTripErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTrade counts an order outcome and, for executed orders, its latency.
func (m *Metrics) RecordTrade(side, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Trades.WithLabelValues(side, result).Inc()
	if result == ResultExecuted {
		m.TradeDuration.Observe(elapsed.Seconds())
	}
}

// RecordPriceLookup counts a price lookup from the cache or the remote source.
func (m *Metrics) RecordPriceLookup(source, result string) {
	if m == nil {
		return
	}
	m.PriceLookups.WithLabelValues(source, result).Inc()
}

// RecordMarkRefresh counts a mark refresh.
func (m *Metrics) RecordMarkRefresh(trigger, result string) {
	if m == nil {
		return
	}
	m.MarkRefreshes.WithLabelValues(trigger, result).Inc()
}

// RecordPerformance counts an XIRR evaluation.
func (m *Metrics) RecordPerformance(available bool) {
	if m == nil {
		return
	}
	result := "available"
	if !available {
		result = "not_available"
	}
	m.Performance.WithLabelValues(result).Inc()
}

// SetActiveGames sets the active game gauge.
func (m *Metrics) SetActiveGames(n int) {
	if m == nil {
		return
	}
	m.ActiveGames.Set(float64(n))
}

// RecordRoundTripError counts a ledger that failed to replay on load.
func (m *Metrics) RecordRoundTripError() {
	if m == nil {
		return
	}
	m.RoundTripErrors.Inc()
}

// Label values shared by callers.
const (
	ResultExecuted = "executed"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
	ResultHit      = "hit"
	ResultMiss     = "miss"
	ResultOK       = "ok"

	SourceCache  = "cache"
	SourceRemote = "remote"

	TriggerAdvance   = "advance"
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)
