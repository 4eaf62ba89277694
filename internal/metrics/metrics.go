// Package metrics registers the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScheduleComputations counts next-run computations by outcome
	// ("scheduled", "expired").
	ScheduleComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dcaflow",
		Name:      "schedule_computations_total",
		Help:      "Next-run instant computations, by outcome.",
	}, []string{"outcome"})

	// ScheduleFallbacks counts degraded-mode scheduling events by cause
	// ("timezone", "time_of_day", "catch_up_cap").
	ScheduleFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dcaflow",
		Name:      "schedule_fallbacks_total",
		Help:      "Degraded-mode fallbacks during scheduling, by cause.",
	}, []string{"cause"})

	// BacktestDuration observes wall time of whole backtest runs
	BacktestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dcaflow",
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs including the price fetch.",
		Buckets:   prometheus.DefBuckets,
	})

	// BacktestPeriods observes how many purchases each run simulated
	BacktestPeriods = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "dcaflow",
		Name:      "backtest_periods",
		Help:      "Matched purchase periods per backtest run.",
		Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	})

	// HTTPRequests counts API requests by route and status class
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dcaflow",
		Name:      "http_requests_total",
		Help:      "API requests, by route and status class.",
	}, []string{"route", "status"})
)
