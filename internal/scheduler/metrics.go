package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_cycles_total",
		Help: "Auto-settlement cycles by outcome (ok, partial, feed_error, panic)",
	}, []string{"outcome"})

	MarketErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_market_errors_total",
		Help: "Markets whose settlement call failed and will be retried",
	})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_cycle_duration_seconds",
		Help:    "Duration of one auto-settlement cycle",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
)
