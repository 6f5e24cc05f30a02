package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BetsSettledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_bets_settled_total",
		Help: "Bets moved to a terminal status, by status",
	}, []string{"status"})

	BetFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_bet_failures_total",
		Help: "Per-bet settlement failures, by reason",
	}, []string{"reason"})

	MarketDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "settlement_market_duration_seconds",
		Help:    "Duration of one settleMarket call",
		Buckets: prometheus.DefBuckets,
	})

	PayoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_payout_total",
		Help: "Amount credited by settlement (float view, for dashboards only)",
	})

	PublishFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_publish_failures_total",
		Help: "Settlement events that could not be published, by event",
	}, []string{"event"})

	ReconcileMismatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settlement_reconcile_mismatches",
		Help: "Mismatches found by the last reconciliation run",
	})
)
