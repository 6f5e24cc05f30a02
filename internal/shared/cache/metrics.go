package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BalanceCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_balance_cache_hits_total",
		Help: "Total number of balance cache hits",
	})

	BalanceCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_balance_cache_misses_total",
		Help: "Total number of balance cache misses",
	})

	BalanceCacheInvalidationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wallet_balance_cache_invalidations_total",
		Help: "Total number of balance cache invalidations",
	})

	MarketLockContendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_market_lock_contended_total",
		Help: "Lock attempts that had to wait for another holder",
	})
)
