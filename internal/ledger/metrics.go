package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var NotifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "wallet_balance_notify_failures_total",
	Help: "Balance change notifications that could not be published",
})
