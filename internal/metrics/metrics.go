// Package metrics holds the Prometheus collectors for ledger activity.
// They register on the default registry and are served at /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

const namespace = "ledger"

// ProfitRuns counts completed profit actions.
var ProfitRuns = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "profit",
	Name:      "runs_total",
	Help:      "Total profit actions executed.",
})

// ProfitAmount sums generated profit.
var ProfitAmount = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "profit",
	Name:      "amount_total",
	Help:      "Total profit credited by profit actions.",
})

// Commissions counts paid referral commissions by cascade level.
var Commissions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "referral",
	Name:      "commissions_total",
	Help:      "Total referral commissions paid, by level.",
}, []string{"level"})

var CommissionAmount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "referral",
	Name:      "commission_amount_total",
	Help:      "Total referral commission amount paid, by level.",
}, []string{"level"})

// AccountOperations counts deposits, withdrawals and signups by outcome.
var AccountOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "accounts",
	Name:      "operations_total",
	Help:      "Account operations by type and result.",
}, []string{"operation", "result"})

func ObserveProfit(amount decimal.Decimal) {
	ProfitRuns.Inc()
	ProfitAmount.Add(amount.InexactFloat64())
}

func ObserveCommission(level int, amount decimal.Decimal) {
	l := strconv.Itoa(level)
	Commissions.WithLabelValues(l).Inc()
	CommissionAmount.WithLabelValues(l).Add(amount.InexactFloat64())
}

func ObserveOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	AccountOperations.WithLabelValues(operation, result).Inc()
}
