// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package transaction

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
)

// Transactions counts finished transactions by action and result code.
// Use RegisterMetrics to register this with a Prometheus registry.
var Transactions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plotshop_transactions_total",
		Help: "Total number of region transactions",
	},
	[]string{"action", "result", "code"},
)

// TransactionDuration observes how long transactions take, economy calls included.
var TransactionDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "plotshop_transaction_duration_seconds",
		Help:    "Region transaction duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"action"},
)

// PayoutFailures counts deposits that failed after the transaction committed.
var PayoutFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plotshop_payout_failures_total",
		Help: "Total number of failed payouts to players",
	},
	[]string{"action"},
)

// RegisterMetrics registers transaction metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Transactions)
	reg.MustRegister(TransactionDuration)
	reg.MustRegister(PayoutFailures)
}

func recordTransaction(action string, err error, elapsed time.Duration) {
	result, code := ResultSuccess, ""
	if err != nil {
		result, code = ResultRejected, Code(err)
	}
	Transactions.WithLabelValues(action, result, code).Inc()
	TransactionDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// RecordPayoutFailure increments the payout failure counter.
func RecordPayoutFailure(action string) {
	PayoutFailures.WithLabelValues(action).Inc()
}
