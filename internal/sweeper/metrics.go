// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package sweeper

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/plotshop/internal/transaction"
)

// Released counts regions released by the sweeper, by reason.
var Released = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plotshop_sweeper_released_total",
		Help: "Total number of regions released by the sweeper",
	},
	[]string{"reason"},
)

// Warnings counts rent expiry warnings sent.
var Warnings = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "plotshop_sweeper_expiry_warnings_total",
		Help: "Total number of rent expiry warnings sent",
	},
)

// RegisterMetrics registers sweeper metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Released, Warnings)
}

// RecordRelease increments the release counter for reason.
func RecordRelease(reason transaction.Reason) {
	Released.WithLabelValues(reason.String()).Inc()
}

// RecordWarning increments the warning counter.
func RecordWarning() {
	Warnings.Inc()
}
