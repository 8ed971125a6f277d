// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package stack

import "github.com/prometheus/client_golang/prometheus"

// Candidate outcomes.
const (
	OutcomeCreated = "created"
	OutcomeTooLow  = "too_low"
	OutcomeTooHigh = "too_high"
	OutcomeFailed  = "failed"
)

// Regions counts processed stack candidates by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var Regions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plotshop_stack_regions_total",
		Help: "Total number of stack candidates processed",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers stack metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Regions)
}

// RecordRegion increments the candidate counter for outcome.
func RecordRegion(outcome string) {
	Regions.WithLabelValues(outcome).Inc()
}
