// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package hooks

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/holomush/plotshop/internal/region"
)

// HookFailures counts hook scripts that raised an error or timed out.
// Use RegisterMetrics to register this with a Prometheus registry.
var HookFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plotshop_hook_failures_total",
		Help: "Total number of failed hook scripts",
	},
	[]string{"event", "phase"},
)

// RegisterMetrics registers hook metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(HookFailures)
}

// RecordFailure increments the failure counter for an event phase.
func RecordFailure(ev region.Event, phase string) {
	HookFailures.WithLabelValues(string(ev), phase).Inc()
}
