// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package store

import "github.com/prometheus/client_golang/prometheus"

// Flush results.
const (
	ResultWritten  = "written"
	ResultFailed   = "failed"
	ResultDeferred = "deferred"
)

// Flushes counts flush batches by result.
var Flushes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plotshop_store_flushes_total",
		Help: "Total number of persistence batches by result",
	},
	[]string{"result"},
)

// FlushedRegions counts region rows written or deleted.
var FlushedRegions = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "plotshop_store_flushed_regions_total",
		Help: "Total number of region rows written or deleted",
	},
)

// RegisterMetrics registers store metrics with the given Prometheus registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Flushes, FlushedRegions)
}

// RecordFlush increments the batch counter for result.
func RecordFlush(result string) {
	Flushes.WithLabelValues(result).Inc()
}
