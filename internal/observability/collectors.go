// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import "github.com/prometheus/client_golang/prometheus"

// commandOutputFailures is package-level so handlers record without a Server.
var commandOutputFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plotshop_command_output_failures_total",
		Help: "Total number of command output write failures by command",
	},
	[]string{"command"},
)

var checkFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "plotshop_readiness_check_failures_total",
		Help: "Total number of failed readiness checks by check",
	},
	[]string{"check"},
)

// RecordCommandOutputFailure increments the command output failure counter.
func RecordCommandOutputFailure(command string) {
	commandOutputFailures.WithLabelValues(command).Inc()
}

func recordCheckFailure(check string) {
	checkFailures.WithLabelValues(check).Inc()
}

// RegionCounter reports region counts by state.
type RegionCounter interface {
	CountByState() map[string]int
}

// regionCollector reads plotshop_regions{state} at scrape time.
type regionCollector struct {
	counter RegionCounter
	desc    *prometheus.Desc
}

// NewRegionCollector returns a collector for the current region counts.
func NewRegionCollector(counter RegionCounter) prometheus.Collector {
	return &regionCollector{
		counter: counter,
		desc: prometheus.NewDesc("plotshop_regions",
			"Current number of regions by state", []string{"state"}, nil),
	}
}

func (c *regionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *regionCollector) Collect(ch chan<- prometheus.Metric) {
	for state, n := range c.counter.CountByState() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), state)
	}
}
