// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import "time"

// MetricsRecorder collects the metric labels of one dispatch.
type MetricsRecorder struct {
	start   time.Time
	command string
	status  string
}

// NewMetricsRecorder starts timing a dispatch.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{start: time.Now(), status: StatusError}
}

// SetCommandName sets the command label.
func (m *MetricsRecorder) SetCommandName(name string) {
	m.command = name
}

// SetStatus sets the status label.
func (m *MetricsRecorder) SetStatus(status string) {
	m.status = status
}

// Record writes the metrics. Dispatches that never named a command are skipped.
func (m *MetricsRecorder) Record() {
	if m.command == "" {
		return
	}
	RecordCommandExecution(m.command, m.status)
	RecordCommandDuration(m.command, time.Since(m.start))
}
