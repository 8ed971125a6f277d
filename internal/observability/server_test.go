// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, checks Checks, registrars ...Registrar) *Server {
	t.Helper()
	server := NewServer("127.0.0.1:0", checks, registrars...)
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	require.NotEmpty(t, server.Addr())
	return server
}

func get(t *testing.T, server *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get("http://" + server.Addr() + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func passing(context.Context) error { return nil }

func TestServer_Metrics(t *testing.T) {
	stacked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "plotshop_test_stacked_total",
		Help: "test counter",
	})
	server := startServer(t, nil,
		func(reg prometheus.Registerer) { reg.MustRegister(stacked) },
		func(reg prometheus.Registerer) {
			reg.MustRegister(NewRegionCollector(fixedCounts{"for_sale": 3, "rented": 1}))
		},
	)
	stacked.Add(2)
	RecordCommandOutputFailure("info")

	status, body := get(t, server, "/metrics")

	assert.Equal(t, http.StatusOK, status)
	for _, want := range []string{
		"# HELP", "go_", "process_",
		`plotshop_command_output_failures_total{command="info"}`,
		"plotshop_test_stacked_total 2",
		`plotshop_regions{state="for_sale"} 3`,
		`plotshop_regions{state="rented"} 1`,
	} {
		assert.Contains(t, body, want)
	}
}

func TestServer_Liveness(t *testing.T) {
	server := startServer(t, Checks{"startup": func(context.Context) error { return errors.New("starting") }})

	status, body := get(t, server, "/healthz/liveness")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok\n", body)
}

func TestServer_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     Checks
		wantStatus int
		wantBody   string
	}{
		{"no checks", nil, http.StatusOK, "ready\n"},
		{"all pass", Checks{"scheduler": passing, "database": passing},
			http.StatusOK, "database: ok\nscheduler: ok\nready\n"},
		{"one fails", Checks{
			"scheduler": passing,
			"database":  func(context.Context) error { return errors.New("connection refused") },
		}, http.StatusServiceUnavailable, "database: connection refused\nscheduler: ok\nnot ready\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := startServer(t, tt.checks)

			status, body := get(t, server, "/healthz/readiness")

			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestServer_ProbeHonoursTimeout(t *testing.T) {
	before := testutil.ToFloat64(checkFailures.WithLabelValues("slow"))
	server := NewServer("127.0.0.1:0", Checks{"slow": func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, ok := server.Probe(ctx)

	assert.False(t, ok)
	assert.Equal(t, "slow: context canceled\n", report)
	assert.InDelta(t, before+1, testutil.ToFloat64(checkFailures.WithLabelValues("slow")), 0.001)
}

func TestServer_StartStop(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, server.Stop(ctx), "stop before start")
	assert.Empty(t, server.Addr())

	errCh, err := server.Start()
	require.NoError(t, err)
	_, err = server.Start()
	assert.Error(t, err, "double start")

	require.NoError(t, server.Stop(ctx))
	select {
	case err, ok := <-errCh:
		assert.False(t, ok && err != nil, "unexpected error %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("error channel did not close")
	}
}

func TestServer_ErrorChannelReportsServeErrors(t *testing.T) {
	server := NewServer("127.0.0.1:0", nil)
	errCh, err := server.Start()
	require.NoError(t, err)
	defer func() { _ = server.Stop(context.Background()) }()

	require.NoError(t, server.listener.Close())

	select {
	case serveErr := <-errCh:
		assert.Error(t, serveErr)
	case <-time.After(2 * time.Second):
		t.Fatal("serve error was not reported")
	}
}

func TestServer_StartFailsOnBusyAddress(t *testing.T) {
	first := startServer(t, nil)
	second := NewServer(first.Addr(), nil)

	_, err := second.Start()

	require.Error(t, err)
	assert.NoError(t, second.Stop(context.Background()))
}

type fixedCounts map[string]int

func (f fixedCounts) CountByState() map[string]int { return f }
