// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package observability serves Prometheus metrics and health probes.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// Check probes one dependency. A nil error means it is usable.
type Check func(ctx context.Context) error

// Checks maps probe names to checks. Readiness fails when any check fails.
type Checks map[string]Check

// Registrar registers a package's collectors, e.g. transaction.RegisterMetrics.
type Registrar func(prometheus.Registerer)

// checkTimeout bounds one readiness probe across all checks.
const checkTimeout = 2 * time.Second

// Server serves /metrics, /healthz/liveness and /healthz/readiness.
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	checks     Checks
	names      []string
	running    atomic.Bool
}

// NewServer creates a server listening on addr ("127.0.0.1:9100", ":9100").
// The registry carries the Go and process collectors, the package's own
// counters and whatever the registrars add.
func NewServer(addr string, checks Checks, registrars ...Registrar) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		commandOutputFailures,
		checkFailures,
	)
	for _, register := range registrars {
		register(registry)
	}
	return &Server{
		addr:     addr,
		registry: registry,
		checks:   checks,
		names:    slices.Sorted(maps.Keys(checks)),
	}
}

// Registry returns the registry served on /metrics.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Start listens and serves in the background. Serve failures after Start
// returns arrive on the returned channel, which closes on a clean stop.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server listening", "addr", listener.Addr().String(), "checks", s.names)
	return errCh, nil
}

// Stop shuts the server down. Stopping a server that is not running is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}
	slog.Info("observability server stopped")
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Probe runs every check and returns one "name: ok" or "name: error" line per
// check in name order, and whether all passed.
func (s *Server) Probe(ctx context.Context) (report string, ok bool) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var b strings.Builder
	ok = true
	for _, name := range s.names {
		if err := s.checks[name](ctx); err != nil {
			ok = false
			recordCheckFailure(name)
			fmt.Fprintf(&b, "%s: %v\n", name, err)
			continue
		}
		fmt.Fprintf(&b, "%s: ok\n", name)
	}
	return b.String(), ok
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // client may disconnect
	w.Write([]byte("ok\n"))
}

// handleReadiness answers 200 with "ready" when every check passes and 503
// with "not ready" otherwise, preceded by the per-check report.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	report, ok := s.Probe(r.Context())
	status, verdict := http.StatusOK, "ready\n"
	if !ok {
		status, verdict = http.StatusServiceUnavailable, "not ready\n"
	}
	w.WriteHeader(status)
	//nolint:errcheck // client may disconnect
	w.Write([]byte(report + verdict))
}
