// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plotshop/internal/config"
	"github.com/holomush/plotshop/internal/observability"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/scheduler"
	"github.com/holomush/plotshop/pkg/errutil"
)

type fakeObsServer struct {
	mu         sync.Mutex
	registrars []observability.Registrar
	checks     observability.Checks
	startErr   error
	stopped    bool
}

func (f *fakeObsServer) factory(_ string, checks observability.Checks, registrars ...observability.Registrar) ObservabilityServer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registrars = registrars
	f.checks = checks
	return f
}

func (f *fakeObsServer) Start() (<-chan error, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	return make(chan error), nil
}

func (f *fakeObsServer) Stop(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
	return nil
}

func (f *fakeObsServer) Addr() string { return "127.0.0.1:0" }

type fakeMigrator struct {
	ups, downs int
	steps      []int
	forced     []int
	version    uint
	dirty      bool
	applied    []uint
	pending    []uint
	upErr      error
	closed     bool
}

func (m *fakeMigrator) Up() error {
	m.ups++
	if m.upErr != nil {
		return m.upErr
	}
	m.applied = append(m.applied, m.pending...)
	if len(m.pending) > 0 {
		m.version = m.pending[len(m.pending)-1]
	}
	m.pending = nil
	return nil
}

func (m *fakeMigrator) Down() error {
	m.downs++
	return nil
}

func (m *fakeMigrator) Steps(n int) error {
	m.steps = append(m.steps, n)
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, nil }

func (m *fakeMigrator) Force(v int) error {
	m.forced = append(m.forced, v)
	return nil
}

func (m *fakeMigrator) PendingMigrations() ([]uint, error) { return m.pending, nil }
func (m *fakeMigrator) AppliedMigrations() ([]uint, error) { return m.applied, nil }

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

func (m *fakeMigrator) factory(string) (Migrator, error) { return m, nil }

func failingMigratorFactory(string) (Migrator, error) {
	return nil, errors.New("no database")
}

func failingPoolFactory(context.Context, string) (Pool, error) {
	return nil, errors.New("connection refused")
}

// mockPool answers Ping and Close itself and hands queries to pgxmock.
type mockPool struct {
	pgxmock.PgxPoolIface
	pinged bool
	closed bool
}

func (p *mockPool) Ping(context.Context) error {
	p.pinged = true
	return nil
}

func (p *mockPool) Close() { p.closed = true }

func neverSignal() <-chan struct{} { return make(chan struct{}) }

func closedSignal() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

func testCommand(out io.Writer) *cobra.Command {
	c := &cobra.Command{}
	c.SetOut(out)
	c.SetErr(io.Discard)
	return c
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.MetricsAddr = ""
	cfg.Tick = config.Duration(time.Millisecond)
	return cfg
}

func TestRunServe_ConsoleSessionUntilQuit(t *testing.T) {
	cfg := testConfig()
	cfg.Economy.StartingBalance = 500
	out := &bytes.Buffer{}
	deps := &ServeDeps{
		Console: strings.NewReader("login alice\ninfo\nhelp\nquit\n"),
		Signals: neverSignal(),
	}

	require.NoError(t, runServeWithDeps(context.Background(), &cfg, testCommand(out), deps))

	output := out.String()
	assert.True(t, strings.HasPrefix(output, "plotshop started\n"), output)
	assert.Contains(t, output, "Logged in as alice.\n")
	assert.Contains(t, output, "You don't own any regions.\n")
	assert.Contains(t, output, "Commands:")
}

func TestRunServe_LoadsFromDatabaseAndShutsDownOnSignal(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	pool := &mockPool{PgxPoolIface: mock}
	mock.ExpectQuery(`SELECT display_name, settings, members FROM region_groups`).
		WillReturnRows(pgxmock.NewRows([]string{"display_name", "settings", "members"}))
	mock.ExpectQuery(`SELECT .* FROM regions ORDER BY name`).
		WillReturnRows(pgxmock.NewRows([]string{"display_name"}))

	cfg := testConfig()
	cfg.DatabaseURL = "postgres://localhost/plotshop"
	cfg.MetricsAddr = "127.0.0.1:0"
	migrator := &fakeMigrator{pending: []uint{1, 2, 3}}
	obs := &fakeObsServer{}
	deps := &ServeDeps{
		PoolFactory:                func(context.Context, string) (Pool, error) { return pool, nil },
		MigratorFactory:            migrator.factory,
		ObservabilityServerFactory: obs.factory,
		Signals:                    closedSignal(),
	}

	require.NoError(t, runServeWithDeps(context.Background(), &cfg, testCommand(io.Discard), deps))

	assert.Equal(t, 1, migrator.ups)
	assert.True(t, migrator.closed)
	assert.True(t, obs.stopped)
	assert.True(t, pool.pinged)
	assert.True(t, pool.closed)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.ElementsMatch(t, []string{"database", "scheduler", "startup"}, slices.Collect(maps.Keys(obs.checks)))
	assert.ErrorIs(t, obs.checks["startup"](context.Background()), errStarting, "not ready after shutdown")

	reg := prometheus.NewRegistry()
	require.Len(t, obs.registrars, 7)
	assert.NotPanics(t, func() {
		for _, register := range obs.registrars {
			register(reg)
		}
	})
}

func TestRunServe_StartupErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config, *ServeDeps)
		code   string
	}{
		{"invalid config", func(c *config.Config, _ *ServeDeps) { c.Tick = 0 }, config.CodeInvalidConfig},
		{"migration fails", func(c *config.Config, d *ServeDeps) {
			c.DatabaseURL = "postgres://localhost/plotshop"
			d.MigratorFactory = failingMigratorFactory
		}, "MIGRATION_FAILED"},
		{"database unreachable", func(c *config.Config, d *ServeDeps) {
			c.DatabaseURL = "postgres://localhost/plotshop"
			c.AutoMigrate = false
			d.PoolFactory = failingPoolFactory
		}, "DB_CONNECT_FAILED"},
		{"bad hook script", func(c *config.Config, _ *ServeDeps) {
			c.Hooks = map[string]config.Hook{"bought": {After: "this is not lua"}}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			deps := &ServeDeps{Signals: neverSignal()}
			tt.mutate(&cfg, deps)

			err := runServeWithDeps(context.Background(), &cfg, testCommand(io.Discard), deps)
			require.Error(t, err)
			if tt.code != "" {
				errutil.AssertErrorCode(t, err, tt.code)
			}
		})
	}
}

func TestRunServe_ObservabilityStartFailure(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsAddr = "127.0.0.1:0"
	obs := &fakeObsServer{startErr: errors.New("address in use")}
	deps := &ServeDeps{ObservabilityServerFactory: obs.factory, Signals: neverSignal()}

	err := runServeWithDeps(context.Background(), &cfg, testCommand(io.Discard), deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCmd()
	for _, name := range []string{"log-format", "log-level", "metrics-addr", "database-url", "auto-migrate", "console-world", "no-console"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	addr, err := cmd.Flags().GetString("metrics-addr")
	require.NoError(t, err)
	assert.Equal(t, config.Default().MetricsAddr, addr)
}

func TestApplyEnv(t *testing.T) {
	env := func(string) string { return "postgres://env/plotshop" }

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database-url", "", "")
	require.NoError(t, applyEnv(flags, env))
	got, _ := flags.GetString("database-url")
	assert.Equal(t, "postgres://env/plotshop", got)

	flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database-url", "", "")
	require.NoError(t, flags.Set("database-url", "postgres://flag/plotshop"))
	require.NoError(t, applyEnv(flags, env))
	got, _ = flags.GetString("database-url")
	assert.Equal(t, "postgres://flag/plotshop", got)

	flags = pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("database-url", "", "")
	require.NoError(t, applyEnv(flags, func(string) string { return "" }))
	assert.False(t, flags.Changed("database-url"))
}

func TestWorkerCounter(t *testing.T) {
	registry := region.NewRegistry(region.Settings{})
	sched := scheduler.New(time.Millisecond)
	want := registry.CountByState()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = sched.Run(ctx)
	}()

	assert.Equal(t, want, workerCounter{sched: sched, registry: registry}.CountByState())

	cancel()
	<-done
	assert.Nil(t, workerCounter{sched: sched, registry: registry}.CountByState(), "stopped worker")
}

func TestMonitorServerErrors(t *testing.T) {
	tests := []struct {
		name       string
		send       func(chan error)
		wantCancel bool
	}{
		{"error cancels", func(ch chan error) { ch <- errors.New("listener died") }, true},
		{"nil error is ignored", func(ch chan error) { ch <- nil }, false},
		{"closed channel is ignored", func(ch chan error) { close(ch) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			errCh := make(chan error, 1)
			tt.send(errCh)

			done := make(chan struct{})
			go func() {
				monitorServerErrors(ctx, cancel, errCh, "test-server")
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("monitor did not return")
			}
			assert.Equal(t, tt.wantCancel, ctx.Err() != nil)
		})
	}
}
