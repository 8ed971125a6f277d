// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/holomush/plotshop/internal/command"
	"github.com/holomush/plotshop/internal/command/handlers"
	"github.com/holomush/plotshop/internal/config"
	"github.com/holomush/plotshop/internal/economy"
	"github.com/holomush/plotshop/internal/economy/postgres"
	"github.com/holomush/plotshop/internal/hooks"
	"github.com/holomush/plotshop/internal/limits"
	"github.com/holomush/plotshop/internal/logging"
	"github.com/holomush/plotshop/internal/notify"
	"github.com/holomush/plotshop/internal/observability"
	"github.com/holomush/plotshop/internal/players"
	"github.com/holomush/plotshop/internal/region"
	"github.com/holomush/plotshop/internal/scheduler"
	"github.com/holomush/plotshop/internal/spatial"
	"github.com/holomush/plotshop/internal/stack"
	"github.com/holomush/plotshop/internal/store"
	"github.com/holomush/plotshop/internal/sweeper"
	"github.com/holomush/plotshop/internal/transaction"
	"github.com/holomush/plotshop/internal/xdg"
	"github.com/holomush/plotshop/pkg/errutil"
)

// Default values for serve flags.
const (
	defaultConsoleWorld = "world"
	shutdownTimeout     = 5 * time.Second
	collectTimeout      = time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var consoleWorld string
	var noConsole bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the plotshop server",
		Long: `Start the plotshop server: load regions, run the tick scheduler with
the inactivity and expiry sweeps, serve metrics and read console commands
from standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return oops.With("operation", "load configuration").Wrap(err)
			}
			deps := &ServeDeps{Console: os.Stdin, ConsoleWorld: consoleWorld}
			if noConsole {
				deps.Console = nil
			}
			return runServeWithDeps(cmd.Context(), &cfg, cmd, deps)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("log-format", defaults.LogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().String("metrics-addr", defaults.MetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database-url", "", "PostgreSQL URL (default: DATABASE_URL; empty = no persistence)")
	cmd.Flags().Bool("auto-migrate", defaults.AutoMigrate, "apply pending migrations on startup")
	cmd.Flags().StringVar(&consoleWorld, "console-world", defaultConsoleWorld, "world of players logged in on the console")
	cmd.Flags().BoolVar(&noConsole, "no-console", false, "do not read commands from standard input")

	return cmd
}

// applyEnv copies DATABASE_URL into the database-url flag unless the flag was
// given explicitly.
func applyEnv(flags *pflag.FlagSet, getenv func(string) string) error {
	url := getenv("DATABASE_URL")
	if url == "" || flags.Changed("database-url") {
		return nil
	}
	if err := flags.Set("database-url", url); err != nil {
		return oops.With("flag", "database-url").Wrap(err)
	}
	return nil
}

// loadConfig resolves the config file, explicit or from the XDG config
// directory, and loads it under the environment and flags.
func loadConfig(flags *pflag.FlagSet) (config.Config, error) {
	if err := applyEnv(flags, os.Getenv); err != nil {
		return config.Config{}, err
	}
	path, err := xdg.ConfigFile(configFile)
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path, flags)
}

// runServeWithDeps starts the server with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, url string) (Pool, error) {
			return pgxpool.New(ctx, url)
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, checks observability.Checks, registrars ...observability.Registrar) ObservabilityServer {
			return observability.NewServer(addr, checks, registrars...)
		}
	}
	if deps.ConsoleWorld == "" {
		deps.ConsoleWorld = defaultConsoleWorld
	}

	if err := cfg.Validate(); err != nil {
		return oops.With("operation", "validate configuration").Wrap(err)
	}
	if err := setupLogging(cfg, cmd.ErrOrStderr()); err != nil {
		return err
	}

	slog.Info("starting plotshop",
		"version", version,
		"tick", cfg.Tick.String(),
		"economy", cfg.Economy.Backend,
		"persistence", cfg.DatabaseURL != "",
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	signals := deps.Signals
	if signals == nil {
		signals = notifySignals(ctx)
	}

	out := &syncWriter{w: cmd.OutOrStdout()}
	srv, err := newServer(ctx, cfg, deps, out)
	if err != nil {
		return err
	}

	regions := srv.registry.Len()
	var ready atomic.Bool
	schedDone := make(chan error, 1)
	go func() {
		schedDone <- srv.sched.Run(ctx)
	}()

	var obsServer ObservabilityServer
	if cfg.MetricsAddr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, srv.checks(&ready), srv.registrars()...)
		obsErrChan, err := obsServer.Start()
		if err != nil {
			cancel()
			<-schedDone
			srv.close(context.Background())
			return oops.With("operation", "start observability server").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	if deps.Console != nil {
		con := newConsole(srv.dispatcher, srv.services, srv.sched, srv.players, deps.ConsoleWorld, out)
		go func() {
			if err := con.Run(ctx, deps.Console); errors.Is(err, errQuit) {
				slog.Info("console requested shutdown")
				cancel()
			}
		}()
	}

	ready.Store(true)
	if _, err := io.WriteString(out, "plotshop started\n"); err != nil {
		slog.Debug("console write failed", "error", err)
	}
	slog.Info("plotshop ready", "regions", regions)

	select {
	case <-signals:
		slog.Info("received shutdown signal")
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")
	ready.Store(false)
	cancel()
	if err := <-schedDone; err != nil {
		errutil.LogWarn(ctx, slog.Default(), "scheduler stopped with error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}
	srv.close(shutdownCtx)

	slog.Info("shutdown complete")
	return nil
}

// notifySignals closes the returned channel on SIGINT or SIGTERM.
func notifySignals(ctx context.Context) <-chan struct{} {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Info("signal", "signal", sig.String())
			close(done)
		case <-ctx.Done():
		}
	}()
	return done
}

// setupLogging installs the configured default logger.
func setupLogging(cfg *config.Config, w io.Writer) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.SetDefault(logging.Options{
		Service: "plotshop",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   level,
	}, w)
	return nil
}

// server holds the assembled components of a running plotshop.
type server struct {
	sched      *scheduler.Scheduler
	registry   *region.Registry
	players    *players.Memory
	engine     *transaction.Engine
	dispatcher *command.Dispatcher
	services   *command.Services
	limiter    *command.RateLimiter
	pool       Pool
	flusher    *store.Flusher
	cancel     []func()
}

// newServer wires every component. Regions are loaded before the scheduler
// starts, so nothing else touches the registry yet.
func newServer(ctx context.Context, cfg *config.Config, deps *ServeDeps, out io.Writer) (_ *server, err error) {
	srv := &server{
		sched:    scheduler.New(cfg.Tick.Std()),
		registry: region.NewRegistry(cfg.GlobalSettings()),
		players:  players.NewMemory(time.Now),
	}
	defer func() {
		if err != nil {
			srv.close(context.Background())
		}
	}()
	index := spatial.NewMemory()

	if cfg.DatabaseURL != "" {
		if err := srv.openStore(ctx, cfg, deps, index); err != nil {
			return nil, err
		}
	}

	ledger, err := newLedger(cfg, srv.pool)
	if err != nil {
		return nil, err
	}

	templates := cfg.Templates()
	notifier := notify.Multi{
		notify.NewLogNotifier(templates),
		consoleNotifier{templates: templates, players: srv.players, out: out},
	}
	ac, err := cfg.AccessControl()
	if err != nil {
		return nil, oops.With("operation", "build access control").Wrap(err)
	}
	money := cfg.MoneyFormatter()

	var runner hooks.Runner = hooks.Nop{}
	if len(cfg.Hooks) > 0 {
		lua, err := hooks.NewLuaRunner(srv.registry, cfg.HookScripts(), hooks.WithMoneyFormatter(money.Format))
		if err != nil {
			return nil, oops.With("operation", "compile hooks").Wrap(err)
		}
		runner = lua
	}

	srv.engine, err = transaction.NewEngine(transaction.Config{
		Registry: srv.registry,
		Spatial:  index,
		Ledger:   ledger,
		Players:  srv.players,
		Hooks:    runner,
		Notifier: notifier,
		Access:   ac,
		Limits:   limits.NewEvaluator(cfg.LimitsConfig()),
		Money:    money.Format,
	})
	if err != nil {
		return nil, err
	}

	generator := stack.NewGenerator(cfg.Stack, srv.engine, srv.sched, srv.players, notifier)
	sweep := sweeper.New(srv.registry, srv.engine, srv.players, nil)
	srv.cancel = append(srv.cancel, sweep.Schedule(srv.sched, cfg.Sweeper))

	commands := command.NewRegistry()
	handlers.RegisterAll(commands)
	srv.limiter = command.NewRateLimiter(cfg.RateLimiterConfig())
	srv.dispatcher, err = command.NewDispatcher(commands, ac, command.WithRateLimiter(srv.limiter))
	if err != nil {
		return nil, err
	}
	srv.services = &command.Services{
		Engine:     srv.engine,
		Stack:      generator,
		Players:    srv.players,
		Selections: command.NewSelections(),
		Commands:   commands,
	}
	return srv, nil
}

// openStore migrates, connects, loads every region and starts the flusher.
func (s *server) openStore(ctx context.Context, cfg *config.Config, deps *ServeDeps, index *spatial.Memory) error {
	if cfg.AutoMigrate {
		if err := autoMigrate(cfg.DatabaseURL, deps.MigratorFactory); err != nil {
			return err
		}
	}

	pool, err := deps.PoolFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	s.pool = pool
	if err := pool.Ping(ctx); err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "ping database").Wrap(err)
	}
	slog.Info("connected to database")

	repo := store.NewRegionRepository(pool)
	n, err := repo.Load(ctx, s.registry, index)
	if err != nil {
		return oops.With("operation", "load regions").Wrap(err)
	}
	slog.Info("regions loaded", "count", n)

	s.flusher = store.NewFlusher(s.registry, repo, store.DefaultFlusherConfig())
	s.flusher.Start(ctx)
	s.cancel = append(s.cancel, s.sched.ScheduleRecurring("flush", cfg.FlushIntervalTicks, s.flusher.Task()))
	return nil
}

func autoMigrate(url string, factory func(string) (Migrator, error)) error {
	m, err := factory(url)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Debug("error closing migrator", "error", closeErr)
		}
	}()
	if err := m.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "auto-migrate").Wrap(err)
	}
	version, _, err := m.Version()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "read schema version").Wrap(err)
	}
	slog.Info("database schema up to date", "version", version)
	return nil
}

func newLedger(cfg *config.Config, pool Pool) (economy.Ledger, error) {
	switch cfg.Economy.Backend {
	case config.BackendPostgres:
		if pool == nil {
			return nil, oops.Code(config.CodeInvalidConfig).Errorf("the postgres economy needs a database")
		}
		return postgres.NewLedger(pool, cfg.Economy.PerWorld), nil
	default:
		opts := []economy.MemoryOption{economy.WithStartingBalance(cfg.Economy.StartingBalance)}
		if cfg.Economy.PerWorld {
			opts = append(opts, economy.WithPerWorldAccounts())
		}
		return economy.NewMemory(opts...), nil
	}
}

// registrars returns the collectors served on /metrics.
func (s *server) registrars() []observability.Registrar {
	return []observability.Registrar{
		command.RegisterMetrics,
		transaction.RegisterMetrics,
		stack.RegisterMetrics,
		sweeper.RegisterMetrics,
		store.RegisterMetrics,
		hooks.RegisterMetrics,
		func(reg prometheus.Registerer) {
			reg.MustRegister(observability.NewRegionCollector(workerCounter{sched: s.sched, registry: s.registry}))
		},
	}
}

// errStarting fails the startup check until the console is up.
var errStarting = errors.New("starting")

// checks returns the readiness checks: startup completion, a round trip
// through the scheduler worker and, with persistence, a database ping.
func (s *server) checks(ready *atomic.Bool) observability.Checks {
	checks := observability.Checks{
		"startup": func(context.Context) error {
			if !ready.Load() {
				return errStarting
			}
			return nil
		},
		"scheduler": func(ctx context.Context) error {
			return s.sched.Call(ctx, func(context.Context) error { return nil })
		},
	}
	if s.pool != nil {
		checks["database"] = s.pool.Ping
	}
	return checks
}

// close stops background work and releases the database. Callers must stop
// the scheduler first.
func (s *server) close(ctx context.Context) {
	for _, cancel := range s.cancel {
		cancel()
	}
	if s.flusher != nil {
		if err := s.flusher.Close(ctx); err != nil {
			errutil.LogWarn(ctx, slog.Default(), "final flush incomplete", err)
		}
	}
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// workerCounter counts regions on the scheduler worker so scrapes never race
// a transaction.
type workerCounter struct {
	sched    Caller
	registry *region.Registry
}

// CountByState implements observability.RegionCounter. It reports nothing
// when the worker does not answer in time.
func (w workerCounter) CountByState() map[string]int {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()
	var counts map[string]int
	err := w.sched.Call(ctx, func(context.Context) error {
		counts = w.registry.CountByState()
		return nil
	})
	if err != nil {
		slog.Debug("region count skipped", "error", err)
		return nil
	}
	return counts
}

// monitorServerErrors cancels ctx when the server reports an error. It returns
// when an error arrives, the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
