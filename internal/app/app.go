// Package app wires the Gauge components together: configuration, the
// SQLite state store, the datasource registry, the alert scheduler, and
// the HTTP server.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gaugehq/gauge/internal/alerts"
	"github.com/gaugehq/gauge/internal/backends"
	"github.com/gaugehq/gauge/internal/backends/postgres"
	"github.com/gaugehq/gauge/internal/backends/prometheus"
	"github.com/gaugehq/gauge/internal/config"
	"github.com/gaugehq/gauge/internal/server"
	"github.com/gaugehq/gauge/internal/sqlite"
	"github.com/gaugehq/gauge/pkg/logger"
)

// App holds the application's long-lived components.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	SQLite    *sqlite.DB
	Registry  *backends.Registry
	Scheduler *alerts.Scheduler

	server *server.Server
}

// Options contains what is needed to create an App.
type Options struct {
	ConfigPath string
}

// New loads configuration and prepares an App. Components are connected
// in Initialize so that New stays cheap and side-effect free.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &App{
		Config: cfg,
		Logger: logger.New(cfg.Logging.Debug),
	}, nil
}

// Initialize opens the state database, registers the configured
// datasource backends, and builds the scheduler and HTTP server.
// An unreachable backend is skipped rather than fatal; its absence is
// visible through the datasource diagnostics API.
func (a *App) Initialize(ctx context.Context) error {
	db, err := sqlite.New(sqlite.Options{
		Config: a.Config.SQLite,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite: %w", err)
	}
	a.SQLite = db

	a.Registry = backends.NewRegistry(a.Logger)

	promClient, err := prometheus.New(prometheus.Options{
		URL:          a.Config.Prometheus.URL,
		QueryTimeout: a.Config.Prometheus.QueryTimeout,
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to build prometheus backend: %w", err)
	}
	a.Registry.Register(ctx, "prometheus", promClient)

	if a.Config.Postgres.URL != "" {
		pgClient, err := postgres.New(postgres.Options{
			URL:          a.Config.Postgres.URL,
			Table:        a.Config.Postgres.Table,
			TimeColumn:   a.Config.Postgres.TimeColumn,
			ValueColumn:  a.Config.Postgres.ValueColumn,
			MetricColumn: a.Config.Postgres.MetricColumn,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("failed to build postgres backend: %w", err)
		}
		a.Registry.Register(ctx, "postgres", pgClient)
	}

	evaluator := alerts.NewEvaluator(a.Registry, a.SQLite, a.Logger)
	dispatcher := alerts.NewDispatcher(alerts.DispatcherOptions{
		Store:   a.SQLite,
		Timeout: a.Config.Alerts.NotificationTimeout,
		Logger:  a.Logger,
	})
	a.Scheduler = alerts.NewScheduler(alerts.Options{
		Config:     a.Config.Alerts,
		Store:      a.SQLite,
		Evaluator:  evaluator,
		Dispatcher: dispatcher,
		Logger:     a.Logger,
	})

	a.server = server.New(server.Options{
		Config:   a.Config.Server,
		SQLite:   a.SQLite,
		Registry: a.Registry,
		Logger:   a.Logger,
	})

	return nil
}

// Start launches the alert scheduler and blocks serving HTTP.
func (a *App) Start(ctx context.Context) error {
	if a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Scheduler.Start(ctx)
	return a.server.Start(a.Config.Server.Addr)
}

// Shutdown stops the components in reverse order: the HTTP server stops
// accepting requests first, then the scheduler drains its in-flight
// cycle, then the backends and the state database are closed.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down")

	if a.server != nil {
		if err := a.server.Shutdown(); err != nil {
			a.Logger.Error("error shutting down http server", "error", err)
		}
	}

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}

	if a.Registry != nil {
		if err := a.Registry.Close(); err != nil {
			a.Logger.Error("error closing datasource backends", "error", err)
		}
	}

	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			a.Logger.Error("error closing sqlite", "error", err)
		}
	}

	a.Logger.Info("shutdown complete")
	return nil
}
