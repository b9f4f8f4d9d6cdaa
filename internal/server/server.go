// Package server exposes the HTTP API: the query boundary, datasource
// introspection, alert and channel management, and operational endpoints.
package server

import (
	"log/slog"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gaugehq/gauge/internal/backends"
	"github.com/gaugehq/gauge/internal/config"
	"github.com/gaugehq/gauge/internal/sqlite"
)

// Server wires the fiber app over the registry and the state database.
type Server struct {
	app      *fiber.App
	config   config.ServerConfig
	sqlite   *sqlite.DB
	registry *backends.Registry
	log      *slog.Logger
}

// Options holds the dependencies for a Server.
type Options struct {
	Config   config.ServerConfig
	SQLite   *sqlite.DB
	Registry *backends.Registry
	Logger   *slog.Logger
}

// New constructs the Server and registers all routes.
func New(opts Options) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "gauge",
		DisableStartupMessage: true,
		ReadTimeout:           opts.Config.ReadTimeout,
		WriteTimeout:          opts.Config.WriteTimeout,
		IdleTimeout:           opts.Config.IdleTimeout,
	})
	app.Use(recover.New())

	s := &Server{
		app:      app,
		config:   opts.Config,
		sqlite:   opts.SQLite,
		registry: opts.Registry,
		log:      opts.Logger.With("component", "http_server"),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.app.Get("/health", s.handleHealth)
	s.app.Get("/metrics", s.handleMetrics)

	api := s.app.Group("/api")
	api.Post("/query", s.handleQuery)

	// Static datasource routes must precede the :name ones.
	api.Get("/datasources/metrics", s.handleListAvailableMetrics)
	api.Get("/datasources", s.handleListDatasources)
	api.Post("/datasources/:name/test", s.handleTestDatasource)
	api.Get("/datasources/:name/logs", s.handleGetDatasourceLogs)
	api.Delete("/datasources/:name/logs", s.handleClearDatasourceLogs)

	api.Get("/alerts", s.handleListAlerts)
	api.Post("/alerts", s.handleCreateAlert)
	api.Get("/alerts/:id", s.handleGetAlert)
	api.Put("/alerts/:id", s.handleUpdateAlert)
	api.Delete("/alerts/:id", s.handleDeleteAlert)
	api.Get("/alerts/:id/history", s.handleAlertHistory)

	api.Get("/channels", s.handleListChannels)
	api.Post("/channels", s.handleCreateChannel)
	api.Get("/channels/:id", s.handleGetChannel)
	api.Put("/channels/:id", s.handleUpdateChannel)
	api.Delete("/channels/:id", s.handleDeleteChannel)
}

// Start begins serving. It blocks until the listener closes.
func (s *Server) Start(addr string) error {
	s.log.Info("http server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"healthy": true})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	metrics.WritePrometheus(c.Response().BodyWriter(), true)
	return nil
}
