// Package api exposes the Plandeck HTTP surface: project, developer and task
// CRUD plus computed schedule, resource and check-in endpoints.
package api

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/plandeck/plandeck/internal/health"
	"github.com/plandeck/plandeck/internal/metrics"
	"github.com/plandeck/plandeck/internal/project"
	"github.com/plandeck/plandeck/internal/requestid"
	"github.com/plandeck/plandeck/internal/store"
)

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	ListenAddr  string
	APIKey      string // empty disables auth
	RateLimit   RateLimitConfig
	CORSOrigins string
}

// Server is the Plandeck Fiber application.
type Server struct {
	app      *fiber.App
	handlers *Handlers
	logger   zerolog.Logger
	config   ServerConfig
}

// NewServer creates and configures the API server.
func NewServer(
	cfg ServerConfig,
	st *store.Store,
	planner *project.Planner,
	notifier Notifier,
	checker *health.Checker,
	metricsCollector *metrics.Metrics,
	logger zerolog.Logger,
) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler(logger),
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ReadBufferSize:        8192,
		WriteBufferSize:       8192,
	})

	handlers := NewHandlers(st, planner, notifier, checker, metricsCollector, logger)

	s := &Server{
		app:      app,
		handlers: handlers,
		logger:   logger.With().Str("component", "api_server").Logger(),
		config:   cfg,
	}

	s.setupMiddleware(cfg, logger)
	s.setupRoutes(handlers, metricsCollector)

	return s
}

func (s *Server) setupMiddleware(cfg ServerConfig, logger zerolog.Logger) {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	// Request ID middleware
	s.app.Use(func(c *fiber.Ctx) error {
		_, reqID := requestid.New(c.Context())
		c.Set("X-Request-ID", reqID)
		c.Locals("request_id", reqID)
		return c.Next()
	})

	if cfg.CORSOrigins != "" {
		s.app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CORSOrigins,
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
			AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
		}))
	}

	if cfg.RateLimit.RPS > 0 {
		s.app.Use(newRateLimitMiddleware(cfg.RateLimit))
	}

	s.app.Use(newAuthMiddleware(cfg.APIKey, logger))

	// Audit middleware (log every request)
	s.app.Use(func(c *fiber.Ctx) error {
		path := c.Path()
		// Skip noisy probe logging
		if isProbePath(path) {
			return c.Next()
		}

		logger.Info().
			Str("method", c.Method()).
			Str("path", path).
			Str("ip", c.IP()).
			Str("request_id", fmt.Sprintf("%v", c.Locals("request_id"))).
			Msg("api request")

		return c.Next()
	})
}

func (s *Server) setupRoutes(h *Handlers, metricsCollector *metrics.Metrics) {
	// Probe endpoints (no auth required — handled in auth middleware)
	s.app.Get("/healthz", h.Liveness)
	s.app.Get("/readyz", h.Readiness)
	s.app.Get("/metrics", adaptor.HTTPHandler(metricsCollector.Handler()))

	v1 := s.app.Group("/api/v1")

	v1.Post("/projects", h.CreateProject)
	v1.Get("/projects", h.ListProjects)
	v1.Get("/projects/:slug", h.GetProject)
	v1.Patch("/projects/:slug", h.UpdateProject)
	v1.Delete("/projects/:slug", h.DeleteProject)
	v1.Post("/projects/:slug/archive", h.ArchiveProject)

	v1.Post("/developers", h.CreateDeveloper)
	v1.Get("/developers", h.ListDevelopers)

	v1.Post("/projects/:slug/tasks", h.CreateTask)
	v1.Get("/projects/:slug/tasks", h.ListTasks)
	v1.Get("/tasks/:id", h.GetTask)
	v1.Patch("/tasks/:id", h.UpdateTask)
	v1.Delete("/tasks/:id", h.DeleteTask)

	v1.Get("/projects/:slug/schedule", h.GetSchedule)
	v1.Get("/projects/:slug/resources", h.GetResources)
	v1.Post("/projects/:slug/checkin", h.Checkin)
}

// Start starts the server. Blocks until stopped.
func (s *Server) Start() error {
	addr := s.config.ListenAddr
	if addr == "" {
		addr = ":8080"
	}

	s.logger.Info().Str("addr", addr).Msg("api server starting")
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.logger.Info().Msg("api server shutting down")
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

func customErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error().
			Err(err).
			Int("status", code).
			Str("path", c.Path()).
			Str("method", c.Method()).
			Msg("unhandled error")

		detail := err.Error()
		if code == fiber.StatusInternalServerError {
			detail = "An internal error occurred"
		}

		return c.Status(code).JSON(ProblemDetail{
			Type:     "internal_error",
			Title:    "Internal Server Error",
			Status:   code,
			Detail:   detail,
			Instance: c.Path(),
		})
	}
}
