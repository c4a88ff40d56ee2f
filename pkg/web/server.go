// Package web serves the camera HTTP API.
package web

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/camframe/pkg/camera"
)

// CameraService is the part of camera.Service the handlers use.
type CameraService interface {
	Connect(ep camera.Endpoint) (camera.Info, error)
	Disconnect()
	Status() camera.Status
	Frame() ([]byte, error)
	Snapshot() (string, error)
	Info() (camera.Info, error)
	Stats() (camera.Stats, bool)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithClock replaces time.Now for response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// Server is the camera API server
type Server struct {
	app      *fiber.App
	port     string
	svc      CameraService
	log      *slog.Logger
	gatherer prometheus.Gatherer
	now      func() time.Time
}

// NewServer creates a server for svc listening on port.
func NewServer(port string, svc CameraService, opts ...Option) *Server {
	s := &Server{
		port: port,
		svc:  svc,
		log:  slog.Default(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	app := fiber.New(fiber.Config{
		AppName:               "camframe",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(s.accessLog)
	app.Use(cors.New())

	app.Get("/", s.handleRoot)
	app.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Post("/connect", s.handleConnect)
	api.Get("/disconnect", s.handleDisconnect)
	api.Post("/disconnect", s.handleDisconnect)
	api.Get("/status", s.handleStatus)
	api.Get("/frame", s.handleFrame)
	api.Get("/snapshot", s.handleSnapshot)
	api.Get("/info", s.handleInfo)

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until the server is shut down.
func (s *Server) Start() error {
	s.log.Info("web: listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) accessLog(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else if err != nil {
		status = fiber.StatusInternalServerError
	}

	level := slog.LevelDebug
	if status >= fiber.StatusInternalServerError {
		level = slog.LevelWarn
	}
	s.log.Log(c.UserContext(), level, "web: request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
	)
	return err
}

// handleError renders errors as {"detail": reason}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error("web: handler failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"detail": err.Error()})
}

// timestamp is Unix time in fractional seconds.
func (s *Server) timestamp() float64 {
	return float64(s.now().UnixNano()) / 1e9
}
