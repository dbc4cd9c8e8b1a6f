// Package web serves single-frame posture scoring, the live monitor status
// and the local chunk history over HTTP and websockets.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/teslashibe/go-posture/internal/log"
	"github.com/teslashibe/go-posture/pkg/history"
	"github.com/teslashibe/go-posture/pkg/hub"
	"github.com/teslashibe/go-posture/pkg/monitor"
	"github.com/teslashibe/go-posture/pkg/pose"
	"github.com/teslashibe/go-posture/pkg/posture"
)

// Decoder validates an uploaded image and returns its size.
type Decoder func(data []byte) (width, height int, err error)

// Config wires the server's collaborators.
type Config struct {
	// Addr is the listen address, e.g. ":5000".
	Addr string

	// Single-frame scoring
	Scorer    posture.Scorer
	Cutoff    int
	Estimator pose.Estimator
	Decode    Decoder

	// Optional local history; the history routes answer 503 without it.
	History  *history.Store
	Location *time.Location

	Logger *slog.Logger

	// AccessLog receives one line per request; nil disables it.
	AccessLog io.Writer
}

// Server is the posture HTTP server.
type Server struct {
	app    *fiber.App
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer

	statusHub *hub.Hub

	latest    monitor.FrameResult
	hasLatest bool
	latestMu  sync.RWMutex
}

// NewServer creates the server and registers its routes.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Scorer == nil {
		return nil, errors.New("web: scorer required")
	}
	if cfg.Estimator == nil {
		return nil, errors.New("web: pose estimator required")
	}
	if cfg.Decode == nil {
		return nil, errors.New("web: image decoder required")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":5000"
	}
	if cfg.Cutoff <= 0 {
		cfg.Cutoff = posture.DefaultSlouchCutoff
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Component("web")
	}

	s := &Server{
		cfg:       cfg,
		logger:    cfg.Logger,
		tracer:    otel.Tracer("github.com/teslashibe/go-posture/pkg/web"),
		statusHub: hub.New("posture"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "go-posture",
		DisableStartupMessage: true,
		BodyLimit:             8 * 1024 * 1024,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e any) {
			s.logger.Error("panic in handler", "path", c.Path(), "panic", e)
		},
	}))
	if cfg.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: cfg.AccessLog}))
	}

	// CORS for the browser dashboard
	app.Use(cors.New())

	app.Post("/process_frame", s.handleProcessFrame)

	// API routes
	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/history", s.handleHistory)
	api.Delete("/history/:id", s.handleDeleteChunk)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/posture", websocket.New(s.handlePostureWS))

	s.app = app
	return s, nil
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start runs the hub and serves until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	go s.statusHub.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// StartAsync starts the server in a goroutine
func (s *Server) StartAsync(ctx context.Context) {
	fmt.Printf("🌐 Posture server: http://localhost%s\n", s.cfg.Addr)
	go func() {
		if err := s.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Web server error: %v\n", err)
		}
	}()
}

// Shutdown gracefully stops the web server
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(5 * time.Second)
}

// PublishFrame records the latest monitor result and pushes it to
// websocket viewers. It has the monitor.Observer signature.
func (s *Server) PublishFrame(res monitor.FrameResult) {
	s.latestMu.Lock()
	s.latest = res
	s.hasLatest = true
	s.latestMu.Unlock()

	if err := s.statusHub.BroadcastJSON(res); err != nil {
		s.logger.Warn("broadcast frame", "error", err)
	}
}

// Viewers returns the number of connected websocket clients.
func (s *Server) Viewers() int {
	return s.statusHub.ClientCount()
}

// handleError maps errors to JSON. Anything that is not a fiber.Error is
// logged in full and reported as a generic 500.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
}
