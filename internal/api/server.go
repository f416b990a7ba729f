// Package api serves the analytics engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"runlytics/internal/analysis"
	"runlytics/internal/observability"
	"runlytics/internal/service"
	"runlytics/internal/store"
)

// Analytics is the query side the routes expose
type Analytics interface {
	GetZoneStats(ctx context.Context, r service.DateRange, g analysis.Granularity) ([]store.ZoneRollup, error)
	GetFitnessTrend(ctx context.Context, r service.DateRange, g analysis.Granularity) ([]store.FitnessTrendPoint, error)
	GetPersonalRecords(ctx context.Context, w analysis.TimeWindow) (*service.PersonalRecordsResult, error)
	GetPaceZoneStats(ctx context.Context, fitnessScore float64, r service.DateRange) ([]analysis.PaceZoneBand, error)
	GetCurrentFitness(ctx context.Context) (*service.CurrentFitness, error)
	GetTrainingForm(ctx context.Context, r service.DateRange) (*service.TrainingForm, error)
}

// Rebuilder refreshes the precomputed rollups on demand
type Rebuilder interface {
	Rebuild(ctx context.Context, trigger string) (*store.RollupBuild, error)
}

// Server bundles the fiber app with its dependencies
type Server struct {
	App       *fiber.App
	analytics Analytics
	rebuilder Rebuilder
	now       func() time.Time
	logger    *slog.Logger
}

// NewServer builds the app and registers every route. rebuilder may be nil,
// in which case the rebuild route is not registered.
func NewServer(analytics Analytics, rebuilder Rebuilder, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		analytics: analytics,
		rebuilder: rebuilder,
		now:       time.Now,
		logger:    log,
	}

	app := fiber.New(fiber.Config{
		AppName:               "runlytics",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(requestMetrics)

	s.App = app
	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	RegisterRoutes(s.App.Group("/api"), s)
}

// Listen serves until ctx is cancelled
func (s *Server) Listen(ctx context.Context, addr string) error {
	errc := make(chan error, 1)
	go func() { errc <- s.App.Listen(addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.App.ShutdownWithContext(shutdownCtx)
	}
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, analysis.ErrUnknownGranularity):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrNoFitness), errors.Is(err, store.ErrActivityNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	msg := err.Error()
	if code == fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
		msg = "internal error"
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func requestMetrics(c *fiber.Ctx) error {
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	observability.RecordHTTPRequest(c.Route().Path, status)
	return err
}
