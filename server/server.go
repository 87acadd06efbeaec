// Package server hosts the HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/clare-ai/clare/ai/metrics"
	"github.com/clare-ai/clare/internal/profile"
	apiv1 "github.com/clare-ai/clare/server/router/api/v1"
	"github.com/clare-ai/clare/store"
)

// Server is the HTTP server hosting the API, health, and metrics endpoints.
type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile
	store      *store.Store

	apiService *apiv1.APIV1Service
}

// NewServer creates the server and wires the API services.
func NewServer(_ context.Context, instanceProfile *profile.Profile, st *store.Store) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("http request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

	apiService, err := apiv1.NewAPIV1Service(instanceProfile, st, exporter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create API service")
	}
	apiService.RegisterRoutes(e.Group("/api/v1"))

	e.GET("/healthz", func(c echo.Context) error {
		if err := st.Ping(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unreachable")
		}
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	return &Server{
		echoServer: e,
		profile:    instanceProfile,
		store:      st,
		apiService: apiService,
	}, nil
}

// Start runs the HTTP listener and the background profile refresh loop.
// Blocks until the server stops.
func (s *Server) Start(ctx context.Context) error {
	s.apiService.StartProfileRefreshLoop(ctx)

	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	return s.echoServer.Start(address)
}

// Shutdown drains in-flight requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down http server", "error", err)
	}
	if err := s.store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}
