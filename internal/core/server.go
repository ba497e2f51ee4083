// Package core provides the HTTP chassis for the trade notification relay.
// It builds a chi router, enforces the cross-cutting concerns (panic
// recovery, request IDs, security headers, logging, CORS, metrics, rate
// limiting, authentication, body decoding) and hands authenticated requests
// to the domain handlers registered by the entry point.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"tradenotify/internal/config"
	"tradenotify/internal/types"
)

// MetricsCollector records API telemetry.
type MetricsCollector interface {
	// RecordRequest records one completed request. route is the chi route
	// pattern, not the raw path, to keep label cardinality bounded.
	RecordRequest(method, route, status string, duration time.Duration)
}

// RouteRegistrar mounts domain routes under /api/mt5. Registrars run inside
// the authenticated group; this indirection avoids an import cycle between
// core and the handler packages.
type RouteRegistrar func(r chi.Router)

// Server encapsulates all dependencies for the relay API.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Metrics       MetricsCollector
	Authenticator Authenticator
	RateLimiter   RateLimiter
	HealthProbes  []HealthProbe
	Clock         types.Clock

	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	RouteRegistrars []RouteRegistrar

	router *chi.Mux
}

// NewServer wires the default authenticator and rate limiter from cfg.
// The caller mounts routes with MountRoutes after setting optional fields.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config: cfg,
		Logger: logger,
		Clock:  types.RealClock{},
		router: chi.NewRouter(),
	}
	if !cfg.Auth.APISecretToken.IsEmpty() {
		s.Authenticator = NewStaticTokenAuthenticator(cfg.Auth.APISecretToken)
	}
	if cfg.RateLimit.MaxRequests > 0 && cfg.RateLimit.WindowMs > 0 {
		s.RateLimiter = NewIPRateLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.Window())
	}

	return s, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server-owned resources. It does not stop the listener;
// the caller owns the http.Server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	if closer, ok := s.RateLimiter.(interface{ Close() }); ok {
		closer.Close()
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.Logger.Info("server shutdown complete")
	return nil
}
