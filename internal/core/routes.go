package core

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradenotify/internal/types"
)

// serviceName is reported by GET /.
const serviceName = "MT5 Notify API"

// defaultRedactedHeaders are masked in request logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	"X-Api-Key",
}

// MountRoutes registers middleware and routes. Order:
//
//  1. Recoverer       - outermost so every panic becomes a 500 JSON body.
//  2. ContextTimeout  - soft deadline for the whole request.
//  3. RequestID
//  4. SecurityHeaders
//  5. RequestLogger   - redacted headers; injects the request logger.
//  6. CORS
//  7. Metrics
//
// Under /api: RateLimit, then for protected routes Auth, Decompress and
// BodyLimit.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(s.SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))
	s.router.Use(s.MetricsMiddleware)

	// Must precede Route so sub-routers inherit them.
	s.router.NotFound(s.HandleNotFound)
	s.router.MethodNotAllowed(s.HandleMethodNotAllowed)

	s.router.Get("/", s.HandleServiceInfo)
	s.router.Get("/health", s.HandleHealth)
	if s.Gatherer != nil {
		s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.RateLimit)
		r.Route("/mt5", s.mountMT5)
	})
}

func (s *Server) mountMT5(r chi.Router) {
	r.Get("/health", s.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.AuthMiddleware)
		r.Use(s.DecompressMiddleware)
		r.Use(BodyLimitMiddleware(s.maxBodyBytes()))
		for _, registrar := range s.RouteRegistrars {
			registrar(r)
		}
	})
}

// HandleServiceInfo describes the service and its endpoints.
func (s *Server) HandleServiceInfo(w http.ResponseWriter, r *http.Request) {
	version := "dev"
	if s.Config != nil && s.Config.Build.Version != "" {
		version = s.Config.Build.Version
	}
	JSON(w, r, http.StatusOK, map[string]any{
		"name":    serviceName,
		"version": version,
		"status":  "running",
		"endpoints": map[string]string{
			"health":  "/api/mt5/health",
			"event":   "POST /api/mt5/event",
			"metrics": "/metrics",
		},
	})
}

// HandleNotFound writes {"error":"Route not found"}.
func (s *Server) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	if l := types.LoggerFromContext(r.Context()); l != nil {
		l.Warn("route not found", "path", r.URL.Path, "method", r.Method)
	}
	Error(w, r, types.NewAppError(types.ErrCodeNotFoundRoute, "Route not found", nil))
}

// HandleMethodNotAllowed writes a 405 JSON body.
func (s *Server) HandleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, r, types.NewAppError(types.ErrCodeMethodNotAllowed, "Method not allowed", nil))
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return 30 * time.Second
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Server.CorsAllowedOrigins) > 0 {
		return s.Config.Server.CorsAllowedOrigins
	}
	return []string{"*"}
}

func (s *Server) maxBodyBytes() int64 {
	if s.Config != nil && s.Config.Server.MaxBodyBytes > 0 {
		return s.Config.Server.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

// ContextTimeoutMiddleware sets a deadline on the request context.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
