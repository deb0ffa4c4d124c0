package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter creates a new Chi router with all middleware and routes
func NewRouter(handler *Handler, logger *zap.Logger, rateLimiter *RateLimiter) http.Handler {
	r := chi.NewRouter()

	// Global middleware chain
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)

	// Probes and metrics bypass the rate limiter
	r.Get("/healthz", handler.Healthz)
	r.Get("/readyz", handler.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(rateLimiter.Middleware)

		r.Get("/{code}", handler.Redirect)

		r.Route("/api/v1", func(r chi.Router) {
			r.Post("/urls", handler.CreateShortURL)
			r.Get("/urls/{code}", handler.GetURLDetails)
			r.Delete("/urls/{code}", handler.DeleteURL)
			r.Get("/codes/{code}/availability", handler.CheckAvailability)
		})
	})

	return r
}
