package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Healthz)
	r.Get("/readyz", handler.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	// Analytics API
	r.Route("/api/v1/analytics/{code}", func(r chi.Router) {
		r.Get("/", handler.GetClickCount)
		r.Get("/summary", handler.GetSummary)
	})

	return r
}
