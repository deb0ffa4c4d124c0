package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-shortlink/internal/analytics/usecase"
	"go-shortlink/internal/domain"
	"go-shortlink/pkg/problemdetails"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ReadinessCheck is a named dependency probe used by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Handler struct {
	analyticsService *usecase.AnalyticsService
	logger           *zap.Logger
	checks           []ReadinessCheck
}

func NewHandler(analyticsService *usecase.AnalyticsService, logger *zap.Logger, checks ...ReadinessCheck) *Handler {
	return &Handler{
		analyticsService: analyticsService,
		logger:           logger,
		checks:           checks,
	}
}

// AnalyticsResponse is the API response for click count queries.
type AnalyticsResponse struct {
	ShortCode   string `json:"short_code"`
	TotalClicks int64  `json:"total_clicks"`
}

// GetClickCount handles GET /api/v1/analytics/{code}
func (h *Handler) GetClickCount(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	count, err := h.analyticsService.GetClickCount(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	// Zero clicks is 200 with total_clicks: 0, not 404
	writeJSON(w, http.StatusOK, AnalyticsResponse{
		ShortCode:   code,
		TotalClicks: count,
	})
}

// GetSummary handles GET /api/v1/analytics/{code}/summary
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	summary, err := h.analyticsService.GetSummary(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, convertToSummaryResponse(summary))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidShortCode):
		writeProblem(w, problemdetails.New(http.StatusBadRequest, problemdetails.TypeInvalidShortCode, "Invalid Short Code", err.Error()))
	case errors.Is(err, domain.ErrTransientInfra):
		h.logger.Warn("analytics store unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeProblem(w, problemdetails.New(http.StatusServiceUnavailable, problemdetails.TypeUnavailable, "Service Unavailable", "Please retry shortly"))
	default:
		h.logger.Error("analytics query failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeProblem(w, problemdetails.New(http.StatusInternalServerError, problemdetails.TypeInternalError, "Internal Server Error", "Failed to retrieve analytics"))
	}
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Healthz handles GET /healthz (liveness probe)
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz handles GET /readyz (readiness probe)
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unavailable",
				Reason: c.Name + " unavailable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}

// convertToSummaryResponse converts service result to HTTP response
func convertToSummaryResponse(summary *usecase.ClickSummary) *AnalyticsSummaryResponse {
	return &AnalyticsSummaryResponse{
		ShortCode:      summary.ShortCode,
		TotalClicks:    summary.TotalClicks,
		Countries:      convertBreakdownItems(summary.ByCountry, summary.TotalClicks),
		DeviceTypes:    convertBreakdownItems(summary.ByDevice, summary.TotalClicks),
		TrafficSources: convertBreakdownItems(summary.BySource, summary.TotalClicks),
	}
}

// convertBreakdownItems converts grouped counts to response items with their share of total
func convertBreakdownItems(items []usecase.GroupCount, total int64) []BreakdownResponse {
	resp := make([]BreakdownResponse, len(items))
	for i, item := range items {
		var pct float64
		if total > 0 {
			pct = float64(item.Count) / float64(total) * 100
		}
		resp[i] = BreakdownResponse{
			Value:      item.Value,
			Count:      item.Count,
			Percentage: formatPercentage(pct),
		}
	}
	return resp
}
