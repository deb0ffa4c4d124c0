package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go-shortlink/internal/domain"
	"go-shortlink/internal/urlservice/usecase"
	"go-shortlink/pkg/problemdetails"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Handler handles HTTP requests for short code operations
type Handler struct {
	allocator *usecase.Allocator
	resolver  *usecase.Resolver
	baseURL   string
	checks    []ReadinessCheck
	logger    *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(allocator *usecase.Allocator, resolver *usecase.Resolver, baseURL string, logger *zap.Logger, checks ...ReadinessCheck) *Handler {
	return &Handler{
		allocator: allocator,
		resolver:  resolver,
		baseURL:   baseURL,
		checks:    checks,
		logger:    logger,
	}
}

// CreateShortURLRequest represents the request body for creating a short URL
type CreateShortURLRequest struct {
	DestinationURL string `json:"destination_url"`
	CustomCode     string `json:"custom_code,omitempty"`
	TTLSeconds     int64  `json:"ttl_seconds,omitempty"`
}

// MaxTTLSeconds caps ttl_seconds at ten years.
const MaxTTLSeconds int64 = 10 * 365 * 24 * 60 * 60

func (r CreateShortURLRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DestinationURL, validation.Required),
		validation.Field(&r.TTLSeconds, validation.Min(int64(0)), validation.Max(MaxTTLSeconds)),
	)
}

// URLResponse represents the response for short code operations
type URLResponse struct {
	ShortCode      string     `json:"short_code"`
	ShortURL       string     `json:"short_url"`
	DestinationURL string     `json:"destination_url"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
}

// AvailabilityResponse reports whether a custom code can be claimed
type AvailabilityResponse struct {
	ShortCode string `json:"short_code"`
	Available bool   `json:"available"`
}

// CreateShortURL handles POST /api/v1/urls
func (h *Handler) CreateShortURL(w http.ResponseWriter, r *http.Request) {
	var req CreateShortURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, problemdetails.New(
			http.StatusBadRequest,
			problemdetails.TypeInvalidRequest,
			"Invalid Request",
			"Request body must be valid JSON with a 'destination_url' field",
		))
		return
	}
	if err := req.Validate(); err != nil {
		writeProblem(w, problemdetails.FromValidation(err))
		return
	}

	mapping, err := h.allocator.Allocate(r.Context(), usecase.AllocateRequest{
		CustomCode:     req.CustomCode,
		DestinationURL: req.DestinationURL,
		TTL:            time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, URLResponse{
		ShortCode:      mapping.Code,
		ShortURL:       h.baseURL + "/" + mapping.Code,
		DestinationURL: mapping.DestinationURL,
		ExpiresAt:      mapping.ExpiresAt,
	})
}

// Redirect handles GET /{code}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	destination, err := h.resolver.Resolve(r.Context(), code, clickContext(r))
	if err != nil {
		// Malformed codes cannot exist, so they read as not found here.
		if errors.Is(err, domain.ErrInvalidFormat) {
			err = domain.ErrNotFound
		}
		h.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, destination, http.StatusFound)
}

// GetURLDetails handles GET /api/v1/urls/{code}
func (h *Handler) GetURLDetails(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	destination, err := h.resolver.Lookup(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, URLResponse{
		ShortCode:      code,
		ShortURL:       h.baseURL + "/" + code,
		DestinationURL: destination,
	})
}

// DeleteURL handles DELETE /api/v1/urls/{code}
func (h *Handler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	if err := h.resolver.Delete(r.Context(), code); err != nil {
		h.writeError(w, r, err)
		return
	}

	// 204 even if the code did not exist
	w.WriteHeader(http.StatusNoContent)
}

// CheckAvailability handles GET /api/v1/codes/{code}/availability
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	available, err := h.allocator.IsAvailable(r.Context(), code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{ShortCode: code, Available: available})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidShortCode):
		writeProblem(w, problemdetails.New(http.StatusBadRequest, problemdetails.TypeInvalidShortCode, "Invalid Short Code", err.Error()))
	case errors.Is(err, domain.ErrInvalidURL):
		writeProblem(w, problemdetails.New(http.StatusBadRequest, problemdetails.TypeInvalidURL, "Invalid URL", err.Error()))
	case errors.Is(err, domain.ErrConflict):
		writeProblem(w, problemdetails.New(http.StatusConflict, problemdetails.TypeConflict, "Short Code Taken", "The requested short code is already in use"))
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, problemdetails.New(http.StatusNotFound, problemdetails.TypeNotFound, "Not Found", "Short URL not found: "+chi.URLParam(r, "code")))
	case errors.Is(err, domain.ErrTransientInfra):
		h.logger.Warn("dependency unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeProblem(w, problemdetails.New(http.StatusServiceUnavailable, problemdetails.TypeUnavailable, "Service Unavailable", "Please retry shortly"))
	default:
		h.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeProblem(w, problemdetails.New(http.StatusInternalServerError, problemdetails.TypeInternalError, "Internal Server Error", "Internal server error"))
	}
}

// clickContext captures client metadata before the response is written.
func clickContext(r *http.Request) usecase.ClickContext {
	clientIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		clientIP = host
	}
	return usecase.ClickContext{
		ClientIP:  clientIP,
		UserAgent: r.Header.Get("User-Agent"),
		Referer:   r.Header.Get("Referer"),
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
				Reason: c.Name + " unavailable: " + err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}
