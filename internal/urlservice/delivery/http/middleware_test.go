package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-shortlink/internal/codestore"
	httphandler "go-shortlink/internal/urlservice/delivery/http"
	"go-shortlink/internal/urlservice/usecase"
	"go-shortlink/pkg/problemdetails"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func TestRateLimiter_WithinLimit_Returns200(t *testing.T) {
	// Arrange
	handler := httphandler.NewRateLimiter(100).Middleware(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.1"
		rr := httptest.NewRecorder()

		// Act
		handler.ServeHTTP(rr, req)

		// Assert
		assert.Equal(t, http.StatusOK, rr.Code, "request %d should succeed", i+1)
		assert.Equal(t, "100", rr.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimiter_ExceedsLimit_Returns429(t *testing.T) {
	// Arrange
	handler := httphandler.NewRateLimiter(2).Middleware(okHandler())
	codes := make([]int, 0, 3)

	// Act
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.1"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)

		if rr.Code == http.StatusTooManyRequests {
			var problem problemdetails.ProblemDetail
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&problem))
			assert.Equal(t, "https://api.example.com/problems/"+problemdetails.TypeRateLimitExceeded, problem.Type)
			assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))
			assert.NotEmpty(t, rr.Header().Get("X-RateLimit-Reset"))
		}
	}

	// Assert
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_SeparateIPs_HaveSeparateBudgets(t *testing.T) {
	// Arrange
	handler := httphandler.NewRateLimiter(1).Middleware(okHandler())

	// Act
	codes := make([]int, 0, 2)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = ip
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	// Assert
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
}

func TestRateLimiter_Disabled_AllowsEverything(t *testing.T) {
	// Arrange
	handler := httphandler.NewRateLimiter(0).Middleware(okHandler())

	// Act / Assert
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestRouter_ProbesBypassRateLimit(t *testing.T) {
	// Arrange
	logger := zap.NewNop()
	store := codestore.NewMemoryStore()
	handler := httphandler.NewHandler(
		usecase.NewAllocator(store, usecase.AllocatorConfig{}, logger),
		usecase.NewResolver(store, nil, logger),
		baseURL,
		logger,
	)
	router := httphandler.NewRouter(handler, logger, httphandler.NewRateLimiter(1))

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/missing1", nil))
	limited := httptest.NewRecorder()
	router.ServeHTTP(limited, httptest.NewRequest(http.MethodGet, "/missing2", nil))

	// Act
	health := httptest.NewRecorder()
	router.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	// Assert
	assert.Equal(t, http.StatusNotFound, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestLoggerMiddleware_LogsRequest(t *testing.T) {
	// Arrange
	core, logs := observer.New(zap.InfoLevel)
	handler := httphandler.LoggerMiddleware(zap.New(core))(okHandler())
	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	rr := httptest.NewRecorder()

	// Act
	handler.ServeHTTP(rr, req)

	// Assert
	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/abc", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
}
