package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"go-shortlink/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// waitForHealthy polls a health endpoint until it returns 200 or timeout is reached
func waitForHealthy(ctx context.Context, url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: time.Second}

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}

	return fmt.Errorf("timeout waiting for %s to be healthy", url)
}

func TestRunURLService_SingleBinaryPipeline(t *testing.T) {
	// Arrange
	cfg := testConfig(t)
	cfg.HTTPServer.Port = freePort(t)
	cfg.Ingestor.Port = freePort(t)
	cfg.HTTPServer.BaseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.HTTPServer.Port)
	cfg.Ingestor.RequeueDelay = 10 * time.Millisecond
	urlBase := cfg.HTTPServer.BaseURL
	analyticsBase := fmt.Sprintf("http://127.0.0.1:%d", cfg.Ingestor.Port)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunURLService(ctx, cfg, zap.NewNop()) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(15 * time.Second):
			t.Error("url-service did not stop")
		}
	})

	waitCtx, waitCancel := context.WithTimeout(ctx, 10*time.Second)
	defer waitCancel()
	require.NoError(t, waitForHealthy(waitCtx, urlBase+"/readyz", 10*time.Second))
	require.NoError(t, waitForHealthy(waitCtx, analyticsBase+"/readyz", 10*time.Second))

	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	// Act: shorten, then follow the short link
	body := bytes.NewBufferString(`{"destination_url":"https://example.org/a","custom_code":"pipe123"}`)
	resp, err := client.Post(urlBase+"/api/v1/urls", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, urlBase+"/pipe123", nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	// Assert
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://example.org/a", resp.Header.Get("Location"))

	assert.Eventually(t, func() bool {
		resp, err := client.Get(analyticsBase + "/api/v1/analytics/pipe123")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var out struct {
			TotalClicks int64 `json:"total_clicks"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return false
		}
		return out.TotalClicks == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestRunURLService_FailsFastOnBadConfig(t *testing.T) {
	// Arrange
	cfg := testConfig(t)
	cfg.CodeStore.Driver = config.DriverRedis
	cfg.Redis.URL = "not-a-url"

	// Act
	err := RunURLService(context.Background(), cfg, zap.NewNop())

	// Assert
	assert.Error(t, err)
}
