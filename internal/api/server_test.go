package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gifterest/notifier/internal/config"
	"github.com/gifterest/notifier/internal/notifications"
)

type countingRunner struct{ calls int }

func (c *countingRunner) RunCycle(context.Context, time.Time) (notifications.CycleResult, error) {
	c.calls++
	return notifications.CycleResult{}, nil
}

type okStore struct{}

func (okStore) HealthCheck(context.Context) error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		ActivationKey:     "key",
		CORSAllowOrigins:  []string{"*"},
		RateLimitEnabled:  false,
		RateLimitRequests: 30,
		RateLimitWindow:   time.Minute,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Routes(t *testing.T) {
	runner := &countingRunner{}
	r := NewRouter(runner, okStore{}, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, http.StatusOK, get(t, r, "/").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/health").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/health/store").Code)
	assert.Equal(t, http.StatusForbidden, get(t, r, "/send_notifications?activation_key=nope").Code)
	assert.Equal(t, http.StatusOK, get(t, r, "/send_notifications?activation_key=key").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/missing").Code)
	assert.Equal(t, 1, runner.calls)
}

func TestRouter_TimingHeader(t *testing.T) {
	r := NewRouter(&countingRunner{}, okStore{}, testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := get(t, r, "/")
	assert.Regexp(t, `^\d+\.\d{2}ms$`, rec.Header().Get("X-Process-Time"))
}

func TestRouter_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitEnabled = true
	cfg.RateLimitRequests = 4 // burst of 2
	r := NewRouter(&countingRunner{}, okStore{}, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.Equal(t, http.StatusOK, get(t, r, "/").Code)
	require.Equal(t, http.StatusOK, get(t, r, "/").Code)

	rec := get(t, r, "/")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}
