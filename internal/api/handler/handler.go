// Package handler provides HTTP handlers for all API endpoints.
package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gifterest/notifier/internal/api/respond"
	"github.com/gifterest/notifier/internal/config"
	"github.com/gifterest/notifier/internal/notifications"
)

// Response bodies of the trigger endpoint. Schedulers match on these.
const (
	msgRoot      = "API endpoint to send Gifterest notifications"
	msgAwake     = "Servers are awake!!"
	msgForbidden = "The client does not have access rights to execute this request"
	msgFailed    = "There was an error getting event data"
	msgSent      = "Notifications Successfully Sent!!!!"
)

// CycleRunner runs one dispatch cycle for the day containing now.
type CycleRunner interface {
	RunCycle(ctx context.Context, now time.Time) (notifications.CycleResult, error)
}

// HealthChecker verifies connectivity to the backing store.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	runner        CycleRunner
	store         HealthChecker
	clock         notifications.Clock
	activationKey string
	logger        *slog.Logger
}

// New creates a Handler with shared dependencies.
func New(runner CycleRunner, store HealthChecker, clock notifications.Clock, activationKey string, logger *slog.Logger) *Handler {
	if clock == nil {
		clock = notifications.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		runner:        runner,
		store:         store,
		clock:         clock,
		activationKey: activationKey,
		logger:        logger,
	}
}

// Root serves a one-line description at /.
// @Summary API root info
// @Tags meta
// @Produce plain
// @Success 200 {string} string
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteText(w, http.StatusOK, msgRoot)
}

// SendNotifications runs one reminder cycle when the activation key matches.
// @Summary Trigger a reminder cycle
// @Description Sends the reminders due today. activation_key=wake_up only wakes the server.
// @Tags notifications
// @Produce plain
// @Param activation_key query string true "Shared secret, or wake_up"
// @Success 200 {string} string
// @Failure 403 {string} string
// @Failure 500 {string} string
// @Router /send_notifications [get]
func (h *Handler) SendNotifications(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("activation_key")

	if key == config.WakeUpKey {
		h.logger.Info("Wake-up call received")
		respond.WriteText(w, http.StatusOK, msgAwake)
		return
	}
	if h.activationKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.activationKey)) != 1 {
		h.logger.Warn("Rejected trigger with wrong activation key", "remote", r.RemoteAddr)
		respond.WriteText(w, http.StatusForbidden, msgForbidden)
		return
	}

	// A scheduler that hangs up early must not cut the batch short.
	ctx := context.WithoutCancel(r.Context())

	result, err := h.runner.RunCycle(ctx, h.clock.Now())
	if err != nil {
		h.logger.Error("Dispatch cycle failed", "run_id", result.RunID, "error", err)
		respond.WriteText(w, http.StatusInternalServerError, msgFailed)
		return
	}
	respond.WriteText(w, http.StatusOK, msgSent)
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": h.clock.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckStore verifies event store connectivity.
// @Summary Store health check
// @Description Verifies connectivity to Firestore or Postgres.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/store [get]
func (h *Handler) HealthCheckStore(w http.ResponseWriter, r *http.Request) {
	now := h.clock.Now().UTC().Format(time.RFC3339)
	if err := h.store.HealthCheck(r.Context()); err != nil {
		h.logger.Warn("Store health check failed", "error", err)
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"store":     "disconnected",
			"error":     "Store connection check failed",
			"timestamp": now,
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"store":     "connected",
		"timestamp": now,
	})
}
