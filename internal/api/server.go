package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/gifterest/notifier/internal/api/handler"
	"github.com/gifterest/notifier/internal/config"
	"github.com/gifterest/notifier/internal/notifications"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(runner handler.CycleRunner, store handler.HealthChecker, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	if !cfg.IsProduction() {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Request-Id"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(runner, store, notifications.RealClock{}, cfg.ActivationKey, logger)

	// --- Routes ---

	r.Get("/", h.Root)
	r.Get("/send_notifications", h.SendNotifications)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/store", h.HealthCheckStore)
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	return r
}
