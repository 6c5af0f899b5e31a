// Command api is the Gifterest notifier HTTP server. A scheduler calls
// /send_notifications once a day to send the reminders that are due.
//
// Usage:
//
//	gifterest-api
//	PORT=8080 gifterest-api

// @title Gifterest Notifier API
// @version 1.0.0
// @description Sends 30/14/7/0-day reminders for Gifterest special events to the owners' devices.
// @BasePath /
// @schemes http https
// @contact.name Gifterest
// @license.name MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gifterest/notifier/internal/api"
	"github.com/gifterest/notifier/internal/app"
	"github.com/gifterest/notifier/internal/config"

	_ "github.com/gifterest/notifier/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err == nil {
		err = cfg.ValidateServer()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := app.NewLogger(cfg, os.Stdout)

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.Build(ctx, cfg, app.Options{}, logger)
	if err != nil {
		logger.Error("Failed to initialise", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Close failed", "error", err)
		}
	}()

	// Create router
	router := api.NewRouter(a.Dispatcher, a.Store, cfg, logger)

	// Create HTTP server. A cycle can take a while, so writes get a long timeout.
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting Gifterest notifier",
			"addr", addr,
			"environment", cfg.Environment,
			"store", cfg.StoreBackend,
			"transport", cfg.Transport,
			"timezone", cfg.Location.String(),
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt or a listener failure
	select {
	case <-ctx.Done():
		logger.Info("Shutting down...")
	case err := <-serverErr:
		logger.Error("Server failed", "error", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
