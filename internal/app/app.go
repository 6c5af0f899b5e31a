// Package app wires configuration into a ready Dispatcher. Shared by
// cmd/api and cmd/dispatch.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	firebaseapp "firebase.google.com/go/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/gifterest/notifier/internal/config"
	"github.com/gifterest/notifier/internal/db"
	"github.com/gifterest/notifier/internal/firebase"
	"github.com/gifterest/notifier/internal/notifications"
)

// Store is a backing store that serves both events and users.
type Store interface {
	notifications.EventStore
	notifications.UserStore
	HealthCheck(ctx context.Context) error
}

// Options adjust how the app is assembled.
type Options struct {
	DryRun bool // log notifications instead of delivering them
}

// App holds the wired components and everything that must be released.
type App struct {
	Dispatcher *notifications.Dispatcher
	Store      Store

	closers []func() error
}

// Build connects to the configured store and transport.
func Build(ctx context.Context, cfg *config.Config, opts Options, logger *slog.Logger) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var fb *firebaseapp.App
	firebaseApp := func() (*firebaseapp.App, error) {
		if fb != nil {
			return fb, nil
		}
		var err error
		fb, err = firebase.NewApp(ctx, cfg)
		return fb, err
	}

	store, err := a.buildStore(ctx, cfg, firebaseApp, logger)
	if err != nil {
		return nil, err
	}
	a.Store = store

	transport := cfg.Transport
	if opts.DryRun {
		transport = config.TransportLog
	}
	sender, err := a.buildSender(ctx, cfg, transport, firebaseApp, logger)
	if err != nil {
		return nil, err
	}

	a.Dispatcher = notifications.NewDispatcher(store, store, sender, notifications.Options{
		Location:    cfg.Location,
		SendTimeout: cfg.SendTimeout,
	}, logger)

	ok = true
	return a, nil
}

func (a *App) buildStore(ctx context.Context, cfg *config.Config, firebaseApp func() (*firebaseapp.App, error), logger *slog.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		logger.Info("Connecting to database...")
		pool, err := db.New(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		logger.Info("Database connected",
			"min_conns", cfg.DBPoolMinConns,
			"max_conns", cfg.DBPoolMaxConns)
		return db.NewStore(pool), nil

	case config.StoreFirestore:
		fb, err := firebaseApp()
		if err != nil {
			return nil, err
		}
		client, err := fb.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("init firestore: %w", err)
		}
		store := firebase.NewStore(client, cfg.EventsCollection, cfg.UsersCollection)
		a.closers = append(a.closers, store.Close)
		logger.Info("Firestore connected", "events", cfg.EventsCollection, "users", cfg.UsersCollection)
		return store, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func (a *App) buildSender(ctx context.Context, cfg *config.Config, transport string, firebaseApp func() (*firebaseapp.App, error), logger *slog.Logger) (notifications.Sender, error) {
	switch transport {
	case config.TransportFCM:
		fb, err := firebaseApp()
		if err != nil {
			return nil, err
		}
		client, err := fb.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("init messaging: %w", err)
		}
		logger.Info("Notification transport ready", "transport", transport)
		return notifications.NewFCMSender(client, logger), nil

	case config.TransportAMQP:
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("dial amqp: %w", err)
		}
		a.closers = append(a.closers, conn.Close)
		q, err := notifications.NewQueueSender(conn, cfg.AMQPExchange, cfg.AMQPRoutingKey, logger)
		if err != nil {
			return nil, err
		}
		// Channel before connection: closers run in reverse.
		a.closers = append(a.closers, q.Close)
		logger.Info("Notification transport ready", "transport", transport,
			"exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
		return q, nil

	case config.TransportLog:
		logger.Info("Notification transport ready", "transport", transport)
		return notifications.NewLogSender(logger), nil
	}
	return nil, fmt.Errorf("unknown transport %q", transport)
}

// Close releases every opened resource, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewLogger builds the process logger. DEBUG=true forces debug level.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
