// Command dispatch is the Gifterest reminder operator CLI.
//
// Usage:
//
//	gifterest-dispatch run
//	gifterest-dispatch run --date 2024-03-01 --dry-run
//	gifterest-dispatch check --date 2024-03-01 --event-date 1990-03-31
//	gifterest-dispatch schema
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gifterest/notifier/internal/app"
	"github.com/gifterest/notifier/internal/config"
	"github.com/gifterest/notifier/internal/db"
	"github.com/gifterest/notifier/internal/notifications"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "gifterest-dispatch",
		Short: "Gifterest reminder dispatch CLI",
	}

	root.AddCommand(runCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(schemaCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	var date string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one reminder cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				// Skip transport credential checks in config.Load.
				_ = os.Setenv("TRANSPORT", config.TransportLog)
			}
			return withApp(app.Options{DryRun: dryRun}, func(ctx context.Context, cfg *config.Config, a *app.App) error {
				clock, err := clockFor(date, cfg.Location)
				if err != nil {
					return err
				}

				start := time.Now()
				result, err := a.Dispatcher.RunCycle(ctx, clock.Now())
				if err != nil {
					return err
				}
				logger.Info("Cycle finished",
					"duration", time.Since(start).Round(time.Millisecond),
					"summary", result.Summary(),
					"dry_run", dryRun)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to evaluate (YYYY-MM-DD); defaults to today")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log notifications instead of sending them")
	return cmd
}

// --------------------------------------------------------------------------
// check command
// --------------------------------------------------------------------------

func checkCmd() *cobra.Command {
	var date, eventDate string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show which reminder offset, if any, fires for an event date",
		RunE: func(cmd *cobra.Command, args []string) error {
			if eventDate == "" {
				return fmt.Errorf("--event-date is required")
			}
			today, err := parseDay(date, time.Local)
			if err != nil {
				return err
			}
			event, err := parseDay(eventDate, time.Local)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if days, ok := notifications.DueOffset(event, today); ok {
				msg := notifications.Compose(notifications.Event{EventName: "Event"}, days)
				fmt.Fprintf(out, "due: %d days\ntitle: %s\nbody: %s\n", days, msg.Title, msg.Body)
				return nil
			}
			fmt.Fprintln(out, "not due")
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Today (YYYY-MM-DD); defaults to the current date")
	cmd.Flags().StringVar(&eventDate, "event-date", "", "Stored event date (YYYY-MM-DD)")
	return cmd
}

// --------------------------------------------------------------------------
// schema command
// --------------------------------------------------------------------------

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the Postgres tables used by STORE_BACKEND=postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			url := os.Getenv("DATABASE_URL")
			if url == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			if err := db.EnsureSchema(ctx, url); err != nil {
				return err
			}
			logger.Info("Schema applied")
			return nil
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withApp handles config loading, wiring, and context cancellation.
func withApp(opts app.Options, fn func(ctx context.Context, cfg *config.Config, a *app.App) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = app.NewLogger(cfg, os.Stdout)

	a, err := app.Build(ctx, cfg, opts, logger)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("Close failed", "error", err)
		}
	}()

	return fn(ctx, cfg, a)
}

// clockFor pins the clock to noon of the given day, or uses the real clock.
func clockFor(date string, loc *time.Location) (notifications.Clock, error) {
	if date == "" {
		return notifications.RealClock{}, nil
	}
	day, err := parseDay(date, loc)
	if err != nil {
		return nil, err
	}
	return notifications.FixedClock(day.Add(12 * time.Hour)), nil
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return notifications.Midnight(time.Now().In(loc)), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
