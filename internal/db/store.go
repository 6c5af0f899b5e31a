package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gifterest/notifier/internal/notifications"
)

// querier is the part of the pool the store needs.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads events and device tokens from Postgres.
type Store struct {
	q querier
}

// NewStore creates a Store backed by pool.
func NewStore(pool *Pool) *Store {
	return &Store{q: pool}
}

// eventRow mirrors one special_events row.
type eventRow struct {
	ID           string
	UID          string
	FriendName   string
	EventName    string
	Gender       string
	DateMicros   int64
	OneTimeEvent bool
	Month        int16
}

func (r eventRow) toEvent() notifications.Event {
	return notifications.Event{
		ID:           r.ID,
		UID:          r.UID,
		FriendName:   r.FriendName,
		EventName:    r.EventName,
		Gender:       notifications.ParseGender(r.Gender),
		Date:         r.DateMicros,
		OneTimeEvent: r.OneTimeEvent,
		Month:        int(r.Month),
	}
}

// EventsInMonthRange implements notifications.EventStore.
func (s *Store) EventsInMonthRange(ctx context.Context, fromMonth, toMonth int) ([]notifications.Event, error) {
	rows, err := s.q.Query(ctx, "events_in_month_range", fromMonth, toMonth)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []notifications.Event
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.ID, &r.UID, &r.FriendName, &r.EventName, &r.Gender,
			&r.DateMicros, &r.OneTimeEvent, &r.Month); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, r.toEvent())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// DeviceTokens implements notifications.UserStore.
func (s *Store) DeviceTokens(ctx context.Context, uid string) ([]string, error) {
	var tokens []string
	err := s.q.QueryRow(ctx, "get_user_device_tokens", uid).Scan(&tokens)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notifications.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query device tokens for %s: %w", uid, err)
	}
	return tokens, nil
}

// HealthCheck runs the health_check statement.
func (s *Store) HealthCheck(ctx context.Context) error {
	var n int
	return s.q.QueryRow(ctx, "health_check").Scan(&n)
}
