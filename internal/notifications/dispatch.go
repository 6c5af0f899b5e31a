package notifications

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
)

const defaultSendTimeout = 10 * time.Second

// Dispatcher runs reminder cycles against a store and a transport. It holds
// no per-cycle state, so one Dispatcher serves concurrent triggers.
type Dispatcher struct {
	events      EventStore
	users       UserStore
	sender      Sender
	loc         *time.Location
	sendTimeout time.Duration
	logger      *slog.Logger
}

// Options tunes a Dispatcher. Zero values fall back to defaults.
type Options struct {
	Location    *time.Location // calendar used for "today"; time.Local if nil
	SendTimeout time.Duration  // upper bound for one transport call
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(events EventStore, users UserStore, sender Sender, opts Options, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	return &Dispatcher{
		events:      events,
		users:       users,
		sender:      sender,
		loc:         opts.Location,
		sendTimeout: opts.SendTimeout,
		logger:      logger,
	}
}

// RunCycle evaluates every candidate event for the day containing now and
// sends the due reminders. Only a failure to read the event store is
// returned; per-event lookup and delivery failures are logged and skipped.
func (d *Dispatcher) RunCycle(ctx context.Context, now time.Time) (CycleResult, error) {
	result := CycleResult{RunID: uuid.NewString()}
	log := d.logger.With("run_id", result.RunID)

	today := Midnight(now.In(d.loc))
	from, to := monthRange(today)
	log.Info("Dispatch cycle started", "today", today.Format(time.DateOnly), "months", fmt.Sprintf("%d-%d", from, to))

	fetched, err := d.events.EventsInMonthRange(ctx, from, to)
	if err != nil {
		return result, fmt.Errorf("fetch events: %w", err)
	}
	result.Fetched = len(fetched)

	events := collect(fetched)
	cache := newTokenCache(d.users)
	notified := make(map[string]bool)

	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			log.Warn("Skipping malformed event", "error", err)
			continue
		}
		if !Eligible(ev, today) {
			continue
		}
		result.Eligible++

		days, ok := DueOffset(EventTime(ev.Date, d.loc), today)
		if !ok {
			continue
		}
		result.Matched++

		tokens, err := cache.resolve(ctx, ev.UID)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				log.Warn("Owner not found", "uid", ev.UID, "event_id", ev.ID)
			} else {
				log.Warn("Owner lookup failed", "uid", ev.UID, "event_id", ev.ID, "error", err)
			}
			continue
		}
		if len(tokens) == 0 {
			log.Debug("Owner has no device tokens", "uid", ev.UID, "event_id", ev.ID)
			continue
		}

		if d.send(ctx, log, ev, days, tokens) {
			result.Sent++
		} else {
			result.Failed++
		}
		if !notified[ev.UID] {
			notified[ev.UID] = true
			result.NotifiedUIDs = append(result.NotifiedUIDs, ev.UID)
		}
	}

	log.Info("Dispatch cycle finished", "summary", result.Summary(), "user_lookups", cache.misses)
	if len(result.NotifiedUIDs) > 0 {
		log.Info("Notifications sent to users", "uids", result.NotifiedUIDs)
	}
	return result, nil
}

// send delivers one reminder. The outcome is reported, never returned, so a
// bad token cannot abort the batch.
func (d *Dispatcher) send(ctx context.Context, log *slog.Logger, ev Event, days int, tokens []string) bool {
	msg := Compose(ev, days)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if err := d.sender.SendMulti(sendCtx, tokens, msg.Title, msg.Body, payload(ev, days)); err != nil {
		log.Warn("Send failed", "uid", ev.UID, "event_id", ev.ID, "days", days, "error", err)
		return false
	}
	log.Debug("Reminder sent", "uid", ev.UID, "event_id", ev.ID, "days", days, "tokens", len(tokens))
	return true
}

// collect de-duplicates by event id (last write wins, first position kept)
// and orders the result by owner uid.
func collect(fetched []Event) []Event {
	index := make(map[string]int, len(fetched))
	events := make([]Event, 0, len(fetched))
	for _, ev := range fetched {
		if i, ok := index[ev.ID]; ok {
			events[i] = ev
			continue
		}
		index[ev.ID] = len(events)
		events = append(events, ev)
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.UID, b.UID)
	})
	return events
}
