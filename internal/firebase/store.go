package firebase

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gifterest/notifier/internal/notifications"
)

// eventDoc is the stored shape of a root_special_events document.
type eventDoc struct {
	UID          string `firestore:"uid"`
	FriendName   string `firestore:"friend_name"`
	EventName    string `firestore:"event_name"`
	Gender       string `firestore:"gender"`
	Date         int64  `firestore:"date"` // microseconds since epoch
	OneTimeEvent bool   `firestore:"one_time_event"`
	Month        int    `firestore:"month"`
}

func (d eventDoc) toEvent(id string) notifications.Event {
	return notifications.Event{
		ID:           id,
		UID:          d.UID,
		FriendName:   d.FriendName,
		EventName:    d.EventName,
		Gender:       notifications.ParseGender(d.Gender),
		Date:         d.Date,
		OneTimeEvent: d.OneTimeEvent,
		Month:        d.Month,
	}
}

type userDoc struct {
	Tokens []string `firestore:"tokens"`
}

// Store reads events and device tokens from Firestore.
type Store struct {
	client *firestore.Client
	events string
	users  string
}

// NewStore creates a Store over the named collections.
func NewStore(client *firestore.Client, eventsCollection, usersCollection string) *Store {
	return &Store{client: client, events: eventsCollection, users: usersCollection}
}

// EventsInMonthRange implements notifications.EventStore.
func (s *Store) EventsInMonthRange(ctx context.Context, fromMonth, toMonth int) ([]notifications.Event, error) {
	iter := s.client.Collection(s.events).
		Where("month", ">=", fromMonth).
		Where("month", "<=", toMonth).
		Documents(ctx)
	defer iter.Stop()

	var events []notifications.Event
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", s.events, err)
		}

		var doc eventDoc
		if err := snap.DataTo(&doc); err != nil {
			// A malformed document must not hide the rest of the collection.
			// Keep the id so the dispatcher logs and skips it.
			events = append(events, notifications.Event{ID: snap.Ref.ID})
			continue
		}
		events = append(events, doc.toEvent(snap.Ref.ID))
	}
	return events, nil
}

// DeviceTokens implements notifications.UserStore.
func (s *Store) DeviceTokens(ctx context.Context, uid string) ([]string, error) {
	snap, err := s.client.Collection(s.users).Doc(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, notifications.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", uid, err)
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", uid, err)
	}
	return doc.Tokens, nil
}

// HealthCheck reads at most one event document.
func (s *Store) HealthCheck(ctx context.Context) error {
	iter := s.client.Collection(s.events).Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore: %w", err)
	}
	return nil
}

// Close releases the Firestore client.
func (s *Store) Close() error {
	return s.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}
