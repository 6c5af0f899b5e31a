package notifications

import "context"

// EventStore yields candidate events whose stored month lies in the
// inclusive range [fromMonth, toMonth]. Months are 0-based.
type EventStore interface {
	EventsInMonthRange(ctx context.Context, fromMonth, toMonth int) ([]Event, error)
}

// UserStore resolves a user's device tokens. A user without tokens yields an
// empty slice and no error; an unknown user yields ErrUserNotFound.
type UserStore interface {
	DeviceTokens(ctx context.Context, uid string) ([]string, error)
}

// tokenCache remembers the most recently resolved user. Events are sorted by
// uid before the loop, so consecutive events for the same owner cost a
// single lookup. One cache lives for exactly one cycle.
type tokenCache struct {
	users  UserStore
	loaded bool
	uid    string
	tokens []string
	err    error
	misses int
}

func newTokenCache(users UserStore) *tokenCache {
	return &tokenCache{users: users}
}

// resolve returns the cached result for uid or queries the store. Failures
// are cached too, so a broken record is looked up once per run.
func (c *tokenCache) resolve(ctx context.Context, uid string) ([]string, error) {
	if c.loaded && c.uid == uid {
		return c.tokens, c.err
	}
	c.misses++
	c.tokens, c.err = c.users.DeviceTokens(ctx, uid)
	c.uid = uid
	c.loaded = true
	return c.tokens, c.err
}
