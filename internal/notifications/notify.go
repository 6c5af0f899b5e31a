// Package notifications decides which calendar events are due for a reminder
// today and pushes one notification per due event to the owner's devices.
//
// Pipeline: fetch events by month window → keep active events → match
// 30/14/7/0 day offsets → resolve device tokens → compose → send.
// Each HTTP trigger runs exactly one cycle; nothing survives between cycles.
package notifications

import (
	"errors"
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Offsets are the reminder milestones in days, in evaluation order. The first
// offset that matches an event wins.
var Offsets = []int{30, 14, 7, 0}

// monthWindow is how many months past the current one the store prefilter
// includes. The matcher re-checks every candidate precisely.
const monthWindow = 2

// fcmMulticastLimit is the maximum number of tokens per multicast request.
const fcmMulticastLimit = 500

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrUserNotFound is returned by a UserStore when the uid has no record.
	ErrUserNotFound = errors.New("user not found")

	// ErrNoTokens is returned by senders asked to deliver to nobody.
	ErrNoTokens = errors.New("no tokens to send to")
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Gender selects the pronoun used in reminder bodies.
type Gender string

const (
	GenderUnknown Gender = ""
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
)

// ParseGender maps a stored value onto a Gender. Anything unrecognised is
// GenderUnknown.
func ParseGender(s string) Gender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "man", "boy":
		return GenderMale
	case "female", "f", "woman", "girl":
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Pronoun returns the object pronoun for the gender.
func (g Gender) Pronoun() string {
	switch g {
	case GenderMale:
		return "him"
	case GenderFemale:
		return "her"
	default:
		return "them"
	}
}

// Event is a calendar-anchored reminder owned by a user.
type Event struct {
	ID           string
	UID          string // owner, key into the user store
	FriendName   string
	EventName    string
	Gender       Gender
	Date         int64 // microseconds since the Unix epoch
	OneTimeEvent bool
	Month        int // 0-11, store-side prefilter only
}

// Validate reports whether the event carries enough data to be matched and
// delivered.
func (e Event) Validate() error {
	if e.UID == "" {
		return fmt.Errorf("event %q: missing uid", e.ID)
	}
	if e.Date == 0 {
		return fmt.Errorf("event %q: missing date", e.ID)
	}
	return nil
}

// Message is the composed title/body pair for one notification.
type Message struct {
	Title string
	Body  string
}

// CycleResult summarises one dispatch cycle.
type CycleResult struct {
	RunID        string
	Fetched      int
	Eligible     int
	Matched      int
	Sent         int
	Failed       int
	NotifiedUIDs []string
}

// Summary returns a human-readable summary.
func (r *CycleResult) Summary() string {
	return fmt.Sprintf("run=%s fetched=%d eligible=%d matched=%d sent=%d failed=%d users=%d",
		r.RunID, r.Fetched, r.Eligible, r.Matched, r.Sent, r.Failed, len(r.NotifiedUIDs))
}
