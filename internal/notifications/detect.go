package notifications

import "time"

// Matches reports whether eventDate falls exactly offsetDays after today,
// comparing month and day only. Both values are truncated to midnight in
// today's location first.
//
// An event whose stored year is after today's year is not active yet and
// never matches.
func Matches(eventDate, today time.Time, offsetDays int) bool {
	today = Midnight(today)
	eventDate = Midnight(eventDate.In(today.Location()))

	if eventDate.Year() > today.Year() {
		return false
	}

	target := today.AddDate(0, 0, offsetDays)
	return eventDate.Month() == target.Month() && eventDate.Day() == target.Day()
}

// DueOffset returns the first offset in Offsets that matches, so at most one
// reminder fires per event per day.
func DueOffset(eventDate, today time.Time) (int, bool) {
	for _, days := range Offsets {
		if Matches(eventDate, today, days) {
			return days, true
		}
	}
	return 0, false
}

// Eligible reports whether an event is active on today. Recurring events
// always are; one-time events only until their date has passed.
func Eligible(e Event, today time.Time) bool {
	return !e.OneTimeEvent || e.Date >= Midnight(today).UnixMicro()
}
