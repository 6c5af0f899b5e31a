package notifications

import "time"

// Clock abstracts time.Now() so cycles can be replayed for a fixed day.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock time.Time

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return time.Time(c)
}

// Midnight strips the time of day from t, keeping its location.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EventTime converts a stored microsecond epoch value to a time in loc.
func EventTime(micros int64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMicro(micros).In(loc)
}

// monthRange returns the inclusive 0-based month window queried for today.
func monthRange(today time.Time) (from, to int) {
	from = int(today.Month()) - 1
	return from, from + monthWindow
}
