package schedule

import (
	"errors"
	"fmt"
	"time"
)

// The store historically wrote calendar days at two different instants:
// midnight UTC (old records) and noon UTC (current convention). Every write
// path goes through NormalizeDay so new rows share one canonical instant,
// and every read path matches by DayRange so old rows still resolve.

var ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

// ParseDay parses "YYYY-MM-DD" into the canonical noon-UTC instant.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC), nil
}

// NormalizeDay maps any instant within a calendar day to that day's
// canonical noon-UTC instant. The day is read in UTC.
func NormalizeDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 12, 0, 0, 0, time.UTC)
}

// DayOf maps a wall-clock instant to the canonical instant of its calendar
// day, read in the instant's own location. Every service derives "today"
// through this one function so the booked day never depends on which package
// asked.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, time.UTC)
}

// Today returns the canonical instant for the current local calendar day.
func Today() time.Time {
	return DayOf(time.Now())
}

// DayRange returns the inclusive [start-of-day, end-of-day] UTC bounds used
// to match legacy rows stored at any time of day.
func DayRange(day time.Time) (start, end time.Time) {
	u := day.UTC()
	start = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999000000, time.UTC)
	return start, end
}

// SameDay reports whether two instants fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	return NormalizeDay(a).Equal(NormalizeDay(b))
}

// BeforeDay reports whether a's calendar day is strictly before b's.
func BeforeDay(a, b time.Time) bool {
	return NormalizeDay(a).Before(NormalizeDay(b))
}

// DayString formats the calendar day as "YYYY-MM-DD".
func DayString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
