package ledger

import "time"

// DateLayout is the wire/storage format for trade and snapshot dates.
const DateLayout = "2006-01-02"

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}
