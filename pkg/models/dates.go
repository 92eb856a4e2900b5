package models

import "time"

// DateLayout is the ISO layout used for flags, CSV and the database.
const DateLayout = "2006-01-02"

// GermanDateLayout is used in user-facing texts (DD.MM.YYYY).
const GermanDateLayout = "02.01.2006"

// Date returns the calendar date y-m-d at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the clock part of t, keeping its calendar date.
func Truncate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Today returns the current calendar date.
func Today() time.Time {
	return Truncate(time.Now())
}

// DayBefore returns the calendar date preceding t.
func DayBefore(t time.Time) time.Time {
	return Truncate(t).AddDate(0, 0, -1)
}

// DayAfter returns the calendar date following t.
func DayAfter(t time.Time) time.Time {
	return Truncate(t).AddDate(0, 0, 1)
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DatePtr returns a pointer to a copy of t.
func DatePtr(t time.Time) *time.Time {
	return &t
}
