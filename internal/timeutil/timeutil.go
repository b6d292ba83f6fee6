// Package timeutil holds the calendar-date and timestamp helpers
// shared by the store, the analytics engine, and the server.
//
// Calendar dates are "YYYY-MM-DD" strings. In memory they are
// represented as midnight UTC so that day arithmetic never
// crosses a DST boundary.
package timeutil

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// legacyLayouts are naive timestamp layouts written by older
// versions of the data file. They carry no offset and are
// interpreted in the configured location.
var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// Ptr returns a pointer to the RFC3339 representation of t, or
// nil for the zero time.
func Ptr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := Format(t)
	return &s
}

// Format returns t as RFC3339 with its own offset, or "" for
// the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

// Civil truncates t to its calendar date in t's location and
// returns that date at midnight UTC.
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "YYYY-MM-DD" date.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsValidDate reports whether s is a well-formed calendar date.
func IsValidDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

// DateString formats a civil date.
func DateString(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays shifts a civil date by n days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween returns the number of calendar days from a to b.
// Both must be civil dates.
func DaysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}

// ParseTimestamp parses an RFC3339 timestamp, falling back to
// the legacy naive layouts interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateOf returns the calendar-date prefix of a timestamp, or ""
// when s is too short to carry one.
func DateOf(s string) string {
	if len(s) < len(DateLayout) {
		return ""
	}
	return s[:len(DateLayout)]
}

// Hour returns the hour-of-day of a timestamp in loc.
func Hour(s string, loc *time.Location) (int, bool) {
	t, ok := ParseTimestamp(s, loc)
	if !ok {
		return 0, false
	}
	return t.Hour(), true
}

// MondayOf returns the Monday on or before the civil date t.
func MondayOf(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	return t.AddDate(0, 0, -(wd - 1))
}

// WeekdayName returns the English weekday name for t.
func WeekdayName(t time.Time) string {
	return t.Weekday().String()
}

// ParseClock parses an "HH:MM" time of day.
func ParseClock(s string) (hour, minute int, ok bool) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, false
	}
	return t.Hour(), t.Minute(), true
}
