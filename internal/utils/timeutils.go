package utils

import (
	"fmt"
	"strings"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error. Fractional
// seconds are accepted.
func ParseRFC3339(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// WindowStart returns the start of a rolling window of length d ending at now.
func WindowStart(now time.Time, d time.Duration) time.Time {
	if d < 0 {
		d = -d
	}
	return now.Add(-d)
}

// MonthIn returns the calendar month of t in loc; a nil loc uses t's own location.
func MonthIn(t time.Time, loc *time.Location) time.Month {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Month()
}
