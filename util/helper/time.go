package helper_util

import (
	"fmt"
	"time"
)

func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// ParseRange reads an RFC3339 window. An empty to means now; an empty from
// means window before to.
func ParseRange(from, to string, window time.Duration, now time.Time) (time.Time, time.Time, error) {
	end := now
	if to != "" {
		t, err := ParseTime(to)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
		}
		end = t
	}
	start := end.Add(-window)
	if from != "" {
		t, err := ParseTime(from)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
		}
		start = t
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("from is after to")
	}
	return start, end, nil
}
