package spam

import (
	"strconv"
	"strings"
	"time"
)

// Default bounds for the time between rendering and submitting the form.
const (
	DefaultMinFillTime = 3 * time.Second
	DefaultMaxFillTime = time.Hour
)

// TimingWindow bounds how long filling in the form may take.
type TimingWindow struct {
	Min time.Duration
	Max time.Duration
}

// DefaultTimingWindow returns the 3s..1h window.
func DefaultTimingWindow() TimingWindow {
	return TimingWindow{Min: DefaultMinFillTime, Max: DefaultMaxFillTime}
}

// ParseFormStart parses the epoch-seconds value rendered into the form.
// ok is false when the value is missing or not an integer.
func ParseFormStart(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// Valid reports whether now-start lies within the window, bounds inclusive.
// Elapsed time is measured in whole seconds, matching the resolution of the form field.
func (w TimingWindow) Valid(start, now time.Time) bool {
	elapsed := time.Duration(now.Unix()-start.Unix()) * time.Second
	return elapsed >= w.Min && elapsed <= w.Max
}

// IsValidTiming checks a raw form_start_time value against the default window.
func IsValidTiming(formStartTime string, now time.Time) bool {
	start, ok := ParseFormStart(formStartTime)
	if !ok {
		return false
	}
	return DefaultTimingWindow().Valid(start, now)
}
