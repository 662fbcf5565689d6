package models

import "time"

// RateLimitRecord counts submissions from one IP within a window.
type RateLimitRecord struct {
	IP           string    `json:"-" db:"ip_address"`
	Count        int       `json:"count" db:"count"`
	FirstAttempt time.Time `json:"-" db:"first_attempt"`
}

// Expired reports whether the window has elapsed since the first attempt.
func (r RateLimitRecord) Expired(now time.Time, window time.Duration) bool {
	return now.Sub(r.FirstAttempt) > window
}
