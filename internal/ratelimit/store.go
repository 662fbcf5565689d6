// Package ratelimit holds the per-IP submission counter stores.
//
// Every store implements the same fixed-window rule: the first submission from an IP
// opens a window, later submissions increment the count until it reaches the maximum,
// and a window older than its duration is dropped before it is read.
package ratelimit

import (
	"context"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
)

// CounterStore decides whether another submission from ip is allowed.
type CounterStore interface {
	CheckAndIncrement(ctx context.Context, ip string, max int, window time.Duration) (bool, error)
}

// Purger is implemented by stores that keep expired records until swept.
type Purger interface {
	PurgeExpired(ctx context.Context, window time.Duration) (int, error)
}

// Clock returns the current time.
type Clock func() time.Time

// checkAndIncrement applies the counting rule to an in-memory snapshot.
// Expired records are removed from the whole map, not just ip.
func checkAndIncrement(records map[string]*models.RateLimitRecord, ip string, max int, window time.Duration, now time.Time) bool {
	purge(records, window, now)

	rec, ok := records[ip]
	switch {
	case !ok:
		records[ip] = &models.RateLimitRecord{IP: ip, Count: 1, FirstAttempt: now}
		return true
	case rec.Count < max:
		rec.Count++
		return true
	default:
		return false
	}
}

func purge(records map[string]*models.RateLimitRecord, window time.Duration, now time.Time) int {
	removed := 0
	for ip, rec := range records {
		if rec.Expired(now, window) {
			delete(records, ip)
			removed++
		}
	}
	return removed
}
