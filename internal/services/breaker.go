package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/BradenHooton/kontakt/internal/models"
)

// ErrNotifierUnavailable is returned while the breaker is open
var ErrNotifierUnavailable = errors.New("notifier unavailable")

// BreakerConfig configures the notifier circuit breaker
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// BreakerNotifier stops calling a failing mail transport for a while.
// Submissions are never retried or queued; an open breaker fails them immediately.
type BreakerNotifier struct {
	next Notifier
	cb   *gobreaker.CircuitBreaker[struct{}]
}

// NewBreakerNotifier wraps next with a circuit breaker
func NewBreakerNotifier(next Notifier, cfg BreakerConfig, logger *slog.Logger) *BreakerNotifier {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "notifier",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// A cancelled request says nothing about the transport.
			return err == nil || errors.Is(err, context.Canceled)
		},
	}

	return &BreakerNotifier{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

// Notify delivers n unless the breaker is open
func (b *BreakerNotifier) Notify(ctx context.Context, n models.Notification) error {
	_, err := b.cb.Execute(func() (struct{}, error) {
		return struct{}{}, b.next.Notify(ctx, n)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrNotifierUnavailable
	}
	return err
}

// State reports the breaker state, e.g. for health output
func (b *BreakerNotifier) State() string {
	return b.cb.State().String()
}
