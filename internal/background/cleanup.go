package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/kontakt/internal/ratelimit"
)

const purgeTimeout = 30 * time.Second

// CleanupManager periodically sweeps expired rate limit records from a counter store
type CleanupManager struct {
	purger   ratelimit.Purger
	window   time.Duration
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	purger ratelimit.Purger,
	window time.Duration,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		purger:   purger,
		window:   window,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task. It blocks until Stop is called or ctx is done.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup removes rate limit records whose window has passed
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	removed, err := cm.purger.PurgeExpired(cleanupCtx, cm.window)
	if err != nil {
		cm.logger.Error("failed to purge expired rate limit records", slog.Any("error", err))
		return
	}

	if removed > 0 {
		cm.logger.Info("rate limit cleanup completed", slog.Int("records_removed", removed))
	}
}

// Stop signals the cleanup manager to stop. It is safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
