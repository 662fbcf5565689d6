package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BradenHooton/kontakt/internal/config"
	"github.com/BradenHooton/kontakt/internal/database"
	"github.com/BradenHooton/kontakt/internal/ratelimit"
	"github.com/BradenHooton/kontakt/internal/repositories"
	"github.com/BradenHooton/kontakt/internal/services"
	"github.com/BradenHooton/kontakt/internal/session"
)

// newCounterStore selects the rate limit backend. db and rdb are non-nil
// whenever the matching backend is configured.
func newCounterStore(cfg *config.Config, db *database.DB, rdb *redis.Client) ratelimit.CounterStore {
	switch cfg.RateLimit.Store {
	case config.CounterStorePostgres:
		return repositories.NewRateLimitRepository(db)
	case config.CounterStoreRedis:
		return ratelimit.NewRedisStore(rdb, "")
	case config.CounterStoreMemory:
		return ratelimit.NewMemoryStore()
	default:
		return ratelimit.NewFileStore(cfg.RateLimit.File)
	}
}

func newSessionStore(cfg *config.Config, rdb *redis.Client) session.Store {
	if cfg.Session.Store == config.SessionStoreRedis {
		return session.NewRedisStore(rdb, "")
	}
	return session.NewMemoryStore(cfg.Session.MaxEntries, cfg.Session.TTL)
}

func newNotifier(cfg *config.Config, logger *slog.Logger) (services.Notifier, error) {
	switch cfg.Mail.Notifier {
	case config.NotifierSES:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		n, err := services.NewSESNotifier(ctx, cfg.Mail.AWSRegion, logger)
		if err != nil {
			return nil, fmt.Errorf("ses notifier: %w", err)
		}
		return n, nil
	default:
		return services.NewSMTPNotifier(services.SMTPConfig{
			Host:     cfg.Mail.SMTPHost,
			Port:     cfg.Mail.SMTPPort,
			User:     cfg.Mail.SMTPUser,
			Password: cfg.Mail.SMTPPassword,
			SSL:      cfg.Mail.SMTPSSL,
		}, logger), nil
	}
}

// newAuditSink returns the configured sink and a function releasing it.
func newAuditSink(cfg *config.Config, db *database.DB) (services.AuditSink, func()) {
	if cfg.Audit.Sink == config.AuditSinkPostgres {
		return repositories.NewAuditLogRepository(db), func() {}
	}

	sink := services.NewFileAuditSink(services.FileAuditSinkConfig{
		Path:       cfg.Audit.File,
		MaxSizeMB:  cfg.Audit.MaxSizeMB,
		MaxBackups: cfg.Audit.MaxBackups,
	})
	return sink, func() { _ = sink.Close() }
}
