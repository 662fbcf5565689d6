package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/BradenHooton/kontakt/internal/auth"
	"github.com/BradenHooton/kontakt/internal/background"
	"github.com/BradenHooton/kontakt/internal/config"
	"github.com/BradenHooton/kontakt/internal/database"
	"github.com/BradenHooton/kontakt/internal/handlers"
	"github.com/BradenHooton/kontakt/internal/metrics"
	middlewareCustom "github.com/BradenHooton/kontakt/internal/middleware"
	"github.com/BradenHooton/kontakt/internal/ratelimit"
	"github.com/BradenHooton/kontakt/internal/routes"
	"github.com/BradenHooton/kontakt/internal/services"
	"github.com/BradenHooton/kontakt/internal/spam"
	pkghttp "github.com/BradenHooton/kontakt/pkg/http"
	pkglogger "github.com/BradenHooton/kontakt/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("counter_store", cfg.RateLimit.Store),
		slog.String("session_store", cfg.Session.Store),
		slog.String("notifier", cfg.Mail.Notifier),
		slog.String("audit_sink", cfg.Audit.Sink),
	)

	health := handlers.NewHealthHandler(logger)

	// Initialize database when a Postgres backend is selected
	var db *database.DB
	if cfg.UsesPostgres() {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(migrateCtx, cfg.Database.DSN(), logger)
		cancel()
		if err != nil {
			logger.Error("failed to apply database migrations", slog.Any("error", err))
			os.Exit(1)
		}

		openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		db, err = database.Open(openCtx, &cfg.Database, logger)
		cancel()
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()
		health.AddCheck("database", db.HealthCheck)
	}

	// Initialize redis when a Redis backend is selected
	var redisClient *redis.Client
	if cfg.UsesRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", slog.Any("error", err))
			os.Exit(1)
		}
		health.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	counters := newCounterStore(cfg, db, redisClient)
	sessions := newSessionStore(cfg, redisClient)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Mail transport behind a circuit breaker
	transport, err := newNotifier(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize notifier", slog.Any("error", err))
		os.Exit(1)
	}
	notifier := services.NewBreakerNotifier(transport, services.BreakerConfig{
		ConsecutiveFailures: cfg.Mail.BreakerFailures,
		OpenTimeout:         cfg.Mail.BreakerTimeout,
	}, logger)

	// Audit trail
	sink, closeSink := newAuditSink(cfg, db)
	defer closeSink()
	auditService := services.NewAuditService(sink, logger)
	auditService.OnError(m.AuditFailed)

	// Initialize services
	issuer := auth.NewTokenIssuer()
	contactService := services.NewContactService(
		counters,
		issuer,
		spam.NewFilter(),
		notifier,
		auditService,
		services.ContactConfig{
			Notification: services.NotificationConfig{
				Recipient: cfg.Contact.Recipient,
				From:      cfg.Mail.From,
				FromName:  cfg.Mail.FromName,
			},
			Redirect:        cfg.Contact.Redirect,
			RateLimitMax:    cfg.RateLimit.Max,
			RateLimitWindow: cfg.RateLimit.Window,
			Timing: spam.TimingWindow{
				Min: cfg.Contact.MinFillTime,
				Max: cfg.Contact.MaxFillTime,
			},
		},
		logger,
	)
	contactService.SetMetrics(m)

	// Initialize handlers
	ipConfig := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	contactHandler := handlers.NewContactHandler(contactService, ipConfig, logger)
	contactHandler.SetObserver(m)
	csrfHandler := handlers.NewCSRFHandler(issuer, logger)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middlewareCustom.Metrics(m))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	opts := routes.Options{
		Session: middlewareCustom.SessionConfig{
			Store:  sessions,
			Tokens: auth.NewSessionTokenManager(cfg.Session.Secret, cfg.Session.TTL),
			Cookie: auth.CookieConfig{
				Domain:   cfg.Session.CookieDomain,
				Secure:   cfg.Server.IsProduction(),
				SameSite: cfg.Session.CookieSameSite,
			},
			Logger: logger,
		},
		RateLimit: middlewareCustom.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.HTTPRequestsPerMin,
			IPConfig:          ipConfig,
		},
	}
	if cfg.Server.MetricsEnabled {
		opts.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	}

	// Register routes
	routes.RegisterRoutes(router, routes.Handlers{
		Contact: contactHandler,
		CSRF:    csrfHandler,
		Health:  health,
	}, opts)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task for stores that keep expired records
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	var cleanupManager *background.CleanupManager
	if purger, ok := counters.(ratelimit.Purger); ok {
		cleanupManager = background.NewCleanupManager(purger, cfg.RateLimit.Window, logger, cfg.RateLimit.CleanupInterval)
		go cleanupManager.Start(cleanupCtx)
	}

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	if cleanupManager != nil {
		cleanupManager.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		return
	}

	logger.Info("server stopped gracefully")
}
