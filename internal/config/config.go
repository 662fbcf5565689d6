package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Counter store backends
const (
	CounterStoreFile     = "file"
	CounterStoreMemory   = "memory"
	CounterStoreRedis    = "redis"
	CounterStorePostgres = "postgres"
)

// Session store backends
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Notifier transports
const (
	NotifierSES  = "ses"
	NotifierSMTP = "smtp"
)

// Audit sinks
const (
	AuditSinkFile     = "file"
	AuditSinkPostgres = "postgres"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Contact   ContactConfig
	Mail      MailConfig
	Audit     AuditConfig
	Redis     RedisConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MetricsEnabled bool
}

type SessionConfig struct {
	Secret         string
	TTL            time.Duration
	Store          string
	MaxEntries     int
	CookieDomain   string
	CookieSameSite string
}

type RateLimitConfig struct {
	Max                int
	Window             time.Duration
	Store              string
	File               string
	HTTPRequestsPerMin int
	CleanupInterval    time.Duration
}

type ContactConfig struct {
	Recipient   string
	Redirect    string
	MinFillTime time.Duration
	MaxFillTime time.Duration
}

type MailConfig struct {
	From            string
	FromName        string
	Notifier        string
	AWSRegion       string
	SMTPHost        string
	SMTPPort        int
	SMTPUser        string
	SMTPPassword    string
	SMTPSSL         bool
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

type AuditConfig struct {
	Sink       string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	recipient := getEnv("CONTACT_RECIPIENT", "")
	if recipient == "" {
		return nil, fmt.Errorf("CONTACT_RECIPIENT is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "kontakt"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: parseList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Session: SessionConfig{
			Secret:         sessionSecret,
			TTL:            getEnvAsDuration("SESSION_TTL", 24*time.Hour),
			Store:          strings.ToLower(getEnv("SESSION_STORE", SessionStoreMemory)),
			MaxEntries:     getEnvAsInt("SESSION_MAX_ENTRIES", 10000),
			CookieDomain:   getEnv("COOKIE_DOMAIN", ""),
			CookieSameSite: strings.ToLower(getEnv("COOKIE_SAMESITE", "lax")),
		},
		RateLimit: RateLimitConfig{
			Max:                getEnvAsInt("RATE_LIMIT_MAX", 3),
			Window:             getEnvAsDuration("RATE_LIMIT_WINDOW", time.Hour),
			Store:              strings.ToLower(getEnv("COUNTER_STORE", CounterStoreFile)),
			File:               getEnv("RATE_LIMIT_FILE", "rate_limit.json"),
			HTTPRequestsPerMin: getEnvAsInt("HTTP_RATE_LIMIT_PER_MINUTE", 30),
			CleanupInterval:    getEnvAsDuration("COUNTER_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Contact: ContactConfig{
			Recipient:   recipient,
			Redirect:    getEnv("CONTACT_REDIRECT", "thank-you.html"),
			MinFillTime: getEnvAsDuration("FORM_MIN_FILL_TIME", 3*time.Second),
			MaxFillTime: getEnvAsDuration("FORM_MAX_FILL_TIME", time.Hour),
		},
		Mail: MailConfig{
			From:            getEnv("MAIL_FROM", "noreply@localhost"),
			FromName:        getEnv("MAIL_FROM_NAME", "Praxis Website"),
			Notifier:        strings.ToLower(getEnv("NOTIFIER", NotifierSMTP)),
			AWSRegion:       getEnv("AWS_REGION", "eu-central-1"),
			SMTPHost:        getEnv("SMTP_HOST", "localhost"),
			SMTPPort:        getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:        getEnv("SMTP_USER", ""),
			SMTPPassword:    getEnv("SMTP_PASS", ""),
			SMTPSSL:         getEnvAsBool("SMTP_SSL", false),
			BreakerFailures: uint32(getEnvAsInt("NOTIFIER_BREAKER_FAILURES", 5)),
			BreakerTimeout:  getEnvAsDuration("NOTIFIER_BREAKER_TIMEOUT", 30*time.Second),
		},
		Audit: AuditConfig{
			Sink:       strings.ToLower(getEnv("AUDIT_SINK", AuditSinkFile)),
			File:       getEnv("AUDIT_LOG_FILE", "contact_log.txt"),
			MaxSizeMB:  getEnvAsInt("AUDIT_LOG_MAX_SIZE_MB", 10),
			MaxBackups: getEnvAsInt("AUDIT_LOG_MAX_BACKUPS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
	}

	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.RateLimit.Store {
	case CounterStoreFile, CounterStoreMemory, CounterStoreRedis, CounterStorePostgres:
	default:
		return fmt.Errorf("COUNTER_STORE must be one of file, memory, redis, postgres (got %q)", c.RateLimit.Store)
	}
	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreRedis:
	default:
		return fmt.Errorf("SESSION_STORE must be memory or redis (got %q)", c.Session.Store)
	}
	switch c.Mail.Notifier {
	case NotifierSES, NotifierSMTP:
	default:
		return fmt.Errorf("NOTIFIER must be ses or smtp (got %q)", c.Mail.Notifier)
	}
	switch c.Audit.Sink {
	case AuditSinkFile, AuditSinkPostgres:
	default:
		return fmt.Errorf("AUDIT_SINK must be file or postgres (got %q)", c.Audit.Sink)
	}

	if c.RateLimit.Max < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.Contact.MinFillTime > c.Contact.MaxFillTime {
		return fmt.Errorf("FORM_MIN_FILL_TIME must not exceed FORM_MAX_FILL_TIME")
	}

	if c.UsesPostgres() && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required when a postgres backend is configured")
	}
	return nil
}

// UsesPostgres reports whether any component is backed by Postgres
func (c *Config) UsesPostgres() bool {
	return c.RateLimit.Store == CounterStorePostgres || c.Audit.Sink == AuditSinkPostgres
}

// UsesRedis reports whether any component is backed by Redis
func (c *Config) UsesRedis() bool {
	return c.RateLimit.Store == CounterStoreRedis || c.Session.Store == SessionStoreRedis
}

// IsProduction reports whether ENV is production
func (c *ServerConfig) IsProduction() bool {
	return c.Env == "production"
}

// validateSessionSecret enforces minimum security standards for the session signing key
func validateSessionSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	items := strings.Split(raw, ",")
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return parseList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
