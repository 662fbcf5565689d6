//go:build integration

package repositories_test

import (
	"context"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/kontakt/internal/database"
	"github.com/BradenHooton/kontakt/internal/models"
)

// testDB manages a PostgreSQL testcontainer with migrations applied
type testDB struct {
	Container testcontainers.Container
	Pool      *pgxpool.Pool
	DB        *database.DB
}

func setupTestDatabase(ctx context.Context) (*testDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("kontakt"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	goose.SetLogger(log.New(nil, "", 0))
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := database.MigrateDB(ctx, sqlDB); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &testDB{
		Container: container,
		Pool:      pool,
		DB:        &database.DB{Pool: pool},
	}, nil
}

func (db *testDB) teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

func (db *testDB) cleanupTables(ctx context.Context) error {
	for _, table := range []string{"rate_limits", "contact_audit_log"} {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}

func newTestDB(t *testing.T) *testDB {
	t.Helper()
	ctx := context.Background()

	db, err := setupTestDatabase(ctx)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.teardown(ctx) })
	return db
}

// rateLimitRecord returns the stored counter for ip, or models.ErrNotFound
func (db *testDB) rateLimitRecord(ctx context.Context, ip string) (*models.RateLimitRecord, error) {
	query := `SELECT ip_address, count, first_attempt FROM rate_limits WHERE ip_address = $1`

	var rec models.RateLimitRecord
	err := db.Pool.QueryRow(ctx, query, ip).Scan(&rec.IP, &rec.Count, &rec.FirstAttempt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &rec, nil
}

// auditEntriesSince returns entries created at or after since, newest first
func (db *testDB) auditEntriesSince(ctx context.Context, since time.Time) ([]models.AuditEntry, error) {
	query := `
		SELECT id, submission_id, email, ip_address, outcome, created_at
		FROM contact_audit_log
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`

	rows, err := db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.SubmissionID, &e.Email, &e.IPAddress, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
