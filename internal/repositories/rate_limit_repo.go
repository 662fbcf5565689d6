package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/kontakt/internal/database"
	"github.com/jackc/pgx/v5"
)

// RateLimitRepository is a Postgres-backed counter store. Each check runs in one
// transaction so concurrent submissions from the same IP are counted exactly.
type RateLimitRepository struct {
	db  *database.DB
	now func() time.Time
}

// NewRateLimitRepository creates a new RateLimitRepository
func NewRateLimitRepository(db *database.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db, now: time.Now}
}

// SetClock overrides the time source.
func (r *RateLimitRepository) SetClock(now func() time.Time) {
	r.now = now
}

// CheckAndIncrement purges every expired window, then opens a new window for ip
// or increments its count while it is below max.
func (r *RateLimitRepository) CheckAndIncrement(ctx context.Context, ip string, max int, window time.Duration) (bool, error) {
	now := r.now().UTC()
	cutoff := now.Add(-window)
	allowed := false

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM rate_limits WHERE first_attempt < $1`,
			cutoff,
		); err != nil {
			return fmt.Errorf("failed to purge expired windows: %w", err)
		}

		query := `
			INSERT INTO rate_limits (ip_address, count, first_attempt)
			VALUES ($1, 1, $2)
			ON CONFLICT (ip_address) DO UPDATE
				SET count = rate_limits.count + 1
				WHERE rate_limits.count < $3
			RETURNING count
		`

		var count int
		err := tx.QueryRow(ctx, query, ip, now, max).Scan(&count)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to increment counter: %w", database.MapPostgresError(err))
		}
		allowed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return allowed, nil
}

// PurgeExpired deletes every record whose window has elapsed
func (r *RateLimitRepository) PurgeExpired(ctx context.Context, window time.Duration) (int, error) {
	cutoff := r.now().UTC().Add(-window)

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM rate_limits WHERE first_attempt < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge rate limits: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
