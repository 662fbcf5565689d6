package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/kontakt/internal/database"
	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditLogRepository stores the submission audit trail in Postgres
type AuditLogRepository struct {
	pool *pgxpool.Pool
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{pool: db.Pool}
}

// Append inserts an audit entry. A zero ID is replaced by a new UUID.
func (r *AuditLogRepository) Append(ctx context.Context, entry models.AuditEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO contact_audit_log (id, submission_id, email, ip_address, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.SubmissionID, entry.Email,
		entry.IPAddress, entry.Outcome, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", database.MapPostgresError(err))
	}

	return nil
}
