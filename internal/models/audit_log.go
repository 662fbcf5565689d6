package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Submission outcomes recorded in the audit trail and metrics.
const (
	OutcomeAccepted     = "accepted"
	OutcomeNotifyFailed = "notify_failed"
)

// AuditEntry is one line of the submission audit trail.
type AuditEntry struct {
	ID           uuid.UUID `db:"id"`
	SubmissionID string    `db:"submission_id"`
	Email        string    `db:"email"`
	IPAddress    string    `db:"ip_address"`
	Outcome      string    `db:"outcome"`
	CreatedAt    time.Time `db:"created_at"`
}

// AuditTimeLayout formats the timestamp prefix of an audit line.
const AuditTimeLayout = "2006-01-02 15:04:05"

// Line renders the entry in the append-only log format.
func (e AuditEntry) Line() string {
	return fmt.Sprintf("%s - Contact form submission from: %s\n", e.CreatedAt.Format(AuditTimeLayout), e.Email)
}
