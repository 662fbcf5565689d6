package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/pkg/logger"
)

// AuditSink is the durable, append-only audit store
type AuditSink interface {
	Append(ctx context.Context, entry models.AuditEntry) error
}

// FileAuditSinkConfig configures the rotating audit file
type FileAuditSinkConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// FileAuditSink appends one line per entry to a size-rotated text file
type FileAuditSink struct {
	mu  sync.Mutex
	out *lumberjack.Logger
}

// NewFileAuditSink creates a FileAuditSink. The file is opened lazily on first write.
func NewFileAuditSink(cfg FileAuditSinkConfig) *FileAuditSink {
	return &FileAuditSink{
		out: &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			LocalTime:  true,
		},
	}
}

// Append writes entry as a single line
func (s *FileAuditSink) Append(ctx context.Context, entry models.AuditEntry) error {
	line := entry.Line()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.out.Write([]byte(line))
	return err
}

// Close closes the underlying file
func (s *FileAuditSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.Close()
}

// AuditService records accepted submissions with a dual-write pattern (slog + sink)
type AuditService struct {
	sink    AuditSink
	logger  *slog.Logger
	onError func()
}

// NewAuditService creates a new AuditService
func NewAuditService(sink AuditSink, logger *slog.Logger) *AuditService {
	return &AuditService{
		sink:   sink,
		logger: logger,
	}
}

// OnError registers a callback invoked for each failed sink write
func (s *AuditService) OnError(fn func()) {
	s.onError = fn
}

// Record writes entry to the log and the sink. Sink failures are logged and swallowed.
func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	s.logger.InfoContext(ctx, "audit event",
		slog.String("event_type", "contact_submission"),
		slog.String("submission_id", entry.SubmissionID),
		slog.String("email", logger.SanitizedEmail(entry.Email)),
		slog.String("outcome", entry.Outcome),
	)

	if err := s.sink.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit entry",
			slog.String("submission_id", entry.SubmissionID),
			slog.Any("error", err),
		)
		if s.onError != nil {
			s.onError()
		}
	}
}
