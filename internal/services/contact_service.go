package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/internal/ratelimit"
	"github.com/BradenHooton/kontakt/internal/session"
	"github.com/BradenHooton/kontakt/internal/spam"
	"github.com/BradenHooton/kontakt/pkg/logger"
)

// Gate names. They double as rejection outcome labels.
const (
	GateMethod      = "method"
	GateRateLimit   = "rate_limit"
	GateCSRF        = "csrf"
	GateHoneypot    = "honeypot"
	GateTiming      = "timing"
	GateSanitize    = "sanitize"
	GateSpamContent = "spam_content"
	GateValidation  = "validation"
	GateNotify      = "notify"
)

// TokenValidator checks the anti-forgery token bound to a session
type TokenValidator interface {
	Validate(sess *session.Session, supplied string) bool
}

// AuditRecorder records the audit trail; it never fails the request
type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

// SubmissionMetrics receives pipeline observations
type SubmissionMetrics interface {
	ObserveSubmission(outcome string)
	ObserveNotification(d time.Duration, err error)
	CounterStoreFailed()
}

// ContactConfig holds the pipeline settings
type ContactConfig struct {
	Notification    NotificationConfig
	Redirect        string
	RateLimitMax    int
	RateLimitWindow time.Duration
	Timing          spam.TimingWindow
}

// ContactService runs a submission through the ordered gate chain and delivers it
type ContactService struct {
	counters ratelimit.CounterStore
	tokens   TokenValidator
	filter   *spam.Filter
	notifier Notifier
	audit    AuditRecorder
	metrics  SubmissionMetrics
	config   ContactConfig
	logger   *slog.Logger
	now      func() time.Time
	gates    []gate
}

// submission is the state carried through the gates
type submission struct {
	sess  *session.Session
	ip    string
	input models.SubmissionInput
	now   time.Time
}

// gate returns nil to pass or a *models.RejectionError to stop the chain
type gate struct {
	name  string
	check func(ctx context.Context, s *submission) error
}

// NewContactService creates a new ContactService
func NewContactService(
	counters ratelimit.CounterStore,
	tokens TokenValidator,
	filter *spam.Filter,
	notifier Notifier,
	audit AuditRecorder,
	config ContactConfig,
	logger *slog.Logger,
) *ContactService {
	s := &ContactService{
		counters: counters,
		tokens:   tokens,
		filter:   filter,
		notifier: notifier,
		audit:    audit,
		metrics:  noopMetrics{},
		config:   config,
		logger:   logger,
		now:      time.Now,
	}

	s.gates = []gate{
		{GateRateLimit, s.checkRateLimit},
		{GateCSRF, s.checkCSRF},
		{GateHoneypot, s.checkHoneypot},
		{GateTiming, s.checkTiming},
		{GateSanitize, s.sanitize},
		{GateSpamContent, s.checkSpamContent},
		{GateValidation, s.checkFields},
	}
	return s
}

// SetMetrics attaches a metrics sink
func (s *ContactService) SetMetrics(m SubmissionMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// SetClock overrides the time source
func (s *ContactService) SetClock(now func() time.Time) {
	s.now = now
}

// Submit runs gates 2 through 11 for one submission. Rejections are returned as
// *models.RejectionError wrapping one of the pipeline sentinels.
func (s *ContactService) Submit(ctx context.Context, sess *session.Session, ip string, input models.SubmissionInput) (*models.SubmissionResult, error) {
	sub := &submission{
		sess:  sess,
		ip:    ip,
		input: input,
		now:   s.now(),
	}

	for _, g := range s.gates {
		if err := g.check(ctx, sub); err != nil {
			s.metrics.ObserveSubmission(g.name)
			s.logger.WarnContext(ctx, "submission rejected",
				slog.String("gate", g.name),
				slog.String("ip_address", ip),
				slog.String("email", logger.SanitizedEmail(sub.input.Email)),
			)
			return nil, err
		}
	}

	submissionID := uuid.NewString()
	notification := ComposeNotification(s.config.Notification, sub.input, sub.now)

	start := time.Now()
	notifyErr := s.notifier.Notify(ctx, notification)
	s.metrics.ObserveNotification(time.Since(start), notifyErr)

	outcome := models.OutcomeAccepted
	if notifyErr != nil {
		outcome = models.OutcomeNotifyFailed
	}

	s.audit.Record(ctx, models.AuditEntry{
		SubmissionID: submissionID,
		Email:        sub.input.Email,
		IPAddress:    ip,
		Outcome:      outcome,
		CreatedAt:    sub.now,
	})
	s.metrics.ObserveSubmission(outcome)

	if notifyErr != nil {
		s.logger.ErrorContext(ctx, "notification failed",
			slog.String("submission_id", submissionID),
			slog.Any("error", notifyErr),
		)
		return nil, models.Reject(GateNotify, models.ErrNotifyFailed, models.MsgNotifyFailed)
	}

	s.logger.InfoContext(ctx, "submission accepted",
		slog.String("submission_id", submissionID),
		slog.String("email", logger.SanitizedEmail(sub.input.Email)),
	)

	return &models.SubmissionResult{
		ID:       submissionID,
		Message:  models.MsgSuccess,
		Redirect: s.config.Redirect,
	}, nil
}

func (s *ContactService) checkRateLimit(ctx context.Context, sub *submission) error {
	allowed, err := s.counters.CheckAndIncrement(ctx, sub.ip, s.config.RateLimitMax, s.config.RateLimitWindow)
	if err != nil {
		// Fail open for availability - a broken store must not block the form
		s.metrics.CounterStoreFailed()
		s.logger.ErrorContext(ctx, "failed to check rate limit",
			slog.String("ip_address", sub.ip),
			slog.Any("error", err),
		)
		return nil
	}
	if !allowed {
		return models.Reject(GateRateLimit, models.ErrRateLimited, models.MsgRateLimited)
	}
	return nil
}

func (s *ContactService) checkCSRF(ctx context.Context, sub *submission) error {
	if !s.tokens.Validate(sub.sess, sub.input.CSRFToken) {
		return models.Reject(GateCSRF, models.ErrCSRFInvalid, models.MsgCSRFInvalid)
	}
	return nil
}

func (s *ContactService) checkHoneypot(ctx context.Context, sub *submission) error {
	if sub.input.Honeypot != "" {
		return models.Reject(GateHoneypot, models.ErrSpamSuspected, models.MsgSpamDetected)
	}
	return nil
}

func (s *ContactService) checkTiming(ctx context.Context, sub *submission) error {
	start, ok := spam.ParseFormStart(sub.input.FormStartTime)
	if !ok || !s.config.Timing.Valid(start, sub.now) {
		return models.Reject(GateTiming, models.ErrTiming, models.MsgTiming)
	}
	return nil
}

func (s *ContactService) sanitize(ctx context.Context, sub *submission) error {
	sub.input.FirstName = spam.Sanitize(sub.input.FirstName)
	sub.input.LastName = spam.Sanitize(sub.input.LastName)
	sub.input.Email = spam.Sanitize(sub.input.Email)
	sub.input.Message = spam.Sanitize(sub.input.Message)
	return nil
}

func (s *ContactService) checkSpamContent(ctx context.Context, sub *submission) error {
	content := sub.input.FirstName + " " + sub.input.LastName + " " + sub.input.Message

	verdict := s.filter.Check(content)
	if verdict.Spam {
		s.logger.InfoContext(ctx, "spam content detected", slog.String("rule", verdict.Rule))
		return models.Reject(GateSpamContent, models.ErrSpamSuspected, models.MsgSpamContent)
	}
	return nil
}

func (s *ContactService) checkFields(ctx context.Context, sub *submission) error {
	if messages := ValidateSubmission(sub.input); len(messages) > 0 {
		return models.Reject(GateValidation, models.ErrValidation, JoinValidationMessages(messages))
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) ObserveSubmission(string)                 {}
func (noopMetrics) ObserveNotification(time.Duration, error) {}
func (noopMetrics) CounterStoreFailed()                      {}
