package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/kontakt/internal/auth"
	"github.com/BradenHooton/kontakt/internal/metrics"
	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/internal/ratelimit"
	"github.com/BradenHooton/kontakt/internal/services"
	"github.com/BradenHooton/kontakt/internal/session"
	"github.com/BradenHooton/kontakt/internal/spam"
)

const testIP = "203.0.113.7"

type pipeline struct {
	service  *services.ContactService
	issuer   *auth.TokenIssuer
	counters *ratelimit.MemoryStore
	notifier *services.MockNotifier
	sink     *services.MockAuditSink
	metrics  *metrics.Metrics
	now      time.Time
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	p := &pipeline{
		issuer:   auth.NewTokenIssuer(),
		counters: ratelimit.NewMemoryStore(),
		notifier: &services.MockNotifier{},
		sink:     &services.MockAuditSink{},
		metrics:  metrics.New(prometheus.NewRegistry()),
		now:      time.Date(2024, 5, 6, 10, 30, 0, 0, time.UTC),
	}
	p.counters.SetClock(func() time.Time { return p.now })

	cfg := services.ContactConfig{
		Notification: services.NotificationConfig{
			Recipient: "praxis@example.com",
			From:      "noreply@example.com",
			FromName:  "Praxis Website",
		},
		Redirect:        "thank-you.html",
		RateLimitMax:    3,
		RateLimitWindow: time.Hour,
		Timing:          spam.DefaultTimingWindow(),
	}

	p.service = services.NewContactService(
		p.counters,
		p.issuer,
		spam.NewFilter(),
		p.notifier,
		services.NewAuditService(p.sink, logger),
		cfg,
		logger,
	)
	p.service.SetMetrics(p.metrics)
	p.service.SetClock(func() time.Time { return p.now })
	return p
}

// validInput returns a submission that passes every gate for sess
func (p *pipeline) validInput(t *testing.T, sess *session.Session) models.SubmissionInput {
	t.Helper()
	token, err := p.issuer.IssueToken(sess)
	require.NoError(t, err)

	return models.SubmissionInput{
		FirstName:     "Max",
		LastName:      "Mustermann",
		Email:         "max@example.com",
		Message:       "Ich hätte gerne einen Termin nächste Woche.",
		FormStartTime: strconv.FormatInt(p.now.Add(-10*time.Second).Unix(), 10),
		CSRFToken:     token.Value,
	}
}

func rejection(t *testing.T, err error) *models.RejectionError {
	t.Helper()
	var rej *models.RejectionError
	require.True(t, errors.As(err, &rej), "expected RejectionError, got %v", err)
	return rej
}

func TestContactService_Submit_Success(t *testing.T) {
	p := newPipeline(t)
	sess := session.New(time.Hour)

	result, err := p.service.Submit(context.Background(), sess, testIP, p.validInput(t, sess))
	require.NoError(t, err)

	assert.Equal(t, models.MsgSuccess, result.Message)
	assert.Equal(t, "thank-you.html", result.Redirect)
	assert.NotEmpty(t, result.ID)

	require.Equal(t, 1, p.notifier.Calls())
	sent := p.notifier.Sent[0]
	assert.Equal(t, "praxis@example.com", sent.Recipient)
	assert.Equal(t, "Neue Kontaktanfrage von der Website - Max Mustermann", sent.Subject)
	assert.Equal(t, "max@example.com", sent.ReplyTo)
	assert.Equal(t, "Praxis Website <noreply@example.com>", sent.SenderDisplay)
	assert.Contains(t, sent.Body, "Datum: 06.05.2024 10:30:00")

	require.Equal(t, 1, p.sink.Len())
	entry := p.sink.Entries[0]
	assert.Equal(t, "max@example.com", entry.Email)
	assert.Equal(t, models.OutcomeAccepted, entry.Outcome)
	assert.Equal(t, result.ID, entry.SubmissionID)
	assert.Equal(t, "2024-05-06 10:30:00 - Contact form submission from: max@example.com\n", entry.Line())

	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.Submissions.WithLabelValues(models.OutcomeAccepted)))
}

func TestContactService_Submit_Gates(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(p *pipeline, in *models.SubmissionInput)
		wantKind    error
		wantGate    string
		wantMessage string
	}{
		{
			name:        "missing csrf token",
			mutate:      func(p *pipeline, in *models.SubmissionInput) { in.CSRFToken = "" },
			wantKind:    models.ErrCSRFInvalid,
			wantGate:    services.GateCSRF,
			wantMessage: models.MsgCSRFInvalid,
		},
		{
			name:        "wrong csrf token",
			mutate:      func(p *pipeline, in *models.SubmissionInput) { in.CSRFToken = "forged" },
			wantKind:    models.ErrCSRFInvalid,
			wantGate:    services.GateCSRF,
			wantMessage: models.MsgCSRFInvalid,
		},
		{
			name:        "honeypot filled",
			mutate:      func(p *pipeline, in *models.SubmissionInput) { in.Honeypot = "http://spam.example" },
			wantKind:    models.ErrSpamSuspected,
			wantGate:    services.GateHoneypot,
			wantMessage: models.MsgSpamDetected,
		},
		{
			name: "too fast",
			mutate: func(p *pipeline, in *models.SubmissionInput) {
				in.FormStartTime = strconv.FormatInt(p.now.Add(-time.Second).Unix(), 10)
			},
			wantKind:    models.ErrTiming,
			wantGate:    services.GateTiming,
			wantMessage: models.MsgTiming,
		},
		{
			name: "too old",
			mutate: func(p *pipeline, in *models.SubmissionInput) {
				in.FormStartTime = strconv.FormatInt(p.now.Add(-2*time.Hour).Unix(), 10)
			},
			wantKind:    models.ErrTiming,
			wantGate:    services.GateTiming,
			wantMessage: models.MsgTiming,
		},
		{
			name:        "missing start time",
			mutate:      func(p *pipeline, in *models.SubmissionInput) { in.FormStartTime = "" },
			wantKind:    models.ErrTiming,
			wantGate:    services.GateTiming,
			wantMessage: models.MsgTiming,
		},
		{
			name:        "spam keyword",
			mutate:      func(p *pipeline, in *models.SubmissionInput) { in.Message = "Cheap VIAGRA available today" },
			wantKind:    models.ErrSpamSuspected,
			wantGate:    services.GateSpamContent,
			wantMessage: models.MsgSpamContent,
		},
		{
			name: "too many links",
			mutate: func(p *pipeline, in *models.SubmissionInput) {
				in.Message = "see http://a.example http://b.example https://c.example"
			},
			wantKind:    models.ErrSpamSuspected,
			wantGate:    services.GateSpamContent,
			wantMessage: models.MsgSpamContent,
		},
		{
			name: "aggregated field errors",
			mutate: func(p *pipeline, in *models.SubmissionInput) {
				in.FirstName = ""
				in.Email = "not-an-email"
			},
			wantKind:    models.ErrValidation,
			wantGate:    services.GateValidation,
			wantMessage: models.MsgFirstNameRequired + ", " + models.MsgEmailInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(t)
			sess := session.New(time.Hour)
			input := p.validInput(t, sess)
			tt.mutate(p, &input)

			result, err := p.service.Submit(context.Background(), sess, testIP, input)
			assert.Nil(t, result)

			rej := rejection(t, err)
			assert.ErrorIs(t, err, tt.wantKind)
			assert.Equal(t, tt.wantGate, rej.Gate)
			assert.Equal(t, tt.wantMessage, rej.Message)

			assert.Equal(t, 0, p.notifier.Calls(), "rejected submissions are never delivered")
			assert.Equal(t, 0, p.sink.Len(), "rejected submissions are not audited")
			assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.Submissions.WithLabelValues(tt.wantGate)))
		})
	}
}

func TestContactService_Submit_RateLimit(t *testing.T) {
	p := newPipeline(t)
	sess := session.New(time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := p.service.Submit(ctx, sess, testIP, p.validInput(t, sess))
		require.NoError(t, err, "submission %d", i+1)
	}

	_, err := p.service.Submit(ctx, sess, testIP, p.validInput(t, sess))
	rej := rejection(t, err)
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, models.MsgRateLimited, rej.Message)

	_, err = p.service.Submit(ctx, sess, "198.51.100.4", p.validInput(t, sess))
	assert.NoError(t, err, "other IPs are unaffected")

	p.now = p.now.Add(time.Hour + time.Second)
	_, err = p.service.Submit(ctx, sess, testIP, p.validInput(t, sess))
	assert.NoError(t, err, "window elapsed")
}

func TestContactService_Submit_RateLimitCountsRejectedSubmissions(t *testing.T) {
	p := newPipeline(t)
	sess := session.New(time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		input := p.validInput(t, sess)
		input.Honeypot = "bot"
		_, err := p.service.Submit(ctx, sess, testIP, input)
		require.ErrorIs(t, err, models.ErrSpamSuspected)
	}

	_, err := p.service.Submit(ctx, sess, testIP, p.validInput(t, sess))
	assert.ErrorIs(t, err, models.ErrRateLimited)
}

func TestContactService_Submit_CounterStoreFailureFailsOpen(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	notifier := &services.MockNotifier{}
	sink := &services.MockAuditSink{}
	m := metrics.New(prometheus.NewRegistry())
	now := time.Now()

	svc := services.NewContactService(
		&services.MockCounterStore{
			CheckAndIncrementFunc: func(ctx context.Context, ip string, max int, window time.Duration) (bool, error) {
				return false, errors.New("disk full")
			},
		},
		&services.MockTokenValidator{},
		spam.NewFilter(),
		notifier,
		services.NewAuditService(sink, logger),
		services.ContactConfig{RateLimitMax: 3, RateLimitWindow: time.Hour, Timing: spam.DefaultTimingWindow()},
		logger,
	)
	svc.SetMetrics(m)
	svc.SetClock(func() time.Time { return now })

	_, err := svc.Submit(context.Background(), session.New(time.Hour), testIP, models.SubmissionInput{
		FirstName:     "Erika",
		LastName:      "Musterfrau",
		Email:         "erika@example.com",
		Message:       "Bitte um Rückruf wegen Rezept.",
		FormStartTime: strconv.FormatInt(now.Add(-30*time.Second).Unix(), 10),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, notifier.Calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterStoreErrors))
}

func TestContactService_Submit_NotifyFailure(t *testing.T) {
	p := newPipeline(t)
	p.notifier.NotifyFunc = func(ctx context.Context, n models.Notification) error {
		return errors.New("connection refused")
	}
	sess := session.New(time.Hour)

	result, err := p.service.Submit(context.Background(), sess, testIP, p.validInput(t, sess))
	assert.Nil(t, result)

	rej := rejection(t, err)
	assert.ErrorIs(t, err, models.ErrNotifyFailed)
	assert.Equal(t, models.MsgNotifyFailed, rej.Message)
	assert.Equal(t, 1, p.notifier.Calls(), "delivery is not retried")

	require.Equal(t, 1, p.sink.Len(), "audit line is written regardless of delivery")
	assert.Equal(t, models.OutcomeNotifyFailed, p.sink.Entries[0].Outcome)
}

func TestContactService_Submit_AuditFailureIsSwallowed(t *testing.T) {
	p := newPipeline(t)
	p.sink.AppendFunc = func(ctx context.Context, entry models.AuditEntry) error {
		return errors.New("read-only file system")
	}
	sess := session.New(time.Hour)

	result, err := p.service.Submit(context.Background(), sess, testIP, p.validInput(t, sess))
	require.NoError(t, err)
	assert.Equal(t, models.MsgSuccess, result.Message)
}

func TestContactService_Submit_SanitizesBeforeDelivery(t *testing.T) {
	p := newPipeline(t)
	sess := session.New(time.Hour)
	input := p.validInput(t, sess)
	input.FirstName = "  <b>Max</b> "
	input.Message = "<script>alert(1)</script>Termin bitte am Montag & Dienstag"

	_, err := p.service.Submit(context.Background(), sess, testIP, input)
	require.NoError(t, err)

	sent := p.notifier.Sent[0]
	assert.Equal(t, "Neue Kontaktanfrage von der Website - Max Mustermann", sent.Subject)
	assert.NotContains(t, sent.Body, "<script>")
	assert.Contains(t, sent.Body, "Montag &amp; Dienstag")
}

func TestContactService_Submit_ValidationListsAllErrors(t *testing.T) {
	p := newPipeline(t)
	sess := session.New(time.Hour)
	input := p.validInput(t, sess)
	input.FirstName = "M"
	input.LastName = ""
	input.Email = ""
	input.Message = "kurz"

	_, err := p.service.Submit(context.Background(), sess, testIP, input)
	rej := rejection(t, err)

	parts := strings.Split(rej.Message, ", ")
	assert.Equal(t, []string{
		models.MsgFirstNameRequired,
		models.MsgLastNameRequired,
		models.MsgEmailRequired,
		models.MsgMessageRequired,
	}, parts)
}
