package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/kontakt/internal/models"
)

func TestSMTPNotifier_Notify_BuildsMessage(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "mail.example", Port: 587}, slog.New(slog.NewJSONHandler(io.Discard, nil)))

	var sent *email.Email
	n.send = func(e *email.Email) error {
		sent = e
		return nil
	}

	err := n.Notify(context.Background(), models.Notification{
		Recipient:     "info@praxis.example",
		Subject:       "Betreff",
		Body:          "Hallo",
		ReplyTo:       "max@example.com",
		SenderDisplay: "Praxis Website <noreply@praxis.example>",
	})
	require.NoError(t, err)

	require.NotNil(t, sent)
	assert.Equal(t, "Praxis Website <noreply@praxis.example>", sent.From)
	assert.Equal(t, []string{"info@praxis.example"}, sent.To)
	assert.Equal(t, []string{"max@example.com"}, sent.ReplyTo)
	assert.Equal(t, "Betreff", sent.Subject)
	assert.Equal(t, []byte("Hallo"), sent.Text)
	assert.Empty(t, sent.HTML)
}

func TestSMTPNotifier_Notify_SendError(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "mail.example", Port: 587}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	n.send = func(e *email.Email) error { return errors.New("dial tcp: connection refused") }

	err := n.Notify(context.Background(), models.Notification{Recipient: "info@praxis.example"})
	assert.Error(t, err)
}

func TestSMTPNotifier_Notify_CancelledContext(t *testing.T) {
	n := NewSMTPNotifier(SMTPConfig{Host: "mail.example", Port: 587}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	called := false
	n.send = func(e *email.Email) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := n.Notify(ctx, models.Notification{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
