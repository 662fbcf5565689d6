package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BradenHooton/kontakt/internal/models"
)

// Notifier delivers a composed notification to the site owner
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// NotificationConfig holds the addressing used for every notification
type NotificationConfig struct {
	Recipient string
	From      string
	FromName  string
}

// SenderDisplay renders the From header, e.g. "Praxis Website <noreply@example.com>"
func (c NotificationConfig) SenderDisplay() string {
	if c.FromName == "" {
		return c.From
	}
	return fmt.Sprintf("%s <%s>", c.FromName, c.From)
}

// Date format used in the notification body
const notificationDateLayout = "02.01.2006 15:04:05"

// ComposeNotification builds the notification for an accepted submission.
// input is expected to be sanitized already.
func ComposeNotification(cfg NotificationConfig, input models.SubmissionInput, now time.Time) models.Notification {
	var body strings.Builder
	body.WriteString("\nNeue Kontaktanfrage von der Praxis-Website\n\n")
	fmt.Fprintf(&body, "Von: %s %s\n", input.FirstName, input.LastName)
	fmt.Fprintf(&body, "E-Mail: %s\n", input.Email)
	fmt.Fprintf(&body, "Datum: %s\n\n", now.Format(notificationDateLayout))
	body.WriteString("Nachricht:\n")
	body.WriteString(input.Message)
	body.WriteString("\n\n---\nDiese E-Mail wurde automatisch von der Praxis-Website gesendet.\n")

	return models.Notification{
		Recipient:     cfg.Recipient,
		Subject:       fmt.Sprintf("Neue Kontaktanfrage von der Website - %s %s", input.FirstName, input.LastName),
		Body:          body.String(),
		ReplyTo:       input.Email,
		SenderDisplay: cfg.SenderDisplay(),
		SentAt:        now,
	}
}
