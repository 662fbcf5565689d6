package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/jordan-wright/email"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/pkg/logger"
)

// SMTPConfig addresses the outgoing mail server
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	SSL      bool // implicit TLS; otherwise STARTTLS is used when offered
}

// SMTPNotifier sends notifications through an SMTP relay
type SMTPNotifier struct {
	cfg    SMTPConfig
	send   func(e *email.Email) error
	logger *slog.Logger
}

// NewSMTPNotifier creates an SMTP notifier
func NewSMTPNotifier(cfg SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	n := &SMTPNotifier{cfg: cfg, logger: logger}
	n.send = n.deliver
	return n
}

// Notify sends n as a plain text email
func (s *SMTPNotifier) Notify(ctx context.Context, n models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := email.NewEmail()
	e.From = n.SenderDisplay
	e.To = []string{n.Recipient}
	if n.ReplyTo != "" {
		e.ReplyTo = []string{n.ReplyTo}
	}
	e.Subject = n.Subject
	e.Text = []byte(n.Body)

	if err := s.send(e); err != nil {
		s.logger.Error("failed to send notification via SMTP",
			slog.String("host", s.cfg.Host),
			slog.String("reply_to", logger.SanitizedEmail(n.ReplyTo)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("notification sent", slog.String("transport", "smtp"))
	return nil
}

func (s *SMTPNotifier) deliver(e *email.Email) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.User != "" {
		auth = smtp.PlainAuth("", s.cfg.User, s.cfg.Password, s.cfg.Host)
	}

	if s.cfg.SSL {
		return e.SendWithTLS(addr, auth, &tls.Config{ServerName: s.cfg.Host})
	}
	return e.Send(addr, auth)
}
