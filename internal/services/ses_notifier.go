package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/BradenHooton/kontakt/internal/models"
	"github.com/BradenHooton/kontakt/pkg/logger"
)

// SESAPI is the subset of the SES client used for delivery
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier sends notifications using AWS SES
type SESNotifier struct {
	client SESAPI
	logger *slog.Logger
}

// NewSESNotifier loads the default AWS configuration for region and creates an SES notifier
func NewSESNotifier(ctx context.Context, region string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESNotifierWithClient(ses.NewFromConfig(cfg), logger), nil
}

// NewSESNotifierWithClient creates an SES notifier around an existing client
func NewSESNotifierWithClient(client SESAPI, logger *slog.Logger) *SESNotifier {
	return &SESNotifier{
		client: client,
		logger: logger,
	}
}

// Notify sends n as a plain text UTF-8 email
func (s *SESNotifier) Notify(ctx context.Context, n models.Notification) error {
	input := &ses.SendEmailInput{
		Source: aws.String(n.SenderDisplay),
		Destination: &types.Destination{
			ToAddresses: []string{n.Recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(n.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(n.Body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}
	if n.ReplyTo != "" {
		input.ReplyToAddresses = []string{n.ReplyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send notification via SES",
			slog.String("reply_to", logger.SanitizedEmail(n.ReplyTo)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	messageID := ""
	if result != nil && result.MessageId != nil {
		messageID = *result.MessageId
	}
	s.logger.Info("notification sent",
		slog.String("transport", "ses"),
		slog.String("message_id", messageID))

	return nil
}
