package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/pkg/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailCredentials holds the OAuth client and refresh token of the sending account
type GmailCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// GmailMailRepository sends email through the Gmail API
type GmailMailRepository struct {
	credentials GmailCredentials
	tokenSource oauth2.TokenSource
	logger      logger.Logger
	options     []option.ClientOption
}

// NewGmailMailRepository creates a new Gmail mail repository.
// Extra client options are appended after the token source.
func NewGmailMailRepository(credentials GmailCredentials, tokenSource oauth2.TokenSource, logger logger.Logger, opts ...option.ClientOption) repository.MailRepository {
	return &GmailMailRepository{
		credentials: credentials,
		tokenSource: tokenSource,
		logger:      logger,
		options:     opts,
	}
}

// MissingCredentials lists unset OAuth credentials
func (r *GmailMailRepository) MissingCredentials() []string {
	var missing []string
	if r.credentials.ClientID == "" {
		missing = append(missing, "GMAIL_CLIENT_ID")
	}
	if r.credentials.ClientSecret == "" {
		missing = append(missing, "GMAIL_CLIENT_SECRET")
	}
	if r.credentials.RefreshToken == "" {
		missing = append(missing, "GMAIL_REFRESH_TOKEN")
	}
	return missing
}

// Send uploads the rendered message with users.messages.send
func (r *GmailMailRepository) Send(ctx context.Context, message *entity.EmailMessage) error {
	msg, err := buildMessage(message)
	if err != nil {
		return err
	}

	var raw bytes.Buffer
	if _, err := msg.WriteTo(&raw); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	opts := append([]option.ClientOption{option.WithTokenSource(r.tokenSource)}, r.options...)
	service, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create gmail service: %w", err)
	}

	sent, err := service.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw.Bytes()),
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send email via gmail: %w", err)
	}

	r.logger.Info("Email sent",
		"transport", "gmail",
		"messageId", sent.Id,
		"recipients", len(message.To))
	return nil
}
