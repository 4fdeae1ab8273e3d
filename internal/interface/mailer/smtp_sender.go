package mailer

import (
	"context"
	"fmt"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/pkg/logger"

	"github.com/wneessen/go-mail"
)

// SMTPSettings holds the SMTP server credentials
type SMTPSettings struct {
	Host     string
	Port     int
	Login    string
	Password string
	Timeout  time.Duration
}

// SMTPMailRepository sends email over SMTP with implicit TLS
type SMTPMailRepository struct {
	settings SMTPSettings
	logger   logger.Logger
}

// NewSMTPMailRepository creates a new SMTP mail repository
func NewSMTPMailRepository(settings SMTPSettings, logger logger.Logger) repository.MailRepository {
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	return &SMTPMailRepository{
		settings: settings,
		logger:   logger,
	}
}

// MissingCredentials lists unset SMTP credentials
func (r *SMTPMailRepository) MissingCredentials() []string {
	var missing []string
	if r.settings.Host == "" {
		missing = append(missing, "EMAIL_HOST")
	}
	if r.settings.Login == "" {
		missing = append(missing, "EMAIL_LOGIN")
	}
	if r.settings.Password == "" {
		missing = append(missing, "EMAIL_PASSWORD")
	}
	return missing
}

// Send delivers one message to all its recipients
func (r *SMTPMailRepository) Send(ctx context.Context, message *entity.EmailMessage) error {
	msg, err := buildMessage(message)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(r.settings.Host,
		mail.WithPort(r.settings.Port),
		mail.WithSSL(),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(r.settings.Login),
		mail.WithPassword(r.settings.Password),
		mail.WithTimeout(r.settings.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", r.settings.Host, err)
	}

	r.logger.Info("Email sent", "transport", "smtp", "recipients", len(message.To))
	return nil
}

// buildMessage renders the domain message as a plain-text MIME message
func buildMessage(message *entity.EmailMessage) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(message.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", message.From, err)
	}
	if err := msg.To(message.To...); err != nil {
		return nil, fmt.Errorf("invalid recipients: %w", err)
	}
	msg.Subject(message.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, message.Body)
	return msg, nil
}
