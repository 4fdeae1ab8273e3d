package repository

import (
	"context"

	"schedule-monitor/internal/domain/entity"
)

// MailRepository defines the interface for delivering email
type MailRepository interface {
	// MissingCredentials lists the names of credentials the transport still needs
	MissingCredentials() []string
	Send(ctx context.Context, message *entity.EmailMessage) error
}
