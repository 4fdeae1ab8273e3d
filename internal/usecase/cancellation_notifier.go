package usecase

import (
	"context"
	"fmt"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/pkg/logger"
	"schedule-monitor/pkg/metrics"
	"schedule-monitor/templates"
)

// NotificationSettings describes who receives the digest and how it is rendered
type NotificationSettings struct {
	Recipients []string
	From       string
	Subject    string
	Location   *time.Location
}

// CancellationNotifier emails a digest of cancelled reservations
type CancellationNotifier struct {
	mailRepo repository.MailRepository
	settings NotificationSettings
	metrics  *metrics.Metrics
	logger   logger.Logger
}

// NewCancellationNotifier creates a new cancellation notifier
func NewCancellationNotifier(
	mailRepo repository.MailRepository,
	settings NotificationSettings,
	metrics *metrics.Metrics,
	logger logger.Logger,
) *CancellationNotifier {
	if settings.Subject == "" {
		settings.Subject = templates.DefaultDigestSubject
	}
	if settings.Location == nil {
		settings.Location = time.Local
	}
	return &CancellationNotifier{
		mailRepo: mailRepo,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// Notify sends one digest for all cancellations. Missing credentials, recipients,
// sender or an empty list make it a logged no-op rather than an error.
func (n *CancellationNotifier) Notify(ctx context.Context, cancellations []entity.Reservation) error {
	skip := false
	for _, name := range n.mailRepo.MissingCredentials() {
		n.logger.Error("No credential found for email client", "credential", name)
		skip = true
	}
	if len(n.settings.Recipients) == 0 {
		n.logger.Error("No recipients found for email")
		skip = true
	}
	if n.settings.From == "" {
		n.logger.Error("No sender (contact) found for email")
		skip = true
	}
	if len(cancellations) == 0 {
		n.logger.Info("No cancellations found")
		skip = true
	}
	if skip {
		return nil
	}

	message := &entity.EmailMessage{
		From:    n.settings.From,
		To:      n.settings.Recipients,
		Subject: n.settings.Subject,
		Body:    templates.BuildCancellationDigest(cancellations, n.settings.From, n.settings.Location),
	}

	if err := n.mailRepo.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to send cancellation digest: %w", err)
	}

	n.metrics.CancellationsNotified.Add(float64(len(cancellations)))
	n.logger.Info("Cancellation digest sent",
		"cancellations", len(cancellations),
		"recipients", len(n.settings.Recipients))

	return nil
}
