package usecase

import (
	"context"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/pkg/logger"
	"schedule-monitor/pkg/metrics"
)

// RetentionCleaner removes schedules and reservations that can no longer change
type RetentionCleaner struct {
	scheduleRepo repository.ScheduleRepository
	metrics      *metrics.Metrics
	logger       logger.Logger
}

// NewRetentionCleaner creates a new retention cleaner
func NewRetentionCleaner(scheduleRepo repository.ScheduleRepository, metrics *metrics.Metrics, logger logger.Logger) *RetentionCleaner {
	return &RetentionCleaner{
		scheduleRepo: scheduleRepo,
		metrics:      metrics,
		logger:       logger,
	}
}

// Run keeps today's and future schedules, dropping older ones with their
// reservations, and drops reservations that already started before now
func (c *RetentionCleaner) Run(ctx context.Context, now time.Time) (entity.PurgeResult, error) {
	today := entity.ScheduleDate(now)

	result, err := c.scheduleRepo.PurgeBefore(ctx, today, now)
	if err != nil {
		c.logger.Error("Failed to remove old schedules", "before", today, "error", err)
		return entity.PurgeResult{}, err
	}

	c.metrics.ReservationsPurged.Add(float64(result.Reservations))
	c.logger.Info("Removed old schedule entries",
		"before", today,
		"schedules", result.Schedules,
		"reservations", result.Reservations)

	return result, nil
}
