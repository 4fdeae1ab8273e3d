package repository

import (
	"context"
	"time"

	"schedule-monitor/internal/domain/entity"
)

// ReconcileFunc computes the change to apply to the schedule stored for a date.
// current is nil when no schedule exists yet.
type ReconcileFunc func(current *entity.Schedule) entity.ScheduleDiff

// ScheduleRepository defines the interface for schedule storage operations
type ScheduleRepository interface {
	// FindByDate returns the stored schedule for date, or nil when there is none
	FindByDate(ctx context.Context, date string) (*entity.Schedule, error)

	// UpdateSchedule reads the schedule for date, calls reconcile and persists the
	// returned diff as one atomic unit
	UpdateSchedule(ctx context.Context, date string, reconcile ReconcileFunc) (entity.ScheduleDiff, error)

	// PurgeBefore deletes schedules dated before firstKeptDate with their reservations,
	// plus orphaned reservations and reservations starting before startedBefore
	PurgeBefore(ctx context.Context, firstKeptDate string, startedBefore time.Time) (entity.PurgeResult, error)

	Close() error
}
