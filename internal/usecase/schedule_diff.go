package usecase

import (
	"context"
	"errors"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/pkg/logger"
)

// ComputeScheduleDiff compares the parsed reservations of a date with the stored
// schedule. It never mutates its inputs; the caller applies the result.
func ComputeScheduleDiff(date string, stored *entity.Schedule, parsed []entity.Reservation) entity.ScheduleDiff {
	unique := entity.UniqueReservations(parsed)

	if stored == nil {
		return entity.ScheduleDiff{Date: date, Initial: unique}
	}

	parsedKeys := keySet(unique)
	storedKeys := keySet(stored.Reservations)

	diff := entity.ScheduleDiff{
		Date:    date,
		Removed: []entity.Reservation{},
		Added:   []entity.Reservation{},
	}

	for _, r := range stored.Reservations {
		if _, ok := parsedKeys[r.Key()]; !ok {
			diff.Removed = append(diff.Removed, r)
		}
	}

	for _, r := range unique {
		if _, ok := storedKeys[r.Key()]; !ok {
			diff.Added = append(diff.Added, r)
		}
	}

	return diff
}

func keySet(reservations []entity.Reservation) map[entity.ReservationKey]struct{} {
	set := make(map[entity.ReservationKey]struct{}, len(reservations))
	for _, r := range reservations {
		set[r.Key()] = struct{}{}
	}
	return set
}

// dropStarted removes reservations that started before now. Retention deletes
// them from the store, so storing them again would report them as added on
// every run.
func dropStarted(reservations []entity.Reservation, now time.Time) []entity.Reservation {
	if reservations == nil {
		return nil
	}
	kept := make([]entity.Reservation, 0, len(reservations))
	for _, r := range reservations {
		if !r.Start.Before(now) {
			kept = append(kept, r)
		}
	}
	return kept
}

// ScheduleDiffer reconciles parsed reservations with the schedule store
type ScheduleDiffer struct {
	scheduleRepo repository.ScheduleRepository
	locker       repository.DateLocker
	logger       logger.Logger
	now          func() time.Time
}

// NewScheduleDiffer creates a new schedule differ
func NewScheduleDiffer(
	scheduleRepo repository.ScheduleRepository,
	locker repository.DateLocker,
	logger logger.Logger,
) *ScheduleDiffer {
	return &ScheduleDiffer{
		scheduleRepo: scheduleRepo,
		locker:       locker,
		logger:       logger,
		now:          time.Now,
	}
}

// Apply stores parsed as the new truth for date and returns what changed.
// Reservations that already started are never stored or reported as added.
func (d *ScheduleDiffer) Apply(ctx context.Context, date time.Time, parsed []entity.Reservation) (entity.ScheduleDiff, error) {
	key := entity.ScheduleDate(date)
	now := d.now()

	unlock, err := d.locker.Lock(ctx, key)
	if err != nil {
		return entity.ScheduleDiff{}, entity.NewStorageError("lock schedule "+key, err)
	}
	defer unlock()

	diff, err := d.scheduleRepo.UpdateSchedule(ctx, key, func(current *entity.Schedule) entity.ScheduleDiff {
		diff := ComputeScheduleDiff(key, current, parsed)
		diff.Initial = dropStarted(diff.Initial, now)
		diff.Added = dropStarted(diff.Added, now)
		return diff
	})
	if err != nil {
		var storageErr *entity.StorageError
		if !errors.As(err, &storageErr) {
			err = entity.NewStorageError("update schedule "+key, err)
		}
		return entity.ScheduleDiff{}, err
	}

	if diff.IsFirstObservation() {
		d.logger.Info("Created schedule", "date", key, "reservations", len(diff.Initial))
		return diff, nil
	}

	if len(diff.Removed) > 0 || len(diff.Added) > 0 {
		d.logger.Info("Schedule changed",
			"date", key,
			"removed", len(diff.Removed),
			"added", len(diff.Added))
		d.logger.Debug("Schedule changes",
			"date", key,
			"removed", diff.Removed,
			"added", diff.Added)
	}

	return diff, nil
}
