package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/pkg/logger"
	"schedule-monitor/pkg/metrics"
)

// JobSettings holds the run parameters of a cancellation check
type JobSettings struct {
	// TimeMin and TimeMax bound, in hours from now, the reservations worth reporting
	TimeMin  float64
	TimeMax  float64
	Filter   entity.PlaneFilter
	Location *time.Location
	DryRun   bool
}

// JobReport summarizes one run
type JobReport struct {
	Result        *entity.RunResult
	Cancellations []entity.Reservation
	Purged        entity.PurgeResult
}

// CancellationJob checks every date up to TimeMax, notifies subscribers about
// cancellations inside the window and prunes old data
type CancellationJob struct {
	monitor  *ScheduleMonitor
	notifier *CancellationNotifier
	cleaner  *RetentionCleaner
	metrics  *metrics.Metrics
	logger   logger.Logger
	settings JobSettings
}

// NewCancellationJob creates a new cancellation job
func NewCancellationJob(
	monitor *ScheduleMonitor,
	notifier *CancellationNotifier,
	cleaner *RetentionCleaner,
	metrics *metrics.Metrics,
	logger logger.Logger,
	settings JobSettings,
) *CancellationJob {
	if settings.Location == nil {
		settings.Location = time.Local
	}
	return &CancellationJob{
		monitor:  monitor,
		notifier: notifier,
		cleaner:  cleaner,
		metrics:  metrics,
		logger:   logger,
		settings: settings,
	}
}

// TargetDates lists every calendar day from now through now+maxHours. A
// non-positive maxHours yields no dates.
func TargetDates(now time.Time, maxHours float64, loc *time.Location) []time.Time {
	if maxHours <= 0 {
		return nil
	}
	now = now.In(loc)
	first := entity.StartOfDay(now)
	last := entity.StartOfDay(now.Add(time.Duration(maxHours * float64(time.Hour))))

	var dates []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// Run performs one complete check. Individual date failures do not fail the
// run; a run where every date failed, a failed notification or a failed
// cleanup is reported as an error after all steps have been attempted.
func (j *CancellationJob) Run(ctx context.Context, now time.Time) (*JobReport, error) {
	started := time.Now()
	defer func() {
		j.metrics.RunDuration.Observe(time.Since(started).Seconds())
	}()

	now = now.In(j.settings.Location)
	dates := TargetDates(now, j.settings.TimeMax, j.settings.Location)
	if len(dates) == 0 {
		err := &entity.ConfigError{Key: "TIME_MAX", Reason: "must be a positive number of hours"}
		j.logger.Error("Nothing to check", "timeMax", j.settings.TimeMax, "error", err)
		return &JobReport{Result: &entity.RunResult{}}, err
	}
	j.logger.Info("Starting cancellation check",
		"from", entity.ScheduleDate(dates[0]),
		"to", entity.ScheduleDate(dates[len(dates)-1]),
		"dryRun", j.settings.DryRun)

	result := j.monitor.Run(ctx, dates, j.settings.Filter)

	window := entity.NewNotificationWindow(now, j.settings.TimeMin, j.settings.TimeMax)
	report := &JobReport{
		Result:        result,
		Cancellations: window.Filter(result.Removed),
	}
	j.logger.Info("Cancellations inside notification window",
		"count", len(report.Cancellations),
		"earliest", window.Earliest,
		"latest", window.Latest)

	var errs []error
	if result.AllFailed() {
		errs = append(errs, entity.ErrAllDatesFailed)
	}

	if j.settings.DryRun {
		j.logger.Info("Dry run, skipping notification", "cancellations", report.Cancellations)
	} else if err := j.notifier.Notify(ctx, report.Cancellations); err != nil {
		j.logger.Error("Failed to notify subscribers", "error", err)
		errs = append(errs, err)
	}

	purged, err := j.cleaner.Run(ctx, now)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to remove old schedules: %w", err))
	}
	report.Purged = purged

	if len(errs) > 0 {
		return report, errors.Join(errs...)
	}

	j.metrics.LastSuccessfulRunEpoch.SetToCurrentTime()
	return report, nil
}
