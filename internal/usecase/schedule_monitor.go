package usecase

import (
	"context"
	"errors"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/pkg/logger"
	"schedule-monitor/pkg/metrics"

	"golang.org/x/sync/errgroup"
)

// SchedulePageParser extracts reservations from a fetched schedule page
type SchedulePageParser interface {
	Parse(markup string, date time.Time, filter entity.PlaneFilter) ([]entity.Reservation, error)
}

// ScheduleMonitor runs fetch, parse and diff for a list of dates
type ScheduleMonitor struct {
	pageRepo    repository.SchedulePageRepository
	parser      SchedulePageParser
	differ      *ScheduleDiffer
	metrics     *metrics.Metrics
	logger      logger.Logger
	concurrency int
}

// NewScheduleMonitor creates a new schedule monitor.
// concurrency bounds how many dates are processed at once.
func NewScheduleMonitor(
	pageRepo repository.SchedulePageRepository,
	parser SchedulePageParser,
	differ *ScheduleDiffer,
	metrics *metrics.Metrics,
	logger logger.Logger,
	concurrency int,
) *ScheduleMonitor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ScheduleMonitor{
		pageRepo:    pageRepo,
		parser:      parser,
		differ:      differ,
		metrics:     metrics,
		logger:      logger,
		concurrency: concurrency,
	}
}

type dateOutcome struct {
	diff    entity.ScheduleDiff
	failure *entity.DateFailure
}

// Run processes every date independently. A failing date is logged and
// recorded; the remaining dates still run. Changes are aggregated in the
// order of dates.
func (m *ScheduleMonitor) Run(ctx context.Context, dates []time.Time, filter entity.PlaneFilter) *entity.RunResult {
	outcomes := make([]dateOutcome, len(dates))

	var g errgroup.Group
	g.SetLimit(m.concurrency)
	for i, date := range dates {
		g.Go(func() error {
			outcomes[i] = m.processDate(ctx, date, filter)
			return nil
		})
	}
	_ = g.Wait()

	result := &entity.RunResult{
		Removed: []entity.Reservation{},
		Added:   []entity.Reservation{},
	}
	for _, outcome := range outcomes {
		if outcome.failure != nil {
			result.Failures = append(result.Failures, *outcome.failure)
			continue
		}
		result.Processed++
		result.Removed = append(result.Removed, outcome.diff.Removed...)
		result.Added = append(result.Added, outcome.diff.Added...)
	}

	m.logger.Info("Schedule check completed",
		"dates", len(dates),
		"processed", result.Processed,
		"failed", len(result.Failures),
		"removed", len(result.Removed),
		"added", len(result.Added))

	return result
}

func (m *ScheduleMonitor) processDate(ctx context.Context, date time.Time, filter entity.PlaneFilter) dateOutcome {
	scheduleDate := entity.ScheduleDate(date)
	m.logger.Info("Retrieving schedule page", "date", scheduleDate)

	page, err := m.pageRepo.FetchPage(ctx, date)
	if err != nil {
		var fetchErr *entity.FetchError
		if !errors.As(err, &fetchErr) {
			err = &entity.FetchError{Date: date, Err: err}
		}
		return m.fail(date, entity.PhaseFetch, err)
	}

	parsed, err := m.parser.Parse(page, date, filter)
	if err != nil {
		return m.fail(date, entity.PhaseParse, err)
	}

	diff, err := m.differ.Apply(ctx, date, parsed)
	if err != nil {
		return m.fail(date, entity.PhaseDiff, err)
	}

	m.metrics.DatesProcessed.WithLabelValues("ok").Inc()
	m.metrics.ReservationsRemoved.Add(float64(len(diff.Removed)))
	m.metrics.ReservationsAdded.Add(float64(len(diff.Added)))

	return dateOutcome{diff: diff}
}

func (m *ScheduleMonitor) fail(date time.Time, phase string, err error) dateOutcome {
	m.logger.Error("Failed to process schedule date",
		"date", entity.ScheduleDate(date),
		"phase", phase,
		"error", err)
	m.metrics.DatesProcessed.WithLabelValues(phase + "_failed").Inc()

	return dateOutcome{failure: &entity.DateFailure{Date: date, Phase: phase, Err: err}}
}
