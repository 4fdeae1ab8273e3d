package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/pkg/logger"
	"schedule-monitor/pkg/metrics"
)

var testLogger = logger.NewNopLogger()

func newTestMetrics() *metrics.Metrics {
	return metrics.NewMetrics("test")
}

func reservation(tail string, day, startHour, startMin, endHour, endMin int) entity.Reservation {
	return entity.Reservation{
		TailCode: tail,
		Start:    time.Date(2026, 10, day, startHour, startMin, 0, 0, time.UTC),
		End:      time.Date(2026, 10, day, endHour, endMin, 0, 0, time.UTC),
	}
}

func day(d int) time.Time {
	return time.Date(2026, 10, d, 0, 0, 0, 0, time.UTC)
}

// testClock is earlier than every reservation the tests build
var testClock = day(14)

func newTestDiffer(repo repository.ScheduleRepository) *ScheduleDiffer {
	differ := NewScheduleDiffer(repo, noopLocker{}, testLogger)
	differ.now = func() time.Time { return testClock }
	return differ
}

// memoryScheduleRepository keeps schedules in a map and applies diffs like the SQL store
type memoryScheduleRepository struct {
	mu        sync.Mutex
	schedules map[string]*entity.Schedule
	updateErr error
}

func newMemoryScheduleRepository() *memoryScheduleRepository {
	return &memoryScheduleRepository{schedules: make(map[string]*entity.Schedule)}
}

func (r *memoryScheduleRepository) FindByDate(_ context.Context, date string) (*entity.Schedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.schedules[date]
	if !ok {
		return nil, nil
	}
	return copySchedule(s), nil
}

func (r *memoryScheduleRepository) UpdateSchedule(_ context.Context, date string, reconcile repository.ReconcileFunc) (entity.ScheduleDiff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return entity.ScheduleDiff{}, r.updateErr
	}

	var current *entity.Schedule
	if s, ok := r.schedules[date]; ok {
		current = copySchedule(s)
	}
	diff := reconcile(current)

	if diff.IsFirstObservation() {
		r.schedules[date] = &entity.Schedule{Date: date, Reservations: diff.Initial}
		return diff, nil
	}

	stored := r.schedules[date]
	removed := keySet(diff.Removed)
	kept := make([]entity.Reservation, 0, len(stored.Reservations))
	for _, res := range stored.Reservations {
		if _, ok := removed[res.Key()]; !ok {
			kept = append(kept, res)
		}
	}
	stored.Reservations = append(kept, diff.Added...)
	return diff, nil
}

func (r *memoryScheduleRepository) PurgeBefore(_ context.Context, firstKeptDate string, startedBefore time.Time) (entity.PurgeResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result entity.PurgeResult
	for date, s := range r.schedules {
		if date < firstKeptDate {
			result.Schedules++
			result.Reservations += int64(len(s.Reservations))
			delete(r.schedules, date)
			continue
		}
		kept := s.Reservations[:0]
		for _, res := range s.Reservations {
			if res.Start.Before(startedBefore) {
				result.Reservations++
				continue
			}
			kept = append(kept, res)
		}
		s.Reservations = kept
	}
	return result, nil
}

func (r *memoryScheduleRepository) Close() error { return nil }

func (r *memoryScheduleRepository) dates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	dates := make([]string, 0, len(r.schedules))
	for date := range r.schedules {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

func copySchedule(s *entity.Schedule) *entity.Schedule {
	return &entity.Schedule{
		Date:         s.Date,
		Reservations: append([]entity.Reservation(nil), s.Reservations...),
		CreatedAt:    s.CreatedAt,
	}
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

// stubPageRepository serves one canned page per date
type stubPageRepository struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (s *stubPageRepository) FetchPage(_ context.Context, date time.Time) (string, error) {
	key := entity.ScheduleDate(date)
	s.mu.Lock()
	s.calls = append(s.calls, key)
	s.mu.Unlock()

	if err, ok := s.errs[key]; ok {
		return "", err
	}
	page, ok := s.pages[key]
	if !ok {
		return "", fmt.Errorf("no page for %s", key)
	}
	return page, nil
}

// stubParser maps a page name to a fixed reservation list
type stubParser struct {
	results map[string][]entity.Reservation
}

func (p *stubParser) Parse(markup string, _ time.Time, filter entity.PlaneFilter) ([]entity.Reservation, error) {
	reservations, ok := p.results[markup]
	if !ok {
		return nil, entity.NewParseError("unknown page "+markup, nil)
	}
	var allowed []entity.Reservation
	for _, r := range reservations {
		if filter.Allows(r.TailCode) {
			allowed = append(allowed, r)
		}
	}
	return allowed, nil
}

// recordingMailRepository captures sent messages
type recordingMailRepository struct {
	missing []string
	sendErr error
	sent    []*entity.EmailMessage
}

func (m *recordingMailRepository) MissingCredentials() []string {
	return m.missing
}

func (m *recordingMailRepository) Send(_ context.Context, message *entity.EmailMessage) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, message)
	return nil
}

var errBoom = errors.New("boom")
