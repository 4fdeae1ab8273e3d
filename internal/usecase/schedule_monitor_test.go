package usecase

import (
	"context"
	"testing"
	"time"

	"schedule-monitor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMonitor(pages *stubPageRepository, parser *stubParser, repo *memoryScheduleRepository, concurrency int) *ScheduleMonitor {
	differ := newTestDiffer(repo)
	return NewScheduleMonitor(pages, parser, differ, newTestMetrics(), testLogger, concurrency)
}

func TestScheduleMonitorDetectsCancellations(t *testing.T) {
	a := reservation("N1", 15, 8, 0, 9, 0)
	b := reservation("N2", 15, 10, 0, 11, 30)

	pages := &stubPageRepository{pages: map[string]string{"2026-10-15": "full"}}
	parser := &stubParser{results: map[string][]entity.Reservation{
		"full":   {a, b},
		"shrunk": {a},
	}}
	repo := newMemoryScheduleRepository()
	monitor := newTestMonitor(pages, parser, repo, 1)
	ctx := context.Background()

	first := monitor.Run(ctx, []time.Time{day(15)}, entity.PlaneFilter{})
	assert.Equal(t, 1, first.Processed)
	assert.Empty(t, first.Removed)
	assert.Empty(t, first.Added)

	pages.pages["2026-10-15"] = "shrunk"
	second := monitor.Run(ctx, []time.Time{day(15)}, entity.PlaneFilter{})
	assert.Equal(t, []entity.Reservation{b}, second.Removed)
	assert.Empty(t, second.Added)
	assert.Empty(t, second.Failures)
}

func TestScheduleMonitorIsolatesFailingDates(t *testing.T) {
	r16 := reservation("N1", 16, 8, 0, 9, 0)
	r18 := reservation("N2", 18, 8, 0, 9, 0)

	pages := &stubPageRepository{
		pages: map[string]string{
			"2026-10-16": "page16",
			"2026-10-17": "garbage",
			"2026-10-18": "page18",
		},
		errs: map[string]error{"2026-10-15": errBoom},
	}
	parser := &stubParser{results: map[string][]entity.Reservation{
		"page16": {r16},
		"page18": {r18},
	}}
	repo := newMemoryScheduleRepository()
	monitor := newTestMonitor(pages, parser, repo, 2)

	result := monitor.Run(context.Background(), []time.Time{day(15), day(16), day(17), day(18)}, entity.PlaneFilter{})

	assert.Equal(t, 2, result.Processed)
	require.Len(t, result.Failures, 2)
	assert.False(t, result.AllFailed())

	assert.Equal(t, day(15), result.Failures[0].Date)
	assert.Equal(t, entity.PhaseFetch, result.Failures[0].Phase)
	var fetchErr *entity.FetchError
	assert.ErrorAs(t, result.Failures[0].Err, &fetchErr)
	assert.ErrorIs(t, result.Failures[0].Err, errBoom)

	assert.Equal(t, day(17), result.Failures[1].Date)
	assert.Equal(t, entity.PhaseParse, result.Failures[1].Phase)
	var parseErr *entity.ParseError
	assert.ErrorAs(t, result.Failures[1].Err, &parseErr)

	assert.Equal(t, []string{"2026-10-16", "2026-10-18"}, repo.dates())
}

func TestScheduleMonitorAggregatesInDateOrder(t *testing.T) {
	pages := &stubPageRepository{pages: map[string]string{}}
	parser := &stubParser{results: map[string][]entity.Reservation{}}
	repo := newMemoryScheduleRepository()

	var dates []time.Time
	var expected []entity.Reservation
	for d := 15; d <= 22; d++ {
		key := entity.ScheduleDate(day(d))
		pages.pages[key] = key
		r := reservation("N1", d, 8, 0, 9, 0)
		repo.schedules[key] = &entity.Schedule{Date: key, Reservations: []entity.Reservation{r}}
		parser.results[key] = []entity.Reservation{}
		dates = append(dates, day(d))
		expected = append(expected, r)
	}

	monitor := newTestMonitor(pages, parser, repo, 4)
	result := monitor.Run(context.Background(), dates, entity.PlaneFilter{})

	assert.Equal(t, len(dates), result.Processed)
	assert.Equal(t, expected, result.Removed)
}

func TestScheduleMonitorAllDatesFailed(t *testing.T) {
	pages := &stubPageRepository{errs: map[string]error{
		"2026-10-15": errBoom,
		"2026-10-16": errBoom,
	}}
	monitor := newTestMonitor(pages, &stubParser{}, newMemoryScheduleRepository(), 1)

	result := monitor.Run(context.Background(), []time.Time{day(15), day(16)}, entity.PlaneFilter{})

	assert.Equal(t, 0, result.Processed)
	assert.True(t, result.AllFailed())
}

func TestScheduleMonitorAppliesPlaneFilter(t *testing.T) {
	a := reservation("N1", 15, 8, 0, 9, 0)
	b := reservation("N2", 15, 10, 0, 11, 30)

	pages := &stubPageRepository{pages: map[string]string{"2026-10-15": "full"}}
	parser := &stubParser{results: map[string][]entity.Reservation{"full": {a, b}}}
	repo := newMemoryScheduleRepository()
	monitor := newTestMonitor(pages, parser, repo, 1)

	monitor.Run(context.Background(), []time.Time{day(15)}, entity.PlaneFilter{Exclude: []string{"N2"}})

	stored, err := repo.FindByDate(context.Background(), "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, []entity.Reservation{a}, stored.Reservations)
}
