package usecase

import (
	"context"
	"testing"
	"time"

	"schedule-monitor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeScheduleDiff(t *testing.T) {
	a := reservation("N1", 15, 8, 0, 9, 0)
	b := reservation("N2", 15, 10, 0, 11, 30)
	c := reservation("N3", 15, 13, 0, 14, 0)

	tests := []struct {
		name        string
		stored      *entity.Schedule
		parsed      []entity.Reservation
		wantInitial []entity.Reservation
		wantRemoved []entity.Reservation
		wantAdded   []entity.Reservation
	}{
		{
			name:        "first observation",
			stored:      nil,
			parsed:      []entity.Reservation{a, b, a},
			wantInitial: []entity.Reservation{a, b},
		},
		{
			name:        "first observation of an empty page",
			stored:      nil,
			parsed:      nil,
			wantInitial: []entity.Reservation{},
		},
		{
			name:        "unchanged",
			stored:      &entity.Schedule{Date: "2026-10-15", Reservations: []entity.Reservation{a, b}},
			parsed:      []entity.Reservation{b, a},
			wantRemoved: []entity.Reservation{},
			wantAdded:   []entity.Reservation{},
		},
		{
			name:        "cancellation and new booking",
			stored:      &entity.Schedule{Date: "2026-10-15", Reservations: []entity.Reservation{a, b}},
			parsed:      []entity.Reservation{a, c},
			wantRemoved: []entity.Reservation{b},
			wantAdded:   []entity.Reservation{c},
		},
		{
			name:        "everything cancelled",
			stored:      &entity.Schedule{Date: "2026-10-15", Reservations: []entity.Reservation{a, b}},
			parsed:      []entity.Reservation{},
			wantRemoved: []entity.Reservation{a, b},
			wantAdded:   []entity.Reservation{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := ComputeScheduleDiff("2026-10-15", tt.stored, tt.parsed)

			assert.Equal(t, "2026-10-15", diff.Date)
			assert.Equal(t, tt.wantInitial, diff.Initial)
			assert.Equal(t, tt.wantRemoved, diff.Removed)
			assert.Equal(t, tt.wantAdded, diff.Added)
			assert.Equal(t, tt.stored == nil, diff.IsFirstObservation())
		})
	}
}

func TestComputeScheduleDiffDoesNotMutateInputs(t *testing.T) {
	a := reservation("N1", 15, 8, 0, 9, 0)
	b := reservation("N2", 15, 10, 0, 11, 30)
	stored := &entity.Schedule{Date: "2026-10-15", Reservations: []entity.Reservation{a, b}}
	parsed := []entity.Reservation{b}

	ComputeScheduleDiff("2026-10-15", stored, parsed)

	assert.Equal(t, []entity.Reservation{a, b}, stored.Reservations)
	assert.Equal(t, []entity.Reservation{b}, parsed)
}

func TestComputeScheduleDiffComparesInstants(t *testing.T) {
	a := reservation("N1", 15, 8, 0, 9, 0)
	stored := &entity.Schedule{Date: "2026-10-15", Reservations: []entity.Reservation{a.In(time.FixedZone("EDT", -4*3600))}}

	diff := ComputeScheduleDiff("2026-10-15", stored, []entity.Reservation{a})

	assert.Empty(t, diff.Removed)
	assert.Empty(t, diff.Added)
}

func TestScheduleDifferApplyIsIdempotent(t *testing.T) {
	repo := newMemoryScheduleRepository()
	differ := newTestDiffer(repo)
	ctx := context.Background()

	parsed := []entity.Reservation{
		reservation("N1", 15, 8, 0, 9, 0),
		reservation("N2", 15, 10, 0, 11, 30),
	}

	first, err := differ.Apply(ctx, day(15), parsed)
	require.NoError(t, err)
	assert.True(t, first.IsFirstObservation())
	assert.Empty(t, first.Removed)

	second, err := differ.Apply(ctx, day(15), parsed)
	require.NoError(t, err)
	assert.False(t, second.IsFirstObservation())
	assert.Empty(t, second.Removed)
	assert.Empty(t, second.Added)

	stored, err := repo.FindByDate(ctx, "2026-10-15")
	require.NoError(t, err)
	assert.ElementsMatch(t, parsed, stored.Reservations)
}

func TestScheduleDifferApplyReplacesStoredSet(t *testing.T) {
	repo := newMemoryScheduleRepository()
	differ := newTestDiffer(repo)
	ctx := context.Background()

	a := reservation("N1", 15, 8, 0, 9, 0)
	b := reservation("N2", 15, 10, 0, 11, 30)
	c := reservation("N3", 15, 13, 0, 14, 0)

	_, err := differ.Apply(ctx, day(15), []entity.Reservation{a, b})
	require.NoError(t, err)

	diff, err := differ.Apply(ctx, day(15), []entity.Reservation{b, c})
	require.NoError(t, err)
	assert.Equal(t, []entity.Reservation{a}, diff.Removed)
	assert.Equal(t, []entity.Reservation{c}, diff.Added)

	stored, err := repo.FindByDate(ctx, "2026-10-15")
	require.NoError(t, err)
	assert.ElementsMatch(t, []entity.Reservation{b, c}, stored.Reservations)
}

func TestScheduleDifferApplyWrapsStorageFailures(t *testing.T) {
	repo := newMemoryScheduleRepository()
	repo.updateErr = errBoom
	differ := newTestDiffer(repo)

	_, err := differ.Apply(context.Background(), day(15), nil)

	var storageErr *entity.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.ErrorIs(t, err, errBoom)
}

func TestScheduleDifferApplySkipsStartedReservations(t *testing.T) {
	repo := newMemoryScheduleRepository()
	differ := newTestDiffer(repo)
	differ.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	started := reservation("N1", 15, 8, 0, 10, 0)
	upcoming := reservation("N2", 15, 11, 0, 12, 0)
	later := reservation("N3", 15, 14, 0, 15, 0)

	first, err := differ.Apply(ctx, day(15), []entity.Reservation{started, upcoming})
	require.NoError(t, err)
	assert.Equal(t, []entity.Reservation{upcoming}, first.Initial)

	second, err := differ.Apply(ctx, day(15), []entity.Reservation{started, upcoming, later})
	require.NoError(t, err)
	assert.Empty(t, second.Removed)
	assert.Equal(t, []entity.Reservation{later}, second.Added)

	stored, err := repo.FindByDate(ctx, "2026-10-15")
	require.NoError(t, err)
	assert.ElementsMatch(t, []entity.Reservation{upcoming, later}, stored.Reservations)
}
