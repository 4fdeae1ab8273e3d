package usecase

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/internal/domain/repository"
	"schedule-monitor/internal/infrastructure/persistence"
	repo "schedule-monitor/internal/interface/repository"
	"schedule-monitor/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const schedulePageTemplate = `<html><body><table id="schedule">
<tr><td>Tail&nbsp;Number</td><td>8:00 AM</td><td>9:00 AM</td></tr>
<tr><td>N456</td>%s</tr>
<tr><td>Tail&nbsp;Number</td><td>8:00 AM</td><td>9:00 AM</td></tr>
</table></body></html>`

type schedulePageServer struct {
	mu      sync.Mutex
	row     string
	queries []string
}

func (s *schedulePageServer) serve(row string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.row = row
}

func (s *schedulePageServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, r.URL.Query().Get("date"))
	fmt.Fprintf(w, schedulePageTemplate, s.row)
}

func newSQLiteScheduleRepository(t *testing.T) repository.ScheduleRepository {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := persistence.NewGormDB(persistence.DriverSQLite, dsn)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxIdleConns(4)
	t.Cleanup(func() { sqlDB.Close() })

	migrator, err := persistence.NewMigrator(db, persistence.DriverSQLite, testLogger)
	require.NoError(t, err)
	require.NoError(t, migrator.Run(context.Background()))

	return repo.NewGormScheduleRepository(db)
}

func reservationStrings(reservations []entity.Reservation) []string {
	out := make([]string, 0, len(reservations))
	for _, r := range reservations {
		out = append(out, r.String())
	}
	return out
}

func TestScheduleMonitorEndToEndWithSQLite(t *testing.T) {
	server := &schedulePageServer{}
	httpServer := httptest.NewServer(server)
	defer httpServer.Close()

	pages, err := repo.NewHTTPSchedulePageRepository(httpServer.URL+"/Schedule.asp?location=1", 5*time.Second, testLogger)
	require.NoError(t, err)

	store := newSQLiteScheduleRepository(t)
	monitor := NewScheduleMonitor(pages, utils.NewScheduleTableParser(testLogger), newTestDiffer(store), newTestMetrics(), testLogger, 1)
	ctx := context.Background()
	dates := []time.Time{day(20)}

	server.serve(`<td colspan="4">Reserved</td>`)
	first := monitor.Run(ctx, dates, entity.PlaneFilter{})
	require.Empty(t, first.Failures)
	assert.Equal(t, 1, first.Processed)
	assert.Empty(t, first.Removed)
	assert.Empty(t, first.Added)

	stored, err := store.FindByDate(ctx, "2026-10-20")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"N456 2026-10-20 08:00-10:00"}, reservationStrings(stored.Reservations))

	server.serve(`<td colspan="2">Reserved</td><td>&nbsp;</td><td>&nbsp;</td>`)
	second := monitor.Run(ctx, dates, entity.PlaneFilter{})
	require.Empty(t, second.Failures)
	assert.Equal(t, []string{"N456 2026-10-20 08:00-10:00"}, reservationStrings(second.Removed))
	assert.Equal(t, []string{"N456 2026-10-20 08:00-09:00"}, reservationStrings(second.Added))

	third := monitor.Run(ctx, dates, entity.PlaneFilter{})
	require.Empty(t, third.Failures)
	assert.Empty(t, third.Removed)
	assert.Empty(t, third.Added)

	stored, err = store.FindByDate(ctx, "2026-10-20")
	require.NoError(t, err)
	assert.Equal(t, []string{"N456 2026-10-20 08:00-09:00"}, reservationStrings(stored.Reservations))
	assert.Equal(t, []string{"10/20/2026", "10/20/2026", "10/20/2026"}, server.queries)
}
