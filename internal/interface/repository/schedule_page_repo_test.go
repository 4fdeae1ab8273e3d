package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSchedulePageRepositoryFetchPage(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`<table id="schedule"></table>`))
	}))
	defer server.Close()

	repo, err := NewHTTPSchedulePageRepository(server.URL+"/Schedule.asp?location=1", time.Second, logger.NewNopLogger())
	require.NoError(t, err)

	page, err := repo.FetchPage(context.Background(), at(16, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, `<table id="schedule"></table>`, page)
	assert.Equal(t, []string{"1"}, gotQuery["location"])
	assert.Equal(t, []string{"10/16/2026"}, gotQuery["date"])
}

func TestHTTPSchedulePageRepositoryErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("date") == "10/17/2026" {
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	repo, err := NewHTTPSchedulePageRepository(server.URL, 50*time.Millisecond, logger.NewNopLogger())
	require.NoError(t, err)

	tests := []struct {
		name       string
		date       time.Time
		wantStatus int
	}{
		{name: "non-2xx status", date: at(16, 0, 0), wantStatus: http.StatusServiceUnavailable},
		{name: "timeout", date: at(17, 0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.FetchPage(context.Background(), tt.date)

			var fetchErr *entity.FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.wantStatus, fetchErr.StatusCode)
			assert.True(t, fetchErr.Date.Equal(tt.date))
		})
	}
}
