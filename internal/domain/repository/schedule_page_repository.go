package repository

import (
	"context"
	"time"
)

// SchedulePageRepository retrieves the raw timetable markup for a date
type SchedulePageRepository interface {
	FetchPage(ctx context.Context, date time.Time) (string, error)
}
