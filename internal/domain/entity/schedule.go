package entity

import "time"

// DateLayout is the storage and lookup format of a schedule date
const DateLayout = "2006-01-02"

// Schedule is the full set of reservations observed for one calendar date
type Schedule struct {
	Date         string
	Reservations []Reservation
	CreatedAt    time.Time
}

// ScheduleDate formats the calendar day of t as a schedule key
func ScheduleDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay returns midnight of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ScheduleDiff is the outcome of reconciling a parsed schedule with the stored one.
// Initial is set only when no schedule existed for the date.
type ScheduleDiff struct {
	Date    string
	Initial []Reservation
	Removed []Reservation
	Added   []Reservation
}

// IsFirstObservation reports whether the diff created the schedule
func (d ScheduleDiff) IsFirstObservation() bool {
	return d.Initial != nil
}

// PurgeResult reports what a retention pass deleted
type PurgeResult struct {
	Schedules    int64
	Reservations int64
}
