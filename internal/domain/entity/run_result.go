package entity

import "time"

// Processing phases reported for a failed date
const (
	PhaseFetch = "fetch"
	PhaseParse = "parse"
	PhaseDiff  = "diff"
)

// DateFailure records why one date contributed no changes
type DateFailure struct {
	Date  time.Time
	Phase string
	Err   error
}

// RunResult aggregates the changes detected across all processed dates
type RunResult struct {
	Removed   []Reservation
	Added     []Reservation
	Processed int
	Failures  []DateFailure
}

// AllFailed reports whether every requested date failed
func (r *RunResult) AllFailed() bool {
	return len(r.Failures) > 0 && r.Processed == 0
}

// NotificationWindow bounds the reservation starts worth reporting
type NotificationWindow struct {
	Earliest time.Time
	Latest   time.Time
}

// NewNotificationWindow builds the window [now+min, now+max] in hours
func NewNotificationWindow(now time.Time, minHours, maxHours float64) NotificationWindow {
	return NotificationWindow{
		Earliest: now.Add(hours(minHours)),
		Latest:   now.Add(hours(maxHours)),
	}
}

// Contains reports whether t lies strictly inside the window
func (w NotificationWindow) Contains(t time.Time) bool {
	return t.After(w.Earliest) && t.Before(w.Latest)
}

// Filter keeps reservations starting inside the window
func (w NotificationWindow) Filter(reservations []Reservation) []Reservation {
	kept := make([]Reservation, 0, len(reservations))
	for _, r := range reservations {
		if w.Contains(r.Start) {
			kept = append(kept, r)
		}
	}
	return kept
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
