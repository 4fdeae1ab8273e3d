package entity

import (
	"fmt"
	"time"
)

// Reservation represents one booked interval for one aircraft.
// Two reservations are the same reservation when tail code, start and end match.
type Reservation struct {
	TailCode string
	Start    time.Time
	End      time.Time
}

// ReservationKey is the comparable identity of a Reservation
type ReservationKey struct {
	TailCode string
	Start    int64
	End      int64
}

// Equal reports whether both reservations describe the same booking
func (r Reservation) Equal(other Reservation) bool {
	return r.TailCode == other.TailCode && r.Start.Equal(other.Start) && r.End.Equal(other.End)
}

// Key returns the value identity used for set operations
func (r Reservation) Key() ReservationKey {
	return ReservationKey{
		TailCode: r.TailCode,
		Start:    r.Start.UnixNano(),
		End:      r.End.UnixNano(),
	}
}

// In returns a copy with both timestamps expressed in loc
func (r Reservation) In(loc *time.Location) Reservation {
	return Reservation{
		TailCode: r.TailCode,
		Start:    r.Start.In(loc),
		End:      r.End.In(loc),
	}
}

func (r Reservation) String() string {
	return fmt.Sprintf("%s %s-%s", r.TailCode, r.Start.Format("2006-01-02 15:04"), r.End.Format("15:04"))
}

// UniqueReservations drops repeated reservations, keeping first-seen order
func UniqueReservations(reservations []Reservation) []Reservation {
	seen := make(map[ReservationKey]struct{}, len(reservations))
	unique := make([]Reservation, 0, len(reservations))
	for _, r := range reservations {
		key := r.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, r)
	}
	return unique
}
