package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"schedule-monitor/internal/domain/entity"
)

// BuildTimeSlots converts the header labels of a schedule table into the
// half-hour boundaries of its columns, anchored to date's calendar day.
//
// Every label covers one hour and yields two boundaries (hh:00 and hh:30).
// One extra boundary is appended so a reservation running through the last
// column still has an end time.
func BuildTimeSlots(labels []string, date time.Time) ([]time.Time, error) {
	if len(labels) == 0 {
		return nil, entity.NewParseError("no time labels in header row", nil)
	}

	day := entity.StartOfDay(date)
	times := make([]time.Time, 0, len(labels)*2+1)

	for _, label := range labels {
		hour, err := ParseHourLabel(label)
		if err != nil {
			return nil, err
		}

		base := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
		if n := len(times); n > 0 && !base.After(times[n-1]) {
			return nil, entity.NewParseError(fmt.Sprintf("time label %q is out of order", label), nil)
		}

		times = append(times, base, base.Add(SlotDuration))
	}

	times = append(times, times[len(times)-1].Add(SlotDuration))
	return times, nil
}

// ParseHourLabel returns the 24-hour clock hour of a label such as "2:00 PM"
func ParseHourLabel(label string) (int, error) {
	token := strings.TrimSpace(strings.SplitN(label, ":", 2)[0])
	hour, err := strconv.Atoi(token)
	if err != nil {
		return 0, entity.NewParseError(fmt.Sprintf("invalid time label %q", label), err)
	}

	if strings.Contains(label, PMMarker) && hour != 12 {
		hour += 12
	}

	if hour < 0 || hour > 23 {
		return 0, entity.NewParseError(fmt.Sprintf("time label %q is outside the day", label), nil)
	}
	return hour, nil
}
