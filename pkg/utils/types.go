package utils

import "time"

// Constants
const (
	// SlotDuration is the width of one column of the schedule grid
	SlotDuration = 30 * time.Minute

	ScheduleTableSelector = "table#schedule"
	TailNumberHeader      = "Tail Number"
	ReservedCellText      = "Reserved"
	PMMarker              = "PM"
)
