package templates

import (
	"strings"
	"time"

	"schedule-monitor/internal/domain/entity"
)

// DefaultDigestSubject is the subject line of the cancellation email
const DefaultDigestSubject = "Purdue Airport Reservation Tracker - Cancellations"

const (
	digestHeader     = "The following cancellations have occurred:\n"
	digestStartClock = "Mon Jan 02    03:04 PM"
	digestEndClock   = "03:04 PM"
	tailCodePadding  = 4
)

// BuildCancellationDigest renders the plain-text body listing each cancellation.
// Tail codes are left-justified to the widest one plus four spaces and times
// are shown in loc.
func BuildCancellationDigest(cancellations []entity.Reservation, contact string, loc *time.Location) string {
	width := 0
	for _, c := range cancellations {
		if len(c.TailCode) > width {
			width = len(c.TailCode)
		}
	}
	width += tailCodePadding

	var body strings.Builder
	body.WriteString(digestHeader)
	for _, c := range cancellations {
		c = c.In(loc)
		body.WriteString(c.TailCode)
		body.WriteString(strings.Repeat(" ", width-len(c.TailCode)))
		body.WriteString(c.Start.Format(digestStartClock))
		body.WriteString(" - ")
		body.WriteString(c.End.Format(digestEndClock))
		body.WriteString("\n")
	}
	body.WriteString("\n\n\nIf you want to be removed from this service please contact ")
	body.WriteString(contact)

	return body.String()
}
