package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"schedule-monitor/internal/domain/entity"
	"schedule-monitor/pkg/logger"

	"github.com/PuerkitoBio/goquery"
)

// ScheduleTableParser turns the schedule page into reservations
type ScheduleTableParser struct {
	logger logger.Logger
}

// NewScheduleTableParser creates a new schedule table parser
func NewScheduleTableParser(logger logger.Logger) *ScheduleTableParser {
	return &ScheduleTableParser{
		logger: logger,
	}
}

// Parse extracts the reservations of every tracked aircraft from the schedule
// table of one date. Any structural problem fails the whole page.
func (p *ScheduleTableParser) Parse(markup string, date time.Time, filter entity.PlaneFilter) ([]entity.Reservation, error) {
	scheduleDate := entity.ScheduleDate(date)
	p.logger.Debug("Parsing schedule page", "date", scheduleDate, "bytes", len(markup))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, entity.NewParseError("unreadable markup", err)
	}

	table := doc.Find(ScheduleTableSelector).First()
	if table.Length() == 0 {
		return nil, entity.NewParseError("schedule table not found", nil)
	}

	rows := tableRows(table)
	if rows.Length() == 0 {
		return nil, entity.NewParseError("schedule table has no rows", nil)
	}

	times, err := BuildTimeSlots(headerLabels(rows.First()), date)
	if err != nil {
		return nil, err
	}

	reservations := make([]entity.Reservation, 0)

	// first row holds the timings, the last one repeats them
	for i := 1; i < rows.Length()-1; i++ {
		cells := rows.Eq(i).ChildrenFiltered("td, th")
		if cells.Length() == 0 {
			continue
		}

		tailCode := CleanText(cells.First().Text())
		if !filter.Allows(tailCode) {
			continue
		}

		rowReservations, err := parseRow(tailCode, cells.Slice(1, goquery.ToEnd), times)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, rowReservations...)
	}

	p.logger.Info("Parsed schedule page",
		"date", scheduleDate,
		"slots", len(times)-1,
		"reservations", len(reservations))

	return reservations, nil
}

// tableRows returns the rows that belong to table itself, skipping nested tables
func tableRows(table *goquery.Selection) *goquery.Selection {
	return table.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.Closest("table").IsSelection(table)
	})
}

func headerLabels(header *goquery.Selection) []string {
	var labels []string
	header.ChildrenFiltered("td, th").Each(func(i int, cell *goquery.Selection) {
		text := CleanText(cell.Text())
		if i == 0 && strings.EqualFold(text, TailNumberHeader) {
			return
		}
		labels = append(labels, text)
	})
	return labels
}

// parseRow walks the cells of one aircraft left to right. A reserved cell
// spans colspan slots, every other cell is a single free slot.
func parseRow(tailCode string, cells *goquery.Selection, times []time.Time) ([]entity.Reservation, error) {
	var reservations []entity.Reservation
	cursor := 0

	for i := 0; i < cells.Length(); i++ {
		cell := cells.Eq(i)
		if CleanText(cell.Text()) != ReservedCellText {
			cursor++
			continue
		}

		span, err := cellSpan(cell)
		if err != nil {
			return nil, err
		}

		if cursor+span >= len(times) {
			return nil, entity.NewParseError(
				fmt.Sprintf("reservation of %s at slot %d spans %d slots past the time axis", tailCode, cursor, span), nil)
		}

		reservations = append(reservations, entity.Reservation{
			TailCode: tailCode,
			Start:    times[cursor],
			End:      times[cursor+span],
		})
		cursor += span
	}

	return reservations, nil
}

func cellSpan(cell *goquery.Selection) (int, error) {
	value, ok := cell.Attr("colspan")
	if !ok {
		return 1, nil
	}

	span, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, entity.NewParseError(fmt.Sprintf("invalid colspan %q", value), err)
	}
	if span < 1 {
		return 0, entity.NewParseError(fmt.Sprintf("invalid colspan %q", value), nil)
	}
	return span, nil
}
