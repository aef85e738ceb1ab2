// Package export renders the booking set as an .xlsx workbook for the admin
// audit view.
package export

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/calendar-booking/internal/booking"
	"github.com/iliyamo/calendar-booking/internal/interval"
	"github.com/iliyamo/calendar-booking/internal/model"
)

// Sheet names of the exported workbook.
const (
	SheetUpcoming = "Upcoming"
	SheetPrevious = "Previous"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var columns = []string{"Date", "Time", "Name", "WhatsApp", "Created", "ID"}

// Workbook writes all bookings to w. Bookings dated on or after ref's
// calendar date go to the Upcoming sheet in date order, older ones to the
// Previous sheet most recent first.
func Workbook(w io.Writer, all []model.Booking, ref time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetUpcoming); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetPrevious); err != nil {
		return fmt.Errorf("create sheet %s: %w", SheetPrevious, err)
	}

	past := slices.Collect(booking.ListPrevious(all, ref))
	pastIDs := make(map[string]bool, len(past))
	for _, b := range past {
		pastIDs[b.ID] = true
	}
	var upcoming []model.Booking
	for _, b := range all {
		if _, ok := b.Day(); ok && !pastIDs[b.ID] {
			upcoming = append(upcoming, b)
		}
	}
	slices.SortStableFunc(upcoming, func(a, b model.Booking) int {
		if a.Date != b.Date {
			if a.Date < b.Date {
				return -1
			}
			return 1
		}
		return compareStart(a.TimeRange, b.TimeRange)
	})

	if err := writeSheet(f, SheetUpcoming, upcoming); err != nil {
		return err
	}
	if err := writeSheet(f, SheetPrevious, past); err != nil {
		return err
	}
	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, rows []model.Booking) error {
	for i, col := range columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		end, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(sheet, "A1", end, style)
	}

	for r, b := range rows {
		when, err := interval.FormatRange12(b.TimeRange)
		if err != nil {
			when = b.TimeRange
		}
		created := ""
		if !b.CreatedAt.IsZero() {
			created = b.CreatedAt.UTC().Format(time.RFC3339)
		}
		values := []any{b.Date, when, b.Name, b.WhatsApp, created, b.ID}
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.SetColWidth(sheet, "A", "F", 20)
}

// compareStart orders by start clock; unreadable ranges sort last.
func compareStart(a, b string) int {
	sa, errA := interval.ParseTimeRange(a)
	sb, errB := interval.ParseTimeRange(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	return sa.Start - sb.Start
}
