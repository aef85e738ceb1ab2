// Package booking decides whether a proposed booking may be placed on the
// calendar and manages the lifecycle of stored bookings. The rules here are
// shared by the HTTP API, its availability check and the admin CLI so that
// every entry point validates the same way.
package booking

import (
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/iliyamo/calendar-booking/internal/interval"
	"github.com/iliyamo/calendar-booking/internal/model"
)

// Proposal holds the fields a visitor submits for a new booking.
type Proposal struct {
	Name      string
	Contact   string
	Date      string
	StartTime string
	EndTime   string
	Overnight bool
}

// TimeRange renders the proposal's range in the stored format.
func (p Proposal) TimeRange() string {
	return interval.FormatTimeRange(p.StartTime, p.EndTime)
}

// SplitTimeRange splits a stored "HH:MM - HH:MM" value into start and end.
// Clock values are not validated here; Validate does that.
func SplitTimeRange(r string) (start, end string, err error) {
	start, end, ok := strings.Cut(r, interval.RangeSeparator)
	if !ok {
		return "", "", invalid(ReasonInvalidTimeRange)
	}
	return strings.TrimSpace(start), strings.TrimSpace(end), nil
}

// Checked is a proposal that passed Validate, with its date and clock
// values parsed.
type Checked struct {
	Day  time.Time
	Span interval.Span
}

// Validate applies the up-front rules: every field present, a well formed
// date and clocks, and start strictly before end unless the proposal is
// flagged overnight. The overlap checker is more lenient and treats an
// unflagged end-before-start span as overnight; this check is what keeps
// such input out.
func Validate(p Proposal) (Checked, error) {
	if strings.TrimSpace(p.Name) == "" ||
		strings.TrimSpace(p.Contact) == "" ||
		strings.TrimSpace(p.StartTime) == "" ||
		strings.TrimSpace(p.EndTime) == "" ||
		strings.TrimSpace(p.Date) == "" {
		return Checked{}, invalid(ReasonMissingFields)
	}
	day, err := time.Parse(model.DateLayout, strings.TrimSpace(p.Date))
	if err != nil {
		return Checked{}, invalid(ReasonInvalidDate)
	}
	span, err := interval.NewSpan(p.StartTime, p.EndTime)
	if err != nil {
		return Checked{}, invalid(ReasonInvalidTime)
	}
	if !p.Overnight && span.Start >= span.End {
		return Checked{}, invalid(ReasonStartBeforeEnd)
	}
	return Checked{Day: day, Span: span}, nil
}

// CandidateDates lists the dates whose bookings a proposal must be checked
// against: its own date, plus the following date for overnight proposals
// since their tail lands there.
func CandidateDates(day time.Time, overnight bool) []string {
	dates := []string{day.Format(model.DateLayout)}
	if overnight {
		dates = append(dates, day.AddDate(0, 0, 1).Format(model.DateLayout))
	}
	return dates
}

// CheckConflicts runs the overlap checker against every candidate. Stored
// bookings with an unreadable time range are skipped.
func CheckConflicts(p Proposal, span interval.Span, candidates []model.Booking) error {
	for _, b := range candidates {
		existing, err := interval.ParseTimeRange(b.TimeRange)
		if err != nil {
			continue
		}
		if interval.Overlaps(span, existing, p.Overnight) {
			return &ConflictError{
				Date:      strings.TrimSpace(p.Date),
				TimeRange: span.String(),
				Existing:  b.ID,
			}
		}
	}
	return nil
}

// ListPrevious yields the bookings dated strictly before ref's calendar
// date, most recent first. Time of day on ref is ignored and bookings with
// a malformed date are left out. Filtering and sorting happen on each
// iteration, so the sequence can be ranged over more than once.
func ListPrevious(all []model.Booking, ref time.Time) iter.Seq[model.Booking] {
	y, m, d := ref.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	return func(yield func(model.Booking) bool) {
		type dated struct {
			b   model.Booking
			day time.Time
		}
		past := make([]dated, 0, len(all))
		for _, b := range all {
			day, ok := b.Day()
			if ok && day.Before(cutoff) {
				past = append(past, dated{b: b, day: day})
			}
		}
		slices.SortStableFunc(past, func(a, b dated) int {
			return b.day.Compare(a.day)
		})
		for _, p := range past {
			if !yield(p.b) {
				return
			}
		}
	}
}
