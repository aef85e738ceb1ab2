package booking

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/calendar-booking/internal/interval"
	"github.com/iliyamo/calendar-booking/internal/model"
)

func proposal(date, start, end string, overnight bool) Proposal {
	return Proposal{
		Name:      "Dina",
		Contact:   "+628111",
		Date:      date,
		StartTime: start,
		EndTime:   end,
		Overnight: overnight,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		p      Proposal
		reason string
	}{
		{"ok", proposal("2024-01-01", "09:00", "10:00", false), ""},
		{"ok overnight", proposal("2024-01-01", "22:00", "02:00", true), ""},
		{"missing name", Proposal{Contact: "x", Date: "2024-01-01", StartTime: "09:00", EndTime: "10:00"}, ReasonMissingFields},
		{"blank contact", Proposal{Name: "a", Contact: "  ", Date: "2024-01-01", StartTime: "09:00", EndTime: "10:00"}, ReasonMissingFields},
		{"missing date", proposal("", "09:00", "10:00", false), ReasonMissingFields},
		{"bad date", proposal("01/01/2024", "09:00", "10:00", false), ReasonInvalidDate},
		{"impossible date", proposal("2024-02-30", "09:00", "10:00", false), ReasonInvalidDate},
		{"bad clock", proposal("2024-01-01", "25:00", "10:00", false), ReasonInvalidTime},
		{"end before start", proposal("2024-01-01", "14:00", "13:00", false), ReasonStartBeforeEnd},
		{"zero length", proposal("2024-01-01", "14:00", "14:00", false), ReasonStartBeforeEnd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Validate(tt.p)
			if tt.reason == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.p.Date, c.Day.Format(model.DateLayout))
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}
}

func TestSplitTimeRange(t *testing.T) {
	start, end, err := SplitTimeRange("22:00 - 02:00")
	require.NoError(t, err)
	assert.Equal(t, "22:00", start)
	assert.Equal(t, "02:00", end)

	_, _, err = SplitTimeRange("22:00-02:00")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonInvalidTimeRange, verr.Reason)
}

func TestCandidateDates(t *testing.T) {
	day := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"2024-12-31"}, CandidateDates(day, false))
	assert.Equal(t, []string{"2024-12-31", "2025-01-01"}, CandidateDates(day, true))
}

func TestCheckConflicts(t *testing.T) {
	existing := []model.Booking{
		{ID: "broken", TimeRange: "garbage"},
		{ID: "a", TimeRange: "09:00 - 10:00"},
	}

	p := proposal("2024-01-01", "09:30", "09:45", false)
	err := CheckConflicts(p, interval.Span{Start: 570, End: 585}, existing)
	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "a", cerr.Existing)
	assert.Equal(t, "time slot already booked: 09:30 - 09:45 on 2024-01-01", cerr.Error())

	p = proposal("2024-01-01", "10:00", "11:00", false)
	assert.NoError(t, CheckConflicts(p, interval.Span{Start: 600, End: 660}, existing))
}

func TestListPrevious(t *testing.T) {
	all := []model.Booking{
		{ID: "1", Date: "2024-01-01"},
		{ID: "2", Date: "2024-01-15"},
		{ID: "3", Date: "2024-01-05"},
		{ID: "bad", Date: "yesterday"},
		{ID: "4", Date: "2024-01-10"},
	}
	ref := time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC)

	seq := ListPrevious(all, ref)
	var ids []string
	for b := range seq {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"3", "1"}, ids)

	// The sequence can be consumed again with the same result.
	assert.Equal(t, ids, idsOf(slices.Collect(seq)))

	// Stopping early is honoured.
	var first []string
	for b := range seq {
		first = append(first, b.ID)
		break
	}
	assert.Equal(t, []string{"3"}, first)
}

func TestListPrevious_Empty(t *testing.T) {
	ref := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Empty(t, slices.Collect(ListPrevious(nil, ref)))
	assert.Empty(t, slices.Collect(ListPrevious([]model.Booking{{ID: "x", Date: "2024-01-01"}}, ref)))
}

func idsOf(bs []model.Booking) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}
