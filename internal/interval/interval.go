// Package interval converts clock times to minute offsets and decides
// whether two time spans on the calendar intersect. Spans are half-open
// ([start, end)) and may cross midnight: an overnight span is written with
// an end clock time that is numerically less than or equal to its start.
package interval

import (
	"errors"
	"fmt"
	"strings"
)

// MinutesPerDay is the length of one calendar day in minutes.
const MinutesPerDay = 24 * 60

// noon splits the day for the overnight end heuristic: an end clock time
// before noon on an overnight span is read as belonging to the next day.
const noon = 12 * 60

// RangeSeparator joins start and end inside a stored time range.
const RangeSeparator = " - "

// ErrInvalidClock is returned for anything that is not a 24h "HH:MM" value.
var ErrInvalidClock = errors.New("time must be in HH:MM format")

// ErrInvalidRange is returned when a time range is not "HH:MM - HH:MM".
var ErrInvalidRange = errors.New("time range must be in \"HH:MM - HH:MM\" format")

// ToMinutes converts "HH:MM" to minutes since midnight. The hour may be a
// single digit; the minutes are always two. Signs and other characters are
// rejected.
func ToMinutes(clock string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(clock), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	hours, ok := digits(h, 1, 2)
	if !ok || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	mins, ok := digits(m, 2, 2)
	if !ok || mins > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, clock)
	}
	return hours*60 + mins, nil
}

// digits parses s as an unsigned decimal of minLen to maxLen ASCII digits.
func digits(s string, minLen, maxLen int) (int, bool) {
	if len(s) < minLen || len(s) > maxLen {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// ToMinutesAsEnd is ToMinutes for the end of a span. When overnightEnd is
// set and the clock is before noon the value is pushed past midnight so it
// compares correctly against a same-day start.
func ToMinutesAsEnd(clock string, overnightEnd bool) (int, error) {
	m, err := ToMinutes(clock)
	if err != nil {
		return 0, err
	}
	return endAsOvernight(m, overnightEnd), nil
}

func endAsOvernight(m int, overnightEnd bool) int {
	if overnightEnd && m >= 0 && m < noon {
		return m + MinutesPerDay
	}
	return m
}

// MinutesToClock formats minutes since midnight as "HH:MM". Values past
// midnight wrap around.
func MinutesToClock(m int) string {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Span is a clock interval in minutes since midnight of its start day.
// End is stored as written, so End <= Start marks an overnight span.
type Span struct {
	Start int
	End   int
}

// NewSpan parses a start and end clock into a Span.
func NewSpan(start, end string) (Span, error) {
	s, err := ToMinutes(start)
	if err != nil {
		return Span{}, err
	}
	e, err := ToMinutes(end)
	if err != nil {
		return Span{}, err
	}
	return Span{Start: s, End: e}, nil
}

// ParseTimeRange parses a stored "HH:MM - HH:MM" range.
func ParseTimeRange(r string) (Span, error) {
	start, end, ok := strings.Cut(r, RangeSeparator)
	if !ok {
		return Span{}, fmt.Errorf("%w: %q", ErrInvalidRange, r)
	}
	return NewSpan(start, end)
}

// FormatTimeRange joins two clock values into the stored range format.
func FormatTimeRange(start, end string) string {
	return strings.TrimSpace(start) + RangeSeparator + strings.TrimSpace(end)
}

// IsOvernight reports whether the span, read on its own, crosses midnight.
func (s Span) IsOvernight() bool { return s.End <= s.Start }

// String renders the span in the stored range format.
func (s Span) String() string {
	return FormatTimeRange(MinutesToClock(s.Start), MinutesToClock(s.End))
}

// Overlaps reports whether span a intersects span b.
//
// a's end is normalised past midnight when aOvernight is set or its end is
// not after its start; b is treated as overnight only when its end is not
// after its start. The primary check is the half-open intersection test.
// When a is overnight its early morning tail (the part after midnight) is
// also compared against b's start, which catches a booking recorded under
// the following date. The tail check can reject a same-date early morning
// booking as well; callers rely on that behaviour.
func Overlaps(a, b Span, aOvernight bool) bool {
	aEnd := a.End
	if aOvernight || a.End <= a.Start {
		aEnd = endAsOvernight(a.End, true)
	}

	bOvernight := b.End <= b.Start
	bEnd := b.End
	if bOvernight {
		bEnd = endAsOvernight(b.End, true)
	}

	if a.Start < bEnd && aEnd > b.Start {
		return true
	}

	if aOvernight || aEnd > MinutesPerDay {
		tail := aEnd - MinutesPerDay
		if tail > b.Start && !bOvernight {
			return true
		}
	}
	return false
}

// IntervalsOverlap is Overlaps over raw clock strings.
func IntervalsOverlap(startA, endA, startB, endB string, aOvernight bool) (bool, error) {
	a, err := NewSpan(startA, endA)
	if err != nil {
		return false, err
	}
	b, err := NewSpan(startB, endB)
	if err != nil {
		return false, err
	}
	return Overlaps(a, b, aOvernight), nil
}
