package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinutes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "midnight", input: "00:00", want: 0},
		{name: "9am", input: "09:00", want: 540},
		{name: "single digit hour", input: "9:05", want: 545},
		{name: "noon", input: "12:00", want: 720},
		{name: "last minute", input: "23:59", want: 1439},
		{name: "hour out of range", input: "24:00", wantErr: true},
		{name: "minute out of range", input: "10:60", wantErr: true},
		{name: "no colon", input: "1000", wantErr: true},
		{name: "letters", input: "ab:cd", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "single digit minute", input: "9:5", wantErr: true},
		{name: "plus sign", input: "+9:00", wantErr: true},
		{name: "minus zero", input: "-0:00", wantErr: true},
		{name: "three digit hour", input: "009:00", wantErr: true},
		{name: "signed minute", input: "10:+5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinutes(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClock)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToMinutesAsEnd(t *testing.T) {
	tests := []struct {
		name      string
		clock     string
		overnight bool
		want      int
	}{
		{name: "not overnight", clock: "02:00", overnight: false, want: 120},
		{name: "overnight early morning", clock: "02:00", overnight: true, want: 120 + MinutesPerDay},
		{name: "overnight midnight", clock: "00:00", overnight: true, want: MinutesPerDay},
		{name: "overnight last minute before noon", clock: "11:59", overnight: true, want: 719 + MinutesPerDay},
		{name: "overnight at noon stays", clock: "12:00", overnight: true, want: 720},
		{name: "overnight evening stays", clock: "23:00", overnight: true, want: 1380},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinutesAsEnd(tt.clock, tt.overnight)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeRange(t *testing.T) {
	span, err := ParseTimeRange("22:00 - 02:00")
	require.NoError(t, err)
	assert.Equal(t, Span{Start: 1320, End: 120}, span)
	assert.True(t, span.IsOvernight())
	assert.Equal(t, "22:00 - 02:00", span.String())

	_, err = ParseTimeRange("22:00-02:00")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ParseTimeRange("22:00 - 2x:00")
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestMinutesToClock(t *testing.T) {
	assert.Equal(t, "00:00", MinutesToClock(0))
	assert.Equal(t, "09:30", MinutesToClock(570))
	assert.Equal(t, "02:00", MinutesToClock(120+MinutesPerDay))
	assert.Equal(t, "23:00", MinutesToClock(-60))
}

func TestIntervalsOverlap(t *testing.T) {
	tests := []struct {
		name                       string
		startA, endA, startB, endB string
		aOvernight                 bool
		want                       bool
	}{
		{name: "touching boundary", startA: "10:00", endA: "11:00", startB: "11:00", endB: "12:00", want: false},
		{name: "touching boundary reversed", startA: "11:00", endA: "12:00", startB: "10:00", endB: "11:00", want: false},
		{name: "containment", startA: "10:00", endA: "11:00", startB: "10:30", endB: "10:45", want: true},
		{name: "identical", startA: "09:00", endA: "10:00", startB: "09:00", endB: "10:00", want: true},
		{name: "partial", startA: "22:00", endA: "23:30", startB: "23:00", endB: "23:45", want: true},
		{name: "disjoint", startA: "08:00", endA: "09:00", startB: "13:00", endB: "14:00", want: false},
		{name: "overnight tail hits next day booking", startA: "22:00", endA: "02:00", startB: "01:00", endB: "03:00", aOvernight: true, want: true},
		{name: "overnight tail clear of next day booking", startA: "22:00", endA: "02:00", startB: "02:00", endB: "04:00", aOvernight: true, want: false},
		{name: "overnight vs evening booking", startA: "22:00", endA: "02:00", startB: "21:00", endB: "22:30", aOvernight: true, want: true},
		{name: "overnight vs earlier evening booking", startA: "22:00", endA: "02:00", startB: "20:00", endB: "22:00", aOvernight: true, want: false},
		{name: "unflagged overnight auto detected", startA: "23:00", endA: "01:00", startB: "00:30", endB: "02:00", aOvernight: false, want: true},
		{name: "both overnight", startA: "22:00", endA: "02:00", startB: "23:00", endB: "01:00", aOvernight: true, want: true},
		{name: "existing overnight vs late proposal", startA: "23:30", endA: "23:45", startB: "22:00", endB: "02:00", want: true},
		{name: "flagged overnight ending after noon is not pushed", startA: "22:00", endA: "13:00", startB: "10:00", endB: "11:00", aOvernight: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IntervalsOverlap(tt.startA, tt.endA, tt.startB, tt.endB, tt.aOvernight)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntervalsOverlap_InvalidInput(t *testing.T) {
	_, err := IntervalsOverlap("10:00", "nope", "11:00", "12:00", false)
	assert.ErrorIs(t, err, ErrInvalidClock)

	_, err = IntervalsOverlap("10:00", "11:00", "25:00", "12:00", false)
	assert.ErrorIs(t, err, ErrInvalidClock)
}

// halfOpen is the plain same-day intersection test.
func halfOpen(a, b Span) bool { return a.Start < b.End && a.End > b.Start }

// gridStep keeps the exhaustive grid small enough to run quickly.
const gridStep = 60

func gridSpans() []Span {
	var spans []Span
	for s := 0; s < MinutesPerDay; s += gridStep {
		for e := 0; e < MinutesPerDay; e += gridStep {
			spans = append(spans, Span{Start: s, End: e})
		}
	}
	return spans
}

func TestOverlaps_SameDayProperties(t *testing.T) {
	var sameDay []Span
	for _, s := range gridSpans() {
		if s.Start < s.End {
			sameDay = append(sameDay, s)
		}
	}

	for _, a := range sameDay {
		assert.True(t, Overlaps(a, a, false), "reflexive %v", a)
		for _, b := range sameDay {
			ab := Overlaps(a, b, false)
			assert.Equal(t, ab, Overlaps(b, a, false), "symmetric %v %v", a, b)
			assert.Equal(t, halfOpen(a, b), ab, "matches half-open test %v %v", a, b)
		}
	}
}

// TestOverlaps_Grid enumerates every start/end/flag combination on the grid
// and pins down how the tail check relates to the primary test: it never
// hides an overlap the primary test found, and it only adds rejections when
// the proposal is overnight and the other span is not.
func TestOverlaps_Grid(t *testing.T) {
	spans := gridSpans()
	for _, a := range spans {
		for _, b := range spans {
			for _, flag := range []bool{false, true} {
				got := Overlaps(a, b, flag)

				aOvernight := flag || a.IsOvernight()
				aEnd := a.End
				if aOvernight {
					aEnd = endAsOvernight(a.End, true)
				}
				bEnd := b.End
				if b.IsOvernight() {
					bEnd = endAsOvernight(b.End, true)
				}
				primary := a.Start < bEnd && aEnd > b.Start

				if primary {
					assert.True(t, got, "primary overlap lost a=%v b=%v flag=%v", a, b, flag)
					continue
				}
				if got {
					assert.True(t, aOvernight, "tail rejection without overnight a=%v b=%v", a, b)
					assert.False(t, b.IsOvernight(), "tail rejection against overnight b a=%v b=%v", a, b)
					assert.Greater(t, aEnd-MinutesPerDay, b.Start, "tail must pass b's start a=%v b=%v", a, b)
				}
			}
		}
	}
}

func TestFormatRange12(t *testing.T) {
	got, err := FormatRange12("09:00 - 13:30")
	require.NoError(t, err)
	assert.Equal(t, "9:00 AM - 1:30 PM", got)

	got, err = FormatRange12("22:00 - 00:15")
	require.NoError(t, err)
	assert.Equal(t, "10:00 PM - 12:15 AM (+1 day)", got)

	_, err = FormatRange12("bad")
	assert.Error(t, err)
}
