package interval

import "fmt"

// FormatClock12 renders "HH:MM" as a 12-hour clock, e.g. "1:30 PM".
func FormatClock12(clock string) (string, error) {
	m, err := ToMinutes(clock)
	if err != nil {
		return "", err
	}
	hours, mins := m/60, m%60
	period := "AM"
	if hours >= 12 {
		period = "PM"
	}
	display := hours
	switch {
	case hours == 0:
		display = 12
	case hours > 12:
		display = hours - 12
	}
	return fmt.Sprintf("%d:%02d %s", display, mins, period), nil
}

// FormatRange12 renders a stored range on a 12-hour clock. Overnight ranges
// get a "(+1 day)" suffix.
func FormatRange12(r string) (string, error) {
	span, err := ParseTimeRange(r)
	if err != nil {
		return "", err
	}
	start, _ := FormatClock12(MinutesToClock(span.Start))
	end, _ := FormatClock12(MinutesToClock(span.End))
	out := start + RangeSeparator + end
	if span.IsOvernight() {
		out += " (+1 day)"
	}
	return out, nil
}
