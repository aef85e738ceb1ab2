package model

import "time"

// DateLayout is the ISO layout of Booking.Date.
const DateLayout = "2006-01-02"

// Booking is one reservation on the shared calendar.
//
// Fields:
//
//	ID        – opaque identifier assigned by storage on creation.
//	Name      – display name of the visitor.
//	WhatsApp  – contact handle of the visitor.
//	TimeRange – "HH:MM - HH:MM"; an end before the start means the
//	            booking runs past midnight into the next day.
//	Date      – start day of the booking in YYYY-MM-DD.
//	CreatedAt – insertion time, kept for audit exports only.
type Booking struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	WhatsApp  string    `json:"whatsapp"`
	TimeRange string    `json:"timeRange"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"-"`
}

// Day parses Date. The zero time is returned for malformed dates.
func (b Booking) Day() (time.Time, bool) {
	d, err := time.Parse(DateLayout, b.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
