// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published for the booking lifecycle.
const (
	EventBookingCreated = "booking.created"
	EventBookingDeleted = "booking.deleted"
)

// BookingEvent is published after a booking is stored or removed. It
// carries enough information for downstream consumers to keep an audit
// trail without querying the primary database.
type BookingEvent struct {
	Type       string `json:"type"`
	BookingID  string `json:"booking_id"`
	Name       string `json:"name"`
	WhatsApp   string `json:"whatsapp"`
	Date       string `json:"date"`
	TimeRange  string `json:"time_range"`
	Actor      string `json:"actor,omitempty"`
	OccurredAt string `json:"occurred_at"`
}
