package models

import "time"

// Booking is a committed occupancy of a venue for a half-open time window
// [Start, End()). Bookings are never edited in place: cancellation removes
// the row, rescheduling creates a new one.
type Booking struct {
	ID            int64     `json:"id"`
	VenueID       int64     `json:"venue_id"`
	VenueName     string    `json:"venue_name"`
	InquiryID     int64     `json:"inquiry_id,omitempty"` // 0 for direct bookings
	Start         time.Time `json:"start"`
	DurationHours float64   `json:"duration_hours"`
	CreatedAt     time.Time `json:"created_at"`
}

// End returns the exclusive end instant of the booking window.
// Fractional hours are honored.
func (b *Booking) End() time.Time {
	return b.Start.Add(time.Duration(b.DurationHours * float64(time.Hour)))
}
