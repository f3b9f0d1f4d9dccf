package models

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
)

// Inquiry is a client's request to book a venue that has not yet been
// turned into a booking. CreatedAt together with ID is the FCFS sort key
// and never changes after insertion.
type Inquiry struct {
	ID            int64     `json:"id"`
	VendorID      int64     `json:"vendor_id"`
	VenueID       int64     `json:"venue_id"`
	VenueName     string    `json:"venue_name"`
	ClientName    string    `json:"client_name"`
	ClientEmail   string    `json:"client_email"`
	ClientPhone   string    `json:"client_phone"`
	EventType     string    `json:"event_type"`
	EventName     string    `json:"event_name"`
	EventDate     time.Time `json:"event_date"`
	DurationHours float64   `json:"duration_hours"`
	GuestCount    int64     `json:"guest_count"`
	Budget        string    `json:"budget"`
	Details       string    `json:"details"`
	Status        string    `json:"status"` // pending, confirmed, rejected, completed, cancelled
	BookingID     int64     `json:"booking_id,omitempty"` // 0 until confirmed
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int64     `json:"version"`
}

// ValidationError carries per-field messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks the fields required for submission. It returns a
// *ValidationError listing every problem at once, not just the first.
func (i *Inquiry) Validate() error {
	fields := make(map[string]string)

	if strings.TrimSpace(i.ClientName) == "" {
		fields["client_name"] = "is required"
	}
	if strings.TrimSpace(i.ClientEmail) == "" {
		fields["client_email"] = "is required"
	} else if _, err := mail.ParseAddress(i.ClientEmail); err != nil {
		fields["client_email"] = "is not a valid email address"
	}
	if strings.TrimSpace(i.ClientPhone) == "" {
		fields["client_phone"] = "is required"
	}
	if strings.TrimSpace(i.EventType) == "" {
		fields["event_type"] = "is required"
	}
	if i.EventDate.IsZero() {
		fields["event_date"] = "is required"
	}
	if i.GuestCount <= 0 {
		fields["guest_count"] = "must be greater than zero"
	}
	if i.DurationHours <= 0 {
		fields["duration_hours"] = "must be greater than zero"
	}
	if i.VenueID == 0 {
		fields["venue_id"] = "is required"
	}
	if i.VendorID == 0 {
		fields["vendor_id"] = "is required"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
