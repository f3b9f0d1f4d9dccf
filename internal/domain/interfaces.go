package domain

import (
	"context"
	"time"

	"venueq/internal/models"
)

// Store is the durable-store contract consumed by the services. The SQLite
// implementation lives in internal/database.
type Store interface {
	CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error
	GetInquiry(ctx context.Context, id int64) (*models.Inquiry, error)
	PeekOldestPending(ctx context.Context, vendorID int64) (*models.Inquiry, error)
	GetPendingInquiries(ctx context.Context, vendorID int64) ([]models.Inquiry, error)
	ListInquiries(ctx context.Context, vendorID int64, sortKey, dir string) ([]models.Inquiry, error)
	UpdateInquiryStatusWithVersion(ctx context.Context, id, fromVersion int64, status string, bookingID int64) error
	DeleteInquiry(ctx context.Context, id int64) error
	DeleteTerminalInquiriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountPendingInquiries(ctx context.Context) (int64, error)

	GetBookings(ctx context.Context, venueID int64) ([]models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	InsertBookingIfNoConflict(ctx context.Context, booking *models.Booking) error
	ConfirmInquiryBooking(ctx context.Context, inquiry *models.Inquiry, booking *models.Booking) error
	DeleteBooking(ctx context.Context, id int64) error
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]models.Booking, error)
	GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]models.Booking, error)

	GetVenues() []models.Venue
	GetVenueByID(id int64) (models.Venue, error)
	GetVenueByName(name string) (models.Venue, error)
}

// RateCounter counts requests per key within a fixed window. Backed by
// Redis it gives cross-process limits; the API auth layer consumes it.
type RateCounter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// StateRepository persists operator UI state and rate-limit counters.
type StateRepository interface {
	GetState(ctx context.Context, vendorID int64) (*models.OperatorState, error)
	SetState(ctx context.Context, state *models.OperatorState) error
	RateCounter
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SyncWorker schedules mirror updates of inquiries and bookings.
type SyncWorker interface {
	EnqueueInquiry(ctx context.Context, inquiry *models.Inquiry) error
	EnqueueBooking(ctx context.Context, booking *models.Booking) error
	EnqueueBookingDelete(ctx context.Context, bookingID int64) error
}

// SheetsWriter mirrors records into a spreadsheet.
type SheetsWriter interface {
	UpsertInquiry(ctx context.Context, inquiry *models.Inquiry) error
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	DeleteBookingRow(ctx context.Context, bookingID int64) error
}

// Notifier delivers admission outcomes to vendor operators.
type Notifier interface {
	NotifyAdmitted(inquiry *models.Inquiry, booking *models.Booking)
	NotifyRejected(inquiry *models.Inquiry, reason string)
}
