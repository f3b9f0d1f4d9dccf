package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"venueq/internal/database"
	"venueq/internal/events"
	"venueq/internal/models"
	"venueq/internal/repository"
)

// recordingSyncWorker captures enqueue calls instead of mirroring anywhere.
type recordingSyncWorker struct {
	mu         sync.Mutex
	inquiryIDs []int64
	bookingIDs []int64
	deletedIDs []int64
}

func (r *recordingSyncWorker) EnqueueInquiry(_ context.Context, inquiry *models.Inquiry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inquiryIDs = append(r.inquiryIDs, inquiry.ID)
	return nil
}

func (r *recordingSyncWorker) EnqueueBooking(_ context.Context, booking *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookingIDs = append(r.bookingIDs, booking.ID)
	return nil
}

func (r *recordingSyncWorker) EnqueueBookingDelete(_ context.Context, bookingID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedIDs = append(r.deletedIDs, bookingID)
	return nil
}

type testEnv struct {
	db        *database.DB
	bus       *events.EventBus
	sync      *recordingSyncWorker
	inquiries *InquiryService
	admission *AdmissionService
	bookings  *BookingService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetVenues([]models.Venue{
		{ID: 1, Name: "Loft Hall", VendorID: 1, Capacity: 80, SortOrder: 1, IsActive: true},
		{ID: 2, Name: "Garden Pavilion", VendorID: 1, Capacity: 150, SortOrder: 2, IsActive: true},
		{ID: 3, Name: "Old Warehouse", VendorID: 2, Capacity: 300, SortOrder: 3, IsActive: true},
	})

	bus := events.NewEventBus()
	syncWorker := &recordingSyncWorker{}
	states := repository.NewMemoryStateRepository(time.Hour)

	return &testEnv{
		db:        db,
		bus:       bus,
		sync:      syncWorker,
		inquiries: NewInquiryService(db, states, bus, syncWorker, 365, &logger),
		admission: NewAdmissionService(db, bus, syncWorker, &logger),
		bookings:  NewBookingService(db, bus, syncWorker, 365, &logger),
	}
}

// futureDate returns a UTC instant a month out at the given hour, far
// enough from now that date validation never interferes.
func futureDate(hour int) time.Time {
	d := time.Now().UTC().AddDate(0, 1, 0)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

func validInquiry(vendorID, venueID int64, client string, eventDate time.Time) *models.Inquiry {
	return &models.Inquiry{
		VendorID:      vendorID,
		VenueID:       venueID,
		ClientName:    client,
		ClientEmail:   client + "@example.com",
		ClientPhone:   "+1-555-0100",
		EventType:     "wedding",
		EventDate:     eventDate,
		DurationHours: 4,
		GuestCount:    60,
	}
}
