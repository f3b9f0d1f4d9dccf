package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venueq/internal/database"
	"venueq/internal/events"
	"venueq/internal/models"
)

func TestSubmit(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	var submitted []*events.Event
	env.bus.Subscribe(events.EventInquirySubmitted, func(e *events.Event) error {
		submitted = append(submitted, e)
		return nil
	})

	inquiry := validInquiry(0, 1, "Alice", futureDate(14))
	err := env.inquiries.Submit(ctx, inquiry)
	require.NoError(t, err)

	assert.NotZero(t, inquiry.ID)
	assert.Equal(t, models.StatusPending, inquiry.Status)
	// Venue resolution fills the display name and the owning vendor.
	assert.Equal(t, "Loft Hall", inquiry.VenueName)
	assert.Equal(t, int64(1), inquiry.VendorID)

	assert.Len(t, submitted, 1)
	assert.Equal(t, []int64{inquiry.ID}, env.sync.inquiryIDs)
}

func TestSubmitValidation(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	t.Run("collects all field errors", func(t *testing.T) {
		err := env.inquiries.Submit(ctx, &models.Inquiry{VenueID: 1})
		var vErr *models.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "client_name")
		assert.Contains(t, vErr.Fields, "client_email")
		assert.Contains(t, vErr.Fields, "event_date")
		assert.Contains(t, vErr.Fields, "duration_hours")
	})

	t.Run("bad email", func(t *testing.T) {
		inquiry := validInquiry(0, 1, "Alice", futureDate(14))
		inquiry.ClientEmail = "not-an-email"
		err := env.inquiries.Submit(ctx, inquiry)
		var vErr *models.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Fields, "client_email")
	})

	t.Run("unknown venue", func(t *testing.T) {
		inquiry := validInquiry(1, 99, "Alice", futureDate(14))
		err := env.inquiries.Submit(ctx, inquiry)
		assert.ErrorIs(t, err, database.ErrVenueNotFound)
	})

	t.Run("vendor mismatch", func(t *testing.T) {
		// Venue 3 belongs to vendor 2.
		inquiry := validInquiry(1, 3, "Alice", futureDate(14))
		err := env.inquiries.Submit(ctx, inquiry)
		assert.ErrorIs(t, err, ErrVendorMismatch)
	})

	t.Run("past date", func(t *testing.T) {
		inquiry := validInquiry(0, 1, "Alice", time.Now().AddDate(0, 0, -7))
		err := env.inquiries.Submit(ctx, inquiry)
		assert.ErrorIs(t, err, ErrPastDate)
	})

	t.Run("beyond horizon", func(t *testing.T) {
		inquiry := validInquiry(0, 1, "Alice", time.Now().AddDate(2, 0, 0))
		err := env.inquiries.Submit(ctx, inquiry)
		assert.ErrorIs(t, err, ErrDateTooFar)
	})
}

func TestAdvance(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	t.Run("pending to cancelled", func(t *testing.T) {
		inquiry := validInquiry(0, 1, "Alice", futureDate(10))
		require.NoError(t, env.inquiries.Submit(ctx, inquiry))

		updated, err := env.inquiries.Advance(ctx, inquiry.ID, inquiry.Version, models.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, updated.Status)
		assert.Equal(t, inquiry.Version+1, updated.Version)
	})

	t.Run("terminal state admits nothing", func(t *testing.T) {
		inquiry := validInquiry(0, 1, "Bob", futureDate(11))
		require.NoError(t, env.inquiries.Submit(ctx, inquiry))
		cancelled, err := env.inquiries.Advance(ctx, inquiry.ID, inquiry.Version, models.StatusCancelled)
		require.NoError(t, err)

		_, err = env.inquiries.Advance(ctx, inquiry.ID, cancelled.Version, models.StatusCompleted)
		assert.ErrorIs(t, err, database.ErrInvalidTransition)
	})

	t.Run("stale version", func(t *testing.T) {
		inquiry := validInquiry(0, 1, "Carol", futureDate(12))
		require.NoError(t, env.inquiries.Submit(ctx, inquiry))

		_, err := env.inquiries.Advance(ctx, inquiry.ID, inquiry.Version+9, models.StatusCancelled)
		assert.ErrorIs(t, err, database.ErrConcurrentModification)
	})

	t.Run("cancelling a confirmed inquiry frees the window", func(t *testing.T) {
		// Vendor 2's queue is otherwise empty in this test.
		inquiry := validInquiry(0, 3, "Dave", futureDate(13))
		require.NoError(t, env.inquiries.Submit(ctx, inquiry))

		result, err := env.admission.ConfirmOldest(ctx, 2)
		require.NoError(t, err)
		require.True(t, result.Admitted)
		bookingID := result.Booking.ID

		updated, err := env.inquiries.Advance(ctx, inquiry.ID, result.Inquiry.Version, models.StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, updated.Status)
		assert.Zero(t, updated.BookingID)

		_, err = env.db.GetBooking(ctx, bookingID)
		assert.ErrorIs(t, err, database.ErrNotFound)
		assert.Contains(t, env.sync.deletedIDs, bookingID)

		// The freed window is admittable again.
		available, err := env.bookings.CheckAvailability(ctx, "Old Warehouse", inquiry.EventDate, inquiry.DurationHours)
		require.NoError(t, err)
		assert.True(t, available)
	})
}

func TestListPersistsSortPreference(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	require.NoError(t, env.inquiries.Submit(ctx, validInquiry(0, 1, "Zoe", futureDate(10))))
	require.NoError(t, env.inquiries.Submit(ctx, validInquiry(0, 1, "Amy", futureDate(11))))

	// Explicit sort choice is remembered.
	list, err := env.inquiries.List(ctx, 1, models.SortByClient, models.SortDesc)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Zoe", list[0].ClientName)

	// Empty parameters fall back to the stored preference.
	list, err = env.inquiries.List(ctx, 1, "", "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Zoe", list[0].ClientName)

	// Another vendor starts from the arrival-order default.
	require.NoError(t, env.inquiries.Submit(ctx, validInquiry(0, 3, "Ben", futureDate(12))))
	list, err = env.inquiries.List(ctx, 2, "", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestCleanupTerminal(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	inquiry := validInquiry(0, 1, "Alice", futureDate(10))
	require.NoError(t, env.inquiries.Submit(ctx, inquiry))
	_, err := env.inquiries.Advance(ctx, inquiry.ID, inquiry.Version, models.StatusCancelled)
	require.NoError(t, err)

	pending := validInquiry(0, 1, "Bob", futureDate(11))
	require.NoError(t, env.inquiries.Submit(ctx, pending))

	// Zero grace period removes terminal rows immediately; pending stays.
	removed, err := env.inquiries.CleanupTerminal(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = env.db.GetInquiry(ctx, pending.ID)
	assert.NoError(t, err)
}
