package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venueq/internal/models"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	return db
}

func testInquiry(vendorID int64, client string) *models.Inquiry {
	return &models.Inquiry{
		VendorID:      vendorID,
		VenueID:       1,
		VenueName:     "Loft Hall",
		ClientName:    client,
		ClientEmail:   client + "@example.com",
		ClientPhone:   "+1-555-0100",
		EventType:     "wedding",
		EventName:     "Reception",
		EventDate:     time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC),
		DurationHours: 4,
		GuestCount:    80,
		Budget:        "5000-7000",
	}
}

func TestCreateAndGetInquiry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	inquiry := testInquiry(1, "Alice")
	err := db.CreateInquiry(ctx, inquiry)
	require.NoError(t, err)
	assert.NotZero(t, inquiry.ID)
	assert.Equal(t, models.StatusPending, inquiry.Status)
	assert.Equal(t, int64(1), inquiry.Version)
	assert.Zero(t, inquiry.BookingID)

	got, err := db.GetInquiry(ctx, inquiry.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", got.ClientName)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Equal(t, 4.0, got.DurationHours)
}

func TestGetInquiryNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	_, err := db.GetInquiry(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPeekOldestPendingOrder(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	// Same created_at resolution can collide; ids break the tie.
	first := testInquiry(1, "First")
	second := testInquiry(1, "Second")
	third := testInquiry(1, "Third")
	require.NoError(t, db.CreateInquiry(ctx, first))
	require.NoError(t, db.CreateInquiry(ctx, second))
	require.NoError(t, db.CreateInquiry(ctx, third))

	head, err := db.PeekOldestPending(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, first.ID, head.ID)

	// Resolving the head moves the peek to the next arrival.
	err = db.UpdateInquiryStatusWithVersion(ctx, first.ID, first.Version, models.StatusRejected, 0)
	require.NoError(t, err)

	head, err = db.PeekOldestPending(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, second.ID, head.ID)
}

func TestPeekOldestPendingEmptyQueue(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	head, err := db.PeekOldestPending(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestPeekOldestPendingScopedToVendor(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	other := testInquiry(2, "OtherVendor")
	mine := testInquiry(1, "Mine")
	require.NoError(t, db.CreateInquiry(ctx, other))
	require.NoError(t, db.CreateInquiry(ctx, mine))

	head, err := db.PeekOldestPending(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, mine.ID, head.ID)
}

func TestUpdateInquiryStatusWithVersion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	inquiry := testInquiry(1, "Alice")
	require.NoError(t, db.CreateInquiry(ctx, inquiry))

	t.Run("stale version", func(t *testing.T) {
		err := db.UpdateInquiryStatusWithVersion(ctx, inquiry.ID, inquiry.Version+5, models.StatusCancelled, 0)
		assert.ErrorIs(t, err, ErrConcurrentModification)
	})

	t.Run("illegal transition", func(t *testing.T) {
		err := db.UpdateInquiryStatusWithVersion(ctx, inquiry.ID, inquiry.Version, models.StatusCompleted, 0)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("legal transition bumps version", func(t *testing.T) {
		err := db.UpdateInquiryStatusWithVersion(ctx, inquiry.ID, inquiry.Version, models.StatusCancelled, 0)
		require.NoError(t, err)

		got, err := db.GetInquiry(ctx, inquiry.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, got.Status)
		assert.Equal(t, inquiry.Version+1, got.Version)
	})

	t.Run("terminal status is final", func(t *testing.T) {
		got, err := db.GetInquiry(ctx, inquiry.ID)
		require.NoError(t, err)
		err = db.UpdateInquiryStatusWithVersion(ctx, inquiry.ID, got.Version, models.StatusPending, 0)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestListInquiriesSorting(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	zoe := testInquiry(1, "Zoe")
	amy := testInquiry(1, "Amy")
	require.NoError(t, db.CreateInquiry(ctx, zoe))
	require.NoError(t, db.CreateInquiry(ctx, amy))

	t.Run("by client asc", func(t *testing.T) {
		list, err := db.ListInquiries(ctx, 1, models.SortByClient, models.SortAsc)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Amy", list[0].ClientName)
	})

	t.Run("by client desc", func(t *testing.T) {
		list, err := db.ListInquiries(ctx, 1, models.SortByClient, models.SortDesc)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Zoe", list[0].ClientName)
	})

	t.Run("unknown key falls back to arrival", func(t *testing.T) {
		list, err := db.ListInquiries(ctx, 1, "venue_name); DROP TABLE inquiries;--", models.SortAsc)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, zoe.ID, list[0].ID)
	})

	t.Run("display sort does not move the queue head", func(t *testing.T) {
		head, err := db.PeekOldestPending(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, head)
		assert.Equal(t, zoe.ID, head.ID)
	})
}

func TestDeleteTerminalInquiriesBefore(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	done := testInquiry(1, "Done")
	active := testInquiry(1, "Active")
	require.NoError(t, db.CreateInquiry(ctx, done))
	require.NoError(t, db.CreateInquiry(ctx, active))
	require.NoError(t, db.UpdateInquiryStatusWithVersion(ctx, done.ID, done.Version, models.StatusCancelled, 0))

	// Cutoff in the past removes nothing.
	removed, err := db.DeleteTerminalInquiriesBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed)

	// Cutoff in the future removes only the terminal one.
	removed, err = db.DeleteTerminalInquiriesBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = db.GetInquiry(ctx, done.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetInquiry(ctx, active.ID)
	assert.NoError(t, err)
}

func TestCountPendingInquiries(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ctx := context.Background()

	count, err := db.CountPendingInquiries(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, db.CreateInquiry(ctx, testInquiry(1, "A")))
	require.NoError(t, db.CreateInquiry(ctx, testInquiry(2, "B")))

	count, err = db.CountPendingInquiries(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
