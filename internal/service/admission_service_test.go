package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venueq/internal/events"
	"venueq/internal/models"
)

func TestConfirmOldestEmptyQueue(t *testing.T) {
	env := setupEnv(t)

	result, err := env.admission.ConfirmOldest(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, result.Admitted)
	assert.False(t, result.Conflict)
	assert.Nil(t, result.Inquiry)
}

func TestConfirmOldestAdmitsHead(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	var confirmed []*events.Event
	env.bus.Subscribe(events.EventInquiryConfirmed, func(e *events.Event) error {
		confirmed = append(confirmed, e)
		return nil
	})

	first := validInquiry(0, 1, "First", futureDate(14))
	second := validInquiry(0, 1, "Second", futureDate(10))
	require.NoError(t, env.inquiries.Submit(ctx, first))
	require.NoError(t, env.inquiries.Submit(ctx, second))

	result, err := env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)

	require.True(t, result.Admitted)
	require.NotNil(t, result.Inquiry)
	require.NotNil(t, result.Booking)
	// Arrival order decides, not event date or display sort.
	assert.Equal(t, first.ID, result.Inquiry.ID)
	assert.Equal(t, models.StatusConfirmed, result.Inquiry.Status)
	assert.Equal(t, first.EventDate, result.Booking.Start.UTC())
	assert.Equal(t, first.DurationHours, result.Booking.DurationHours)
	assert.Equal(t, first.ID, result.Booking.InquiryID)

	assert.Len(t, confirmed, 1)
	assert.Contains(t, env.sync.bookingIDs, result.Booking.ID)

	// Second is still pending and becomes the new head.
	head, err := env.inquiries.PeekOldest(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, second.ID, head.ID)
}

func TestConfirmOldestRejectsOnConflict(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	var rejected []*events.Event
	env.bus.Subscribe(events.EventInquiryRejected, func(e *events.Event) error {
		rejected = append(rejected, e)
		return nil
	})

	window := futureDate(14)
	blocker := validInquiry(0, 1, "Blocker", window)
	loser := validInquiry(0, 1, "Loser", window.Add(time.Hour))
	require.NoError(t, env.inquiries.Submit(ctx, blocker))
	require.NoError(t, env.inquiries.Submit(ctx, loser))

	// First call admits the blocker.
	result, err := env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)
	require.True(t, result.Admitted)

	// Second call finds the overlapping head and rejects it.
	result, err = env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)
	assert.False(t, result.Admitted)
	assert.True(t, result.Conflict)
	require.NotNil(t, result.Inquiry)
	assert.Equal(t, loser.ID, result.Inquiry.ID)
	assert.Equal(t, models.StatusRejected, result.Inquiry.Status)

	assert.Len(t, rejected, 1)

	// Rejection moved the head on; the queue is now empty.
	result, err = env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)
	assert.False(t, result.Admitted)
	assert.False(t, result.Conflict)
}

func TestConfirmOldestTouchingWindowsAdmitBoth(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	window := futureDate(14)
	first := validInquiry(0, 1, "First", window)
	adjacent := validInquiry(0, 1, "Adjacent", window.Add(4*time.Hour)) // starts exactly at first's end
	require.NoError(t, env.inquiries.Submit(ctx, first))
	require.NoError(t, env.inquiries.Submit(ctx, adjacent))

	result, err := env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)
	assert.True(t, result.Admitted)

	result, err = env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)
	assert.True(t, result.Admitted)
	assert.Equal(t, adjacent.ID, result.Inquiry.ID)
}

func TestConfirmOldestScopedToVendor(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	other := validInquiry(0, 3, "OtherVendor", futureDate(14))
	require.NoError(t, env.inquiries.Submit(ctx, other))

	// Vendor 1 has nothing to confirm; vendor 2's inquiry is untouched.
	result, err := env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)
	assert.False(t, result.Admitted)

	head, err := env.inquiries.PeekOldest(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, other.ID, head.ID)
}

func TestConfirmOldestDifferentVenuesDoNotConflict(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	window := futureDate(14)
	loft := validInquiry(0, 1, "Loft", window)
	garden := validInquiry(0, 2, "Garden", window)
	require.NoError(t, env.inquiries.Submit(ctx, loft))
	require.NoError(t, env.inquiries.Submit(ctx, garden))

	result, err := env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)
	assert.True(t, result.Admitted)

	result, err = env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)
	assert.True(t, result.Admitted, "same window on another venue must admit")
}

func TestConfirmOldestCancelledContext(t *testing.T) {
	env := setupEnv(t)
	ctx := context.Background()

	inquiry := validInquiry(0, 1, "Alice", futureDate(14))
	require.NoError(t, env.inquiries.Submit(ctx, inquiry))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := env.admission.ConfirmOldest(cancelled, 1)
	require.Error(t, err)

	// Nothing was abandoned mid-flight: the inquiry is still pending and
	// a retry with a live context admits it.
	head, err := env.inquiries.PeekOldest(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, models.StatusPending, head.Status)

	result, err := env.admission.ConfirmOldest(ctx, 1)
	require.NoError(t, err)
	assert.True(t, result.Admitted)
}
