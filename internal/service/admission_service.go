package service

import (
	"context"
	"errors"
	"time"

	"venueq/internal/database"
	"venueq/internal/domain"
	"venueq/internal/events"
	"venueq/internal/metrics"
	"venueq/internal/models"
	"venueq/internal/schedule"
	"venueq/internal/worker"

	"github.com/rs/zerolog"
)

// AdmissionResult reports the outcome of one confirm-oldest attempt.
type AdmissionResult struct {
	Admitted bool            `json:"admitted"`
	Conflict bool            `json:"conflict,omitempty"`
	Inquiry  *models.Inquiry `json:"inquiry,omitempty"`
	Booking  *models.Booking `json:"booking,omitempty"`
}

// AdmissionService is the only component that turns a pending inquiry into
// a booking. Double-booking prevention rests on the store's conditional
// insert: the pre-check here only short-circuits the common case, the
// transaction re-checks before committing.
type AdmissionService struct {
	store      domain.Store
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	readRetry  worker.RetryPolicy
	logger     *zerolog.Logger
}

func NewAdmissionService(store domain.Store, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, logger *zerolog.Logger) *AdmissionService {
	return &AdmissionService{
		store:      store,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		readRetry:  worker.ReadRetryPolicy(),
		logger:     logger,
	}
}

// ConfirmOldest admits or rejects the arrival-order head of the vendor's
// pending queue. An empty queue is a normal outcome, not an error. The
// head is recomputed on every call, so a retry after a failed commit
// operates on current state.
func (s *AdmissionService) ConfirmOldest(ctx context.Context, vendorID int64) (AdmissionResult, error) {
	inquiry, err := s.store.PeekOldestPending(ctx, vendorID)
	if err != nil {
		metrics.IncAdmission("error")
		return AdmissionResult{}, err
	}
	if inquiry == nil {
		metrics.IncAdmission("empty")
		return AdmissionResult{Admitted: false}, nil
	}

	existing, err := s.getBookingsWithRetry(ctx, inquiry.VenueID)
	if err != nil {
		metrics.IncAdmission("error")
		return AdmissionResult{}, err
	}

	if schedule.Overlaps(existing, inquiry.EventDate, inquiry.DurationHours) {
		return s.reject(ctx, inquiry)
	}

	// Commit point: past this transaction nothing is abandoned, before it
	// cancellation leaves no trace.
	if err := ctx.Err(); err != nil {
		metrics.IncAdmission("error")
		return AdmissionResult{}, err
	}

	booking := &models.Booking{
		VenueID:       inquiry.VenueID,
		VenueName:     inquiry.VenueName,
		Start:         inquiry.EventDate,
		DurationHours: inquiry.DurationHours,
	}
	err = s.store.ConfirmInquiryBooking(ctx, inquiry, booking)
	if errors.Is(err, database.ErrBookingConflict) {
		// Lost the race to a concurrent admission for the same venue.
		return s.reject(ctx, inquiry)
	}
	if err != nil {
		// The transaction rolled back; the inquiry is still pending and the
		// next call will pick it up again.
		metrics.IncAdmission("error")
		return AdmissionResult{}, err
	}

	metrics.IncAdmission("admitted")
	s.publishConfirmed(inquiry, booking)
	s.enqueueSync(ctx, inquiry, booking)

	return AdmissionResult{Admitted: true, Inquiry: inquiry, Booking: booking}, nil
}

// reject advances a conflicting inquiry to rejected so the queue head moves
// on. Rejection, not deferral: the operator sees the outcome and the client
// can resubmit with a new window.
func (s *AdmissionService) reject(ctx context.Context, inquiry *models.Inquiry) (AdmissionResult, error) {
	err := s.store.UpdateInquiryStatusWithVersion(ctx, inquiry.ID, inquiry.Version, models.StatusRejected, 0)
	if err != nil {
		metrics.IncAdmission("error")
		return AdmissionResult{}, err
	}
	inquiry.Status = models.StatusRejected
	inquiry.Version++

	metrics.IncAdmission("conflict")
	s.publishRejected(inquiry)
	s.enqueueSync(ctx, inquiry, nil)

	return AdmissionResult{Admitted: false, Conflict: true, Inquiry: inquiry}, nil
}

// getBookingsWithRetry retries the idempotent calendar read a bounded
// number of times. The conditional insert is never blindly retried: the
// transaction re-checks the calendar itself.
func (s *AdmissionService) getBookingsWithRetry(ctx context.Context, venueID int64) ([]models.Booking, error) {
	var lastErr error
	for attempt := 1; attempt <= s.readRetry.MaxRetries; attempt++ {
		bookings, err := s.store.GetBookings(ctx, venueID)
		if err == nil {
			return bookings, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.readRetry.NextDelay(attempt)):
		}
	}
	return nil, lastErr
}

func (s *AdmissionService) publishConfirmed(inquiry *models.Inquiry, booking *models.Booking) {
	if s.eventBus == nil {
		return
	}

	inqPayload := events.InquiryEventPayload{
		InquiryID:  inquiry.ID,
		VendorID:   inquiry.VendorID,
		VenueID:    inquiry.VenueID,
		VenueName:  inquiry.VenueName,
		ClientName: inquiry.ClientName,
		EventType:  inquiry.EventType,
		EventDate:  inquiry.EventDate,
		Status:     inquiry.Status,
		BookingID:  booking.ID,

		BookingStart:  booking.Start,
		DurationHours: booking.DurationHours,
	}
	if err := s.eventBus.PublishJSON(events.EventInquiryConfirmed, inqPayload); err != nil {
		s.logger.Error().Err(err).Int64("inquiry_id", inquiry.ID).Msg("publish event error")
	}

	bookPayload := events.BookingEventPayload{
		BookingID:     booking.ID,
		VenueID:       booking.VenueID,
		VenueName:     booking.VenueName,
		InquiryID:     inquiry.ID,
		Start:         booking.Start,
		DurationHours: booking.DurationHours,
	}
	if err := s.eventBus.PublishJSON(events.EventBookingCreated, bookPayload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *AdmissionService) publishRejected(inquiry *models.Inquiry) {
	if s.eventBus == nil {
		return
	}

	payload := events.InquiryEventPayload{
		InquiryID:  inquiry.ID,
		VendorID:   inquiry.VendorID,
		VenueID:    inquiry.VenueID,
		VenueName:  inquiry.VenueName,
		ClientName: inquiry.ClientName,
		EventType:  inquiry.EventType,
		EventDate:  inquiry.EventDate,
		Status:     inquiry.Status,
		Reason:     "requested window overlaps an existing booking",
	}
	if err := s.eventBus.PublishJSON(events.EventInquiryRejected, payload); err != nil {
		s.logger.Error().Err(err).Int64("inquiry_id", inquiry.ID).Msg("publish event error")
	}
}

func (s *AdmissionService) enqueueSync(ctx context.Context, inquiry *models.Inquiry, booking *models.Booking) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueInquiry(ctx, inquiry); err != nil {
		s.logger.Error().Err(err).Int64("inquiry_id", inquiry.ID).Msg("sync enqueue error")
	}
	if booking != nil {
		if err := s.syncWorker.EnqueueBooking(ctx, booking); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sync enqueue error")
		}
	}
}
