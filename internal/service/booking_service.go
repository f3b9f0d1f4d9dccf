package service

import (
	"context"
	"fmt"
	"time"

	"venueq/internal/domain"
	"venueq/internal/events"
	"venueq/internal/models"
	"venueq/internal/schedule"

	"github.com/rs/zerolog"
)

// BookingService covers the direct booking path and calendar reads. Direct
// bookings go through the same conditional insert as admissions, so the
// no-overlap invariant holds across both entry points.
type BookingService struct {
	store          domain.Store
	eventBus       domain.EventPublisher
	syncWorker     domain.SyncWorker
	maxAdvanceDays int
	logger         *zerolog.Logger
}

func NewBookingService(store domain.Store, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, maxAdvanceDays int, logger *zerolog.Logger) *BookingService {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = 365
	}
	return &BookingService{
		store:          store,
		eventBus:       eventBus,
		syncWorker:     syncWorker,
		maxAdvanceDays: maxAdvanceDays,
		logger:         logger,
	}
}

// CreateDirect books a venue window without an inquiry. Returns
// database.ErrBookingConflict when the window is taken.
func (s *BookingService) CreateDirect(ctx context.Context, booking *models.Booking) error {
	if booking.DurationHours <= 0 {
		return &models.ValidationError{Fields: map[string]string{"duration_hours": "must be greater than zero"}}
	}
	if booking.Start.IsZero() {
		return &models.ValidationError{Fields: map[string]string{"start": "is required"}}
	}
	if booking.Start.Before(time.Now().AddDate(0, 0, -1)) {
		return ErrPastDate
	}
	if booking.Start.After(time.Now().AddDate(0, 0, s.maxAdvanceDays)) {
		return ErrDateTooFar
	}

	venue, err := s.store.GetVenueByID(booking.VenueID)
	if err != nil {
		return err
	}
	booking.VenueName = venue.Name

	if err := s.store.InsertBookingIfNoConflict(ctx, booking); err != nil {
		return err
	}

	s.publishCreated(booking)
	s.enqueueBookingSync(ctx, booking)

	return nil
}

// Cancel removes a booking outright.
func (s *BookingService) Cancel(ctx context.Context, id int64) error {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteBooking(ctx, id); err != nil {
		return err
	}

	if s.eventBus != nil {
		payload := events.BookingEventPayload{
			BookingID: booking.ID,
			VenueID:   booking.VenueID,
			VenueName: booking.VenueName,
			InquiryID: booking.InquiryID,
			Start:     booking.Start,
		}
		if err := s.eventBus.PublishJSON(events.EventBookingCancelled, payload); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", id).Msg("publish event error")
		}
	}
	if s.syncWorker != nil {
		if err := s.syncWorker.EnqueueBookingDelete(ctx, id); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", id).Msg("sync enqueue error")
		}
	}

	return nil
}

// CheckAvailability reports whether the window on the named venue is free.
func (s *BookingService) CheckAvailability(ctx context.Context, venueName string, start time.Time, durationHours float64) (bool, error) {
	if durationHours <= 0 {
		return false, &models.ValidationError{Fields: map[string]string{"duration_hours": "must be greater than zero"}}
	}

	venue, err := s.store.GetVenueByName(venueName)
	if err != nil {
		return false, err
	}

	existing, err := s.store.GetBookings(ctx, venue.ID)
	if err != nil {
		return false, fmt.Errorf("failed to read venue calendar: %w", err)
	}

	return !schedule.Overlaps(existing, start, durationHours), nil
}

// GetBookings returns the venue's calendar.
func (s *BookingService) GetBookings(ctx context.Context, venueID int64) ([]models.Booking, error) {
	return s.store.GetBookings(ctx, venueID)
}

// GetDailyBookings groups bookings by day, used by exports.
func (s *BookingService) GetDailyBookings(ctx context.Context, start, end time.Time) (map[string][]models.Booking, error) {
	return s.store.GetDailyBookings(ctx, start, end)
}

func (s *BookingService) publishCreated(booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:     booking.ID,
		VenueID:       booking.VenueID,
		VenueName:     booking.VenueName,
		InquiryID:     booking.InquiryID,
		Start:         booking.Start,
		DurationHours: booking.DurationHours,
	}
	if err := s.eventBus.PublishJSON(events.EventBookingCreated, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueBookingSync(ctx context.Context, booking *models.Booking) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueBooking(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sync enqueue error")
	}
}
