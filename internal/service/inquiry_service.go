package service

import (
	"context"
	"fmt"
	"time"

	"venueq/internal/database"
	"venueq/internal/domain"
	"venueq/internal/events"
	"venueq/internal/models"

	"github.com/rs/zerolog"
)

// InquiryService maintains the per-vendor inquiry queue: submission,
// status transitions, removal and the display view. Admission itself is
// the AdmissionService's job; this service never decides admit/reject.
type InquiryService struct {
	store          domain.Store
	states         domain.StateRepository
	eventBus       domain.EventPublisher
	syncWorker     domain.SyncWorker
	maxAdvanceDays int
	logger         *zerolog.Logger
}

func NewInquiryService(store domain.Store, states domain.StateRepository, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, maxAdvanceDays int, logger *zerolog.Logger) *InquiryService {
	if maxAdvanceDays <= 0 {
		maxAdvanceDays = 365
	}
	return &InquiryService{
		store:          store,
		states:         states,
		eventBus:       eventBus,
		syncWorker:     syncWorker,
		maxAdvanceDays: maxAdvanceDays,
		logger:         logger,
	}
}

// ValidateEventDate rejects past dates and dates beyond the horizon.
func (s *InquiryService) ValidateEventDate(date time.Time) error {
	if date.Before(time.Now().AddDate(0, 0, -1)) {
		return ErrPastDate
	}

	maxDate := time.Now().AddDate(0, 0, s.maxAdvanceDays)
	if date.After(maxDate) {
		return ErrDateTooFar
	}

	return nil
}

// Submit validates and enqueues a new inquiry as pending. The store assigns
// the id and arrival timestamp; the caller's inquiry is updated in place.
func (s *InquiryService) Submit(ctx context.Context, inquiry *models.Inquiry) error {
	venue, err := s.store.GetVenueByID(inquiry.VenueID)
	if err == nil {
		inquiry.VenueName = venue.Name
		if inquiry.VendorID == 0 {
			inquiry.VendorID = venue.VendorID
		}
	}

	if err := inquiry.Validate(); err != nil {
		return err
	}
	if venue.ID == 0 {
		return fmt.Errorf("venue %d: %w", inquiry.VenueID, database.ErrVenueNotFound)
	}
	if inquiry.VendorID != venue.VendorID {
		return ErrVendorMismatch
	}
	if err := s.ValidateEventDate(inquiry.EventDate); err != nil {
		return err
	}

	if err := s.store.CreateInquiry(ctx, inquiry); err != nil {
		return err
	}

	s.publishEvent(events.EventInquirySubmitted, *inquiry, "")
	s.enqueueInquirySync(ctx, inquiry)

	return nil
}

// PeekOldest returns the arrival-order head of the vendor's pending
// inquiries, or nil when the queue is empty. The result is computed fresh
// from current pending state on every call.
func (s *InquiryService) PeekOldest(ctx context.Context, vendorID int64) (*models.Inquiry, error) {
	return s.store.PeekOldestPending(ctx, vendorID)
}

// Advance transitions an inquiry's status along a legal edge. Cancelling a
// confirmed inquiry also removes its booking: cancellation deletes the
// occupancy, it never reshapes it.
func (s *InquiryService) Advance(ctx context.Context, id, version int64, newStatus string) (*models.Inquiry, error) {
	current, err := s.store.GetInquiry(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(current.Status, newStatus) {
		return nil, fmt.Errorf("%s -> %s: %w", current.Status, newStatus, database.ErrInvalidTransition)
	}

	bookingID := current.BookingID
	if newStatus == models.StatusCancelled {
		bookingID = 0
	}
	if err := s.store.UpdateInquiryStatusWithVersion(ctx, id, version, newStatus, bookingID); err != nil {
		return nil, err
	}

	if newStatus == models.StatusCancelled && current.BookingID != 0 {
		if err := s.store.DeleteBooking(ctx, current.BookingID); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", current.BookingID).Msg("release booking on cancellation")
		} else {
			s.publishBookingCancelled(current.BookingID, current)
			s.enqueueBookingDelete(ctx, current.BookingID)
		}
	}

	updated, err := s.store.GetInquiry(ctx, id)
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case models.StatusCancelled:
		s.publishEvent(events.EventInquiryCancelled, *updated, "")
	case models.StatusCompleted:
		s.publishEvent(events.EventInquiryCompleted, *updated, "")
	}
	s.enqueueInquirySync(ctx, updated)

	return updated, nil
}

// Remove deletes an inquiry from the active set.
func (s *InquiryService) Remove(ctx context.Context, id int64) error {
	return s.store.DeleteInquiry(ctx, id)
}

// List returns the vendor's inquiries sorted for display and remembers the
// chosen sort as the operator's preference. Display order is cosmetic:
// admission always uses arrival order regardless of what this returns.
func (s *InquiryService) List(ctx context.Context, vendorID int64, sortKey, dir string) ([]models.Inquiry, error) {
	if sortKey == "" || dir == "" {
		if state, err := s.states.GetState(ctx, vendorID); err == nil && state != nil {
			if sortKey == "" {
				sortKey = state.SortKey
			}
			if dir == "" {
				dir = state.SortDir
			}
		}
	}
	if sortKey == "" {
		sortKey = models.SortByArrival
	}
	if dir != models.SortDesc {
		dir = models.SortAsc
	}

	inquiries, err := s.store.ListInquiries(ctx, vendorID, sortKey, dir)
	if err != nil {
		return nil, err
	}

	if err := s.states.SetState(ctx, &models.OperatorState{
		VendorID:  vendorID,
		SortKey:   sortKey,
		SortDir:   dir,
		UpdatedAt: time.Now(),
	}); err != nil {
		s.logger.Warn().Err(err).Int64("vendor_id", vendorID).Msg("persist sort preference")
	}

	return inquiries, nil
}

// CleanupTerminal removes terminal inquiries past the grace period.
func (s *InquiryService) CleanupTerminal(ctx context.Context, gracePeriod time.Duration) (int64, error) {
	cutoff := time.Now().Add(-gracePeriod)
	return s.store.DeleteTerminalInquiriesBefore(ctx, cutoff)
}

func (s *InquiryService) publishEvent(eventType string, inquiry models.Inquiry, reason string) {
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
		BookingID:  inquiry.BookingID,
		Reason:     reason,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("inquiry_id", inquiry.ID).Msg("publish event error")
	}
}

func (s *InquiryService) publishBookingCancelled(bookingID int64, inquiry *models.Inquiry) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID: bookingID,
		VenueID:   inquiry.VenueID,
		VenueName: inquiry.VenueName,
		InquiryID: inquiry.ID,
	}
	if err := s.eventBus.PublishJSON(events.EventBookingCancelled, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("publish event error")
	}
}

func (s *InquiryService) enqueueInquirySync(ctx context.Context, inquiry *models.Inquiry) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueInquiry(ctx, inquiry); err != nil {
		s.logger.Error().Err(err).Int64("inquiry_id", inquiry.ID).Msg("sync enqueue error")
	}
}

func (s *InquiryService) enqueueBookingDelete(ctx context.Context, bookingID int64) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueBookingDelete(ctx, bookingID); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("sync enqueue error")
	}
}
