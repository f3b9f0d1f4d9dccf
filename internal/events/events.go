package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventInquirySubmitted = "inquiry_submitted"
	EventInquiryConfirmed = "inquiry_confirmed"
	EventInquiryRejected  = "inquiry_rejected"
	EventInquiryCancelled = "inquiry_cancelled"
	EventInquiryCompleted = "inquiry_completed"
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
)

// InquiryEventPayload describes the minimal inquiry snapshot for event consumers.
type InquiryEventPayload struct {
	InquiryID  int64     `json:"inquiry_id"`
	VendorID   int64     `json:"vendor_id"`
	VenueID    int64     `json:"venue_id"`
	VenueName  string    `json:"venue_name"`
	ClientName string    `json:"client_name"`
	EventType  string    `json:"event_type"`
	EventDate  time.Time `json:"event_date"`
	Status     string    `json:"status"`
	BookingID  int64     `json:"booking_id,omitempty"`
	// BookingStart and DurationHours are filled on confirmation events
	// so consumers do not need to join booking_created.
	BookingStart  time.Time `json:"booking_start,omitempty"`
	DurationHours float64   `json:"duration_hours,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	ChangedBy     string    `json:"changed_by,omitempty"`
	ChangedByID   int64     `json:"changed_by_id,omitempty"`
}

// BookingEventPayload describes a booking write for event consumers.
type BookingEventPayload struct {
	BookingID     int64     `json:"booking_id"`
	VenueID       int64     `json:"venue_id"`
	VenueName     string    `json:"venue_name"`
	InquiryID     int64     `json:"inquiry_id,omitempty"`
	Start         time.Time `json:"start"`
	DurationHours float64   `json:"duration_hours"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
	Processed bool
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
