package notify

import (
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"venueq/internal/config"
	"venueq/internal/events"
	"venueq/internal/models"
)

// TelegramNotifier pushes admission outcomes to per-vendor Telegram chats.
// Vendors without a configured chat are skipped silently.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chats  map[int64]int64
	logger zerolog.Logger
}

func NewTelegramNotifier(cfg config.TelegramConfig, logger *zerolog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	api.Debug = cfg.Debug

	return &TelegramNotifier{
		api:    api,
		chats:  cfg.VendorChats,
		logger: logger.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

func (n *TelegramNotifier) NotifyAdmitted(inquiry *models.Inquiry, booking *models.Booking) {
	if inquiry == nil || booking == nil {
		return
	}
	text := fmt.Sprintf(
		"✅ Заявка #%d подтверждена\nПлощадка: %s\nКлиент: %s\nДата: %s (%.1f ч)",
		inquiry.ID, inquiry.VenueName, inquiry.ClientName,
		booking.Start.Format("02.01.2006 15:04"), booking.DurationHours,
	)
	n.send(inquiry.VendorID, text)
}

func (n *TelegramNotifier) NotifyRejected(inquiry *models.Inquiry, reason string) {
	if inquiry == nil {
		return
	}
	text := fmt.Sprintf(
		"❌ Заявка #%d отклонена\nПлощадка: %s\nКлиент: %s\nПричина: %s",
		inquiry.ID, inquiry.VenueName, inquiry.ClientName, reason,
	)
	n.send(inquiry.VendorID, text)
}

func (n *TelegramNotifier) send(vendorID int64, text string) {
	chatID, ok := n.chats[vendorID]
	if !ok {
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		n.logger.Error().Err(err).Int64("vendor_id", vendorID).Int64("chat_id", chatID).Msg("notify: send error")
	}
}

// Subscribe wires the notifier to admission outcome events on the bus.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventInquiryConfirmed, func(event *events.Event) error {
		inquiry, payload, err := decodeInquiryEvent(event)
		if err != nil {
			n.logger.Error().Err(err).Str("event", event.Type).Msg("notify: bad payload")
			return err
		}
		booking := &models.Booking{
			ID:            payload.BookingID,
			VenueID:       payload.VenueID,
			VenueName:     payload.VenueName,
			InquiryID:     payload.InquiryID,
			Start:         payload.BookingStart,
			DurationHours: payload.DurationHours,
		}
		n.NotifyAdmitted(inquiry, booking)
		return nil
	})

	bus.Subscribe(events.EventInquiryRejected, func(event *events.Event) error {
		inquiry, payload, err := decodeInquiryEvent(event)
		if err != nil {
			n.logger.Error().Err(err).Str("event", event.Type).Msg("notify: bad payload")
			return err
		}
		n.NotifyRejected(inquiry, payload.Reason)
		return nil
	})
}

func decodeInquiryEvent(event *events.Event) (*models.Inquiry, *events.InquiryEventPayload, error) {
	var payload events.InquiryEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return nil, nil, err
	}
	inquiry := &models.Inquiry{
		ID:         payload.InquiryID,
		VendorID:   payload.VendorID,
		VenueID:    payload.VenueID,
		VenueName:  payload.VenueName,
		ClientName: payload.ClientName,
		EventType:  payload.EventType,
		EventDate:  payload.EventDate,
		Status:     payload.Status,
		BookingID:  payload.BookingID,
	}
	return inquiry, &payload, nil
}
