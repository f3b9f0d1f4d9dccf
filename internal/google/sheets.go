package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"venueq/internal/models"
)

var errRowNotFound = errors.New("sheet row not found")

// SheetsService mirrors inquiries and bookings into two spreadsheets.
// Row positions are cached per sheet to avoid a full column scan on
// every upsert.
type SheetsService struct {
	service          *sheets.Service
	inquiriesSheetID string
	bookingsSheetID  string
	inquiryRowCache  map[int64]int
	bookingRowCache  map[int64]int
	cacheMu          sync.RWMutex
}

func NewSheetsService(credentialsFile, inquiriesSheetID, bookingsSheetID string) (*SheetsService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	service := &SheetsService{
		service:          srv,
		inquiriesSheetID: inquiriesSheetID,
		bookingsSheetID:  bookingsSheetID,
		inquiryRowCache:  make(map[int64]int),
		bookingRowCache:  make(map[int64]int),
	}

	// Warm up caches in background
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		service.WarmUpCache(ctx)
	}()

	// Periodic cache refresh every 1 hour
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			service.WarmUpCache(ctx)
			cancel()
		}
	}()

	return service, nil
}

// TestConnection проверяет доступ к обеим таблицам
func (s *SheetsService) TestConnection(ctx context.Context) error {
	for _, id := range []string{s.inquiriesSheetID, s.bookingsSheetID} {
		if id == "" {
			continue
		}
		if _, err := s.service.Spreadsheets.Get(id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("spreadsheet %s unreachable: %w", id, err)
		}
	}
	return nil
}

// WarmUpCache переcтраивает кеши позиций строк по колонке A
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	inquiries, err := s.scanIDColumn(ctx, s.inquiriesSheetID, "Inquiries!A:A")
	if err != nil {
		return err
	}
	bookings, err := s.scanIDColumn(ctx, s.bookingsSheetID, "Bookings!A:A")
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	s.inquiryRowCache = inquiries
	s.bookingRowCache = bookings
	s.cacheMu.Unlock()
	return nil
}

func (s *SheetsService) scanIDColumn(ctx context.Context, sheetID, rangeData string) (map[int64]int, error) {
	cache := make(map[int64]int)
	if sheetID == "" {
		return cache, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(sheetID, rangeData).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id := cellID(row[0]); id > 0 {
			cache[id] = i + 1
		}
	}
	return cache, nil
}

func inquiryRowValues(inquiry *models.Inquiry) []interface{} {
	return []interface{}{
		inquiry.ID,
		inquiry.VendorID,
		inquiry.VenueName,
		inquiry.ClientName,
		inquiry.ClientEmail,
		inquiry.ClientPhone,
		inquiry.EventType,
		inquiry.EventDate.Format("2006-01-02 15:04"),
		inquiry.DurationHours,
		inquiry.GuestCount,
		inquiry.Budget,
		inquiry.Status,
		inquiry.CreatedAt.Format("2006-01-02 15:04:05"),
		inquiry.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func bookingRowValues(booking *models.Booking) []interface{} {
	return []interface{}{
		booking.ID,
		booking.VenueID,
		booking.VenueName,
		booking.InquiryID,
		booking.Start.Format("2006-01-02 15:04"),
		booking.DurationHours,
		booking.End().Format("2006-01-02 15:04"),
		booking.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// UpsertInquiry updates the inquiry's row in place or appends a new one.
func (s *SheetsService) UpsertInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	if inquiry == nil {
		return fmt.Errorf("inquiry is nil")
	}

	rowIdx, err := s.findRow(ctx, s.inquiriesSheetID, "Inquiries", inquiry.ID, s.cachedInquiryRow, s.setInquiryRow)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return s.appendRow(ctx, s.inquiriesSheetID, "Inquiries!A:A", inquiryRowValues(inquiry))
		}
		return err
	}

	rangeData := fmt.Sprintf("Inquiries!A%d:N%d", rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.inquiriesSheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{inquiryRowValues(inquiry)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// UpsertBooking updates the booking's row in place or appends a new one.
func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return fmt.Errorf("booking is nil")
	}

	rowIdx, err := s.findRow(ctx, s.bookingsSheetID, "Bookings", booking.ID, s.cachedBookingRow, s.setBookingRow)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return s.appendRow(ctx, s.bookingsSheetID, "Bookings!A:A", bookingRowValues(booking))
		}
		return err
	}

	rangeData := fmt.Sprintf("Bookings!A%d:H%d", rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.bookingsSheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{bookingRowValues(booking)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// DeleteBookingRow clears the row that corresponds to bookingID.
func (s *SheetsService) DeleteBookingRow(ctx context.Context, bookingID int64) error {
	rowIdx, err := s.findRow(ctx, s.bookingsSheetID, "Bookings", bookingID, s.cachedBookingRow, s.setBookingRow)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return nil
		}
		return err
	}

	rangeData := fmt.Sprintf("Bookings!A%d:H%d", rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Clear(s.bookingsSheetID, rangeData, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err == nil {
		s.cacheMu.Lock()
		delete(s.bookingRowCache, bookingID)
		s.cacheMu.Unlock()
	}
	return err
}

func (s *SheetsService) appendRow(ctx context.Context, sheetID, rangeData string, row []interface{}) error {
	_, err := s.service.Spreadsheets.Values.Append(sheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// findRow locates the 1-based row index for id in column A, consulting the
// cache before scanning the sheet.
func (s *SheetsService) findRow(ctx context.Context, sheetID, sheetName string, id int64,
	cached func(int64) (int, bool), store func(int64, int)) (int, error) {
	if id == 0 {
		return 0, fmt.Errorf("record id is required")
	}

	if row, ok := cached(id); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(sheetID, sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cellID(row[0]) == id {
			rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
			store(id, rowIdx)
			return rowIdx, nil
		}
	}

	return 0, errRowNotFound
}

func cellID(v interface{}) int64 {
	switch val := v.(type) {
	case float64:
		return int64(val)
	case string:
		var id int64
		fmt.Sscanf(val, "%d", &id)
		return id
	}
	return 0
}

func (s *SheetsService) cachedInquiryRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.inquiryRowCache[id]
	return row, ok
}

func (s *SheetsService) setInquiryRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.inquiryRowCache[id] = row
}

func (s *SheetsService) cachedBookingRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.bookingRowCache[id]
	return row, ok
}

func (s *SheetsService) setBookingRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.bookingRowCache[id] = row
}
