package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"venueq/internal/domain"
	"venueq/internal/models"
)

// ScheduleExporter renders the venue calendar as an xlsx grid: one row
// per venue, one column per day, bookings listed inside the cells.
type ScheduleExporter struct {
	store  domain.Store
	path   string
	logger zerolog.Logger
}

func NewScheduleExporter(store domain.Store, path string, logger *zerolog.Logger) *ScheduleExporter {
	return &ScheduleExporter{
		store:  store,
		path:   path,
		logger: logger.With().Str("component", "schedule_exporter").Logger(),
	}
}

// Export создает Excel файл с расписанием площадок за период
func (e *ScheduleExporter) Export(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if endDate.Before(startDate) {
		return "", fmt.Errorf("end date %s is before start date %s",
			endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	dailyBookings, err := e.store.GetDailyBookings(ctx, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	venues := e.store.GetVenues()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Расписание"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Период: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	dateHeaders := e.writeDateHeaders(f, sheetName, startDate, endDate)
	e.writeVenueHeaders(f, sheetName, venues)
	e.writeBookingCells(f, sheetName, dailyBookings, venues, dateHeaders)

	_ = f.SetColWidth(sheetName, "A", "A", 25)
	for i := 'B'; i <= 'Z'; i++ {
		_ = f.SetColWidth(sheetName, string(i), string(i), 22)
	}

	lastCol, _ := excelize.ColumnNumberToName(len(dateHeaders) + 1)
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", style)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"),
		endDate.Format("2006-01-02"))
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Msg("Excel file created")
	return filePath, nil
}

func (e *ScheduleExporter) writeDateHeaders(f *excelize.File, sheetName string, startDate, endDate time.Time) map[string]int {
	col := 2
	currentDate := startDate
	dateHeaders := make(map[string]int)

	for !currentDate.After(endDate) {
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(sheetName, cell, currentDate.Format("02.01"))
		dateHeaders[currentDate.Format("2006-01-02")] = col

		style, _ := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		col++
		currentDate = currentDate.AddDate(0, 0, 1)
	}
	return dateHeaders
}

func (e *ScheduleExporter) writeVenueHeaders(f *excelize.File, sheetName string, venues []models.Venue) {
	row := 3
	for _, venue := range venues {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetCellValue(sheetName, cell, fmt.Sprintf("%s (до %d чел.)", venue.Name, venue.Capacity))

		style, _ := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
			Font: &excelize.Font{Bold: true},
		})
		_ = f.SetCellStyle(sheetName, cell, cell, style)

		row++
	}
}

func (e *ScheduleExporter) writeBookingCells(
	f *excelize.File, sheetName string,
	dailyBookings map[string][]models.Booking,
	venues []models.Venue,
	dateHeaders map[string]int,
) {
	busyStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#FCE4EC"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	freeStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})

	for dateKey, bookings := range dailyBookings {
		col, exists := dateHeaders[dateKey]
		if !exists {
			continue
		}

		byVenue := make(map[int64][]models.Booking)
		for _, booking := range bookings {
			byVenue[booking.VenueID] = append(byVenue[booking.VenueID], booking)
		}

		row := 3
		for _, venue := range venues {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			venueBookings := byVenue[venue.ID]

			if len(venueBookings) > 0 {
				var cellValue string
				for _, booking := range venueBookings {
					cellValue += fmt.Sprintf("%s - %s\n",
						booking.Start.Format("15:04"), booking.End().Format("15:04"))
				}
				_ = f.SetCellValue(sheetName, cell, cellValue)
				_ = f.SetCellStyle(sheetName, cell, cell, busyStyle)
			} else {
				_ = f.SetCellValue(sheetName, cell, "Свободно")
				_ = f.SetCellStyle(sheetName, cell, cell, freeStyle)
			}
			row++
		}
	}
}
