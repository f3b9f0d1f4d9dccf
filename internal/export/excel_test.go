package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"venueq/internal/database"
	"venueq/internal/models"
)

func setupExporter(t *testing.T) (*ScheduleExporter, *database.DB, string) {
	t.Helper()

	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetVenues([]models.Venue{
		{ID: 1, Name: "Loft Hall", VendorID: 1, Capacity: 80, SortOrder: 1, IsActive: true},
		{ID: 2, Name: "Garden Pavilion", VendorID: 1, Capacity: 150, SortOrder: 2, IsActive: true},
	})

	dir := t.TempDir()
	return NewScheduleExporter(db, dir, &logger), db, dir
}

func TestExport(t *testing.T) {
	exporter, db, dir := setupExporter(t)
	ctx := context.Background()

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)

	booking := &models.Booking{
		VenueID:       1,
		Start:         start.Add(14 * time.Hour),
		DurationHours: 4,
	}
	require.NoError(t, db.InsertBookingIfNoConflict(ctx, booking))

	path, err := exporter.Export(ctx, start, end)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "schedule_2026-09-07_to_2026-09-13.xlsx"), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	require.Contains(t, f.GetSheetList(), "Расписание")

	// Row 2 holds the date headers, column B is the first day.
	header, err := f.GetCellValue("Расписание", "B2")
	require.NoError(t, err)
	assert.Equal(t, "07.09", header)

	venueCell, err := f.GetCellValue("Расписание", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Loft Hall (до 80 чел.)", venueCell)

	// The booked window shows in the first venue's first-day cell, the
	// idle venue shows as free.
	busy, err := f.GetCellValue("Расписание", "B3")
	require.NoError(t, err)
	assert.Contains(t, busy, "14:00 - 18:00")

	free, err := f.GetCellValue("Расписание", "B4")
	require.NoError(t, err)
	assert.Equal(t, "Свободно", free)
}

func TestExportEndBeforeStart(t *testing.T) {
	exporter, _, _ := setupExporter(t)

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	_, err := exporter.Export(context.Background(), start, start.AddDate(0, 0, -1))
	assert.Error(t, err)
}
