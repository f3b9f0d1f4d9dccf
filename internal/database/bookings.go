package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"venueq/internal/models"
	"venueq/internal/schedule"
)

const bookingColumns = `id, venue_id, venue_name, inquiry_id, start, duration_hours, created_at`

// GetBookings returns the venue's calendar ordered by start.
func (db *DB) GetBookings(ctx context.Context, venueID int64) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE venue_id = ? ORDER BY start ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// InsertBookingIfNoConflict performs the atomic conditional write: the
// overlap check and the insert run in one transaction, so two racing
// inserts for the same venue cannot both succeed. Returns
// ErrBookingConflict when the window is taken.
func (db *DB) InsertBookingIfNoConflict(ctx context.Context, booking *models.Booking) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertBookingTx(ctx, tx, booking); err != nil {
		return err
	}

	return tx.Commit()
}

// ConfirmInquiryBooking is the admission commit point: it inserts the
// booking and advances the inquiry to confirmed in a single transaction.
// Either both writes become visible or neither does. The overlap check is
// re-run inside the transaction so a booking committed after the caller's
// pre-check still rejects this admission.
func (db *DB) ConfirmInquiryBooking(ctx context.Context, inquiry *models.Inquiry, booking *models.Booking) error {
	if !models.CanTransition(inquiry.Status, models.StatusConfirmed) {
		return fmt.Errorf("%s -> %s: %w", inquiry.Status, models.StatusConfirmed, ErrInvalidTransition)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking.InquiryID = inquiry.ID
	if err := insertBookingTx(ctx, tx, booking); err != nil {
		return err
	}

	query := `UPDATE inquiries SET status = ?, booking_id = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ? AND status = ?`
	result, err := tx.ExecContext(ctx, query,
		models.StatusConfirmed, booking.ID, time.Now().UTC(),
		inquiry.ID, inquiry.Version, models.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to confirm inquiry in tx: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit admission: %w", err)
	}

	inquiry.Status = models.StatusConfirmed
	inquiry.BookingID = booking.ID
	inquiry.Version++
	return nil
}

// insertBookingTx re-checks the venue calendar inside the transaction and
// inserts the booking when the window is free.
func insertBookingTx(ctx context.Context, tx *sql.Tx, booking *models.Booking) error {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE venue_id = ? ORDER BY start ASC, id ASC`
	rows, err := tx.QueryContext(ctx, query, booking.VenueID)
	if err != nil {
		return fmt.Errorf("failed to read venue calendar in tx: %w", err)
	}
	existing, err := scanBookings(rows)
	rows.Close()
	if err != nil {
		return err
	}

	if schedule.Overlaps(existing, booking.Start, booking.DurationHours) {
		return ErrBookingConflict
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (venue_id, venue_name, inquiry_id, start, duration_hours, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		booking.VenueID,
		booking.VenueName,
		booking.InquiryID,
		booking.Start.UTC(),
		booking.DurationHours,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	return nil
}

// DeleteBooking removes a booking. Cancellation removes the row; bookings
// are never edited to a new time.
func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetBookingsByDateRange returns bookings starting within the half-open
// range [startDate, endDate) across all venues, ordered by start.
func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]models.Booking, error) {
	query := `SELECT ` + bookingColumns + `
              FROM bookings
              WHERE start >= ? AND start < ?
              ORDER BY start ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, startDate.UTC(), endDate.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// GetDailyBookings groups a period's bookings by calendar day. Both the
// start and the end day are included.
func (db *DB) GetDailyBookings(ctx context.Context, startDate, endDate time.Time) (map[string][]models.Booking, error) {
	bookings, err := db.GetBookingsByDateRange(ctx, startDate, endDate.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	daily := make(map[string][]models.Booking)
	for _, b := range bookings {
		dateKey := b.Start.UTC().Format("2006-01-02")
		daily[dateKey] = append(daily[dateKey], b)
	}
	return daily, nil
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(
		&b.ID, &b.VenueID, &b.VenueName, &b.InquiryID,
		&b.Start, &b.DurationHours, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanBookings(rows *sql.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}
