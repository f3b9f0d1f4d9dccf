package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"venueq/internal/models"
)

const inquiryColumns = `id, vendor_id, venue_id, venue_name, client_name, client_email,
	             client_phone, event_type, event_name, event_date, duration_hours,
	             guest_count, budget, details, status, booking_id, created_at,
	             updated_at, version`

// CreateInquiry inserts a new pending inquiry. The id and created_at are
// store-generated; created_at is the FCFS arrival key and is never updated.
func (db *DB) CreateInquiry(ctx context.Context, inquiry *models.Inquiry) error {
	query := `INSERT INTO inquiries (
				vendor_id, venue_id, venue_name, client_name, client_email, client_phone,
				event_type, event_name, event_date, duration_hours, guest_count,
				budget, details, status, booking_id, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		inquiry.VendorID,
		inquiry.VenueID,
		inquiry.VenueName,
		inquiry.ClientName,
		inquiry.ClientEmail,
		inquiry.ClientPhone,
		inquiry.EventType,
		inquiry.EventName,
		inquiry.EventDate.UTC(),
		inquiry.DurationHours,
		inquiry.GuestCount,
		inquiry.Budget,
		inquiry.Details,
		models.StatusPending,
		0,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create inquiry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	inquiry.ID = id
	inquiry.Status = models.StatusPending
	inquiry.BookingID = 0
	inquiry.CreatedAt = now
	inquiry.UpdatedAt = now
	inquiry.Version = 1

	return nil
}

func (db *DB) GetInquiry(ctx context.Context, id int64) (*models.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + ` FROM inquiries WHERE id = ?`
	inquiry, err := scanInquiry(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("inquiry %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get inquiry: %w", err)
	}
	return inquiry, nil
}

// PeekOldestPending returns the pending inquiry with the smallest
// (created_at, id) pair for a vendor, or nil when the queue is empty.
// This is the only ordering the admission path consults.
func (db *DB) PeekOldestPending(ctx context.Context, vendorID int64) (*models.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + `
              FROM inquiries
              WHERE vendor_id = ? AND status = ?
              ORDER BY created_at ASC, id ASC
              LIMIT 1`
	inquiry, err := scanInquiry(db.QueryRowContext(ctx, query, vendorID, models.StatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to peek oldest pending inquiry: %w", err)
	}
	return inquiry, nil
}

// GetPendingInquiries returns the vendor's pending inquiries in arrival order.
func (db *DB) GetPendingInquiries(ctx context.Context, vendorID int64) ([]models.Inquiry, error) {
	query := `SELECT ` + inquiryColumns + `
              FROM inquiries
              WHERE vendor_id = ? AND status = ?
              ORDER BY created_at ASC, id ASC`
	rows, err := db.QueryContext(ctx, query, vendorID, models.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending inquiries: %w", err)
	}
	defer rows.Close()

	return scanInquiries(rows)
}

// inquirySortColumns whitelists display-sort keys. The map keeps display
// ordering from ever reaching the admission path: PeekOldestPending has its
// own fixed ORDER BY.
var inquirySortColumns = map[string]string{
	models.SortByID:      "id",
	models.SortByClient:  "client_name",
	models.SortByEvent:   "event_type",
	models.SortByVenue:   "venue_name",
	models.SortByBudget:  "budget",
	models.SortByStatus:  "status",
	models.SortByArrival: "created_at",
}

// ListInquiries returns the vendor's inquiries sorted for display.
// Unknown sort keys fall back to arrival order.
func (db *DB) ListInquiries(ctx context.Context, vendorID int64, sortKey, dir string) ([]models.Inquiry, error) {
	column, ok := inquirySortColumns[sortKey]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if dir == models.SortDesc {
		direction = "DESC"
	}

	query := `SELECT ` + inquiryColumns + `
              FROM inquiries
              WHERE vendor_id = ?
              ORDER BY ` + column + ` ` + direction + `, id ASC`
	rows, err := db.QueryContext(ctx, query, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer rows.Close()

	return scanInquiries(rows)
}

// UpdateInquiryStatusWithVersion transitions an inquiry's status under an
// optimistic version check. Legality is checked against a fresh read; the
// version guard on the UPDATE is what closes the race, since any concurrent
// transition bumps the version and turns this statement into a no-op
// reported as ErrConcurrentModification.
func (db *DB) UpdateInquiryStatusWithVersion(ctx context.Context, id, fromVersion int64, status string, bookingID int64) error {
	current, err := db.GetInquiry(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanTransition(current.Status, status) {
		return fmt.Errorf("%s -> %s: %w", current.Status, status, ErrInvalidTransition)
	}

	query := `UPDATE inquiries SET status = ?, booking_id = ?, version = version + 1, updated_at = ?
              WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, bookingID, time.Now().UTC(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update inquiry status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// DeleteInquiry removes an inquiry from the active set.
func (db *DB) DeleteInquiry(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM inquiries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete inquiry: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("inquiry %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTerminalInquiriesBefore removes completed, cancelled and rejected
// inquiries whose last update is older than the cutoff. Used by the
// grace-period janitor.
func (db *DB) DeleteTerminalInquiriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM inquiries WHERE status IN (?, ?, ?) AND updated_at < ?`
	result, err := db.ExecContext(ctx, query,
		models.StatusCompleted, models.StatusCancelled, models.StatusRejected, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal inquiries: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// CountPendingInquiries returns the global number of pending inquiries,
// exported as a gauge.
func (db *DB) CountPendingInquiries(ctx context.Context) (int64, error) {
	var count int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inquiries WHERE status = ?`, models.StatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending inquiries: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInquiry(row rowScanner) (*models.Inquiry, error) {
	var inq models.Inquiry
	err := row.Scan(
		&inq.ID, &inq.VendorID, &inq.VenueID, &inq.VenueName,
		&inq.ClientName, &inq.ClientEmail, &inq.ClientPhone,
		&inq.EventType, &inq.EventName, &inq.EventDate, &inq.DurationHours,
		&inq.GuestCount, &inq.Budget, &inq.Details, &inq.Status, &inq.BookingID,
		&inq.CreatedAt, &inq.UpdatedAt, &inq.Version,
	)
	if err != nil {
		return nil, err
	}
	return &inq, nil
}

func scanInquiries(rows *sql.Rows) ([]models.Inquiry, error) {
	var inquiries []models.Inquiry
	for rows.Next() {
		inq, err := scanInquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		inquiries = append(inquiries, *inq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return inquiries, nil
}
