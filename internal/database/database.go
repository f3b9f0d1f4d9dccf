package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"venueq/internal/models"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type DB struct {
	*sql.DB
	mu           sync.RWMutex
	venuesCache  map[int64]models.Venue
	sortedVenues []models.Venue
	log          zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection serializes transactions, so the overlap check and
	// the insert inside one tx can never interleave with another writer.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	var log zerolog.Logger
	if logger != nil {
		log = logger.With().Str("component", "database").Logger()
	}
	log.Info().Str("path", path).Msg("database initialized")

	return &DB{
		DB:          sqlDB,
		venuesCache: make(map[int64]models.Venue),
		log:         log,
	}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS inquiries (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            vendor_id INTEGER NOT NULL,
            venue_id INTEGER NOT NULL,
            venue_name TEXT NOT NULL,
            client_name TEXT NOT NULL,
            client_email TEXT NOT NULL,
            client_phone TEXT NOT NULL,
            event_type TEXT NOT NULL,
            event_name TEXT,
            event_date DATETIME NOT NULL,
            duration_hours REAL NOT NULL,
            guest_count INTEGER NOT NULL,
            budget TEXT,
            details TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            booking_id INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            version INTEGER NOT NULL DEFAULT 1
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            venue_id INTEGER NOT NULL,
            venue_name TEXT NOT NULL,
            inquiry_id INTEGER NOT NULL DEFAULT 0,
            start DATETIME NOT NULL,
            duration_hours REAL NOT NULL,
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            record_id INTEGER NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_inquiries_vendor_status ON inquiries(vendor_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_inquiries_created_at ON inquiries(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_inquiries_status ON inquiries(status)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_venue_id ON bookings(venue_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_start ON bookings(start)`,

		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// SetVenues replaces the config-sourced venue cache consulted by the
// booking and inquiry paths.
func (db *DB) SetVenues(venues []models.Venue) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.venuesCache = make(map[int64]models.Venue, len(venues))
	for _, v := range venues {
		db.venuesCache[v.ID] = v
	}
	sorted := append([]models.Venue(nil), venues...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SortOrder < sorted[j].SortOrder })
	db.sortedVenues = sorted
}

// GetVenues returns active venues in sort order.
func (db *DB) GetVenues() []models.Venue {
	db.mu.RLock()
	defer db.mu.RUnlock()

	out := make([]models.Venue, 0, len(db.sortedVenues))
	for _, v := range db.sortedVenues {
		if v.IsActive {
			out = append(out, v)
		}
	}
	return out
}

func (db *DB) GetVenueByID(id int64) (models.Venue, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	v, ok := db.venuesCache[id]
	if !ok {
		return models.Venue{}, fmt.Errorf("venue %d: %w", id, ErrVenueNotFound)
	}
	return v, nil
}

func (db *DB) GetVenueByName(name string) (models.Venue, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	for _, v := range db.venuesCache {
		if strings.ToLower(v.Name) == needle {
			return v, nil
		}
	}
	return models.Venue{}, fmt.Errorf("venue %q: %w", name, ErrVenueNotFound)
}
