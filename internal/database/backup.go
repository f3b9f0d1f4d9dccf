package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"venueq/internal/config"
)

const backupPrefix = "venueq_"

// BackupService snapshots the queue database on a schedule. Snapshots use
// VACUUM INTO so a backup can run while the API keeps writing.
type BackupService struct {
	dbPath string
	cfg    config.BackupConfig
	logger zerolog.Logger
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		dbPath: dbPath,
		cfg:    cfg,
		logger: logger.With().Str("component", "backup").Logger(),
	}
}

// Start runs snapshots on the configured schedule until ctx is done. The
// first snapshot is taken immediately so a fresh deployment is covered
// before the first full interval elapses.
func (s *BackupService) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		return
	}

	interval := s.interval()
	s.logger.Info().Dur("interval", interval).Msg("backup service started")

	s.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *BackupService) interval() time.Duration {
	if s.cfg.Schedule == "" {
		return 24 * time.Hour
	}
	d, err := time.ParseDuration(s.cfg.Schedule)
	if err != nil || d <= 0 {
		s.logger.Warn().Str("schedule", s.cfg.Schedule).Msg("unparseable backup schedule, using 24h")
		return 24 * time.Hour
	}
	return d
}

func (s *BackupService) runOnce(ctx context.Context) {
	if err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("backup failed")
		return
	}
	if removed := s.CleanupOldBackups(); removed > 0 {
		s.logger.Info().Int("removed", removed).Msg("old backups removed")
	}
}

// PerformBackup writes one snapshot. VACUUM INTO copies a consistent
// image without blocking concurrent writers; if it fails, a plain file
// copy is attempted, which is only safe while nothing is writing.
func (s *BackupService) PerformBackup(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.StoragePath, 0o755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	name := fmt.Sprintf("%s%s.db", backupPrefix, time.Now().Format("20060102_150405"))
	target := filepath.Join(s.cfg.StoragePath, name)

	src, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("open source database: %w", err)
	}
	defer src.Close()

	if _, err := src.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", target)); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, copying the file instead")
		return s.copyDatabase(target)
	}

	s.logger.Info().Str("path", target).Msg("backup written")
	return nil
}

func (s *BackupService) copyDatabase(target string) error {
	src, err := os.Open(s.dbPath)
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy database file: %w", err)
	}
	return nil
}

// CleanupOldBackups removes snapshots older than the retention window and
// reports how many were deleted. Only files this service created are
// considered.
func (s *BackupService) CleanupOldBackups() int {
	if s.cfg.RetentionDays <= 0 {
		return 0
	}

	entries, err := os.ReadDir(s.cfg.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("read backup directory")
		return 0
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.cfg.StoragePath, entry.Name())); err == nil {
			removed++
		}
	}
	return removed
}
