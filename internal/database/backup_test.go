package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"venueq/internal/config"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "source.db")
	storagePath := filepath.Join(tempDir, "backups")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	db.Close()

	cfg := config.BackupConfig{
		Enabled:       true,
		StoragePath:   storagePath,
		RetentionDays: 1,
	}
	logger := zerolog.Nop()
	s := NewBackupService(dbPath, cfg, &logger)

	t.Run("PerformBackup", func(t *testing.T) {
		err := s.PerformBackup(context.Background())
		assert.NoError(t, err)

		files, err := os.ReadDir(storagePath)
		assert.NoError(t, err)
		require.Len(t, files, 1)
		assert.Contains(t, files[0].Name(), backupPrefix)
	})

	t.Run("CleanupOldBackups", func(t *testing.T) {
		oldFile := filepath.Join(storagePath, "venueq_old.db")
		require.NoError(t, os.WriteFile(oldFile, []byte("old"), 0o644))
		// Файлы без нашего префикса трогать нельзя.
		foreign := filepath.Join(storagePath, "notes.txt")
		require.NoError(t, os.WriteFile(foreign, []byte("keep"), 0o644))

		oldTime := time.Now().AddDate(0, 0, -2)
		require.NoError(t, os.Chtimes(oldFile, oldTime, oldTime))
		require.NoError(t, os.Chtimes(foreign, oldTime, oldTime))

		removed := s.CleanupOldBackups()
		assert.Equal(t, 1, removed)

		_, err := os.Stat(oldFile)
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(foreign)
		assert.NoError(t, err)
	})
}

func TestBackupInterval(t *testing.T) {
	logger := zerolog.Nop()

	s := NewBackupService("any", config.BackupConfig{Schedule: "6h"}, &logger)
	assert.Equal(t, 6*time.Hour, s.interval())

	s = NewBackupService("any", config.BackupConfig{}, &logger)
	assert.Equal(t, 24*time.Hour, s.interval())

	s = NewBackupService("any", config.BackupConfig{Schedule: "soon"}, &logger)
	assert.Equal(t, 24*time.Hour, s.interval())
}

func TestBackupService_Disabled(_ *testing.T) {
	logger := zerolog.Nop()
	s := NewBackupService("any", config.BackupConfig{Enabled: false}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Start(ctx)
	// Start must return without touching the filesystem.
}
