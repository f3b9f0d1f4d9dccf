package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venueq/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validYAML = `
app:
  name: venueq
  environment: test

database:
  path: data/venueq.db

api:
  port: 8080
  auth:
    enabled: true
    api_keys:
      - key: secret-1
        name: ops
      - key: secret-2
        name: loft
        vendor_id: 1
        permissions: [vendor:inquiries]

queue:
  grace_period_hours: 48

venues:
  - id: 1
    name: Loft Hall
    vendor_id: 1
    capacity: 80
    is_active: true
  - id: 2
    name: Garden Pavilion
    vendor_id: 2
    capacity: 150
    is_active: true
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, validYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "venueq", cfg.App.Name)
	assert.Equal(t, "data/venueq.db", cfg.Database.Path)
	assert.Equal(t, 8080, cfg.API.Port)
	require.Len(t, cfg.API.Auth.APIKeys, 2)
	assert.Equal(t, int64(1), cfg.API.Auth.APIKeys[1].VendorID)
	require.Len(t, cfg.Venues, 2)
	assert.Equal(t, 48, cfg.Queue.GracePeriodHours)
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("VENUEQ_DB_PATH", "/tmp/env.db")
	path := writeConfig(t, `
database:
  path: ${VENUEQ_DB_PATH}
api:
  port: 8081
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: data/venueq.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, "1h", cfg.Queue.CleanupInterval)
	assert.Equal(t, 365, cfg.Queue.MaxAdvanceDays)
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestValidate(t *testing.T) {
	t.Run("missing database path", func(t *testing.T) {
		path := writeConfig(t, `
api:
  port: 8080
`)
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database path")
	})
}

func TestValidateVenues(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		err := ValidateVenues([]models.Venue{
			{ID: 1, Name: "A", VendorID: 1},
			{ID: 2, Name: "B", VendorID: 1},
		})
		assert.NoError(t, err)
	})

	t.Run("zero id", func(t *testing.T) {
		err := ValidateVenues([]models.Venue{{Name: "A", VendorID: 1}})
		assert.ErrorContains(t, err, "invalid ID 0")
	})

	t.Run("duplicate id", func(t *testing.T) {
		err := ValidateVenues([]models.Venue{
			{ID: 1, Name: "A", VendorID: 1},
			{ID: 1, Name: "B", VendorID: 2},
		})
		assert.ErrorContains(t, err, "duplicate venue ID")
	})

	t.Run("missing vendor", func(t *testing.T) {
		err := ValidateVenues([]models.Venue{{ID: 3, Name: "C"}})
		assert.ErrorContains(t, err, "no vendor_id")
	})
}
