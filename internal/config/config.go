package config

import (
	"errors"
	"fmt"
	"os"

	"venueq/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Backup     BackupConfig     `yaml:"backup"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
	API        APIConfig        `yaml:"api"`
	Queue      QueueConfig      `yaml:"queue"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	Exports    ExportConfig     `yaml:"exports"`
	Venues     []models.Venue   `yaml:"venues"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

// APIClientKey binds an API key to a caller identity. VendorID is the
// trusted vendor scope for vendor-facing operations; 0 means the key is
// not vendor-bound (client submission keys).
type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	VendorID    int64    `yaml:"vendor_id"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// QueueConfig tunes the admission queue's housekeeping.
type QueueConfig struct {
	GracePeriodHours int    `yaml:"grace_period_hours"`
	CleanupInterval  string `yaml:"cleanup_interval"`
	MaxAdvanceDays   int    `yaml:"max_advance_days"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	// VendorChats maps vendor ids to the Telegram chat that receives
	// admission notifications for that vendor.
	VendorChats map[int64]int64 `yaml:"vendor_chats"`
	Debug       bool            `yaml:"debug"`
}

type GoogleConfig struct {
	CredentialsFile      string `yaml:"credentials_file"`
	InquiriesSpreadsheet string `yaml:"inquiries_spreadsheet_id"`
	BookingsSpreadsheet  string `yaml:"bookings_spreadsheet_id"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; ignore a missing file but not a malformed one.
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.API.Port <= 0 {
		return errors.New("api port must be positive")
	}
	return ValidateVenues(c.Venues)
}

func ValidateVenues(venues []models.Venue) error {
	// Check for duplicate venue IDs
	venueIDs := make(map[int64]bool)
	for _, venue := range venues {
		if venue.ID == 0 {
			return fmt.Errorf("venue '%s' has invalid ID 0", venue.Name)
		}
		if venueIDs[venue.ID] {
			return fmt.Errorf("duplicate venue ID found: %d", venue.ID)
		}
		venueIDs[venue.ID] = true
		if venue.VendorID == 0 {
			return fmt.Errorf("venue '%s' has no vendor_id", venue.Name)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Queue.GracePeriodHours == 0 {
		c.Queue.GracePeriodHours = models.DefaultGracePeriodHours
	}
	if c.Queue.CleanupInterval == "" {
		c.Queue.CleanupInterval = "1h"
	}
	if c.Queue.MaxAdvanceDays == 0 {
		c.Queue.MaxAdvanceDays = 365
	}
	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
