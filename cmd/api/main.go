package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"venueq/internal/api"
	"venueq/internal/config"
	"venueq/internal/database"
	"venueq/internal/domain"
	"venueq/internal/events"
	"venueq/internal/export"
	"venueq/internal/google"
	"venueq/internal/logging"
	"venueq/internal/metrics"
	"venueq/internal/models"
	"venueq/internal/notify"
	"venueq/internal/repository"
	"venueq/internal/service"
	"venueq/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer func() { _ = closer.Close() }()
	}

	if err := config.ValidateVenues(cfg.Venues); err != nil {
		return fmt.Errorf("venues config: %w", err)
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()
	db.SetVenues(cfg.Venues)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	states := initStateRepository(redisClient, &logger)
	sheets := initGoogleSheets(cfg, &logger)

	eventBus := events.NewEventBus()

	syncWorker := worker.NewSyncWorker(db, sheets, redisClient, worker.RetryPolicy{}, &logger)
	if sheets != nil {
		// Without a sheets mirror tasks still persist to sync_queue; they
		// are drained once the mirror is configured.
		go syncWorker.Start(ctx)
	}

	inquiries := service.NewInquiryService(db, states, eventBus, syncWorker, cfg.Queue.MaxAdvanceDays, &logger)
	admission := service.NewAdmissionService(db, eventBus, syncWorker, &logger)
	bookings := service.NewBookingService(db, eventBus, syncWorker, cfg.Queue.MaxAdvanceDays, &logger)

	initNotifier(cfg, eventBus, &logger)

	exporter := export.NewScheduleExporter(db, cfg.Exports.Path, &logger)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)
	go runJanitor(ctx, cfg, db, inquiries, &logger)

	// With Redis configured the state repository doubles as a shared
	// rate counter, so limits hold across API processes.
	var limits domain.RateCounter
	if redisClient != nil {
		limits = states
	}

	httpServer := api.NewHTTPServer(cfg.API, db, inquiries, admission, bookings, exporter, limits, &logger)
	return serve(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

// initStateRepository prefers Redis with in-memory failover; without Redis
// operator state lives in process memory only.
func initStateRepository(client *redis.Client, logger *zerolog.Logger) domain.StateRepository {
	ttl := time.Duration(models.DefaultRedisTTL) * time.Second
	memory := repository.NewMemoryStateRepository(ttl)
	if client == nil {
		return memory
	}
	return repository.NewFailoverStateRepository(
		repository.NewRedisStateRepository(client, ttl),
		memory,
		logger,
	)
}

func initGoogleSheets(cfg *config.Config, logger *zerolog.Logger) domain.SheetsWriter {
	if cfg.Google.CredentialsFile == "" ||
		(cfg.Google.InquiriesSpreadsheet == "" && cfg.Google.BookingsSpreadsheet == "") {
		return nil
	}

	sheetsService, err := google.NewSheetsService(
		cfg.Google.CredentialsFile,
		cfg.Google.InquiriesSpreadsheet,
		cfg.Google.BookingsSpreadsheet,
	)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}

	logger.Info().Msg("google sheets connected")
	return sheetsService
}

func initNotifier(cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || len(cfg.Telegram.VendorChats) == 0 {
		return
	}

	notifier, err := notify.NewTelegramNotifier(cfg.Telegram, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without notifications")
		return
	}
	notifier.Subscribe(bus)
	logger.Info().Msg("telegram notifier connected")
}

// runJanitor drops terminal inquiries past the grace period and refreshes
// the pending-queue gauge.
func runJanitor(ctx context.Context, cfg *config.Config, db *database.DB, inquiries *service.InquiryService, logger *zerolog.Logger) {
	interval, err := time.ParseDuration(cfg.Queue.CleanupInterval)
	if err != nil || interval <= 0 {
		interval = time.Hour
	}
	gracePeriod := time.Duration(cfg.Queue.GracePeriodHours) * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := inquiries.CleanupTerminal(ctx, gracePeriod)
			if err != nil {
				logger.Error().Err(err).Msg("janitor: cleanup error")
			} else if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("janitor: terminal inquiries removed")
			}

			if pending, err := db.CountPendingInquiries(ctx); err == nil {
				metrics.SetPendingInquiries(pending)
			}
		}
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	logger.Info().Msg("server stopped")
	return nil
}
