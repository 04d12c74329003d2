package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pellworth/audiocove/internal/config"
	"github.com/pellworth/audiocove/internal/database"
	"github.com/pellworth/audiocove/internal/event"
	"github.com/pellworth/audiocove/internal/importer"
	"github.com/pellworth/audiocove/internal/library"
	"github.com/pellworth/audiocove/internal/logging"
	"github.com/pellworth/audiocove/internal/maintenance"
	"github.com/pellworth/audiocove/internal/media"
	"github.com/pellworth/audiocove/internal/storage"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	configPath := os.Getenv("AC_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Set up structured logging via the logging Manager
	logManager, logger := logging.NewManager(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxFiles:   cfg.Logging.FileMaxFiles,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	})
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)

	// Open database
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	libraryService := library.NewService(db)

	// Storage locations from config
	locations := make([]storage.Location, 0, len(cfg.Storage.Locations))
	for _, loc := range cfg.Storage.Locations {
		locations = append(locations, storage.Location{Path: loc.Path, External: loc.External})
	}
	settings := storage.NewSettings(locations)

	// Initialize event bus
	eventBus := event.NewBus(logger, 256)
	go eventBus.Start()
	defer eventBus.Stop()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Track external storage and start the mount monitor
	monitor := storage.NewMonitor(logger, eventBus)
	for _, loc := range settings.ExternalLocations() {
		monitor.Track(loc)
	}
	go monitor.Start(ctx)

	imp := importer.New(settings, monitor, libraryService, media.Probe, eventBus, logger, importer.Options{
		BatchSize:             cfg.Scanner.BatchSize,
		Workers:               cfg.Scanner.Workers,
		ProbeRate:             cfg.Scanner.ProbeRate,
		IncludeUnknownStorage: cfg.Scanner.IncludeUnknownStorage,
	})

	// Scan requests from all sources funnel through one channel so runs are
	// serialized; a request arriving while a scan is active coalesces into
	// the buffered slot instead of failing.
	scanRequests := make(chan string, 1)
	requestScan := func(reason string) {
		select {
		case scanRequests <- reason:
		default:
		}
	}

	// A drive coming online may carry books we have not imported yet.
	eventBus.Subscribe(event.StorageOnline, func(e event.Event) {
		requestScan("storage online")
	})

	// Start maintenance scheduler
	maintenanceService := maintenance.NewService(db, cfg.Database.Path, logger)
	if hours := cfg.Database.MaintenanceIntervalHours; hours > 0 {
		go maintenanceService.StartScheduler(ctx, time.Duration(hours)*time.Hour)
	}

	// Periodic rescan (opt-in via config)
	if mins := cfg.Scanner.RescanIntervalMinutes; mins > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(mins) * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					requestScan("scheduled rescan")
				}
			}
		}()
	}

	// Scan worker
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case reason := <-scanRequests:
				logger.Info("scan requested", slog.String("reason", reason))
				if _, err := imp.Scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("scan failed", "error", err)
				}
			}
		}
	}()

	logger.Info("starting audiocove",
		slog.String("version", version),
		slog.Int("storage_locations", len(locations)),
	)

	requestScan("startup")

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}
