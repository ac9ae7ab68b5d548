// Package cli provides common CLI initialization utilities shared by
// cmd/ledgerbot, cmd/ledger-worker and cmd/ledgerctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledgerbot/internal/backend"
	"ledgerbot/internal/cache"
	"ledgerbot/internal/config"
	"ledgerbot/internal/core"
	"ledgerbot/internal/log"
	"ledgerbot/internal/services"
	"ledgerbot/internal/storage"
)

// statsTTL bounds how long a past month's statistics stay cached.
const statsTTL = time.Hour

// SetupLogger initializes structured logging at the given LOG_LEVEL and
// sets it as the default logger.
func SetupLogger(level string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and runs validate on it.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger, validate func(*config.Config) error) *config.Config {
	cfg := config.Load()
	if err := validate(cfg); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// OpenLedger creates the configured backend and the ledger service on top
// of it, seeding categories from CATEGORIES_FILE on a fresh store. The
// returned result's Cleanup releases the store and broker connection.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services.LedgerService, *backend.Result, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		_ = result.Cleanup()
		return nil, nil, fmt.Errorf("invalid timezone: %w", err)
	}

	ledger := services.NewLedgerService(result.Store,
		services.WithPublisher(result.Publisher),
		services.WithLocation(loc),
		services.WithTopExpenses(cfg.TopExpenses),
		services.WithSampleGuard(cfg.SampleGuard),
		services.WithStatsCache(cache.NewLRUCache[core.MonthStatistics](24, statsTTL)),
		services.WithLogger(logger))

	if cfg.CategoriesFile != "" {
		if err := seedCategories(ctx, ledger, cfg.CategoriesFile, logger); err != nil {
			_ = result.Cleanup()
			return nil, nil, err
		}
	}
	return ledger, result, nil
}

func seedCategories(ctx context.Context, ledger *services.LedgerService, path string, logger *log.Logger) error {
	seed, err := storage.LoadCategorySeed(path)
	if err != nil {
		return fmt.Errorf("failed to load categories file: %w", err)
	}
	added, err := ledger.SeedCategories(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	if added > 0 {
		logger.InfoContext(ctx, "Seeded categories from file", "path", path, "count", added)
	}
	return nil
}

// GracefulShutdown returns a context that is cancelled on SIGINT or
// SIGTERM. stop releases the signal handler.
func GracefulShutdown(logger *log.Logger) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
