// Package cli provides the process bootstrap shared by cmd/dayplan: logging,
// configuration, storage and the optional integrations.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dayplan/internal/amqp"
	"dayplan/internal/config"
	applog "dayplan/internal/log"
	gsheet "dayplan/internal/sheets/google"
	"dayplan/internal/storage"

	"github.com/joho/godotenv"
)

// amqpConnectAttempts bounds the start-up retries against the broker.
const amqpConnectAttempts = 5

// SetupLogger initializes structured logging at the given level and installs
// it as the slog default. Unknown levels fall back to info.
func SetupLogger(level string) *applog.Logger {
	cfg := applog.DefaultConfig()
	if lvl, err := applog.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// StorageOptions translates the configuration into repository options.
func StorageOptions(cfg *config.Config) storage.Options {
	opts := storage.Options{
		Driver:       storage.Driver(cfg.DBDriver),
		DSN:          cfg.SQLiteDBPath,
		MaxOpenConns: cfg.DBMaxOpenConns,
	}
	if opts.Driver == storage.DriverMySQL {
		opts.DSN = storage.MySQLDSN(storage.MySQLOptions{
			Host:     cfg.MySQLHost,
			Port:     cfg.MySQLPort,
			User:     cfg.MySQLUser,
			Password: cfg.MySQLPassword,
			Database: cfg.MySQLDatabase,
		})
	}
	return opts
}

// OpenStorage connects and migrates the configured database.
// Returns the repository or exits the process on failure.
func OpenStorage(ctx context.Context, logger *applog.Logger, cfg *config.Config) *storage.Repository {
	repo, err := storage.Open(ctx, StorageOptions(cfg))
	if err != nil {
		logger.Error("Failed to initialize storage", applog.FieldError, err, "driver", cfg.DBDriver)
		os.Exit(1)
	}
	logger.Info("Storage ready", "driver", repo.Driver().String())
	return repo
}

// InitPublisher connects the change-event publisher. It returns nil when AMQP
// is not configured; a configured but unreachable broker exits the process.
func InitPublisher(ctx context.Context, logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if !cfg.AMQPEnabled() {
		logger.Info("Change events disabled - no AMQP_URL provided")
		return nil
	}
	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey, amqpConnectAttempts)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Change events enabled", "exchange", cfg.AMQPExchange, "routing_key", cfg.AMQPRoutingKey)
	return client
}

// InitSheets builds the spreadsheet exporter, or nil when it is disabled.
func InitSheets(ctx context.Context, logger *applog.Logger, cfg *config.Config) *gsheet.Client {
	if !cfg.SheetsEnabled() {
		logger.Info("Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
		return nil
	}
	creds, err := gsheet.WithServiceAccount(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
	if err != nil {
		logger.Error("Failed to load Google credentials", applog.FieldError, err)
		os.Exit(1)
	}
	client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleExportSheetName, creds)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleExportSheetName)
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has returned or the timeout hit.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), applog.FieldOperation, applog.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		cancel()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached", "timeout", timeout)
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is over.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
