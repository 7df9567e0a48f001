package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"dayplan/internal/cli"
	apphttp "dayplan/internal/http"
	applog "dayplan/internal/log"
	"dayplan/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	startupCtx := context.Background()
	repo := cli.OpenStorage(startupCtx, logger, cfg)

	var opts []services.Option
	if publisher := cli.InitPublisher(startupCtx, logger, cfg); publisher != nil {
		opts = append(opts, services.WithPublisher(publisher))
	}
	if exporter := cli.InitSheets(startupCtx, logger, cfg); exporter != nil {
		opts = append(opts, services.WithExporter(exporter))
	}
	planner := services.NewPlannerService(repo, opts...)

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              ":" + cfg.Port,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		Logger:            logger,
	}, planner)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := planner.Close(); err != nil {
			logger.Error("Failed to release resources", applog.FieldError, err)
		}
	})

	logger.Info("Starting dayplan server",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"db_driver", cfg.DBDriver,
		"change_events", cfg.AMQPEnabled(),
		"sheets_export", cfg.SheetsEnabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		_ = planner.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
