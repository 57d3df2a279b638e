package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"nosam/internal/cli"
	apphttp "nosam/internal/http"
	"nosam/internal/log"
	"nosam/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		cli.Exit(cli.SetupLogger(os.Stdout, "info"), "Configuration validation failed", err)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := cli.SignalContext(context.Background(), logger)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		cli.Exit(logger, "Failed to initialize application", err)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Client:            app.Client,
		Table:             app.Table,
		Settings:          app.Settings,
		Refresher:         app.Refresher,
		Catalog:           app.Catalog,
		Stats:             app.Stats,
		Logger:            logger,
		RequestsPerMinute: cfg.RateLimitPerMinute,
	})
	rates := worker.NewRatesWorker(app.Refresher, cfg.RatesCheckInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting nosam server",
			"port", cfg.Port,
			log.FieldBackend, app.Backend.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return rates.Run(gctx)
	})
	if app.Events != nil {
		g.Go(func() error {
			if err := app.Events.Run(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	runErr := g.Wait()
	if err := app.Close(); err != nil {
		logger.Error("Failed to close application", log.FieldError, err)
	}
	if runErr != nil {
		cli.Exit(logger, "Server error", runErr)
	}
	logger.Info("Server stopped gracefully")
}
