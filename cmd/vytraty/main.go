package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vytraty/internal/backend"
	"vytraty/internal/config"
	apphttp "vytraty/internal/http"
	"vytraty/internal/log"
)

func main() {
	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	factory := backend.NewFactory(logger)
	result, err := factory.CreateBackend(ctx, cfg)
	if err != nil {
		logger.Error("failed to create backend",
			log.FieldBackend, cfg.DataBackend, log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("backend cleanup failed", log.FieldError, err)
			}
		}
	}()

	b := result.Backend
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Services{
		Transactions:    b.Transactions,
		RegularPayments: b.RegularPayments,
		Settings:        b.Settings,
		Sync:            b.Sync,
	}, b.States, logger, apphttp.Options{
		BotToken:   cfg.BotToken,
		SummaryTTL: cfg.StatsCacheTTL,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	// Without a mirror there is no worker to own the recurring tick, so the
	// API process runs it against its own state.
	if b.Repo == nil {
		go func() {
			ticker := time.NewTicker(cfg.RecurringInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := b.Recurring.ProcessDue(ctx, time.Now()); err != nil {
						logger.Error("recurring processing failed", log.FieldError, err)
					}
				}
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("starting vytraty server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"outbox_enabled", b.Outbox != nil,
		"queue_enabled", b.Queue != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}
