package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"vytraty/internal/amqp"
	"vytraty/internal/config"
	"vytraty/internal/log"
	"vytraty/internal/services"
	gsheet "vytraty/internal/sheets/google"
	"vytraty/internal/state"
	"vytraty/internal/storage"
	"vytraty/internal/worker"
)

func main() {
	// Load .env for local development; production sets real env vars.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("starting vytraty-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to initialize SQLite repository",
			log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sheets export is optional; without it the worker only runs the
	// recurring processor.
	var syncWorker *worker.SyncWorker
	if cfg.GoogleSpreadsheetID != "" {
		sheetsClient, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		})
		if err != nil {
			logger.Error("failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		syncWorker = worker.NewSyncWorker(repo, sheetsClient, cfg.SyncBatchSize, logger)
		logger.Info("sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)

		// Recover anything missed while the worker was down.
		if err := syncWorker.StartupCheck(ctx); err != nil {
			logger.Error("startup export check failed", log.FieldError, err)
		}
	} else {
		logger.Info("sheets export disabled, no GOOGLE_SPREADSHEET_ID provided")
	}

	if syncWorker != nil && cfg.AMQPURL != "" {
		queue, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer queue.Close()

		go func() {
			err := queue.ConsumeTransactionSync(ctx, func(msg *amqp.TransactionSyncMessage) error {
				return syncWorker.HandleMessage(ctx, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("message consumption failed", log.FieldError, err)
				cancel()
			}
		}()
	} else {
		logger.Info("skipping queue consumption",
			"sheets_enabled", syncWorker != nil, "amqp_configured", cfg.AMQPURL != "")
	}

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	// Each tick hydrates fresh from the mirror so payments created since the
	// last run are seen; the durable run log keeps reprocessing idempotent.
	runRecurring := func() {
		recurring := newRecurringProcessor(ctx, repo, logger)
		if _, err := recurring.ProcessDue(ctx, time.Now()); err != nil {
			logger.Error("recurring processing failed", log.FieldError, err)
		}
	}

	go func() {
		runRecurring()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runRecurring()
				if syncWorker != nil {
					if err := syncWorker.ProcessPending(ctx); err != nil {
						logger.Error("pending export sweep failed", log.FieldError, err)
					}
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	cancel()
	logger.Info("worker stopped")
}

// newRecurringProcessor builds a processor whose state is hydrated from the
// mirror instead of live HTTP traffic.
func newRecurringProcessor(ctx context.Context, repo *storage.SQLiteRepository, logger *log.Logger) *services.RecurringProcessor {
	states := state.NewManager(nil, logger)
	transactions := services.NewTransactionService(states, nil, repo, nil, logger)

	if err := services.HydrateFromMirror(ctx, states, repo, logger); err != nil {
		logger.Error("failed to hydrate state from mirror", log.FieldError, err)
	}

	return services.NewRecurringProcessor(states, transactions, repo, logger)
}
