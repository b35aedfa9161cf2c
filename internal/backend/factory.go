package backend

import (
	"context"
	"fmt"
	"time"

	"vytraty/internal/amqp"
	"vytraty/internal/config"
	"vytraty/internal/log"
	"vytraty/internal/services"
	"vytraty/internal/state"
	"vytraty/internal/storage"
	"vytraty/internal/webhook"
)

// DefaultFactory implements the Factory interface.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend wires the components the configured backend needs. The
// shared pieces (settings cache, state manager, outbox, sync client) are
// always assembled; the SQLite mirror and the AMQP queue join only for the
// sqlite backend.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg *config.Config) (*Result, error) {
	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	settings, err := f.settingsStore(cfg)
	if err != nil {
		return nil, err
	}
	states := state.NewManager(settings, f.logger)

	var outbox *webhook.Outbox
	if cfg.WebhookOutboxURL != "" {
		outbox = webhook.NewOutbox(cfg.WebhookOutboxURL, 30*time.Second, f.logger)
	}

	var fetcher services.UserDataFetcher
	if cfg.WebhookSyncURL != "" {
		fetcher = webhook.NewSyncClient(webhook.Config{
			SyncURL:            cfg.WebhookSyncURL,
			CategoriesURL:      cfg.WebhookCategoriesURL,
			RegularPaymentsURL: cfg.WebhookRegularPaymentsURL,
		}, f.logger)
	}

	switch backendType {
	case SQLiteBackend:
		return f.createSQLiteBackend(cfg, states, outbox, fetcher)
	case WebhookBackend:
		if fetcher == nil {
			return nil, fmt.Errorf("webhook backend requires a sync URL")
		}
		return f.assemble(states, outbox, fetcher, nil, nil), nil
	case MemoryBackend:
		f.logger.Info("initialized memory backend",
			log.FieldBackend, backendType.String(),
			"settings_cache", cfg.SettingsCachePath)
		return f.assemble(states, outbox, fetcher, nil, nil), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", backendType)
	}
}

func (f *DefaultFactory) createSQLiteBackend(cfg *config.Config, states *state.Manager, outbox *webhook.Outbox, fetcher services.UserDataFetcher) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	var queue *amqp.Client
	if cfg.AMQPURL != "" {
		queue, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			f.logger.Warn("failed to initialize AMQP client, continuing without queue",
				log.FieldError, err)
			queue = nil
		} else {
			f.logger.Info("initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	f.logger.Info("initialized sqlite backend",
		log.FieldBackend, SQLiteBackend.String(),
		"db_path", cfg.SQLiteDBPath,
		"amqp_enabled", queue != nil)

	return f.assemble(states, outbox, fetcher, repo, queue), nil
}

func (f *DefaultFactory) assemble(states *state.Manager, outbox *webhook.Outbox, fetcher services.UserDataFetcher, repo *storage.SQLiteRepository, queue *amqp.Client) *Result {
	transactions := services.NewTransactionService(states, outbox, repo, queue, f.logger)
	regularPayments := services.NewRegularPaymentService(states, outbox, repo, f.logger)
	settings := services.NewSettingsService(states, outbox, f.logger)
	syncSvc := services.NewSyncService(states, fetcher, repo, f.logger)
	recurring := services.NewRecurringProcessor(states, transactions, repo, f.logger)

	b := &Backend{
		States:          states,
		Transactions:    transactions,
		RegularPayments: regularPayments,
		Settings:        settings,
		Sync:            syncSvc,
		Recurring:       recurring,
		Repo:            repo,
		Queue:           queue,
		Outbox:          outbox,
	}

	cleanup := func() error {
		if outbox != nil {
			outbox.Flush()
		}
		var firstErr error
		if queue != nil {
			if err := queue.Close(); err != nil {
				firstErr = err
			}
		}
		if repo != nil {
			if err := repo.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}
	return &Result{Backend: b, Cleanup: cleanup}
}

func (f *DefaultFactory) settingsStore(cfg *config.Config) (state.SettingsStore, error) {
	if cfg.SettingsCachePath == "" {
		return nil, nil
	}
	store, err := state.NewFileCache(cfg.SettingsCachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open settings cache: %w", err)
	}
	return store, nil
}
