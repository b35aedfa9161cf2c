// Package backend assembles the runtime wiring for a chosen data backend:
// state manager, services, and whichever downstream pieces the
// configuration enables.
package backend

import (
	"context"

	"vytraty/internal/amqp"
	"vytraty/internal/config"
	"vytraty/internal/services"
	"vytraty/internal/state"
	"vytraty/internal/storage"
	"vytraty/internal/webhook"
)

// Type selects where user data lives between syncs.
type Type string

const (
	// MemoryBackend keeps everything in process; settings still persist
	// through the file cache.
	MemoryBackend Type = "memory"
	// SQLiteBackend mirrors transactions into a local SQLite database.
	SQLiteBackend Type = "sqlite"
	// WebhookBackend treats the webhook endpoints as the source of truth.
	WebhookBackend Type = "webhook"
)

func (t Type) String() string { return string(t) }

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, WebhookBackend:
		return true
	default:
		return false
	}
}

// Backend bundles the wired components. Optional pieces are nil when the
// configuration does not enable them.
type Backend struct {
	States          *state.Manager
	Transactions    *services.TransactionService
	RegularPayments *services.RegularPaymentService
	Settings        *services.SettingsService
	Sync            *services.SyncService
	Recurring       *services.RecurringProcessor

	Repo   *storage.SQLiteRepository
	Queue  *amqp.Client
	Outbox *webhook.Outbox
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result contains the backend instance and its cleanup function.
type Result struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, cfg *config.Config) (*Result, error)
}
