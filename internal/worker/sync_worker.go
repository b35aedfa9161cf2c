// Package worker drains the transaction queue into the Google Sheets export
// and sweeps the SQLite mirror for rows the queue missed.
package worker

import (
	"context"
	"errors"
	"fmt"

	"vytraty/internal/amqp"
	"vytraty/internal/log"
	"vytraty/internal/sheets"
	"vytraty/internal/storage"
)

// SyncWorker exports mirrored transactions to the spreadsheet. Messages are
// the primary trigger; the pending sweep is the backup path for deliveries
// lost while the worker was down.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	appender  sheets.TransactionAppender
	logger    *log.Logger
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, appender sheets.TransactionAppender, batchSize int, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		appender:  appender,
		logger:    logger.WithComponent(log.ComponentWorker),
		batchSize: batchSize,
	}
}

// HandleMessage processes one sync message from the queue. Deletes need no
// spreadsheet work since the mirror soft-delete already happened on the API
// side; only creates are exported.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	w.logger.InfoContext(ctx, "processing sync message",
		log.FieldUserID, msg.UserID,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldAction, msg.Action)

	if msg.Action != amqp.ActionCreate {
		return nil
	}
	return w.exportTransaction(ctx, msg.UserID, msg.TransactionID)
}

// ProcessPending exports up to one batch of transactions the queue never
// delivered. Failed rows keep their attempt counter and are retried on the
// next sweep.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	return w.drainPending(ctx, w.batchSize)
}

// StartupCheck drains a larger backlog once at boot to recover from worker
// downtime.
func (w *SyncWorker) StartupCheck(ctx context.Context) error {
	return w.drainPending(ctx, w.batchSize*5)
}

func (w *SyncWorker) drainPending(ctx context.Context, limit int) error {
	pending, err := w.storage.ListUnexported(ctx, limit)
	if err != nil {
		return fmt.Errorf("list unexported transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "processing unexported transactions",
		log.FieldCount, len(pending))

	exported := 0
	for _, candidate := range pending {
		if err := w.exportTransaction(ctx, candidate.UserID, candidate.ID); err != nil {
			w.logger.ErrorContext(ctx, "failed to export transaction",
				log.FieldUserID, candidate.UserID,
				log.FieldTransactionID, candidate.ID,
				log.FieldError, err)
			continue
		}
		exported++
	}

	w.logger.InfoContext(ctx, "pending export pass complete",
		log.FieldCount, exported,
		"failed", len(pending)-exported)
	return nil
}

func (w *SyncWorker) exportTransaction(ctx context.Context, userID, id string) error {
	if w.appender == nil {
		return errors.New("no transaction appender configured")
	}

	t, err := w.storage.GetTransaction(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("load transaction from mirror: %w", err)
	}

	ref, err := w.appender.Append(ctx, userID, t)
	if err != nil {
		if markErr := w.storage.MarkExportError(ctx, userID, id); markErr != nil {
			w.logger.ErrorContext(ctx, "failed to record export error",
				log.FieldTransactionID, id, log.FieldError, markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.storage.MarkExported(ctx, userID, id); err != nil {
		// The append itself worked, so only log.
		w.logger.ErrorContext(ctx, "failed to mark transaction exported",
			log.FieldTransactionID, id, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "transaction exported",
		log.FieldUserID, userID,
		log.FieldTransactionID, id,
		"sheet_ref", ref,
		log.FieldAmountCents, t.Amount.Cents)
	return nil
}
