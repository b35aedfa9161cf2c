// Package services orchestrates the domain operations across the state
// store, the webhook outbox, the SQLite mirror and the sync queue. Local
// state is always updated first; everything downstream is best effort.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vytraty/internal/amqp"
	"vytraty/internal/core"
	"vytraty/internal/log"
	"vytraty/internal/state"
	"vytraty/internal/storage"
	"vytraty/internal/webhook"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionService handles transaction mutations: optimistic local update,
// webhook notification, optional persistence and queue publish.
type TransactionService struct {
	states *state.Manager
	outbox *webhook.Outbox
	repo   *storage.SQLiteRepository
	queue  *amqp.Client
	logger *log.Logger
	now    func() time.Time
}

func NewTransactionService(states *state.Manager, outbox *webhook.Outbox, repo *storage.SQLiteRepository, queue *amqp.Client, logger *log.Logger) *TransactionService {
	return &TransactionService{
		states: states,
		outbox: outbox,
		repo:   repo,
		queue:  queue,
		logger: logger.WithComponent(log.ComponentTransaction),
		now:    time.Now,
	}
}

// Add validates and stores a transaction. The local state is updated before
// any remote call; remote failures are logged, never surfaced.
func (s *TransactionService) Add(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Date.IsZero() {
		t.Date = s.now()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	s.states.Store(userID).AddTransaction(t)

	if s.outbox != nil {
		s.outbox.NotifyNewTransaction(userID, t)
	}
	if s.repo != nil {
		if err := s.repo.SaveTransaction(ctx, userID, t); err != nil {
			s.logger.ErrorContext(ctx, "failed to mirror transaction",
				log.FieldUserID, userID, log.FieldTransactionID, t.ID, log.FieldError, err)
		}
	}
	s.publish(ctx, userID, t.ID, amqp.ActionCreate)

	s.logger.InfoContext(ctx, "transaction added",
		log.FieldUserID, userID,
		log.FieldTransactionID, t.ID,
		log.FieldAmountCents, t.Amount.Cents,
		log.FieldCategory, t.Category)
	return t, nil
}

// Delete removes a transaction from local state and notifies downstream.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	store := s.states.Store(userID)

	t, ok := store.Transaction(id)
	if !ok || !store.RemoveTransaction(id) {
		return ErrTransactionNotFound
	}

	if s.outbox != nil {
		s.outbox.NotifyDeleteTransaction(userID, t)
	}
	if s.repo != nil {
		if _, err := s.repo.DeleteTransaction(ctx, userID, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete mirrored transaction",
				log.FieldUserID, userID, log.FieldTransactionID, id, log.FieldError, err)
		}
	}
	s.publish(ctx, userID, id, amqp.ActionDelete)

	s.logger.InfoContext(ctx, "transaction deleted",
		log.FieldUserID, userID, log.FieldTransactionID, id)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, userID, transactionID, action string) {
	if s.queue == nil {
		return
	}
	if err := s.queue.PublishTransactionSync(ctx, userID, transactionID, action); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish sync message",
			log.FieldUserID, userID,
			log.FieldTransactionID, transactionID,
			log.FieldAction, action,
			log.FieldError, err)
	}
}
