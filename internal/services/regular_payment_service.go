package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vytraty/internal/core"
	"vytraty/internal/log"
	"vytraty/internal/state"
	"vytraty/internal/storage"
	"vytraty/internal/webhook"
)

var ErrRegularPaymentNotFound = errors.New("regular payment not found")

// RegularPaymentService handles regular-payment mutations: optimistic local
// update, webhook notification and mirror persistence. The mirror copy is
// what the worker's recurring processor reads, so a payment that never
// reaches it never materializes.
type RegularPaymentService struct {
	states *state.Manager
	outbox *webhook.Outbox
	repo   *storage.SQLiteRepository
	logger *log.Logger
	now    func() time.Time
}

func NewRegularPaymentService(states *state.Manager, outbox *webhook.Outbox, repo *storage.SQLiteRepository, logger *log.Logger) *RegularPaymentService {
	return &RegularPaymentService{
		states: states,
		outbox: outbox,
		repo:   repo,
		logger: logger.WithComponent(log.ComponentRegular),
		now:    time.Now,
	}
}

// Add validates and stores a regular payment. Local state is updated first;
// the mirror write and the webhook notification are best effort.
func (s *RegularPaymentService) Add(ctx context.Context, userID string, p core.RegularPayment) (core.RegularPayment, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	if err := p.Validate(); err != nil {
		return core.RegularPayment{}, fmt.Errorf("validate regular payment: %w", err)
	}

	s.states.Store(userID).AddRegularPayment(p)

	if s.outbox != nil {
		s.outbox.NotifyNewRegularPayment(userID, p)
	}
	if s.repo != nil {
		if err := s.repo.SaveRegularPayment(ctx, userID, p); err != nil {
			s.logger.ErrorContext(ctx, "failed to mirror regular payment",
				log.FieldUserID, userID, log.FieldEntityID, p.ID, log.FieldError, err)
		}
	}

	s.logger.InfoContext(ctx, "regular payment added",
		log.FieldUserID, userID,
		log.FieldEntityID, p.ID,
		log.FieldAmountCents, p.Amount.Cents,
		"day_of_month", p.DayOfMonth)
	return p, nil
}

// Delete removes a regular payment from local state and notifies downstream.
func (s *RegularPaymentService) Delete(ctx context.Context, userID, id string) error {
	store := s.states.Store(userID)

	p, ok := findRegularPayment(store.Settings(), id)
	if !ok || !store.RemoveRegularPayment(id) {
		return ErrRegularPaymentNotFound
	}

	if s.outbox != nil {
		s.outbox.NotifyDeleteRegularPayment(userID, p)
	}
	if s.repo != nil {
		if _, err := s.repo.DeleteRegularPayment(ctx, userID, id); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete mirrored regular payment",
				log.FieldUserID, userID, log.FieldEntityID, id, log.FieldError, err)
		}
	}

	s.logger.InfoContext(ctx, "regular payment deleted",
		log.FieldUserID, userID, log.FieldEntityID, id)
	return nil
}

func findRegularPayment(settings core.Settings, id string) (core.RegularPayment, bool) {
	for _, p := range settings.RegularIncomes {
		if p.ID == id {
			return p, true
		}
	}
	for _, p := range settings.RegularExpenses {
		if p.ID == id {
			return p, true
		}
	}
	return core.RegularPayment{}, false
}
