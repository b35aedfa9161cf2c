package services

import (
	"context"
	"fmt"
	"time"

	"vytraty/internal/core"
	"vytraty/internal/log"
	"vytraty/internal/state"
	"vytraty/internal/storage"
)

// RecurringProcessor materializes due regular payments into dated
// transactions. Materialized transactions get a deterministic id per payment
// and period, so reprocessing the same period is a no-op even without the
// durable run log.
type RecurringProcessor struct {
	states       *state.Manager
	transactions *TransactionService
	repo         *storage.SQLiteRepository
	logger       *log.Logger
}

func NewRecurringProcessor(states *state.Manager, transactions *TransactionService, repo *storage.SQLiteRepository, logger *log.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		states:       states,
		transactions: transactions,
		repo:         repo,
		logger:       logger.WithComponent(log.ComponentRecurring),
	}
}

// ProcessDue walks all known users and materializes every regular payment
// whose day of month has been reached in the current period. A day past the
// end of a shorter month means the payment is skipped that month. Returns
// how many transactions were created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.states == nil || p.transactions == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	period := core.PeriodOf(now)
	created := 0

	for _, userID := range p.states.Users() {
		store := p.states.Store(userID)
		settings := store.Settings()

		payments := append(append([]core.RegularPayment{}, settings.RegularIncomes...), settings.RegularExpenses...)
		for _, payment := range payments {
			n, err := p.processPayment(ctx, store, userID, payment, period, now)
			if err != nil {
				p.logger.ErrorContext(ctx, "failed to materialize regular payment",
					log.FieldUserID, userID, "payment_id", payment.ID, log.FieldError, err)
				continue
			}
			created += n
		}
	}

	p.logger.InfoContext(ctx, "recurring processing complete",
		log.FieldCount, created,
		log.FieldMonth, period.Month,
		log.FieldYear, period.Year)
	return created, nil
}

func (p *RecurringProcessor) processPayment(ctx context.Context, store *state.Store, userID string, payment core.RegularPayment, period core.Period, now time.Time) (int, error) {
	day := payment.DayOfMonth
	if day == 0 {
		return 0, nil
	}
	// A 31st in a 30-day month never comes due.
	if day > period.Days() {
		return 0, nil
	}
	if now.Day() < day {
		return 0, nil
	}

	id := materializedID(payment.ID, period)
	if _, exists := store.Transaction(id); exists {
		return 0, nil
	}
	if p.repo != nil {
		ran, err := p.repo.RecurringRunExists(ctx, userID, payment.ID, period)
		if err != nil {
			return 0, err
		}
		if ran {
			return 0, nil
		}
	}

	t := core.Transaction{
		ID:          id,
		Type:        payment.Type,
		Amount:      payment.Amount,
		Description: payment.Description,
		Date:        time.Date(period.Year, time.Month(period.Month+1), day, 0, 0, 0, 0, now.Location()),
		IsRegular:   true,
	}
	if _, err := p.transactions.Add(ctx, userID, t); err != nil {
		return 0, err
	}

	if p.repo != nil {
		if err := p.repo.MarkRecurringRun(ctx, userID, payment.ID, period); err != nil {
			p.logger.ErrorContext(ctx, "failed to record recurring run",
				log.FieldUserID, userID, "payment_id", payment.ID, log.FieldError, err)
		}
	}
	return 1, nil
}

// materializedID is stable for one payment and period.
func materializedID(paymentID string, p core.Period) string {
	return fmt.Sprintf("recur-%s-%d-%02d", paymentID, p.Year, p.Month+1)
}

// HydrateFromMirror seeds a store for every user in the mirror with their
// regular payments, so a processor running outside the API process sees the
// same payment set the handlers wrote.
func HydrateFromMirror(ctx context.Context, states *state.Manager, repo *storage.SQLiteRepository, logger *log.Logger) error {
	users, err := repo.Users(ctx)
	if err != nil {
		return fmt.Errorf("list mirror users: %w", err)
	}

	for _, userID := range users {
		store := states.Store(userID)
		payments, err := repo.ListRegularPayments(ctx, userID)
		if err != nil {
			logger.Error("failed to load regular payments",
				log.FieldUserID, userID, log.FieldError, err)
			continue
		}
		for _, p := range payments {
			store.AddRegularPayment(p)
		}
	}
	return nil
}
