package services

import (
	"context"
	"fmt"

	"vytraty/internal/core"
	"vytraty/internal/log"
	"vytraty/internal/state"
	"vytraty/internal/storage"
	"vytraty/internal/webhook"
)

// UserDataFetcher is the sync endpoint surface SyncService depends on.
type UserDataFetcher interface {
	FetchUserData(ctx context.Context, userID string) (webhook.UserData, error)
}

// SyncService pulls the user's data from the webhook and replaces local
// state with it. Last write wins; a failed fetch leaves prior state intact.
type SyncService struct {
	states  *state.Manager
	fetcher UserDataFetcher
	repo    *storage.SQLiteRepository
	logger  *log.Logger
}

func NewSyncService(states *state.Manager, fetcher UserDataFetcher, repo *storage.SQLiteRepository, logger *log.Logger) *SyncService {
	return &SyncService{
		states:  states,
		fetcher: fetcher,
		repo:    repo,
		logger:  logger.WithComponent(log.ComponentSync),
	}
}

// Sync fetches and applies the user's full data set. The syncing flag is
// raised for the duration so the UI can show an indicator.
func (s *SyncService) Sync(ctx context.Context, userID string) error {
	if s.fetcher == nil {
		return fmt.Errorf("sync endpoint not configured")
	}

	store := s.states.Store(userID)
	store.SetSyncing(true)
	defer store.SetSyncing(false)

	data, err := s.fetcher.FetchUserData(ctx, userID)
	if err != nil {
		s.logger.WarnContext(ctx, "sync failed, keeping prior state",
			log.FieldUserID, userID, log.FieldError, err)
		return fmt.Errorf("sync user %s: %w", userID, err)
	}

	store.ApplySync(data.Transactions, data.Categories, data.RegularIncomes, data.RegularExpenses, data.FamilyUserID)

	if s.repo != nil {
		if err := s.repo.ReplaceTransactions(ctx, userID, data.Transactions); err != nil {
			s.logger.ErrorContext(ctx, "failed to mirror synced transactions",
				log.FieldUserID, userID, log.FieldError, err)
		}
		// The regular-payment endpoint answers with both lists or not at
		// all; nil means the prior mirror rows stay, matching ApplySync.
		if data.RegularIncomes != nil || data.RegularExpenses != nil {
			payments := append(append([]core.RegularPayment{}, data.RegularIncomes...), data.RegularExpenses...)
			if err := s.repo.ReplaceRegularPayments(ctx, userID, payments); err != nil {
				s.logger.ErrorContext(ctx, "failed to mirror synced regular payments",
					log.FieldUserID, userID, log.FieldError, err)
			}
		}
	}

	s.logger.InfoContext(ctx, "sync complete",
		log.FieldUserID, userID,
		log.FieldCount, len(data.Transactions))
	return nil
}

// Syncing reports whether a sync is currently in flight for the user.
func (s *SyncService) Syncing(userID string) bool {
	return s.states.Store(userID).Syncing()
}
