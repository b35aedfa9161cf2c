// Package state holds the in-process application state for each user: the
// transaction list, settings and the currently viewed period. All writes go
// through one mutex per store; a full sync replaces the transaction list
// wholesale (last write wins, no sequencing token).
package state

import (
	"sync"
	"time"

	"vytraty/internal/core"
)

// SettingsStore persists user settings across restarts.
type SettingsStore interface {
	Get(key string, into any) (bool, error)
	Set(key string, value any) error
}

// Store is the state container for a single user.
type Store struct {
	mu     sync.RWMutex
	userID string

	transactions []core.Transaction
	settings     core.Settings
	period       core.Period
	syncing      bool

	persist func(core.Settings)
}

// NewStore creates a store positioned on the current month. persist is called
// with a settings snapshot after every settings mutation; nil disables
// persistence.
func NewStore(userID string, initial core.Settings, now time.Time, persist func(core.Settings)) *Store {
	return &Store{
		userID:   userID,
		settings: initial,
		period:   core.PeriodOf(now),
		persist:  persist,
	}
}

// UserID returns the owning user id.
func (s *Store) UserID() string {
	return s.userID
}

// Transactions returns a copy of the full transaction list, newest first.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// Settings returns a snapshot of the current settings.
func (s *Store) Settings() core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.settings)
}

// Period returns the currently viewed period.
func (s *Store) Period() core.Period {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.period
}

// Syncing reports whether a background sync is in flight.
func (s *Store) Syncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncing
}

// SetSyncing flips the sync-in-flight indicator.
func (s *Store) SetSyncing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncing = v
}

// GoToPreviousMonth moves the viewed period one month back.
func (s *Store) GoToPreviousMonth() core.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = s.period.Previous()
	return s.period
}

// GoToNextMonth moves the viewed period one month forward.
func (s *Store) GoToNextMonth() core.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.period = s.period.Next()
	return s.period
}

// GoToPeriod jumps to an arbitrary period when it is valid.
func (s *Store) GoToPeriod(p core.Period) core.Period {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Valid() {
		s.period = p
	}
	return s.period
}

// AddTransaction prepends an optimistic local transaction.
func (s *Store) AddTransaction(t core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append([]core.Transaction{t}, s.transactions...)
}

// RemoveTransaction filters out the transaction with the given id and reports
// whether it was present.
func (s *Store) RemoveTransaction(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.transactions[:0]
	found := false
	for _, t := range s.transactions {
		if t.ID == id {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	s.transactions = kept
	return found
}

// Transaction looks up a transaction by id.
func (s *Store) Transaction(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// ApplySync replaces the transaction list with the synced one and overlays
// the settings parts the sync carried. Nil categories or regular-payment
// slices mean the corresponding endpoint did not answer and the prior value
// is kept.
func (s *Store) ApplySync(transactions []core.Transaction, categories []string, regularIncomes, regularExpenses []core.RegularPayment, familyUserID string) {
	s.mu.Lock()
	s.transactions = transactions
	if categories != nil {
		s.settings.Categories = categories
	}
	if regularIncomes != nil {
		s.settings.RegularIncomes = regularIncomes
	}
	if regularExpenses != nil {
		s.settings.RegularExpenses = regularExpenses
	}
	if familyUserID != "" {
		s.settings.FamilyUserID = familyUserID
	}
	snapshot := cloneSettings(s.settings)
	s.mu.Unlock()

	s.persistSettings(snapshot)
}

// SettingsPatch is a partial settings update; nil fields keep prior values.
type SettingsPatch struct {
	Currency     *string
	Categories   *[]string
	FamilyUserID *string
}

// UpdateSettings merges a partial update into the settings and persists the
// result.
func (s *Store) UpdateSettings(patch SettingsPatch) core.Settings {
	s.mu.Lock()
	if patch.Currency != nil && *patch.Currency != "" {
		s.settings.Currency = *patch.Currency
	}
	if patch.Categories != nil {
		s.settings.Categories = *patch.Categories
	}
	if patch.FamilyUserID != nil {
		s.settings.FamilyUserID = *patch.FamilyUserID
	}
	snapshot := cloneSettings(s.settings)
	s.mu.Unlock()

	s.persistSettings(snapshot)
	return snapshot
}

// AddRegularPayment files the payment under the list matching its type.
func (s *Store) AddRegularPayment(p core.RegularPayment) {
	s.mu.Lock()
	if p.Type == core.Expense {
		s.settings.RegularExpenses = append(s.settings.RegularExpenses, p)
	} else {
		s.settings.RegularIncomes = append(s.settings.RegularIncomes, p)
	}
	snapshot := cloneSettings(s.settings)
	s.mu.Unlock()

	s.persistSettings(snapshot)
}

// RemoveRegularPayment deletes the payment by id from both lists and reports
// whether it was present.
func (s *Store) RemoveRegularPayment(id string) bool {
	s.mu.Lock()
	found := false
	s.settings.RegularIncomes, found = removePayment(s.settings.RegularIncomes, id, found)
	s.settings.RegularExpenses, found = removePayment(s.settings.RegularExpenses, id, found)
	snapshot := cloneSettings(s.settings)
	s.mu.Unlock()

	if found {
		s.persistSettings(snapshot)
	}
	return found
}

// MonthlyStats aggregates the given period from the current state.
func (s *Store) MonthlyStats(p core.Period) core.MonthlyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.ComputeMonthlyStats(s.transactions, p, s.settings.RegularIncomes, s.settings.RegularExpenses)
}

// MonthTransactions returns the transactions of the given period in stored
// order.
func (s *Store) MonthTransactions(p core.Period) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.MonthTransactions(s.transactions, p)
}

func (s *Store) persistSettings(snapshot core.Settings) {
	if s.persist != nil {
		s.persist(snapshot)
	}
}

func removePayment(list []core.RegularPayment, id string, found bool) ([]core.RegularPayment, bool) {
	kept := list[:0]
	for _, p := range list {
		if p.ID == id {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	return kept, found
}

func cloneSettings(s core.Settings) core.Settings {
	out := s
	out.RegularIncomes = append([]core.RegularPayment(nil), s.RegularIncomes...)
	out.RegularExpenses = append([]core.RegularPayment(nil), s.RegularExpenses...)
	out.Categories = append([]string(nil), s.Categories...)
	return out
}
