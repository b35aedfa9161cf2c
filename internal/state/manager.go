package state

import (
	"sync"
	"time"

	"vytraty/internal/core"
	"vytraty/internal/log"
)

// Manager hands out one Store per user, hydrating settings from the durable
// cache on first access and writing them back on every mutation.
type Manager struct {
	mu     sync.Mutex
	stores map[string]*Store

	settings SettingsStore
	logger   *log.Logger
	now      func() time.Time
}

// NewManager creates a manager over the given settings store. settings may be
// nil for fully volatile state.
func NewManager(settings SettingsStore, logger *log.Logger) *Manager {
	return &Manager{
		stores:   make(map[string]*Store),
		settings: settings,
		logger:   logger.WithComponent(log.ComponentState),
		now:      time.Now,
	}
}

// Store returns the state store for userID, creating it on first use.
func (m *Manager) Store(userID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[userID]; ok {
		return s
	}

	s := NewStore(userID, m.loadSettings(userID), m.now(), m.persister(userID))
	m.stores[userID] = s
	return s
}

// Users returns the ids of all users with a live store.
func (m *Manager) Users() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.stores))
	for id := range m.stores {
		out = append(out, id)
	}
	return out
}

func (m *Manager) loadSettings(userID string) core.Settings {
	settings := core.DefaultSettings()
	if m.settings == nil {
		return settings
	}

	found, err := m.settings.Get(SettingsKey(userID), &settings)
	if err != nil {
		m.logger.Warn("failed to load cached settings, using defaults",
			log.FieldUserID, userID, log.FieldError, err)
		return core.DefaultSettings()
	}
	if !found {
		return core.DefaultSettings()
	}
	if settings.Currency == "" {
		settings.Currency = core.DefaultCurrency
	}
	return settings
}

func (m *Manager) persister(userID string) func(core.Settings) {
	if m.settings == nil {
		return nil
	}
	return func(s core.Settings) {
		if err := m.settings.Set(SettingsKey(userID), s); err != nil {
			m.logger.Warn("failed to persist settings",
				log.FieldUserID, userID, log.FieldError, err)
		}
	}
}
