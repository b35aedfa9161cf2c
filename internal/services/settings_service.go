package services

import (
	"context"

	"vytraty/internal/core"
	"vytraty/internal/log"
	"vytraty/internal/state"
	"vytraty/internal/webhook"
)

// SettingsService applies partial settings updates and notifies the webhook
// when the category list changed.
type SettingsService struct {
	states *state.Manager
	outbox *webhook.Outbox
	logger *log.Logger
}

func NewSettingsService(states *state.Manager, outbox *webhook.Outbox, logger *log.Logger) *SettingsService {
	return &SettingsService{
		states: states,
		outbox: outbox,
		logger: logger.WithComponent(log.ComponentSettings),
	}
}

// Update merges the patch into the user's settings and returns the result.
func (s *SettingsService) Update(ctx context.Context, userID string, patch state.SettingsPatch) core.Settings {
	updated := s.states.Store(userID).UpdateSettings(patch)

	if patch.Categories != nil && s.outbox != nil {
		s.outbox.NotifyCategoriesChanged(userID, updated.Categories)
	}

	s.logger.InfoContext(ctx, "settings updated",
		log.FieldUserID, userID,
		"categories_changed", patch.Categories != nil)
	return updated
}
