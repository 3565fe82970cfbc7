package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voltfox-backend/internal/model"
)

// GetPreferences returns the stored preferences, or the defaults when the
// user never saved any.
func (s *gormStore) GetPreferences(ctx context.Context, userID string) (model.NotificationPreferences, error) {
	var prefs model.NotificationPreferences
	err := s.db.WithContext(ctx).First(&prefs, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.DefaultPreferences(userID), nil
	}
	if err != nil {
		return model.NotificationPreferences{}, fmt.Errorf("failed to load preferences for %s: %w", userID, err)
	}
	return prefs, nil
}

func (s *gormStore) SavePreferences(ctx context.Context, prefs *model.NotificationPreferences) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(prefs).Error
	if err != nil {
		return fmt.Errorf("failed to save preferences for %s: %w", prefs.UserID, err)
	}
	return nil
}
