package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"voltfox-backend/internal/model"
)

func (s *gormStore) ListPushSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions for %s: %w", userID, err)
	}
	return subs, nil
}

func (s *gormStore) GetPushSubscription(ctx context.Context, userID, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ? AND user_id = ?", endpoint, userID).Error
	if err != nil {
		return model.PushSubscription{}, notFound(err)
	}
	return sub, nil
}

// UpsertPushSubscription creates the subscription or refreshes its keys. An
// endpoint re-registered by another account moves to that account.
func (s *gormStore) UpsertPushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to upsert push subscription: %w", err)
	}
	return nil
}

// DeletePushSubscriptions removes the given endpoints of a user. Deleting an
// endpoint that is already gone is not an error.
func (s *gormStore) DeletePushSubscriptions(ctx context.Context, userID string, endpoints ...string) (int64, error) {
	if len(endpoints) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND endpoint IN ?", userID, endpoints).
		Delete(&model.PushSubscription{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete push subscriptions for %s: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}
