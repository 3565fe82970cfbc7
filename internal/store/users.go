package store

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"voltfox-backend/internal/model"
)

// EnsureUser creates the user on first sight and keeps the email current.
func (s *gormStore) EnsureUser(ctx context.Context, userID, email string) (model.User, error) {
	user := model.User{ID: userID, Email: email, Plan: model.PlanFree}

	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}
	if email != "" {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "updated_at"}),
		}
	}

	if err := s.db.WithContext(ctx).Clauses(onConflict).Create(&user).Error; err != nil {
		return model.User{}, fmt.Errorf("failed to upsert user %s: %w", userID, err)
	}
	return s.GetUser(ctx, userID)
}

func (s *gormStore) GetUser(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return model.User{}, notFound(err)
	}
	return user, nil
}
