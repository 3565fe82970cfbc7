package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"voltfox-backend/internal/model"
)

func (s *gormStore) RecordNotification(ctx context.Context, entry *model.NotificationLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}

func (s *gormStore) ListNotifications(ctx context.Context, userID string, limit int) ([]model.NotificationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []model.NotificationLog
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for %s: %w", userID, err)
	}
	return entries, nil
}

// LastNotification returns the newest log entry for a device and severity,
// or nil when there is none.
func (s *gormStore) LastNotification(ctx context.Context, userID, deviceID, severity string) (*model.NotificationLog, error) {
	var entry model.NotificationLog
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND device_id = ? AND severity = ?", userID, deviceID, severity).
		Order("created_at DESC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last notification: %w", err)
	}
	return &entry, nil
}
