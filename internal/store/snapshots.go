package store

import (
	"context"
	"fmt"
	"time"

	"voltfox-backend/internal/model"
)

func (s *gormStore) AppendSnapshots(ctx context.Context, snapshots []model.HistorySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(&snapshots, 200).Error; err != nil {
		return fmt.Errorf("failed to append %d snapshots: %w", len(snapshots), err)
	}
	return nil
}

// ListSnapshots returns the newest snapshots first. A zero since returns
// the full retained history.
func (s *gormStore) ListSnapshots(ctx context.Context, userID, deviceID string, since time.Time, limit int) ([]model.HistorySnapshot, error) {
	q := s.db.WithContext(ctx).
		Where("device_id = ? AND user_id = ?", deviceID, userID)
	if !since.IsZero() {
		q = q.Where("taken_at >= ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var snapshots []model.HistorySnapshot
	if err := q.Order("taken_at DESC").Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("failed to list snapshots for device %s: %w", deviceID, err)
	}
	return snapshots, nil
}

// PruneSnapshots deletes snapshots older than olderThan that belong to users
// on the given plan.
func (s *gormStore) PruneSnapshots(ctx context.Context, plan model.Plan, olderThan time.Time) (int64, error) {
	users := s.db.Model(&model.User{}).Select("id").Where("plan = ?", plan)
	res := s.db.WithContext(ctx).
		Where("taken_at < ? AND user_id IN (?)", olderThan, users).
		Delete(&model.HistorySnapshot{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to prune snapshots for plan %s: %w", plan, res.Error)
	}
	return res.RowsAffected, nil
}
