package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voltfox-backend/internal/model"
)

func (s *gormStore) CreateDevice(ctx context.Context, device *model.Device) error {
	if device.ID == "" {
		device.ID = uuid.NewString()
	}
	if device.LastCharged.IsZero() {
		device.LastCharged = s.now()
	}
	for i := range device.Batteries {
		device.Batteries[i].ID = 0
		device.Batteries[i].DeviceID = device.ID
	}

	if err := s.db.WithContext(ctx).Create(device).Error; err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

func (s *gormStore) GetDevice(ctx context.Context, userID, deviceID string) (model.Device, error) {
	var device model.Device
	err := s.db.WithContext(ctx).
		Preload("Batteries", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("id = ? AND user_id = ?", deviceID, userID).
		First(&device).Error
	if err != nil {
		return model.Device{}, notFound(err)
	}
	return device, nil
}

func (s *gormStore) ListDevices(ctx context.Context, userID string) ([]model.Device, error) {
	var devices []model.Device
	err := s.db.WithContext(ctx).
		Preload("Batteries", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&devices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// UpdateDevice loads the device, applies mutate and writes it back in one
// transaction. Status is recomputed by the model hook, so mutate only needs
// to touch the inputs. Auxiliary batteries are replaced when mutate changed them.
func (s *gormStore) UpdateDevice(ctx context.Context, userID, deviceID string, mutate func(*model.Device) error) (DeviceChange, error) {
	var change DeviceChange

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var device model.Device
		if err := tx.Preload("Batteries", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
			Where("id = ? AND user_id = ?", deviceID, userID).
			First(&device).Error; err != nil {
			return notFound(err)
		}

		before := device
		before.Batteries = append([]model.Battery(nil), device.Batteries...)

		if err := mutate(&device); err != nil {
			return err
		}
		device.ID = before.ID
		device.UserID = before.UserID

		if err := tx.Omit(clause.Associations).Save(&device).Error; err != nil {
			return fmt.Errorf("failed to save device %s: %w", deviceID, err)
		}

		if !batteriesEqual(before.Batteries, device.Batteries) {
			if err := replaceBatteries(tx, device.ID, device.Batteries); err != nil {
				return err
			}
		}

		change = DeviceChange{Before: before, After: device}
		return nil
	})
	if err != nil {
		return DeviceChange{}, err
	}
	return change, nil
}

func replaceBatteries(tx *gorm.DB, deviceID string, batteries []model.Battery) error {
	if err := tx.Where("device_id = ?", deviceID).Delete(&model.Battery{}).Error; err != nil {
		return fmt.Errorf("failed to clear batteries of device %s: %w", deviceID, err)
	}
	if len(batteries) == 0 {
		return nil
	}
	for i := range batteries {
		batteries[i].ID = 0
		batteries[i].DeviceID = deviceID
	}
	if err := tx.Create(&batteries).Error; err != nil {
		return fmt.Errorf("failed to write batteries of device %s: %w", deviceID, err)
	}
	return nil
}

func batteriesEqual(a, b []model.Battery) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Position != y.Position || x.Label != y.Label ||
			x.CurrentCharge != y.CurrentCharge || x.Health != y.Health ||
			!intPtrEqual(x.Cycles, y.Cycles) {
			return false
		}
		if (x.LastCharged == nil) != (y.LastCharged == nil) ||
			(x.LastCharged != nil && !x.LastCharged.Equal(*y.LastCharged)) {
			return false
		}
	}
	return true
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *gormStore) DeleteDevice(ctx context.Context, userID, deviceID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", deviceID, userID).Delete(&model.Device{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete device %s: %w", deviceID, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&model.Battery{}).Error; err != nil {
			return fmt.Errorf("failed to delete batteries of device %s: %w", deviceID, err)
		}
		if err := tx.Where("device_id = ?", deviceID).Delete(&model.HistorySnapshot{}).Error; err != nil {
			return fmt.Errorf("failed to delete history of device %s: %w", deviceID, err)
		}
		return nil
	})
}

// ForEachActiveDevice walks every non-defective device in batches.
func (s *gormStore) ForEachActiveDevice(ctx context.Context, batchSize int, fn func([]model.Device) error) error {
	var batch []model.Device
	res := s.db.WithContext(ctx).
		Where("defective = ?", false).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	if res.Error != nil {
		return fmt.Errorf("failed to walk devices: %w", res.Error)
	}
	return nil
}
