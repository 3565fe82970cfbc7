package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"voltfox-backend/internal/model"
)

// ErrNotFound is returned when a record does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	EnsureUser(ctx context.Context, userID, email string) (model.User, error)
	GetUser(ctx context.Context, userID string) (model.User, error)

	CreateDevice(ctx context.Context, device *model.Device) error
	GetDevice(ctx context.Context, userID, deviceID string) (model.Device, error)
	ListDevices(ctx context.Context, userID string) ([]model.Device, error)
	UpdateDevice(ctx context.Context, userID, deviceID string, mutate func(*model.Device) error) (DeviceChange, error)
	DeleteDevice(ctx context.Context, userID, deviceID string) error
	ForEachActiveDevice(ctx context.Context, batchSize int, fn func([]model.Device) error) error

	AppendSnapshots(ctx context.Context, snapshots []model.HistorySnapshot) error
	ListSnapshots(ctx context.Context, userID, deviceID string, since time.Time, limit int) ([]model.HistorySnapshot, error)
	PruneSnapshots(ctx context.Context, plan model.Plan, olderThan time.Time) (int64, error)

	GetPreferences(ctx context.Context, userID string) (model.NotificationPreferences, error)
	SavePreferences(ctx context.Context, prefs *model.NotificationPreferences) error

	ListPushSubscriptions(ctx context.Context, userID string) ([]model.PushSubscription, error)
	GetPushSubscription(ctx context.Context, userID, endpoint string) (model.PushSubscription, error)
	UpsertPushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscriptions(ctx context.Context, userID string, endpoints ...string) (int64, error)

	RecordNotification(ctx context.Context, entry *model.NotificationLog) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.NotificationLog, error)
	LastNotification(ctx context.Context, userID, deviceID, severity string) (*model.NotificationLog, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
