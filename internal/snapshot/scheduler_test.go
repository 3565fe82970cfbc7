package snapshot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"voltfox-backend/config"
	"voltfox-backend/internal/battery"
	"voltfox-backend/internal/db"
	"voltfox-backend/internal/model"
	"voltfox-backend/internal/notification"
	"voltfox-backend/internal/store"
)

type recordingDispatcher struct {
	events []notification.Event
}

func (r *recordingDispatcher) Dispatch(ev notification.Event) bool {
	r.events = append(r.events, ev)
	return true
}

func newStore(t *testing.T) store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(gormDB))
	return store.NewGormStore(gormDB)
}

func addDevice(t *testing.T, s store.Store, userID string, mutate func(*model.Device)) *model.Device {
	t.Helper()
	d := &model.Device{
		UserID:        userID,
		Name:          "Device of " + userID,
		Type:          model.DeviceTypeLaptop,
		Chemistry:     battery.ChemistryLiIon,
		CurrentCharge: 70,
		Health:        90,
	}
	if mutate != nil {
		mutate(d)
	}
	require.NoError(t, s.CreateDevice(context.Background(), d))
	return d
}

func TestScheduler_RunOnce(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)

	_, err := s.EnsureUser(ctx, "alice", "alice@example.com")
	require.NoError(t, err)

	soon := now.Add(10 * 24 * time.Hour)
	far := now.Add(90 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	covered := addDevice(t, s, "alice", func(d *model.Device) { d.Insurance.WarrantyUntil = &soon })
	addDevice(t, s, "alice", func(d *model.Device) { d.Insurance.WarrantyUntil = &far })
	addDevice(t, s, "alice", func(d *model.Device) { d.Insurance.WarrantyUntil = &past })
	addDevice(t, s, "alice", func(d *model.Device) { d.Defective = true })

	old := model.SnapshotOf(*covered, now.Add(-8*24*time.Hour))
	require.NoError(t, s.AppendSnapshots(ctx, []model.HistorySnapshot{old}))

	dispatcher := &recordingDispatcher{}
	sched := NewScheduler(config.SnapshotConfig{Enabled: true, WarrantyReminderDays: 30}, s, dispatcher, zap.NewNop())
	sched.now = func() time.Time { return now }

	res := sched.RunOnce(ctx)
	assert.Equal(t, 3, res.Snapshots, "defective devices are not snapshotted")
	assert.Equal(t, int64(1), res.Pruned)
	assert.Equal(t, 1, res.Reminders)
	require.Len(t, dispatcher.events, 1)
	require.NotNil(t, dispatcher.events[0].Warranty)
	assert.Equal(t, covered.ID, dispatcher.events[0].Warranty.ID)

	history, err := s.ListSnapshots(ctx, "alice", covered.ID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].TakenAt.Equal(now))
}

func TestScheduler_WarrantyReminderOncePerWindow(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 3, 0, 0, 0, time.UTC)

	soon := now.Add(5 * 24 * time.Hour)
	d := addDevice(t, s, "bob", func(d *model.Device) { d.Insurance.WarrantyUntil = &soon })

	require.NoError(t, s.RecordNotification(ctx, &model.NotificationLog{
		UserID: "bob", DeviceID: d.ID, Severity: "warranty", Channel: "push", Delivered: 1,
		CreatedAt: now.Add(-2 * time.Hour),
	}))

	dispatcher := &recordingDispatcher{}
	sched := NewScheduler(config.SnapshotConfig{Enabled: true, WarrantyReminderDays: 30}, s, dispatcher, zap.NewNop())
	sched.now = func() time.Time { return now }

	assert.Zero(t, sched.RunOnce(ctx).Reminders)

	sched.now = func() time.Time { return now.Add(reminderWindow) }
	assert.Equal(t, 1, sched.RunOnce(ctx).Reminders)
}

func TestScheduler_RunDisabledReturnsImmediately(t *testing.T) {
	sched := NewScheduler(config.SnapshotConfig{Enabled: false}, nil, nil, zap.NewNop())

	done := make(chan struct{})
	go func() {
		sched.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled scheduler did not return")
	}
}
