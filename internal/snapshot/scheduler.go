package snapshot

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voltfox-backend/config"
	"voltfox-backend/internal/model"
	"voltfox-backend/internal/notification"
)

const (
	batchSize = 200
	// A warranty reminder is sent at most once per device in this window.
	reminderWindow = 24 * time.Hour
)

// Repository is the storage the scheduler needs. store.Store satisfies it.
type Repository interface {
	ForEachActiveDevice(ctx context.Context, batchSize int, fn func([]model.Device) error) error
	AppendSnapshots(ctx context.Context, snapshots []model.HistorySnapshot) error
	PruneSnapshots(ctx context.Context, plan model.Plan, olderThan time.Time) (int64, error)
	LastNotification(ctx context.Context, userID, deviceID, severity string) (*model.NotificationLog, error)
}

// Dispatcher queues notification events.
type Dispatcher interface {
	Dispatch(ev notification.Event) bool
}

// Result summarises one scheduler cycle.
type Result struct {
	Snapshots int
	Pruned    int64
	Reminders int
}

// Scheduler periodically records history snapshots, enforces history
// retention and queues warranty reminders.
type Scheduler struct {
	cfg        config.SnapshotConfig
	repo       Repository
	dispatcher Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler(cfg config.SnapshotConfig, repo Repository, dispatcher Dispatcher, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		repo:       repo,
		dispatcher: dispatcher,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run executes a cycle immediately and then once per interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("snapshot scheduler is disabled, not starting")
		return
	}
	s.log.Info("starting snapshot scheduler", zap.Duration("interval", s.cfg.Interval))

	s.RunOnce(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("snapshot scheduler shutting down")
			return
		case <-timer.C:
			s.RunOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// RunOnce performs a single cycle. Errors are logged and the remaining steps
// still run.
func (s *Scheduler) RunOnce(ctx context.Context) Result {
	now := s.now()
	var res Result

	err := s.repo.ForEachActiveDevice(ctx, batchSize, func(devices []model.Device) error {
		snapshots := make([]model.HistorySnapshot, 0, len(devices))
		for _, d := range devices {
			snapshots = append(snapshots, model.SnapshotOf(d, now))
		}
		if err := s.repo.AppendSnapshots(ctx, snapshots); err != nil {
			return err
		}
		res.Snapshots += len(snapshots)

		for _, d := range devices {
			if s.remindWarranty(ctx, d, now) {
				res.Reminders++
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("snapshot cycle failed", zap.Error(err), zap.Int("snapshots", res.Snapshots))
	}

	retention := model.PlanFree.HistoryRetention()
	pruned, err := s.repo.PruneSnapshots(ctx, model.PlanFree, now.Add(-retention))
	if err != nil {
		s.log.Error("failed to prune snapshots", zap.Error(err))
	}
	res.Pruned = pruned

	s.log.Info("snapshot cycle finished",
		zap.Int("snapshots", res.Snapshots),
		zap.Int64("pruned", res.Pruned),
		zap.Int("warranty_reminders", res.Reminders))
	return res
}

// remindWarranty queues a reminder when the device warranty ends within the
// configured horizon and no reminder went out recently.
func (s *Scheduler) remindWarranty(ctx context.Context, d model.Device, now time.Time) bool {
	until := d.Insurance.WarrantyUntil
	horizon := time.Duration(s.cfg.WarrantyReminderDays) * 24 * time.Hour
	if until == nil || until.Before(now) || until.After(now.Add(horizon)) {
		return false
	}

	last, err := s.repo.LastNotification(ctx, d.UserID, d.ID, string(notification.SeverityWarranty))
	if err != nil {
		s.log.Warn("failed to check last warranty reminder", zap.String("device_id", d.ID), zap.Error(err))
		return false
	}
	if last != nil && now.Sub(last.CreatedAt) < reminderWindow {
		return false
	}

	return s.dispatcher.Dispatch(notification.WarrantyEvent(d))
}
