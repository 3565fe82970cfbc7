// Package device coordinates device writes with the notification pipeline.
package device

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voltfox-backend/internal/logger"
	"voltfox-backend/internal/model"
	"voltfox-backend/internal/notification"
	"voltfox-backend/internal/store"
)

// Dispatcher queues notification events without blocking.
type Dispatcher interface {
	Dispatch(ev notification.Event) bool
}

// Reading is one charge measurement reported for a device.
type Reading struct {
	Charge      int
	Health      *int
	Voltage     *float64
	Temperature *float64
}

// Service applies device writes and hands every battery change to the
// notification dispatcher. A dispatch problem never fails the write.
type Service struct {
	store      store.Store
	dispatcher Dispatcher
	log        *zap.Logger
	now        func() time.Time
}

// NewService creates a device service.
func NewService(s store.Store, dispatcher Dispatcher, log *zap.Logger) *Service {
	return &Service{
		store:      s,
		dispatcher: dispatcher,
		log:        log.Named(logger.NameDevice),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Now is the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// Update applies mutate to the stored device. A changed charge without an
// explicit lastCharged moves lastCharged to now, because the decay estimate
// counts from the moment the charge was observed.
func (s *Service) Update(ctx context.Context, userID, deviceID string, mutate func(*model.Device) error) (model.Device, error) {
	now := s.now()
	change, err := s.store.UpdateDevice(ctx, userID, deviceID, func(d *model.Device) error {
		charge, lastCharged := d.CurrentCharge, d.LastCharged
		if err := mutate(d); err != nil {
			return err
		}
		if d.CurrentCharge != charge && d.LastCharged.Equal(lastCharged) {
			d.LastCharged = now
		}
		return nil
	})
	if err != nil {
		return model.Device{}, err
	}

	s.notify(change)
	return change.After, nil
}

// MarkCharged records a full charge. The cycle counter advances when the
// device tracks cycles.
func (s *Service) MarkCharged(ctx context.Context, userID, deviceID string) (model.Device, error) {
	now := s.now()
	return s.Update(ctx, userID, deviceID, func(d *model.Device) error {
		d.CurrentCharge = 100
		d.LastCharged = now
		if d.Cycles != nil {
			cycles := *d.Cycles + 1
			d.Cycles = &cycles
		}
		return nil
	})
}

// MarkDefective flags the device as defective. Defective devices are kept
// but no longer snapshotted.
func (s *Service) MarkDefective(ctx context.Context, userID, deviceID string) (model.Device, error) {
	now := s.now()
	return s.Update(ctx, userID, deviceID, func(d *model.Device) error {
		if !d.Defective {
			d.Defective = true
			d.DefectiveAt = &now
		}
		return nil
	})
}

// RecordReading applies a measured charge to the device and appends a
// history snapshot carrying the optional electrical readings.
func (s *Service) RecordReading(ctx context.Context, userID, deviceID string, r Reading) (model.HistorySnapshot, error) {
	now := s.now()
	d, err := s.Update(ctx, userID, deviceID, func(d *model.Device) error {
		d.CurrentCharge = r.Charge
		d.LastCharged = now
		if r.Health != nil {
			d.Health = *r.Health
		}
		return nil
	})
	if err != nil {
		return model.HistorySnapshot{}, err
	}
	return s.appendSnapshot(ctx, d, now, r.Voltage, r.Temperature)
}

// RecordSnapshot appends a snapshot of the device's current state without
// changing the device.
func (s *Service) RecordSnapshot(ctx context.Context, userID, deviceID string, voltage, temperature *float64) (model.HistorySnapshot, error) {
	d, err := s.store.GetDevice(ctx, userID, deviceID)
	if err != nil {
		return model.HistorySnapshot{}, err
	}
	return s.appendSnapshot(ctx, d, s.now(), voltage, temperature)
}

func (s *Service) appendSnapshot(ctx context.Context, d model.Device, now time.Time, voltage, temperature *float64) (model.HistorySnapshot, error) {
	snap := model.SnapshotOf(d, now)
	snap.Voltage = voltage
	snap.Temperature = temperature

	batch := []model.HistorySnapshot{snap}
	if err := s.store.AppendSnapshots(ctx, batch); err != nil {
		return model.HistorySnapshot{}, err
	}
	return batch[0], nil
}

func (s *Service) notify(change store.DeviceChange) {
	if !change.BatteryChanged() {
		return
	}
	if !s.dispatcher.Dispatch(notification.ChangeEvent(change.Before, change.After)) {
		s.log.Debug("device change not queued",
			zap.String("user_id", change.After.UserID), zap.String("device_id", change.After.ID))
	}
}
