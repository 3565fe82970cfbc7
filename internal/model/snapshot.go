package model

import (
	"time"

	"voltfox-backend/internal/battery"
)

// HistorySnapshot is an append-only record of a device's battery state.
type HistorySnapshot struct {
	ID            int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID      string         `json:"deviceId" gorm:"index:idx_snapshot_device_taken,priority:1;size:36;not null"`
	UserID        string         `json:"-" gorm:"index;size:128;not null"`
	CurrentCharge int            `json:"currentCharge" gorm:"not null"`
	Health        int            `json:"health" gorm:"not null"`
	Status        battery.Status `json:"status" gorm:"size:16;not null"`
	Voltage       *float64       `json:"voltage,omitempty"`
	Temperature   *float64       `json:"temperature,omitempty"`
	TakenAt       time.Time      `json:"takenAt" gorm:"index:idx_snapshot_device_taken,priority:2,sort:desc;not null"`
}

// SnapshotOf copies the battery state of d at the given time.
func SnapshotOf(d Device, takenAt time.Time) HistorySnapshot {
	return HistorySnapshot{
		DeviceID:      d.ID,
		UserID:        d.UserID,
		CurrentCharge: d.CurrentCharge,
		Health:        d.Health,
		Status:        battery.Classify(d.CurrentCharge, d.Health),
		TakenAt:       takenAt,
	}
}
