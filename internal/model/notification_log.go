package model

import "time"

// NotificationLog records an alert that was dispatched to a user.
type NotificationLog struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"-" gorm:"index:idx_notification_user_created,priority:1;size:128;not null"`
	DeviceID  string    `json:"deviceId" gorm:"index;size:36;not null"`
	Severity  string    `json:"severity" gorm:"size:32;not null"`
	Channel   string    `json:"channel" gorm:"size:16;not null"`
	Title     string    `json:"title" gorm:"size:256"`
	Body      string    `json:"body" gorm:"size:1024"`
	Delivered int       `json:"delivered" gorm:"not null"`
	Failed    int       `json:"failed" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"index:idx_notification_user_created,priority:2,sort:desc"`
}
