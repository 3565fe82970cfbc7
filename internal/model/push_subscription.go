package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// The endpoint is the opaque delivery token.
type PushSubscription struct {
	Endpoint  string    `json:"endpoint" gorm:"primaryKey;size:1024"`
	UserID    string    `json:"-" gorm:"index;size:128;not null"`
	P256DH    string    `json:"p256dh" gorm:"column:p256dh;not null"`
	Auth      string    `json:"auth" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}
