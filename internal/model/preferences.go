package model

import "time"

// NotificationPreferences is a user's alerting configuration. Every key and
// its default is listed in DefaultPreferences.
type NotificationPreferences struct {
	UserID                 string    `json:"-" gorm:"primaryKey;size:128"`
	PushNotifications      bool      `json:"pushNotifications" gorm:"not null"`
	EmailNotifications     bool      `json:"emailNotifications" gorm:"not null"`
	NotifyOnCritical       bool      `json:"notifyOnCritical" gorm:"not null"`
	NotifyOnWarning        bool      `json:"notifyOnWarning" gorm:"not null"`
	NotifyOnLowHealth      bool      `json:"notifyOnLowHealth" gorm:"not null"`
	NotifyOnWarrantyExpiry bool      `json:"notifyOnWarrantyExpiry" gorm:"not null"`
	OverrideEmail          string    `json:"overrideEmail" gorm:"size:320"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// DefaultPreferences returns the preferences used for a user who never saved any.
func DefaultPreferences(userID string) NotificationPreferences {
	return NotificationPreferences{
		UserID:                 userID,
		PushNotifications:      true,
		EmailNotifications:     true,
		NotifyOnCritical:       true,
		NotifyOnWarning:        false,
		NotifyOnLowHealth:      true,
		NotifyOnWarrantyExpiry: true,
	}
}
