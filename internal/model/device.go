package model

import (
	"time"

	"gorm.io/gorm"

	"voltfox-backend/internal/battery"
)

// DeviceType enumerates the kinds of battery-powered items a user can track.
type DeviceType string

const (
	DeviceTypeDrone      DeviceType = "drone"
	DeviceTypeCamera     DeviceType = "camera"
	DeviceTypeLaptop     DeviceType = "laptop"
	DeviceTypePhone      DeviceType = "phone"
	DeviceTypeTablet     DeviceType = "tablet"
	DeviceTypeSmartwatch DeviceType = "smartwatch"
	DeviceTypeHeadphones DeviceType = "headphones"
	DeviceTypeSpeaker    DeviceType = "speaker"
	DeviceTypeEBike      DeviceType = "e-bike"
	DeviceTypeRCCar      DeviceType = "rc-car"
	DeviceTypeOther      DeviceType = "other"
)

// DeviceTypes lists every known device type.
func DeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeDrone, DeviceTypeCamera, DeviceTypeLaptop, DeviceTypePhone,
		DeviceTypeTablet, DeviceTypeSmartwatch, DeviceTypeHeadphones, DeviceTypeSpeaker,
		DeviceTypeEBike, DeviceTypeRCCar, DeviceTypeOther,
	}
}

// Insurance is inert metadata kept alongside a device.
type Insurance struct {
	PurchasePrice *float64   `json:"purchasePrice,omitempty"`
	PurchaseDate  *time.Time `json:"purchaseDate,omitempty"`
	WarrantyUntil *time.Time `json:"warrantyUntil,omitempty" gorm:"index"`
	SerialNumber  string     `json:"serialNumber,omitempty" gorm:"size:128"`
}

// Device is one physical battery-powered item owned by a single user.
type Device struct {
	ID     string `json:"id" gorm:"primaryKey;size:36"`
	UserID string `json:"userId" gorm:"index;size:128;not null"`

	Name     string     `json:"name" gorm:"size:256;not null"`
	Type     DeviceType `json:"type" gorm:"size:32;not null"`
	Brand    string     `json:"brand,omitempty" gorm:"size:128"`
	Model    string     `json:"model,omitempty" gorm:"size:128"`
	Icon     string     `json:"icon,omitempty" gorm:"size:64"`
	ImageURL string     `json:"imageUrl,omitempty" gorm:"size:1024"`

	Chemistry     battery.Chemistry `json:"chemistry" gorm:"size:16;not null"`
	CurrentCharge int               `json:"currentCharge" gorm:"not null"`
	Health        int               `json:"health" gorm:"not null"`
	DischargeRate float64           `json:"dischargeRate" gorm:"not null;default:0"`
	Status        battery.Status    `json:"status" gorm:"size:16;not null"`
	Cycles        *int              `json:"cycles,omitempty"`

	LastCharged time.Time  `json:"lastCharged" gorm:"not null"`
	LastUsed    *time.Time `json:"lastUsed,omitempty"`

	Defective   bool       `json:"defective" gorm:"not null;default:false"`
	DefectiveAt *time.Time `json:"defectiveAt,omitempty"`

	Insurance Insurance `json:"insurance" gorm:"embedded;embeddedPrefix:insurance_"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Associations
	Batteries []Battery `json:"batteries,omitempty" gorm:"foreignKey:DeviceID;constraint:OnDelete:CASCADE"`
}

// BeforeSave keeps Status consistent with CurrentCharge and Health on every write.
func (d *Device) BeforeSave(tx *gorm.DB) error {
	d.Status = battery.Classify(d.CurrentCharge, d.Health)
	return nil
}

// AgeYears is the device age measured from its purchase date, falling back to
// the time it was first recorded.
func (d *Device) AgeYears(now time.Time) float64 {
	since := d.CreatedAt
	if d.Insurance.PurchaseDate != nil {
		since = *d.Insurance.PurchaseDate
	}
	if since.IsZero() || now.Before(since) {
		return 0
	}
	return now.Sub(since).Hours() / (24 * 365.25)
}

// Battery is an auxiliary pack of a multi-battery device.
type Battery struct {
	ID            int64          `json:"id" gorm:"primaryKey;autoIncrement"`
	DeviceID      string         `json:"-" gorm:"index;size:36;not null"`
	Position      int            `json:"position" gorm:"not null"`
	Label         string         `json:"label,omitempty" gorm:"size:128"`
	CurrentCharge int            `json:"currentCharge" gorm:"not null"`
	Health        int            `json:"health" gorm:"not null"`
	Status        battery.Status `json:"status" gorm:"size:16;not null"`
	Cycles        *int           `json:"cycles,omitempty"`
	LastCharged   *time.Time     `json:"lastCharged,omitempty"`
}

// BeforeSave keeps Status consistent with CurrentCharge and Health on every write.
func (b *Battery) BeforeSave(tx *gorm.DB) error {
	b.Status = battery.Classify(b.CurrentCharge, b.Health)
	return nil
}
