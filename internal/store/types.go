package store

import "voltfox-backend/internal/model"

// DeviceChange is the state of a device immediately before and after a write.
type DeviceChange struct {
	Before model.Device
	After  model.Device
}

// BatteryChanged reports whether the write touched the fields the
// notification engine looks at.
func (c DeviceChange) BatteryChanged() bool {
	return c.Before.CurrentCharge != c.After.CurrentCharge ||
		c.Before.Health != c.After.Health ||
		c.Before.Status != c.After.Status
}
