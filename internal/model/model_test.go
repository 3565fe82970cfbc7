package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voltfox-backend/internal/battery"
)

func TestDevice_BeforeSaveDerivesStatus(t *testing.T) {
	d := &Device{CurrentCharge: 15, Health: 90, Status: battery.StatusHealthy}
	require.NoError(t, d.BeforeSave(nil))
	assert.Equal(t, battery.StatusCritical, d.Status)

	b := &Battery{CurrentCharge: 80, Health: 0}
	require.NoError(t, b.BeforeSave(nil))
	assert.Equal(t, battery.StatusDead, b.Status)
}

func TestDevice_AgeYears(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	purchased := now.AddDate(-2, 0, 0)

	d := Device{CreatedAt: now.AddDate(-1, 0, 0)}
	assert.InDelta(t, 1.0, d.AgeYears(now), 0.01, "falls back to the creation time")

	d.Insurance.PurchaseDate = &purchased
	assert.InDelta(t, 2.0, d.AgeYears(now), 0.01, "the purchase date wins")

	future := now.Add(time.Hour)
	d.Insurance.PurchaseDate = &future
	assert.Zero(t, d.AgeYears(now))

	assert.Zero(t, (&Device{}).AgeYears(now))
}

func TestPlan_HistoryRetention(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, PlanFree.HistoryRetention())
	assert.Zero(t, PlanPlus.HistoryRetention())
	assert.Zero(t, PlanPro.HistoryRetention())
	assert.Equal(t, FreeHistoryRetention, Plan("").HistoryRetention(), "unknown plans are treated as free")
}

func TestSnapshotOf(t *testing.T) {
	takenAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := Device{ID: "d1", UserID: "u1", CurrentCharge: 45, Health: 80, Status: battery.StatusHealthy}

	snap := SnapshotOf(d, takenAt)
	assert.Equal(t, "d1", snap.DeviceID)
	assert.Equal(t, "u1", snap.UserID)
	assert.Equal(t, 45, snap.CurrentCharge)
	assert.Equal(t, battery.StatusWarning, snap.Status, "status is derived, not copied")
	assert.Equal(t, takenAt, snap.TakenAt)
	assert.Zero(t, snap.ID)
}

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences("u1")
	assert.Equal(t, "u1", prefs.UserID)
	assert.True(t, prefs.PushNotifications)
	assert.True(t, prefs.EmailNotifications)
	assert.True(t, prefs.NotifyOnCritical)
	assert.False(t, prefs.NotifyOnWarning)
	assert.True(t, prefs.NotifyOnLowHealth)
	assert.True(t, prefs.NotifyOnWarrantyExpiry)
	assert.Empty(t, prefs.OverrideEmail)
}

func TestDeviceTypes(t *testing.T) {
	types := DeviceTypes()
	assert.Contains(t, types, DeviceTypeDrone)
	assert.Contains(t, types, DeviceTypeOther)
}
