package notification

import (
	"fmt"
	"time"

	"voltfox-backend/internal/battery"
	"voltfox-backend/internal/model"
)

// Severity classifies why a notification is sent.
type Severity string

const (
	SeverityDead      Severity = "dead"
	SeverityCritical  Severity = "critical"
	SeverityWarning   Severity = "warning"
	SeverityLowHealth Severity = "low_health"
	SeverityWarranty  Severity = "warranty"
)

// Channel is a delivery route for a notification.
type Channel string

const (
	ChannelPush  Channel = "push"
	ChannelEmail Channel = "email"
)

const (
	// A charge drop larger than this many points is significant on its own.
	ChargeDropThreshold = 15
	// A health drop larger than this many points is significant on its own.
	HealthDropThreshold = 10
	// Below this charge and health a device counts as low on both.
	LowHealthThreshold = 70
)

// DeviceState is the part of a device the engine looks at.
type DeviceState struct {
	ID            string
	Name          string
	Status        battery.Status
	CurrentCharge int
	Health        int
}

// StateOf extracts the engine's view of a device.
func StateOf(d model.Device) DeviceState {
	return DeviceState{
		ID:            d.ID,
		Name:          d.Name,
		Status:        battery.Classify(d.CurrentCharge, d.Health),
		CurrentCharge: d.CurrentCharge,
		Health:        d.Health,
	}
}

// WarrantyState describes a device whose warranty is about to run out.
type WarrantyState struct {
	ID            string
	Name          string
	WarrantyUntil time.Time
}

// Recipient identifies who a decision is for.
type Recipient struct {
	UserID string
	Email  string
}

// Payload is the structured notification content, sent as JSON over push.
type Payload struct {
	Severity   Severity `json:"severity"`
	DeviceID   string   `json:"deviceId"`
	DeviceName string   `json:"deviceName"`
	Charge     int      `json:"charge"`
	Health     int      `json:"health"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
}

// Command is one outbound delivery the caller should perform.
type Command struct {
	Channel Channel
	UserID  string
	To      string // email destination
	Payload Payload
}

// Decision is the result of evaluating one device update.
type Decision struct {
	Significant bool
	Severity    Severity
	Commands    []Command
}

// Notify reports whether anything should be sent.
func (d Decision) Notify() bool {
	return len(d.Commands) > 0
}

// Significant reports whether the change between before and after is large
// enough to consider notifying at all.
func Significant(before, after DeviceState) bool {
	statusChanged := before.Status != after.Status
	chargeDropped := after.CurrentCharge < before.CurrentCharge &&
		(after.CurrentCharge < battery.CriticalCharge || before.CurrentCharge-after.CurrentCharge > ChargeDropThreshold)
	healthDropped := after.Health < before.Health &&
		(after.Health < battery.CriticalHealth || before.Health-after.Health > HealthDropThreshold)
	return statusChanged || chargeDropped || healthDropped
}

// Decide evaluates one device update against the user's preferences and
// returns the notifications to send. It has no side effects.
func Decide(before, after DeviceState, prefs model.NotificationPreferences, to Recipient) Decision {
	if !Significant(before, after) {
		return Decision{}
	}

	severity, ok := gate(after, prefs)
	if !ok {
		return Decision{Significant: true}
	}

	payload := Payload{
		Severity:   severity,
		DeviceID:   after.ID,
		DeviceName: after.Name,
		Charge:     after.CurrentCharge,
		Health:     after.Health,
	}
	payload.Title, payload.Body = render(severity, after)

	return Decision{
		Significant: true,
		Severity:    severity,
		Commands:    commands(payload, prefs, to),
	}
}

// gate picks the severity of an update, or reports false when the user's
// preferences silence it. Dead devices cannot be silenced.
func gate(after DeviceState, prefs model.NotificationPreferences) (Severity, bool) {
	switch {
	case after.Status == battery.StatusDead:
		return SeverityDead, true
	case after.Status == battery.StatusCritical && prefs.NotifyOnCritical:
		return SeverityCritical, true
	case after.Status == battery.StatusWarning && prefs.NotifyOnWarning:
		return SeverityWarning, true
	case after.CurrentCharge < LowHealthThreshold && after.Health < LowHealthThreshold && prefs.NotifyOnLowHealth:
		return SeverityLowHealth, true
	}
	return "", false
}

// WarrantyReminder decides whether to remind the user that a warranty ends
// within the given window.
func WarrantyReminder(w WarrantyState, prefs model.NotificationPreferences, to Recipient, now time.Time, within time.Duration) Decision {
	if !prefs.NotifyOnWarrantyExpiry || w.WarrantyUntil.Before(now) || w.WarrantyUntil.After(now.Add(within)) {
		return Decision{}
	}

	days := int(w.WarrantyUntil.Sub(now).Hours() / 24)
	body := fmt.Sprintf("The warranty for %s ends on %s (%d days left).",
		w.Name, w.WarrantyUntil.Format("2006-01-02"), days)
	payload := Payload{
		Severity:   SeverityWarranty,
		DeviceID:   w.ID,
		DeviceName: w.Name,
		Title:      fmt.Sprintf("Warranty for %s ends soon", w.Name),
		Body:       body,
	}

	return Decision{
		Significant: true,
		Severity:    SeverityWarranty,
		Commands:    commands(payload, prefs, to),
	}
}

func commands(payload Payload, prefs model.NotificationPreferences, to Recipient) []Command {
	var cmds []Command
	if prefs.PushNotifications {
		cmds = append(cmds, Command{Channel: ChannelPush, UserID: to.UserID, Payload: payload})
	}
	if prefs.EmailNotifications {
		addr := prefs.OverrideEmail
		if addr == "" {
			addr = to.Email
		}
		if addr != "" {
			cmds = append(cmds, Command{Channel: ChannelEmail, UserID: to.UserID, To: addr, Payload: payload})
		}
	}
	return cmds
}

func render(severity Severity, d DeviceState) (title, body string) {
	switch severity {
	case SeverityDead:
		title = fmt.Sprintf("%s is out of power", d.Name)
	case SeverityCritical:
		title = fmt.Sprintf("%s needs charging now", d.Name)
	case SeverityWarning:
		title = fmt.Sprintf("%s is running low", d.Name)
	default:
		title = fmt.Sprintf("%s battery is wearing out", d.Name)
	}
	body = fmt.Sprintf("%s is at %d%% charge with %d%% battery health.", d.Name, d.CurrentCharge, d.Health)
	return title, body
}
