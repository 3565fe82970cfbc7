package battery

// Status is the derived health bucket of a battery.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusDead     Status = "dead"
)

// Thresholds used by Classify. A value equal to a threshold is NOT below it.
const (
	CriticalCharge = 20
	CriticalHealth = 40
	WarningCharge  = 50
	WarningHealth  = 70
)

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusHealthy, StatusWarning, StatusCritical, StatusDead:
		return true
	}
	return false
}

// Classify maps a charge and health percentage to a Status. The first
// matching rule wins. Inputs outside [0,100] are clamped.
func Classify(currentCharge, health int) Status {
	currentCharge = ClampPercent(currentCharge)
	health = ClampPercent(health)

	switch {
	case currentCharge == 0 || health == 0:
		return StatusDead
	case currentCharge < CriticalCharge || health < CriticalHealth:
		return StatusCritical
	case currentCharge < WarningCharge || health < WarningHealth:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// ClampPercent bounds v to [0,100].
func ClampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
