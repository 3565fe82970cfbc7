package battery

import (
	"math"
	"time"
)

// Unbounded is returned by DaysUntilDanger when the battery does not
// discharge at all.
const Unbounded = math.MaxInt32

const day = 24 * time.Hour

// ProjectedCharge returns the charge expected at now, assuming a linear
// decline of dischargeRate percent per day since lastCharged. The result is
// never negative. A lastCharged in the future counts as zero elapsed time.
func ProjectedCharge(lastCharged time.Time, currentCharge int, dischargeRate float64, now time.Time) float64 {
	if dischargeRate < 0 {
		dischargeRate = 0
	}
	elapsed := now.Sub(lastCharged)
	if elapsed < 0 {
		elapsed = 0
	}
	elapsedDays := float64(elapsed) / float64(day)

	projected := float64(ClampPercent(currentCharge)) - dischargeRate*elapsedDays
	if projected < 0 {
		return 0
	}
	return projected
}

// DaysUntilDanger estimates how many whole days remain before the projected
// charge reaches zero. A zero or negative discharge rate yields Unbounded.
func DaysUntilDanger(lastCharged time.Time, currentCharge int, dischargeRate float64, now time.Time) int {
	if dischargeRate <= 0 || math.IsNaN(dischargeRate) {
		return Unbounded
	}

	remaining := ProjectedCharge(lastCharged, currentCharge, dischargeRate, now) / dischargeRate
	days := math.Floor(remaining)
	if days < 0 {
		return 0
	}
	if days > Unbounded {
		return Unbounded
	}
	return int(days)
}
