package battery

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestDaysUntilDanger(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name        string
		lastCharged time.Time
		charge      int
		rate        float64
		expected    int
	}{
		{"just charged", now, 100, 10, 10},
		{"half a day elapsed floors the remainder", now.Add(-12 * time.Hour), 100, 10, 9},
		{"three days elapsed", now.Add(-72 * time.Hour), 80, 5, 13},
		{"projected charge exhausted", now.Add(-30 * 24 * time.Hour), 50, 5, 0},
		{"zero rate is unbounded", now.Add(-48 * time.Hour), 40, 0, Unbounded},
		{"negative rate is unbounded", now, 40, -3, Unbounded},
		{"future last charged counts as no elapsed time", now.Add(24 * time.Hour), 30, 10, 3},
		{"zero charge", now, 0, 2, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DaysUntilDanger(tc.lastCharged, tc.charge, tc.rate, now))
		})
	}
}

func TestProjectedCharge(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.InDelta(t, 95.0, ProjectedCharge(now.Add(-12*time.Hour), 100, 10, now), 1e-9)
	assert.Equal(t, 0.0, ProjectedCharge(now.Add(-100*24*time.Hour), 100, 10, now))
	assert.Equal(t, 60.0, ProjectedCharge(now.Add(-100*24*time.Hour), 60, 0, now))
}

func TestDaysUntilDanger_Properties(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	properties := gopter.NewProperties(nil)

	properties.Property("non-increasing in elapsed time", prop.ForAll(
		func(charge int, rate float64, hoursA, hoursB int) bool {
			if hoursA > hoursB {
				hoursA, hoursB = hoursB, hoursA
			}
			earlier := DaysUntilDanger(now.Add(-time.Duration(hoursA)*time.Hour), charge, rate, now)
			later := DaysUntilDanger(now.Add(-time.Duration(hoursB)*time.Hour), charge, rate, now)
			return later <= earlier
		},
		gen.IntRange(0, 100),
		gen.Float64Range(0.1, 50),
		gen.IntRange(0, 24*365),
		gen.IntRange(0, 24*365),
	))

	properties.Property("zero once the projected charge is exhausted", prop.ForAll(
		func(charge int, rate float64) bool {
			daysToEmpty := float64(charge)/rate + 1
			lastCharged := now.Add(-time.Duration(daysToEmpty * float64(24*time.Hour)))
			return DaysUntilDanger(lastCharged, charge, rate, now) == 0
		},
		gen.IntRange(0, 100),
		gen.Float64Range(0.1, 50),
	))

	properties.Property("never negative", prop.ForAll(
		func(charge int, rate float64, hours int) bool {
			return DaysUntilDanger(now.Add(-time.Duration(hours)*time.Hour), charge, rate, now) >= 0
		},
		gen.IntRange(-50, 150),
		gen.Float64Range(-10, 50),
		gen.IntRange(-1000, 100000),
	))

	properties.TestingRun(t)
}
