package battery

import "math"

// Chemistry is the cell technology of a battery.
type Chemistry string

const (
	ChemistryLiPo     Chemistry = "LiPo"
	ChemistryLiIon    Chemistry = "Li-ion"
	ChemistryNiMH     Chemistry = "NiMH"
	ChemistryLeadAcid Chemistry = "Lead-Acid"
)

// Chemistries lists every supported chemistry.
func Chemistries() []Chemistry {
	return []Chemistry{ChemistryLiPo, ChemistryLiIon, ChemistryNiMH, ChemistryLeadAcid}
}

// Valid reports whether c is a supported chemistry.
func (c Chemistry) Valid() bool {
	for _, known := range Chemistries() {
		if c == known {
			return true
		}
	}
	return false
}

// MaxCycles is the rated cycle life assumed for a chemistry.
func MaxCycles(c Chemistry) int {
	if c == ChemistryLiPo {
		return 300
	}
	return 500
}

const (
	agePenaltyPerYear = 10.0
	cyclePenaltyMax   = 50.0
	lowChargePenalty  = 20.0
)

// EstimateHealth is a heuristic, not a physical model: it only guarantees
// that more age, more cycles or a low charge never raise the estimate.
// cycles may be nil when the cycle count is unknown.
func EstimateHealth(ageYears float64, cycles *int, chemistry Chemistry, currentCharge int) int {
	if ageYears < 0 || math.IsNaN(ageYears) {
		ageYears = 0
	}

	health := 100.0 - ageYears*agePenaltyPerYear
	if cycles != nil && *cycles > 0 {
		health -= float64(*cycles) / float64(MaxCycles(chemistry)) * cyclePenaltyMax
	}
	if currentCharge < CriticalCharge {
		health -= lowChargePenalty
	}

	health = math.Max(0, math.Min(100, health))
	return int(math.Round(health))
}
