package greenops

import (
	"math"
	"strings"
)

// unitFactor returns the multiplier that converts unit to kilograms.
// CO2e-suffixed spellings are accepted so the same table serves carbon amounts.
func unitFactor(unit string) (float64, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "g", "gco2e":
		return GramsToKg, true
	case "", "kg", "kgco2e":
		return KgToKg, true
	case "t", "ton", "tonne", "tco2e":
		return TonsToKg, true
	case "lb", "lbs", "lbco2e":
		return PoundsToKg, true
	default:
		return 0, false
	}
}

// NormalizeToKg converts value in unit to kilograms. An empty unit means kg.
//
// It returns ErrNegativeValue for negative input, ErrInvalidUnit for an
// unrecognized unit and ErrCalculationOverflow for Inf/NaN input or results.
func NormalizeToKg(value float64, unit string) (float64, error) {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrCalculationOverflow
	}
	if value < 0 {
		return 0, ErrNegativeValue
	}

	factor, ok := unitFactor(unit)
	if !ok {
		return 0, ErrInvalidUnit
	}

	kg := value * factor
	if math.IsInf(kg, 0) {
		return 0, ErrCalculationOverflow
	}
	return kg, nil
}

// IsRecognizedUnit reports whether unit can be passed to NormalizeToKg.
func IsRecognizedUnit(unit string) bool {
	_, ok := unitFactor(unit)
	return ok
}
