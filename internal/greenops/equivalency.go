package greenops

import (
	"fmt"
	"math"
)

// Calculate expresses an amount of avoided CO2 as everyday equivalencies.
//
// The input is normalized to kilograms first. Amounts below
// MinEquivalencyThresholdKg produce an empty output without error, because the
// equivalencies would round to nothing. Normalization failures and non-finite
// results return an empty output with the corresponding sentinel error.
//
// Example:
//
//	out, err := Calculate(CarbonInput{Value: 150, Unit: "kg"})
//	// out.DisplayText == "Equivalent to not driving ~781 miles or charging ~18,248 smartphones"
func Calculate(input CarbonInput) (EquivalencyOutput, error) {
	kg, err := NormalizeToKg(input.Value, input.Unit)
	if err != nil {
		return EquivalencyOutput{IsEmpty: true}, err
	}

	if kg < MinEquivalencyThresholdKg {
		return EquivalencyOutput{InputKg: kg, IsEmpty: true}, nil
	}

	miles := kg / EPAMilesDrivenFactor
	phones := kg / EPASmartphoneChargeFactor
	seedlings := kg / EPATreeSeedlingFactor

	for _, v := range []float64{miles, phones, seedlings} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return EquivalencyOutput{IsEmpty: true}, ErrCalculationOverflow
		}
	}

	milesFormatted := formatEquivalencyValue(miles)
	phonesFormatted := formatEquivalencyValue(phones)

	results := []EquivalencyResult{
		{
			Type:           EquivalencyMilesDriven,
			Value:          miles,
			FormattedValue: milesFormatted,
			Label:          "miles not driven",
		},
		{
			Type:           EquivalencySmartphonesCharged,
			Value:          phones,
			FormattedValue: phonesFormatted,
			Label:          "smartphones charged",
		},
		{
			Type:           EquivalencyTreeSeedlings,
			Value:          seedlings,
			FormattedValue: formatEquivalencyValue(seedlings),
			Label:          "tree seedlings grown for 10 years",
		},
	}

	return EquivalencyOutput{
		InputKg: kg,
		Results: results,
		DisplayText: fmt.Sprintf("Equivalent to not driving ~%s miles or charging ~%s smartphones",
			milesFormatted, phonesFormatted),
		CompactText: fmt.Sprintf("(≈ %s mi, %s phones)", milesFormatted, phonesFormatted),
	}, nil
}

// CalculateForImpact is Calculate applied to the CO2 component of d.
func CalculateForImpact(d ImpactDelta) (EquivalencyOutput, error) {
	return Calculate(CarbonInput{Value: d.CO2Reduction, Unit: "kg"})
}

// formatEquivalencyValue uses million/billion scaling for large values and a
// rounded, comma-separated integer otherwise.
func formatEquivalencyValue(v float64) string {
	if v >= LargeNumberThreshold {
		return FormatLarge(v)
	}
	return FormatNumber(int64(math.Round(v)))
}
