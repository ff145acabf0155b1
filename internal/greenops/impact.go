package greenops

import "slices"

// CalculateDisposalImpact returns the impact of disposing weightKg of kind.
//
// Each field is the matching coefficient multiplied by weightKg. The function
// is pure and deterministic. It does not validate weightKg; rejecting negative
// or absurd weights is the job of whoever records the disposal.
func CalculateDisposalImpact(kind MaterialKind, weightKg float64) ImpactDelta {
	f := GetFactors(kind)
	return ImpactDelta{
		CO2Reduction:      f.CO2PerKg * weightKg,
		WaterSaved:        f.WaterPerKg * weightKg,
		EnergySaved:       f.EnergyPerKg * weightKg,
		TreesEquivalent:   f.TreesPerKg * weightKg,
		DecompositionTime: f.DecompositionYearsPerKg * weightKg,
	}
}

// MaterialWeights accumulates disposed weight per resolved material kind.
type MaterialWeights map[MaterialKind]float64

// Add records weightKg against the kind whose factors were applied.
func (w MaterialWeights) Add(kind MaterialKind, weightKg float64) {
	w[ResolveMaterial(kind)] += weightKg
}

// Total returns the sum of all recorded weights. Known kinds are added in
// AllMaterials order and any others in sorted order, so the result does not
// depend on map iteration.
func (w MaterialWeights) Total() float64 {
	var total float64
	for _, kind := range AllMaterials() {
		total += w[kind]
	}

	var extra []MaterialKind
	for kind := range w {
		if !kind.IsKnown() {
			extra = append(extra, kind)
		}
	}
	slices.Sort(extra)
	for _, kind := range extra {
		total += w[kind]
	}
	return total
}
