// Package greenops converts recycled material weights into environmental impact
// metrics.
//
// Every material kind has a fixed row of per-kilogram coefficients (CO2 avoided,
// water saved, energy saved, tree equivalents and decomposition time avoided).
// A disposal's impact is the coefficient row scaled by the disposed weight, so
// impacts are linear in weight and can be summed in any order.
//
// The package also renders avoided CO2 as relatable equivalencies such as
// "miles not driven" using EPA-published conversion factors.
package greenops

import (
	"fmt"
	"strings"
)

// MaterialKind identifies a recyclable material category.
type MaterialKind string

// Known material kinds.
const (
	MaterialPlastic    MaterialKind = "PLASTIC"
	MaterialGlass      MaterialKind = "GLASS"
	MaterialPaper      MaterialKind = "PAPER"
	MaterialMetal      MaterialKind = "METAL"
	MaterialOrganic    MaterialKind = "ORGANIC"
	MaterialElectronic MaterialKind = "ELECTRONIC"
)

// FallbackMaterial is the row used for any kind not present in the factor table.
const FallbackMaterial = MaterialPlastic

// AllMaterials returns the known material kinds in display order.
func AllMaterials() []MaterialKind {
	return []MaterialKind{
		MaterialPlastic,
		MaterialGlass,
		MaterialPaper,
		MaterialMetal,
		MaterialOrganic,
		MaterialElectronic,
	}
}

// String returns the canonical upper-case name.
func (m MaterialKind) String() string {
	return string(m)
}

// IsKnown reports whether m has its own row in the factor table.
func (m MaterialKind) IsKnown() bool {
	_, ok := materialFactors[m]
	return ok
}

// materialAliases maps lower-case spellings accepted at input boundaries,
// including the Portuguese names used by the web client.
//
//nolint:gochecknoglobals // Constant lookup table.
var materialAliases = map[string]MaterialKind{
	"plastic":    MaterialPlastic,
	"plastico":   MaterialPlastic,
	"plástico":   MaterialPlastic,
	"glass":      MaterialGlass,
	"vidro":      MaterialGlass,
	"paper":      MaterialPaper,
	"papel":      MaterialPaper,
	"metal":      MaterialMetal,
	"organic":    MaterialOrganic,
	"organico":   MaterialOrganic,
	"orgânico":   MaterialOrganic,
	"electronic": MaterialElectronic,
	"eletronico": MaterialElectronic,
	"eletrônico": MaterialElectronic,
}

// ParseMaterialKind resolves a user-supplied material name.
// Matching is case-insensitive and ignores surrounding whitespace.
// Returns ErrUnknownMaterial for names that have no factor row.
func ParseMaterialKind(s string) (MaterialKind, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if kind, ok := materialAliases[key]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMaterial, s)
}

// MaterialImpactFactor holds the per-kilogram coefficients for one material.
// All coefficients are non-negative.
type MaterialImpactFactor struct {
	Kind MaterialKind `json:"material"`

	// CO2PerKg is kg of CO2 avoided per kg recycled.
	CO2PerKg float64 `json:"co2PerKg"`

	// WaterPerKg is litres of water saved per kg recycled.
	WaterPerKg float64 `json:"waterPerKg"`

	// EnergyPerKg is kWh saved per kg recycled.
	EnergyPerKg float64 `json:"energyPerKg"`

	// TreesPerKg is trees preserved per kg recycled.
	TreesPerKg float64 `json:"treesPerKg"`

	// DecompositionYearsPerKg is years of landfill decomposition avoided per kg.
	DecompositionYearsPerKg float64 `json:"decompositionYearsPerKg"`
}

// ImpactDelta is the environmental impact of one or more disposals.
type ImpactDelta struct {
	CO2Reduction      float64 `json:"co2Reduction"`
	WaterSaved        float64 `json:"waterSaved"`
	EnergySaved       float64 `json:"energySaved"`
	TreesEquivalent   float64 `json:"treesEquivalent"`
	DecompositionTime float64 `json:"decompositionTime"`
}

// Add returns the componentwise sum of d and o.
func (d ImpactDelta) Add(o ImpactDelta) ImpactDelta {
	return ImpactDelta{
		CO2Reduction:      d.CO2Reduction + o.CO2Reduction,
		WaterSaved:        d.WaterSaved + o.WaterSaved,
		EnergySaved:       d.EnergySaved + o.EnergySaved,
		TreesEquivalent:   d.TreesEquivalent + o.TreesEquivalent,
		DecompositionTime: d.DecompositionTime + o.DecompositionTime,
	}
}

// Scale returns d with every field multiplied by k.
func (d ImpactDelta) Scale(k float64) ImpactDelta {
	return ImpactDelta{
		CO2Reduction:      d.CO2Reduction * k,
		WaterSaved:        d.WaterSaved * k,
		EnergySaved:       d.EnergySaved * k,
		TreesEquivalent:   d.TreesEquivalent * k,
		DecompositionTime: d.DecompositionTime * k,
	}
}

// IsZero reports whether every component is zero.
func (d ImpactDelta) IsZero() bool {
	return d == ImpactDelta{}
}

// EquivalencyType represents a category of carbon emission equivalency.
type EquivalencyType int

const (
	// EquivalencyMilesDriven converts CO2e to miles driven in an average passenger vehicle.
	EquivalencyMilesDriven EquivalencyType = iota

	// EquivalencySmartphonesCharged converts CO2e to smartphone full charges.
	EquivalencySmartphonesCharged

	// EquivalencyTreeSeedlings converts CO2e to tree seedlings grown for 10 years.
	EquivalencyTreeSeedlings
)

// String returns a human-readable representation of the EquivalencyType.
func (e EquivalencyType) String() string {
	switch e {
	case EquivalencyMilesDriven:
		return "MilesDriven"
	case EquivalencySmartphonesCharged:
		return "SmartphonesCharged"
	case EquivalencyTreeSeedlings:
		return "TreeSeedlings"
	default:
		return fmt.Sprintf("EquivalencyType(%d)", e)
	}
}

// CarbonInput is an amount of avoided CO2 in any recognized mass unit.
type CarbonInput struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// EquivalencyResult represents a single calculated equivalency.
type EquivalencyResult struct {
	Type           EquivalencyType `json:"type"`
	Value          float64         `json:"value"`
	FormattedValue string          `json:"formattedValue"`
	Label          string          `json:"label"`
}

// EquivalencyOutput contains all equivalency results for display.
type EquivalencyOutput struct {
	// InputKg is the normalized input value in kilograms CO2.
	InputKg float64 `json:"inputKg"`

	// Results contains calculated equivalencies in priority order.
	Results []EquivalencyResult `json:"results"`

	// DisplayText is the full prose format for CLI output.
	DisplayText string `json:"displayText"`

	// CompactText is the abbreviated format for table cells.
	CompactText string `json:"compactText"`

	IsEmpty bool `json:"isEmpty"`
}
