package greenops

// materialFactors is the per-kilogram coefficient table.
// Values are averages published by Brazilian recycling associations
// (ABIPLAST, ABIVIDRO, CEMPRE) rounded for display.
//
//nolint:gochecknoglobals,mnd // Constant lookup table.
var materialFactors = map[MaterialKind]MaterialImpactFactor{
	MaterialPlastic: {
		Kind:                    MaterialPlastic,
		CO2PerKg:                2.5,
		WaterPerKg:              100,
		EnergyPerKg:             5.8,
		TreesPerKg:              0,
		DecompositionYearsPerKg: 450,
	},
	MaterialGlass: {
		Kind:                    MaterialGlass,
		CO2PerKg:                0.3,
		WaterPerKg:              50,
		EnergyPerKg:             0.6,
		TreesPerKg:              0,
		DecompositionYearsPerKg: 1000,
	},
	MaterialPaper: {
		Kind:                    MaterialPaper,
		CO2PerKg:                0.8,
		WaterPerKg:              200,
		EnergyPerKg:             4.0,
		TreesPerKg:              0.017,
		DecompositionYearsPerKg: 0.5,
	},
	MaterialMetal: {
		Kind:                    MaterialMetal,
		CO2PerKg:                4.0,
		WaterPerKg:              40,
		EnergyPerKg:             14.0,
		TreesPerKg:              0,
		DecompositionYearsPerKg: 200,
	},
	MaterialOrganic: {
		Kind:                    MaterialOrganic,
		CO2PerKg:                0.5,
		WaterPerKg:              10,
		EnergyPerKg:             0.2,
		TreesPerKg:              0,
		DecompositionYearsPerKg: 0.2,
	},
	MaterialElectronic: {
		Kind:                    MaterialElectronic,
		CO2PerKg:                3.5,
		WaterPerKg:              300,
		EnergyPerKg:             20.0,
		TreesPerKg:              0.005,
		DecompositionYearsPerKg: 1000,
	},
}

// ResolveMaterial returns the kind whose factor row applies to kind.
// Unknown kinds resolve to FallbackMaterial.
func ResolveMaterial(kind MaterialKind) MaterialKind {
	if kind.IsKnown() {
		return kind
	}
	return FallbackMaterial
}

// GetFactors returns the coefficient row for kind.
// It never fails: unknown kinds get the FallbackMaterial row, so callers that
// need to reject unknown input must check IsKnown or use ParseMaterialKind first.
func GetFactors(kind MaterialKind) MaterialImpactFactor {
	return materialFactors[ResolveMaterial(kind)]
}

// FactorTable returns every coefficient row in AllMaterials order.
func FactorTable() []MaterialImpactFactor {
	kinds := AllMaterials()
	table := make([]MaterialImpactFactor, 0, len(kinds))
	for _, k := range kinds {
		table = append(table, materialFactors[k])
	}
	return table
}
