// Package impact maintains descarte's environmental-impact aggregates.
//
// The Aggregator folds greenops.CalculateDisposalImpact over disposal events
// to keep a single global aggregate row current, either by atomic increments
// as disposals are recorded or by a full recompute, and derives per-user
// summaries and the points ranking on demand.
package impact

import (
	"math"
	"time"

	"github.com/rshade/descartecerto/internal/greenops"
)

// GlobalKey is the primary key of the singleton aggregate row.
const GlobalKey = "global"

// Disposal is one logged disposal event.
type Disposal struct {
	ID        string                `json:"id"        db:"id"`
	UserID    string                `json:"userId"    db:"user_id"`
	Material  greenops.MaterialKind `json:"material"  db:"material"`
	WeightKg  float64               `json:"weightKg"  db:"weight_kg"`
	Points    int64                 `json:"points"    db:"points"`
	CreatedAt time.Time             `json:"createdAt" db:"created_at"`
}

// User is a participant as seen by the user directory.
type User struct {
	ID        string    `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"`
	School    string    `json:"school"    db:"school"`
	Points    int64     `json:"points"    db:"points"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// GlobalImpact is the singleton aggregate over every disposal.
type GlobalImpact struct {
	CO2Reduction      float64 `json:"co2Reduction"      db:"co2_reduction"`
	WaterSaved        float64 `json:"waterSaved"        db:"water_saved"`
	EnergySaved       float64 `json:"energySaved"       db:"energy_saved"`
	TreesEquivalent   float64 `json:"treesEquivalent"   db:"trees_equivalent"`
	DecompositionTime float64 `json:"decompositionTime" db:"decomposition_time"`

	TotalPlastic    float64 `json:"totalPlastic"    db:"total_plastic"`
	TotalGlass      float64 `json:"totalGlass"      db:"total_glass"`
	TotalPaper      float64 `json:"totalPaper"      db:"total_paper"`
	TotalMetal      float64 `json:"totalMetal"      db:"total_metal"`
	TotalOrganic    float64 `json:"totalOrganic"    db:"total_organic"`
	TotalElectronic float64 `json:"totalElectronic" db:"total_electronic"`

	ActiveUsers int64     `json:"activeUsers" db:"active_users"`
	TotalPoints int64     `json:"totalPoints" db:"total_points"`
	UpdatedAt   time.Time `json:"updatedAt"   db:"updated_at"`
}

// Impact returns the five impact sums as a delta.
func (g GlobalImpact) Impact() greenops.ImpactDelta {
	return greenops.ImpactDelta{
		CO2Reduction:      g.CO2Reduction,
		WaterSaved:        g.WaterSaved,
		EnergySaved:       g.EnergySaved,
		TreesEquivalent:   g.TreesEquivalent,
		DecompositionTime: g.DecompositionTime,
	}
}

// MaterialTotals returns the per-material weight totals.
func (g GlobalImpact) MaterialTotals() greenops.MaterialWeights {
	return greenops.MaterialWeights{
		greenops.MaterialPlastic:    g.TotalPlastic,
		greenops.MaterialGlass:      g.TotalGlass,
		greenops.MaterialPaper:      g.TotalPaper,
		greenops.MaterialMetal:      g.TotalMetal,
		greenops.MaterialOrganic:    g.TotalOrganic,
		greenops.MaterialElectronic: g.TotalElectronic,
	}
}

// TotalWeight is the sum of all per-material totals.
func (g GlobalImpact) TotalWeight() float64 {
	return g.MaterialTotals().Total()
}

func newGlobalImpact(d greenops.ImpactDelta, w greenops.MaterialWeights, users, points int64) GlobalImpact {
	return GlobalImpact{
		CO2Reduction:      d.CO2Reduction,
		WaterSaved:        d.WaterSaved,
		EnergySaved:       d.EnergySaved,
		TreesEquivalent:   d.TreesEquivalent,
		DecompositionTime: d.DecompositionTime,
		TotalPlastic:      w[greenops.MaterialPlastic],
		TotalGlass:        w[greenops.MaterialGlass],
		TotalPaper:        w[greenops.MaterialPaper],
		TotalMetal:        w[greenops.MaterialMetal],
		TotalOrganic:      w[greenops.MaterialOrganic],
		TotalElectronic:   w[greenops.MaterialElectronic],
		ActiveUsers:       users,
		TotalPoints:       points,
	}
}

// Increment is one atomic "add to current value" update of the aggregate.
// Material is always a resolved (known) kind.
type Increment struct {
	Delta    greenops.ImpactDelta
	Material greenops.MaterialKind
	WeightKg float64
	Points   int64
}

// NewIncrement builds the increment for disposing weightKg of kind.
func NewIncrement(kind greenops.MaterialKind, weightKg float64, points int64) Increment {
	return Increment{
		Delta:    greenops.CalculateDisposalImpact(kind, weightKg),
		Material: greenops.ResolveMaterial(kind),
		WeightKg: weightKg,
		Points:   points,
	}
}

// UserImpactSummary is a user's impact, derived at read time and never stored.
type UserImpactSummary struct {
	CO2Reduction      float64 `json:"co2Reduction"`
	WaterSaved        float64 `json:"waterSaved"`
	EnergySaved       float64 `json:"energySaved"`
	TreesEquivalent   int64   `json:"treesEquivalent"`
	DecompositionTime int64   `json:"decompositionTime"`
	TotalDisposals    int     `json:"totalDisposals"`
	TotalWeight       float64 `json:"totalWeight"`
}

// UserImpactReport pairs a user with their summary.
type UserImpactReport struct {
	User    User              `json:"user"`
	Summary UserImpactSummary `json:"impact"`
}

// UserRankEntry is one row of the points ranking.
type UserRankEntry struct {
	Rank            int     `json:"rank"`
	UserID          string  `json:"userId"`
	Name            string  `json:"name"`
	School          string  `json:"school"`
	Points          int64   `json:"points"`
	CO2Reduction    float64 `json:"co2Reduction"`
	WaterSaved      float64 `json:"waterSaved"`
	TreesEquivalent int64   `json:"treesEquivalent"`
}

// DisposalInput is an unvalidated request to record a disposal.
type DisposalInput struct {
	UserID   string  `json:"userId"   binding:"required"`
	Material string  `json:"material" binding:"required"`
	WeightKg float64 `json:"weightKg"`
}

// foldDisposals sums the impact and weight of ds.
func foldDisposals(ds []Disposal) (greenops.ImpactDelta, greenops.MaterialWeights) {
	var total greenops.ImpactDelta
	weights := greenops.MaterialWeights{}
	for _, d := range ds {
		total = total.Add(greenops.CalculateDisposalImpact(d.Material, d.WeightKg))
		weights.Add(d.Material, d.WeightKg)
	}
	return total, weights
}

func summarize(ds []Disposal) UserImpactSummary {
	total, weights := foldDisposals(ds)
	return UserImpactSummary{
		CO2Reduction:      total.CO2Reduction,
		WaterSaved:        total.WaterSaved,
		EnergySaved:       total.EnergySaved,
		TreesEquivalent:   int64(math.Round(total.TreesEquivalent)),
		DecompositionTime: int64(math.Round(total.DecompositionTime)),
		TotalDisposals:    len(ds),
		TotalWeight:       weights.Total(),
	}
}
