package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rshade/descartecerto/internal/greenops"
	"github.com/rshade/descartecerto/internal/impact"
)

const aggregateColumns = `co2_reduction, water_saved, energy_saved, trees_equivalent, decomposition_time,
	total_plastic, total_glass, total_paper, total_metal, total_organic, total_electronic,
	active_users, total_points, updated_at`

// materialColumns maps each resolved material to its weight-total column.
//
//nolint:gochecknoglobals // Constant lookup table.
var materialColumns = map[greenops.MaterialKind]string{
	greenops.MaterialPlastic:    "total_plastic",
	greenops.MaterialGlass:      "total_glass",
	greenops.MaterialPaper:      "total_paper",
	greenops.MaterialMetal:      "total_metal",
	greenops.MaterialOrganic:    "total_organic",
	greenops.MaterialElectronic: "total_electronic",
}

// LoadAggregate returns the global row or impact.ErrAggregateNotInitialized.
func (s *Store) LoadAggregate(ctx context.Context) (impact.GlobalImpact, error) {
	var g impact.GlobalImpact
	err := s.db.GetContext(ctx, &g, s.db.Rebind(
		`SELECT `+aggregateColumns+` FROM impact_aggregates WHERE id = ?`), impact.GlobalKey)
	if errors.Is(err, sql.ErrNoRows) {
		return impact.GlobalImpact{}, impact.ErrAggregateNotInitialized
	}
	if err != nil {
		return impact.GlobalImpact{}, fmt.Errorf("loading aggregate: %w", err)
	}
	return g, nil
}

// IncrementAggregate adds inc to the global row in a single UPDATE so that
// concurrent callers never lose each other's additions.
func (s *Store) IncrementAggregate(ctx context.Context, inc impact.Increment) error {
	return s.increment(ctx, s.db, inc)
}

func (s *Store) increment(ctx context.Context, ex sqlx.ExecerContext, inc impact.Increment) error {
	col, ok := materialColumns[greenops.ResolveMaterial(inc.Material)]
	if !ok {
		return fmt.Errorf("no weight column for material %q", inc.Material)
	}

	// col comes from materialColumns, never from input.
	query := s.db.Rebind(`UPDATE impact_aggregates
	    SET co2_reduction      = co2_reduction + ?,
	        water_saved        = water_saved + ?,
	        energy_saved       = energy_saved + ?,
	        trees_equivalent   = trees_equivalent + ?,
	        decomposition_time = decomposition_time + ?,
	        ` + col + ` = ` + col + ` + ?,
	        total_points       = total_points + ?,
	        updated_at         = ?
	  WHERE id = ?`)

	res, err := ex.ExecContext(ctx, query,
		inc.Delta.CO2Reduction,
		inc.Delta.WaterSaved,
		inc.Delta.EnergySaved,
		inc.Delta.TreesEquivalent,
		inc.Delta.DecompositionTime,
		inc.WeightKg,
		inc.Points,
		time.Now().UTC(),
		impact.GlobalKey,
	)
	if err != nil {
		return fmt.Errorf("incrementing aggregate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("incrementing aggregate: %w", err)
	}
	if n == 0 {
		return impact.ErrAggregateNotInitialized
	}
	return nil
}

// txSource reads inside the recompute transaction.
type txSource struct {
	tx *sqlx.Tx
}

func (t txSource) ListDisposals(ctx context.Context) ([]impact.Disposal, error) {
	return listDisposals(ctx, t.tx)
}

func (t txSource) CountUsers(ctx context.Context) (int64, error) {
	return countUsers(ctx, t.tx)
}

func (t txSource) SumUserPoints(ctx context.Context) (int64, error) {
	return sumUserPoints(ctx, t.tx)
}

// aggregateRow adds the key column for the upsert's named parameters.
type aggregateRow struct {
	ID string `db:"id"`
	impact.GlobalImpact
}

// RecomputeAggregate runs fn and upserts its result in one transaction.
// On PostgreSQL the aggregate table is locked in EXCLUSIVE mode first, which
// blocks concurrent increments (and disposal inserts at their increment)
// until commit. On SQLite the single connection and BEGIN IMMEDIATE give
// the same exclusion.
func (s *Store) RecomputeAggregate(ctx context.Context, fn impact.RecomputeFunc) (impact.GlobalImpact, error) {
	var out impact.GlobalImpact
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if !s.sqlite {
			if _, err := tx.ExecContext(ctx, `LOCK TABLE impact_aggregates IN EXCLUSIVE MODE`); err != nil {
				return fmt.Errorf("locking aggregate table: %w", err)
			}
		}

		agg, err := fn(ctx, txSource{tx: tx})
		if err != nil {
			return err
		}
		if agg.UpdatedAt.IsZero() {
			agg.UpdatedAt = time.Now()
		}
		agg.UpdatedAt = agg.UpdatedAt.UTC()

		_, err = tx.NamedExecContext(ctx, `INSERT INTO impact_aggregates (id, `+aggregateColumns+`)
			VALUES (:id, :co2_reduction, :water_saved, :energy_saved, :trees_equivalent, :decomposition_time,
				:total_plastic, :total_glass, :total_paper, :total_metal, :total_organic, :total_electronic,
				:active_users, :total_points, :updated_at)
			ON CONFLICT (id) DO UPDATE SET
				co2_reduction      = excluded.co2_reduction,
				water_saved        = excluded.water_saved,
				energy_saved       = excluded.energy_saved,
				trees_equivalent   = excluded.trees_equivalent,
				decomposition_time = excluded.decomposition_time,
				total_plastic      = excluded.total_plastic,
				total_glass        = excluded.total_glass,
				total_paper        = excluded.total_paper,
				total_metal        = excluded.total_metal,
				total_organic      = excluded.total_organic,
				total_electronic   = excluded.total_electronic,
				active_users       = excluded.active_users,
				total_points       = excluded.total_points,
				updated_at         = excluded.updated_at`,
			aggregateRow{ID: impact.GlobalKey, GlobalImpact: agg},
		)
		if err != nil {
			return fmt.Errorf("upserting aggregate: %w", err)
		}
		out = agg
		return nil
	})
	if err != nil {
		return impact.GlobalImpact{}, err
	}
	return out, nil
}
