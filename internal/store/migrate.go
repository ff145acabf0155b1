package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/rshade/descartecerto/internal/logging"
)

// schema is applied in order by Migrate. {{TS}} expands to the driver's
// timestamp type. Every statement is idempotent.
//
//nolint:gochecknoglobals // Static DDL.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		school     TEXT NOT NULL DEFAULT '',
		points     BIGINT NOT NULL DEFAULT 0,
		created_at {{TS}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_points ON users (points DESC, id)`,
	`CREATE TABLE IF NOT EXISTS disposals (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL REFERENCES users (id),
		material   TEXT NOT NULL,
		weight_kg  DOUBLE PRECISION NOT NULL CHECK (weight_kg >= 0),
		points     BIGINT NOT NULL DEFAULT 0,
		created_at {{TS}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_disposals_user_id ON disposals (user_id)`,
	`CREATE TABLE IF NOT EXISTS impact_aggregates (
		id                 TEXT PRIMARY KEY,
		co2_reduction      DOUBLE PRECISION NOT NULL DEFAULT 0,
		water_saved        DOUBLE PRECISION NOT NULL DEFAULT 0,
		energy_saved       DOUBLE PRECISION NOT NULL DEFAULT 0,
		trees_equivalent   DOUBLE PRECISION NOT NULL DEFAULT 0,
		decomposition_time DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_plastic      DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_glass        DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_paper        DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_metal        DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_organic      DOUBLE PRECISION NOT NULL DEFAULT 0,
		total_electronic   DOUBLE PRECISION NOT NULL DEFAULT 0,
		active_users       BIGINT NOT NULL DEFAULT 0,
		total_points       BIGINT NOT NULL DEFAULT 0,
		updated_at         {{TS}} NOT NULL
	)`,
}

// Migrate creates any missing tables and indexes in one transaction.
func (s *Store) Migrate(ctx context.Context) error {
	ts := "TIMESTAMPTZ"
	if s.sqlite {
		// modernc only parses TEXT back into time.Time for these declared types.
		ts = "TIMESTAMP"
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		for i, stmt := range schema {
			if _, err := tx.ExecContext(ctx, strings.ReplaceAll(stmt, "{{TS}}", ts)); err != nil {
				return fmt.Errorf("applying schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log := logging.FromContext(ctx)
	log.Info().
		Ctx(ctx).
		Str("component", "store").
		Int("statements", len(schema)).
		Msg("database schema is up to date")
	return nil
}
