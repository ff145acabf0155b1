package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rshade/descartecerto/internal/impact"
)

const disposalColumns = `id, user_id, material, weight_kg, points, created_at`

// ListDisposals returns every disposal in recording order.
func (s *Store) ListDisposals(ctx context.Context) ([]impact.Disposal, error) {
	return listDisposals(ctx, s.db)
}

func listDisposals(ctx context.Context, q sqlx.QueryerContext) ([]impact.Disposal, error) {
	var ds []impact.Disposal
	err := sqlx.SelectContext(ctx, q, &ds,
		`SELECT `+disposalColumns+` FROM disposals ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing disposals: %w", err)
	}
	return ds, nil
}

// ListDisposalsForUser returns userID's disposals in recording order.
func (s *Store) ListDisposalsForUser(ctx context.Context, userID string) ([]impact.Disposal, error) {
	var ds []impact.Disposal
	err := s.db.SelectContext(ctx, &ds, s.db.Rebind(
		`SELECT `+disposalColumns+` FROM disposals WHERE user_id = ? ORDER BY created_at, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("listing disposals for user %s: %w", userID, err)
	}
	return ds, nil
}

// InsertDisposal applies inc to the aggregate, stores d and credits d.Points
// to the user in one transaction. A missing aggregate row aborts the whole
// transaction with impact.ErrAggregateNotInitialized.
func (s *Store) InsertDisposal(ctx context.Context, d impact.Disposal, inc impact.Increment) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.increment(ctx, tx, inc); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO disposals (`+disposalColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
			d.ID, d.UserID, string(d.Material), d.WeightKg, d.Points, d.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting disposal %s: %w", d.ID, err)
		}

		res, err := tx.ExecContext(ctx, s.db.Rebind(
			`UPDATE users SET points = points + ? WHERE id = ?`), d.Points, d.UserID)
		if err != nil {
			return fmt.Errorf("crediting points to user %s: %w", d.UserID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", impact.ErrUserNotFound, d.UserID)
		}
		return nil
	})
}
