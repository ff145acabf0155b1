package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rshade/descartecerto/internal/impact"
)

const userColumns = `id, name, school, points, created_at`

// CreateUser inserts u. When the global aggregate exists its active user
// count and point total are bumped in the same transaction, keeping the row
// equal to what a full recompute would produce.
func (s *Store) CreateUser(ctx context.Context, u impact.User) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, s.db.Rebind(
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`),
			u.ID, u.Name, u.School, u.Points, u.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting user %s: %w", u.ID, err)
		}

		_, err = tx.ExecContext(ctx, s.db.Rebind(
			`UPDATE impact_aggregates
			    SET active_users = active_users + 1,
			        total_points = total_points + ?
			  WHERE id = ?`),
			u.Points, impact.GlobalKey,
		)
		if err != nil {
			return fmt.Errorf("counting new user in aggregate: %w", err)
		}
		return nil
	})
}

// GetUser returns the user with id or impact.ErrUserNotFound.
func (s *Store) GetUser(ctx context.Context, id string) (impact.User, error) {
	var u impact.User
	err := s.db.GetContext(ctx, &u, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return impact.User{}, fmt.Errorf("%w: %s", impact.ErrUserNotFound, id)
	}
	if err != nil {
		return impact.User{}, fmt.Errorf("loading user %s: %w", id, err)
	}
	return u, nil
}

// TopUsersByPoints returns at most limit users by points descending, then ID.
func (s *Store) TopUsersByPoints(ctx context.Context, limit int) ([]impact.User, error) {
	var users []impact.User
	err := s.db.SelectContext(ctx, &users, s.db.Rebind(
		`SELECT `+userColumns+` FROM users ORDER BY points DESC, id ASC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("listing top users: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	return countUsers(ctx, s.db)
}

// SumUserPoints returns the total points across all users.
func (s *Store) SumUserPoints(ctx context.Context) (int64, error) {
	return sumUserPoints(ctx, s.db)
}

func countUsers(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

func sumUserPoints(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var n int64
	if err := sqlx.GetContext(ctx, q, &n, `SELECT CAST(COALESCE(SUM(points), 0) AS BIGINT) FROM users`); err != nil {
		return 0, fmt.Errorf("summing user points: %w", err)
	}
	return n, nil
}
