package impact

import (
	"cmp"
	"context"
	"math"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// ClampLimit maps a requested ranking size onto [1, MaxRankingLimit],
// substituting the default for non-positive values.
func (a *Aggregator) ClampLimit(limit int) int {
	if limit <= 0 {
		return a.opts.DefaultRankingLimit
	}
	return min(limit, a.opts.MaxRankingLimit)
}

// GetImpactRanking returns at most limit users ordered by points descending,
// ties broken by user ID ascending, each with impact derived from their own
// disposals. Per-user folds run concurrently.
func (a *Aggregator) GetImpactRanking(ctx context.Context, limit int) ([]UserRankEntry, error) {
	limit = a.ClampLimit(limit)
	ctx, span := a.startSpan(ctx, "GetImpactRanking", attribute.Int("ranking.limit", limit))
	var err error
	defer func() { endSpan(span, err) }()

	var users []User
	users, err = a.store.TopUsersByPoints(ctx, limit)
	if err != nil {
		err = a.fail(ctx, "top_users", err)
		return nil, err
	}

	slices.SortStableFunc(users, func(x, y User) int {
		if c := cmp.Compare(y.Points, x.Points); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	if len(users) > limit {
		users = users[:limit]
	}

	entries := make([]UserRankEntry, len(users))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.RankingConcurrency)

	for i, u := range users {
		g.Go(func() error {
			ds, listErr := a.store.ListDisposalsForUser(gCtx, u.ID)
			if listErr != nil {
				return listErr
			}
			total, _ := foldDisposals(ds)
			entries[i] = UserRankEntry{
				Rank:            i + 1,
				UserID:          u.ID,
				Name:            u.Name,
				School:          u.School,
				Points:          u.Points,
				CO2Reduction:    total.CO2Reduction,
				WaterSaved:      total.WaterSaved,
				TreesEquivalent: int64(math.Round(total.TreesEquivalent)),
			}
			return nil
		})
	}

	if err = g.Wait(); err != nil {
		err = a.fail(ctx, "list_user_disposals", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("ranking.entries", len(entries)))
	return entries, nil
}
