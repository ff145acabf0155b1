package cli

import (
	"context"
	"fmt"

	"github.com/rshade/descartecerto/internal/config"
	"github.com/rshade/descartecerto/internal/impact"
	"github.com/rshade/descartecerto/internal/observability"
	"github.com/rshade/descartecerto/internal/store"
)

// app bundles the store and aggregator a command works against.
type app struct {
	cfg     *config.Config
	store   *store.Store
	agg     *impact.Aggregator
	metrics *observability.Metrics
}

// openApp opens the configured database, applies the schema and builds the
// aggregator. Schema statements are idempotent, so every command applies them.
func openApp(ctx context.Context) (*app, error) {
	cfg := config.GetGlobalConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.EnsureDataDir(cfg.Database); err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err = st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	metrics := observability.NewMetrics()
	agg := impact.New(st,
		impact.WithOptions(aggregatorOptions(cfg.Impact)),
		impact.WithRecorder(metrics),
	)
	return &app{cfg: cfg, store: st, agg: agg, metrics: metrics}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func aggregatorOptions(ic config.ImpactConfig) impact.Options {
	return impact.Options{
		DefaultRankingLimit: ic.DefaultRankingLimit,
		MaxRankingLimit:     ic.MaxRankingLimit,
		RankingConcurrency:  ic.RankingConcurrency,
		PointsPerKg:         ic.PointsPerKg,
		MaxDisposalWeightKg: ic.MaxDisposalWeightKg,
	}
}
