package store_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/descartecerto/internal/config"
	"github.com/rshade/descartecerto/internal/greenops"
	"github.com/rshade/descartecerto/internal/impact"
	"github.com/rshade/descartecerto/internal/store"
)

const tolerance = 1e-9

var created = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "descarte.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func addUser(t *testing.T, s *store.Store, id string, points int64) {
	t.Helper()
	require.NoError(t, s.CreateUser(context.Background(), impact.User{
		ID:        id,
		Name:      "Aluno " + id,
		School:    "EE Leste",
		Points:    points,
		CreatedAt: created,
	}))
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := store.Open(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	require.ErrorIs(t, err, store.ErrUnsupportedDriver)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	addUser(t, s, "c", 30)
	addUser(t, s, "a", 50)
	addUser(t, s, "b", 30)
	addUser(t, s, "d", 0)

	u, err := s.GetUser(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Aluno a", u.Name)
	assert.Equal(t, int64(50), u.Points)
	assert.True(t, created.Equal(u.CreatedAt), "got %v", u.CreatedAt)

	_, err = s.GetUser(ctx, "zz")
	require.ErrorIs(t, err, impact.ErrUserNotFound)

	top, err := s.TopUsersByPoints(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{top[0].ID, top[1].ID, top[2].ID})

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	sum, err := s.SumUserPoints(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(110), sum)

	err = s.CreateUser(ctx, impact.User{ID: "a", Name: "dup", CreatedAt: created})
	require.Error(t, err, "duplicate id")
}

func TestSumUserPoints_Empty(t *testing.T) {
	sum, err := openTestStore(t).SumUserPoints(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum)
}

func TestAggregate_NotInitialized(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	addUser(t, s, "u1", 0)

	_, err := s.LoadAggregate(ctx)
	require.ErrorIs(t, err, impact.ErrAggregateNotInitialized)

	err = s.IncrementAggregate(ctx, impact.NewIncrement(greenops.MaterialGlass, 1, 0))
	require.ErrorIs(t, err, impact.ErrAggregateNotInitialized)

	d := impact.Disposal{ID: "d1", UserID: "u1", Material: greenops.MaterialGlass, WeightKg: 1, Points: 10, CreatedAt: created}
	err = s.InsertDisposal(ctx, d, impact.NewIncrement(d.Material, d.WeightKg, d.Points))
	require.ErrorIs(t, err, impact.ErrAggregateNotInitialized)

	ds, err := s.ListDisposals(ctx)
	require.NoError(t, err)
	assert.Empty(t, ds, "insert rolled back")
	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, u.Points, "points rolled back")
}

func TestRecomputeAggregate_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	boom := errors.New("fold failed")
	_, err := s.RecomputeAggregate(ctx, func(context.Context, impact.RecomputeSource) (impact.GlobalImpact, error) {
		return impact.GlobalImpact{}, boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.LoadAggregate(ctx)
	require.ErrorIs(t, err, impact.ErrAggregateNotInitialized)
}

func TestRecomputeAggregate_UpsertsAndReadsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	want := impact.GlobalImpact{CO2Reduction: 1.5, TotalGlass: 5, ActiveUsers: 3, TotalPoints: 9, UpdatedAt: created}
	for range 2 {
		got, err := s.RecomputeAggregate(ctx, func(context.Context, impact.RecomputeSource) (impact.GlobalImpact, error) {
			return want, nil
		})
		require.NoError(t, err)
		assert.InDelta(t, want.CO2Reduction, got.CO2Reduction, tolerance)
	}

	got, err := s.LoadAggregate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, got.CO2Reduction, tolerance)
	assert.InDelta(t, 5.0, got.TotalGlass, tolerance)
	assert.Equal(t, int64(3), got.ActiveUsers)
	assert.Equal(t, int64(9), got.TotalPoints)
	assert.True(t, created.Equal(got.UpdatedAt))
}

func TestCreateUser_BumpsExistingAggregate(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	agg := impact.New(s)

	addUser(t, s, "u1", 5)
	_, err := agg.CalculateTotalImpact(ctx)
	require.NoError(t, err)

	addUser(t, s, "u2", 7)

	got, err := s.LoadAggregate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ActiveUsers)
	assert.Equal(t, int64(12), got.TotalPoints)
}

func TestAggregator_ScenarioOnSQLite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	addUser(t, s, "ana", 0)
	agg := impact.New(s)

	_, created, err := agg.EnsureAggregate(ctx)
	require.NoError(t, err)
	require.True(t, created)

	_, err = agg.RecordDisposal(ctx, impact.DisposalInput{UserID: "ana", Material: "PLASTIC", WeightKg: 2.5})
	require.NoError(t, err)
	_, err = agg.RecordDisposal(ctx, impact.DisposalInput{UserID: "ana", Material: "PAPER", WeightKg: 1.0})
	require.NoError(t, err)

	global, err := agg.GetGlobalImpact(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 7.05, global.CO2Reduction, tolerance)
	assert.InDelta(t, 450.0, global.WaterSaved, tolerance)
	assert.Equal(t, int64(35), global.TotalPoints)

	user, err := agg.CalculateUserImpact(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 2, user.TotalDisposals)
	assert.InDelta(t, 3.5, user.TotalWeight, tolerance)

	ds, err := s.ListDisposalsForUser(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, greenops.MaterialPlastic, ds[0].Material)

	ranking, err := agg.GetImpactRanking(ctx, 10)
	require.NoError(t, err)
	require.Len(t, ranking, 1)
	assert.Equal(t, int64(35), ranking[0].Points)
}

func TestAggregator_ConcurrentDisposalsConverge(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	for i := range 5 {
		addUser(t, s, fmt.Sprintf("u%d", i), 0)
	}
	agg := impact.New(s)
	_, err := agg.CalculateTotalImpact(ctx)
	require.NoError(t, err)

	materials := greenops.AllMaterials()
	const n = 60

	var wg sync.WaitGroup
	errs := make(chan error, n+1)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, recErr := agg.RecordDisposal(ctx, impact.DisposalInput{
				UserID:   fmt.Sprintf("u%d", i%5),
				Material: materials[i%len(materials)].String(),
				WeightKg: 0.5 + float64(i%9),
			})
			errs <- recErr
		}()
	}
	// A recompute racing the inserts must not lose any of them.
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, recErr := agg.CalculateTotalImpact(ctx)
		errs <- recErr
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	incremental, err := agg.GetGlobalImpact(ctx)
	require.NoError(t, err)
	recomputed, err := agg.CalculateTotalImpact(ctx)
	require.NoError(t, err)

	assert.InDelta(t, recomputed.CO2Reduction, incremental.CO2Reduction, 1e-6)
	assert.InDelta(t, recomputed.WaterSaved, incremental.WaterSaved, 1e-6)
	assert.InDelta(t, recomputed.EnergySaved, incremental.EnergySaved, 1e-6)
	assert.InDelta(t, recomputed.TreesEquivalent, incremental.TreesEquivalent, 1e-6)
	assert.InDelta(t, recomputed.DecompositionTime, incremental.DecompositionTime, 1e-6)
	assert.InDelta(t, recomputed.TotalWeight(), incremental.TotalWeight(), 1e-6)
	assert.Equal(t, recomputed.TotalPoints, incremental.TotalPoints)
	assert.Equal(t, int64(5), incremental.ActiveUsers)

	ds, err := s.ListDisposals(ctx)
	require.NoError(t, err)
	assert.Len(t, ds, n)
}
