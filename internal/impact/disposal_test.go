package impact

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/descartecerto/internal/greenops"
)

func TestValidateDisposal(t *testing.T) {
	agg := newTestAggregator(newMemStore(), WithOptions(Options{MaxDisposalWeightKg: 50}))

	tests := []struct {
		name      string
		in        DisposalInput
		wantKind  greenops.MaterialKind
		wantField string
	}{
		{name: "valid", in: DisposalInput{UserID: "u1", Material: "glass", WeightKg: 1}, wantKind: greenops.MaterialGlass},
		{name: "portuguese alias", in: DisposalInput{UserID: "u1", Material: "Papel", WeightKg: 1}, wantKind: greenops.MaterialPaper},
		{name: "at limit", in: DisposalInput{UserID: "u1", Material: "METAL", WeightKg: 50}, wantKind: greenops.MaterialMetal},
		{name: "missing user", in: DisposalInput{UserID: "  ", Material: "GLASS", WeightKg: 1}, wantField: "userId"},
		{name: "unknown material", in: DisposalInput{UserID: "u1", Material: "STYROFOAM", WeightKg: 1}, wantField: "material"},
		{name: "zero weight", in: DisposalInput{UserID: "u1", Material: "GLASS"}, wantField: "weightKg"},
		{name: "negative weight", in: DisposalInput{UserID: "u1", Material: "GLASS", WeightKg: -2}, wantField: "weightKg"},
		{name: "too heavy", in: DisposalInput{UserID: "u1", Material: "GLASS", WeightKg: 50.01}, wantField: "weightKg"},
		{name: "nan", in: DisposalInput{UserID: "u1", Material: "GLASS", WeightKg: math.NaN()}, wantField: "weightKg"},
		{name: "inf", in: DisposalInput{UserID: "u1", Material: "GLASS", WeightKg: math.Inf(1)}, wantField: "weightKg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, err := agg.ValidateDisposal(tt.in)
			if tt.wantField != "" {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantField, ve.Field)
				assert.True(t, IsValidationError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}

func TestPointsFor(t *testing.T) {
	agg := newTestAggregator(newMemStore(), WithOptions(Options{PointsPerKg: 10}))
	assert.Equal(t, int64(25), agg.PointsFor(2.5))
	assert.Equal(t, int64(1), agg.PointsFor(0.05))
	assert.Equal(t, int64(0), agg.PointsFor(0.04))

	free := newTestAggregator(newMemStore(), WithOptions(Options{PointsPerKg: 0}))
	assert.Equal(t, int64(0), free.PointsFor(100))
}

func TestRecordDisposal(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.addUser(User{ID: "u1", Name: "Caio", Points: 5})
	spy := newSpyRecorder()
	agg := newTestAggregator(store,
		WithRecorder(spy),
		WithIDGenerator(func() string { return "disp-1" }),
	)
	_, err := agg.CalculateTotalImpact(ctx)
	require.NoError(t, err)

	d, err := agg.RecordDisposal(ctx, DisposalInput{UserID: "u1", Material: "plastico", WeightKg: 2.5})
	require.NoError(t, err)

	assert.Equal(t, "disp-1", d.ID)
	assert.Equal(t, greenops.MaterialPlastic, d.Material)
	assert.Equal(t, int64(25), d.Points)
	assert.Equal(t, fixedNow, d.CreatedAt)

	user, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), user.Points)

	global, err := agg.GetGlobalImpact(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 6.25, global.CO2Reduction, tolerance)
	assert.InDelta(t, 2.5, global.TotalPlastic, tolerance)
	assert.Equal(t, int64(30), global.TotalPoints)

	assert.Equal(t, 1, spy.disposals["PLASTIC"])
	assert.Equal(t, 1, spy.increments)

	// Recompute agrees with the incremental path, points included.
	recomputed, err := agg.CalculateTotalImpact(ctx)
	require.NoError(t, err)
	assertImpactEqual(t, recomputed, global)
	assert.Equal(t, recomputed.TotalPoints, global.TotalPoints)
}

func TestRecordDisposal_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		store := newMemStore()
		_, err := newTestAggregator(store).RecordDisposal(ctx, DisposalInput{UserID: "u1", Material: "wood", WeightKg: 1})
		assert.True(t, IsValidationError(err))
		assert.Empty(t, store.disposals)
	})

	t.Run("unknown user", func(t *testing.T) {
		store := newMemStore()
		store.agg = &GlobalImpact{}
		_, err := newTestAggregator(store).RecordDisposal(ctx, DisposalInput{UserID: "ghost", Material: "GLASS", WeightKg: 1})
		require.ErrorIs(t, err, ErrUserNotFound)
		assert.Empty(t, store.disposals)
	})

	t.Run("aggregate not initialized", func(t *testing.T) {
		store := newMemStore()
		store.addUser(User{ID: "u1"})
		_, err := newTestAggregator(store).RecordDisposal(ctx, DisposalInput{UserID: "u1", Material: "GLASS", WeightKg: 1})
		require.ErrorIs(t, err, ErrAggregateNotInitialized)
		assert.Empty(t, store.disposals, "nothing stored")
		assert.Equal(t, int64(0), store.users["u1"].Points)
	})

	t.Run("storage", func(t *testing.T) {
		store := newMemStore()
		store.addUser(User{ID: "u1"})
		store.agg = &GlobalImpact{}
		store.failOp = "InsertDisposal"
		spy := newSpyRecorder()
		_, err := newTestAggregator(store, WithRecorder(spy)).RecordDisposal(ctx, DisposalInput{UserID: "u1", Material: "GLASS", WeightKg: 1})
		require.True(t, IsStorageError(err))
		assert.Equal(t, 1, spy.failures["insert_disposal"])
		assert.Zero(t, spy.disposals["GLASS"])
	})
}
