package impact

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rshade/descartecerto/internal/greenops"
	"github.com/rshade/descartecerto/internal/logging"
)

const tracerName = "github.com/rshade/descartecerto/internal/impact"

// Recompute outcomes reported to the Recorder.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Options tunes ranking and disposal recording.
type Options struct {
	DefaultRankingLimit int
	MaxRankingLimit     int
	RankingConcurrency  int
	PointsPerKg         float64
	MaxDisposalWeightKg float64
}

// DefaultOptions returns the built-in tuning.
func DefaultOptions() Options {
	return Options{
		DefaultRankingLimit: 10,
		MaxRankingLimit:     100,
		RankingConcurrency:  8,
		PointsPerKg:         10,
		MaxDisposalWeightKg: 1000,
	}
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithOptions replaces the tuning options. Non-positive limits keep their
// defaults.
func WithOptions(o Options) Option {
	return func(a *Aggregator) {
		d := DefaultOptions()
		if o.DefaultRankingLimit <= 0 {
			o.DefaultRankingLimit = d.DefaultRankingLimit
		}
		if o.MaxRankingLimit <= 0 {
			o.MaxRankingLimit = d.MaxRankingLimit
		}
		if o.RankingConcurrency <= 0 {
			o.RankingConcurrency = d.RankingConcurrency
		}
		if o.MaxDisposalWeightKg <= 0 {
			o.MaxDisposalWeightKg = d.MaxDisposalWeightKg
		}
		if o.PointsPerKg < 0 {
			o.PointsPerKg = d.PointsPerKg
		}
		a.opts = o
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(a *Aggregator) {
		if r != nil {
			a.metrics = r
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Aggregator) {
		if t != nil {
			a.tracer = t
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithIDGenerator overrides disposal ID generation.
func WithIDGenerator(f func() string) Option {
	return func(a *Aggregator) { a.newID = f }
}

// Aggregator computes and maintains environmental-impact aggregates.
// It is safe for concurrent use.
type Aggregator struct {
	store   Store
	opts    Options
	metrics Recorder
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string

	// recomputeMu serializes full recomputes within this process. Cross-process
	// exclusion against increments is the store's job.
	recomputeMu sync.Mutex
}

// New returns an Aggregator backed by store.
func New(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:   store,
		opts:    DefaultOptions(),
		metrics: nopRecorder{},
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
		newID:   func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Options returns the tuning in effect.
func (a *Aggregator) Options() Options {
	return a.opts
}

func (a *Aggregator) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, "impact."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (a *Aggregator) fail(ctx context.Context, op string, err error) error {
	err = storageErr(op, err)
	if IsStorageError(err) {
		a.metrics.StorageFailure(op)
		log := logging.FromContext(ctx)
		log.Error().
			Ctx(ctx).
			Str("component", "impact").
			Str("operation", op).
			Err(err).
			Msg("storage operation failed")
	}
	return err
}

// CalculateTotalImpact recomputes the global aggregate from every disposal
// and overwrites the stored row. It writes nothing on failure.
func (a *Aggregator) CalculateTotalImpact(ctx context.Context) (GlobalImpact, error) {
	ctx, span := a.startSpan(ctx, "CalculateTotalImpact")
	var err error
	defer func() { endSpan(span, err) }()

	a.recomputeMu.Lock()
	defer a.recomputeMu.Unlock()

	start := a.now()
	var agg GlobalImpact
	agg, err = a.store.RecomputeAggregate(ctx, a.foldAll)
	elapsed := a.now().Sub(start).Seconds()

	if err != nil {
		a.metrics.RecomputeFinished(StatusError, elapsed, GlobalImpact{})
		err = a.fail(ctx, "recompute_aggregate", err)
		return GlobalImpact{}, err
	}

	a.metrics.RecomputeFinished(StatusSuccess, elapsed, agg)
	span.SetAttributes(
		attribute.Float64("impact.co2_reduction", agg.CO2Reduction),
		attribute.Int64("impact.active_users", agg.ActiveUsers),
	)

	log := logging.FromContext(ctx)
	log.Info().
		Ctx(ctx).
		Str("component", "impact").
		Str("operation", "calculate_total_impact").
		Float64("co2_reduction", agg.CO2Reduction).
		Float64("water_saved", agg.WaterSaved).
		Int64("active_users", agg.ActiveUsers).
		Int64("total_points", agg.TotalPoints).
		Float64("duration_seconds", elapsed).
		Msg("global impact recomputed")

	return agg, nil
}

func (a *Aggregator) foldAll(ctx context.Context, src RecomputeSource) (GlobalImpact, error) {
	disposals, err := src.ListDisposals(ctx)
	if err != nil {
		return GlobalImpact{}, err
	}
	users, err := src.CountUsers(ctx)
	if err != nil {
		return GlobalImpact{}, err
	}
	points, err := src.SumUserPoints(ctx)
	if err != nil {
		return GlobalImpact{}, err
	}

	a.warnUnknownMaterials(ctx, disposals)

	total, weights := foldDisposals(disposals)
	agg := newGlobalImpact(total, weights, users, points)
	agg.UpdatedAt = a.now().UTC()
	return agg, nil
}

func (a *Aggregator) warnUnknownMaterials(ctx context.Context, ds []Disposal) {
	unknown := 0
	for _, d := range ds {
		if !d.Material.IsKnown() {
			unknown++
		}
	}
	if unknown == 0 {
		return
	}
	log := logging.FromContext(ctx)
	log.Warn().
		Ctx(ctx).
		Str("component", "impact").
		Int("disposals", unknown).
		Str("fallback", greenops.FallbackMaterial.String()).
		Msg("unrecognized material kinds counted with fallback factors")
}

// UpdateImpactAfterDisposal adds the impact of one disposal to the global
// aggregate with a single atomic increment. It returns
// ErrAggregateNotInitialized when no recompute has ever created the row.
func (a *Aggregator) UpdateImpactAfterDisposal(
	ctx context.Context,
	userID string,
	kind greenops.MaterialKind,
	weightKg float64,
) error {
	ctx, span := a.startSpan(ctx, "UpdateImpactAfterDisposal",
		attribute.String("user.id", userID),
		attribute.String("disposal.material", kind.String()),
		attribute.Float64("disposal.weight_kg", weightKg),
	)
	var err error
	defer func() { endSpan(span, err) }()

	log := logging.FromContext(ctx)
	if !kind.IsKnown() {
		log.Warn().
			Ctx(ctx).
			Str("component", "impact").
			Str("material", kind.String()).
			Str("fallback", greenops.FallbackMaterial.String()).
			Msg("unrecognized material kind, using fallback factors")
	}

	inc := NewIncrement(kind, weightKg, 0)
	if err = a.store.IncrementAggregate(ctx, inc); err != nil {
		err = a.fail(ctx, "increment_aggregate", err)
		return err
	}
	a.metrics.AggregateIncremented(inc.Material.String())

	log.Debug().
		Ctx(ctx).
		Str("component", "impact").
		Str("user_id", userID).
		Str("material", inc.Material.String()).
		Float64("weight_kg", weightKg).
		Float64("co2_delta", inc.Delta.CO2Reduction).
		Msg("global impact incremented")
	return nil
}

// GetGlobalImpact returns the stored aggregate row.
func (a *Aggregator) GetGlobalImpact(ctx context.Context) (GlobalImpact, error) {
	ctx, span := a.startSpan(ctx, "GetGlobalImpact")
	agg, err := a.store.LoadAggregate(ctx)
	if err != nil {
		err = a.fail(ctx, "load_aggregate", err)
	}
	endSpan(span, err)
	return agg, err
}

// EnsureAggregate returns the stored aggregate, running a full recompute
// first when the row does not exist yet. created reports whether it did.
func (a *Aggregator) EnsureAggregate(ctx context.Context) (agg GlobalImpact, created bool, err error) {
	agg, err = a.GetGlobalImpact(ctx)
	if err == nil {
		return agg, false, nil
	}
	if !errors.Is(err, ErrAggregateNotInitialized) {
		return GlobalImpact{}, false, err
	}

	log := logging.FromContext(ctx)
	log.Info().
		Ctx(ctx).
		Str("component", "impact").
		Msg("global impact row missing, running full recompute")

	agg, err = a.CalculateTotalImpact(ctx)
	if err != nil {
		return GlobalImpact{}, false, err
	}
	return agg, true, nil
}

// CalculateUserImpact folds userID's disposals into a summary. A user with no
// disposals, or an ID with none recorded, yields the zero summary.
func (a *Aggregator) CalculateUserImpact(ctx context.Context, userID string) (UserImpactSummary, error) {
	ctx, span := a.startSpan(ctx, "CalculateUserImpact", attribute.String("user.id", userID))
	var err error
	defer func() { endSpan(span, err) }()

	var ds []Disposal
	ds, err = a.store.ListDisposalsForUser(ctx, userID)
	if err != nil {
		err = a.fail(ctx, "list_user_disposals", err)
		return UserImpactSummary{}, err
	}
	return summarize(ds), nil
}

// GetUserImpact is CalculateUserImpact for an existing user. It returns
// ErrUserNotFound for an unknown ID.
func (a *Aggregator) GetUserImpact(ctx context.Context, userID string) (UserImpactReport, error) {
	user, err := a.store.GetUser(ctx, userID)
	if err != nil {
		return UserImpactReport{}, a.fail(ctx, "get_user", err)
	}
	summary, err := a.CalculateUserImpact(ctx, userID)
	if err != nil {
		return UserImpactReport{}, err
	}
	return UserImpactReport{User: user, Summary: summary}, nil
}
