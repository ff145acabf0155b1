package impact

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rshade/descartecerto/internal/greenops"
	"github.com/rshade/descartecerto/internal/logging"
)

// ValidateDisposal checks in against the recording rules and returns the
// parsed material kind. Unknown materials are rejected here even though the
// calculator itself would fall back to plastic.
func (a *Aggregator) ValidateDisposal(in DisposalInput) (greenops.MaterialKind, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return "", &ValidationError{Field: "userId", Reason: "is required"}
	}

	kind, err := greenops.ParseMaterialKind(in.Material)
	if err != nil {
		return "", &ValidationError{
			Field:  "material",
			Reason: fmt.Sprintf("%q is not one of %v", in.Material, greenops.AllMaterials()),
		}
	}

	switch {
	case math.IsNaN(in.WeightKg) || math.IsInf(in.WeightKg, 0):
		return "", &ValidationError{Field: "weightKg", Reason: "must be a finite number"}
	case in.WeightKg <= 0:
		return "", &ValidationError{Field: "weightKg", Reason: "must be greater than zero"}
	case in.WeightKg > a.opts.MaxDisposalWeightKg:
		return "", &ValidationError{
			Field:  "weightKg",
			Reason: fmt.Sprintf("must not exceed %s kg", greenops.FormatFloat(a.opts.MaxDisposalWeightKg, 0)),
		}
	}
	return kind, nil
}

// PointsFor returns the points awarded for weightKg.
func (a *Aggregator) PointsFor(weightKg float64) int64 {
	return int64(math.Round(weightKg * a.opts.PointsPerKg))
}

// RecordDisposal validates in, then stores the disposal, credits the user's
// points and increments the global aggregate in one transaction. Nothing is
// stored if the aggregate has not been initialized.
func (a *Aggregator) RecordDisposal(ctx context.Context, in DisposalInput) (Disposal, error) {
	ctx, span := a.startSpan(ctx, "RecordDisposal",
		attribute.String("user.id", in.UserID),
		attribute.String("disposal.material", in.Material),
		attribute.Float64("disposal.weight_kg", in.WeightKg),
	)
	var err error
	defer func() { endSpan(span, err) }()

	var kind greenops.MaterialKind
	if kind, err = a.ValidateDisposal(in); err != nil {
		return Disposal{}, err
	}

	if _, err = a.store.GetUser(ctx, in.UserID); err != nil {
		err = a.fail(ctx, "get_user", err)
		return Disposal{}, err
	}

	d := Disposal{
		ID:        a.newID(),
		UserID:    in.UserID,
		Material:  kind,
		WeightKg:  in.WeightKg,
		Points:    a.PointsFor(in.WeightKg),
		CreatedAt: a.now().UTC(),
	}
	inc := NewIncrement(kind, d.WeightKg, d.Points)

	if err = a.store.InsertDisposal(ctx, d, inc); err != nil {
		err = a.fail(ctx, "insert_disposal", err)
		return Disposal{}, err
	}
	a.metrics.DisposalRecorded(kind.String(), d.WeightKg)
	a.metrics.AggregateIncremented(kind.String())

	log := logging.FromContext(ctx)
	log.Info().
		Ctx(ctx).
		Str("component", "impact").
		Str("operation", "record_disposal").
		Str("disposal_id", d.ID).
		Str("user_id", d.UserID).
		Str("material", kind.String()).
		Float64("weight_kg", d.WeightKg).
		Int64("points", d.Points).
		Msg("disposal recorded")

	return d, nil
}
