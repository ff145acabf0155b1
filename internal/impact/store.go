package impact

import "context"

// DisposalLog reads disposal events. It never creates or deletes them on the
// aggregator's behalf.
type DisposalLog interface {
	ListDisposals(ctx context.Context) ([]Disposal, error)
	ListDisposalsForUser(ctx context.Context, userID string) ([]Disposal, error)
}

// UserDirectory reads users and their points.
type UserDirectory interface {
	CountUsers(ctx context.Context) (int64, error)
	SumUserPoints(ctx context.Context) (int64, error)
	// TopUsersByPoints returns at most limit users ordered by points
	// descending, then ID ascending.
	TopUsersByPoints(ctx context.Context, limit int) ([]User, error)
	// GetUser returns ErrUserNotFound for an unknown ID.
	GetUser(ctx context.Context, id string) (User, error)
}

// RecomputeSource is the consistent view a full recompute folds over.
type RecomputeSource interface {
	ListDisposals(ctx context.Context) ([]Disposal, error)
	CountUsers(ctx context.Context) (int64, error)
	SumUserPoints(ctx context.Context) (int64, error)
}

// RecomputeFunc computes a fresh aggregate from src.
type RecomputeFunc func(ctx context.Context, src RecomputeSource) (GlobalImpact, error)

// AggregateStore persists the global aggregate row.
type AggregateStore interface {
	// LoadAggregate returns ErrAggregateNotInitialized when the row is missing.
	LoadAggregate(ctx context.Context) (GlobalImpact, error)

	// IncrementAggregate adds inc to the row with a single atomic update and
	// returns ErrAggregateNotInitialized when the row is missing.
	IncrementAggregate(ctx context.Context, inc Increment) error

	// RecomputeAggregate runs fn over a source that no concurrent increment
	// can change underneath it, then upserts fn's result, all in one
	// transaction. Nothing is written if fn or the upsert fails.
	RecomputeAggregate(ctx context.Context, fn RecomputeFunc) (GlobalImpact, error)

	// InsertDisposal stores d, credits d.Points to its user and applies inc,
	// all in one transaction.
	InsertDisposal(ctx context.Context, d Disposal, inc Increment) error
}

// Store is everything the Aggregator needs from persistence.
type Store interface {
	DisposalLog
	UserDirectory
	AggregateStore
}

// Recorder receives aggregator events for metrics.
type Recorder interface {
	DisposalRecorded(material string, weightKg float64)
	AggregateIncremented(material string)
	RecomputeFinished(status string, seconds float64, agg GlobalImpact)
	StorageFailure(op string)
}

type nopRecorder struct{}

func (nopRecorder) DisposalRecorded(string, float64) {}
func (nopRecorder) AggregateIncremented(string) {}
func (nopRecorder) RecomputeFinished(string, float64, GlobalImpact) {}
func (nopRecorder) StorageFailure(string) {}
