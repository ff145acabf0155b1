package impact

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/rshade/descartecerto/internal/greenops"
)

// memStore is an in-memory Store. The mutex plays the role of the database's
// row lock, so IncrementAggregate is atomic the same way an
// UPDATE ... SET col = col + ? is.
type memStore struct {
	mu        sync.Mutex
	users     map[string]User
	disposals []Disposal
	agg       *GlobalImpact

	// failOp makes the named operation return failErr.
	failOp  string
	failErr error
}

func newMemStore() *memStore {
	return &memStore{users: map[string]User{}}
}

func (m *memStore) addUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *memStore) addDisposal(d Disposal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposals = append(m.disposals, d)
}

func (m *memStore) failing(op string) error {
	if m.failOp == op {
		if m.failErr != nil {
			return m.failErr
		}
		return errors.New("connection refused")
	}
	return nil
}

func (m *memStore) ListDisposals(context.Context) ([]Disposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listDisposalsLocked()
}

func (m *memStore) listDisposalsLocked() ([]Disposal, error) {
	if err := m.failing("ListDisposals"); err != nil {
		return nil, err
	}
	return slices.Clone(m.disposals), nil
}

func (m *memStore) ListDisposalsForUser(_ context.Context, userID string) ([]Disposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("ListDisposalsForUser"); err != nil {
		return nil, err
	}
	var out []Disposal
	for _, d := range m.disposals {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) CountUsers(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countUsersLocked()
}

func (m *memStore) countUsersLocked() (int64, error) {
	if err := m.failing("CountUsers"); err != nil {
		return 0, err
	}
	return int64(len(m.users)), nil
}

func (m *memStore) SumUserPoints(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumPointsLocked()
}

func (m *memStore) sumPointsLocked() (int64, error) {
	var sum int64
	for _, u := range m.users {
		sum += u.Points
	}
	return sum, nil
}

func (m *memStore) TopUsersByPoints(_ context.Context, limit int) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("TopUsersByPoints"); err != nil {
		return nil, err
	}
	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	slices.SortFunc(users, func(x, y User) int {
		if c := cmp.Compare(y.Points, x.Points); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) LoadAggregate(context.Context) (GlobalImpact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("LoadAggregate"); err != nil {
		return GlobalImpact{}, err
	}
	if m.agg == nil {
		return GlobalImpact{}, ErrAggregateNotInitialized
	}
	return *m.agg, nil
}

func (m *memStore) IncrementAggregate(_ context.Context, inc Increment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("IncrementAggregate"); err != nil {
		return err
	}
	return m.incrementLocked(inc)
}

func (m *memStore) incrementLocked(inc Increment) error {
	if m.agg == nil {
		return ErrAggregateNotInitialized
	}
	a := m.agg
	a.CO2Reduction += inc.Delta.CO2Reduction
	a.WaterSaved += inc.Delta.WaterSaved
	a.EnergySaved += inc.Delta.EnergySaved
	a.TreesEquivalent += inc.Delta.TreesEquivalent
	a.DecompositionTime += inc.Delta.DecompositionTime
	a.TotalPoints += inc.Points
	switch inc.Material {
	case greenops.MaterialPlastic:
		a.TotalPlastic += inc.WeightKg
	case greenops.MaterialGlass:
		a.TotalGlass += inc.WeightKg
	case greenops.MaterialPaper:
		a.TotalPaper += inc.WeightKg
	case greenops.MaterialMetal:
		a.TotalMetal += inc.WeightKg
	case greenops.MaterialOrganic:
		a.TotalOrganic += inc.WeightKg
	case greenops.MaterialElectronic:
		a.TotalElectronic += inc.WeightKg
	}
	return nil
}

// lockedSource reads the store while RecomputeAggregate holds the mutex.
type lockedSource struct{ m *memStore }

func (s lockedSource) ListDisposals(context.Context) ([]Disposal, error) {
	return s.m.listDisposalsLocked()
}

func (s lockedSource) CountUsers(context.Context) (int64, error) { return s.m.countUsersLocked() }

func (s lockedSource) SumUserPoints(context.Context) (int64, error) { return s.m.sumPointsLocked() }

func (m *memStore) RecomputeAggregate(ctx context.Context, fn RecomputeFunc) (GlobalImpact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agg, err := fn(ctx, lockedSource{m})
	if err != nil {
		return GlobalImpact{}, err
	}
	if err = m.failing("upsert"); err != nil {
		return GlobalImpact{}, err
	}
	m.agg = &agg
	return agg, nil
}

func (m *memStore) InsertDisposal(_ context.Context, d Disposal, inc Increment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failing("InsertDisposal"); err != nil {
		return err
	}
	if err := m.incrementLocked(inc); err != nil {
		return err
	}
	m.disposals = append(m.disposals, d)
	u := m.users[d.UserID]
	u.Points += d.Points
	m.users[d.UserID] = u
	return nil
}

// spyRecorder counts Recorder callbacks.
type spyRecorder struct {
	mu         sync.Mutex
	disposals  map[string]int
	increments int
	recomputes map[string]int
	failures   map[string]int
	lastCO2    float64
}

func newSpyRecorder() *spyRecorder {
	return &spyRecorder{
		disposals:  map[string]int{},
		recomputes: map[string]int{},
		failures:   map[string]int{},
	}
}

func (s *spyRecorder) DisposalRecorded(material string, _ float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposals[material]++
}

func (s *spyRecorder) AggregateIncremented(string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.increments++
}

func (s *spyRecorder) RecomputeFinished(status string, _ float64, agg GlobalImpact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputes[status]++
	s.lastCO2 = agg.CO2Reduction
}

func (s *spyRecorder) StorageFailure(op string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op]++
}
