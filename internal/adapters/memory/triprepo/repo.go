package triprepo

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu    sync.RWMutex
	st    *state
	locks *tripLocks
}

func NewRepo() *Repo {
	return &Repo{
		st:    newState(),
		locks: newTripLocks(),
	}
}

// WithinTrip runs fn against a private copy of the trip's rows and swaps the copy in on success.
// The Store passed to fn only sees the locked trip and trips created through it.
func (r *Repo) WithinTrip(ctx context.Context, tripID domain.TripID, fn func(ctx context.Context, s triprepo.Store) error) error {
	unlock, err := r.locks.lock(ctx, tripID)
	if err != nil {
		return err
	}
	defer unlock()

	r.mu.RLock()
	work := r.st.extract(tripID)
	r.mu.RUnlock()

	tx := &txStore{st: work}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	scope := []domain.TripID{tripID}
	for id := range work.trips {
		if id != tripID {
			scope = append(scope, id)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range scope[1:] {
		// A trip created inside the unit of work must not clobber one created concurrently outside it.
		if _, exists := r.st.trips[id]; exists {
			return triprepo.ErrAlreadyExists
		}
	}
	r.st.replace(scope, work)
	return nil
}

func (r *Repo) CreatePlan(ctx context.Context, p triprepo.Plan) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.createPlan(p)
}

func (r *Repo) GetPlan(ctx context.Context, id domain.TripID) (triprepo.Plan, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.getPlan(id)
}

func (r *Repo) GetTrip(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.getTrip(id)
}

func (r *Repo) SaveTrip(ctx context.Context, t domain.Trip) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.saveTrip(t)
}

func (r *Repo) DeleteTrip(ctx context.Context, id domain.TripID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.deleteTrip(id)
}

func (r *Repo) ListTripsByOwner(ctx context.Context, owner domain.MemberID) ([]domain.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.listTripsByOwner(owner), nil
}

func (r *Repo) CreateDays(ctx context.Context, days []domain.TripDay) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.createDays(days)
}

func (r *Repo) GetDay(ctx context.Context, id domain.DayID) (domain.TripDay, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.getDay(id)
}

func (r *Repo) ListDays(ctx context.Context, tripID domain.TripID) ([]domain.TripDay, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.listDays(tripID), nil
}

func (r *Repo) SaveDay(ctx context.Context, d domain.TripDay) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.saveDay(d)
}

func (r *Repo) DeleteDay(ctx context.Context, id domain.DayID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.deleteDay(id)
}

func (r *Repo) CreateItems(ctx context.Context, items []domain.TripItem) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.createItems(items)
}

func (r *Repo) GetItem(ctx context.Context, id domain.ItemID) (domain.TripItem, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.getItem(id)
}

func (r *Repo) SaveItem(ctx context.Context, it domain.TripItem) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.saveItem(it)
}

func (r *Repo) DeleteItem(ctx context.Context, id domain.ItemID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.deleteItem(id)
}

func (r *Repo) ListItemsByDay(ctx context.Context, dayID domain.DayID) ([]domain.TripItem, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.listItemsByDay(dayID), nil
}

func (r *Repo) ListItemsByTrip(ctx context.Context, tripID domain.TripID) ([]domain.TripItem, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.listItemsByTrip(tripID), nil
}

func (r *Repo) CreateDependency(ctx context.Context, d domain.ItemDependency) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.createDependency(d)
}

func (r *Repo) GetDependency(ctx context.Context, id domain.DependencyID) (domain.ItemDependency, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.getDependency(id)
}

func (r *Repo) DeleteDependency(ctx context.Context, id domain.DependencyID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.st.deleteDependency(id)
}

func (r *Repo) ListDependencies(ctx context.Context, tripID domain.TripID) ([]domain.ItemDependency, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.st.listDependencies(tripID), nil
}

// txStore is the Store handed to WithinTrip callbacks. Its state is private to one unit of work.
type txStore struct {
	st *state
}

func (t *txStore) CreatePlan(_ context.Context, p triprepo.Plan) error { return t.st.createPlan(p) }
func (t *txStore) GetPlan(_ context.Context, id domain.TripID) (triprepo.Plan, error) {
	return t.st.getPlan(id)
}
func (t *txStore) GetTrip(_ context.Context, id domain.TripID) (domain.Trip, error) {
	return t.st.getTrip(id)
}
func (t *txStore) SaveTrip(_ context.Context, tr domain.Trip) error { return t.st.saveTrip(tr) }
func (t *txStore) DeleteTrip(_ context.Context, id domain.TripID) error { return t.st.deleteTrip(id) }
func (t *txStore) ListTripsByOwner(_ context.Context, owner domain.MemberID) ([]domain.Trip, error) {
	return t.st.listTripsByOwner(owner), nil
}
func (t *txStore) CreateDays(_ context.Context, days []domain.TripDay) error {
	return t.st.createDays(days)
}
func (t *txStore) GetDay(_ context.Context, id domain.DayID) (domain.TripDay, error) {
	return t.st.getDay(id)
}
func (t *txStore) ListDays(_ context.Context, tripID domain.TripID) ([]domain.TripDay, error) {
	return t.st.listDays(tripID), nil
}
func (t *txStore) SaveDay(_ context.Context, d domain.TripDay) error { return t.st.saveDay(d) }
func (t *txStore) DeleteDay(_ context.Context, id domain.DayID) error  { return t.st.deleteDay(id) }
func (t *txStore) CreateItems(_ context.Context, items []domain.TripItem) error {
	return t.st.createItems(items)
}
func (t *txStore) GetItem(_ context.Context, id domain.ItemID) (domain.TripItem, error) {
	return t.st.getItem(id)
}
func (t *txStore) SaveItem(_ context.Context, it domain.TripItem) error { return t.st.saveItem(it) }
func (t *txStore) DeleteItem(_ context.Context, id domain.ItemID) error { return t.st.deleteItem(id) }
func (t *txStore) ListItemsByDay(_ context.Context, dayID domain.DayID) ([]domain.TripItem, error) {
	return t.st.listItemsByDay(dayID), nil
}
func (t *txStore) ListItemsByTrip(_ context.Context, tripID domain.TripID) ([]domain.TripItem, error) {
	return t.st.listItemsByTrip(tripID), nil
}
func (t *txStore) CreateDependency(_ context.Context, d domain.ItemDependency) error {
	return t.st.createDependency(d)
}
func (t *txStore) GetDependency(_ context.Context, id domain.DependencyID) (domain.ItemDependency, error) {
	return t.st.getDependency(id)
}
func (t *txStore) DeleteDependency(_ context.Context, id domain.DependencyID) error {
	return t.st.deleteDependency(id)
}
func (t *txStore) ListDependencies(_ context.Context, tripID domain.TripID) ([]domain.ItemDependency, error) {
	return t.st.listDependencies(tripID), nil
}
