package triprepo

import (
	"fmt"
	"sort"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// state holds rows keyed by ID. It is not safe for concurrent use; Repo guards it.
type state struct {
	trips map[domain.TripID]domain.Trip
	days  map[domain.DayID]domain.TripDay
	items map[domain.ItemID]domain.TripItem
	deps  map[domain.DependencyID]domain.ItemDependency
}

func newState() *state {
	return &state{
		trips: make(map[domain.TripID]domain.Trip),
		days:  make(map[domain.DayID]domain.TripDay),
		items: make(map[domain.ItemID]domain.TripItem),
		deps:  make(map[domain.DependencyID]domain.ItemDependency),
	}
}

func (s *state) createPlan(p triprepo.Plan) error {
	if p.Trip.ID == "" {
		return triprepo.ErrAlreadyExists // treat empty ID as invalid
	}
	if _, ok := s.trips[p.Trip.ID]; ok {
		return triprepo.ErrAlreadyExists
	}

	// Validate everything before the first write so a rejected plan leaves no rows behind.
	dayTrip := make(map[domain.DayID]domain.TripID, len(p.Days))
	for _, d := range p.Days {
		if d.TripID != p.Trip.ID {
			return fmt.Errorf("day %s belongs to trip %s, not %s", d.ID, d.TripID, p.Trip.ID)
		}
		if _, ok := s.days[d.ID]; ok {
			return triprepo.ErrAlreadyExists
		}
		dayTrip[d.ID] = d.TripID
	}
	inPlan := make(map[domain.ItemID]struct{}, len(p.Items))
	for _, it := range p.Items {
		if _, ok := dayTrip[it.DayID]; !ok || it.TripID != p.Trip.ID {
			return fmt.Errorf("item %s: %w", it.ID, triprepo.ErrDayNotFound)
		}
		if _, ok := s.items[it.ID]; ok {
			return triprepo.ErrAlreadyExists
		}
		inPlan[it.ID] = struct{}{}
	}
	pairs := make(map[[2]domain.ItemID]struct{}, len(p.Dependencies))
	for _, d := range p.Dependencies {
		_, okDep := inPlan[d.DependentID]
		_, okPre := inPlan[d.PrerequisiteID]
		if !okDep || !okPre {
			return fmt.Errorf("dependency %s: %w", d.ID, triprepo.ErrItemNotFound)
		}
		key := [2]domain.ItemID{d.DependentID, d.PrerequisiteID}
		if _, dup := pairs[key]; dup {
			return triprepo.ErrDuplicateDependency
		}
		pairs[key] = struct{}{}
	}

	s.trips[p.Trip.ID] = cloneTrip(p.Trip)
	for _, d := range p.Days {
		s.days[d.ID] = d
	}
	for _, it := range p.Items {
		s.items[it.ID] = cloneItem(it)
	}
	for _, d := range p.Dependencies {
		s.deps[d.ID] = d
	}
	return nil
}

func (s *state) getPlan(id domain.TripID) (triprepo.Plan, error) {
	t, err := s.getTrip(id)
	if err != nil {
		return triprepo.Plan{}, err
	}
	return triprepo.Plan{
		Trip:         t,
		Days:         s.listDays(id),
		Items:        s.listItemsByTrip(id),
		Dependencies: s.listDependencies(id),
	}, nil
}

func (s *state) getTrip(id domain.TripID) (domain.Trip, error) {
	t, ok := s.trips[id]
	if !ok {
		return domain.Trip{}, triprepo.ErrTripNotFound
	}
	return cloneTrip(t), nil
}

func (s *state) saveTrip(t domain.Trip) error {
	if _, ok := s.trips[t.ID]; !ok {
		return triprepo.ErrTripNotFound
	}
	s.trips[t.ID] = cloneTrip(t)
	return nil
}

func (s *state) deleteTrip(id domain.TripID) error {
	if _, ok := s.trips[id]; !ok {
		return triprepo.ErrTripNotFound
	}
	s.dropTrip(id)
	return nil
}

// dropTrip removes every row owned by the trip without checking existence.
func (s *state) dropTrip(id domain.TripID) {
	delete(s.trips, id)
	for k, d := range s.days {
		if d.TripID == id {
			delete(s.days, k)
		}
	}
	for k, it := range s.items {
		if it.TripID == id {
			delete(s.items, k)
		}
	}
	for k, d := range s.deps {
		if d.TripID == id {
			delete(s.deps, k)
		}
	}
}

func (s *state) listTripsByOwner(owner domain.MemberID) []domain.Trip {
	out := make([]domain.Trip, 0)
	for _, t := range s.trips {
		if t.IsOwnedBy(owner) {
			out = append(out, cloneTrip(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *state) createDays(days []domain.TripDay) error {
	seen := make(map[domain.TripID]map[int]struct{})
	for _, d := range days {
		if _, ok := s.trips[d.TripID]; !ok {
			return triprepo.ErrTripNotFound
		}
		if _, ok := s.days[d.ID]; ok || d.ID == "" {
			return triprepo.ErrAlreadyExists
		}
		if seen[d.TripID] == nil {
			seen[d.TripID] = make(map[int]struct{})
			for _, existing := range s.days {
				if existing.TripID == d.TripID {
					seen[d.TripID][existing.Index] = struct{}{}
				}
			}
		}
		if _, dup := seen[d.TripID][d.Index]; dup {
			return fmt.Errorf("day index %d: %w", d.Index, triprepo.ErrAlreadyExists)
		}
		seen[d.TripID][d.Index] = struct{}{}
	}
	for _, d := range days {
		s.days[d.ID] = d
	}
	return nil
}

func (s *state) getDay(id domain.DayID) (domain.TripDay, error) {
	d, ok := s.days[id]
	if !ok {
		return domain.TripDay{}, triprepo.ErrDayNotFound
	}
	return d, nil
}

func (s *state) listDays(tripID domain.TripID) []domain.TripDay {
	out := make([]domain.TripDay, 0)
	for _, d := range s.days {
		if d.TripID == tripID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func (s *state) saveDay(d domain.TripDay) error {
	cur, ok := s.days[d.ID]
	if !ok {
		return triprepo.ErrDayNotFound
	}
	for _, other := range s.days {
		if other.ID != d.ID && other.TripID == cur.TripID && other.Index == d.Index {
			return fmt.Errorf("day index %d: %w", d.Index, triprepo.ErrAlreadyExists)
		}
	}
	d.TripID = cur.TripID
	s.days[d.ID] = d
	return nil
}

func (s *state) deleteDay(id domain.DayID) error {
	if _, ok := s.days[id]; !ok {
		return triprepo.ErrDayNotFound
	}
	delete(s.days, id)
	for k, it := range s.items {
		if it.DayID == id {
			_ = s.deleteItem(k)
		}
	}
	return nil
}

func (s *state) createItems(items []domain.TripItem) error {
	for _, it := range items {
		d, ok := s.days[it.DayID]
		if !ok {
			return triprepo.ErrDayNotFound
		}
		if d.TripID != it.TripID {
			return fmt.Errorf("item %s: day %s belongs to trip %s", it.ID, d.ID, d.TripID)
		}
		if _, ok := s.items[it.ID]; ok || it.ID == "" {
			return triprepo.ErrAlreadyExists
		}
	}
	for _, it := range items {
		s.items[it.ID] = cloneItem(it)
	}
	return nil
}

func (s *state) getItem(id domain.ItemID) (domain.TripItem, error) {
	it, ok := s.items[id]
	if !ok {
		return domain.TripItem{}, triprepo.ErrItemNotFound
	}
	return cloneItem(it), nil
}

func (s *state) saveItem(it domain.TripItem) error {
	if _, ok := s.items[it.ID]; !ok {
		return triprepo.ErrItemNotFound
	}
	if _, ok := s.days[it.DayID]; !ok {
		return triprepo.ErrDayNotFound
	}
	s.items[it.ID] = cloneItem(it)
	return nil
}

func (s *state) deleteItem(id domain.ItemID) error {
	if _, ok := s.items[id]; !ok {
		return triprepo.ErrItemNotFound
	}
	delete(s.items, id)
	for k, d := range s.deps {
		if d.DependentID == id || d.PrerequisiteID == id {
			delete(s.deps, k)
		}
	}
	return nil
}

func (s *state) listItemsByDay(dayID domain.DayID) []domain.TripItem {
	out := make([]domain.TripItem, 0)
	for _, it := range s.items {
		if it.DayID == dayID {
			out = append(out, cloneItem(it))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *state) listItemsByTrip(tripID domain.TripID) []domain.TripItem {
	out := make([]domain.TripItem, 0)
	for _, it := range s.items {
		if it.TripID == tripID {
			out = append(out, cloneItem(it))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := s.days[out[i].DayID].Index, s.days[out[j].DayID].Index
		if di != dj {
			return di < dj
		}
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *state) createDependency(d domain.ItemDependency) error {
	if d.ID == "" {
		return triprepo.ErrAlreadyExists
	}
	if _, ok := s.deps[d.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	if _, ok := s.items[d.DependentID]; !ok {
		return triprepo.ErrItemNotFound
	}
	if _, ok := s.items[d.PrerequisiteID]; !ok {
		return triprepo.ErrItemNotFound
	}
	for _, existing := range s.deps {
		if existing.DependentID == d.DependentID && existing.PrerequisiteID == d.PrerequisiteID {
			return triprepo.ErrDuplicateDependency
		}
	}
	s.deps[d.ID] = d
	return nil
}

func (s *state) getDependency(id domain.DependencyID) (domain.ItemDependency, error) {
	d, ok := s.deps[id]
	if !ok {
		return domain.ItemDependency{}, triprepo.ErrDependencyNotFound
	}
	return d, nil
}

func (s *state) deleteDependency(id domain.DependencyID) error {
	if _, ok := s.deps[id]; !ok {
		return triprepo.ErrDependencyNotFound
	}
	delete(s.deps, id)
	return nil
}

func (s *state) listDependencies(tripID domain.TripID) []domain.ItemDependency {
	out := make([]domain.ItemDependency, 0)
	for _, d := range s.deps {
		if d.TripID == tripID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// extract copies every row owned by the trip into a fresh state.
func (s *state) extract(id domain.TripID) *state {
	out := newState()
	t, ok := s.trips[id]
	if !ok {
		return out
	}
	out.trips[id] = cloneTrip(t)
	for k, d := range s.days {
		if d.TripID == id {
			out.days[k] = d
		}
	}
	for k, it := range s.items {
		if it.TripID == id {
			out.items[k] = cloneItem(it)
		}
	}
	for k, d := range s.deps {
		if d.TripID == id {
			out.deps[k] = d
		}
	}
	return out
}

// replace swaps the rows of the given trips with the rows held by src.
func (s *state) replace(ids []domain.TripID, src *state) {
	for _, id := range ids {
		s.dropTrip(id)
		if t, ok := src.trips[id]; ok {
			s.trips[id] = t
		}
	}
	scope := make(map[domain.TripID]struct{}, len(ids))
	for _, id := range ids {
		scope[id] = struct{}{}
	}
	for k, d := range src.days {
		if _, ok := scope[d.TripID]; ok {
			s.days[k] = d
		}
	}
	for k, it := range src.items {
		if _, ok := scope[it.TripID]; ok {
			s.items[k] = it
		}
	}
	for k, d := range src.deps {
		if _, ok := scope[d.TripID]; ok {
			s.deps[k] = d
		}
	}
}

func cloneTrip(t domain.Trip) domain.Trip {
	cp := t
	if t.OwnerID != nil {
		o := *t.OwnerID
		cp.OwnerID = &o
	}
	if t.CopiedFrom != nil {
		c := *t.CopiedFrom
		cp.CopiedFrom = &c
	}
	if t.TotalEstimatedCost != nil {
		v := *t.TotalEstimatedCost
		cp.TotalEstimatedCost = &v
	}
	if t.Interests != nil {
		cp.Interests = append([]domain.Interest(nil), t.Interests...)
	}
	return cp
}

func cloneItem(it domain.TripItem) domain.TripItem {
	cp := it
	cp.Lat = cloneFloatPtr(it.Lat)
	cp.Lng = cloneFloatPtr(it.Lng)
	return cp
}

func cloneFloatPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
