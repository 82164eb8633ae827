package trips

import (
	"context"
	"errors"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/depgraph"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/tracing"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// AddDependency records that the dependent item starts after the prerequisite finishes.
// The edge set is read under the trip's lock, so the cycle check sees every committed edge.
func (s *Service) AddDependency(ctx context.Context, caller domain.MemberID, in AddDependencyInput) (_ domain.ItemDependency, err error) {
	ctx, span := s.start(ctx, "AddDependency", attribute.String(tracing.AttrItemID, string(in.DependentID)))
	defer func() { tracing.End(span, err) }()

	if in.DependentID == in.PrerequisiteID {
		return domain.ItemDependency{}, Validation("an item cannot depend on itself", map[string]any{"itemId": string(in.DependentID)})
	}
	action := in.Action
	if action == "" {
		action = domain.ViolationWarn
	}
	if !action.Valid() {
		return domain.ItemDependency{}, Validation("invalid violationAction", map[string]any{"violationAction": "must be WARN or BLOCK"})
	}

	tripID, err := s.tripOfItem(ctx, in.DependentID)
	if err != nil {
		return domain.ItemDependency{}, err
	}
	// Items never move between trips, so this check holds once the lock is taken.
	preTrip, err := s.tripOfItem(ctx, in.PrerequisiteID)
	if err != nil {
		return domain.ItemDependency{}, err
	}
	if preTrip != tripID {
		return domain.ItemDependency{}, Validation("items belong to different trips", map[string]any{
			"dependentId":    string(in.DependentID),
			"prerequisiteId": string(in.PrerequisiteID),
		})
	}

	var out domain.ItemDependency
	err = s.mutateTrip(ctx, caller, tripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		dep, err := loadItem(ctx, st, in.DependentID)
		if err != nil {
			return err
		}
		pre, err := loadItem(ctx, st, in.PrerequisiteID)
		if err != nil {
			return err
		}
		edges, err := st.ListDependencies(ctx, t.ID)
		if err != nil {
			return err
		}
		for _, e := range edges {
			if e.DependentID == dep.ID && e.PrerequisiteID == pre.ID {
				return duplicateDependency(dep.ID, pre.ID, e.ID)
			}
		}
		if depgraph.New(edges).WouldCycle(dep.ID, pre.ID) {
			return cycleConflict(dep.ID, pre.ID)
		}

		d := domain.ItemDependency{
			ID:             domain.DependencyID(s.newID()),
			TripID:         t.ID,
			DependentID:    dep.ID,
			PrerequisiteID: pre.ID,
			Type:           domain.DependencyFinishToStart,
			Action:         action,
			CreatedAt:      s.clock.Now().UTC(),
		}
		if err := st.CreateDependency(ctx, d); err != nil {
			if errors.Is(err, triprepo.ErrDuplicateDependency) {
				return duplicateDependency(dep.ID, pre.ID, "")
			}
			return err
		}
		if err := s.touch(ctx, st, t, false); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return domain.ItemDependency{}, err
	}
	return out, nil
}

func duplicateDependency(dependent, prerequisite domain.ItemID, existing domain.DependencyID) *Error {
	details := map[string]any{
		"dependentId":    string(dependent),
		"prerequisiteId": string(prerequisite),
	}
	if existing != "" {
		details["dependencyId"] = string(existing)
	}
	return Validation("dependency already exists", details)
}

// RemoveDependency deletes an edge. Removal cannot create a cycle, so nothing is re-checked.
func (s *Service) RemoveDependency(ctx context.Context, caller domain.MemberID, id domain.DependencyID) (err error) {
	ctx, span := s.start(ctx, "RemoveDependency", attribute.String(tracing.AttrDependencyID, string(id)))
	defer func() { tracing.End(span, err) }()

	d, err := loadDependency(ctx, s.trips, id)
	if err != nil {
		return err
	}
	return s.mutateTrip(ctx, caller, d.TripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		if err := st.DeleteDependency(ctx, id); err != nil {
			if errors.Is(err, triprepo.ErrDependencyNotFound) {
				return DependencyNotFound(id)
			}
			return err
		}
		return s.touch(ctx, st, t, false)
	})
}

// DependencyViolations lists every edge whose prerequisite ends after its dependent starts.
// The edge's action says how a client should treat it; nothing is enforced here.
func (s *Service) DependencyViolations(ctx context.Context, tripID domain.TripID) (_ []DependencyViolation, err error) {
	ctx, span := s.start(ctx, "DependencyViolations", attribute.String(tracing.AttrTripID, string(tripID)))
	defer func() { tracing.End(span, err) }()

	if _, err := loadTrip(ctx, s.trips, tripID); err != nil {
		return nil, err
	}
	return violationsFor(ctx, s.trips, tripID, "")
}

// violationsFor reports violated edges of a trip, limited to edges touching onlyItem when it is set.
func violationsFor(ctx context.Context, st triprepo.Store, tripID domain.TripID, onlyItem domain.ItemID) ([]DependencyViolation, error) {
	edges, err := st.ListDependencies(ctx, tripID)
	if err != nil {
		return nil, err
	}
	out := []DependencyViolation{}
	if len(edges) == 0 {
		return out, nil
	}
	items, err := st.ListItemsByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	byID := make(map[domain.ItemID]domain.TripItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	for _, e := range edges {
		if onlyItem != "" && e.DependentID != onlyItem && e.PrerequisiteID != onlyItem {
			continue
		}
		pre, okPre := byID[e.PrerequisiteID]
		dep, okDep := byID[e.DependentID]
		if !okPre || !okDep {
			continue
		}
		if pre.EndAt.After(dep.StartAt) {
			out = append(out, DependencyViolation{
				Dependency:       e,
				PrerequisiteEnds: pre.EndAt,
				DependentStarts:  dep.StartAt,
			})
		}
	}
	if len(out) > 1 {
		sortByDependencyOrder(out, edges)
	}
	return out, nil
}

// sortByDependencyOrder puts violations of upstream edges first.
// Edge order is kept when the stored edges are not a DAG.
func sortByDependencyOrder(vs []DependencyViolation, edges []domain.ItemDependency) {
	order, err := depgraph.New(edges).TopologicalOrder()
	if err != nil {
		return
	}
	rank := make(map[domain.ItemID]int, len(order))
	for i, id := range order {
		rank[id] = i
	}
	sort.SliceStable(vs, func(i, j int) bool {
		return rank[vs[i].Dependency.DependentID] < rank[vs[j].Dependency.DependentID]
	})
}
