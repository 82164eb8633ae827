package trips

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/tracing"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// Clone copies a trip into a new draft owned by caller (or by nobody for a guest).
// Ids are fresh and locks are cleared. Edges are copied only when requested, re-pointed to
// the copied items; an edge whose ends were not both copied is dropped.
// The source is read and the copy written in one unit of work under the source's lock.
func (s *Service) Clone(ctx context.Context, caller domain.MemberID, sourceID domain.TripID, in CloneInput) (_ Itinerary, err error) {
	ctx, span := s.start(ctx, "Clone", attribute.String(tracing.AttrTripID, string(sourceID)))
	defer func() { tracing.End(span, err) }()

	var out triprepo.Plan
	err = s.trips.WithinTrip(ctx, sourceID, func(ctx context.Context, st triprepo.Store) error {
		src, err := st.GetPlan(ctx, sourceID)
		if err != nil {
			if errors.Is(err, triprepo.ErrTripNotFound) {
				return TripNotFound(sourceID)
			}
			return err
		}
		out = s.copyPlan(ctx, src, caller, in.PreserveDependencies)
		return st.CreatePlan(ctx, out)
	})
	if err != nil {
		return Itinerary{}, err
	}
	s.log.Info(ctx, "trip cloned", "source_trip_id", sourceID, "trip_id", out.Trip.ID, "dependencies", len(out.Dependencies))
	return itineraryFromPlan(out), nil
}

func (s *Service) copyPlan(ctx context.Context, src triprepo.Plan, caller domain.MemberID, preserveDependencies bool) triprepo.Plan {
	now := s.clock.Now().UTC()

	// Equal to the stored total unless that one is stale or missing.
	total := totalCost(src.Items)
	if src.Trip.TotalEstimatedCost == nil || *src.Trip.TotalEstimatedCost != total {
		s.log.Debug(ctx, "recomputing stale total while cloning", "trip_id", src.Trip.ID)
	}
	sourceID := src.Trip.ID

	t := src.Trip
	t.ID = domain.TripID(s.newID())
	t.OwnerID = ownerOf(caller)
	t.CopiedFrom = &sourceID
	t.Title = domain.CopyTitle(src.Trip.Title)
	t.Interests = append([]domain.Interest(nil), src.Trip.Interests...)
	t.Status = domain.TripStatusDraft
	t.TotalEstimatedCost = &total
	t.CreatedAt = now
	t.UpdatedAt = now

	out := triprepo.Plan{Trip: t}

	dayMap := make(map[domain.DayID]domain.DayID, len(src.Days))
	for _, d := range src.Days {
		nd := d
		nd.ID = domain.DayID(s.newID())
		nd.TripID = t.ID
		dayMap[d.ID] = nd.ID
		out.Days = append(out.Days, nd)
	}

	itemMap := make(map[domain.ItemID]domain.ItemID, len(src.Items))
	for _, it := range src.Items {
		dayID, ok := dayMap[it.DayID]
		if !ok {
			continue
		}
		ni := it
		ni.ID = domain.ItemID(s.newID())
		ni.TripID = t.ID
		ni.DayID = dayID
		ni.Lat = copyFloat(it.Lat)
		ni.Lng = copyFloat(it.Lng)
		ni.Locked = false
		itemMap[it.ID] = ni.ID
		out.Items = append(out.Items, ni)
	}

	if preserveDependencies {
		for _, e := range src.Dependencies {
			dep, okDep := itemMap[e.DependentID]
			pre, okPre := itemMap[e.PrerequisiteID]
			if !okDep || !okPre {
				continue
			}
			ne := e
			ne.ID = domain.DependencyID(s.newID())
			ne.TripID = t.ID
			ne.DependentID = dep
			ne.PrerequisiteID = pre
			out.Dependencies = append(out.Dependencies, ne)
		}
	}
	return out
}
