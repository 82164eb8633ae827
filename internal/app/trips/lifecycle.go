package trips

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/tracing"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// GetTrip returns the full itinerary. Trips are readable by anyone holding the id.
func (s *Service) GetTrip(ctx context.Context, tripID domain.TripID) (_ Itinerary, err error) {
	ctx, span := s.start(ctx, "GetTrip", attribute.String(tracing.AttrTripID, string(tripID)))
	defer func() { tracing.End(span, err) }()

	p, err := s.trips.GetPlan(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrTripNotFound) {
			return Itinerary{}, TripNotFound(tripID)
		}
		return Itinerary{}, err
	}
	return itineraryFromPlan(p), nil
}

// ListMyTrips returns the caller's trips, oldest first. Guests own nothing.
func (s *Service) ListMyTrips(ctx context.Context, caller domain.MemberID) ([]domain.Trip, error) {
	if caller == "" {
		return []domain.Trip{}, nil
	}
	ts, err := s.trips.ListTripsByOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		ts = []domain.Trip{}
	}
	return ts, nil
}

// Claim makes a guest trip the caller's. Claiming a trip the caller already owns is a no-op.
func (s *Service) Claim(ctx context.Context, caller domain.MemberID, tripID domain.TripID) (_ domain.Trip, err error) {
	ctx, span := s.start(ctx, "Claim", attribute.String(tracing.AttrTripID, string(tripID)))
	defer func() { tracing.End(span, err) }()

	if caller == "" {
		return domain.Trip{}, Validation("claiming requires a signed-in member", map[string]any{"tripId": string(tripID)})
	}

	var out domain.Trip
	err = s.trips.WithinTrip(ctx, tripID, func(ctx context.Context, st triprepo.Store) error {
		t, err := loadTrip(ctx, st, tripID)
		if err != nil {
			return err
		}
		switch {
		case t.IsOwnedBy(caller):
			out = t
			return nil
		case !t.IsGuest():
			return ownershipConflict(tripID)
		}
		t.OwnerID = ownerOf(caller)
		if err := s.touch(ctx, st, &t, false); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return domain.Trip{}, err
	}
	return out, nil
}

// UpdateTrip patches the trip's title, origin and travel style.
func (s *Service) UpdateTrip(ctx context.Context, caller domain.MemberID, tripID domain.TripID, in UpdateTripInput) (_ domain.Trip, err error) {
	ctx, span := s.start(ctx, "UpdateTrip", attribute.String(tracing.AttrTripID, string(tripID)))
	defer func() { tracing.End(span, err) }()

	var out domain.Trip
	err = s.mutateTrip(ctx, caller, tripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		if err := applyTripPatch(t, in); err != nil {
			return err
		}
		if err := s.touch(ctx, st, t, false); err != nil {
			return err
		}
		out = *t
		return nil
	})
	if err != nil {
		return domain.Trip{}, err
	}
	return out, nil
}

func applyTripPatch(t *domain.Trip, in UpdateTripInput) error {
	if in.Title.IsSpecified() {
		if in.Title.IsNull() {
			return Validation("invalid title", map[string]any{"title": "cannot be null", "tripId": string(t.ID)})
		}
		title := domain.NormalizeTitle(in.Title.Value())
		if title == "" {
			return Validation("invalid title", map[string]any{"title": "must be non-empty", "tripId": string(t.ID)})
		}
		t.Title = title
	}
	if in.Origin.IsSpecified() {
		t.Origin = ""
		if !in.Origin.IsNull() {
			t.Origin = domain.NormalizeTitle(in.Origin.Value())
		}
	}
	if in.TravelStyle.IsSpecified() {
		if in.TravelStyle.IsNull() {
			return Validation("invalid travelStyle", map[string]any{"travelStyle": "cannot be null", "tripId": string(t.ID)})
		}
		style := domain.TravelStyle(strings.ToUpper(strings.TrimSpace(in.TravelStyle.Value())))
		if !style.Valid() {
			return Validation("invalid travelStyle", map[string]any{"travelStyle": "must be SOLO, COUPLE, FAMILY, FRIENDS or BUSINESS", "tripId": string(t.ID)})
		}
		t.TravelStyle = style
	}
	return nil
}

// Finalize moves a draft to FINALIZED. Finalizing twice is not an error.
func (s *Service) Finalize(ctx context.Context, caller domain.MemberID, tripID domain.TripID) (_ domain.Trip, err error) {
	ctx, span := s.start(ctx, "Finalize", attribute.String(tracing.AttrTripID, string(tripID)))
	defer func() { tracing.End(span, err) }()

	var out domain.Trip
	err = s.mutateTrip(ctx, caller, tripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		if t.Status == domain.TripStatusFinalized {
			out = *t
			return nil
		}
		t.Status = domain.TripStatusFinalized
		if err := s.touch(ctx, st, t, true); err != nil {
			return err
		}
		out = *t
		return nil
	})
	if err != nil {
		return domain.Trip{}, err
	}
	return out, nil
}

// RecalculateCost recomputes the stored total from the trip's items.
func (s *Service) RecalculateCost(ctx context.Context, caller domain.MemberID, tripID domain.TripID) (_ domain.Trip, err error) {
	ctx, span := s.start(ctx, "RecalculateCost", attribute.String(tracing.AttrTripID, string(tripID)))
	defer func() { tracing.End(span, err) }()

	var out domain.Trip
	err = s.mutateTrip(ctx, caller, tripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		if err := s.touch(ctx, st, t, true); err != nil {
			return err
		}
		out = *t
		return nil
	})
	if err != nil {
		return domain.Trip{}, err
	}
	return out, nil
}

// DeleteTrip removes the trip with its days, items and edges, then the votes on its items.
func (s *Service) DeleteTrip(ctx context.Context, caller domain.MemberID, tripID domain.TripID) (err error) {
	ctx, span := s.start(ctx, "DeleteTrip", attribute.String(tracing.AttrTripID, string(tripID)))
	defer func() { tracing.End(span, err) }()

	var itemIDs []domain.ItemID
	err = s.mutateTrip(ctx, caller, tripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		items, err := st.ListItemsByTrip(ctx, t.ID)
		if err != nil {
			return err
		}
		for _, it := range items {
			itemIDs = append(itemIDs, it.ID)
		}
		if err := st.DeleteTrip(ctx, t.ID); err != nil {
			if errors.Is(err, triprepo.ErrTripNotFound) {
				return TripNotFound(t.ID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.dropVotes(ctx, itemIDs)
	s.log.Info(ctx, "trip deleted", "trip_id", tripID, "items", len(itemIDs))
	return nil
}
