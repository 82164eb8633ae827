package trips

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/tracing"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// AddDay appends an empty day after the trip's last one.
func (s *Service) AddDay(ctx context.Context, caller domain.MemberID, tripID domain.TripID) (_ domain.TripDay, err error) {
	ctx, span := s.start(ctx, "AddDay", attribute.String(tracing.AttrTripID, string(tripID)))
	defer func() { tracing.End(span, err) }()

	var out domain.TripDay
	err = s.mutateTrip(ctx, caller, tripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		days, err := st.ListDays(ctx, tripID)
		if err != nil {
			return err
		}
		n := len(days)
		if n >= MaxDurationDays {
			return Validation("trip too long", map[string]any{"days": "trip may span at most 30 days", "tripId": string(tripID)})
		}
		day := domain.TripDay{
			ID:     domain.DayID(s.newID()),
			TripID: tripID,
			Index:  n + 1,
			Date:   t.StartDate.AddDate(0, 0, n),
		}
		if err := st.CreateDays(ctx, []domain.TripDay{day}); err != nil {
			return err
		}
		t.DurationDays = n + 1
		if err := s.touch(ctx, st, t, false); err != nil {
			return err
		}
		out = day
		return nil
	})
	if err != nil {
		return domain.TripDay{}, err
	}
	return out, nil
}

// DeleteDay removes a day with its items and their edges. Later days move one
// day earlier, and so do their items, so days stay numbered 1..n on consecutive dates.
// The last remaining day cannot be deleted.
func (s *Service) DeleteDay(ctx context.Context, caller domain.MemberID, dayID domain.DayID) (err error) {
	ctx, span := s.start(ctx, "DeleteDay", attribute.String(tracing.AttrDayID, string(dayID)))
	defer func() { tracing.End(span, err) }()

	day, err := loadDay(ctx, s.trips, dayID)
	if err != nil {
		return err
	}

	var removed []domain.ItemID
	err = s.mutateTrip(ctx, caller, day.TripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		day, err := loadDay(ctx, st, dayID)
		if err != nil {
			return err
		}
		days, err := st.ListDays(ctx, t.ID)
		if err != nil {
			return err
		}
		if len(days) <= 1 {
			return Validation("cannot delete the only day", map[string]any{"dayId": string(dayID)})
		}
		items, err := st.ListItemsByDay(ctx, dayID)
		if err != nil {
			return err
		}
		for _, it := range items {
			removed = append(removed, it.ID)
		}

		if err := st.DeleteDay(ctx, dayID); err != nil {
			if errors.Is(err, triprepo.ErrDayNotFound) {
				return DayNotFound(dayID)
			}
			return err
		}
		// Ascending so each new index is already free.
		for _, d := range days {
			if d.Index <= day.Index {
				continue
			}
			if err := shiftDayBack(ctx, st, d); err != nil {
				return err
			}
		}

		t.DurationDays = len(days) - 1
		return s.touch(ctx, st, t, true)
	})
	if err != nil {
		return err
	}
	s.dropVotes(ctx, removed)
	s.log.Info(ctx, "day deleted", "trip_id", day.TripID, "day_id", dayID, "items", len(removed))
	return nil
}

func shiftDayBack(ctx context.Context, st triprepo.Store, d domain.TripDay) error {
	items, err := st.ListItemsByDay(ctx, d.ID)
	if err != nil {
		return err
	}
	d.Index--
	d.Date = d.Date.AddDate(0, 0, -1)
	if err := st.SaveDay(ctx, d); err != nil {
		return fmt.Errorf("save day %s: %w", d.ID, err)
	}
	for _, it := range items {
		it.StartAt = it.StartAt.AddDate(0, 0, -1)
		it.EndAt = it.EndAt.AddDate(0, 0, -1)
		if err := st.SaveItem(ctx, it); err != nil {
			return fmt.Errorf("save item %s: %w", it.ID, err)
		}
	}
	return nil
}
