package trips

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/tracing"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// mutateItem resolves the item's trip, takes its lock and hands fn the re-read item.
func (s *Service) mutateItem(ctx context.Context, caller domain.MemberID, itemID domain.ItemID, fn func(ctx context.Context, st triprepo.Store, t *domain.Trip, it *domain.TripItem) error) error {
	tripID, err := s.tripOfItem(ctx, itemID)
	if err != nil {
		return err
	}
	return s.mutateTrip(ctx, caller, tripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		it, err := loadItem(ctx, st, itemID)
		if err != nil {
			return err
		}
		return fn(ctx, st, t, &it)
	})
}

func (s *Service) LockItem(ctx context.Context, caller domain.MemberID, itemID domain.ItemID) (domain.TripItem, error) {
	return s.setLocked(ctx, caller, itemID, true)
}

func (s *Service) UnlockItem(ctx context.Context, caller domain.MemberID, itemID domain.ItemID) (domain.TripItem, error) {
	return s.setLocked(ctx, caller, itemID, false)
}

func (s *Service) setLocked(ctx context.Context, caller domain.MemberID, itemID domain.ItemID, locked bool) (_ domain.TripItem, err error) {
	op := "UnlockItem"
	if locked {
		op = "LockItem"
	}
	ctx, span := s.start(ctx, op, attribute.String(tracing.AttrItemID, string(itemID)))
	defer func() { tracing.End(span, err) }()

	var out domain.TripItem
	err = s.mutateItem(ctx, caller, itemID, func(ctx context.Context, st triprepo.Store, t *domain.Trip, it *domain.TripItem) error {
		if it.Locked != locked {
			it.Locked = locked
			if err := st.SaveItem(ctx, *it); err != nil {
				return err
			}
			if err := s.touch(ctx, st, t, false); err != nil {
				return err
			}
		}
		out = *it
		return nil
	})
	if err != nil {
		return domain.TripItem{}, err
	}
	return out, nil
}

// UpdateItem applies a patch. On a locked item any change to StartAt or EndAt is rejected;
// other fields may still change. The returned violations are advisory.
func (s *Service) UpdateItem(ctx context.Context, caller domain.MemberID, itemID domain.ItemID, in UpdateItemInput) (_ ItemUpdated, err error) {
	ctx, span := s.start(ctx, "UpdateItem", attribute.String(tracing.AttrItemID, string(itemID)))
	defer func() { tracing.End(span, err) }()

	var out ItemUpdated
	err = s.mutateItem(ctx, caller, itemID, func(ctx context.Context, st triprepo.Store, t *domain.Trip, it *domain.TripItem) error {
		costChanged, err := applyItemPatch(it, in)
		if err != nil {
			return err
		}
		if err := st.SaveItem(ctx, *it); err != nil {
			return err
		}
		if err := s.touch(ctx, st, t, costChanged); err != nil {
			return err
		}

		violations, err := violationsFor(ctx, st, t.ID, it.ID)
		if err != nil {
			return err
		}
		out = ItemUpdated{Item: *it, Violations: violations}
		return nil
	})
	if err != nil {
		return ItemUpdated{}, err
	}
	for _, v := range out.Violations {
		if v.Dependency.Action == domain.ViolationBlock {
			s.log.Info(ctx, "blocking dependency violated by item update", "item_id", itemID, "dependency_id", v.Dependency.ID)
		}
	}
	return out, nil
}

func applyItemPatch(it *domain.TripItem, in UpdateItemInput) (costChanged bool, err error) {
	if it.Locked {
		if in.StartAt.IsSpecified() && (in.StartAt.IsNull() || !in.StartAt.Value().Equal(it.StartAt)) {
			return false, itemLocked(it.ID, "startAt")
		}
		if in.EndAt.IsSpecified() && (in.EndAt.IsNull() || !in.EndAt.Value().Equal(it.EndAt)) {
			return false, itemLocked(it.ID, "endAt")
		}
	}

	if in.Title.IsSpecified() {
		if in.Title.IsNull() {
			return false, Validation("invalid title", map[string]any{"title": "cannot be null", "itemId": string(it.ID)})
		}
		title := domain.NormalizeTitle(in.Title.Value())
		if title == "" {
			return false, Validation("invalid title", map[string]any{"title": "must be non-empty", "itemId": string(it.ID)})
		}
		it.Title = title
	}
	if in.Category.IsSpecified() {
		it.Category = ""
		if !in.Category.IsNull() {
			it.Category = domain.ParseCategory(in.Category.Value())
		}
	}
	if in.Address.IsSpecified() {
		it.Address = ""
		if !in.Address.IsNull() {
			it.Address = in.Address.Value()
		}
	}
	if in.Notes.IsSpecified() {
		it.Notes = ""
		if !in.Notes.IsNull() {
			it.Notes = in.Notes.Value()
		}
	}

	if in.Latitude.IsNull() || in.Longitude.IsNull() {
		it.Lat, it.Lng = nil, nil
	} else {
		if in.Latitude.IsSpecified() {
			v := in.Latitude.Value()
			if v < -90 || v > 90 {
				return false, Validation("invalid latitude", map[string]any{"latitude": "must be within [-90, 90]", "itemId": string(it.ID)})
			}
			it.Lat = &v
		}
		if in.Longitude.IsSpecified() {
			v := in.Longitude.Value()
			if v < -180 || v > 180 {
				return false, Validation("invalid longitude", map[string]any{"longitude": "must be within [-180, 180]", "itemId": string(it.ID)})
			}
			it.Lng = &v
		}
		if (it.Lat == nil) != (it.Lng == nil) {
			return false, Validation("invalid coordinates", map[string]any{"coordinates": "latitude and longitude must be set together", "itemId": string(it.ID)})
		}
	}

	if in.EstimatedCost.IsSpecified() {
		if in.EstimatedCost.IsNull() {
			return false, Validation("invalid estimatedCost", map[string]any{"estimatedCost": "cannot be null", "itemId": string(it.ID)})
		}
		v := in.EstimatedCost.Value()
		if v < 0 {
			return false, Validation("invalid estimatedCost", map[string]any{"estimatedCost": "must be >= 0", "itemId": string(it.ID)})
		}
		costChanged = v != it.EstimatedCost
		it.EstimatedCost = v
	}

	if in.StartAt.IsSpecified() {
		if in.StartAt.IsNull() {
			return false, Validation("invalid startAt", map[string]any{"startAt": "cannot be null", "itemId": string(it.ID)})
		}
		it.StartAt = in.StartAt.Value().UTC()
	}
	if in.EndAt.IsSpecified() {
		if in.EndAt.IsNull() {
			return false, Validation("invalid endAt", map[string]any{"endAt": "cannot be null", "itemId": string(it.ID)})
		}
		it.EndAt = in.EndAt.Value().UTC()
	}
	if !it.StartAt.Before(it.EndAt) {
		return false, Validation("invalid time window", map[string]any{"endAt": "must be after startAt", "itemId": string(it.ID)})
	}
	return costChanged, nil
}

// ReorderDay assigns sort positions from an explicit ordering of the day's items.
// A full ordering numbers the items 1..n. A partial ordering hands the positions the
// listed items already hold back out in the supplied order; unlisted items keep theirs.
// Times are not checked against the new order.
func (s *Service) ReorderDay(ctx context.Context, caller domain.MemberID, dayID domain.DayID, order []domain.ItemID) (_ []domain.TripItem, err error) {
	ctx, span := s.start(ctx, "ReorderDay", attribute.String(tracing.AttrDayID, string(dayID)))
	defer func() { tracing.End(span, err) }()

	day, err := loadDay(ctx, s.trips, dayID)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, Validation("invalid ordering", map[string]any{"itemIds": "must list at least one item", "dayId": string(dayID)})
	}

	var out []domain.TripItem
	err = s.mutateTrip(ctx, caller, day.TripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		if _, err := loadDay(ctx, st, dayID); err != nil {
			return err
		}
		items, err := st.ListItemsByDay(ctx, dayID)
		if err != nil {
			return err
		}
		byID := make(map[domain.ItemID]domain.TripItem, len(items))
		for _, it := range items {
			byID[it.ID] = it
		}

		listed := make(map[domain.ItemID]struct{}, len(order))
		positions := make([]int, 0, len(order))
		for _, id := range order {
			if _, dup := listed[id]; dup {
				return Validation("invalid ordering", map[string]any{"itemIds": "duplicate item", "itemId": string(id)})
			}
			it, ok := byID[id]
			if !ok {
				return Validation("invalid ordering", map[string]any{"itemIds": "item is not on this day", "itemId": string(id), "dayId": string(dayID)})
			}
			listed[id] = struct{}{}
			positions = append(positions, it.SortOrder)
		}

		if len(order) == len(items) {
			for i := range positions {
				positions[i] = i + 1
			}
		} else {
			sort.Ints(positions)
		}

		for i, id := range order {
			it := byID[id]
			if it.SortOrder == positions[i] {
				continue
			}
			it.SortOrder = positions[i]
			if err := st.SaveItem(ctx, it); err != nil {
				return fmt.Errorf("save item %s: %w", id, err)
			}
		}
		if err := s.touch(ctx, st, t, false); err != nil {
			return err
		}

		out, err = st.ListItemsByDay(ctx, dayID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceItem swaps the place behind an item. The time window, sort position and lock are kept;
// the new place need not share the old one's category.
func (s *Service) ReplaceItem(ctx context.Context, caller domain.MemberID, itemID domain.ItemID, p domain.Place) (_ domain.TripItem, err error) {
	ctx, span := s.start(ctx, "ReplaceItem", attribute.String(tracing.AttrItemID, string(itemID)))
	defer func() { tracing.End(span, err) }()

	if err := checkPlace(p, "itemId", string(itemID)); err != nil {
		return domain.TripItem{}, err
	}

	var out domain.TripItem
	err = s.mutateItem(ctx, caller, itemID, func(ctx context.Context, st triprepo.Store, t *domain.Trip, it *domain.TripItem) error {
		applyPlace(it, p)
		if err := st.SaveItem(ctx, *it); err != nil {
			return err
		}
		if err := s.touch(ctx, st, t, true); err != nil {
			return err
		}
		out = *it
		return nil
	})
	if err != nil {
		return domain.TripItem{}, err
	}
	return out, nil
}

// checkPlace rejects a place that cannot back an item. ref names the target in error details.
func checkPlace(p domain.Place, refKey, ref string) error {
	if p.ID == "" {
		return Validation("invalid place", map[string]any{"placeId": "required", refKey: ref})
	}
	if p.EntryFee < 0 {
		return Validation("invalid place", map[string]any{"entryFee": "must be >= 0", refKey: ref})
	}
	if (p.Lat == nil) != (p.Lng == nil) {
		return Validation("invalid place", map[string]any{"coordinates": "latitude and longitude must be set together", refKey: ref})
	}
	if p.PriceTier != "" && !p.PriceTier.Valid() {
		return Validation("invalid place", map[string]any{"priceTier": "unknown price tier", refKey: ref})
	}
	return nil
}

// applyPlace copies a checked place onto an item. A blank title falls back to the place id.
func applyPlace(it *domain.TripItem, p domain.Place) {
	title := domain.NormalizeTitle(p.Title)
	if title == "" {
		title = string(p.ID)
	}
	tier := p.PriceTier
	if tier == "" {
		tier = domain.PriceFree
	}
	it.PlaceRef = p.ID
	it.Title = title
	it.Category = p.Category
	it.Address = p.Address
	it.Lat = copyFloat(p.Lat)
	it.Lng = copyFloat(p.Lng)
	it.PriceTier = tier
	it.EstimatedCost = p.EntryFee
}

// AddItem schedules a place on a day after its existing items.
// The item costs the place's entry fee and the trip total is recomputed.
func (s *Service) AddItem(ctx context.Context, caller domain.MemberID, dayID domain.DayID, in AddItemInput) (_ domain.TripItem, err error) {
	ctx, span := s.start(ctx, "AddItem", attribute.String(tracing.AttrDayID, string(dayID)))
	defer func() { tracing.End(span, err) }()

	kind := in.Kind
	if kind == "" {
		kind = domain.ItemKindVisit
	}
	if !kind.Valid() {
		return domain.TripItem{}, Validation("invalid kind", map[string]any{"kind": "must be VISIT, MEAL, STAY or TRANSPORT", "dayId": string(dayID)})
	}
	if err := checkPlace(in.Place, "dayId", string(dayID)); err != nil {
		return domain.TripItem{}, err
	}
	if in.StartAt.IsZero() || in.EndAt.IsZero() {
		return domain.TripItem{}, Validation("invalid time window", map[string]any{"startAt": "startAt and endAt are required", "dayId": string(dayID)})
	}
	if !in.StartAt.Before(in.EndAt) {
		return domain.TripItem{}, Validation("invalid time window", map[string]any{"endAt": "must be after startAt", "dayId": string(dayID)})
	}

	day, err := loadDay(ctx, s.trips, dayID)
	if err != nil {
		return domain.TripItem{}, err
	}

	var out domain.TripItem
	err = s.mutateTrip(ctx, caller, day.TripID, func(ctx context.Context, st triprepo.Store, t *domain.Trip) error {
		if _, err := loadDay(ctx, st, dayID); err != nil {
			return err
		}
		existing, err := st.ListItemsByDay(ctx, dayID)
		if err != nil {
			return err
		}
		last := 0
		for _, it := range existing {
			if it.SortOrder > last {
				last = it.SortOrder
			}
		}

		it := domain.TripItem{
			ID:        domain.ItemID(s.newID()),
			TripID:    t.ID,
			DayID:     dayID,
			Kind:      kind,
			StartAt:   in.StartAt.UTC(),
			EndAt:     in.EndAt.UTC(),
			SortOrder: last + 1,
			Notes:     in.Notes,
		}
		applyPlace(&it, in.Place)
		if err := st.CreateItems(ctx, []domain.TripItem{it}); err != nil {
			return err
		}
		if err := s.touch(ctx, st, t, true); err != nil {
			return err
		}
		out = it
		return nil
	})
	if err != nil {
		return domain.TripItem{}, err
	}
	s.log.Info(ctx, "item added", "trip_id", out.TripID, "item_id", out.ID, "place_id", out.PlaceRef)
	return out, nil
}

// DeleteItem removes the item and every edge that references it in one unit of work.
func (s *Service) DeleteItem(ctx context.Context, caller domain.MemberID, itemID domain.ItemID) (err error) {
	ctx, span := s.start(ctx, "DeleteItem", attribute.String(tracing.AttrItemID, string(itemID)))
	defer func() { tracing.End(span, err) }()

	err = s.mutateItem(ctx, caller, itemID, func(ctx context.Context, st triprepo.Store, t *domain.Trip, it *domain.TripItem) error {
		if err := st.DeleteItem(ctx, it.ID); err != nil {
			if errors.Is(err, triprepo.ErrItemNotFound) {
				return ItemNotFound(it.ID)
			}
			return err
		}
		return s.touch(ctx, st, t, true)
	})
	if err != nil {
		return err
	}
	s.dropVotes(ctx, []domain.ItemID{itemID})
	return nil
}
