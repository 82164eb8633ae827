package triprepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	postgres "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

func parseID[T ~string](id T) (uuid.UUID, bool) {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return uuid.UUID{}, false
	}
	return u, true
}

func mustParseID[T ~string](kind string, id T) (uuid.UUID, error) {
	u, err := uuid.Parse(string(id))
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid %s id: %w", kind, err)
	}
	return u, nil
}

func dateParam(t time.Time) pgtype.Date {
	return pgtype.Date{Time: domain.DateOnly(t), Valid: true}
}

func ownerParam(owner *domain.MemberID) *string {
	if owner == nil {
		return nil
	}
	s := string(*owner)
	return &s
}

func copiedFromParam(id *domain.TripID) (*uuid.UUID, error) {
	if id == nil {
		return nil, nil
	}
	u, err := mustParseID("source trip", *id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func interestsParam(in []domain.Interest) []string {
	out := make([]string, 0, len(in))
	for _, i := range in {
		out = append(out, string(i))
	}
	return out
}

func insertTrip(ctx context.Context, tx pgx.Tx, t domain.Trip) error {
	tripUUID, err := mustParseID("trip", t.ID)
	if err != nil {
		return err
	}
	copied, err := copiedFromParam(t.CopiedFrom)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO trips (
			id,
			owner_id,
			copied_from,
			title,
			origin,
			province,
			city,
			start_date,
			duration_days,
			budget,
			travel_style,
			interests,
			status,
			total_estimated_cost,
			created_at,
			updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`,
		tripUUID,
		ownerParam(t.OwnerID),
		copied,
		t.Title,
		t.Origin,
		t.Province,
		t.City,
		dateParam(t.StartDate),
		t.DurationDays,
		string(t.Budget),
		string(t.TravelStyle),
		interestsParam(t.Interests),
		string(t.Status),
		t.TotalEstimatedCost,
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		if postgres.IsConstraintViolation(err, postgres.UniqueViolationCode, "trips_pkey") {
			return triprepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func insertDay(ctx context.Context, tx pgx.Tx, d domain.TripDay) error {
	dayUUID, err := mustParseID("day", d.ID)
	if err != nil {
		return err
	}
	tripUUID, ok := parseID(d.TripID)
	if !ok {
		return triprepo.ErrTripNotFound
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO trip_days (id, trip_id, day_index, day_date)
		VALUES ($1,$2,$3,$4)
	`, dayUUID, tripUUID, d.Index, dateParam(d.Date))
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok {
			switch pe.Code {
			case postgres.UniqueViolationCode:
				return triprepo.ErrAlreadyExists
			case postgres.ForeignKeyViolationCode:
				return triprepo.ErrTripNotFound
			}
		}
		return err
	}
	return nil
}

func insertItem(ctx context.Context, tx pgx.Tx, it domain.TripItem) error {
	itemUUID, err := mustParseID("item", it.ID)
	if err != nil {
		return err
	}
	tripUUID, ok := parseID(it.TripID)
	if !ok {
		return triprepo.ErrTripNotFound
	}
	dayUUID, ok := parseID(it.DayID)
	if !ok {
		return triprepo.ErrDayNotFound
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO trip_items (
			id,
			trip_id,
			day_id,
			kind,
			place_ref,
			title,
			category,
			address,
			latitude,
			longitude,
			notes,
			start_at,
			end_at,
			sort_order,
			locked,
			price_tier,
			estimated_cost
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
	`,
		itemUUID,
		tripUUID,
		dayUUID,
		string(it.Kind),
		string(it.PlaceRef),
		it.Title,
		string(it.Category),
		it.Address,
		it.Lat,
		it.Lng,
		it.Notes,
		it.StartAt.UTC(),
		it.EndAt.UTC(),
		it.SortOrder,
		it.Locked,
		string(it.PriceTier),
		it.EstimatedCost,
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok {
			switch pe.Code {
			case postgres.UniqueViolationCode:
				return triprepo.ErrAlreadyExists
			case postgres.ForeignKeyViolationCode:
				return triprepo.ErrDayNotFound
			}
		}
		return err
	}
	return nil
}

func insertDependency(ctx context.Context, tx pgx.Tx, d domain.ItemDependency) error {
	depUUID, err := mustParseID("dependency", d.ID)
	if err != nil {
		return err
	}
	tripUUID, ok := parseID(d.TripID)
	if !ok {
		return triprepo.ErrTripNotFound
	}
	dependent, ok := parseID(d.DependentID)
	if !ok {
		return triprepo.ErrItemNotFound
	}
	prerequisite, ok := parseID(d.PrerequisiteID)
	if !ok {
		return triprepo.ErrItemNotFound
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO item_dependencies (
			id,
			trip_id,
			dependent_id,
			prerequisite_id,
			dependency_type,
			violation_action,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
	`,
		depUUID,
		tripUUID,
		dependent,
		prerequisite,
		string(d.Type),
		string(d.Action),
		d.CreatedAt.UTC(),
	)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok {
			switch {
			case pe.Code == postgres.UniqueViolationCode && pe.ConstraintName == "item_dependencies_pair_unique":
				return triprepo.ErrDuplicateDependency
			case pe.Code == postgres.UniqueViolationCode:
				return triprepo.ErrAlreadyExists
			case pe.Code == postgres.ForeignKeyViolationCode:
				return triprepo.ErrItemNotFound
			}
		}
		return err
	}
	return nil
}

func scanTrip(row pgx.Row) (domain.Trip, error) {
	var (
		t                     domain.Trip
		id                    string
		owner, copied         *string
		start                 pgtype.Date
		budget, style, status string
		interests             []string
	)
	if err := row.Scan(
		&id,
		&owner,
		&copied,
		&t.Title,
		&t.Origin,
		&t.Province,
		&t.City,
		&start,
		&t.DurationDays,
		&budget,
		&style,
		&interests,
		&status,
		&t.TotalEstimatedCost,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return domain.Trip{}, err
	}

	t.ID = domain.TripID(id)
	if owner != nil {
		m := domain.MemberID(*owner)
		t.OwnerID = &m
	}
	if copied != nil {
		src := domain.TripID(*copied)
		t.CopiedFrom = &src
	}
	t.StartDate = domain.DateOnly(start.Time)
	t.Budget = domain.BudgetTier(budget)
	t.TravelStyle = domain.TravelStyle(style)
	t.Status = domain.TripStatus(status)
	t.Interests = make([]domain.Interest, 0, len(interests))
	for _, i := range interests {
		t.Interests = append(t.Interests, domain.Interest(i))
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func scanDay(row pgx.Row) (domain.TripDay, error) {
	var (
		id, tripID string
		index      int
		date       pgtype.Date
	)
	if err := row.Scan(&id, &tripID, &index, &date); err != nil {
		return domain.TripDay{}, err
	}
	return domain.TripDay{
		ID:     domain.DayID(id),
		TripID: domain.TripID(tripID),
		Index:  index,
		Date:   domain.DateOnly(date.Time),
	}, nil
}

func scanItem(row pgx.Row) (domain.TripItem, error) {
	var (
		it                       domain.TripItem
		id, tripID, dayID        string
		kind, placeRef, category string
		priceTier                string
	)
	if err := row.Scan(
		&id,
		&tripID,
		&dayID,
		&kind,
		&placeRef,
		&it.Title,
		&category,
		&it.Address,
		&it.Lat,
		&it.Lng,
		&it.Notes,
		&it.StartAt,
		&it.EndAt,
		&it.SortOrder,
		&it.Locked,
		&priceTier,
		&it.EstimatedCost,
	); err != nil {
		return domain.TripItem{}, err
	}
	it.ID = domain.ItemID(id)
	it.TripID = domain.TripID(tripID)
	it.DayID = domain.DayID(dayID)
	it.Kind = domain.ItemKind(kind)
	it.PlaceRef = domain.PlaceID(placeRef)
	it.Category = domain.Category(category)
	it.PriceTier = domain.PriceTier(priceTier)
	it.StartAt = it.StartAt.UTC()
	it.EndAt = it.EndAt.UTC()
	return it, nil
}

func scanDependency(row pgx.Row) (domain.ItemDependency, error) {
	var (
		d                                   domain.ItemDependency
		id, tripID, dependent, prerequisite string
		depType, action                     string
	)
	if err := row.Scan(&id, &tripID, &dependent, &prerequisite, &depType, &action, &d.CreatedAt); err != nil {
		return domain.ItemDependency{}, err
	}
	d.ID = domain.DependencyID(id)
	d.TripID = domain.TripID(tripID)
	d.DependentID = domain.ItemID(dependent)
	d.PrerequisiteID = domain.ItemID(prerequisite)
	d.Type = domain.DependencyType(depType)
	d.Action = domain.ViolationAction(action)
	d.CreatedAt = d.CreatedAt.UTC()
	return d, nil
}
