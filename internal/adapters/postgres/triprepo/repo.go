package triprepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repo is a Postgres implementation of triprepo.Repository.
type Repo struct {
	*store
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{store: &store{db: pool}, pool: pool}
}

// WithinTrip runs fn in one transaction holding a transaction-scoped advisory lock keyed by the trip id.
// The lock serializes writers across processes sharing the database.
func (r *Repo) WithinTrip(ctx context.Context, tripID domain.TripID, fn func(ctx context.Context, s triprepo.Store) error) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(tripID)); err != nil {
			return fmt.Errorf("lock trip: %w", err)
		}
		return fn(ctx, &store{db: tx})
	})
}

// GetPlan reads the whole plan from a single repeatable-read snapshot.
func (r *Repo) GetPlan(ctx context.Context, id domain.TripID) (triprepo.Plan, error) {
	if r.pool == nil {
		return triprepo.Plan{}, errors.New("nil postgres pool")
	}
	var p triprepo.Plan
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		p, err = (&store{db: tx}).GetPlan(ctx, id)
		return err
	})
	return p, err
}

type store struct {
	db querier
}

func (s *store) CreatePlan(ctx context.Context, p triprepo.Plan) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := insertTrip(ctx, tx, p.Trip); err != nil {
			return err
		}
		for _, d := range p.Days {
			if err := insertDay(ctx, tx, d); err != nil {
				return err
			}
		}
		for _, it := range p.Items {
			if err := insertItem(ctx, tx, it); err != nil {
				return err
			}
		}
		for _, d := range p.Dependencies {
			if err := insertDependency(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *store) GetPlan(ctx context.Context, id domain.TripID) (triprepo.Plan, error) {
	t, err := s.GetTrip(ctx, id)
	if err != nil {
		return triprepo.Plan{}, err
	}
	days, err := s.ListDays(ctx, id)
	if err != nil {
		return triprepo.Plan{}, err
	}
	items, err := s.ListItemsByTrip(ctx, id)
	if err != nil {
		return triprepo.Plan{}, err
	}
	deps, err := s.ListDependencies(ctx, id)
	if err != nil {
		return triprepo.Plan{}, err
	}
	return triprepo.Plan{Trip: t, Days: days, Items: items, Dependencies: deps}, nil
}

const tripColumns = `
	id::text, owner_id, copied_from::text, title, origin, province, city,
	start_date, duration_days, budget, travel_style, interests, status,
	total_estimated_cost, created_at, updated_at`

func (s *store) GetTrip(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	tripUUID, ok := parseID(id)
	if !ok {
		return domain.Trip{}, triprepo.ErrTripNotFound
	}
	t, err := scanTrip(s.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, tripUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, triprepo.ErrTripNotFound
		}
		return domain.Trip{}, err
	}
	return t, nil
}

func (s *store) SaveTrip(ctx context.Context, t domain.Trip) error {
	tripUUID, ok := parseID(t.ID)
	if !ok {
		return triprepo.ErrTripNotFound
	}
	copied, err := copiedFromParam(t.CopiedFrom)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE trips SET
			owner_id = $2,
			copied_from = $3,
			title = $4,
			origin = $5,
			province = $6,
			city = $7,
			start_date = $8,
			duration_days = $9,
			budget = $10,
			travel_style = $11,
			interests = $12,
			status = $13,
			total_estimated_cost = $14,
			updated_at = $15
		WHERE id = $1
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
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrTripNotFound
	}
	return nil
}

func (s *store) DeleteTrip(ctx context.Context, id domain.TripID) error {
	tripUUID, ok := parseID(id)
	if !ok {
		return triprepo.ErrTripNotFound
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM trips WHERE id = $1`, tripUUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrTripNotFound
	}
	return nil
}

func (s *store) ListTripsByOwner(ctx context.Context, owner domain.MemberID) ([]domain.Trip, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+tripColumns+`
		FROM trips
		WHERE owner_id = $1
		ORDER BY created_at, id::text
	`, string(owner))
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Trip, error) {
		return scanTrip(row)
	})
}

func (s *store) CreateDays(ctx context.Context, days []domain.TripDay) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, d := range days {
			if err := insertDay(ctx, tx, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *store) GetDay(ctx context.Context, id domain.DayID) (domain.TripDay, error) {
	dayUUID, ok := parseID(id)
	if !ok {
		return domain.TripDay{}, triprepo.ErrDayNotFound
	}
	d, err := scanDay(s.db.QueryRow(ctx, `
		SELECT id::text, trip_id::text, day_index, day_date
		FROM trip_days
		WHERE id = $1
	`, dayUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripDay{}, triprepo.ErrDayNotFound
		}
		return domain.TripDay{}, err
	}
	return d, nil
}

func (s *store) ListDays(ctx context.Context, tripID domain.TripID) ([]domain.TripDay, error) {
	tripUUID, ok := parseID(tripID)
	if !ok {
		return []domain.TripDay{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT id::text, trip_id::text, day_index, day_date
		FROM trip_days
		WHERE trip_id = $1
		ORDER BY day_index
	`, tripUUID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TripDay, error) {
		return scanDay(row)
	})
}

func (s *store) SaveDay(ctx context.Context, d domain.TripDay) error {
	dayUUID, ok := parseID(d.ID)
	if !ok {
		return triprepo.ErrDayNotFound
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE trip_days SET day_index = $2, day_date = $3
		WHERE id = $1
	`, dayUUID, d.Index, dateParam(d.Date))
	if err != nil {
		if postgres.IsConstraintViolation(err, postgres.UniqueViolationCode, "trip_days_trip_index_unique") {
			return fmt.Errorf("day index %d: %w", d.Index, triprepo.ErrAlreadyExists)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrDayNotFound
	}
	return nil
}

func (s *store) DeleteDay(ctx context.Context, id domain.DayID) error {
	dayUUID, ok := parseID(id)
	if !ok {
		return triprepo.ErrDayNotFound
	}
	// Items, their edges and votes cascade.
	tag, err := s.db.Exec(ctx, `DELETE FROM trip_days WHERE id = $1`, dayUUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrDayNotFound
	}
	return nil
}

func (s *store) CreateItems(ctx context.Context, items []domain.TripItem) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, it := range items {
			if err := insertItem(ctx, tx, it); err != nil {
				return err
			}
		}
		return nil
	})
}

const itemColumns = `
	i.id::text, i.trip_id::text, i.day_id::text, i.kind, i.place_ref, i.title,
	i.category, i.address, i.latitude, i.longitude, i.notes, i.start_at, i.end_at,
	i.sort_order, i.locked, i.price_tier, i.estimated_cost`

func (s *store) GetItem(ctx context.Context, id domain.ItemID) (domain.TripItem, error) {
	itemUUID, ok := parseID(id)
	if !ok {
		return domain.TripItem{}, triprepo.ErrItemNotFound
	}
	it, err := scanItem(s.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM trip_items i WHERE i.id = $1`, itemUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TripItem{}, triprepo.ErrItemNotFound
		}
		return domain.TripItem{}, err
	}
	return it, nil
}

func (s *store) SaveItem(ctx context.Context, it domain.TripItem) error {
	itemUUID, ok := parseID(it.ID)
	if !ok {
		return triprepo.ErrItemNotFound
	}
	dayUUID, ok := parseID(it.DayID)
	if !ok {
		return triprepo.ErrDayNotFound
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE trip_items SET
			day_id = $2,
			kind = $3,
			place_ref = $4,
			title = $5,
			category = $6,
			address = $7,
			latitude = $8,
			longitude = $9,
			notes = $10,
			start_at = $11,
			end_at = $12,
			sort_order = $13,
			locked = $14,
			price_tier = $15,
			estimated_cost = $16
		WHERE id = $1
	`,
		itemUUID,
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
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return triprepo.ErrDayNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrItemNotFound
	}
	return nil
}

func (s *store) DeleteItem(ctx context.Context, id domain.ItemID) error {
	itemUUID, ok := parseID(id)
	if !ok {
		return triprepo.ErrItemNotFound
	}
	// Edges and votes go with the item through ON DELETE CASCADE.
	tag, err := s.db.Exec(ctx, `DELETE FROM trip_items WHERE id = $1`, itemUUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrItemNotFound
	}
	return nil
}

func (s *store) ListItemsByDay(ctx context.Context, dayID domain.DayID) ([]domain.TripItem, error) {
	dayUUID, ok := parseID(dayID)
	if !ok {
		return []domain.TripItem{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM trip_items i
		WHERE i.day_id = $1
		ORDER BY i.sort_order, i.id::text
	`, dayUUID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TripItem, error) {
		return scanItem(row)
	})
}

func (s *store) ListItemsByTrip(ctx context.Context, tripID domain.TripID) ([]domain.TripItem, error) {
	tripUUID, ok := parseID(tripID)
	if !ok {
		return []domain.TripItem{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+itemColumns+`
		FROM trip_items i
		JOIN trip_days d ON d.id = i.day_id
		WHERE i.trip_id = $1
		ORDER BY d.day_index, i.sort_order, i.id::text
	`, tripUUID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TripItem, error) {
		return scanItem(row)
	})
}

func (s *store) CreateDependency(ctx context.Context, d domain.ItemDependency) error {
	// A savepoint keeps an enclosing unit of work usable after a constraint violation.
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return insertDependency(ctx, tx, d)
	})
}

const dependencyColumns = `
	id::text, trip_id::text, dependent_id::text, prerequisite_id::text,
	dependency_type, violation_action, created_at`

func (s *store) GetDependency(ctx context.Context, id domain.DependencyID) (domain.ItemDependency, error) {
	depUUID, ok := parseID(id)
	if !ok {
		return domain.ItemDependency{}, triprepo.ErrDependencyNotFound
	}
	d, err := scanDependency(s.db.QueryRow(ctx, `SELECT `+dependencyColumns+` FROM item_dependencies WHERE id = $1`, depUUID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ItemDependency{}, triprepo.ErrDependencyNotFound
		}
		return domain.ItemDependency{}, err
	}
	return d, nil
}

func (s *store) DeleteDependency(ctx context.Context, id domain.DependencyID) error {
	depUUID, ok := parseID(id)
	if !ok {
		return triprepo.ErrDependencyNotFound
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM item_dependencies WHERE id = $1`, depUUID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return triprepo.ErrDependencyNotFound
	}
	return nil
}

func (s *store) ListDependencies(ctx context.Context, tripID domain.TripID) ([]domain.ItemDependency, error) {
	tripUUID, ok := parseID(tripID)
	if !ok {
		return []domain.ItemDependency{}, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+dependencyColumns+`
		FROM item_dependencies
		WHERE trip_id = $1
		ORDER BY created_at, id::text
	`, tripUUID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ItemDependency, error) {
		return scanDependency(row)
	})
}
