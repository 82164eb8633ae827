package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// TripRepo is a SQLite implementation of triprepo.Repository.
type TripRepo struct {
	*tripStore
	db *sqlx.DB
}

func NewTripRepo(db *sqlx.DB) *TripRepo {
	return &TripRepo{tripStore: &tripStore{db: db}, db: db}
}

// WithinTrip runs fn in one transaction. The database has a single connection,
// so units of work run one at a time.
func (r *TripRepo) WithinTrip(ctx context.Context, tripID domain.TripID, fn func(ctx context.Context, s triprepo.Store) error) error {
	_ = tripID
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &tripStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// tripStore runs against the pool, or against tx inside a unit of work.
type tripStore struct {
	db *sqlx.DB
	tx *sqlx.Tx
}

func (s *tripStore) q() sqlx.ExtContext {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// atomically runs fn in a transaction unless one is already open.
func (s *tripStore) atomically(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if s.tx != nil {
		return fn(s.tx)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *tripStore) CreatePlan(ctx context.Context, p triprepo.Plan) error {
	return s.atomically(ctx, func(q *sqlx.Tx) error {
		if err := insertTrip(ctx, q, p.Trip); err != nil {
			return err
		}
		for _, d := range p.Days {
			if err := insertDay(ctx, q, d); err != nil {
				return err
			}
		}
		for _, it := range p.Items {
			if err := insertItem(ctx, q, it); err != nil {
				return err
			}
		}
		for _, d := range p.Dependencies {
			if err := insertDependency(ctx, q, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *tripStore) GetPlan(ctx context.Context, id domain.TripID) (triprepo.Plan, error) {
	var p triprepo.Plan
	err := s.atomically(ctx, func(tx *sqlx.Tx) error {
		read := &tripStore{tx: tx}
		t, err := read.GetTrip(ctx, id)
		if err != nil {
			return err
		}
		days, err := read.ListDays(ctx, id)
		if err != nil {
			return err
		}
		items, err := read.ListItemsByTrip(ctx, id)
		if err != nil {
			return err
		}
		deps, err := read.ListDependencies(ctx, id)
		if err != nil {
			return err
		}
		p = triprepo.Plan{Trip: t, Days: days, Items: items, Dependencies: deps}
		return nil
	})
	return p, err
}

func (s *tripStore) GetTrip(ctx context.Context, id domain.TripID) (domain.Trip, error) {
	var row tripRow
	if err := sqlx.GetContext(ctx, s.q(), &row, `SELECT * FROM trips WHERE id = ?`, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Trip{}, triprepo.ErrTripNotFound
		}
		return domain.Trip{}, fmt.Errorf("getting trip %s: %w", id, err)
	}
	return row.toDomain()
}

func (s *tripStore) SaveTrip(ctx context.Context, t domain.Trip) error {
	row, err := newTripRow(t)
	if err != nil {
		return err
	}
	res, err := sqlx.NamedExecContext(ctx, s.q(), `
		UPDATE trips SET
			owner_id = :owner_id,
			copied_from = :copied_from,
			title = :title,
			origin = :origin,
			province = :province,
			city = :city,
			start_date = :start_date,
			duration_days = :duration_days,
			budget = :budget,
			travel_style = :travel_style,
			interests = :interests,
			status = :status,
			total_estimated_cost = :total_estimated_cost,
			updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return fmt.Errorf("saving trip %s: %w", t.ID, err)
	}
	return requireAffected(res, triprepo.ErrTripNotFound)
}

func (s *tripStore) DeleteTrip(ctx context.Context, id domain.TripID) error {
	res, err := s.q().ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("deleting trip %s: %w", id, err)
	}
	return requireAffected(res, triprepo.ErrTripNotFound)
}

func (s *tripStore) ListTripsByOwner(ctx context.Context, owner domain.MemberID) ([]domain.Trip, error) {
	var rows []tripRow
	if err := sqlx.SelectContext(ctx, s.q(), &rows, `
		SELECT * FROM trips
		WHERE owner_id = ?
		ORDER BY created_at, id`, string(owner)); err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	return convertRows(rows, tripRow.toDomain)
}

func (s *tripStore) CreateDays(ctx context.Context, days []domain.TripDay) error {
	return s.atomically(ctx, func(q *sqlx.Tx) error {
		for _, d := range days {
			if err := insertDay(ctx, q, d); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *tripStore) GetDay(ctx context.Context, id domain.DayID) (domain.TripDay, error) {
	var row dayRow
	if err := sqlx.GetContext(ctx, s.q(), &row, `SELECT * FROM trip_days WHERE id = ?`, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TripDay{}, triprepo.ErrDayNotFound
		}
		return domain.TripDay{}, fmt.Errorf("getting day %s: %w", id, err)
	}
	return row.toDomain()
}

func (s *tripStore) ListDays(ctx context.Context, tripID domain.TripID) ([]domain.TripDay, error) {
	var rows []dayRow
	if err := sqlx.SelectContext(ctx, s.q(), &rows, `
		SELECT * FROM trip_days
		WHERE trip_id = ?
		ORDER BY day_index`, string(tripID)); err != nil {
		return nil, fmt.Errorf("listing days: %w", err)
	}
	return convertRows(rows, dayRow.toDomain)
}

func (s *tripStore) SaveDay(ctx context.Context, d domain.TripDay) error {
	res, err := sqlx.NamedExecContext(ctx, s.q(), `
		UPDATE trip_days SET day_index = :day_index, day_date = :day_date
		WHERE id = :id`, newDayRow(d))
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return fmt.Errorf("day index %d: %w", d.Index, triprepo.ErrAlreadyExists)
		}
		return fmt.Errorf("saving day %s: %w", d.ID, err)
	}
	return requireAffected(res, triprepo.ErrDayNotFound)
}

func (s *tripStore) DeleteDay(ctx context.Context, id domain.DayID) error {
	// Items, their edges and votes cascade.
	res, err := s.q().ExecContext(ctx, `DELETE FROM trip_days WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("deleting day %s: %w", id, err)
	}
	return requireAffected(res, triprepo.ErrDayNotFound)
}

func (s *tripStore) CreateItems(ctx context.Context, items []domain.TripItem) error {
	return s.atomically(ctx, func(q *sqlx.Tx) error {
		for _, it := range items {
			if err := insertItem(ctx, q, it); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *tripStore) GetItem(ctx context.Context, id domain.ItemID) (domain.TripItem, error) {
	var row itemRow
	if err := sqlx.GetContext(ctx, s.q(), &row, `SELECT * FROM trip_items WHERE id = ?`, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TripItem{}, triprepo.ErrItemNotFound
		}
		return domain.TripItem{}, fmt.Errorf("getting item %s: %w", id, err)
	}
	return row.toDomain()
}

func (s *tripStore) SaveItem(ctx context.Context, it domain.TripItem) error {
	res, err := sqlx.NamedExecContext(ctx, s.q(), `
		UPDATE trip_items SET
			day_id = :day_id,
			kind = :kind,
			place_ref = :place_ref,
			title = :title,
			category = :category,
			address = :address,
			latitude = :latitude,
			longitude = :longitude,
			notes = :notes,
			start_at = :start_at,
			end_at = :end_at,
			sort_order = :sort_order,
			locked = :locked,
			price_tier = :price_tier,
			estimated_cost = :estimated_cost
		WHERE id = :id`, newItemRow(it))
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return triprepo.ErrDayNotFound
		}
		return fmt.Errorf("saving item %s: %w", it.ID, err)
	}
	return requireAffected(res, triprepo.ErrItemNotFound)
}

func (s *tripStore) DeleteItem(ctx context.Context, id domain.ItemID) error {
	// Edges and votes go with the item through ON DELETE CASCADE.
	res, err := s.q().ExecContext(ctx, `DELETE FROM trip_items WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("deleting item %s: %w", id, err)
	}
	return requireAffected(res, triprepo.ErrItemNotFound)
}

func (s *tripStore) ListItemsByDay(ctx context.Context, dayID domain.DayID) ([]domain.TripItem, error) {
	var rows []itemRow
	if err := sqlx.SelectContext(ctx, s.q(), &rows, `
		SELECT * FROM trip_items
		WHERE day_id = ?
		ORDER BY sort_order, id`, string(dayID)); err != nil {
		return nil, fmt.Errorf("listing day items: %w", err)
	}
	return convertRows(rows, itemRow.toDomain)
}

func (s *tripStore) ListItemsByTrip(ctx context.Context, tripID domain.TripID) ([]domain.TripItem, error) {
	var rows []itemRow
	if err := sqlx.SelectContext(ctx, s.q(), &rows, `
		SELECT i.* FROM trip_items i
		JOIN trip_days d ON d.id = i.day_id
		WHERE i.trip_id = ?
		ORDER BY d.day_index, i.sort_order, i.id`, string(tripID)); err != nil {
		return nil, fmt.Errorf("listing trip items: %w", err)
	}
	return convertRows(rows, itemRow.toDomain)
}

func (s *tripStore) CreateDependency(ctx context.Context, d domain.ItemDependency) error {
	return insertDependency(ctx, s.q(), d)
}

func (s *tripStore) GetDependency(ctx context.Context, id domain.DependencyID) (domain.ItemDependency, error) {
	var row dependencyRow
	if err := sqlx.GetContext(ctx, s.q(), &row, `SELECT * FROM item_dependencies WHERE id = ?`, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ItemDependency{}, triprepo.ErrDependencyNotFound
		}
		return domain.ItemDependency{}, fmt.Errorf("getting dependency %s: %w", id, err)
	}
	return row.toDomain()
}

func (s *tripStore) DeleteDependency(ctx context.Context, id domain.DependencyID) error {
	res, err := s.q().ExecContext(ctx, `DELETE FROM item_dependencies WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("deleting dependency %s: %w", id, err)
	}
	return requireAffected(res, triprepo.ErrDependencyNotFound)
}

func (s *tripStore) ListDependencies(ctx context.Context, tripID domain.TripID) ([]domain.ItemDependency, error) {
	var rows []dependencyRow
	if err := sqlx.SelectContext(ctx, s.q(), &rows, `
		SELECT * FROM item_dependencies
		WHERE trip_id = ?
		ORDER BY created_at, id`, string(tripID)); err != nil {
		return nil, fmt.Errorf("listing dependencies: %w", err)
	}
	return convertRows(rows, dependencyRow.toDomain)
}

func insertTrip(ctx context.Context, q sqlx.ExtContext, t domain.Trip) error {
	row, err := newTripRow(t)
	if err != nil {
		return err
	}
	_, err = sqlx.NamedExecContext(ctx, q, `
		INSERT INTO trips (
			id, owner_id, copied_from, title, origin, province, city,
			start_date, duration_days, budget, travel_style, interests, status,
			total_estimated_cost, created_at, updated_at
		) VALUES (
			:id, :owner_id, :copied_from, :title, :origin, :province, :city,
			:start_date, :duration_days, :budget, :travel_style, :interests, :status,
			:total_estimated_cost, :created_at, :updated_at
		)`, row)
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return triprepo.ErrAlreadyExists
		}
		return fmt.Errorf("inserting trip %s: %w", t.ID, err)
	}
	return nil
}

func insertDay(ctx context.Context, q sqlx.ExtContext, d domain.TripDay) error {
	_, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO trip_days (id, trip_id, day_index, day_date)
		VALUES (:id, :trip_id, :day_index, :day_date)`, newDayRow(d))
	if err != nil {
		switch constraintCode(err) {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return triprepo.ErrAlreadyExists
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return triprepo.ErrTripNotFound
		}
		return fmt.Errorf("inserting day %s: %w", d.ID, err)
	}
	return nil
}

func insertItem(ctx context.Context, q sqlx.ExtContext, it domain.TripItem) error {
	_, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO trip_items (
			id, trip_id, day_id, kind, place_ref, title, category, address,
			latitude, longitude, notes, start_at, end_at, sort_order, locked,
			price_tier, estimated_cost
		) VALUES (
			:id, :trip_id, :day_id, :kind, :place_ref, :title, :category, :address,
			:latitude, :longitude, :notes, :start_at, :end_at, :sort_order, :locked,
			:price_tier, :estimated_cost
		)`, newItemRow(it))
	if err != nil {
		switch constraintCode(err) {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return triprepo.ErrAlreadyExists
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return triprepo.ErrDayNotFound
		}
		return fmt.Errorf("inserting item %s: %w", it.ID, err)
	}
	return nil
}

func insertDependency(ctx context.Context, q sqlx.ExtContext, d domain.ItemDependency) error {
	_, err := sqlx.NamedExecContext(ctx, q, `
		INSERT INTO item_dependencies (
			id, trip_id, dependent_id, prerequisite_id, dependency_type, violation_action, created_at
		) VALUES (
			:id, :trip_id, :dependent_id, :prerequisite_id, :dependency_type, :violation_action, :created_at
		)`, newDependencyRow(d))
	if err != nil {
		switch constraintCode(err) {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return triprepo.ErrAlreadyExists
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return triprepo.ErrDuplicateDependency
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return triprepo.ErrItemNotFound
		}
		return fmt.Errorf("inserting dependency %s: %w", d.ID, err)
	}
	return nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
