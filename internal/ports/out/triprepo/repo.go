package triprepo

import (
	"context"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

// Plan is a trip together with everything it owns.
// It is the unit written by generation and cloning, and the unit read for display.
type Plan struct {
	Trip domain.Trip
	// Days are ordered by index.
	Days []domain.TripDay
	// Items are ordered by day index, then sort order.
	Items []domain.TripItem
	// Dependencies are ordered by creation time.
	Dependencies []domain.ItemDependency
}

// ItemsByDay groups the plan's items by day, preserving order.
func (p Plan) ItemsByDay() map[domain.DayID][]domain.TripItem {
	out := make(map[domain.DayID][]domain.TripItem, len(p.Days))
	for _, it := range p.Items {
		out[it.DayID] = append(out[it.DayID], it)
	}
	return out
}

// Store provides access to persisted trips and the graph they own.
//
// Result ordering expectations:
// - ListDays orders by day index.
// - ListItemsByDay orders by sort order, then item ID.
// - ListItemsByTrip orders by day index, then sort order.
// - ListDependencies orders by creation time, then ID.
type Store interface {
	// CreatePlan writes a trip with all of its days, items and dependencies.
	// Nothing is visible to readers until every row is written.
	CreatePlan(ctx context.Context, p Plan) error
	GetPlan(ctx context.Context, id domain.TripID) (Plan, error)

	GetTrip(ctx context.Context, id domain.TripID) (domain.Trip, error)
	SaveTrip(ctx context.Context, t domain.Trip) error
	// DeleteTrip removes the trip and everything it owns.
	DeleteTrip(ctx context.Context, id domain.TripID) error
	ListTripsByOwner(ctx context.Context, owner domain.MemberID) ([]domain.Trip, error)

	CreateDays(ctx context.Context, days []domain.TripDay) error
	GetDay(ctx context.Context, id domain.DayID) (domain.TripDay, error)
	ListDays(ctx context.Context, tripID domain.TripID) ([]domain.TripDay, error)
	// SaveDay rewrites a day's index and date. Returns ErrAlreadyExists when another day of the trip holds the index.
	SaveDay(ctx context.Context, d domain.TripDay) error
	// DeleteDay removes the day, its items and every dependency that references them.
	DeleteDay(ctx context.Context, id domain.DayID) error

	CreateItems(ctx context.Context, items []domain.TripItem) error
	GetItem(ctx context.Context, id domain.ItemID) (domain.TripItem, error)
	SaveItem(ctx context.Context, it domain.TripItem) error
	// DeleteItem removes the item and every dependency that references it.
	DeleteItem(ctx context.Context, id domain.ItemID) error
	ListItemsByDay(ctx context.Context, dayID domain.DayID) ([]domain.TripItem, error)
	ListItemsByTrip(ctx context.Context, tripID domain.TripID) ([]domain.TripItem, error)

	// CreateDependency returns ErrDuplicateDependency when the ordered pair already exists.
	CreateDependency(ctx context.Context, d domain.ItemDependency) error
	GetDependency(ctx context.Context, id domain.DependencyID) (domain.ItemDependency, error)
	DeleteDependency(ctx context.Context, id domain.DependencyID) error
	ListDependencies(ctx context.Context, tripID domain.TripID) ([]domain.ItemDependency, error)
}

// Repository is a Store that can also run a serialized unit of work for one trip.
type Repository interface {
	Store

	// WithinTrip runs fn with exclusive write access to one trip's graph.
	// Concurrent calls for the same trip run one at a time; calls for different trips do not block each other.
	// Writes made through the Store passed to fn are applied together when fn returns nil and discarded otherwise.
	// fn must not use the outer Repository.
	WithinTrip(ctx context.Context, tripID domain.TripID, fn func(ctx context.Context, s Store) error) error
}
