// Package trips implements trip generation and the mutations that keep a trip's
// schedule and dependency graph consistent.
//
// Every mutation of an existing trip runs inside triprepo.Repository.WithinTrip,
// re-reads what it needs under the trip's lock and writes through the unit of
// work, so a failed call leaves the trip unchanged.
package trips

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/candidates"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/logging"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/tracing"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/placesupply"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

const spanPrefix = "planner.trips"

type Service struct {
	trips  triprepo.Repository
	votes  voterepo.Repository
	supply placesupply.Supplier
	pool   *candidates.Builder
	clock  clock.Clock
	log    logging.Logger
	tracer trace.Tracer

	newID func() string
}

type options struct {
	ranker placesupply.Ranker
	log    logging.Logger
	tracer trace.Tracer
}

type Option func(*options)

// WithRanker re-orders generation candidates through r.
func WithRanker(r placesupply.Ranker) Option {
	return func(o *options) { o.ranker = r }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

func NewService(tripsRepo triprepo.Repository, votesRepo voterepo.Repository, supply placesupply.Supplier, clk clock.Clock, opts ...Option) *Service {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.OrDiscard(o.log)
	if o.tracer == nil {
		o.tracer = tracing.Tracer("github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips")
	}

	builderOpts := []candidates.Option{candidates.WithLogger(log)}
	if o.ranker != nil {
		builderOpts = append(builderOpts, candidates.WithRanker(o.ranker))
	}

	return &Service{
		trips:  tripsRepo,
		votes:  votesRepo,
		supply: supply,
		pool:   candidates.NewBuilder(supply, builderOpts...),
		clock:  clk,
		log:    log,
		tracer: o.tracer,
		newID:  uuid.NewString,
	}
}

// SetNewIDForTest overrides id generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewIDForTest(fn func() string) {
	if fn != nil {
		s.newID = fn
	}
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracing.Start(ctx, s.tracer, spanPrefix, op, attrs...)
}

// authorize allows any caller on a guest trip and only the owner on a claimed one.
// An empty caller is an anonymous guest.
func authorize(t domain.Trip, caller domain.MemberID) error {
	if t.IsGuest() || t.IsOwnedBy(caller) {
		return nil
	}
	return ownershipConflict(t.ID)
}

func ownerOf(caller domain.MemberID) *domain.MemberID {
	if caller == "" {
		return nil
	}
	c := caller
	return &c
}

// mutateTrip runs fn with the trip loaded under its lock after checking the caller may change it.
func (s *Service) mutateTrip(ctx context.Context, caller domain.MemberID, tripID domain.TripID, fn func(ctx context.Context, st triprepo.Store, t *domain.Trip) error) error {
	return s.trips.WithinTrip(ctx, tripID, func(ctx context.Context, st triprepo.Store) error {
		t, err := loadTrip(ctx, st, tripID)
		if err != nil {
			return err
		}
		if err := authorize(t, caller); err != nil {
			return err
		}
		return fn(ctx, st, &t)
	})
}

// tripOfItem resolves the trip that owns an item so its lock can be taken.
// The item is read again under the lock.
func (s *Service) tripOfItem(ctx context.Context, itemID domain.ItemID) (domain.TripID, error) {
	it, err := loadItem(ctx, s.trips, itemID)
	if err != nil {
		return "", err
	}
	return it.TripID, nil
}

// touch bumps the trip's UpdatedAt and, when recompute is set, its cost total.
func (s *Service) touch(ctx context.Context, st triprepo.Store, t *domain.Trip, recompute bool) error {
	if recompute {
		total, err := sumCosts(ctx, st, t.ID)
		if err != nil {
			return err
		}
		t.TotalEstimatedCost = &total
	}
	t.UpdatedAt = s.clock.Now().UTC()
	return st.SaveTrip(ctx, *t)
}

func sumCosts(ctx context.Context, st triprepo.Store, tripID domain.TripID) (int64, error) {
	items, err := st.ListItemsByTrip(ctx, tripID)
	if err != nil {
		return 0, err
	}
	return totalCost(items), nil
}

func totalCost(items []domain.TripItem) int64 {
	var total int64
	for _, it := range items {
		total += it.EstimatedCost
	}
	return total
}

func loadTrip(ctx context.Context, st triprepo.Store, id domain.TripID) (domain.Trip, error) {
	t, err := st.GetTrip(ctx, id)
	if err != nil {
		if errors.Is(err, triprepo.ErrTripNotFound) {
			return domain.Trip{}, TripNotFound(id)
		}
		return domain.Trip{}, err
	}
	return t, nil
}

func loadDay(ctx context.Context, st triprepo.Store, id domain.DayID) (domain.TripDay, error) {
	d, err := st.GetDay(ctx, id)
	if err != nil {
		if errors.Is(err, triprepo.ErrDayNotFound) {
			return domain.TripDay{}, DayNotFound(id)
		}
		return domain.TripDay{}, err
	}
	return d, nil
}

func loadItem(ctx context.Context, st triprepo.Store, id domain.ItemID) (domain.TripItem, error) {
	it, err := st.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, triprepo.ErrItemNotFound) {
			return domain.TripItem{}, ItemNotFound(id)
		}
		return domain.TripItem{}, err
	}
	return it, nil
}

func loadDependency(ctx context.Context, st triprepo.Store, id domain.DependencyID) (domain.ItemDependency, error) {
	d, err := st.GetDependency(ctx, id)
	if err != nil {
		if errors.Is(err, triprepo.ErrDependencyNotFound) {
			return domain.ItemDependency{}, DependencyNotFound(id)
		}
		return domain.ItemDependency{}, err
	}
	return d, nil
}

// dropVotes removes votes for deleted items. Votes are outside the trip's unit of work,
// so a failure here is logged rather than undoing the delete.
func (s *Service) dropVotes(ctx context.Context, itemIDs []domain.ItemID) {
	if s.votes == nil || len(itemIDs) == 0 {
		return
	}
	if err := s.votes.DeleteByItems(ctx, itemIDs); err != nil {
		s.log.Warn(ctx, "vote cleanup failed", "items", len(itemIDs), "err", err)
	}
}
