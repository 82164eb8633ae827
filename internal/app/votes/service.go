// Package votes records anonymous up/down votes on trip items.
//
// Votes do not touch the schedule, so they are written with an upsert and never take the trip lock.
package votes

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/tracing"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

const spanPrefix = "planner.votes"

// MaxSessionIDLength bounds the opaque session identifier.
const MaxSessionIDLength = 128

type Service struct {
	trips  triprepo.Store
	votes  voterepo.Repository
	clock  clock.Clock
	tracer trace.Tracer
}

func NewService(tripsStore triprepo.Store, votesRepo voterepo.Repository, clk clock.Clock) *Service {
	return &Service{
		trips:  tripsStore,
		votes:  votesRepo,
		clock:  clk,
		tracer: tracing.Tracer("github.com/Overland-East-Bay/itinerary-planner-api/internal/app/votes"),
	}
}

func normalizeSession(s domain.SessionID) (domain.SessionID, error) {
	v := domain.SessionID(strings.TrimSpace(string(s)))
	if v == "" {
		return "", trips.Validation("invalid session", map[string]any{"sessionId": "required"})
	}
	if len(v) > MaxSessionIDLength {
		return "", trips.Validation("invalid session", map[string]any{"sessionId": "too long"})
	}
	return v, nil
}

func (s *Service) requireItem(ctx context.Context, itemID domain.ItemID) error {
	if _, err := s.trips.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, triprepo.ErrItemNotFound) {
			return trips.ItemNotFound(itemID)
		}
		return err
	}
	return nil
}

// Cast records the session's vote on an item. Voting again overwrites the earlier vote.
func (s *Service) Cast(ctx context.Context, itemID domain.ItemID, session domain.SessionID, upvote bool) (_ domain.VoteSummary, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, spanPrefix, "Cast", attribute.String(tracing.AttrItemID, string(itemID)))
	defer func() { tracing.End(span, err) }()

	session, err = normalizeSession(session)
	if err != nil {
		return domain.VoteSummary{}, err
	}
	if err := s.requireItem(ctx, itemID); err != nil {
		return domain.VoteSummary{}, err
	}
	if err := s.votes.Upsert(ctx, domain.Vote{
		ItemID:    itemID,
		SessionID: session,
		Upvote:    upvote,
		UpdatedAt: s.clock.Now().UTC(),
	}); err != nil {
		return domain.VoteSummary{}, err
	}
	return s.summary(ctx, itemID)
}

// Retract removes the session's vote. Retracting a vote that was never cast is not an error.
func (s *Service) Retract(ctx context.Context, itemID domain.ItemID, session domain.SessionID) (_ domain.VoteSummary, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, spanPrefix, "Retract", attribute.String(tracing.AttrItemID, string(itemID)))
	defer func() { tracing.End(span, err) }()

	session, err = normalizeSession(session)
	if err != nil {
		return domain.VoteSummary{}, err
	}
	if err := s.requireItem(ctx, itemID); err != nil {
		return domain.VoteSummary{}, err
	}
	if err := s.votes.Delete(ctx, itemID, session); err != nil {
		return domain.VoteSummary{}, err
	}
	return s.summary(ctx, itemID)
}

func (s *Service) Summary(ctx context.Context, itemID domain.ItemID) (domain.VoteSummary, error) {
	if err := s.requireItem(ctx, itemID); err != nil {
		return domain.VoteSummary{}, err
	}
	return s.summary(ctx, itemID)
}

// MyVote returns the session's vote on an item, if any.
func (s *Service) MyVote(ctx context.Context, itemID domain.ItemID, session domain.SessionID) (*domain.Vote, error) {
	session, err := normalizeSession(session)
	if err != nil {
		return nil, err
	}
	v, err := s.votes.Get(ctx, itemID, session)
	if err != nil {
		if errors.Is(err, voterepo.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (s *Service) summary(ctx context.Context, itemID domain.ItemID) (domain.VoteSummary, error) {
	m, err := s.votes.Summarize(ctx, []domain.ItemID{itemID})
	if err != nil {
		return domain.VoteSummary{}, err
	}
	sum, ok := m[itemID]
	if !ok {
		return domain.VoteSummary{ItemID: itemID}, nil
	}
	return sum, nil
}

// SummaryForTrip returns one summary per item of the trip, in schedule order, including items without votes.
func (s *Service) SummaryForTrip(ctx context.Context, tripID domain.TripID) (_ []domain.VoteSummary, err error) {
	ctx, span := tracing.Start(ctx, s.tracer, spanPrefix, "SummaryForTrip", attribute.String(tracing.AttrTripID, string(tripID)))
	defer func() { tracing.End(span, err) }()

	if _, err := s.trips.GetTrip(ctx, tripID); err != nil {
		if errors.Is(err, triprepo.ErrTripNotFound) {
			return nil, trips.TripNotFound(tripID)
		}
		return nil, err
	}
	items, err := s.trips.ListItemsByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.ItemID, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	m, err := s.votes.Summarize(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.VoteSummary, 0, len(ids))
	for _, id := range ids {
		sum, ok := m[id]
		if !ok {
			sum = domain.VoteSummary{ItemID: id}
		}
		out = append(out, sum)
	}
	return out, nil
}
