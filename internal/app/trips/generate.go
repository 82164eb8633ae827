package trips

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/candidates"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/itinerary"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/tracing"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

const (
	// DefaultDurationDays applies when a generation request has no end date.
	DefaultDurationDays = 3
	MaxDurationDays     = 30
)

type generateParams struct {
	title     string
	origin    string
	province  string
	city      string
	interests []domain.Interest
	budget    domain.BudgetTier
	style     domain.TravelStyle
	start     time.Time
	days      int
}

func validateGenerate(in GenerateInput) (generateParams, error) {
	p := generateParams{
		origin:    domain.NormalizeTitle(in.Origin),
		province:  domain.NormalizeTitle(in.Province),
		city:      domain.NormalizeTitle(in.City),
		interests: domain.ParseInterests(in.Interests),
		budget:    domain.ParseBudgetTier(in.Budget),
		style:     domain.TravelStyle(strings.ToUpper(strings.TrimSpace(in.TravelStyle))),
	}
	if p.province == "" {
		return p, Validation("invalid province", map[string]any{"province": "required"})
	}
	if p.budget == "" {
		p.budget = domain.BudgetModerate
	}
	if !p.budget.Valid() {
		return p, Validation("invalid budget", map[string]any{"budget": "must be ECONOMY, MODERATE or LUXURY"})
	}
	if p.style == "" {
		p.style = domain.TravelStyleSolo
	}
	if !p.style.Valid() {
		return p, Validation("invalid travelStyle", map[string]any{"travelStyle": "must be SOLO, COUPLE, FAMILY, FRIENDS or BUSINESS"})
	}
	if in.StartDate.IsZero() {
		return p, Validation("invalid startDate", map[string]any{"startDate": "required"})
	}
	p.start = domain.DateOnly(in.StartDate)

	p.days = DefaultDurationDays
	if in.EndDate != nil {
		end := domain.DateOnly(*in.EndDate)
		if end.Before(p.start) {
			return p, Validation("invalid date range", map[string]any{"endDate": "must be on or after startDate"})
		}
		p.days = int(end.Sub(p.start).Hours()/24) + 1
	}
	if p.days > MaxDurationDays {
		return p, Validation("trip too long", map[string]any{"endDate": "trip may span at most 30 days"})
	}

	p.title = domain.NormalizeTitle(in.Title)
	if p.title == "" {
		p.title = domain.DefaultTripTitle(p.province, p.city)
	}
	return p, nil
}

// Generate plans a new trip and writes it with one CreatePlan, so readers never see a partial trip.
// The trip is owned by caller unless caller is empty.
func (s *Service) Generate(ctx context.Context, caller domain.MemberID, in GenerateInput) (_ Itinerary, err error) {
	ctx, span := s.start(ctx, "Generate", attribute.String("planner.province", in.Province))
	defer func() { tracing.End(span, err) }()

	p, err := validateGenerate(in)
	if err != nil {
		return Itinerary{}, err
	}

	pool, err := s.pool.Build(ctx, candidates.Request{
		Province:  p.province,
		City:      p.city,
		Interests: p.interests,
		Budget:    p.budget,
		Days:      p.days,
	})
	if err != nil {
		return Itinerary{}, err
	}
	if pool.Empty() {
		s.log.Info(ctx, "no candidates for trip; generating empty schedule", "province", p.province, "city", p.city)
	}

	var cursor itinerary.Cursor
	sched := itinerary.Allocate(p.start, p.days, pool, &cursor)

	plan := s.planFromSchedule(caller, p, sched)
	span.SetAttributes(attribute.String(tracing.AttrTripID, string(plan.Trip.ID)))

	if err := s.trips.CreatePlan(ctx, plan); err != nil {
		return Itinerary{}, err
	}
	s.log.Info(ctx, "trip generated", "trip_id", plan.Trip.ID, "days", len(plan.Days), "items", len(plan.Items))
	return itineraryFromPlan(plan), nil
}

func (s *Service) planFromSchedule(caller domain.MemberID, p generateParams, sched itinerary.Plan) triprepo.Plan {
	now := s.clock.Now().UTC()
	total := sched.TotalCost

	trip := domain.Trip{
		ID:                 domain.TripID(s.newID()),
		OwnerID:            ownerOf(caller),
		Title:              p.title,
		Origin:             p.origin,
		Province:           p.province,
		City:               p.city,
		StartDate:          p.start,
		DurationDays:       p.days,
		Budget:             p.budget,
		TravelStyle:        p.style,
		Interests:          p.interests,
		Status:             domain.TripStatusDraft,
		TotalEstimatedCost: &total,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	plan := triprepo.Plan{Trip: trip}
	for _, d := range sched.Days {
		day := domain.TripDay{
			ID:     domain.DayID(s.newID()),
			TripID: trip.ID,
			Index:  d.Index,
			Date:   d.Date,
		}
		plan.Days = append(plan.Days, day)
		for _, pi := range d.Items {
			plan.Items = append(plan.Items, domain.TripItem{
				ID:            domain.ItemID(s.newID()),
				TripID:        trip.ID,
				DayID:         day.ID,
				Kind:          pi.Kind,
				PlaceRef:      pi.Place.ID,
				Title:         pi.Place.Title,
				Category:      pi.Place.Category,
				Address:       pi.Place.Address,
				Lat:           copyFloat(pi.Place.Lat),
				Lng:           copyFloat(pi.Place.Lng),
				StartAt:       pi.StartAt,
				EndAt:         pi.EndAt,
				SortOrder:     pi.SortOrder,
				PriceTier:     pi.Place.PriceTier,
				EstimatedCost: pi.Cost,
			})
		}
	}
	return plan
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
