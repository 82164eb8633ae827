package trips

import (
	"time"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted)
// - specified as null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// GenerateInput describes the trip to plan. Dates are calendar dates; any time of day is ignored.
type GenerateInput struct {
	Title     string
	Origin    string
	Province  string
	City      string
	Interests []string
	// Budget defaults to MODERATE.
	Budget string
	// TravelStyle defaults to SOLO.
	TravelStyle string
	StartDate   time.Time
	// EndDate is inclusive. When nil the trip lasts DefaultDurationDays.
	EndDate *time.Time
}

// UpdateItemInput patches an item. Title, StartAt, EndAt and EstimatedCost cannot be null.
// A null Latitude or Longitude clears both coordinates.
type UpdateItemInput struct {
	Title         Optional[string]
	Category      Optional[string]
	Address       Optional[string]
	Notes         Optional[string]
	Latitude      Optional[float64]
	Longitude     Optional[float64]
	EstimatedCost Optional[int64]
	StartAt       Optional[time.Time]
	EndAt         Optional[time.Time]
}

// UpdateTripInput patches a trip. Title and TravelStyle cannot be null; a null Origin clears it.
type UpdateTripInput struct {
	Title       Optional[string]
	Origin      Optional[string]
	TravelStyle Optional[string]
}

// AddItemInput places a new item on a day.
type AddItemInput struct {
	// Kind defaults to VISIT.
	Kind    domain.ItemKind
	Place   domain.Place
	StartAt time.Time
	EndAt   time.Time
	Notes   string
}

type AddDependencyInput struct {
	DependentID    domain.ItemID
	PrerequisiteID domain.ItemID
	// Action defaults to WARN.
	Action domain.ViolationAction
}

type CloneInput struct {
	PreserveDependencies bool
}

// DependencyViolation is an edge whose prerequisite ends after its dependent starts.
type DependencyViolation struct {
	Dependency       domain.ItemDependency
	PrerequisiteEnds time.Time
	DependentStarts  time.Time
}

// ItemUpdated is the result of UpdateItem. Violations are advisory.
type ItemUpdated struct {
	Item       domain.TripItem
	Violations []DependencyViolation
}

type DayPlan struct {
	Day   domain.TripDay
	Items []domain.TripItem
}

// Itinerary is the read model of a trip: its days in order, each day's items in sort order, and its edges.
type Itinerary struct {
	Trip         domain.Trip
	Days         []DayPlan
	Dependencies []domain.ItemDependency
}

func (it Itinerary) ItemCount() int {
	n := 0
	for _, d := range it.Days {
		n += len(d.Items)
	}
	return n
}

func itineraryFromPlan(p triprepo.Plan) Itinerary {
	byDay := p.ItemsByDay()
	days := make([]DayPlan, 0, len(p.Days))
	for _, d := range p.Days {
		items := byDay[d.ID]
		if items == nil {
			items = []domain.TripItem{}
		}
		days = append(days, DayPlan{Day: d, Items: items})
	}
	deps := p.Dependencies
	if deps == nil {
		deps = []domain.ItemDependency{}
	}
	return Itinerary{Trip: p.Trip, Days: days, Dependencies: deps}
}
