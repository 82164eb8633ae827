package httpapi

import (
	"strings"
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

type Trip struct {
	ID                 string                    `json:"id"`
	OwnerID            nullable.Nullable[string] `json:"ownerId"`
	CopiedFrom         nullable.Nullable[string] `json:"copiedFrom"`
	Title              string                    `json:"title"`
	Origin             string                    `json:"origin"`
	Province           string                    `json:"province"`
	City               string                    `json:"city"`
	StartDate          openapi_types.Date        `json:"startDate"`
	EndDate            openapi_types.Date        `json:"endDate"`
	DurationDays       int                       `json:"durationDays"`
	Budget             string                    `json:"budget"`
	TravelStyle        string                    `json:"travelStyle"`
	Interests          []string                  `json:"interests"`
	Status             string                    `json:"status"`
	TotalEstimatedCost nullable.Nullable[int64]  `json:"totalEstimatedCost"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

type Item struct {
	ID              string    `json:"id"`
	DayID           string    `json:"dayId"`
	Kind            string    `json:"kind"`
	PlaceID         string    `json:"placeId"`
	Title           string    `json:"title"`
	Category        string    `json:"category"`
	Address         string    `json:"address"`
	Latitude        *float64  `json:"latitude"`
	Longitude       *float64  `json:"longitude"`
	Notes           string    `json:"notes"`
	StartAt         time.Time `json:"startAt"`
	EndAt           time.Time `json:"endAt"`
	DurationMinutes int64     `json:"durationMinutes"`
	SortOrder       int       `json:"sortOrder"`
	Locked          bool      `json:"locked"`
	PriceTier       string    `json:"priceTier"`
	EstimatedCost   int64     `json:"estimatedCost"`
}

type Day struct {
	ID    string             `json:"id"`
	Index int                `json:"index"`
	Date  openapi_types.Date `json:"date"`
	Items []Item             `json:"items"`
}

type Dependency struct {
	ID             string    `json:"id"`
	DependentID    string    `json:"dependentId"`
	PrerequisiteID string    `json:"prerequisiteId"`
	Type           string    `json:"type"`
	Action         string    `json:"action"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Itinerary struct {
	Trip         Trip         `json:"trip"`
	Days         []Day        `json:"days"`
	Dependencies []Dependency `json:"dependencies"`
}

type Violation struct {
	Dependency         Dependency `json:"dependency"`
	PrerequisiteEndsAt time.Time  `json:"prerequisiteEndsAt"`
	DependentStartsAt  time.Time  `json:"dependentStartsAt"`
}

type Place struct {
	PlaceID   string   `json:"placeId"`
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	PriceTier string   `json:"priceTier"`
	Address   string   `json:"address"`
	Province  string   `json:"province,omitempty"`
	City      string   `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	EntryFee  int64    `json:"entryFee"`
}

type VoteSummary struct {
	ItemID string `json:"itemId"`
	Up     int    `json:"up"`
	Down   int    `json:"down"`
}

type ItemVotes struct {
	Summary VoteSummary             `json:"summary"`
	MyVote  nullable.Nullable[bool] `json:"myVote"`
}

type ItineraryResponse struct {
	Itinerary Itinerary `json:"itinerary"`
}

type TripResponse struct {
	Trip Trip `json:"trip"`
}

type TripsResponse struct {
	Trips []Trip `json:"trips"`
}

type ItemResponse struct {
	Item Item `json:"item"`
}

type ItemsResponse struct {
	Items []Item `json:"items"`
}

type ItemUpdatedResponse struct {
	Item       Item        `json:"item"`
	Violations []Violation `json:"violations"`
}

type DependencyResponse struct {
	Dependency Dependency `json:"dependency"`
}

type ViolationsResponse struct {
	Violations []Violation `json:"violations"`
}

type PlacesResponse struct {
	Places []Place `json:"places"`
}

type VoteSummariesResponse struct {
	Votes []VoteSummary `json:"votes"`
}

type GenerateTripRequest struct {
	Title       string              `json:"title"`
	Origin      string              `json:"origin"`
	Province    string              `json:"province"`
	City        string              `json:"city"`
	Interests   []string            `json:"interests"`
	Budget      string              `json:"budget"`
	TravelStyle string              `json:"travelStyle"`
	StartDate   *openapi_types.Date `json:"startDate"`
	EndDate     *openapi_types.Date `json:"endDate"`
}

type CloneTripRequest struct {
	PreserveDependencies bool `json:"preserveDependencies"`
}

// UpdateItemRequest distinguishes omitted fields from explicit nulls.
type UpdateItemRequest struct {
	Title         nullable.Nullable[string]    `json:"title,omitempty"`
	Category      nullable.Nullable[string]    `json:"category,omitempty"`
	Address       nullable.Nullable[string]    `json:"address,omitempty"`
	Notes         nullable.Nullable[string]    `json:"notes,omitempty"`
	Latitude      nullable.Nullable[float64]   `json:"latitude,omitempty"`
	Longitude     nullable.Nullable[float64]   `json:"longitude,omitempty"`
	EstimatedCost nullable.Nullable[int64]     `json:"estimatedCost,omitempty"`
	StartAt       nullable.Nullable[time.Time] `json:"startAt,omitempty"`
	EndAt         nullable.Nullable[time.Time] `json:"endAt,omitempty"`
}

// UpdateTripRequest distinguishes omitted fields from explicit nulls.
type UpdateTripRequest struct {
	Title       nullable.Nullable[string] `json:"title,omitempty"`
	Origin      nullable.Nullable[string] `json:"origin,omitempty"`
	TravelStyle nullable.Nullable[string] `json:"travelStyle,omitempty"`
}

type AddItemRequest struct {
	Kind    string    `json:"kind"`
	Place   Place     `json:"place"`
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
	Notes   string    `json:"notes"`
}

type DayResponse struct {
	Day Day `json:"day"`
}

type ReorderDayRequest struct {
	ItemIDs []string `json:"itemIds"`
}

type AddDependencyRequest struct {
	PrerequisiteID string `json:"prerequisiteId"`
	Action         string `json:"action"`
}

type ReplaceItemRequest struct {
	Place Place `json:"place"`
}

type CastVoteRequest struct {
	Upvote *bool `json:"upvote"`
}

func tripFromDomain(t domain.Trip) Trip {
	out := Trip{
		ID:           string(t.ID),
		Title:        t.Title,
		Origin:       t.Origin,
		Province:     t.Province,
		City:         t.City,
		StartDate:    openapi_types.Date{Time: t.StartDate},
		EndDate:      openapi_types.Date{Time: t.EndDate()},
		DurationDays: t.DurationDays,
		Budget:       string(t.Budget),
		TravelStyle:  string(t.TravelStyle),
		Interests:    make([]string, 0, len(t.Interests)),
		Status:       string(t.Status),
		CreatedAt:    t.CreatedAt.UTC(),
		UpdatedAt:    t.UpdatedAt.UTC(),
	}
	if t.OwnerID != nil {
		out.OwnerID = nullable.NewNullableWithValue(string(*t.OwnerID))
	} else {
		out.OwnerID = nullable.NewNullNullable[string]()
	}
	if t.CopiedFrom != nil {
		out.CopiedFrom = nullable.NewNullableWithValue(string(*t.CopiedFrom))
	} else {
		out.CopiedFrom = nullable.NewNullNullable[string]()
	}
	for _, in := range t.Interests {
		out.Interests = append(out.Interests, string(in))
	}
	if t.TotalEstimatedCost != nil {
		out.TotalEstimatedCost = nullable.NewNullableWithValue(*t.TotalEstimatedCost)
	} else {
		out.TotalEstimatedCost = nullable.NewNullNullable[int64]()
	}
	return out
}

func tripsFromDomain(ts []domain.Trip) []Trip {
	out := make([]Trip, 0, len(ts))
	for _, t := range ts {
		out = append(out, tripFromDomain(t))
	}
	return out
}

func itemFromDomain(it domain.TripItem) Item {
	return Item{
		ID:              string(it.ID),
		DayID:           string(it.DayID),
		Kind:            string(it.Kind),
		PlaceID:         string(it.PlaceRef),
		Title:           it.Title,
		Category:        string(it.Category),
		Address:         it.Address,
		Latitude:        it.Lat,
		Longitude:       it.Lng,
		Notes:           it.Notes,
		StartAt:         it.StartAt.UTC(),
		EndAt:           it.EndAt.UTC(),
		DurationMinutes: int64(it.Duration() / time.Minute),
		SortOrder:       it.SortOrder,
		Locked:          it.Locked,
		PriceTier:       string(it.PriceTier),
		EstimatedCost:   it.EstimatedCost,
	}
}

func itemsFromDomain(items []domain.TripItem) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		out = append(out, itemFromDomain(it))
	}
	return out
}

func dependencyFromDomain(d domain.ItemDependency) Dependency {
	return Dependency{
		ID:             string(d.ID),
		DependentID:    string(d.DependentID),
		PrerequisiteID: string(d.PrerequisiteID),
		Type:           string(d.Type),
		Action:         string(d.Action),
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

// ItineraryFromDomain renders an itinerary in its wire shape.
func ItineraryFromDomain(it trips.Itinerary) Itinerary {
	out := Itinerary{
		Trip:         tripFromDomain(it.Trip),
		Days:         make([]Day, 0, len(it.Days)),
		Dependencies: make([]Dependency, 0, len(it.Dependencies)),
	}
	for _, d := range it.Days {
		out.Days = append(out.Days, Day{
			ID:    string(d.Day.ID),
			Index: d.Day.Index,
			Date:  openapi_types.Date{Time: d.Day.Date},
			Items: itemsFromDomain(d.Items),
		})
	}
	for _, d := range it.Dependencies {
		out.Dependencies = append(out.Dependencies, dependencyFromDomain(d))
	}
	return out
}

func violationsFromDomain(vs []trips.DependencyViolation) []Violation {
	out := make([]Violation, 0, len(vs))
	for _, v := range vs {
		out = append(out, Violation{
			Dependency:         dependencyFromDomain(v.Dependency),
			PrerequisiteEndsAt: v.PrerequisiteEnds.UTC(),
			DependentStartsAt:  v.DependentStarts.UTC(),
		})
	}
	return out
}

func placeFromDomain(p domain.Place) Place {
	return Place{
		PlaceID:   string(p.ID),
		Title:     p.Title,
		Category:  string(p.Category),
		PriceTier: string(p.PriceTier),
		Address:   p.Address,
		Province:  p.Province,
		City:      p.City,
		Latitude:  p.Lat,
		Longitude: p.Lng,
		EntryFee:  p.EntryFee,
	}
}

func (p Place) toDomain() domain.Place {
	return domain.Place{
		ID:        domain.PlaceID(p.PlaceID),
		Title:     p.Title,
		Category:  domain.ParseCategory(p.Category),
		PriceTier: domain.PriceTier(p.PriceTier),
		Address:   p.Address,
		Province:  p.Province,
		City:      p.City,
		Lat:       p.Latitude,
		Lng:       p.Longitude,
		EntryFee:  p.EntryFee,
	}
}

func voteSummaryFromDomain(s domain.VoteSummary) VoteSummary {
	return VoteSummary{ItemID: string(s.ItemID), Up: s.Up, Down: s.Down}
}

func (r GenerateTripRequest) toInput() trips.GenerateInput {
	in := trips.GenerateInput{
		Title:       r.Title,
		Origin:      r.Origin,
		Province:    r.Province,
		City:        r.City,
		Interests:   r.Interests,
		Budget:      r.Budget,
		TravelStyle: r.TravelStyle,
	}
	if r.StartDate != nil {
		in.StartDate = r.StartDate.Time
	}
	if r.EndDate != nil {
		end := r.EndDate.Time
		in.EndDate = &end
	}
	return in
}

func (r UpdateItemRequest) toInput() trips.UpdateItemInput {
	return trips.UpdateItemInput{
		Title:         optionalFromNullable(r.Title),
		Category:      optionalFromNullable(r.Category),
		Address:       optionalFromNullable(r.Address),
		Notes:         optionalFromNullable(r.Notes),
		Latitude:      optionalFromNullable(r.Latitude),
		Longitude:     optionalFromNullable(r.Longitude),
		EstimatedCost: optionalFromNullable(r.EstimatedCost),
		StartAt:       optionalFromNullable(r.StartAt),
		EndAt:         optionalFromNullable(r.EndAt),
	}
}

func (r UpdateTripRequest) toInput() trips.UpdateTripInput {
	return trips.UpdateTripInput{
		Title:       optionalFromNullable(r.Title),
		Origin:      optionalFromNullable(r.Origin),
		TravelStyle: optionalFromNullable(r.TravelStyle),
	}
}

func (r AddItemRequest) toInput() trips.AddItemInput {
	return trips.AddItemInput{
		Kind:    domain.ItemKind(strings.ToUpper(strings.TrimSpace(r.Kind))),
		Place:   r.Place.toDomain(),
		StartAt: r.StartAt,
		EndAt:   r.EndAt,
		Notes:   r.Notes,
	}
}

func dayFromDomain(d domain.TripDay) Day {
	return Day{ID: string(d.ID), Index: d.Index, Date: openapi_types.Date{Time: d.Date}, Items: []Item{}}
}

func optionalFromNullable[T any](n nullable.Nullable[T]) trips.Optional[T] {
	if !n.IsSpecified() {
		return trips.Unspecified[T]()
	}
	if n.IsNull() {
		return trips.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return trips.Unspecified[T]()
	}
	return trips.Some(v)
}
