package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

type tripRow struct {
	ID                 string  `db:"id"`
	OwnerID            *string `db:"owner_id"`
	CopiedFrom         *string `db:"copied_from"`
	Title              string  `db:"title"`
	Origin             string  `db:"origin"`
	Province           string  `db:"province"`
	City               string  `db:"city"`
	StartDate          string  `db:"start_date"`
	DurationDays       int     `db:"duration_days"`
	Budget             string  `db:"budget"`
	TravelStyle        string  `db:"travel_style"`
	Interests          string  `db:"interests"`
	Status             string  `db:"status"`
	TotalEstimatedCost *int64  `db:"total_estimated_cost"`
	CreatedAt          string  `db:"created_at"`
	UpdatedAt          string  `db:"updated_at"`
}

func newTripRow(t domain.Trip) (tripRow, error) {
	interests := make([]string, 0, len(t.Interests))
	for _, i := range t.Interests {
		interests = append(interests, string(i))
	}
	encoded, err := json.Marshal(interests)
	if err != nil {
		return tripRow{}, fmt.Errorf("marshaling interests for trip %s: %w", t.ID, err)
	}
	r := tripRow{
		ID:                 string(t.ID),
		Title:              t.Title,
		Origin:             t.Origin,
		Province:           t.Province,
		City:               t.City,
		StartDate:          formatDate(t.StartDate),
		DurationDays:       t.DurationDays,
		Budget:             string(t.Budget),
		TravelStyle:        string(t.TravelStyle),
		Interests:          string(encoded),
		Status:             string(t.Status),
		TotalEstimatedCost: t.TotalEstimatedCost,
		CreatedAt:          formatTime(t.CreatedAt),
		UpdatedAt:          formatTime(t.UpdatedAt),
	}
	if t.OwnerID != nil {
		s := string(*t.OwnerID)
		r.OwnerID = &s
	}
	if t.CopiedFrom != nil {
		s := string(*t.CopiedFrom)
		r.CopiedFrom = &s
	}
	return r, nil
}

func (r tripRow) toDomain() (domain.Trip, error) {
	var interests []string
	if err := json.Unmarshal([]byte(r.Interests), &interests); err != nil {
		return domain.Trip{}, fmt.Errorf("unmarshaling interests for trip %s: %w", r.ID, err)
	}
	start, err := parseDate(r.StartDate)
	if err != nil {
		return domain.Trip{}, err
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return domain.Trip{}, err
	}
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return domain.Trip{}, err
	}

	t := domain.Trip{
		ID:                 domain.TripID(r.ID),
		Title:              r.Title,
		Origin:             r.Origin,
		Province:           r.Province,
		City:               r.City,
		StartDate:          start,
		DurationDays:       r.DurationDays,
		Budget:             domain.BudgetTier(r.Budget),
		TravelStyle:        domain.TravelStyle(r.TravelStyle),
		Interests:          make([]domain.Interest, 0, len(interests)),
		Status:             domain.TripStatus(r.Status),
		TotalEstimatedCost: r.TotalEstimatedCost,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}
	for _, i := range interests {
		t.Interests = append(t.Interests, domain.Interest(i))
	}
	if r.OwnerID != nil {
		m := domain.MemberID(*r.OwnerID)
		t.OwnerID = &m
	}
	if r.CopiedFrom != nil {
		src := domain.TripID(*r.CopiedFrom)
		t.CopiedFrom = &src
	}
	return t, nil
}

type dayRow struct {
	ID       string `db:"id"`
	TripID   string `db:"trip_id"`
	DayIndex int    `db:"day_index"`
	DayDate  string `db:"day_date"`
}

func newDayRow(d domain.TripDay) dayRow {
	return dayRow{ID: string(d.ID), TripID: string(d.TripID), DayIndex: d.Index, DayDate: formatDate(d.Date)}
}

func (r dayRow) toDomain() (domain.TripDay, error) {
	date, err := parseDate(r.DayDate)
	if err != nil {
		return domain.TripDay{}, err
	}
	return domain.TripDay{ID: domain.DayID(r.ID), TripID: domain.TripID(r.TripID), Index: r.DayIndex, Date: date}, nil
}

type itemRow struct {
	ID            string   `db:"id"`
	TripID        string   `db:"trip_id"`
	DayID         string   `db:"day_id"`
	Kind          string   `db:"kind"`
	PlaceRef      string   `db:"place_ref"`
	Title         string   `db:"title"`
	Category      string   `db:"category"`
	Address       string   `db:"address"`
	Latitude      *float64 `db:"latitude"`
	Longitude     *float64 `db:"longitude"`
	Notes         string   `db:"notes"`
	StartAt       string   `db:"start_at"`
	EndAt         string   `db:"end_at"`
	SortOrder     int      `db:"sort_order"`
	Locked        int      `db:"locked"`
	PriceTier     string   `db:"price_tier"`
	EstimatedCost int64    `db:"estimated_cost"`
}

func newItemRow(it domain.TripItem) itemRow {
	return itemRow{
		ID:            string(it.ID),
		TripID:        string(it.TripID),
		DayID:         string(it.DayID),
		Kind:          string(it.Kind),
		PlaceRef:      string(it.PlaceRef),
		Title:         it.Title,
		Category:      string(it.Category),
		Address:       it.Address,
		Latitude:      it.Lat,
		Longitude:     it.Lng,
		Notes:         it.Notes,
		StartAt:       formatTime(it.StartAt),
		EndAt:         formatTime(it.EndAt),
		SortOrder:     it.SortOrder,
		Locked:        boolToInt(it.Locked),
		PriceTier:     string(it.PriceTier),
		EstimatedCost: it.EstimatedCost,
	}
}

func (r itemRow) toDomain() (domain.TripItem, error) {
	start, err := parseTime(r.StartAt)
	if err != nil {
		return domain.TripItem{}, err
	}
	end, err := parseTime(r.EndAt)
	if err != nil {
		return domain.TripItem{}, err
	}
	return domain.TripItem{
		ID:            domain.ItemID(r.ID),
		TripID:        domain.TripID(r.TripID),
		DayID:         domain.DayID(r.DayID),
		Kind:          domain.ItemKind(r.Kind),
		PlaceRef:      domain.PlaceID(r.PlaceRef),
		Title:         r.Title,
		Category:      domain.Category(r.Category),
		Address:       r.Address,
		Lat:           r.Latitude,
		Lng:           r.Longitude,
		Notes:         r.Notes,
		StartAt:       start,
		EndAt:         end,
		SortOrder:     r.SortOrder,
		Locked:        r.Locked != 0,
		PriceTier:     domain.PriceTier(r.PriceTier),
		EstimatedCost: r.EstimatedCost,
	}, nil
}

type dependencyRow struct {
	ID              string `db:"id"`
	TripID          string `db:"trip_id"`
	DependentID     string `db:"dependent_id"`
	PrerequisiteID  string `db:"prerequisite_id"`
	DependencyType  string `db:"dependency_type"`
	ViolationAction string `db:"violation_action"`
	CreatedAt       string `db:"created_at"`
}

func newDependencyRow(d domain.ItemDependency) dependencyRow {
	return dependencyRow{
		ID:              string(d.ID),
		TripID:          string(d.TripID),
		DependentID:     string(d.DependentID),
		PrerequisiteID:  string(d.PrerequisiteID),
		DependencyType:  string(d.Type),
		ViolationAction: string(d.Action),
		CreatedAt:       formatTime(d.CreatedAt),
	}
}

func (r dependencyRow) toDomain() (domain.ItemDependency, error) {
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return domain.ItemDependency{}, err
	}
	return domain.ItemDependency{
		ID:             domain.DependencyID(r.ID),
		TripID:         domain.TripID(r.TripID),
		DependentID:    domain.ItemID(r.DependentID),
		PrerequisiteID: domain.ItemID(r.PrerequisiteID),
		Type:           domain.DependencyType(r.DependencyType),
		Action:         domain.ViolationAction(r.ViolationAction),
		CreatedAt:      created,
	}, nil
}

// convertRows maps scanned rows onto domain values.
func convertRows[R any, T any](rows []R, conv func(R) (T, error)) ([]T, error) {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		v, err := conv(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
