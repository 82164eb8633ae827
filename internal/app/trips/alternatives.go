package trips

import (
	"context"
	"math"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/candidates"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/tracing"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/placesupply"
)

const (
	DefaultAlternatives = 5
	MaxAlternatives     = 50
)

// Alternatives suggests replacement places of the item's category within the trip's budget.
// Places already on the trip are skipped. When the item has coordinates, the nearest places
// come first and places without coordinates go last.
func (s *Service) Alternatives(ctx context.Context, itemID domain.ItemID, limit int) (_ []domain.Place, err error) {
	ctx, span := s.start(ctx, "Alternatives", attribute.String(tracing.AttrItemID, string(itemID)))
	defer func() { tracing.End(span, err) }()

	switch {
	case limit < 0:
		return nil, Validation("invalid limit", map[string]any{"limit": "must be >= 0"})
	case limit == 0:
		limit = DefaultAlternatives
	case limit > MaxAlternatives:
		limit = MaxAlternatives
	}

	it, err := loadItem(ctx, s.trips, itemID)
	if err != nil {
		return nil, err
	}
	if it.Category == "" {
		return []domain.Place{}, nil
	}
	t, err := loadTrip(ctx, s.trips, it.TripID)
	if err != nil {
		return nil, err
	}
	onTrip, err := s.trips.ListItemsByTrip(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	used := make(map[domain.PlaceID]struct{}, len(onTrip))
	for _, o := range onTrip {
		used[o.PlaceRef] = struct{}{}
	}

	found, err := s.supply.Search(ctx, placesupply.Query{
		Province:   t.Province,
		City:       t.City,
		Categories: []domain.Category{it.Category},
		PriceTiers: candidates.PriceTiers(t.Budget),
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Place, 0, len(found))
	for _, p := range found {
		if p.ID == it.PlaceRef {
			continue
		}
		if _, ok := used[p.ID]; ok {
			continue
		}
		out = append(out, p)
	}

	if it.Lat != nil && it.Lng != nil {
		lat, lng := *it.Lat, *it.Lng
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if a.HasCoordinates() != b.HasCoordinates() {
				return a.HasCoordinates()
			}
			if !a.HasCoordinates() {
				return false
			}
			return haversineKm(lat, lng, *a.Lat, *a.Lng) < haversineKm(lat, lng, *b.Lat, *b.Lng)
		})
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two points given in degrees.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}
