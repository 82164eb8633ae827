package placesupply

import (
	"context"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

// Query filters candidate places. Empty slices match everything.
type Query struct {
	Province   string
	City       string
	Categories []domain.Category
	PriceTiers []domain.PriceTier
	// Limit caps the result size; zero means no cap.
	Limit int
}

// Supplier returns candidate places ordered by the supplier's own ranking.
type Supplier interface {
	Search(ctx context.Context, q Query) ([]domain.Place, error)
}

// Ranker re-orders candidates for a set of interests. Its ordering is advisory.
type Ranker interface {
	Rank(ctx context.Context, places []domain.Place, interests []domain.Interest) ([]domain.Place, error)
}
