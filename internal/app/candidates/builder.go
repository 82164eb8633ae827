// Package candidates turns supplier output into the ordered pool consumed by the allocator.
package candidates

import (
	"context"
	"fmt"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/logging"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/placesupply"
)

// PerDay is the pool size target per trip day for each group.
const PerDay = 4

type Request struct {
	Province  string
	City      string
	Interests []domain.Interest
	Budget    domain.BudgetTier
	Days      int
}

// Pool is the filtered, ordered candidate set for one generation request.
type Pool struct {
	Attractions []domain.Place
	Dining      []domain.Place
	Lodging     []domain.Place
}

func (p Pool) Len() int {
	return len(p.Attractions) + len(p.Dining) + len(p.Lodging)
}

func (p Pool) Empty() bool { return p.Len() == 0 }

type Builder struct {
	supply placesupply.Supplier
	ranker placesupply.Ranker
	log    logging.Logger
}

type Option func(*Builder)

// WithRanker re-orders each group through r. Ranking failures fall back to supply order.
func WithRanker(r placesupply.Ranker) Option {
	return func(b *Builder) { b.ranker = r }
}

func WithLogger(l logging.Logger) Option {
	return func(b *Builder) { b.log = l }
}

func NewBuilder(supply placesupply.Supplier, opts ...Option) *Builder {
	b := &Builder{supply: supply}
	for _, o := range opts {
		o(b)
	}
	b.log = logging.OrDiscard(b.log)
	return b
}

// Build queries the supplier once per group and caps each group at Days*PerDay.
// Within the dining cap each meal shape keeps room for its own slots, so a run of
// cafes cannot push every restaurant out. An empty or short result is not an error.
// Supplier errors are returned.
func (b *Builder) Build(ctx context.Context, req Request) (Pool, error) {
	if req.Days < 1 {
		return Pool{}, nil
	}
	tiers := PriceTiers(req.Budget)
	if len(tiers) == 0 {
		return Pool{}, nil
	}
	limit := req.Days * PerDay

	var (
		pool Pool
		err  error
	)
	if pool.Attractions, err = b.group(ctx, req, VisitCategories(req.Interests), tiers, limit, nil); err != nil {
		return Pool{}, fmt.Errorf("attractions: %w", err)
	}
	if pool.Dining, err = b.group(ctx, req, DiningCategories(), tiers, limit, diningQuotas); err != nil {
		return Pool{}, fmt.Errorf("dining: %w", err)
	}
	if pool.Lodging, err = b.group(ctx, req, LodgingCategories(), tiers, limit, nil); err != nil {
		return Pool{}, fmt.Errorf("lodging: %w", err)
	}
	return pool, nil
}

func (b *Builder) group(ctx context.Context, req Request, cats []domain.Category, tiers []domain.PriceTier, limit int, quotas []quota) ([]domain.Place, error) {
	places, err := b.supply.Search(ctx, placesupply.Query{
		Province:   req.Province,
		City:       req.City,
		Categories: cats,
		PriceTiers: tiers,
	})
	if err != nil {
		return nil, err
	}
	places = filter(places, cats, tiers)

	if b.ranker != nil && len(places) > 1 {
		ranked, rerr := b.ranker.Rank(ctx, places, req.Interests)
		if rerr != nil {
			b.log.Warn(ctx, "candidate ranking failed; keeping supply order", "err", rerr)
		} else {
			places = mergeRanked(filter(ranked, cats, tiers), places)
		}
	}

	return capGroup(places, limit, quotas, req.Days), nil
}

// capGroup trims places to limit, keeping order. Each quota first claims up to
// perDay*days of the unclaimed places it accepts; the remaining room goes to the rest in order.
func capGroup(places []domain.Place, limit int, quotas []quota, days int) []domain.Place {
	if len(places) <= limit {
		return places
	}
	keep := make([]bool, len(places))
	kept := 0
	for _, q := range quotas {
		want := q.perDay * days
		for i, p := range places {
			if want == 0 || kept == limit {
				break
			}
			if keep[i] || !accepts(q.cats, p.Category) {
				continue
			}
			keep[i] = true
			kept++
			want--
		}
	}
	for i := range places {
		if kept == limit {
			break
		}
		if !keep[i] {
			keep[i] = true
			kept++
		}
	}

	out := make([]domain.Place, 0, kept)
	for i, p := range places {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func accepts(cats []domain.Category, c domain.Category) bool {
	for _, want := range cats {
		if want == c {
			return true
		}
	}
	return false
}

// filter keeps places whose category and tier are allowed, collapsing duplicate ids.
func filter(in []domain.Place, cats []domain.Category, tiers []domain.PriceTier) []domain.Place {
	catOK := make(map[domain.Category]struct{}, len(cats))
	for _, c := range cats {
		catOK[c] = struct{}{}
	}
	tierOK := make(map[domain.PriceTier]struct{}, len(tiers))
	for _, t := range tiers {
		tierOK[t] = struct{}{}
	}

	out := make([]domain.Place, 0, len(in))
	seen := make(map[domain.PlaceID]struct{}, len(in))
	for _, p := range in {
		if p.ID == "" {
			continue
		}
		if _, ok := catOK[p.Category]; !ok {
			continue
		}
		if _, ok := tierOK[p.PriceTier]; !ok {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out
}

// mergeRanked keeps the ranker's order and appends supplied places the ranker left out.
// Places the ranker invented were already removed by filter.
func mergeRanked(ranked, supplied []domain.Place) []domain.Place {
	known := make(map[domain.PlaceID]struct{}, len(supplied))
	for _, p := range supplied {
		known[p.ID] = struct{}{}
	}
	out := make([]domain.Place, 0, len(supplied))
	placed := make(map[domain.PlaceID]struct{}, len(supplied))
	for _, p := range ranked {
		if _, ok := known[p.ID]; !ok {
			continue
		}
		placed[p.ID] = struct{}{}
		out = append(out, p)
	}
	for _, p := range supplied {
		if _, ok := placed[p.ID]; !ok {
			out = append(out, p)
		}
	}
	return out
}
