package placesupply

import (
	"context"
	"strings"
	"sync"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/placesupply"
)

// Catalog is an in-memory implementation of placesupply.Supplier.
// Search returns places in insertion order, which stands in for the supplier's ranking.
// It is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	places []domain.Place
}

func NewCatalog(places ...domain.Place) *Catalog {
	c := &Catalog{}
	c.Add(places...)
	return c
}

// Add appends places. A place whose ID is already present replaces the earlier entry in place.
func (c *Catalog) Add(places ...domain.Place) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range places {
		replaced := false
		for i := range c.places {
			if c.places[i].ID == p.ID {
				c.places[i] = clonePlace(p)
				replaced = true
				break
			}
		}
		if !replaced {
			c.places = append(c.places, clonePlace(p))
		}
	}
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.places)
}

func (c *Catalog) Search(ctx context.Context, q placesupply.Query) ([]domain.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cats := make(map[domain.Category]struct{}, len(q.Categories))
	for _, cat := range q.Categories {
		cats[cat] = struct{}{}
	}
	tiers := make(map[domain.PriceTier]struct{}, len(q.PriceTiers))
	for _, pt := range q.PriceTiers {
		tiers[pt] = struct{}{}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Place, 0)
	for _, p := range c.places {
		if q.Province != "" && !strings.EqualFold(p.Province, q.Province) {
			continue
		}
		if q.City != "" && !strings.EqualFold(p.City, q.City) {
			continue
		}
		if len(cats) > 0 {
			if _, ok := cats[p.Category]; !ok {
				continue
			}
		}
		if len(tiers) > 0 {
			if _, ok := tiers[p.PriceTier]; !ok {
				continue
			}
		}
		out = append(out, clonePlace(p))
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func clonePlace(p domain.Place) domain.Place {
	cp := p
	if p.Lat != nil {
		v := *p.Lat
		cp.Lat = &v
	}
	if p.Lng != nil {
		v := *p.Lng
		cp.Lng = &v
	}
	return cp
}
