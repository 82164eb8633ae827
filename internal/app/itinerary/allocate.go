// Package itinerary lays candidate places out into a timed, day-by-day schedule.
package itinerary

import (
	"time"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/candidates"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

// Cursor carries lodging rotation across the days of one trip.
// A Cursor must not be shared between trips.
type Cursor struct {
	lodging int
}

func (c *Cursor) nextLodging(n int) int {
	i := c.lodging % n
	c.lodging++
	return i
}

type PlannedItem struct {
	Slot      string
	Kind      domain.ItemKind
	Place     domain.Place
	StartAt   time.Time
	EndAt     time.Time
	SortOrder int
	Cost      int64
}

type PlannedDay struct {
	Index int
	Date  time.Time
	Items []PlannedItem
}

type Plan struct {
	Days      []PlannedDay
	TotalCost int64
}

// Allocate fills days starting at start using the pool.
// Places are not repeated within the trip while a slot has unused candidates.
// When a slot has none, the least-used eligible candidate is reused.
// A slot with no eligible candidate is skipped and does not advance the clock.
// A nil cursor starts a fresh rotation.
func Allocate(start time.Time, days int, pool candidates.Pool, cur *Cursor) Plan {
	if cur == nil {
		cur = &Cursor{}
	}
	a := allocator{pool: pool, cur: cur, used: make(map[domain.PlaceID]int)}

	plan := Plan{Days: make([]PlannedDay, 0, max(days, 0))}
	for idx := 1; idx <= days; idx++ {
		date := domain.DayDate(start, idx)
		day := PlannedDay{Index: idx, Date: date}
		clock := date.Add(DayStart)

		for _, slot := range DailySlots {
			p, ok := a.pick(slot)
			if !ok {
				continue
			}
			end := clock.Add(slot.Duration)
			day.Items = append(day.Items, PlannedItem{
				Slot:      slot.Name,
				Kind:      slot.Kind,
				Place:     p,
				StartAt:   clock,
				EndAt:     end,
				SortOrder: len(day.Items) + 1,
				Cost:      p.EntryFee,
			})
			plan.TotalCost += p.EntryFee
			clock = end
		}
		plan.Days = append(plan.Days, day)
	}
	return plan
}

type allocator struct {
	pool candidates.Pool
	cur  *Cursor
	used map[domain.PlaceID]int
}

func (a *allocator) pick(slot Slot) (domain.Place, bool) {
	var group []domain.Place
	switch slot.Group {
	case GroupAttractions:
		group = a.pool.Attractions
	case GroupDining:
		group = a.pool.Dining
	case GroupLodging:
		group = a.pool.Lodging
	}

	eligible := make([]domain.Place, 0, len(group))
	for _, p := range group {
		if slot.accepts(p.Category) {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) == 0 {
		return domain.Place{}, false
	}

	var p domain.Place
	if slot.Group == GroupLodging {
		p = eligible[a.cur.nextLodging(len(eligible))]
	} else {
		p = leastUsed(eligible, a.used)
	}
	a.used[p.ID]++
	return p, true
}

// leastUsed returns the first unused place, or the least-used one, earliest in order on ties.
func leastUsed(places []domain.Place, used map[domain.PlaceID]int) domain.Place {
	best := places[0]
	for _, p := range places[1:] {
		if used[p.ID] < used[best.ID] {
			best = p
		}
	}
	return best
}
