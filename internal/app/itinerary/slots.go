package itinerary

import (
	"time"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/candidates"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

// Group selects which pool group a slot draws from.
type Group int

const (
	GroupAttractions Group = iota
	GroupDining
	GroupLodging
)

// Slot is one fixed-purpose time block in a day.
type Slot struct {
	Name     string
	Kind     domain.ItemKind
	Group    Group
	Duration time.Duration
	// Categories narrows the group. Empty means any place in the group.
	Categories []domain.Category
}

// DayStart is the offset from midnight at which each day's clock starts.
const DayStart = 9 * time.Hour

var (
	breakfastCategories = candidates.BreakfastCategories()
	mealCategories      = candidates.MealCategories()
)

// DailySlots is the order in which a day is filled.
var DailySlots = []Slot{
	{Name: "breakfast", Kind: domain.ItemKindMeal, Group: GroupDining, Duration: time.Hour, Categories: breakfastCategories},
	{Name: "morning visit", Kind: domain.ItemKindVisit, Group: GroupAttractions, Duration: 150 * time.Minute},
	{Name: "lunch", Kind: domain.ItemKindMeal, Group: GroupDining, Duration: time.Hour, Categories: mealCategories},
	{Name: "afternoon visit", Kind: domain.ItemKindVisit, Group: GroupAttractions, Duration: 150 * time.Minute},
	{Name: "dinner", Kind: domain.ItemKindMeal, Group: GroupDining, Duration: time.Hour, Categories: mealCategories},
	{Name: "stay", Kind: domain.ItemKindStay, Group: GroupLodging, Duration: 11 * time.Hour},
}

func (s Slot) accepts(c domain.Category) bool {
	if len(s.Categories) == 0 {
		return true
	}
	for _, want := range s.Categories {
		if want == c {
			return true
		}
	}
	return false
}
