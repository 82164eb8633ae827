package candidates

import "github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"

// interestCategories maps interest tags to the visit categories they unlock.
// Interests not listed here contribute nothing.
var interestCategories = map[domain.Interest][]domain.Category{
	domain.InterestHistory:   {domain.CategoryMuseum, domain.CategoryMonument, domain.CategoryRuins, domain.CategoryHistoricSite},
	domain.InterestCulture:   {domain.CategoryMuseum, domain.CategoryHistoricSite, domain.CategoryGallery, domain.CategoryTheater, domain.CategoryBazaar},
	domain.InterestArt:       {domain.CategoryGallery, domain.CategoryMuseum, domain.CategoryTheater},
	domain.InterestNature:    {domain.CategoryPark, domain.CategoryGarden, domain.CategoryMountain, domain.CategoryLake, domain.CategoryForest, domain.CategoryBeach},
	domain.InterestAdventure: {domain.CategoryMountain, domain.CategoryForest, domain.CategoryLake},
	domain.InterestFamily:    {domain.CategoryAmusementPark, domain.CategoryZoo, domain.CategoryPark, domain.CategoryBeach},
	domain.InterestReligion:  {domain.CategoryReligious},
	domain.InterestShopping:  {domain.CategoryBazaar, domain.CategoryShoppingMall},
	domain.InterestFood:      {domain.CategoryBazaar},
}

// defaultSightseeing is used when no interest maps to a category.
var defaultSightseeing = []domain.Category{
	domain.CategoryMuseum,
	domain.CategoryHistoricSite,
	domain.CategoryMonument,
	domain.CategoryPark,
	domain.CategoryGarden,
	domain.CategoryBazaar,
}

var diningCategories = []domain.Category{
	domain.CategoryCafe,
	domain.CategoryRestaurant,
	domain.CategoryTraditional,
}

var (
	breakfastCategories = []domain.Category{domain.CategoryCafe, domain.CategoryRestaurant}
	mealCategories      = []domain.Category{domain.CategoryRestaurant, domain.CategoryTraditional}
)

// quota reserves room in a capped group for places a slot shape accepts.
type quota struct {
	cats   []domain.Category
	perDay int
}

// One breakfast and two main meals a day.
var diningQuotas = []quota{
	{cats: breakfastCategories, perDay: 1},
	{cats: mealCategories, perDay: 2},
}

var lodgingCategories = []domain.Category{
	domain.CategoryHotel,
	domain.CategoryGuestHouse,
	domain.CategoryEcoLodge,
}

var budgetPriceTiers = map[domain.BudgetTier][]domain.PriceTier{
	domain.BudgetEconomy:  {domain.PriceFree, domain.PriceBudget},
	domain.BudgetModerate: {domain.PriceFree, domain.PriceBudget, domain.PriceModerate},
	domain.BudgetLuxury:   {domain.PriceFree, domain.PriceModerate, domain.PriceExpensive, domain.PriceLuxury},
}

// VisitCategories returns the visit categories for a set of interests, in first-seen order.
// It falls back to the default sightseeing set when nothing matches.
func VisitCategories(interests []domain.Interest) []domain.Category {
	var out []domain.Category
	seen := make(map[domain.Category]struct{})
	for _, in := range interests {
		for _, c := range interestCategories[in] {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return append([]domain.Category(nil), defaultSightseeing...)
	}
	return out
}

// PriceTiers returns the price tiers allowed for a budget. Unknown budgets allow nothing.
func PriceTiers(b domain.BudgetTier) []domain.PriceTier {
	return append([]domain.PriceTier(nil), budgetPriceTiers[b]...)
}

// DiningCategories returns the categories eligible for meal slots.
func DiningCategories() []domain.Category {
	return append([]domain.Category(nil), diningCategories...)
}

// BreakfastCategories returns the dining categories that can serve breakfast.
func BreakfastCategories() []domain.Category {
	return append([]domain.Category(nil), breakfastCategories...)
}

// MealCategories returns the dining categories that can serve lunch and dinner.
func MealCategories() []domain.Category {
	return append([]domain.Category(nil), mealCategories...)
}

// LodgingCategories returns the categories eligible for the overnight slot.
func LodgingCategories() []domain.Category {
	return append([]domain.Category(nil), lodgingCategories...)
}
