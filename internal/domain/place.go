package domain

import "strings"

// Category is a facility category reported by the candidate supply service.
type Category string

const (
	CategoryMuseum        Category = "museum"
	CategoryMonument      Category = "monument"
	CategoryRuins         Category = "ruins"
	CategoryHistoricSite  Category = "historic_site"
	CategoryGallery       Category = "gallery"
	CategoryTheater       Category = "theater"
	CategoryBazaar        Category = "bazaar"
	CategoryShoppingMall  Category = "shopping_mall"
	CategoryReligious     Category = "religious"
	CategoryPark          Category = "park"
	CategoryGarden        Category = "garden"
	CategoryMountain      Category = "mountain"
	CategoryLake          Category = "lake"
	CategoryBeach         Category = "beach"
	CategoryForest        Category = "forest"
	CategoryAmusementPark Category = "amusement_park"
	CategoryZoo           Category = "zoo"
	CategoryCafe          Category = "cafe"
	CategoryRestaurant    Category = "restaurant"
	CategoryTraditional   Category = "traditional_restaurant"
	CategoryHotel         Category = "hotel"
	CategoryGuestHouse    Category = "guest_house"
	CategoryEcoLodge      Category = "eco_lodge"
)

// ParseCategory normalizes a category string. Unknown categories are kept as-is.
func ParseCategory(s string) Category {
	return Category(strings.ToLower(strings.TrimSpace(s)))
}

// PriceTier is the price indicator attached to a candidate place.
type PriceTier string

const (
	PriceFree      PriceTier = "FREE"
	PriceBudget    PriceTier = "BUDGET"
	PriceModerate  PriceTier = "MODERATE"
	PriceExpensive PriceTier = "EXPENSIVE"
	PriceLuxury    PriceTier = "LUXURY"
)

func (p PriceTier) Valid() bool {
	switch p {
	case PriceFree, PriceBudget, PriceModerate, PriceExpensive, PriceLuxury:
		return true
	default:
		return false
	}
}

// Interest is a traveler interest tag supplied with a generation request.
type Interest string

const (
	InterestHistory   Interest = "history"
	InterestCulture   Interest = "culture"
	InterestArt       Interest = "art"
	InterestNature    Interest = "nature"
	InterestAdventure Interest = "adventure"
	InterestFamily    Interest = "family"
	InterestReligion  Interest = "religion"
	InterestShopping  Interest = "shopping"
	InterestFood      Interest = "food"
)

// ParseInterests lowercases and de-duplicates interest tags, keeping input order.
func ParseInterests(raw []string) []Interest {
	out := make([]Interest, 0, len(raw))
	seen := make(map[Interest]struct{}, len(raw))
	for _, r := range raw {
		in := Interest(strings.ToLower(strings.TrimSpace(r)))
		if in == "" {
			continue
		}
		if _, ok := seen[in]; ok {
			continue
		}
		seen[in] = struct{}{}
		out = append(out, in)
	}
	return out
}

// Place is one candidate record from the supply service.
type Place struct {
	ID        PlaceID
	Title     string
	Category  Category
	PriceTier PriceTier
	Address   string
	Province  string
	City      string
	Lat       *float64
	Lng       *float64
	EntryFee  int64
}

func (p Place) HasCoordinates() bool {
	return p.Lat != nil && p.Lng != nil
}
