package candidates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memplacesupply "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/placesupply"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/placesupply"
)

func place(id string, cat domain.Category, tier domain.PriceTier) domain.Place {
	return domain.Place{
		ID:        domain.PlaceID(id),
		Title:     "Place " + id,
		Category:  cat,
		PriceTier: tier,
		Province:  "Tehran",
		City:      "Tehran",
		EntryFee:  100,
	}
}

func ids(places []domain.Place) []string {
	out := make([]string, 0, len(places))
	for _, p := range places {
		out = append(out, string(p.ID))
	}
	return out
}

type reverseRanker struct{}

func (reverseRanker) Rank(_ context.Context, places []domain.Place, _ []domain.Interest) ([]domain.Place, error) {
	out := make([]domain.Place, len(places))
	for i, p := range places {
		out[len(places)-1-i] = p
	}
	return out, nil
}

type failingRanker struct{}

func (failingRanker) Rank(context.Context, []domain.Place, []domain.Interest) ([]domain.Place, error) {
	return nil, errors.New("recommender down")
}

type failingSupplier struct{}

func (failingSupplier) Search(context.Context, placesupply.Query) ([]domain.Place, error) {
	return nil, errors.New("supply unavailable")
}

// duplicatingSupplier returns every catalog hit twice.
type duplicatingSupplier struct{ inner placesupply.Supplier }

func (d duplicatingSupplier) Search(ctx context.Context, q placesupply.Query) ([]domain.Place, error) {
	out, err := d.inner.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return append(out, out...), nil
}

func TestBuild_GroupsByInterestAndBudget(t *testing.T) {
	t.Parallel()

	cat := memplacesupply.NewCatalog(
		place("museum", domain.CategoryMuseum, domain.PriceBudget),
		place("ruins", domain.CategoryRuins, domain.PriceFree),
		place("lux-museum", domain.CategoryMuseum, domain.PriceLuxury),
		place("park", domain.CategoryPark, domain.PriceFree),
		place("cafe", domain.CategoryCafe, domain.PriceBudget),
		place("fine", domain.CategoryRestaurant, domain.PriceExpensive),
		place("hostel", domain.CategoryGuestHouse, domain.PriceBudget),
		place("palace", domain.CategoryHotel, domain.PriceLuxury),
	)
	b := NewBuilder(cat)

	pool, err := b.Build(context.Background(), Request{
		Province:  "tehran",
		Interests: []domain.Interest{domain.InterestHistory},
		Budget:    domain.BudgetEconomy,
		Days:      2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"museum", "ruins"}, ids(pool.Attractions))
	assert.Equal(t, []string{"cafe"}, ids(pool.Dining))
	assert.Equal(t, []string{"hostel"}, ids(pool.Lodging))
	assert.Equal(t, 4, pool.Len())
}

func TestBuild_UnknownInterestsFallBackToSightseeing(t *testing.T) {
	t.Parallel()

	cat := memplacesupply.NewCatalog(
		place("park", domain.CategoryPark, domain.PriceFree),
		place("zoo", domain.CategoryZoo, domain.PriceFree),
	)
	pool, err := NewBuilder(cat).Build(context.Background(), Request{
		Interests: []domain.Interest{"karaoke"},
		Budget:    domain.BudgetModerate,
		Days:      1,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"park"}, ids(pool.Attractions))
}

func TestBuild_CapsEachGroupAtDaysTimesFour(t *testing.T) {
	t.Parallel()

	cat := memplacesupply.NewCatalog()
	for i := 0; i < 20; i++ {
		cat.Add(place(fmt.Sprintf("m%02d", i), domain.CategoryMuseum, domain.PriceFree))
	}
	pool, err := NewBuilder(cat).Build(context.Background(), Request{
		Interests: []domain.Interest{domain.InterestHistory},
		Budget:    domain.BudgetEconomy,
		Days:      2,
	})
	require.NoError(t, err)
	require.Len(t, pool.Attractions, 8)
	assert.Equal(t, "m00", string(pool.Attractions[0].ID))
	assert.Equal(t, "m07", string(pool.Attractions[7].ID))
}

func TestBuild_DiningCapKeepsRestaurantsBehindLeadingCafes(t *testing.T) {
	t.Parallel()

	cat := memplacesupply.NewCatalog()
	for i := 1; i <= 5; i++ {
		cat.Add(place(fmt.Sprintf("cafe-%d", i), domain.CategoryCafe, domain.PriceBudget))
	}
	for i := 1; i <= 3; i++ {
		cat.Add(place(fmt.Sprintf("rest-%d", i), domain.CategoryRestaurant, domain.PriceBudget))
	}
	for i := 1; i <= 6; i++ {
		cat.Add(place(fmt.Sprintf("hotel-%d", i), domain.CategoryHotel, domain.PriceBudget))
	}

	pool, err := NewBuilder(cat).Build(context.Background(), Request{Budget: domain.BudgetEconomy, Days: 1})
	require.NoError(t, err)

	// One cafe for breakfast, two restaurants for lunch and dinner, then supply order.
	assert.Equal(t, []string{"cafe-1", "cafe-2", "rest-1", "rest-2"}, ids(pool.Dining))
	assert.Len(t, pool.Lodging, PerDay)

	pool, err = NewBuilder(cat, WithRanker(reverseRanker{})).Build(context.Background(), Request{Budget: domain.BudgetEconomy, Days: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"rest-3", "rest-2", "rest-1", "cafe-5"}, ids(pool.Dining))
}

func TestBuild_UnderSupplyIsNotAnError(t *testing.T) {
	t.Parallel()

	pool, err := NewBuilder(memplacesupply.NewCatalog()).Build(context.Background(), Request{
		Budget: domain.BudgetLuxury,
		Days:   5,
	})
	require.NoError(t, err)
	assert.True(t, pool.Empty())
}

func TestBuild_CollapsesDuplicatePlaceIDs(t *testing.T) {
	t.Parallel()

	cat := memplacesupply.NewCatalog(
		place("a", domain.CategoryMuseum, domain.PriceFree),
		place("b", domain.CategoryMuseum, domain.PriceFree),
	)
	pool, err := NewBuilder(duplicatingSupplier{inner: cat}).Build(context.Background(), Request{
		Interests: []domain.Interest{domain.InterestHistory},
		Budget:    domain.BudgetEconomy,
		Days:      3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(pool.Attractions))
}

func TestBuild_RankerReordersAndFailureKeepsSupplyOrder(t *testing.T) {
	t.Parallel()

	cat := memplacesupply.NewCatalog(
		place("a", domain.CategoryMuseum, domain.PriceFree),
		place("b", domain.CategoryMuseum, domain.PriceFree),
		place("c", domain.CategoryMuseum, domain.PriceFree),
	)
	req := Request{Interests: []domain.Interest{domain.InterestHistory}, Budget: domain.BudgetEconomy, Days: 1}

	ranked, err := NewBuilder(cat, WithRanker(reverseRanker{})).Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, ids(ranked.Attractions))

	fallback, err := NewBuilder(cat, WithRanker(failingRanker{})).Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(fallback.Attractions))
}

func TestBuild_SupplierErrorIsReturned(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder(failingSupplier{}).Build(context.Background(), Request{Budget: domain.BudgetEconomy, Days: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supply unavailable")
}

func TestMergeRanked_KeepsOmittedAndDropsInvented(t *testing.T) {
	t.Parallel()

	supplied := []domain.Place{
		place("a", domain.CategoryMuseum, domain.PriceFree),
		place("b", domain.CategoryMuseum, domain.PriceFree),
		place("c", domain.CategoryMuseum, domain.PriceFree),
	}
	ranked := []domain.Place{supplied[2], place("x", domain.CategoryMuseum, domain.PriceFree)}

	assert.Equal(t, []string{"c", "a", "b"}, ids(mergeRanked(ranked, supplied)))
}

func TestTables(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []domain.Category{
		domain.CategoryMuseum, domain.CategoryMonument, domain.CategoryRuins, domain.CategoryHistoricSite,
		domain.CategoryGallery, domain.CategoryTheater,
	}, VisitCategories([]domain.Interest{domain.InterestHistory, domain.InterestArt}))

	assert.ElementsMatch(t, []domain.PriceTier{domain.PriceFree, domain.PriceBudget}, PriceTiers(domain.BudgetEconomy))
	assert.Contains(t, PriceTiers(domain.BudgetModerate), domain.PriceModerate)
	assert.Contains(t, PriceTiers(domain.BudgetLuxury), domain.PriceLuxury)
	assert.Empty(t, PriceTiers("PLATINUM"))
}
