package trips_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	memclock "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/clock"
	memplacesupply "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/placesupply"
	memtriprepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/triprepo"
	memvoterepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/voterepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

var may1 = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *trips.Service
	trips   *memtriprepo.Repo
	votes   *memvoterepo.Repo
	catalog *memplacesupply.Catalog
	clock   *memclock.ManualClock
}

func fp(v float64) *float64 { return &v }

func tehranPlace(id string, cat domain.Category, tier domain.PriceTier, fee int64) domain.Place {
	return domain.Place{
		ID:        domain.PlaceID(id),
		Title:     "Place " + id,
		Category:  cat,
		PriceTier: tier,
		Province:  "Tehran",
		City:      "Tehran",
		EntryFee:  fee,
	}
}

func seedCatalog() *memplacesupply.Catalog {
	c := memplacesupply.NewCatalog()
	for i := 1; i <= 6; i++ {
		p := tehranPlace(fmt.Sprintf("museum-%d", i), domain.CategoryMuseum, domain.PriceBudget, int64(100*i))
		p.Lat, p.Lng = fp(35.0+float64(i)/100), fp(51.0)
		c.Add(p)
	}
	for i := 1; i <= 3; i++ {
		c.Add(tehranPlace(fmt.Sprintf("cafe-%d", i), domain.CategoryCafe, domain.PriceBudget, 10))
	}
	for i := 1; i <= 6; i++ {
		c.Add(tehranPlace(fmt.Sprintf("rest-%d", i), domain.CategoryRestaurant, domain.PriceModerate, 30))
	}
	c.Add(tehranPlace("hotel-1", domain.CategoryHotel, domain.PriceModerate, 1000))
	c.Add(tehranPlace("hotel-2", domain.CategoryGuestHouse, domain.PriceBudget, 500))
	return c
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	f := fixture{
		trips:   memtriprepo.NewRepo(),
		votes:   memvoterepo.NewRepo(),
		catalog: seedCatalog(),
		clock:   memclock.NewManualClock(time.Unix(1_000, 0).UTC()),
	}
	f.svc = trips.NewService(f.trips, f.votes, f.catalog, f.clock)
	return f
}

func (f fixture) generate(t *testing.T, caller domain.MemberID) trips.Itinerary {
	t.Helper()
	it, err := f.svc.Generate(context.Background(), caller, trips.GenerateInput{
		Province:  "Tehran",
		Interests: []string{"history"},
		Budget:    "MODERATE",
		StartDate: may1,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return it
}

func requireKind(t *testing.T, err, kind error) *trips.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
	var ae *trips.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *trips.Error, got %T", err)
	}
	return ae
}

func TestService_Generate_DefaultsToThreeDays(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	it := f.generate(t, "m1")

	if it.Trip.DurationDays != 3 || len(it.Days) != 3 {
		t.Fatalf("duration=%d days=%d", it.Trip.DurationDays, len(it.Days))
	}
	last := it.Days[len(it.Days)-1].Day
	if want := time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC); !last.Date.Equal(want) || !it.Trip.EndDate().Equal(want) {
		t.Fatalf("last day=%s end=%s", last.Date, it.Trip.EndDate())
	}
	for i, d := range it.Days {
		if d.Day.Index != i+1 {
			t.Fatalf("day %d index=%d", i, d.Day.Index)
		}
		if len(d.Items) != 6 {
			t.Fatalf("day %d items=%d", d.Day.Index, len(d.Items))
		}
	}
	if it.Trip.OwnerID == nil || *it.Trip.OwnerID != "m1" {
		t.Fatalf("owner=%v", it.Trip.OwnerID)
	}
	if it.Trip.Status != domain.TripStatusDraft || it.Trip.Title != "Trip to Tehran" {
		t.Fatalf("status=%s title=%q", it.Trip.Status, it.Trip.Title)
	}

	var sum int64
	for _, d := range it.Days {
		for _, item := range d.Items {
			sum += item.EstimatedCost
		}
	}
	if it.Trip.TotalEstimatedCost == nil || *it.Trip.TotalEstimatedCost != sum {
		t.Fatalf("total=%v sum=%d", it.Trip.TotalEstimatedCost, sum)
	}

	stored, err := f.svc.GetTrip(context.Background(), it.Trip.ID)
	if err != nil {
		t.Fatalf("GetTrip: %v", err)
	}
	if stored.ItemCount() != 18 {
		t.Fatalf("stored items=%d", stored.ItemCount())
	}
}

func TestService_Generate_NoRepeatedPlacesWhileSupplyLasts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	it := f.generate(t, "")
	if it.Trip.OwnerID != nil {
		t.Fatalf("guest trip has owner %v", *it.Trip.OwnerID)
	}
	seen := map[domain.PlaceID]int{}
	for _, d := range it.Days {
		for _, item := range d.Items {
			if item.Kind == domain.ItemKindVisit {
				seen[item.PlaceRef]++
			}
		}
	}
	if len(seen) != 6 {
		t.Fatalf("visits used %d distinct places: %v", len(seen), seen)
	}
}

func TestService_Generate_ExplicitEndDateAndValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	end := may1.AddDate(0, 0, 4)
	it, err := f.svc.Generate(ctx, "m1", trips.GenerateInput{Province: "Tehran", StartDate: may1, EndDate: &end})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if it.Trip.DurationDays != 5 {
		t.Fatalf("duration=%d", it.Trip.DurationDays)
	}

	before := may1.AddDate(0, 0, -1)
	cases := map[string]trips.GenerateInput{
		"end before start": {Province: "Tehran", StartDate: may1, EndDate: &before},
		"missing province": {StartDate: may1},
		"bad budget":       {Province: "Tehran", StartDate: may1, Budget: "PLATINUM"},
		"bad style":        {Province: "Tehran", StartDate: may1, TravelStyle: "HERD"},
		"missing start":    {Province: "Tehran"},
	}
	for name, in := range cases {
		_, err := f.svc.Generate(ctx, "m1", in)
		ae := requireKind(t, err, trips.ErrValidation)
		if ae.Status != 422 {
			t.Fatalf("%s: status=%d", name, ae.Status)
		}
	}
}

func TestService_Generate_EmptySupplyYieldsEmptyDays(t *testing.T) {
	t.Parallel()
	svc := trips.NewService(memtriprepo.NewRepo(), memvoterepo.NewRepo(), memplacesupply.NewCatalog(), memclock.NewManualClock(may1))

	it, err := svc.Generate(context.Background(), "", trips.GenerateInput{Province: "Nowhere", StartDate: may1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(it.Days) != 3 || it.ItemCount() != 0 {
		t.Fatalf("days=%d items=%d", len(it.Days), it.ItemCount())
	}
	if it.Trip.TotalEstimatedCost == nil || *it.Trip.TotalEstimatedCost != 0 {
		t.Fatalf("total=%v", it.Trip.TotalEstimatedCost)
	}
}

func TestService_Generate_FillsEveryMealWhenCafesLeadSupply(t *testing.T) {
	t.Parallel()
	c := memplacesupply.NewCatalog()
	for i := 1; i <= 5; i++ {
		c.Add(tehranPlace(fmt.Sprintf("cafe-%d", i), domain.CategoryCafe, domain.PriceBudget, 10))
	}
	for i := 1; i <= 3; i++ {
		c.Add(tehranPlace(fmt.Sprintf("rest-%d", i), domain.CategoryRestaurant, domain.PriceBudget, 30))
	}
	c.Add(tehranPlace("museum-1", domain.CategoryMuseum, domain.PriceBudget, 100))
	c.Add(tehranPlace("hotel-1", domain.CategoryHotel, domain.PriceBudget, 500))
	svc := trips.NewService(memtriprepo.NewRepo(), memvoterepo.NewRepo(), c, memclock.NewManualClock(may1))

	end := may1
	it, err := svc.Generate(context.Background(), "", trips.GenerateInput{Province: "Tehran", Budget: "ECONOMY", StartDate: may1, EndDate: &end})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var meals []string
	for _, item := range it.Days[0].Items {
		if item.Kind == domain.ItemKindMeal {
			meals = append(meals, string(item.PlaceRef))
		}
	}
	want := []string{"cafe-1", "rest-1", "rest-2"}
	if fmt.Sprint(meals) != fmt.Sprint(want) {
		t.Fatalf("meals=%v, want %v", meals, want)
	}
}

func TestService_GetTrip_NotFoundNamesID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.svc.GetTrip(context.Background(), "missing")
	ae := requireKind(t, err, trips.ErrNotFound)
	if ae.Code != "TRIP_NOT_FOUND" || ae.Details["tripId"] != "missing" {
		t.Fatalf("err=%+v", ae)
	}
}

func TestService_Ownership_ClaimAndConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	guest := f.generate(t, "")
	item := guest.Days[0].Items[0]

	// Anyone may edit an unclaimed trip.
	if _, err := f.svc.LockItem(ctx, "m2", item.ID); err != nil {
		t.Fatalf("LockItem on guest trip: %v", err)
	}

	claimed, err := f.svc.Claim(ctx, "m1", guest.Trip.ID)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed.IsOwnedBy("m1") {
		t.Fatalf("owner=%v", claimed.OwnerID)
	}
	if _, err := f.svc.Claim(ctx, "m1", guest.Trip.ID); err != nil {
		t.Fatalf("re-claim by owner: %v", err)
	}

	_, err = f.svc.Claim(ctx, "m2", guest.Trip.ID)
	ae := requireKind(t, err, trips.ErrOwnershipConflict)
	if ae.Status != 403 {
		t.Fatalf("status=%d", ae.Status)
	}
	_, err = f.svc.UnlockItem(ctx, "m2", item.ID)
	requireKind(t, err, trips.ErrOwnershipConflict)
	_, err = f.svc.UnlockItem(ctx, "", item.ID)
	requireKind(t, err, trips.ErrOwnershipConflict)

	_, err = f.svc.Claim(ctx, "", guest.Trip.ID)
	requireKind(t, err, trips.ErrValidation)

	mine, err := f.svc.ListMyTrips(ctx, "m1")
	if err != nil || len(mine) != 1 || mine[0].ID != guest.Trip.ID {
		t.Fatalf("mine=%v err=%v", mine, err)
	}
}

func TestService_Finalize_Idempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	it := f.generate(t, "m1")

	for i := 0; i < 2; i++ {
		got, err := f.svc.Finalize(ctx, "m1", it.Trip.ID)
		if err != nil {
			t.Fatalf("Finalize #%d: %v", i, err)
		}
		if got.Status != domain.TripStatusFinalized {
			t.Fatalf("status=%s", got.Status)
		}
	}
	_, err := f.svc.Finalize(ctx, "m2", it.Trip.ID)
	requireKind(t, err, trips.ErrOwnershipConflict)
}

func TestService_DeleteTrip_RemovesGraphAndVotes(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	it := f.generate(t, "m1")
	item := it.Days[0].Items[0]

	if err := f.votes.Upsert(ctx, domain.Vote{ItemID: item.ID, SessionID: "s1", Upvote: true, UpdatedAt: may1}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := f.svc.DeleteTrip(ctx, "m2", it.Trip.ID); !errors.Is(err, trips.ErrOwnershipConflict) {
		t.Fatalf("delete by stranger: %v", err)
	}
	if err := f.svc.DeleteTrip(ctx, "m1", it.Trip.ID); err != nil {
		t.Fatalf("DeleteTrip: %v", err)
	}

	_, err := f.svc.GetTrip(ctx, it.Trip.ID)
	requireKind(t, err, trips.ErrNotFound)
	if _, err := f.trips.GetItem(ctx, item.ID); err == nil {
		t.Fatalf("item survived trip delete")
	}
	votes, err := f.votes.ListByItem(ctx, item.ID)
	if err != nil || len(votes) != 0 {
		t.Fatalf("votes=%v err=%v", votes, err)
	}
}

func TestService_RecalculateCost_RepairsStaleTotal(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	it := f.generate(t, "m1")

	stale := it.Trip
	bogus := int64(1)
	stale.TotalEstimatedCost = &bogus
	if err := f.trips.SaveTrip(ctx, stale); err != nil {
		t.Fatalf("SaveTrip: %v", err)
	}

	got, err := f.svc.RecalculateCost(ctx, "m1", it.Trip.ID)
	if err != nil {
		t.Fatalf("RecalculateCost: %v", err)
	}
	if got.TotalEstimatedCost == nil || *got.TotalEstimatedCost != *it.Trip.TotalEstimatedCost {
		t.Fatalf("total=%v want %d", got.TotalEstimatedCost, *it.Trip.TotalEstimatedCost)
	}
}
