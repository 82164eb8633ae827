package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/idempotency"
	memplacesupply "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/placesupply"
	memtriprepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/triprepo"
	memvoterepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/voterepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/votes"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

func fp(v float64) *float64 { return &v }

func testCatalog() *memplacesupply.Catalog {
	c := memplacesupply.NewCatalog()
	add := func(id string, cat domain.Category, tier domain.PriceTier, fee int64, lat float64) {
		c.Add(domain.Place{
			ID:        domain.PlaceID(id),
			Title:     "Place " + id,
			Category:  cat,
			PriceTier: tier,
			Province:  "Isfahan",
			City:      "Isfahan",
			Lat:       fp(lat),
			Lng:       fp(51.6),
			EntryFee:  fee,
		})
	}
	for i := 1; i <= 8; i++ {
		add(fmt.Sprintf("museum-%d", i), domain.CategoryMuseum, domain.PriceBudget, 100, 32.6+float64(i)/100)
	}
	for i := 1; i <= 3; i++ {
		add(fmt.Sprintf("cafe-%d", i), domain.CategoryCafe, domain.PriceBudget, 10, 32.6)
	}
	for i := 1; i <= 6; i++ {
		add(fmt.Sprintf("rest-%d", i), domain.CategoryRestaurant, domain.PriceModerate, 30, 32.6)
	}
	add("hotel-1", domain.CategoryHotel, domain.PriceModerate, 1000, 32.6)
	return c
}

type apiFixture struct {
	h     http.Handler
	clock *memclock.ManualClock
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))
	tripRepo := memtriprepo.NewRepo()
	voteRepo := memvoterepo.NewRepo()
	tripSvc := trips.NewService(tripRepo, voteRepo, testCatalog(), clk)
	voteSvc := votes.NewService(tripRepo, voteRepo, clk)

	api := NewServer(tripSvc, voteSvc, memidempotency.NewStore(), clk, nil)
	h := NewRouterWithOptions(api, RouterOptions{AuthMiddleware: NewDevAuthMiddleware("")})
	return apiFixture{h: h, clock: clk}
}

type call struct {
	method  string
	path    string
	subject string
	body    any
	header  map[string]string
}

func (f apiFixture) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		if raw, ok := c.body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.subject != "" {
		req.Header.Set("X-Debug-Subject", c.subject)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body=%s", rec.Body.String())
	return out
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorResponse {
	t.Helper()
	require.Equal(t, status, rec.Code, "body=%s", rec.Body.String())
	er := decode[ErrorResponse](t, rec)
	require.Equal(t, code, er.Error.Code)
	return er
}

var generateBody = map[string]any{
	"province":  "Isfahan",
	"interests": []string{"history"},
	"budget":    "MODERATE",
	"startDate": "2026-05-01",
	"endDate":   "2026-05-02",
}

func (f apiFixture) generate(t *testing.T, subject string) Itinerary {
	t.Helper()
	rec := f.do(t, call{method: http.MethodPost, path: "/trips/generate", subject: subject, body: generateBody})
	require.Equal(t, http.StatusCreated, rec.Code, "body=%s", rec.Body.String())
	return decode[ItineraryResponse](t, rec).Itinerary
}

func TestGenerateTrip_GuestGetsUnownedItinerary(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	it := f.generate(t, "")

	assert.True(t, it.Trip.OwnerID.IsNull())
	assert.Equal(t, "Trip to Isfahan", it.Trip.Title)
	assert.Equal(t, "DRAFT", it.Trip.Status)
	assert.Equal(t, 2, it.Trip.DurationDays)
	require.Len(t, it.Days, 2)
	assert.Equal(t, "2026-05-01", it.Days[0].Date.String())
	require.NotEmpty(t, it.Days[0].Items)
	for i, item := range it.Days[0].Items {
		assert.Equal(t, i+1, item.SortOrder)
		assert.False(t, item.Locked)
	}
	first := it.Days[0].Items[0]
	assert.Equal(t, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), first.StartAt)
}

func TestGenerateTrip_Validation(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rec := f.do(t, call{method: http.MethodPost, path: "/trips/generate", body: map[string]any{"province": "Isfahan"}})
	er := requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	details, err := er.Error.Details.Get()
	require.NoError(t, err)
	assert.Contains(t, details, "startDate")

	rec = f.do(t, call{method: http.MethodPost, path: "/trips/generate", body: "{"})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestGenerateTrip_IdempotencyKeyReplaysFirstResponse(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	hdr := map[string]string{"Idempotency-Key": "gen-1"}

	first := f.do(t, call{method: http.MethodPost, path: "/trips/generate", subject: "alice", body: generateBody, header: hdr})
	require.Equal(t, http.StatusCreated, first.Code)
	second := f.do(t, call{method: http.MethodPost, path: "/trips/generate", subject: "alice", body: generateBody, header: hdr})
	require.Equal(t, http.StatusCreated, second.Code)

	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t,
		decode[ItineraryResponse](t, first).Itinerary.Trip.ID,
		decode[ItineraryResponse](t, second).Itinerary.Trip.ID)

	mine := decode[TripsResponse](t, f.do(t, call{method: http.MethodGet, path: "/trips/mine", subject: "alice"}))
	assert.Len(t, mine.Trips, 1)

	changed := map[string]any{"province": "Isfahan", "startDate": "2026-06-01"}
	rec := f.do(t, call{method: http.MethodPost, path: "/trips/generate", subject: "alice", body: changed, header: hdr})
	requireErrorCode(t, rec, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")

	// Keys are scoped per subject.
	rec = f.do(t, call{method: http.MethodPost, path: "/trips/generate", subject: "bob", body: generateBody, header: hdr})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, rec.Header().Get("Idempotent-Replayed"))
}

func TestGetTrip_NotFoundCarriesRequestID(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)

	rec := f.do(t, call{method: http.MethodGet, path: "/trips/nope"})
	er := requireErrorCode(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")
	rid, err := er.Error.RequestID.Get()
	require.NoError(t, err)
	assert.NotEmpty(t, rid)
}

func TestTripLifecycle_ClaimFinalizeDelete(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "")
	base := "/trips/" + it.Trip.ID

	rec := f.do(t, call{method: http.MethodPost, path: base + "/claim"})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = f.do(t, call{method: http.MethodPost, path: base + "/claim", subject: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)
	owner, err := decode[TripResponse](t, rec).Trip.OwnerID.Get()
	require.NoError(t, err)
	assert.Equal(t, "alice", owner)

	rec = f.do(t, call{method: http.MethodPost, path: base + "/claim", subject: "bob"})
	requireErrorCode(t, rec, http.StatusForbidden, "OWNERSHIP_CONFLICT")
	rec = f.do(t, call{method: http.MethodPost, path: base + "/finalize", subject: "bob"})
	requireErrorCode(t, rec, http.StatusForbidden, "OWNERSHIP_CONFLICT")

	for i := 0; i < 2; i++ {
		rec = f.do(t, call{method: http.MethodPost, path: base + "/finalize", subject: "alice"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "FINALIZED", decode[TripResponse](t, rec).Trip.Status)
	}

	mine := decode[TripsResponse](t, f.do(t, call{method: http.MethodGet, path: "/trips/mine", subject: "alice"}))
	require.Len(t, mine.Trips, 1)
	assert.Equal(t, it.Trip.ID, mine.Trips[0].ID)

	guest := decode[TripsResponse](t, f.do(t, call{method: http.MethodGet, path: "/trips/mine"}))
	assert.Empty(t, guest.Trips)

	rec = f.do(t, call{method: http.MethodDelete, path: base, subject: "alice"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, call{method: http.MethodGet, path: base})
	requireErrorCode(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")
}

func TestCloneTrip_CopiesIntoCallersDraft(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	src := f.generate(t, "alice")
	items := src.Days[0].Items
	require.GreaterOrEqual(t, len(items), 2)

	rec := f.do(t, call{method: http.MethodPost, path: "/items/" + items[1].ID + "/dependencies", subject: "alice",
		body: map[string]any{"prerequisiteId": items[0].ID}})
	require.Equal(t, http.StatusCreated, rec.Code, "body=%s", rec.Body.String())
	rec = f.do(t, call{method: http.MethodPost, path: "/items/" + items[0].ID + "/lock", subject: "alice"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, call{method: http.MethodPost, path: "/trips/" + src.Trip.ID + "/clone", subject: "bob",
		body: map[string]any{"preserveDependencies": true}})
	require.Equal(t, http.StatusCreated, rec.Code, "body=%s", rec.Body.String())
	cp := decode[ItineraryResponse](t, rec).Itinerary

	assert.NotEqual(t, src.Trip.ID, cp.Trip.ID)
	assert.Equal(t, src.Trip.Title+" (Copy)", cp.Trip.Title)
	owner, err := cp.Trip.OwnerID.Get()
	require.NoError(t, err)
	assert.Equal(t, "bob", owner)
	from, err := cp.Trip.CopiedFrom.Get()
	require.NoError(t, err)
	assert.Equal(t, src.Trip.ID, from)
	require.Len(t, cp.Dependencies, 1)
	assert.Equal(t, cp.Days[0].Items[1].ID, cp.Dependencies[0].DependentID)
	assert.Equal(t, cp.Days[0].Items[0].ID, cp.Dependencies[0].PrerequisiteID)
	assert.False(t, cp.Days[0].Items[0].Locked)

	// No body means edges are not copied.
	rec = f.do(t, call{method: http.MethodPost, path: "/trips/" + src.Trip.ID + "/clone"})
	require.Equal(t, http.StatusCreated, rec.Code, "body=%s", rec.Body.String())
	assert.Empty(t, decode[ItineraryResponse](t, rec).Itinerary.Dependencies)
}

func TestUpdateItem_LockedWindowIsConflict(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "")
	item := it.Days[0].Items[0]
	path := "/items/" + item.ID

	rec := f.do(t, call{method: http.MethodPost, path: path + "/lock"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[ItemResponse](t, rec).Item.Locked)

	rec = f.do(t, call{method: http.MethodPatch, path: path, body: map[string]any{"startAt": item.StartAt.Add(-time.Hour)}})
	er := requireErrorCode(t, rec, http.StatusConflict, "ITEM_LOCKED")
	details, err := er.Error.Details.Get()
	require.NoError(t, err)
	assert.Equal(t, item.ID, details["itemId"])

	rec = f.do(t, call{method: http.MethodPatch, path: path, body: map[string]any{"notes": "bring cash", "estimatedCost": 55}})
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	updated := decode[ItemUpdatedResponse](t, rec)
	assert.Equal(t, "bring cash", updated.Item.Notes)
	assert.Equal(t, int64(55), updated.Item.EstimatedCost)
	assert.Empty(t, updated.Violations)

	rec = f.do(t, call{method: http.MethodPost, path: path + "/unlock"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, call{method: http.MethodPatch, path: path, body: map[string]any{"title": nil}})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestUpdateItem_ReportsViolatedDependencies(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "")
	items := it.Days[0].Items
	pre, dep := items[0], items[1]

	rec := f.do(t, call{method: http.MethodPost, path: "/items/" + dep.ID + "/dependencies",
		body: map[string]any{"prerequisiteId": pre.ID, "action": "block"}})
	require.Equal(t, http.StatusCreated, rec.Code, "body=%s", rec.Body.String())
	assert.Equal(t, "BLOCK", decode[DependencyResponse](t, rec).Dependency.Action)

	rec = f.do(t, call{method: http.MethodPatch, path: "/items/" + pre.ID, body: map[string]any{
		"endAt": dep.StartAt.Add(30 * time.Minute),
	}})
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	updated := decode[ItemUpdatedResponse](t, rec)
	require.Len(t, updated.Violations, 1)
	assert.Equal(t, dep.ID, updated.Violations[0].Dependency.DependentID)

	vs := decode[ViolationsResponse](t, f.do(t, call{method: http.MethodGet, path: "/trips/" + it.Trip.ID + "/violations"}))
	assert.Len(t, vs.Violations, 1)
}

func TestDependencies_CycleSelfLoopAndRemoval(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "")
	a, b := it.Days[0].Items[0], it.Days[0].Items[1]

	rec := f.do(t, call{method: http.MethodPost, path: "/items/" + b.ID + "/dependencies", body: map[string]any{"prerequisiteId": a.ID}})
	require.Equal(t, http.StatusCreated, rec.Code)
	d := decode[DependencyResponse](t, rec).Dependency
	assert.Equal(t, "WARN", d.Action)
	assert.Equal(t, "FINISH_TO_START", d.Type)

	rec = f.do(t, call{method: http.MethodPost, path: "/items/" + a.ID + "/dependencies", body: map[string]any{"prerequisiteId": b.ID}})
	requireErrorCode(t, rec, http.StatusConflict, "DEPENDENCY_CYCLE")

	rec = f.do(t, call{method: http.MethodPost, path: "/items/" + a.ID + "/dependencies", body: map[string]any{"prerequisiteId": a.ID}})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = f.do(t, call{method: http.MethodDelete, path: "/dependencies/" + d.ID})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, call{method: http.MethodDelete, path: "/dependencies/" + d.ID})
	requireErrorCode(t, rec, http.StatusNotFound, "DEPENDENCY_NOT_FOUND")

	rec = f.do(t, call{method: http.MethodPost, path: "/items/" + a.ID + "/dependencies", body: map[string]any{"prerequisiteId": b.ID}})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestReorderDay_AssignsSequentialPositions(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "")
	day := it.Days[0]

	order := make([]string, 0, len(day.Items))
	for i := len(day.Items) - 1; i >= 0; i-- {
		order = append(order, day.Items[i].ID)
	}
	rec := f.do(t, call{method: http.MethodPut, path: "/days/" + day.ID + "/order", body: map[string]any{"itemIds": order}})
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	got := decode[ItemsResponse](t, rec).Items
	require.Len(t, got, len(order))
	for i, item := range got {
		assert.Equal(t, order[i], item.ID)
		assert.Equal(t, i+1, item.SortOrder)
	}

	rec = f.do(t, call{method: http.MethodPut, path: "/days/" + day.ID + "/order", body: map[string]any{"itemIds": []string{}}})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	rec = f.do(t, call{method: http.MethodPut, path: "/days/missing/order", body: map[string]any{"itemIds": order}})
	requireErrorCode(t, rec, http.StatusNotFound, "DAY_NOT_FOUND")
}

func TestAlternativesAndReplace(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "")

	var visit Item
	for _, item := range it.Days[0].Items {
		if item.Category == string(domain.CategoryMuseum) {
			visit = item
			break
		}
	}
	require.NotEmpty(t, visit.ID)

	rec := f.do(t, call{method: http.MethodGet, path: "/items/" + visit.ID + "/alternatives?limit=abc"})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	rec = f.do(t, call{method: http.MethodGet, path: "/items/" + visit.ID + "/alternatives?limit=-1"})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rec = f.do(t, call{method: http.MethodGet, path: "/items/" + visit.ID + "/alternatives?limit=2"})
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	places := decode[PlacesResponse](t, rec).Places
	require.NotEmpty(t, places)
	require.LessOrEqual(t, len(places), 2)
	for _, p := range places {
		assert.Equal(t, string(domain.CategoryMuseum), p.Category)
		assert.NotEqual(t, visit.PlaceID, p.PlaceID)
	}

	rec = f.do(t, call{method: http.MethodPost, path: "/items/" + visit.ID + "/replace", body: ReplaceItemRequest{Place: places[0]}})
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	replaced := decode[ItemResponse](t, rec).Item
	assert.Equal(t, places[0].PlaceID, replaced.PlaceID)
	assert.Equal(t, visit.StartAt, replaced.StartAt)
	assert.Equal(t, visit.SortOrder, replaced.SortOrder)
}

func TestVotes_SessionScopedUpsert(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "")
	item := it.Days[0].Items[0]
	path := "/items/" + item.ID + "/votes"

	rec := f.do(t, call{method: http.MethodPut, path: path, body: map[string]any{"upvote": true}})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	rec = f.do(t, call{method: http.MethodPut, path: path, body: map[string]any{}, header: map[string]string{sessionHeader: "s1"}})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	for _, c := range []struct {
		session string
		upvote  bool
	}{{"s1", true}, {"s2", true}, {"s2", false}, {"s3", false}} {
		rec = f.do(t, call{method: http.MethodPut, path: path, body: map[string]any{"upvote": c.upvote}, header: map[string]string{sessionHeader: c.session}})
		require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	}

	rec = f.do(t, call{method: http.MethodGet, path: path, header: map[string]string{sessionHeader: "s2"}})
	require.Equal(t, http.StatusOK, rec.Code)
	iv := decode[ItemVotes](t, rec)
	assert.Equal(t, VoteSummary{ItemID: item.ID, Up: 1, Down: 2}, iv.Summary)
	mine, err := iv.MyVote.Get()
	require.NoError(t, err)
	assert.False(t, mine)

	rec = f.do(t, call{method: http.MethodDelete, path: path, header: map[string]string{sessionHeader: "s3"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, VoteSummary{ItemID: item.ID, Up: 1, Down: 1}, decode[VoteSummary](t, rec))

	sums := decode[VoteSummariesResponse](t, f.do(t, call{method: http.MethodGet, path: "/trips/" + it.Trip.ID + "/votes"}))
	require.Len(t, sums.Votes, countItems(it))
	assert.Equal(t, item.ID, sums.Votes[0].ItemID)

	rec = f.do(t, call{method: http.MethodDelete, path: "/items/" + item.ID})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, call{method: http.MethodGet, path: path})
	requireErrorCode(t, rec, http.StatusNotFound, "ITEM_NOT_FOUND")
}

func countItems(it Itinerary) int {
	n := 0
	for _, d := range it.Days {
		n += len(d.Items)
	}
	return n
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	rec := f.do(t, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestUpdateTrip_PatchesAndClearsOrigin(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "alice")
	base := "/trips/" + it.Trip.ID

	rec := f.do(t, call{method: http.MethodPatch, path: base, subject: "alice", body: map[string]any{
		"title":       "Isfahan weekend",
		"origin":      "Tehran",
		"travelStyle": "friends",
	}})
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	got := decode[TripResponse](t, rec).Trip
	assert.Equal(t, "Isfahan weekend", got.Title)
	assert.Equal(t, "Tehran", got.Origin)
	assert.Equal(t, "FRIENDS", got.TravelStyle)

	rec = f.do(t, call{method: http.MethodPatch, path: base, subject: "alice", body: `{"origin":null}`})
	require.Equal(t, http.StatusOK, rec.Code, "body=%s", rec.Body.String())
	got = decode[TripResponse](t, rec).Trip
	assert.Empty(t, got.Origin)
	assert.Equal(t, "Isfahan weekend", got.Title)

	rec = f.do(t, call{method: http.MethodPatch, path: base, subject: "alice", body: `{"title":null}`})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	rec = f.do(t, call{method: http.MethodPatch, path: base, subject: "bob", body: map[string]any{"title": "Mine"}})
	requireErrorCode(t, rec, http.StatusForbidden, "OWNERSHIP_CONFLICT")
	rec = f.do(t, call{method: http.MethodPatch, path: "/trips/missing", subject: "alice", body: map[string]any{"title": "x"}})
	requireErrorCode(t, rec, http.StatusNotFound, "TRIP_NOT_FOUND")
}

func TestDays_AddThenDeleteReindexes(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "")
	require.Len(t, it.Days, 2)

	rec := f.do(t, call{method: http.MethodPost, path: "/trips/" + it.Trip.ID + "/days"})
	require.Equal(t, http.StatusCreated, rec.Code, "body=%s", rec.Body.String())
	added := decode[DayResponse](t, rec).Day
	assert.Equal(t, 3, added.Index)
	assert.Equal(t, "2026-05-03", added.Date.Time.Format("2006-01-02"))
	assert.Empty(t, added.Items)

	rec = f.do(t, call{method: http.MethodDelete, path: "/days/" + it.Days[0].ID})
	require.Equal(t, http.StatusNoContent, rec.Code, "body=%s", rec.Body.String())

	got := decode[ItineraryResponse](t, f.do(t, call{method: http.MethodGet, path: "/trips/" + it.Trip.ID})).Itinerary
	require.Len(t, got.Days, 2)
	assert.Equal(t, it.Days[1].ID, got.Days[0].ID)
	assert.Equal(t, 1, got.Days[0].Index)
	assert.Equal(t, "2026-05-01", got.Days[0].Date.Time.Format("2006-01-02"))
	assert.Equal(t, added.ID, got.Days[1].ID)
	assert.Equal(t, 2, got.Trip.DurationDays)

	rec = f.do(t, call{method: http.MethodDelete, path: "/days/" + it.Days[0].ID})
	requireErrorCode(t, rec, http.StatusNotFound, "DAY_NOT_FOUND")
	rec = f.do(t, call{method: http.MethodDelete, path: "/days/" + added.ID})
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, call{method: http.MethodDelete, path: "/days/" + it.Days[1].ID})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
}

func TestAddItem_AppendsToDay(t *testing.T) {
	t.Parallel()
	f := newAPIFixture(t)
	it := f.generate(t, "")
	day := it.Days[0]
	last := day.Items[len(day.Items)-1]

	body := map[string]any{
		"kind":    "visit",
		"place":   map[string]any{"placeId": "garden-1", "title": "Hasht Behesht", "category": "park", "priceTier": "BUDGET", "latitude": 32.65, "longitude": 51.67, "entryFee": 250},
		"startAt": "2026-05-01T20:00:00Z",
		"endAt":   "2026-05-01T21:00:00Z",
		"notes":   "evening walk",
	}
	rec := f.do(t, call{method: http.MethodPost, path: "/days/" + day.ID + "/items", body: body})
	require.Equal(t, http.StatusCreated, rec.Code, "body=%s", rec.Body.String())
	got := decode[ItemResponse](t, rec).Item
	assert.Equal(t, "VISIT", got.Kind)
	assert.Equal(t, "garden-1", got.PlaceID)
	assert.Equal(t, last.SortOrder+1, got.SortOrder)
	assert.Equal(t, int64(60), got.DurationMinutes)
	assert.Equal(t, "evening walk", got.Notes)

	trip := decode[ItineraryResponse](t, f.do(t, call{method: http.MethodGet, path: "/trips/" + it.Trip.ID})).Itinerary.Trip
	total, err := trip.TotalEstimatedCost.Get()
	require.NoError(t, err)
	before, err := it.Trip.TotalEstimatedCost.Get()
	require.NoError(t, err)
	assert.Equal(t, before+250, total)

	body["endAt"] = "2026-05-01T19:00:00Z"
	rec = f.do(t, call{method: http.MethodPost, path: "/days/" + day.ID + "/items", body: body})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, "VALIDATION_ERROR")
	rec = f.do(t, call{method: http.MethodPost, path: "/days/missing/items", body: map[string]any{
		"place":   map[string]any{"placeId": "garden-1"},
		"startAt": "2026-05-01T20:00:00Z",
		"endAt":   "2026-05-01T21:00:00Z",
	}})
	requireErrorCode(t, rec, http.StatusNotFound, "DAY_NOT_FOUND")
}
