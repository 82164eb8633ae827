package itest

import (
	"net/http"
	"sync"
	"testing"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/httpapi"
)

func TestPlannerFlow(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		b := b
		t.Run(string(b), func(t *testing.T) {
			s := newTestServer(t, b)

			gen := map[string]any{
				"province":    "Fars",
				"interests":   []string{"history"},
				"budget":      "economy",
				"travelStyle": "couple",
				"startDate":   "2026-03-20",
				"endDate":     "2026-03-22",
			}
			status, body, _ := s.doJSON(t, http.MethodPost, "/trips/generate", "", gen, "Idempotency-Key", "k-1")
			requireStatus(t, status, body, http.StatusCreated)
			it := mustUnmarshal[httpapi.ItineraryResponse](t, body).Itinerary
			if len(it.Days) != 3 {
				t.Fatalf("days=%d want 3", len(it.Days))
			}
			if it.Trip.Budget != "ECONOMY" || it.Trip.TravelStyle != "COUPLE" {
				t.Fatalf("budget/style not normalized: %+v", it.Trip)
			}

			status, body, hdr := s.doJSON(t, http.MethodPost, "/trips/generate", "", gen, "Idempotency-Key", "k-1")
			requireStatus(t, status, body, http.StatusCreated)
			requireHeaderPresent(t, hdr, "Idempotent-Replayed")
			if again := mustUnmarshal[httpapi.ItineraryResponse](t, body).Itinerary; again.Trip.ID != it.Trip.ID {
				t.Fatalf("replay returned trip %s want %s", again.Trip.ID, it.Trip.ID)
			}

			tripPath := "/trips/" + it.Trip.ID
			status, body, _ = s.doJSON(t, http.MethodPost, tripPath+"/claim", "alice", nil)
			requireStatus(t, status, body, http.StatusOK)

			day := it.Days[0]
			if len(day.Items) < 2 {
				t.Fatalf("day 1 has %d items", len(day.Items))
			}
			a, c := day.Items[0], day.Items[1]

			status, body, _ = s.doJSON(t, http.MethodPost, "/items/"+c.ID+"/dependencies", "mallory", map[string]any{"prerequisiteId": a.ID})
			requireErrorCode(t, status, body, http.StatusForbidden, "OWNERSHIP_CONFLICT")

			status, body, _ = s.doJSON(t, http.MethodPost, "/items/"+c.ID+"/dependencies", "alice", map[string]any{"prerequisiteId": a.ID})
			requireStatus(t, status, body, http.StatusCreated)
			status, body, _ = s.doJSON(t, http.MethodPost, "/items/"+a.ID+"/dependencies", "alice", map[string]any{"prerequisiteId": c.ID})
			requireErrorCode(t, status, body, http.StatusConflict, "DEPENDENCY_CYCLE")

			// Concurrent writers on one trip all land.
			var wg sync.WaitGroup
			errs := make(chan string, len(day.Items))
			for i, item := range day.Items {
				wg.Add(1)
				go func(i int, id string) {
					defer wg.Done()
					st, b, _ := s.doJSON(t, http.MethodPatch, "/items/"+id, "alice", map[string]any{"estimatedCost": 100 + i})
					if st != http.StatusOK {
						errs <- string(b)
					}
				}(i, item.ID)
			}
			wg.Wait()
			close(errs)
			for e := range errs {
				t.Fatalf("concurrent patch failed: %s", e)
			}

			status, body, _ = s.doJSON(t, http.MethodPost, tripPath+"/recalculate", "alice", nil)
			requireStatus(t, status, body, http.StatusOK)
			trip := mustUnmarshal[httpapi.TripResponse](t, body).Trip
			total, err := trip.TotalEstimatedCost.Get()
			if err != nil {
				t.Fatalf("total missing: %v", err)
			}
			var want int64
			for i := range day.Items {
				want += int64(100 + i)
			}
			for _, d := range it.Days[1:] {
				for _, item := range d.Items {
					want += item.EstimatedCost
				}
			}
			if total != want {
				t.Fatalf("total=%d want %d", total, want)
			}

			status, body, _ = s.doJSON(t, http.MethodPut, "/items/"+a.ID+"/votes", "", map[string]any{"upvote": true}, "X-Session-Id", "sess-1")
			requireStatus(t, status, body, http.StatusOK)

			status, body, _ = s.doJSON(t, http.MethodPost, tripPath+"/clone", "bob", map[string]any{"preserveDependencies": true})
			requireStatus(t, status, body, http.StatusCreated)
			cp := mustUnmarshal[httpapi.ItineraryResponse](t, body).Itinerary
			if len(cp.Dependencies) != 1 {
				t.Fatalf("clone deps=%d want 1", len(cp.Dependencies))
			}

			status, body, _ = s.doJSON(t, http.MethodDelete, tripPath, "alice", nil)
			requireStatus(t, status, body, http.StatusNoContent)
			status, body, _ = s.doJSON(t, http.MethodGet, "/items/"+a.ID+"/votes", "", nil)
			requireErrorCode(t, status, body, http.StatusNotFound, "ITEM_NOT_FOUND")

			status, body, _ = s.doJSON(t, http.MethodGet, "/trips/"+cp.Trip.ID, "", nil)
			requireStatus(t, status, body, http.StatusOK)
		})
	}
}
