package itest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/httpapi"
	memclock "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/clock"
	memidempotency "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/idempotency"
	memplacesupply "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/placesupply"
	memtriprepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/triprepo"
	memvoterepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/voterepo"
	pgidempotency "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/triprepo"
	pgvoterepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/voterepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/sqlite"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/votes"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
	triprepoport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
	voterepoport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendSQLite   backend = "sqlite"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "":
		return []backend{backendMemory, backendSQLite}
	case "memory":
		return []backend{backendMemory}
	case "sqlite":
		return []backend{backendSQLite}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendSQLite, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|sqlite|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
}

func fp(v float64) *float64 { return &v }

func seedCatalog() *memplacesupply.Catalog {
	c := memplacesupply.NewCatalog()
	for i := 1; i <= 8; i++ {
		c.Add(domain.Place{
			ID: domain.PlaceID(fmt.Sprintf("ruins-%d", i)), Title: fmt.Sprintf("Ruins %d", i),
			Category: domain.CategoryRuins, PriceTier: domain.PriceFree, Province: "Fars",
			Lat: fp(29.9 + float64(i)/100), Lng: fp(52.9), EntryFee: 0,
		})
	}
	for i := 1; i <= 4; i++ {
		c.Add(domain.Place{
			ID: domain.PlaceID(fmt.Sprintf("kabab-%d", i)), Title: fmt.Sprintf("Kabab %d", i),
			Category: domain.CategoryTraditional, PriceTier: domain.PriceBudget, Province: "Fars", EntryFee: 15,
		})
	}
	c.Add(domain.Place{
		ID: "guest-house", Title: "Guest House", Category: domain.CategoryGuestHouse,
		PriceTier: domain.PriceBudget, Province: "Fars", EntryFee: 40,
	})
	return c
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	const issuer = "itest-issuer"
	clk := memclock.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		tripRepo  triprepoport.Repository
		voteRepo  voterepoport.Repository
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		tripRepo = pgtriprepo.NewRepo(pool)
		voteRepo = pgvoterepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, issuer)
	case backendSQLite:
		db, err := sqlite.Open(":memory:")
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })
		tripRepo = sqlite.NewTripRepo(db)
		voteRepo = sqlite.NewVoteRepo(db)
		idemStore = sqlite.NewIdempotencyStore(db)
	case backendMemory:
		tripRepo = memtriprepo.NewRepo()
		voteRepo = memvoterepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	tripSvc := trips.NewService(tripRepo, voteRepo, seedCatalog(), clk)
	voteSvc := votes.NewService(tripRepo, voteRepo, clk)
	api := httpapi.NewServer(tripSvc, voteSvc, idemStore, clk, nil)

	// Empty default subject: requests without X-Debug-Subject run as guests.
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: httpapi.NewDevAuthMiddleware("")})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
	if got.Error.RequestID == "" {
		t.Fatalf("expected requestId in error body=%s", string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
