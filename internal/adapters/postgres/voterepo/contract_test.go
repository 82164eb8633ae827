package voterepo

import (
	"testing"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/testutil"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/triprepo"
	triprepoport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
	voterepoport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

func TestContract_PostgresVoteRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunVoteRepo(
		t,
		func(t *testing.T) (triprepoport.Repository, func()) {
			t.Helper()
			return triprepo.NewRepo(pool), nil
		},
		func(t *testing.T) (voterepoport.Repository, func()) {
			t.Helper()
			return NewRepo(pool), nil
		},
	)
}
