package triprepo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/testutil"
	triprepoport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
)

func TestContract_PostgresTripRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunTripRepo(t, func(t *testing.T) (triprepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}

func TestContract_PostgresTripRepoUnitOfWork(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunTripRepoUnitOfWork(t, func(t *testing.T) (triprepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}

func TestRepo_WithinTripSerializesWriters(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	p := contracttest.SamplePlan(nil, time.Now().UTC())
	require.NoError(t, repo.CreatePlan(ctx, p))
	t.Cleanup(func() { _ = repo.DeleteTrip(context.Background(), p.Trip.ID) })

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.WithinTrip(ctx, p.Trip.ID, func(ctx context.Context, s triprepoport.Store) error {
				it, err := s.GetItem(ctx, p.Items[0].ID)
				if err != nil {
					return err
				}
				it.SortOrder++
				return s.SaveItem(ctx, it)
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	it, err := repo.GetItem(ctx, p.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, p.Items[0].SortOrder+workers, it.SortOrder)
}

func TestRepo_InvalidIDsAreNotFound(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	repo := NewRepo(pool)
	ctx := context.Background()

	_, err := repo.GetTrip(ctx, "not-a-uuid")
	require.ErrorIs(t, err, triprepoport.ErrTripNotFound)
	_, err = repo.GetItem(ctx, "not-a-uuid")
	require.ErrorIs(t, err, triprepoport.ErrItemNotFound)
	require.ErrorIs(t, repo.DeleteDependency(ctx, "not-a-uuid"), triprepoport.ErrDependencyNotFound)
}
