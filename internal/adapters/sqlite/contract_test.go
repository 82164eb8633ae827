package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
	triprepoport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
	voterepoport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

// newTestDB creates an in-memory database with all migrations applied.
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("creating test db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("closing test db: %v", err)
		}
	})
	return db
}

func TestContract_SQLiteTripRepo(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	contracttest.RunTripRepo(t, func(t *testing.T) (triprepoport.Repository, func()) {
		t.Helper()
		return NewTripRepo(db), nil
	})
}

func TestContract_SQLiteTripRepoUnitOfWork(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	contracttest.RunTripRepoUnitOfWork(t, func(t *testing.T) (triprepoport.Repository, func()) {
		t.Helper()
		return NewTripRepo(db), nil
	})
}

func TestContract_SQLiteVoteRepo(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	contracttest.RunVoteRepo(
		t,
		func(t *testing.T) (triprepoport.Repository, func()) {
			t.Helper()
			return NewTripRepo(db), nil
		},
		func(t *testing.T) (voterepoport.Repository, func()) {
			t.Helper()
			return NewVoteRepo(db), nil
		},
	)
}

func TestContract_SQLiteIdempotencyStore(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewIdempotencyStore(db), nil
	})
}

func TestOpen_ReopenKeepsDataAndSkipsApplied(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "planner.db")
	ctx := context.Background()

	db, err := Open(path)
	require.NoError(t, err)
	p := contracttest.SamplePlan(nil, time.Unix(100, 0).UTC())
	require.NoError(t, NewTripRepo(db).CreatePlan(ctx, p))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var version int
	require.NoError(t, db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, len(migrations), version)

	got, err := NewTripRepo(db).GetPlan(ctx, p.Trip.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 3)
}

func TestTripRepo_WithinTripSerializesWriters(t *testing.T) {
	t.Parallel()
	repo := NewTripRepo(newTestDB(t))
	ctx := context.Background()

	p := contracttest.SamplePlan(nil, time.Unix(200, 0).UTC())
	require.NoError(t, repo.CreatePlan(ctx, p))

	const workers = 10
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.WithinTrip(ctx, p.Trip.ID, func(ctx context.Context, s triprepoport.Store) error {
				it, err := s.GetItem(ctx, p.Items[0].ID)
				if err != nil {
					return err
				}
				it.SortOrder++
				return s.SaveItem(ctx, it)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	it, err := repo.GetItem(ctx, p.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, p.Items[0].SortOrder+workers, it.SortOrder)
}

func TestTripRepo_DeleteItemDropsVotes(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	trips, votes := NewTripRepo(db), NewVoteRepo(db)
	ctx := context.Background()

	p := contracttest.SamplePlan(nil, time.Unix(300, 0).UTC())
	require.NoError(t, trips.CreatePlan(ctx, p))
	require.NoError(t, votes.Upsert(ctx, domain.Vote{ItemID: p.Items[0].ID, SessionID: "s1", Upvote: true, UpdatedAt: time.Unix(301, 0).UTC()}))

	require.NoError(t, trips.DeleteItem(ctx, p.Items[0].ID))
	_, err := votes.Get(ctx, p.Items[0].ID, "s1")
	require.ErrorIs(t, err, voterepoport.ErrNotFound)

	err = votes.Upsert(ctx, domain.Vote{ItemID: p.Items[0].ID, SessionID: "s1", Upvote: true, UpdatedAt: time.Unix(302, 0).UTC()})
	require.ErrorIs(t, err, triprepoport.ErrItemNotFound)
}
