package contracttest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	idempotencyport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
	triprepoport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
	voterepoport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

type CleanupFunc = func()

type TripRepoFactory func(t *testing.T) (triprepoport.Repository, CleanupFunc)
type VoteRepoFactory func(t *testing.T) (voterepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// SamplePlan builds a two-day plan with three items and one edge (item 0 -> item 1).
// IDs are UUIDs so the plan is valid for every backend.
func SamplePlan(owner *domain.MemberID, now time.Time) triprepoport.Plan {
	tripID := domain.TripID(uuid.NewString())
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	total := int64(4500)
	lat, lng := 35.6892, 51.3890

	days := []domain.TripDay{
		{ID: domain.DayID(uuid.NewString()), TripID: tripID, Index: 1, Date: start},
		{ID: domain.DayID(uuid.NewString()), TripID: tripID, Index: 2, Date: start.AddDate(0, 0, 1)},
	}
	at := func(day time.Time, h, m int) time.Time {
		return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
	}
	items := []domain.TripItem{
		{
			ID: domain.ItemID(uuid.NewString()), TripID: tripID, DayID: days[0].ID,
			Kind: domain.ItemKindMeal, PlaceRef: "p-cafe", Title: "Cafe Naderi", Category: domain.CategoryCafe,
			StartAt: at(start, 9, 0), EndAt: at(start, 10, 0), SortOrder: 1,
			PriceTier: domain.PriceBudget, EstimatedCost: 500,
		},
		{
			ID: domain.ItemID(uuid.NewString()), TripID: tripID, DayID: days[0].ID,
			Kind: domain.ItemKindVisit, PlaceRef: "p-museum", Title: "National Museum", Category: domain.CategoryMuseum,
			Address: "Imam Khomeini St", Lat: &lat, Lng: &lng,
			StartAt: at(start, 10, 0), EndAt: at(start, 12, 30), SortOrder: 2, Locked: true,
			PriceTier: domain.PriceModerate, EstimatedCost: 1500,
		},
		{
			ID: domain.ItemID(uuid.NewString()), TripID: tripID, DayID: days[1].ID,
			Kind: domain.ItemKindStay, PlaceRef: "p-hotel", Title: "Espinas", Category: domain.CategoryHotel,
			StartAt: at(days[1].Date, 17, 0), EndAt: at(days[1].Date, 28, 0), SortOrder: 1,
			PriceTier: domain.PriceExpensive, EstimatedCost: 2500,
		},
	}
	return triprepoport.Plan{
		Trip: domain.Trip{
			ID:                 tripID,
			OwnerID:            owner,
			Title:              "Trip to Tehran",
			Origin:             "Shiraz",
			Province:           "Tehran",
			City:               "Tehran",
			StartDate:          start,
			DurationDays:       2,
			Budget:             domain.BudgetModerate,
			TravelStyle:        domain.TravelStyleCouple,
			Interests:          []domain.Interest{domain.InterestHistory, domain.InterestFood},
			Status:             domain.TripStatusDraft,
			TotalEstimatedCost: &total,
			CreatedAt:          now,
			UpdatedAt:          now,
		},
		Days:  days,
		Items: items,
		Dependencies: []domain.ItemDependency{{
			ID:             domain.DependencyID(uuid.NewString()),
			TripID:         tripID,
			DependentID:    items[1].ID,
			PrerequisiteID: items[0].ID,
			Type:           domain.DependencyFinishToStart,
			Action:         domain.ViolationWarn,
			CreatedAt:      now,
		}},
	}
}

func RunTripRepo(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	owner := domain.MemberID("owner-" + uuid.NewString())
	p := SamplePlan(&owner, now)

	// Create + read back.
	require.NoError(t, repo.CreatePlan(ctx, p))
	require.ErrorIs(t, repo.CreatePlan(ctx, p), triprepoport.ErrAlreadyExists)

	got, err := repo.GetPlan(ctx, p.Trip.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Trip.Title, got.Trip.Title)
	assert.Equal(t, p.Trip.Interests, got.Trip.Interests)
	require.NotNil(t, got.Trip.OwnerID)
	assert.Equal(t, owner, *got.Trip.OwnerID)
	require.NotNil(t, got.Trip.TotalEstimatedCost)
	assert.Equal(t, int64(4500), *got.Trip.TotalEstimatedCost)
	assert.True(t, got.Trip.StartDate.Equal(p.Trip.StartDate), "start=%v", got.Trip.StartDate)
	require.Len(t, got.Days, 2)
	assert.Equal(t, 1, got.Days[0].Index)
	assert.True(t, got.Days[1].Date.Equal(p.Days[1].Date))
	require.Len(t, got.Items, 3)
	assert.Equal(t, p.Items[0].ID, got.Items[0].ID)
	assert.Equal(t, p.Items[2].ID, got.Items[2].ID)
	assert.True(t, got.Items[1].Locked)
	require.NotNil(t, got.Items[1].Lat)
	assert.InDelta(t, 35.6892, *got.Items[1].Lat, 1e-9)
	assert.True(t, got.Items[2].EndAt.Equal(p.Items[2].EndAt), "overnight end=%v", got.Items[2].EndAt)
	assert.Equal(t, 11*time.Hour, got.Items[2].Duration())
	require.Len(t, got.Dependencies, 1)

	// Missing rows.
	_, err = repo.GetTrip(ctx, domain.TripID(uuid.NewString()))
	require.ErrorIs(t, err, triprepoport.ErrTripNotFound)
	_, err = repo.GetItem(ctx, domain.ItemID(uuid.NewString()))
	require.ErrorIs(t, err, triprepoport.ErrItemNotFound)
	_, err = repo.GetDay(ctx, domain.DayID(uuid.NewString()))
	require.ErrorIs(t, err, triprepoport.ErrDayNotFound)
	_, err = repo.GetDependency(ctx, domain.DependencyID(uuid.NewString()))
	require.ErrorIs(t, err, triprepoport.ErrDependencyNotFound)

	// Owner listing.
	mine, err := repo.ListTripsByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, p.Trip.ID, mine[0].ID)

	// Items by day ordered by sort order.
	extra := p.Items[0]
	extra.ID = domain.ItemID(uuid.NewString())
	extra.SortOrder = 0
	extra.Title = "Early walk"
	require.NoError(t, repo.CreateItems(ctx, []domain.TripItem{extra}))
	dayItems, err := repo.ListItemsByDay(ctx, p.Days[0].ID)
	require.NoError(t, err)
	require.Len(t, dayItems, 3)
	assert.Equal(t, extra.ID, dayItems[0].ID)

	// Save item.
	upd := dayItems[1]
	upd.Title = "Cafe Naderi (terrace)"
	upd.SortOrder = 10
	require.NoError(t, repo.SaveItem(ctx, upd))
	reloaded, err := repo.GetItem(ctx, upd.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cafe Naderi (terrace)", reloaded.Title)
	assert.Equal(t, 10, reloaded.SortOrder)

	// Dependencies: duplicate pair, then a second edge.
	dup := p.Dependencies[0]
	dup.ID = domain.DependencyID(uuid.NewString())
	require.ErrorIs(t, repo.CreateDependency(ctx, dup), triprepoport.ErrDuplicateDependency)

	second := domain.ItemDependency{
		ID:             domain.DependencyID(uuid.NewString()),
		TripID:         p.Trip.ID,
		DependentID:    p.Items[2].ID,
		PrerequisiteID: p.Items[1].ID,
		Type:           domain.DependencyFinishToStart,
		Action:         domain.ViolationBlock,
		CreatedAt:      now.Add(time.Second),
	}
	require.NoError(t, repo.CreateDependency(ctx, second))
	deps, err := repo.ListDependencies(ctx, p.Trip.ID)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, p.Dependencies[0].ID, deps[0].ID)
	assert.Equal(t, domain.ViolationBlock, deps[1].Action)

	// Deleting the middle item removes both edges touching it.
	require.NoError(t, repo.DeleteItem(ctx, p.Items[1].ID))
	deps, err = repo.ListDependencies(ctx, p.Trip.ID)
	require.NoError(t, err)
	assert.Empty(t, deps)
	require.ErrorIs(t, repo.DeleteItem(ctx, p.Items[1].ID), triprepoport.ErrItemNotFound)

	// Day re-index: a colliding index is rejected, a free one is kept.
	clash := p.Days[1]
	clash.Index = 1
	require.ErrorIs(t, repo.SaveDay(ctx, clash), triprepoport.ErrAlreadyExists)
	moved := p.Days[1]
	moved.Index = 3
	moved.Date = p.Days[1].Date.AddDate(0, 0, 1)
	require.NoError(t, repo.SaveDay(ctx, moved))
	day, err := repo.GetDay(ctx, moved.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, day.Index)
	assert.Equal(t, p.Trip.ID, day.TripID)
	assert.True(t, day.Date.Equal(moved.Date), "date=%v", day.Date)
	missingDay := domain.TripDay{ID: domain.DayID(uuid.NewString()), TripID: p.Trip.ID, Index: 9, Date: moved.Date}
	require.ErrorIs(t, repo.SaveDay(ctx, missingDay), triprepoport.ErrDayNotFound)

	// Day delete removes its items and the edges touching them.
	edge := domain.ItemDependency{
		ID:             domain.DependencyID(uuid.NewString()),
		TripID:         p.Trip.ID,
		DependentID:    p.Items[2].ID,
		PrerequisiteID: p.Items[0].ID,
		Type:           domain.DependencyFinishToStart,
		Action:         domain.ViolationWarn,
		CreatedAt:      now.Add(2 * time.Second),
	}
	require.NoError(t, repo.CreateDependency(ctx, edge))
	require.NoError(t, repo.DeleteDay(ctx, moved.ID))
	_, err = repo.GetDay(ctx, moved.ID)
	require.ErrorIs(t, err, triprepoport.ErrDayNotFound)
	_, err = repo.GetItem(ctx, p.Items[2].ID)
	require.ErrorIs(t, err, triprepoport.ErrItemNotFound)
	deps, err = repo.ListDependencies(ctx, p.Trip.ID)
	require.NoError(t, err)
	assert.Empty(t, deps)
	_, err = repo.GetItem(ctx, p.Items[0].ID)
	require.NoError(t, err)
	require.ErrorIs(t, repo.DeleteDay(ctx, moved.ID), triprepoport.ErrDayNotFound)

	// Trip save.
	tr, err := repo.GetTrip(ctx, p.Trip.ID)
	require.NoError(t, err)
	tr.Status = domain.TripStatusFinalized
	tr.TotalEstimatedCost = nil
	require.NoError(t, repo.SaveTrip(ctx, tr))
	tr, err = repo.GetTrip(ctx, p.Trip.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusFinalized, tr.Status)
	assert.Nil(t, tr.TotalEstimatedCost)

	// Delete cascades.
	require.NoError(t, repo.DeleteTrip(ctx, p.Trip.ID))
	_, err = repo.GetPlan(ctx, p.Trip.ID)
	require.ErrorIs(t, err, triprepoport.ErrTripNotFound)
	_, err = repo.GetDay(ctx, p.Days[0].ID)
	require.ErrorIs(t, err, triprepoport.ErrDayNotFound)
	_, err = repo.GetItem(ctx, p.Items[0].ID)
	require.ErrorIs(t, err, triprepoport.ErrItemNotFound)
}

// RunTripRepoUnitOfWork checks WithinTrip commit and rollback semantics.
func RunTripRepoUnitOfWork(t *testing.T, newRepo TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	now := time.Unix(2000, 0).UTC()
	p := SamplePlan(nil, now)
	require.NoError(t, repo.CreatePlan(ctx, p))

	// Commit.
	err := repo.WithinTrip(ctx, p.Trip.ID, func(ctx context.Context, s triprepoport.Store) error {
		it, err := s.GetItem(ctx, p.Items[0].ID)
		if err != nil {
			return err
		}
		it.SortOrder = 7
		return s.SaveItem(ctx, it)
	})
	require.NoError(t, err)
	it, err := repo.GetItem(ctx, p.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 7, it.SortOrder)

	// Rollback: both writes are discarded.
	boom := errors.New("boom")
	err = repo.WithinTrip(ctx, p.Trip.ID, func(ctx context.Context, s triprepoport.Store) error {
		if err := s.DeleteItem(ctx, p.Items[1].ID); err != nil {
			return err
		}
		tr, err := s.GetTrip(ctx, p.Trip.ID)
		if err != nil {
			return err
		}
		tr.Title = "renamed"
		if err := s.SaveTrip(ctx, tr); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	_, err = repo.GetItem(ctx, p.Items[1].ID)
	require.NoError(t, err)
	deps, err := repo.ListDependencies(ctx, p.Trip.ID)
	require.NoError(t, err)
	assert.Len(t, deps, 1)
	tr, err := repo.GetTrip(ctx, p.Trip.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Trip.Title, tr.Title)

	// Reads inside the unit of work observe its own writes.
	err = repo.WithinTrip(ctx, p.Trip.ID, func(ctx context.Context, s triprepoport.Store) error {
		if err := s.DeleteDependency(ctx, p.Dependencies[0].ID); err != nil {
			return err
		}
		deps, err := s.ListDependencies(ctx, p.Trip.ID)
		if err != nil {
			return err
		}
		if len(deps) != 0 {
			return errors.New("expected dependency to be gone inside the unit of work")
		}
		return nil
	})
	require.NoError(t, err)

	// Missing trips surface as not found from inside the callback.
	err = repo.WithinTrip(ctx, domain.TripID(uuid.NewString()), func(ctx context.Context, s triprepoport.Store) error {
		_, err := s.GetTrip(ctx, domain.TripID(uuid.NewString()))
		return err
	})
	require.ErrorIs(t, err, triprepoport.ErrTripNotFound)
}

func RunVoteRepo(t *testing.T, newTrips TripRepoFactory, newVotes VoteRepoFactory) {
	t.Helper()
	ctx := context.Background()

	trips, cleanupTrips := newTrips(t)
	if cleanupTrips != nil {
		t.Cleanup(cleanupTrips)
	}
	votes, cleanupVotes := newVotes(t)
	if cleanupVotes != nil {
		t.Cleanup(cleanupVotes)
	}

	p := SamplePlan(nil, time.Unix(3000, 0).UTC())
	require.NoError(t, trips.CreatePlan(ctx, p))
	itemA, itemB := p.Items[0].ID, p.Items[1].ID

	_, err := votes.Get(ctx, itemA, "s1")
	require.ErrorIs(t, err, voterepoport.ErrNotFound)

	t1 := time.Unix(10, 0).UTC()
	t2 := time.Unix(20, 0).UTC()
	require.NoError(t, votes.Upsert(ctx, domain.Vote{ItemID: itemA, SessionID: "s2", Upvote: false, UpdatedAt: t1}))
	require.NoError(t, votes.Upsert(ctx, domain.Vote{ItemID: itemA, SessionID: "s1", Upvote: true, UpdatedAt: t1}))
	require.NoError(t, votes.Upsert(ctx, domain.Vote{ItemID: itemB, SessionID: "s1", Upvote: true, UpdatedAt: t1}))

	// Re-casting overwrites rather than duplicates.
	require.NoError(t, votes.Upsert(ctx, domain.Vote{ItemID: itemA, SessionID: "s2", Upvote: true, UpdatedAt: t2}))
	v, err := votes.Get(ctx, itemA, "s2")
	require.NoError(t, err)
	assert.True(t, v.Upvote)
	assert.True(t, v.UpdatedAt.Equal(t2))

	list, err := votes.ListByItem(ctx, itemA)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.SessionID("s1"), list[0].SessionID)
	assert.Equal(t, domain.SessionID("s2"), list[1].SessionID)

	sum, err := votes.Summarize(ctx, []domain.ItemID{itemA, itemB, p.Items[2].ID})
	require.NoError(t, err)
	assert.Equal(t, domain.VoteSummary{ItemID: itemA, Up: 2, Down: 0}, sum[itemA])
	assert.Equal(t, domain.VoteSummary{ItemID: itemB, Up: 1, Down: 0}, sum[itemB])
	_, ok := sum[p.Items[2].ID]
	assert.False(t, ok)

	require.NoError(t, votes.Delete(ctx, itemA, "s1"))
	require.NoError(t, votes.Delete(ctx, itemA, "s1"))
	_, err = votes.Get(ctx, itemA, "s1")
	require.ErrorIs(t, err, voterepoport.ErrNotFound)

	require.NoError(t, votes.DeleteByItems(ctx, []domain.ItemID{itemA, itemB}))
	sum, err = votes.Summarize(ctx, []domain.ItemID{itemA, itemB})
	require.NoError(t, err)
	assert.Empty(t, sum)
}

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  domain.SubjectID("sub-1"),
		Method:   "POST",
		Route:    "/trips/generate",
		BodyHash: "abc",
	}
	_, ok, err := store.Get(ctx, fp)
	require.NoError(t, err)
	require.False(t, ok)

	rec := idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"trip":{"id":"t1"}}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	require.NoError(t, store.Put(ctx, fp, rec))
	got, ok, err := store.Get(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 201, got.StatusCode)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, rec.Body, got.Body)

	// Guests and members never share a record.
	guest := fp
	guest.Subject = ""
	_, ok, err = store.Get(ctx, guest)
	require.NoError(t, err)
	assert.False(t, ok)

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte(`{"trip":{"id":"t2"}}`)
	require.NoError(t, store.Put(ctx, fp, rec2))
	got, ok, err = store.Get(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, rec2.Body, got.Body)

	// The request-hash record under an empty BodyHash and records of other routes are separate rows.
	meta := fp
	meta.BodyHash = ""
	require.NoError(t, store.Put(ctx, meta, idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-1"),
		CreatedAt:   time.Unix(500, 0).UTC(),
	}))
	clone := fp
	clone.Route = "/trips/{tripId}/clone"
	_, ok, err = store.Get(ctx, clone)
	require.NoError(t, err)
	assert.False(t, ok)
	got, ok, err = store.Get(ctx, meta)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hash-1"), got.Body)

	// Purge is by age only.
	n, err := store.DeleteOlderThan(ctx, time.Unix(124, 0).UTC())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
	_, ok, err = store.Get(ctx, fp)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.Get(ctx, meta)
	require.NoError(t, err)
	assert.True(t, ok, "records newer than the cutoff survive")
}
