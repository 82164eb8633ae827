package voterepo

import (
	"context"
	"sort"
	"sync"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

type key struct {
	itemID  domain.ItemID
	session domain.SessionID
}

// Repo is an in-memory implementation of voterepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex
	m  map[key]domain.Vote
}

func NewRepo() *Repo {
	return &Repo{m: make(map[key]domain.Vote)}
}

func (r *Repo) Get(ctx context.Context, itemID domain.ItemID, session domain.SessionID) (domain.Vote, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.m[key{itemID: itemID, session: session}]
	if !ok {
		return domain.Vote{}, voterepo.ErrNotFound
	}
	return v, nil
}

func (r *Repo) Upsert(ctx context.Context, v domain.Vote) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[key{itemID: v.ItemID, session: v.SessionID}] = v
	return nil
}

func (r *Repo) Delete(ctx context.Context, itemID domain.ItemID, session domain.SessionID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, key{itemID: itemID, session: session})
	return nil
}

func (r *Repo) DeleteByItems(ctx context.Context, itemIDs []domain.ItemID) error {
	_ = ctx
	drop := make(map[domain.ItemID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = struct{}{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k := range r.m {
		if _, ok := drop[k.itemID]; ok {
			delete(r.m, k)
		}
	}
	return nil
}

func (r *Repo) ListByItem(ctx context.Context, itemID domain.ItemID) ([]domain.Vote, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Vote, 0)
	for k, v := range r.m {
		if k.itemID == itemID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i].SessionID) < string(out[j].SessionID)
	})
	return out, nil
}

func (r *Repo) Summarize(ctx context.Context, itemIDs []domain.ItemID) (map[domain.ItemID]domain.VoteSummary, error) {
	_ = ctx
	want := make(map[domain.ItemID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		want[id] = struct{}{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.ItemID]domain.VoteSummary)
	for k, v := range r.m {
		if _, ok := want[k.itemID]; !ok {
			continue
		}
		s := out[k.itemID]
		s.ItemID = k.itemID
		if v.Upvote {
			s.Up++
		} else {
			s.Down++
		}
		out[k.itemID] = s
	}
	return out, nil
}
