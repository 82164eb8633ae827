package triprepo

import (
	"context"
	"sync"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

// tripLocks hands out one exclusive slot per trip. Entries are dropped once nobody holds or waits on them.
type tripLocks struct {
	mu sync.Mutex
	m  map[domain.TripID]*tripLock
}

type tripLock struct {
	slot chan struct{}
	refs int
}

func newTripLocks() *tripLocks {
	return &tripLocks{m: make(map[domain.TripID]*tripLock)}
}

// lock blocks until the trip's slot is free or ctx is done.
func (l *tripLocks) lock(ctx context.Context, id domain.TripID) (func(), error) {
	l.mu.Lock()
	tl, ok := l.m[id]
	if !ok {
		tl = &tripLock{slot: make(chan struct{}, 1)}
		l.m[id] = tl
	}
	tl.refs++
	l.mu.Unlock()

	select {
	case tl.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(id, tl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-tl.slot
			l.release(id, tl)
		})
	}, nil
}

func (l *tripLocks) release(id domain.TripID, tl *tripLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl.refs--
	if tl.refs == 0 {
		delete(l.m, id)
	}
}
