// Package idempotency keeps replayable planner responses in process memory.
package idempotency

import (
	"context"
	"sync"
	"time"

	platformclock "github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/clock"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
)

// Store holds records keyed by the whole fingerprint. Bodies are copied on the way in and out.
type Store struct {
	clock clock.Clock

	mu      sync.RWMutex
	records map[idempotency.Fingerprint]idempotency.Record
}

type Option func(*Store)

// WithClock stamps records stored without a CreatedAt.
func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func NewStore(opts ...Option) *Store {
	s := &Store{records: make(map[idempotency.Fingerprint]idempotency.Record)}
	for _, o := range opts {
		o(s)
	}
	if s.clock == nil {
		s.clock = platformclock.SystemClock{}
	}
	return s
}

func (s *Store) Get(_ context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	s.mu.RLock()
	rec, ok := s.records[fp]
	s.mu.RUnlock()
	if !ok {
		return idempotency.Record{}, false, nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(_ context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Body = append([]byte(nil), rec.Body...)

	s.mu.Lock()
	s.records[fp] = rec
	s.mu.Unlock()
	return nil
}

func (s *Store) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for fp, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, fp)
			n++
		}
	}
	return n, nil
}
