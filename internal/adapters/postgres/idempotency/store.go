// Package idempotency stores replayable planner responses in Postgres.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
)

// Rows are keyed by the full fingerprint plus the token issuer.
const (
	selectRecord = `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1 AND subject_iss = $2 AND subject_sub = $3
		  AND method = $4 AND route = $5 AND body_hash = $6`

	// A nil created_at is stamped by the database.
	upsertRecord = `
		INSERT INTO idempotency_keys (
			idempotency_key, subject_iss, subject_sub, method, route, body_hash,
			status_code, content_type, body, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,COALESCE($10, now()))
		ON CONFLICT (idempotency_key, subject_iss, subject_sub, method, route, body_hash)
		DO UPDATE SET
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at`

	purgeRecords = `DELETE FROM idempotency_keys WHERE created_at < $1`
)

var errNoPool = errors.New("idempotency: nil postgres pool")

type Store struct {
	pool   *pgxpool.Pool
	issuer string
}

// NewStore scopes every record to issuer, the JWT issuer of the running server ("dev" in dev auth).
func NewStore(pool *pgxpool.Pool, issuer string) *Store {
	return &Store{pool: pool, issuer: issuer}
}

func (s *Store) keyArgs(fp idempotency.Fingerprint) []any {
	return []any{string(fp.Key), s.issuer, string(fp.Subject), fp.Method, fp.Route, fp.BodyHash}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errNoPool
	}
	var rec idempotency.Record
	err := s.pool.QueryRow(ctx, selectRecord, s.keyArgs(fp)...).
		Scan(&rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return idempotency.Record{}, false, nil
	case err != nil:
		return idempotency.Record{}, false, fmt.Errorf("get idempotency record %q: %w", fp.Key, err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errNoPool
	}
	var createdAt *time.Time
	if !rec.CreatedAt.IsZero() {
		t := rec.CreatedAt.UTC()
		createdAt = &t
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	args := append(s.keyArgs(fp), rec.StatusCode, rec.ContentType, body, createdAt)
	if _, err := s.pool.Exec(ctx, upsertRecord, args...); err != nil {
		if pe, ok := postgres.AsPgError(err); ok {
			return fmt.Errorf("put idempotency record %q (sqlstate %s): %w", fp.Key, pe.Code, err)
		}
		return fmt.Errorf("put idempotency record %q: %w", fp.Key, err)
	}
	return nil
}

func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if s.pool == nil {
		return 0, errNoPool
	}
	tag, err := s.pool.Exec(ctx, purgeRecords, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge idempotency records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
