package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
)

// IdempotencyStore is a SQLite implementation of idempotency.Store.
type IdempotencyStore struct {
	db *sqlx.DB
}

func NewIdempotencyStore(db *sqlx.DB) *IdempotencyStore {
	return &IdempotencyStore{db: db}
}

func (s *IdempotencyStore) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	var row struct {
		StatusCode  int    `db:"status_code"`
		ContentType string `db:"content_type"`
		Body        []byte `db:"body"`
		CreatedAt   string `db:"created_at"`
	}
	err := s.db.GetContext(ctx, &row, `
		SELECT status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = ?
		  AND subject_sub = ?
		  AND method = ?
		  AND route = ?
		  AND body_hash = ?`,
		string(fp.Key), string(fp.Subject), fp.Method, fp.Route, fp.BodyHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, fmt.Errorf("getting idempotency record: %w", err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return idempotency.Record{}, false, err
	}
	return idempotency.Record{
		StatusCode:  row.StatusCode,
		ContentType: row.ContentType,
		Body:        row.Body,
		CreatedAt:   created,
	}, true, nil
}

func (s *IdempotencyStore) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	body := rec.Body
	if body == nil {
		body = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key, subject_sub, method, route, body_hash,
			status_code, content_type, body, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (idempotency_key, subject_sub, method, route, body_hash) DO UPDATE SET
			status_code = excluded.status_code,
			content_type = excluded.content_type,
			body = excluded.body,
			created_at = excluded.created_at`,
		string(fp.Key), string(fp.Subject), fp.Method, fp.Route, fp.BodyHash,
		rec.StatusCode, rec.ContentType, body, formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("storing idempotency record: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM idempotency_keys WHERE created_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("purging idempotency records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
