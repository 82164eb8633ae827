package voterepo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

// Repo is a Postgres implementation of voterepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Get(ctx context.Context, itemID domain.ItemID, session domain.SessionID) (domain.Vote, error) {
	if r.pool == nil {
		return domain.Vote{}, errors.New("nil postgres pool")
	}
	itemUUID, err := uuid.Parse(string(itemID))
	if err != nil {
		return domain.Vote{}, voterepo.ErrNotFound
	}
	v := domain.Vote{ItemID: itemID, SessionID: session}
	err = r.pool.QueryRow(ctx, `
		SELECT upvote, updated_at
		FROM item_votes
		WHERE item_id = $1 AND session_id = $2
	`, itemUUID, string(session)).Scan(&v.Upvote, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vote{}, voterepo.ErrNotFound
		}
		return domain.Vote{}, err
	}
	v.UpdatedAt = v.UpdatedAt.UTC()
	return v, nil
}

func (r *Repo) Upsert(ctx context.Context, v domain.Vote) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	itemUUID, err := uuid.Parse(string(v.ItemID))
	if err != nil {
		return triprepo.ErrItemNotFound
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO item_votes (item_id, session_id, upvote, updated_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (item_id, session_id)
		DO UPDATE SET
			upvote = EXCLUDED.upvote,
			updated_at = EXCLUDED.updated_at
	`, itemUUID, string(v.SessionID), v.Upvote, v.UpdatedAt.UTC())
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.ForeignKeyViolationCode {
			return triprepo.ErrItemNotFound
		}
		return err
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, itemID domain.ItemID, session domain.SessionID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	itemUUID, err := uuid.Parse(string(itemID))
	if err != nil {
		return nil
	}
	_, err = r.pool.Exec(ctx, `DELETE FROM item_votes WHERE item_id = $1 AND session_id = $2`, itemUUID, string(session))
	return err
}

func (r *Repo) DeleteByItems(ctx context.Context, itemIDs []domain.ItemID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	ids := parseItemIDs(itemIDs)
	if len(ids) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx, `DELETE FROM item_votes WHERE item_id = ANY($1::uuid[])`, ids)
	return err
}

func (r *Repo) ListByItem(ctx context.Context, itemID domain.ItemID) ([]domain.Vote, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	itemUUID, err := uuid.Parse(string(itemID))
	if err != nil {
		return []domain.Vote{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT session_id, upvote, updated_at
		FROM item_votes
		WHERE item_id = $1
		ORDER BY session_id
	`, itemUUID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Vote, error) {
		var (
			session string
			v       domain.Vote
		)
		if err := row.Scan(&session, &v.Upvote, &v.UpdatedAt); err != nil {
			return domain.Vote{}, err
		}
		v.ItemID = itemID
		v.SessionID = domain.SessionID(session)
		v.UpdatedAt = v.UpdatedAt.UTC()
		return v, nil
	})
}

func (r *Repo) Summarize(ctx context.Context, itemIDs []domain.ItemID) (map[domain.ItemID]domain.VoteSummary, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	out := make(map[domain.ItemID]domain.VoteSummary)
	ids := parseItemIDs(itemIDs)
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT item_id::text,
		       count(*) FILTER (WHERE upvote),
		       count(*) FILTER (WHERE NOT upvote)
		FROM item_votes
		WHERE item_id = ANY($1::uuid[])
		GROUP BY item_id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id       string
			up, down int
		)
		if err := rows.Scan(&id, &up, &down); err != nil {
			return nil, err
		}
		out[domain.ItemID(id)] = domain.VoteSummary{ItemID: domain.ItemID(id), Up: up, Down: down}
	}
	return out, rows.Err()
}

// parseItemIDs drops ids that cannot name a row.
func parseItemIDs(itemIDs []domain.ItemID) []string {
	out := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		if u, err := uuid.Parse(string(id)); err == nil {
			out = append(out, u.String())
		}
	}
	return out
}
