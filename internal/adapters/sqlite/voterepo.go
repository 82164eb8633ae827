package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

// VoteRepo is a SQLite implementation of voterepo.Repository.
type VoteRepo struct {
	db *sqlx.DB
}

func NewVoteRepo(db *sqlx.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

type voteRow struct {
	ItemID    string `db:"item_id"`
	SessionID string `db:"session_id"`
	Upvote    int    `db:"upvote"`
	UpdatedAt string `db:"updated_at"`
}

func (r voteRow) toDomain() (domain.Vote, error) {
	updated, err := parseTime(r.UpdatedAt)
	if err != nil {
		return domain.Vote{}, err
	}
	return domain.Vote{
		ItemID:    domain.ItemID(r.ItemID),
		SessionID: domain.SessionID(r.SessionID),
		Upvote:    r.Upvote != 0,
		UpdatedAt: updated,
	}, nil
}

func (r *VoteRepo) Get(ctx context.Context, itemID domain.ItemID, session domain.SessionID) (domain.Vote, error) {
	var row voteRow
	err := r.db.GetContext(ctx, &row, `
		SELECT * FROM item_votes
		WHERE item_id = ? AND session_id = ?`, string(itemID), string(session))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Vote{}, voterepo.ErrNotFound
		}
		return domain.Vote{}, fmt.Errorf("getting vote: %w", err)
	}
	return row.toDomain()
}

func (r *VoteRepo) Upsert(ctx context.Context, v domain.Vote) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO item_votes (item_id, session_id, upvote, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (item_id, session_id) DO UPDATE SET
			upvote = excluded.upvote,
			updated_at = excluded.updated_at`,
		string(v.ItemID), string(v.SessionID), boolToInt(v.Upvote), formatTime(v.UpdatedAt),
	)
	if err != nil {
		if constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
			return triprepo.ErrItemNotFound
		}
		return fmt.Errorf("upserting vote: %w", err)
	}
	return nil
}

func (r *VoteRepo) Delete(ctx context.Context, itemID domain.ItemID, session domain.SessionID) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM item_votes
		WHERE item_id = ? AND session_id = ?`, string(itemID), string(session)); err != nil {
		return fmt.Errorf("deleting vote: %w", err)
	}
	return nil
}

func (r *VoteRepo) DeleteByItems(ctx context.Context, itemIDs []domain.ItemID) error {
	if len(itemIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM item_votes WHERE item_id IN (?)`, idStrings(itemIDs))
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("deleting votes: %w", err)
	}
	return nil
}

func (r *VoteRepo) ListByItem(ctx context.Context, itemID domain.ItemID) ([]domain.Vote, error) {
	var rows []voteRow
	if err := r.db.SelectContext(ctx, &rows, `
		SELECT * FROM item_votes
		WHERE item_id = ?
		ORDER BY session_id`, string(itemID)); err != nil {
		return nil, fmt.Errorf("listing votes: %w", err)
	}
	return convertRows(rows, voteRow.toDomain)
}

func (r *VoteRepo) Summarize(ctx context.Context, itemIDs []domain.ItemID) (map[domain.ItemID]domain.VoteSummary, error) {
	out := make(map[domain.ItemID]domain.VoteSummary)
	if len(itemIDs) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In(`
		SELECT item_id,
		       SUM(CASE WHEN upvote <> 0 THEN 1 ELSE 0 END) AS up,
		       SUM(CASE WHEN upvote = 0 THEN 1 ELSE 0 END) AS down
		FROM item_votes
		WHERE item_id IN (?)
		GROUP BY item_id`, idStrings(itemIDs))
	if err != nil {
		return nil, err
	}
	var rows []struct {
		ItemID string `db:"item_id"`
		Up     int    `db:"up"`
		Down   int    `db:"down"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("summarizing votes: %w", err)
	}
	for _, row := range rows {
		id := domain.ItemID(row.ItemID)
		out[id] = domain.VoteSummary{ItemID: id, Up: row.Up, Down: row.Down}
	}
	return out, nil
}

func idStrings(ids []domain.ItemID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return out
}
