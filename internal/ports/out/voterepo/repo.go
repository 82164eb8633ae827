package voterepo

import (
	"context"
	"errors"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

var ErrNotFound = errors.New("vote not found")

type Repository interface {
	// Get returns the vote for (item, session). If it does not exist, ErrNotFound is returned.
	Get(ctx context.Context, itemID domain.ItemID, session domain.SessionID) (domain.Vote, error)

	// Upsert writes the vote for (item, session) using last-write-wins semantics.
	Upsert(ctx context.Context, v domain.Vote) error

	// Delete removes the vote for (item, session). Deleting a missing vote is not an error.
	Delete(ctx context.Context, itemID domain.ItemID, session domain.SessionID) error

	// DeleteByItems removes every vote cast on the given items.
	DeleteByItems(ctx context.Context, itemIDs []domain.ItemID) error

	// ListByItem returns all votes for an item ordered by session.
	ListByItem(ctx context.Context, itemID domain.ItemID) ([]domain.Vote, error)

	// Summarize counts up/down votes per item. Items without votes are omitted.
	Summarize(ctx context.Context, itemIDs []domain.ItemID) (map[domain.ItemID]domain.VoteSummary, error)
}
