package voterepo

import (
	"context"
	"testing"
	"time"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

func TestRepo_UpsertOverwritesPerSession(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	item := domain.ItemID("i1")

	if _, err := r.Get(ctx, item, "s1"); err != voterepo.ErrNotFound {
		t.Fatalf("Get(nonexistent) err=%v, want %v", err, voterepo.ErrNotFound)
	}

	for i, up := range []bool{true, false, true, false} {
		v := domain.Vote{ItemID: item, SessionID: "s1", Upvote: up, UpdatedAt: time.Unix(int64(i), 0).UTC()}
		if err := r.Upsert(ctx, v); err != nil {
			t.Fatalf("Upsert(%d) err=%v", i, err)
		}
	}

	list, err := r.ListByItem(ctx, item)
	if err != nil {
		t.Fatalf("ListByItem() err=%v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListByItem() len=%d, want 1", len(list))
	}
	if list[0].Upvote {
		t.Fatalf("ListByItem()[0].Upvote=true, want last write (false)")
	}

	sum, err := r.Summarize(ctx, []domain.ItemID{item})
	if err != nil {
		t.Fatalf("Summarize() err=%v", err)
	}
	if sum[item].Up != 0 || sum[item].Down != 1 {
		t.Fatalf("Summarize()=%+v, want 0 up / 1 down", sum[item])
	}
}
