package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/contracttest"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/testutil"
	idempotencyport "github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
)

func TestPostgresStore_SatisfiesReplayContract(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunIdempotencyStore(t, func(*testing.T) (idempotencyport.Store, func()) {
		return NewStore(pool, "https://issuer.test"), nil
	})
}

func TestPostgresStore_RecordsAreScopedToIssuer(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)
	ctx := context.Background()

	prod := NewStore(pool, "https://issuer.test")
	dev := NewStore(pool, "dev")
	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		Subject:  "alice",
		Method:   "POST",
		Route:    "/trips/generate",
		BodyHash: "h",
	}
	require.NoError(t, prod.Put(ctx, fp, idempotencyport.Record{StatusCode: 201, ContentType: "application/json", Body: []byte(`{}`)}))

	_, ok, err := dev.Get(ctx, fp)
	require.NoError(t, err)
	assert.False(t, ok)

	got, ok, err := prod.Get(ctx, fp)
	require.NoError(t, err)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute, "unset created_at is stamped by the database")
}
