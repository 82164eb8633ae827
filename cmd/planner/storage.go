package main

import (
	"context"
	"fmt"

	memidempotency "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/triprepo"
	memvoterepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/voterepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres"
	pgidempotency "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/idempotency"
	pgtriprepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/triprepo"
	pgvoterepo "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/postgres/voterepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/sqlite"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/config"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/logging"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/triprepo"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/voterepo"
)

type storage struct {
	trips triprepo.Repository
	votes voterepo.Repository
	idem  idempotency.Store
	close func()
}

// openStorage wires the repositories for the configured backend.
func openStorage(ctx context.Context, cfg config.Config, log logging.Logger) (*storage, error) {
	switch cfg.Storage.Backend {
	case config.StoragePostgres:
		if cfg.Storage.AutoMigrate {
			if err := postgres.Migrate(ctx, cfg.Storage.PostgresDSN); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info(ctx, "postgres migrations applied")
		}
		pool, err := postgres.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return &storage{
			trips: pgtriprepo.NewRepo(pool),
			votes: pgvoterepo.NewRepo(pool),
			idem:  pgidempotency.NewStore(pool, issuerOf(cfg)),
			close: pool.Close,
		}, nil
	case config.StorageSQLite:
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &storage{
			trips: sqlite.NewTripRepo(db),
			votes: sqlite.NewVoteRepo(db),
			idem:  sqlite.NewIdempotencyStore(db),
			close: func() { _ = db.Close() },
		}, nil
	default:
		return &storage{
			trips: memtriprepo.NewRepo(),
			votes: memvoterepo.NewRepo(),
			idem:  memidempotency.NewStore(),
			close: func() {},
		}, nil
	}
}

// issuerOf scopes postgres idempotency records to the token issuer.
func issuerOf(cfg config.Config) string {
	if cfg.Auth.Mode == config.AuthModeJWT {
		return cfg.JWT.Issuer
	}
	return "dev"
}
