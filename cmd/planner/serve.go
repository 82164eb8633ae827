package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/catalog"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/httpapi"
	memplacesupply "github.com/Overland-East-Bay/itinerary-planner-api/internal/adapters/memory/placesupply"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/votes"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/auth/jwtverifier"
	platformclock "github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/clock"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/config"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/logging"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the planner HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			log, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log logging.Logger) error {
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	supply, err := loadCatalog(ctx, cfg.Catalog.Path, log)
	if err != nil {
		return err
	}

	clk := platformclock.NewSystemClock()
	tripSvc := trips.NewService(st.trips, st.votes, supply, clk, trips.WithLogger(log))
	voteSvc := votes.NewService(st.trips, st.votes, clk)

	api := httpapi.NewServer(tripSvc, voteSvc, st.idem, clk, log)
	api.AlternativesLimit = cfg.Planner.AlternativesLimit

	// Auth configuration:
	// - Production: auth.mode=jwt verifies bearer tokens against the JWKS
	// - Local dev: auth.mode=dev reads X-Debug-Subject
	var authMW func(http.Handler) http.Handler
	switch cfg.Auth.Mode {
	case config.AuthModeJWT:
		authMW = httpapi.NewAuthMiddleware(jwtverifier.New(cfg.JWT))
	default:
		authMW = httpapi.NewDevAuthMiddleware(cfg.Auth.DevSubject)
	}

	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: authMW, Logger: log})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeIdempotency(purgeCtx, st.idem, clk, cfg.Idempotency.TTL, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "api listening", "addr", srv.Addr, "storage", cfg.Storage.Backend, "auth", cfg.Auth.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadCatalog(ctx context.Context, path string, log logging.Logger) (*memplacesupply.Catalog, error) {
	if path == "" {
		log.Warn(ctx, "no catalog configured; generated trips will be empty")
		return memplacesupply.NewCatalog(), nil
	}
	c, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "catalog loaded", "path", path, "places", c.Len())
	return c, nil
}

// purgeInterval is ttl/4, but never shorter than a minute.
func purgeInterval(ttl time.Duration) time.Duration {
	if every := ttl / 4; every > time.Minute {
		return every
	}
	return time.Minute
}

// purgeIdempotency drops stored responses older than ttl, at most once a minute.
func purgeIdempotency(ctx context.Context, store idempotency.Store, clk clock.Clock, ttl time.Duration, log logging.Logger) {
	t := time.NewTicker(purgeInterval(ttl))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := store.DeleteOlderThan(ctx, clk.Now().Add(-ttl))
			if err != nil {
				log.Warn(ctx, "idempotency purge failed", "err", err)
				continue
			}
			if n > 0 {
				log.Info(ctx, "idempotency records purged", "count", n)
			}
		}
	}
}
