package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/logging"
)

type RouterOptions struct {
	// AuthMiddleware resolves the caller. When nil every request is a guest.
	AuthMiddleware func(http.Handler) http.Handler
	Logger         logging.Logger
}

// NewRouter constructs the API HTTP router with guest-only access.
func NewRouter(s *Server) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	log := logging.OrDiscard(opts.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	// Health endpoint is unauthenticated.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		if opts.AuthMiddleware != nil {
			r.Use(opts.AuthMiddleware)
		}

		r.Post("/trips/generate", s.idempotent("/trips/generate", s.GenerateTrip))
		r.Get("/trips/mine", s.ListMyTrips)
		r.Route("/trips/{tripId}", func(r chi.Router) {
			r.Get("/", s.GetTrip)
			r.Patch("/", s.UpdateTrip)
			r.Delete("/", s.DeleteTrip)
			r.Post("/days", s.idempotent("/trips/{tripId}/days", s.AddDay))
			r.Post("/clone", s.idempotent("/trips/{tripId}/clone", s.CloneTrip))
			r.Post("/claim", s.ClaimTrip)
			r.Post("/finalize", s.FinalizeTrip)
			r.Post("/recalculate", s.RecalculateTripCost)
			r.Get("/violations", s.ListViolations)
			r.Get("/votes", s.TripVoteSummary)
		})

		r.Route("/days/{dayId}", func(r chi.Router) {
			r.Delete("/", s.DeleteDay)
			r.Post("/items", s.idempotent("/days/{dayId}/items", s.AddItem))
			r.Put("/order", s.ReorderDay)
		})

		r.Route("/items/{itemId}", func(r chi.Router) {
			r.Patch("/", s.UpdateItem)
			r.Delete("/", s.DeleteItem)
			r.Post("/lock", s.LockItem)
			r.Post("/unlock", s.UnlockItem)
			r.Post("/replace", s.ReplaceItem)
			r.Get("/alternatives", s.ListAlternatives)
			r.Post("/dependencies", s.AddDependency)
			r.Get("/votes", s.ItemVotes)
			r.Put("/votes", s.CastVote)
			r.Delete("/votes", s.RetractVote)
		})

		r.Delete("/dependencies/{dependencyId}", s.RemoveDependency)
	})

	return r
}

func requestLogger(log logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
