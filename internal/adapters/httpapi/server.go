package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/votes"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/platform/logging"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server holds the planner handlers.
type Server struct {
	Trips *trips.Service
	Votes *votes.Service
	Idem  idempotency.Store
	Clock clock.Clock
	Log   logging.Logger

	// AlternativesLimit applies when a request does not pass ?limit.
	AlternativesLimit int
}

func NewServer(tripsSvc *trips.Service, votesSvc *votes.Service, idem idempotency.Store, clk clock.Clock, log logging.Logger) *Server {
	return &Server{
		Trips:             tripsSvc,
		Votes:             votesSvc,
		Idem:              idem,
		Clock:             clk,
		Log:               logging.OrDiscard(log),
		AlternativesLimit: trips.DefaultAlternatives,
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return true
		}
		validationError(w, r, "invalid request body", map[string]any{"body": err.Error()})
		return false
	}
	return true
}
