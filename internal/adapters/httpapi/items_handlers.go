package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

func itemIDParam(r *http.Request) domain.ItemID {
	return domain.ItemID(chi.URLParam(r, "itemId"))
}

func (s *Server) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	res, err := s.Trips.UpdateItem(r.Context(), callerFrom(r.Context()), itemIDParam(r), req.toInput())
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemUpdatedResponse{
		Item:       itemFromDomain(res.Item),
		Violations: violationsFromDomain(res.Violations),
	})
}

func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.Trips.DeleteItem(r.Context(), callerFrom(r.Context()), itemIDParam(r)); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) LockItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.Trips.LockItem(r.Context(), callerFrom(r.Context()), itemIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemResponse{Item: itemFromDomain(it)})
}

func (s *Server) UnlockItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.Trips.UnlockItem(r.Context(), callerFrom(r.Context()), itemIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemResponse{Item: itemFromDomain(it)})
}

func (s *Server) ReplaceItem(w http.ResponseWriter, r *http.Request) {
	var req ReplaceItemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	it, err := s.Trips.ReplaceItem(r.Context(), callerFrom(r.Context()), itemIDParam(r), req.Place.toDomain())
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemResponse{Item: itemFromDomain(it)})
}

func (s *Server) ListAlternatives(w http.ResponseWriter, r *http.Request) {
	limit := s.AlternativesLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			validationError(w, r, "invalid limit", map[string]any{"limit": "must be an integer"})
			return
		}
		limit = n
	}
	places, err := s.Trips.Alternatives(r.Context(), itemIDParam(r), limit)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	out := make([]Place, 0, len(places))
	for _, p := range places {
		out = append(out, placeFromDomain(p))
	}
	writeJSON(w, http.StatusOK, PlacesResponse{Places: out})
}

// AddDependency makes the path item depend on the prerequisite named in the body.
func (s *Server) AddDependency(w http.ResponseWriter, r *http.Request) {
	var req AddDependencyRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	d, err := s.Trips.AddDependency(r.Context(), callerFrom(r.Context()), trips.AddDependencyInput{
		DependentID:    itemIDParam(r),
		PrerequisiteID: domain.ItemID(strings.TrimSpace(req.PrerequisiteID)),
		Action:         domain.ViolationAction(strings.ToUpper(strings.TrimSpace(req.Action))),
	})
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, DependencyResponse{Dependency: dependencyFromDomain(d)})
}
