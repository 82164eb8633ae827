package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/app/trips"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

func tripIDParam(r *http.Request) domain.TripID {
	return domain.TripID(chi.URLParam(r, "tripId"))
}

func (s *Server) GenerateTrip(w http.ResponseWriter, r *http.Request) {
	var req GenerateTripRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	it, err := s.Trips.Generate(r.Context(), callerFrom(r.Context()), req.toInput())
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ItineraryResponse{Itinerary: ItineraryFromDomain(it)})
}

func (s *Server) ListMyTrips(w http.ResponseWriter, r *http.Request) {
	ts, err := s.Trips.ListMyTrips(r.Context(), callerFrom(r.Context()))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, TripsResponse{Trips: tripsFromDomain(ts)})
}

func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	it, err := s.Trips.GetTrip(r.Context(), tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItineraryResponse{Itinerary: ItineraryFromDomain(it)})
}

func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	var req UpdateTripRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	t, err := s.Trips.UpdateTrip(r.Context(), callerFrom(r.Context()), tripIDParam(r), req.toInput())
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, TripResponse{Trip: tripFromDomain(t)})
}

func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.Trips.DeleteTrip(r.Context(), callerFrom(r.Context()), tripIDParam(r)); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) CloneTrip(w http.ResponseWriter, r *http.Request) {
	var req CloneTripRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	it, err := s.Trips.Clone(r.Context(), callerFrom(r.Context()), tripIDParam(r), trips.CloneInput{
		PreserveDependencies: req.PreserveDependencies,
	})
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ItineraryResponse{Itinerary: ItineraryFromDomain(it)})
}

func (s *Server) ClaimTrip(w http.ResponseWriter, r *http.Request) {
	t, err := s.Trips.Claim(r.Context(), callerFrom(r.Context()), tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, TripResponse{Trip: tripFromDomain(t)})
}

func (s *Server) FinalizeTrip(w http.ResponseWriter, r *http.Request) {
	t, err := s.Trips.Finalize(r.Context(), callerFrom(r.Context()), tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, TripResponse{Trip: tripFromDomain(t)})
}

func (s *Server) RecalculateTripCost(w http.ResponseWriter, r *http.Request) {
	t, err := s.Trips.RecalculateCost(r.Context(), callerFrom(r.Context()), tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, TripResponse{Trip: tripFromDomain(t)})
}

func (s *Server) ListViolations(w http.ResponseWriter, r *http.Request) {
	vs, err := s.Trips.DependencyViolations(r.Context(), tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ViolationsResponse{Violations: violationsFromDomain(vs)})
}

func dayIDParam(r *http.Request) domain.DayID {
	return domain.DayID(chi.URLParam(r, "dayId"))
}

func (s *Server) AddDay(w http.ResponseWriter, r *http.Request) {
	d, err := s.Trips.AddDay(r.Context(), callerFrom(r.Context()), tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, DayResponse{Day: dayFromDomain(d)})
}

func (s *Server) DeleteDay(w http.ResponseWriter, r *http.Request) {
	if err := s.Trips.DeleteDay(r.Context(), callerFrom(r.Context()), dayIDParam(r)); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	it, err := s.Trips.AddItem(r.Context(), callerFrom(r.Context()), dayIDParam(r), req.toInput())
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, ItemResponse{Item: itemFromDomain(it)})
}

func (s *Server) ReorderDay(w http.ResponseWriter, r *http.Request) {
	var req ReorderDayRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	order := make([]domain.ItemID, 0, len(req.ItemIDs))
	for _, id := range req.ItemIDs {
		order = append(order, domain.ItemID(id))
	}
	items, err := s.Trips.ReorderDay(r.Context(), callerFrom(r.Context()), dayIDParam(r), order)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: itemsFromDomain(items)})
}

func (s *Server) RemoveDependency(w http.ResponseWriter, r *http.Request) {
	id := domain.DependencyID(chi.URLParam(r, "dependencyId"))
	if err := s.Trips.RemoveDependency(r.Context(), callerFrom(r.Context()), id); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
