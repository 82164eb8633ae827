package httpapi

import (
	"net/http"

	"github.com/oapi-codegen/nullable"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
)

const sessionHeader = "X-Session-Id"

func sessionFrom(r *http.Request) domain.SessionID {
	return domain.SessionID(r.Header.Get(sessionHeader))
}

func (s *Server) ItemVotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	itemID := itemIDParam(r)
	sum, err := s.Votes.Summary(ctx, itemID)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	out := ItemVotes{Summary: voteSummaryFromDomain(sum), MyVote: nullable.NewNullNullable[bool]()}
	if session := sessionFrom(r); session != "" {
		v, err := s.Votes.MyVote(ctx, itemID, session)
		if err != nil {
			writeAppError(w, r, s.Log, err)
			return
		}
		if v != nil {
			out.MyVote = nullable.NewNullableWithValue(v.Upvote)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) CastVote(w http.ResponseWriter, r *http.Request) {
	var req CastVoteRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Upvote == nil {
		validationError(w, r, "invalid vote", map[string]any{"upvote": "required"})
		return
	}
	sum, err := s.Votes.Cast(r.Context(), itemIDParam(r), sessionFrom(r), *req.Upvote)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, voteSummaryFromDomain(sum))
}

func (s *Server) RetractVote(w http.ResponseWriter, r *http.Request) {
	sum, err := s.Votes.Retract(r.Context(), itemIDParam(r), sessionFrom(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, voteSummaryFromDomain(sum))
}

func (s *Server) TripVoteSummary(w http.ResponseWriter, r *http.Request) {
	sums, err := s.Votes.SummaryForTrip(r.Context(), tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	out := make([]VoteSummary, 0, len(sums))
	for _, v := range sums {
		out = append(out, voteSummaryFromDomain(v))
	}
	writeJSON(w, http.StatusOK, VoteSummariesResponse{Votes: out})
}
