package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Overland-East-Bay/itinerary-planner-api/internal/domain"
	"github.com/Overland-East-Bay/itinerary-planner-api/internal/ports/out/idempotency"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	maxIdempotencyKeyLen = 255
)

// idempotent wraps a create handler so that a retried request replays the first 2xx response.
//
//   - Replay if same subject+key+route+bodyHash
//   - Reject if same subject+key+route with a different bodyHash (409)
//
// Requests without an Idempotency-Key header pass straight through.
func (s *Server) idempotent(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
		if key == "" || s.Idem == nil {
			next(w, r)
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			validationError(w, r, "invalid Idempotency-Key", map[string]any{"idempotencyKey": "too long"})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			validationError(w, r, "invalid request body", map[string]any{"body": err.Error()})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		ctx := r.Context()
		sub, _ := SubjectFromContext(ctx)
		bodyHash := hashRequest(r.URL.Path, body)
		metaFP := idempotency.Fingerprint{
			Key:     idempotency.Key(key),
			Subject: domain.SubjectID(sub),
			Method:  r.Method,
			Route:   route,
		}

		if meta, ok, err := s.Idem.Get(ctx, metaFP); err != nil {
			writeAppError(w, r, s.Log, err)
			return
		} else if ok {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   s.Clock.Now().UTC(),
			}); err != nil {
				s.Log.Warn(ctx, "idempotency meta write failed", "err", err, "route", route)
			}
		}

		respFP := metaFP
		respFP.BodyHash = bodyHash
		if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
			writeAppError(w, r, s.Log, err)
			return
		} else if ok && rec.StatusCode >= 200 && rec.StatusCode < 300 {
			w.Header().Set("Content-Type", rec.ContentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}

		var buf bytes.Buffer
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Tee(&buf)
		next(ww, r)

		status := ww.Status()
		if status < 200 || status >= 300 {
			return
		}
		if err := s.Idem.Put(ctx, respFP, idempotency.Record{
			StatusCode:  status,
			ContentType: ww.Header().Get("Content-Type"),
			Body:        buf.Bytes(),
			CreatedAt:   s.Clock.Now().UTC(),
		}); err != nil {
			s.Log.Warn(ctx, "idempotency record write failed", "err", err, "route", route)
		}
	}
}

// hashRequest fingerprints the path and the JSON body. Whitespace differences in the body
// do not change the hash.
func hashRequest(path string, body []byte) string {
	var canon bytes.Buffer
	if err := json.Compact(&canon, body); err != nil {
		canon.Reset()
		canon.Write(body)
	}
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(canon.Bytes())
	return hex.EncodeToString(h.Sum(nil))
}
