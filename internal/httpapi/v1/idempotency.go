package v1

import (
	"bytes"
	"io"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/voucherledger/internal/idempotency"
)

const idempotencyHeader = "Idempotency-Key"

// idempotent replays the first 201 answered for an Idempotency-Key on a POST.
// Reusing a key with a different body is a conflict. Requests sharing a key
// are serialized so a concurrent retry waits and then replays.
func (s *Server) idempotent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(idempotencyHeader)
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		hash := idempotency.Hash(body)
		storeKey := r.URL.Path + "\x00" + key

		release, err := s.idemLocks.Acquire(r.Context(), storeKey)
		if err != nil {
			writeMessage(w, http.StatusServiceUnavailable, "request cancelled while waiting on Idempotency-Key")
			return
		}
		defer release()

		prev, ok, err := s.idem.LookupIdempotency(r.Context(), storeKey)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if ok {
			if prev.BodyHash != hash {
				writeMessage(w, http.StatusConflict, "Idempotency-Key was already used with a different request body")
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(prev.Status)
			_, _ = w.Write(prev.Payload)
			return
		}

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		var buf bytes.Buffer
		ww.Tee(&buf)
		next.ServeHTTP(ww, r)
		if ww.Status() != http.StatusCreated {
			return
		}
		resp := idempotency.Response{BodyHash: hash, Status: ww.Status(), Payload: buf.Bytes()}
		if err := s.idem.SaveIdempotency(r.Context(), storeKey, resp); err != nil {
			s.log.Warn("idempotency save failed", "req_id", chimw.GetReqID(r.Context()), "err", err)
		}
	})
}
