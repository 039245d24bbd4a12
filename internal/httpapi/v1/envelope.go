package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/pagination"
)

// envelope is the response shape every route shares. The console branches on
// Success, not on the status code.
type envelope struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data,omitempty"`
	Message    string            `json:"message,omitempty"`
	Errors     []errs.FieldError `json:"errors,omitempty"`
	Pagination *pageInfo         `json:"pagination,omitempty"`
	Summary    any               `json:"summary,omitempty"`
}

type pageInfo struct {
	TotalRecords int `json:"totalRecords"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
	Limit        int `json:"limit"`
}

func toPageInfo(m pagination.Meta) *pageInfo {
	return &pageInfo{TotalRecords: m.TotalRecords, TotalPages: m.TotalPages, CurrentPage: m.CurrentPage, Limit: m.Limit}
}

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	toJSON(w, status, envelope{Success: true, Data: data})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	toJSON(w, status, envelope{Success: status < 400, Message: msg})
}

// writeValidation answers 200 with success=false and every field error.
func writeValidation(w http.ResponseWriter, r *http.Request, v errs.ValidationErrors) {
	validationFailures.WithLabelValues(routePattern(r)).Inc()
	toJSON(w, http.StatusOK, envelope{Success: false, Errors: v})
}

// fail maps a service or store error onto the envelope.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if v, ok := errs.AsValidation(err); ok {
		writeValidation(w, r, v)
		return
	}
	switch {
	case errors.Is(err, errs.ErrInvalid):
		writeValidation(w, r, errs.ValidationErrors{{Msg: err.Error()}})
	case errors.Is(err, errs.ErrNotFound):
		writeMessage(w, http.StatusNotFound, messageFor(err, "not found"))
	case errors.Is(err, errs.ErrImmutable):
		writeMessage(w, http.StatusConflict, messageFor(err, "code cannot be changed once set"))
	case errors.Is(err, errs.ErrConflict):
		writeMessage(w, http.StatusConflict, messageFor(err, "conflict"))
	case errors.Is(err, errs.ErrUnavailable), errors.Is(err, context.DeadlineExceeded):
		s.log.Warn("dependency unavailable", "req_id", chimw.GetReqID(r.Context()), "err", err)
		writeMessage(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		s.log.Error("request failed", "req_id", chimw.GetReqID(r.Context()), "err", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

// messageFor prefers a wrapped error's text over the bare sentinel's.
func messageFor(err error, fallback string) string {
	for _, sentinel := range []error{errs.ErrNotFound, errs.ErrConflict, errs.ErrImmutable} {
		if err == sentinel {
			return fallback
		}
	}
	return err.Error()
}
