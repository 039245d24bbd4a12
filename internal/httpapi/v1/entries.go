package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/service/entry"
)

// entryHandlers serves the routes of one entry kind.
type entryHandlers struct {
	s    *Server
	kind ledger.Kind
}

func (h entryHandlers) notFound(w http.ResponseWriter) {
	writeMessage(w, http.StatusNotFound, "entry not found")
}

func (h entryHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var v errs.ValidationErrors
	lq := entry.ListQuery{
		Page:      h.s.pageQuery(&v, q),
		Search:    q.Get("search"),
		From:      dateField(&v, "startDate", q.Get("startDate")),
		To:        dateField(&v, "endDate", q.Get("endDate")),
		AccountID: idField(&v, "accountId", q.Get("accountId")),
		SortOrder: sortOrderQuery(&v, q),
	}
	for _, param := range []string{"partyId", "customerId", "supplierId"} {
		if raw := q.Get(param); raw != "" {
			lq.PartyID = idField(&v, param, raw)
			break
		}
	}
	if !lq.From.IsZero() && !lq.To.IsZero() && lq.To.Before(lq.From) {
		v.Add("endDate", "must not be before startDate", q.Get("endDate"))
	}
	if len(v) > 0 {
		writeValidation(w, r, v)
		return
	}
	list, meta, err := h.s.entries.List(r.Context(), h.kind, lq)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	out := make([]entryResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toEntryResponse(e))
	}
	toJSON(w, http.StatusOK, envelope{Success: true, Data: out, Pagination: toPageInfo(meta)})
}

// decode binds the body and collects request and rule violations together.
// A non-nil error means a lookup failed and the request cannot be judged.
func (h entryHandlers) decode(w http.ResponseWriter, r *http.Request, id uuid.UUID) (ledger.Entry, errs.ValidationErrors, error) {
	var req entryRequest
	v := bind(w, r, &req)
	if len(v) > 0 && v[0].Param == "body" {
		return ledger.Entry{}, v, nil
	}
	e := req.toDomain(&v, h.kind, h.s.currency)
	e.ID = id
	if id != uuid.Nil {
		// Updates are validated by the service against the stored version.
		return e, v, nil
	}
	if err := h.s.entries.Validate(r.Context(), e); err != nil {
		fv, ok := errs.AsValidation(err)
		if !ok {
			return e, v, err
		}
		v.Merge(fv)
	}
	return e, v, nil
}

func (h entryHandlers) create(w http.ResponseWriter, r *http.Request) {
	e, v, err := h.decode(w, r, uuid.Nil)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	if len(v) > 0 {
		writeValidation(w, r, v)
		return
	}
	e.CreatedBy = subjectFrom(r.Context())
	created, err := h.s.entries.Create(r.Context(), e)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	h.s.log.Info("entry created", "kind", h.kind, "id", created.ID, "code", created.Code, "by", created.CreatedBy)
	writeData(w, http.StatusCreated, toEntryResponse(created))
}

func (h entryHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w)
		return
	}
	e, err := h.s.entries.Get(r.Context(), h.kind, id)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toEntryResponse(e))
}

func (h entryHandlers) getByCode(w http.ResponseWriter, r *http.Request) {
	e, err := h.s.entries.GetByCode(r.Context(), h.kind, chi.URLParam(r, "code"))
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toEntryResponse(e))
}

func (h entryHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w)
		return
	}
	e, v, err := h.decode(w, r, id)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	if len(v) > 0 {
		writeValidation(w, r, v)
		return
	}
	updated, err := h.s.entries.Update(r.Context(), e)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	h.s.log.Info("entry updated", "kind", h.kind, "id", updated.ID, "by", subjectFrom(r.Context()))
	writeData(w, http.StatusOK, toEntryResponse(updated))
}

func (h entryHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w)
		return
	}
	if err := h.s.entries.Delete(r.Context(), h.kind, id); err != nil {
		h.s.fail(w, r, err)
		return
	}
	h.s.log.Info("entry deleted", "kind", h.kind, "id", id, "by", subjectFrom(r.Context()))
	writeMessage(w, http.StatusOK, "entry deleted")
}

func (h entryHandlers) nextCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.s.entries.NextCode(r.Context(), h.kind)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"code": code})
}
