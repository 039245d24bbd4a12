package v1

import (
	"net/http"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/service/party"
)

// partyHandlers serves one party kind; customers and suppliers share every handler.
type partyHandlers struct {
	s    *Server
	kind ledger.PartyKind
}

func (h partyHandlers) notFound(w http.ResponseWriter) {
	writeMessage(w, http.StatusNotFound, string(h.kind)+" not found")
}

func (h partyHandlers) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var v errs.ValidationErrors
	lq := party.ListQuery{
		Page:      h.s.pageQuery(&v, q),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: sortOrderQuery(&v, q),
	}
	if len(v) > 0 {
		writeValidation(w, r, v)
		return
	}
	list, meta, err := h.s.parties.List(r.Context(), h.kind, lq)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	out := make([]partyResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPartyResponse(p))
	}
	toJSON(w, http.StatusOK, envelope{Success: true, Data: out, Pagination: toPageInfo(meta)})
}

func (h partyHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	v := bind(w, r, &req)
	p := req.toDomain(&v, h.kind, h.s.currency)
	if err := h.s.parties.Validate(p); err != nil {
		if fv, ok := errs.AsValidation(err); ok {
			v.Merge(fv)
		}
	}
	if len(v) > 0 {
		writeValidation(w, r, v)
		return
	}
	created, err := h.s.parties.Create(r.Context(), p)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	h.s.log.Info(string(h.kind)+" created", "id", created.ID, "code", created.Code, "by", subjectFrom(r.Context()))
	writeData(w, http.StatusCreated, toPartyResponse(created))
}

func (h partyHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w)
		return
	}
	p, err := h.s.parties.Get(r.Context(), h.kind, id)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toPartyResponse(p))
}

func (h partyHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w)
		return
	}
	var req partyPatchRequest
	v := bind(w, r, &req)
	p := party.Patch{Code: req.Code, Name: req.Name, Contact: req.Contact, Address: req.Address, IsActive: req.IsActive}
	if req.OpeningBalance != nil {
		if amt, ok := amountField(&v, "openingBalance", *req.OpeningBalance, h.s.currency); ok {
			p.OpeningBalance = &amt
		}
	}
	if len(v) > 0 {
		writeValidation(w, r, v)
		return
	}
	updated, err := h.s.parties.Update(r.Context(), h.kind, id, p)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toPartyResponse(updated))
}

func (h partyHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w)
		return
	}
	if err := h.s.parties.Delete(r.Context(), h.kind, id); err != nil {
		h.s.fail(w, r, err)
		return
	}
	h.s.log.Info(string(h.kind)+" deleted", "id", id, "by", subjectFrom(r.Context()))
	writeMessage(w, http.StatusOK, string(h.kind)+" deleted")
}

func (h partyHandlers) nextCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.s.parties.NextCode(r.Context(), h.kind)
	if err != nil {
		h.s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{string(h.kind) + "Code": code})
}
