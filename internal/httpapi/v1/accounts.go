package v1

import (
	"net/http"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/service/account"
)

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	typ := q.Get("accountType")
	if typ == "" {
		typ = q.Get("type")
	}
	var v errs.ValidationErrors
	lq := account.ListQuery{
		Page:      s.pageQuery(&v, q),
		Search:    q.Get("search"),
		Type:      ledger.AccountType(typ),
		IsActive:  boolQuery(&v, q, "isActive"),
		SortBy:    q.Get("sortBy"),
		SortOrder: sortOrderQuery(&v, q),
	}
	if lq.Type != "" && !lq.Type.Valid() {
		v.Add("accountType", "is not a known account type", typ)
	}
	if len(v) > 0 {
		writeValidation(w, r, v)
		return
	}
	list, meta, err := s.accounts.List(r.Context(), lq)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, envelope{Success: true, Data: out, Pagination: toPageInfo(meta)})
}

func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	v := bind(w, r, &req)
	a := req.toDomain(&v, s.currency)
	a.Code = account.NormalizeCode(a.Code)
	if err := s.accounts.ValidateCreate(a); err != nil {
		if fv, ok := errs.AsValidation(err); ok {
			v.Merge(fv)
		}
	}
	if len(v) > 0 {
		writeValidation(w, r, v)
		return
	}
	created, err := s.accounts.Create(r.Context(), a)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("account created", "id", created.ID, "code", created.Code, "by", subjectFrom(r.Context()))
	writeData(w, http.StatusCreated, toAccountResponse(created))
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusNotFound, "account not found")
		return
	}
	a, err := s.accounts.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toAccountResponse(a))
}

func (s *Server) putAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusNotFound, "account not found")
		return
	}
	var req accountPatchRequest
	v := bind(w, r, &req)
	p := account.Patch{Code: req.Code, Name: req.Name, Description: req.Description, IsActive: req.IsActive}
	if req.Type != nil {
		t := ledger.AccountType(*req.Type)
		p.Type = &t
	}
	if req.OpeningBalance != nil {
		if amt, ok := amountField(&v, "openingBalance", *req.OpeningBalance, s.currency); ok {
			p.OpeningBalance = &amt
		}
	}
	if len(v) > 0 {
		writeValidation(w, r, v)
		return
	}
	updated, err := s.accounts.Update(r.Context(), id, p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toAccountResponse(updated))
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeMessage(w, http.StatusNotFound, "account not found")
		return
	}
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("account deleted", "id", id, "by", subjectFrom(r.Context()))
	writeMessage(w, http.StatusOK, "account deleted")
}

func (s *Server) nextAccountCode(w http.ResponseWriter, r *http.Request) {
	code, err := s.accounts.NextCode(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"accountCode": code})
}
