package v1

import (
	"net/http"

	"github.com/tinoosan/voucherledger/internal/dictionary"
	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/service/balance"
	"github.com/tinoosan/voucherledger/internal/service/report"
)

const reportAccounts = balance.ScopeAccounts

func reportScopeFor(kind ledger.PartyKind) balance.ScopeKind {
	if kind == ledger.PartySupplier {
		return balance.ScopeSuppliers
	}
	return balance.ScopeCustomers
}

func (s *Server) balanceReport(scope balance.ScopeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var v errs.ValidationErrors
		rq := report.Query{
			Entity:     scope,
			FilterType: q.Get("filterType"),
			StartDate:  q.Get("startDate"),
			EndDate:    q.Get("endDate"),
			Search:     q.Get("search"),
			Page:       s.pageQuery(&v, q),
			SortBy:     q.Get("sortBy"),
			SortOrder:  sortOrderQuery(&v, q),
		}
		if len(v) > 0 {
			writeValidation(w, r, v)
			return
		}
		res, err := s.reports.GetReport(r.Context(), rq)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rows := make([]balanceRow, 0, len(res.Rows))
		for _, b := range res.Rows {
			rows = append(rows, toBalanceRow(b))
		}
		toJSON(w, http.StatusOK, envelope{
			Success:    true,
			Data:       rows,
			Pagination: toPageInfo(res.Meta),
			Summary:    summaryFor(scope, res.Summary),
		})
	}
}

func summaryFor(scope balance.ScopeKind, sum report.Summary) any {
	switch scope {
	case balance.ScopeCustomers:
		return customerSummary{
			TotalCustomers:  sum.Count,
			TotalBillAmount: amountJSON(sum.TotalBill),
			TotalReceived:   amountJSON(sum.TotalReceived),
			TotalDiscount:   amountJSON(sum.TotalDiscount),
			TotalBalance:    amountJSON(sum.TotalBalance),
		}
	case balance.ScopeSuppliers:
		return supplierSummary{
			TotalSuppliers:  sum.Count,
			TotalBillAmount: amountJSON(sum.TotalBill),
			TotalPayment:    amountJSON(sum.TotalPayment),
			TotalReturn:     amountJSON(sum.TotalReturn),
			TotalDiscount:   amountJSON(sum.TotalDiscount),
			TotalBalance:    amountJSON(sum.TotalBalance),
		}
	}
	return accountSummary{
		TotalAccounts: sum.Count,
		TotalOpening:  amountJSON(sum.TotalOpening),
		TotalInflow:   amountJSON(sum.TotalInflow),
		TotalOutflow:  amountJSON(sum.TotalOutflow),
		TotalBalance:  amountJSON(sum.TotalBalance),
	}
}

func (s *Server) filterOptions(scope balance.ScopeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string][]string{"filterOptions": dictionary.FilterLabels(string(scope))})
	}
}

// statement serves the running balance of one entity, optionally bounded by startDate and endDate.
func (s *Server) statement(scope balance.ScopeKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "id")
		if !ok {
			writeMessage(w, http.StatusNotFound, string(scope)+" not found")
			return
		}
		q := r.URL.Query()
		st, err := s.reports.Statement(r.Context(), balance.Scope{Kind: scope, EntityID: id}, q.Get("startDate"), q.Get("endDate"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		rows := make([]movementResponse, 0, len(st.Rows))
		for _, m := range st.Rows {
			rows = append(rows, toMovement(m))
		}
		writeData(w, http.StatusOK, statementResponse{Opening: amountJSON(st.Opening), Closing: amountJSON(st.Closing), Rows: rows})
	}
}
