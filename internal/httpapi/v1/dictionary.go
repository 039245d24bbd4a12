package v1

import (
	"net/http"

	"github.com/tinoosan/voucherledger/internal/dictionary"
)

// GET /dictionary/account-types
func (s *Server) getAccountTypes(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, dictionary.AccountTypes())
}

// GET /dictionary/entry-kinds
func (s *Server) getEntryKinds(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, dictionary.EntryKinds())
}
