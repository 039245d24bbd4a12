package memory

import (
	"github.com/tinoosan/voucherledger/internal/idempotency"
	"github.com/tinoosan/voucherledger/internal/service/account"
	"github.com/tinoosan/voucherledger/internal/service/entry"
	"github.com/tinoosan/voucherledger/internal/service/party"
	"github.com/tinoosan/voucherledger/internal/service/report"
)

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	// Service layer repos and writers
	_ account.Repo          = (*Store)(nil)
	_ account.Writer        = (*Store)(nil)
	_ account.CodePeeker    = (*Store)(nil)
	_ party.Repo            = (*Store)(nil)
	_ party.Writer          = (*Store)(nil)
	_ entry.Repo            = (*Store)(nil)
	_ entry.Writer          = (*Store)(nil)
	_ report.SnapshotReader = (*Store)(nil)

	// HTTP layer
	_ idempotency.Store = (*Store)(nil)
)
