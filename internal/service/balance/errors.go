package balance

import (
	"fmt"

	"github.com/tinoosan/voucherledger/internal/errs"
)

var errNotInScope = fmt.Errorf("balance: entity %w", errs.ErrNotFound)
