package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/voucherledger/internal/ledger"
)

func row(t *testing.T, balance int64) ledger.BalanceSnapshot {
	t.Helper()
	z := ledger.MustZero("USD")
	b, err := ledger.FromMinor("USD", balance)
	require.NoError(t, err)
	return ledger.BalanceSnapshot{
		Opening: b, BillAmount: z, Received: z, Payment: z, ReturnAmount: z,
		Discount: z, Inflow: z, Outflow: z, Balance: b,
	}
}

func TestSummarize_TotalsAtAmountCap(t *testing.T) {
	rows := []ledger.BalanceSnapshot{row(t, ledger.MaxAmountMinor), row(t, ledger.MaxAmountMinor), row(t, -1)}
	sum, err := summarize("USD", rows)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Count)
	assert.Equal(t, 2*ledger.MaxAmountMinor-1, ledger.Minor(sum.TotalBalance))
	assert.Equal(t, 2*ledger.MaxAmountMinor-1, ledger.Minor(sum.TotalOpening))
}

func TestSummarize_OverflowIsAnError(t *testing.T) {
	var rows []ledger.BalanceSnapshot
	for i := 0; i < 10_000; i++ {
		rows = append(rows, row(t, ledger.MaxAmountMinor))
	}
	_, err := summarize("USD", rows)
	assert.ErrorIs(t, err, ledger.ErrAmountRange)
}
