package balance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/voucherledger/internal/ledger"
)

func amt(t *testing.T, units int64) money.Amount {
	t.Helper()
	a, err := ledger.FromMinor("USD", units)
	require.NoError(t, err)
	return a
}

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

func byCode(rows []ledger.BalanceSnapshot) map[string]ledger.BalanceSnapshot {
	out := map[string]ledger.BalanceSnapshot{}
	for _, r := range rows {
		out[r.Code] = r
	}
	return out
}

func TestCompute_ContraTransferMovesMoney(t *testing.T) {
	a := ledger.Account{ID: uuid.New(), Code: "A", Name: "Cash", OpeningBalance: amt(t, 100000)}
	b := ledger.Account{ID: uuid.New(), Code: "B", Name: "Bank", OpeningBalance: amt(t, 0)}
	snap := ledger.Snapshot{
		Currency: "USD",
		Accounts: []ledger.Account{b, a},
		Entries: []ledger.Entry{{
			ID: uuid.New(), Kind: ledger.KindContra, Code: "CON-1", Date: day(1),
			FromAccountID: a.ID, ToAccountID: b.ID, Net: amt(t, 30000),
		}},
	}
	rows, err := Compute(Scope{Kind: ScopeAccounts}, snap, Window{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Code)

	got := byCode(rows)
	assert.Equal(t, "700.00", ledger.Format(got["A"].Balance))
	assert.Equal(t, "300.00", ledger.Format(got["B"].Balance))
	assert.Equal(t, "300.00", ledger.Format(got["A"].Outflow))
	assert.Equal(t, "300.00", ledger.Format(got["B"].Inflow))
}

func TestCompute_CustomerReceiptCountsNet(t *testing.T) {
	c := ledger.Party{ID: uuid.New(), Kind: ledger.PartyCustomer, Code: "CUS-1", Name: "Acme", OpeningBalance: amt(t, 0)}
	bank := ledger.Account{ID: uuid.New(), Code: "BANK", OpeningBalance: amt(t, 0)}
	snap := ledger.Snapshot{
		Currency: "USD",
		Accounts: []ledger.Account{bank},
		Parties:  []ledger.Party{c},
		Entries: []ledger.Entry{
			{ID: uuid.New(), Kind: ledger.KindSalesBill, Date: day(1), PartyID: c.ID, Gross: amt(t, 80000), Discount: amt(t, 0), Net: amt(t, 80000)},
			{ID: uuid.New(), Kind: ledger.KindCustomerReceipt, Date: day(2), PartyID: c.ID, AccountID: bank.ID, Gross: amt(t, 50000), Discount: amt(t, 5000), Net: amt(t, 45000)},
		},
	}
	rows, err := Compute(Scope{Kind: ScopeCustomers}, snap, Window{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "800.00", ledger.Format(r.BillAmount))
	assert.Equal(t, "450.00", ledger.Format(r.Received))
	assert.Equal(t, "50.00", ledger.Format(r.Discount))
	assert.Equal(t, "300.00", ledger.Format(r.Balance))

	accs, err := Compute(Scope{Kind: ScopeAccounts}, snap, Window{})
	require.NoError(t, err)
	assert.Equal(t, "450.00", ledger.Format(accs[0].Balance))
}

func TestCompute_SupplierColumns(t *testing.T) {
	s := ledger.Party{ID: uuid.New(), Kind: ledger.PartySupplier, Code: "SUP-1", OpeningBalance: amt(t, 1000)}
	other := ledger.Party{ID: uuid.New(), Kind: ledger.PartyCustomer, Code: "CUS-1", OpeningBalance: amt(t, 0)}
	snap := ledger.Snapshot{
		Currency: "USD",
		Parties:  []ledger.Party{s, other},
		Entries: []ledger.Entry{
			{ID: uuid.New(), Kind: ledger.KindPurchaseBill, Date: day(1), PartyID: s.ID, Net: amt(t, 20000)},
			{ID: uuid.New(), Kind: ledger.KindExpense, Date: day(2), PartyID: s.ID, Net: amt(t, 3000), Items: []ledger.Item{{Label: "freight", Amount: amt(t, 1000)}, {Label: "fuel", Amount: amt(t, 2000)}}},
			{ID: uuid.New(), Kind: ledger.KindSupplierPayment, Date: day(3), PartyID: s.ID, Net: amt(t, 9000), Discount: amt(t, 1000)},
			{ID: uuid.New(), Kind: ledger.KindPurchaseReturn, Date: day(4), PartyID: s.ID, Net: amt(t, 2500), Discount: amt(t, 0)},
		},
	}
	rows, err := Compute(Scope{Kind: ScopeSuppliers}, snap, Window{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "230.00", ledger.Format(r.BillAmount))
	assert.Equal(t, "90.00", ledger.Format(r.Payment))
	assert.Equal(t, "10.00", ledger.Format(r.Discount))
	assert.Equal(t, "25.00", ledger.Format(r.ReturnAmount))
	// 10 + 230 - 90 - 10 - 25
	assert.Equal(t, "115.00", ledger.Format(r.Balance))
}

func TestCompute_ContraConservation(t *testing.T) {
	accs := []ledger.Account{
		{ID: uuid.New(), Code: "A", OpeningBalance: amt(t, 5000)},
		{ID: uuid.New(), Code: "B", OpeningBalance: amt(t, 0)},
		{ID: uuid.New(), Code: "C", OpeningBalance: amt(t, -700)},
	}
	var entries []ledger.Entry
	for i := 0; i < 30; i++ {
		from, to := accs[i%3], accs[(i+1)%3]
		entries = append(entries, ledger.Entry{ID: uuid.New(), Kind: ledger.KindContra, Date: day(1 + i%28), FromAccountID: from.ID, ToAccountID: to.ID, Net: amt(t, int64(100+i*37))})
	}
	rows, err := Compute(Scope{Kind: ScopeAccounts}, ledger.Snapshot{Currency: "USD", Accounts: accs, Entries: entries}, Window{})
	require.NoError(t, err)

	var in, out, opening, closing int64
	for _, r := range rows {
		in += ledger.Minor(r.Inflow)
		out += ledger.Minor(r.Outflow)
		opening += ledger.Minor(r.Opening)
		closing += ledger.Minor(r.Balance)
	}
	assert.Equal(t, in, out)
	assert.Equal(t, opening, closing)
}

func TestCompute_IsIdempotentAndWindowed(t *testing.T) {
	a := ledger.Account{ID: uuid.New(), Code: "A", OpeningBalance: amt(t, 1000)}
	b := ledger.Account{ID: uuid.New(), Code: "B", OpeningBalance: amt(t, 0)}
	snap := ledger.Snapshot{
		Currency: "USD",
		Accounts: []ledger.Account{a, b},
		Entries: []ledger.Entry{
			{ID: uuid.New(), Kind: ledger.KindContra, Date: day(1), FromAccountID: a.ID, ToAccountID: b.ID, Net: amt(t, 100)},
			{ID: uuid.New(), Kind: ledger.KindContra, Date: day(10), FromAccountID: a.ID, ToAccountID: b.ID, Net: amt(t, 200)},
			{ID: uuid.New(), Kind: ledger.KindIncome, Date: day(20), Items: []ledger.Item{{Label: "interest", AccountID: b.ID, Amount: amt(t, 50)}}},
		},
	}
	first, err := Compute(Scope{Kind: ScopeAccounts}, snap, Window{})
	require.NoError(t, err)
	second, err := Compute(Scope{Kind: ScopeAccounts}, snap, Window{})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	w := Window{From: day(5), To: day(15)}
	rows, err := Compute(Scope{Kind: ScopeAccounts, EntityID: b.ID}, snap, w)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2.00", ledger.Format(rows[0].Inflow))
	assert.Equal(t, "2.00", ledger.Format(rows[0].Balance))
}

func TestOrdered_UsesDateThenCreatedAt(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	e1 := ledger.Entry{ID: uuid.New(), Code: "late-day", Date: day(2), CreatedAt: t0}
	e2 := ledger.Entry{ID: uuid.New(), Code: "second", Date: day(1), CreatedAt: t0.Add(time.Hour)}
	e3 := ledger.Entry{ID: uuid.New(), Code: "first", Date: day(1), CreatedAt: t0}
	got := Ordered([]ledger.Entry{e1, e2, e3})
	assert.Equal(t, []string{"first", "second", "late-day"}, []string{got[0].Code, got[1].Code, got[2].Code})
}

func TestRunning_CarriesBalanceForward(t *testing.T) {
	a := ledger.Account{ID: uuid.New(), Code: "A", OpeningBalance: amt(t, 1000)}
	b := ledger.Account{ID: uuid.New(), Code: "B", OpeningBalance: amt(t, 0)}
	snap := ledger.Snapshot{
		Currency: "USD",
		Accounts: []ledger.Account{a, b},
		Entries: []ledger.Entry{
			{ID: uuid.New(), Code: "CON-1", Kind: ledger.KindContra, Date: day(1), FromAccountID: a.ID, ToAccountID: b.ID, Net: amt(t, 100)},
			{ID: uuid.New(), Code: "CON-2", Kind: ledger.KindContra, Date: day(3), FromAccountID: b.ID, ToAccountID: a.ID, Net: amt(t, 40)},
			{ID: uuid.New(), Code: "CON-3", Kind: ledger.KindContra, Date: day(5), FromAccountID: a.ID, ToAccountID: b.ID, Net: amt(t, 10)},
		},
	}
	opening, rows, err := Running(Scope{Kind: ScopeAccounts, EntityID: a.ID}, snap, Window{From: day(2)})
	require.NoError(t, err)
	assert.Equal(t, "9.00", ledger.Format(opening))
	require.Len(t, rows, 2)
	assert.Equal(t, "CON-2", rows[0].Code)
	assert.Equal(t, "0.40", ledger.Format(rows[0].Delta))
	assert.Equal(t, "9.40", ledger.Format(rows[0].Balance))
	assert.Equal(t, "-0.10", ledger.Format(rows[1].Delta))
	assert.Equal(t, "9.30", ledger.Format(rows[1].Balance))

	_, _, err = Running(Scope{Kind: ScopeAccounts, EntityID: uuid.New()}, snap, Window{})
	assert.Error(t, err)
}
