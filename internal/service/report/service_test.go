package report_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/pagination"
	"github.com/tinoosan/voucherledger/internal/service/balance"
	"github.com/tinoosan/voucherledger/internal/service/entry"
	"github.com/tinoosan/voucherledger/internal/service/report"
	"github.com/tinoosan/voucherledger/internal/storage/memory"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func usd(t *testing.T, units int64) money.Amount {
	t.Helper()
	a, err := ledger.FromMinor("USD", units)
	require.NoError(t, err)
	return a
}

type world struct {
	store   *memory.Store
	entries entry.Service
	reports report.Service
	bank    ledger.Account
}

func newWorld(t *testing.T) world {
	t.Helper()
	store := memory.New("USD")
	bank, err := store.CreateAccount(context.Background(), ledger.Account{ID: uuid.New(), Name: "Bank", Type: ledger.AccountTypeAsset, OpeningBalance: usd(t, 0), IsActive: true})
	require.NoError(t, err)
	return world{
		store:   store,
		entries: entry.New(store, store, store, "USD"),
		reports: report.New(store, report.WithClock(func() time.Time { return fixedNow })),
		bank:    bank,
	}
}

func (w world) customer(t *testing.T, name, contact string, opening int64) ledger.Party {
	t.Helper()
	p, err := w.store.CreateParty(context.Background(), ledger.Party{ID: uuid.New(), Kind: ledger.PartyCustomer, Name: name, Contact: contact, OpeningBalance: usd(t, opening), IsActive: true})
	require.NoError(t, err)
	return p
}

func (w world) settle(t *testing.T, kind ledger.Kind, party ledger.Party, date time.Time, gross, discount int64) {
	t.Helper()
	_, err := w.entries.Create(context.Background(), ledger.Entry{
		Kind: kind, Date: date, PartyID: party.ID, AccountID: w.bank.ID,
		Gross: usd(t, gross), Discount: usd(t, discount), Net: usd(t, gross-discount),
	})
	require.NoError(t, err)
}

func page(n, limit int) pagination.Params { return pagination.Params{Page: n, Limit: limit} }

func TestDueBalance_CustomerReceipt(t *testing.T) {
	w := newWorld(t)
	acme := w.customer(t, "Acme", "555-1000", 0)
	w.settle(t, ledger.KindSalesBill, acme, fixedNow, 80000, 0)
	w.settle(t, ledger.KindCustomerReceipt, acme, fixedNow, 50000, 5000)

	res, err := w.reports.GetReport(context.Background(), report.Query{Entity: balance.ScopeCustomers, FilterType: "All Customer", Page: page(1, 10)})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, "450.00", ledger.Format(row.Received))
	assert.Equal(t, "50.00", ledger.Format(row.Discount))
	assert.Equal(t, "300.00", ledger.Format(row.Balance))
	assert.Equal(t, 1, res.Summary.Count)
	assert.Equal(t, "800.00", ledger.Format(res.Summary.TotalBill))
	assert.Equal(t, "450.00", ledger.Format(res.Summary.TotalReceived))
}

func TestDueBalance_PredicatesAndSearch(t *testing.T) {
	w := newWorld(t)
	w.customer(t, "Due Traders", "111", 10000)
	adv := w.customer(t, "Advance Ltd", "222", 0)
	w.customer(t, "Settled Co", "333", 0)
	w.settle(t, ledger.KindCustomerReceipt, adv, fixedNow, 2000, 0)

	ctx := context.Background()
	res, err := w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeCustomers, FilterType: "Due Customer", Page: page(1, 10)})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Due Traders", res.Rows[0].Name)

	res, err = w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeCustomers, FilterType: "advance customer", Page: page(1, 10)})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "-20.00", ledger.Format(res.Rows[0].Balance))

	res, err = w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeCustomers, Search: "SETTLED", Page: page(1, 10)})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	res, err = w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeCustomers, Search: "333", Page: page(1, 10)})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Settled Co", res.Rows[0].Name)
}

func TestDueBalance_DateWindows(t *testing.T) {
	w := newWorld(t)
	c := w.customer(t, "Acme", "", 0)
	w.settle(t, ledger.KindSalesBill, c, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), 1000, 0)
	w.settle(t, ledger.KindSalesBill, c, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), 2000, 0)
	w.settle(t, ledger.KindSalesBill, c, fixedNow, 4000, 0)

	ctx := context.Background()
	cases := map[string]string{
		"Today":      "40.00",
		"This Week":  "40.00",
		"This Month": "60.00",
		"Last Month": "10.00",
		"This Year":  "70.00",
	}
	for filter, want := range cases {
		res, err := w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeCustomers, FilterType: filter, Page: page(1, 10)})
		require.NoError(t, err, filter)
		require.Len(t, res.Rows, 1, filter)
		assert.Equal(t, want, ledger.Format(res.Rows[0].BillAmount), filter)
	}

	res, err := w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeCustomers, FilterType: "Custom Range", StartDate: "2024-05-01", EndDate: "2024-06-03", Page: page(1, 10)})
	require.NoError(t, err)
	assert.Equal(t, "30.00", ledger.Format(res.Rows[0].BillAmount))
}

func TestGetReport_ValidationErrors(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	_, err := w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeCustomers, FilterType: "Custom Range", Page: page(1, 10)})
	v, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Len(t, v, 2)

	_, err = w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeCustomers, FilterType: "Custom Range", StartDate: "2024-06-10", EndDate: "2024-06-01", Page: page(1, 10)})
	v, _ = errs.AsValidation(err)
	require.Len(t, v, 1)
	assert.Equal(t, "endDate", v[0].Param)

	_, err = w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeSuppliers, FilterType: "Due Customer", Page: page(1, 10)})
	assert.True(t, errs.IsInvalid(err))
}

func TestGetReport_PagesCoverFilterAndSummaryIsWhole(t *testing.T) {
	w := newWorld(t)
	for i := 0; i < 23; i++ {
		w.customer(t, "Customer", "", int64(100*(i+1)))
	}
	ctx := context.Background()
	var seen []string
	var total int
	for p := 1; ; p++ {
		res, err := w.reports.GetReport(ctx, report.Query{Entity: balance.ScopeCustomers, Page: page(p, 10), SortBy: "balance", SortOrder: "desc"})
		require.NoError(t, err)
		assert.Equal(t, 23, res.Summary.Count)
		assert.Equal(t, "276.00", ledger.Format(res.Summary.TotalBalance))
		assert.Equal(t, 3, res.Meta.TotalPages)
		if len(res.Rows) == 0 {
			break
		}
		for _, r := range res.Rows {
			seen = append(seen, r.Code)
			total++
		}
	}
	assert.Equal(t, 23, total)
	uniq := map[string]bool{}
	for _, c := range seen {
		uniq[c] = true
	}
	assert.Len(t, uniq, 23)
	assert.Equal(t, "CUS-23", seen[0], "highest opening first")
}

func TestGetReport_ConcurrentIdenticalQueriesAgree(t *testing.T) {
	w := newWorld(t)
	c := w.customer(t, "Acme", "", 0)
	w.settle(t, ledger.KindSalesBill, c, fixedNow, 1000, 0)

	var wg sync.WaitGroup
	results := make([]report.Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := w.reports.GetReport(context.Background(), report.Query{Entity: balance.ScopeCustomers, Page: page(1, 10)})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()
	for _, r := range results[1:] {
		assert.Equal(t, results[0], r)
	}
}

func TestStatement_Account(t *testing.T) {
	w := newWorld(t)
	c := w.customer(t, "Acme", "", 0)
	w.settle(t, ledger.KindCustomerReceipt, c, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 1000, 0)
	w.settle(t, ledger.KindCustomerReceipt, c, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), 500, 100)

	st, err := w.reports.Statement(context.Background(), balance.Scope{Kind: balance.ScopeAccounts, EntityID: w.bank.ID}, "", "")
	require.NoError(t, err)
	require.Len(t, st.Rows, 2)
	assert.Equal(t, "0.00", ledger.Format(st.Opening))
	assert.Equal(t, "14.00", ledger.Format(st.Closing))

	st, err = w.reports.Statement(context.Background(), balance.Scope{Kind: balance.ScopeCustomers, EntityID: c.ID}, "2024-06-02", "")
	require.NoError(t, err)
	assert.Equal(t, "-10.00", ledger.Format(st.Opening))
	assert.Equal(t, "-15.00", ledger.Format(st.Closing))

	_, err = w.reports.Statement(context.Background(), balance.Scope{Kind: balance.ScopeAccounts, EntityID: uuid.New()}, "", "")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
