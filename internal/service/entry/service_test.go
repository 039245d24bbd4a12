package entry_test

import (
	"context"
	"strconv"
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
	"github.com/tinoosan/voucherledger/internal/service/entry"
	"github.com/tinoosan/voucherledger/internal/storage/memory"
)

type fixture struct {
	store    *memory.Store
	svc      entry.Service
	cash     ledger.Account
	bank     ledger.Account
	closed   ledger.Account
	customer ledger.Party
	supplier ledger.Party
}

func usd(t *testing.T, units int64) money.Amount {
	t.Helper()
	a, err := ledger.FromMinor("USD", units)
	require.NoError(t, err)
	return a
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New("USD")
	f := fixture{store: store, svc: entry.New(store, store, store, "USD")}
	mk := func(name string, active bool) ledger.Account {
		a, err := store.CreateAccount(ctx, ledger.Account{ID: uuid.New(), Name: name, Type: ledger.AccountTypeAsset, OpeningBalance: usd(t, 0), IsActive: active})
		require.NoError(t, err)
		return a
	}
	f.cash, f.bank, f.closed = mk("Cash", true), mk("Bank", true), mk("Old Safe", false)
	var err error
	f.customer, err = store.CreateParty(ctx, ledger.Party{ID: uuid.New(), Kind: ledger.PartyCustomer, Name: "Acme", OpeningBalance: usd(t, 0), IsActive: true})
	require.NoError(t, err)
	f.supplier, err = store.CreateParty(ctx, ledger.Party{ID: uuid.New(), Kind: ledger.PartySupplier, Name: "Globex", OpeningBalance: usd(t, 0), IsActive: true})
	require.NoError(t, err)
	return f
}

func params(err error) []string {
	v, _ := errs.AsValidation(err)
	out := make([]string, 0, len(v))
	for _, fe := range v {
		out = append(out, fe.Param)
	}
	return out
}

func today() time.Time { return time.Now().UTC() }

func TestContra_ValidationAccumulates(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Create(context.Background(), ledger.Entry{Kind: ledger.KindContra, Net: usd(t, 0)})
	require.Error(t, err)
	assert.True(t, errs.IsInvalid(err))
	assert.ElementsMatch(t, []string{"date", "fromAccountId", "toAccountId", "amount"}, params(err))

	_, err = f.svc.Create(context.Background(), ledger.Entry{Kind: ledger.KindContra, Date: today(), FromAccountID: f.cash.ID, ToAccountID: f.cash.ID, Net: usd(t, 100)})
	assert.Equal(t, []string{"toAccountId"}, params(err))

	_, err = f.svc.Create(context.Background(), ledger.Entry{Kind: ledger.KindContra, Date: today(), FromAccountID: f.closed.ID, ToAccountID: uuid.New(), Net: usd(t, 100)})
	assert.ElementsMatch(t, []string{"fromAccountId", "toAccountId"}, params(err))
}

func TestContra_CodesAndConcurrency(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	next, err := f.svc.NextCode(ctx, ledger.KindContra)
	require.NoError(t, err)
	assert.Equal(t, "CON-1", next)

	const n = 20
	var wg sync.WaitGroup
	codes := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := f.svc.Create(ctx, ledger.Entry{Kind: ledger.KindContra, Date: today(), FromAccountID: f.cash.ID, ToAccountID: f.bank.ID, Net: usd(t, 100)})
			if assert.NoError(t, err) {
				codes <- e.Code
			}
		}()
	}
	wg.Wait()
	close(codes)
	seen := map[string]bool{}
	for c := range codes {
		assert.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
	}
	assert.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen["CON-"+strconv.Itoa(i)], "missing CON-%d", i)
	}
}

func TestCreate_ManualCode(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := ledger.Entry{Kind: ledger.KindContra, Date: today(), FromAccountID: f.cash.ID, ToAccountID: f.bank.ID, Net: usd(t, 100)}

	bad := base
	bad.Code = "REC-4"
	_, err := f.svc.Create(ctx, bad)
	assert.Equal(t, []string{"code"}, params(err))

	manual := base
	manual.Code = "con-5"
	e, err := f.svc.Create(ctx, manual)
	require.NoError(t, err)
	assert.Equal(t, "CON-5", e.Code)

	_, err = f.svc.Create(ctx, manual)
	assert.ErrorIs(t, err, errs.ErrConflict)

	e, err = f.svc.Create(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, "CON-6", e.Code)
}

func TestCustomerReceipt_NetAmount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, ledger.Entry{
		Kind: ledger.KindCustomerReceipt, Date: today(), PartyID: f.customer.ID, AccountID: f.bank.ID,
		Gross: usd(t, 50000), Discount: usd(t, 5000), Net: usd(t, 45000),
	})
	require.NoError(t, err)
	assert.Equal(t, "RCV-1", e.Code)
	assert.Equal(t, "450.00", ledger.Format(e.Net))

	_, err = f.svc.Create(ctx, ledger.Entry{
		Kind: ledger.KindCustomerReceipt, Date: today(), PartyID: f.customer.ID,
		Gross: usd(t, 50000), Discount: usd(t, 5000), Net: usd(t, 50000),
	})
	assert.Equal(t, []string{"netAmount"}, params(err))

	// a supplier cannot settle a customer receipt
	_, err = f.svc.Create(ctx, ledger.Entry{
		Kind: ledger.KindCustomerReceipt, Date: today(), PartyID: f.supplier.ID,
		Gross: usd(t, 100), Discount: usd(t, 0), Net: usd(t, 100),
	})
	assert.Equal(t, []string{"customerId"}, params(err))
}

func TestItemized_TotalsAndFields(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	e, err := f.svc.Create(ctx, ledger.Entry{
		Kind: ledger.KindIncome, Date: today(),
		Items: []ledger.Item{
			{Label: "Interest", AccountID: f.bank.ID, Amount: usd(t, 1250)},
			{Label: "Rent received", AccountID: f.cash.ID, Amount: usd(t, 10000)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "REC-1", e.Code)
	assert.Equal(t, "112.50", ledger.Format(e.Net))

	_, err = f.svc.Create(ctx, ledger.Entry{
		Kind: ledger.KindIncome, Date: today(),
		Items: []ledger.Item{{Label: "", Amount: usd(t, 0)}},
	})
	assert.ElementsMatch(t, []string{"items[0].incomeHead", "items[0].amount", "items[0].accountId"}, params(err))

	_, err = f.svc.Create(ctx, ledger.Entry{Kind: ledger.KindExpense, Date: today()})
	assert.Equal(t, []string{"items"}, params(err))

	e, err = f.svc.Create(ctx, ledger.Entry{
		Kind: ledger.KindExpense, Date: today(), PartyID: f.supplier.ID, AccountID: f.cash.ID,
		Items: []ledger.Item{{Label: "Freight", Amount: usd(t, 700), Remark: "March"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "VCH-1", e.Code)
}

func TestItemized_TotalErrorIsReported(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	eur, err := money.NewAmountFromMinorUnits("EUR", 500)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, ledger.Entry{
		Kind: ledger.KindIncome,
		Items: []ledger.Item{
			{Label: "Interest", AccountID: f.bank.ID, Amount: usd(t, 1250)},
			{Label: "Grant", AccountID: f.cash.ID, Amount: eur},
		},
	})
	require.Error(t, err)
	assert.True(t, errs.IsInvalid(err))
	assert.ElementsMatch(t, []string{"items", "date"}, params(err))

	err = f.svc.Validate(ctx, ledger.Entry{
		Kind: ledger.KindExpense, Date: today(), AccountID: f.cash.ID, PartyID: f.supplier.ID,
		Items: []ledger.Item{{Label: "Paper", Amount: eur}, {Label: "Ink", Amount: usd(t, 300)}},
	})
	assert.Contains(t, params(err), "items")

	list, err := f.store.ListEntries(ctx, ledger.KindIncome)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdate_KeepsCodeAndStamps(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	created, err := f.svc.Create(ctx, ledger.Entry{Kind: ledger.KindContra, Date: today(), CreatedBy: "alice", FromAccountID: f.cash.ID, ToAccountID: f.bank.ID, Net: usd(t, 100)})
	require.NoError(t, err)

	changed := created
	changed.Code = "CON-77"
	_, err = f.svc.Update(ctx, changed)
	assert.ErrorIs(t, err, errs.ErrImmutable)

	edit := ledger.Entry{ID: created.ID, Kind: ledger.KindContra, Date: today(), Narration: "moved float", FromAccountID: f.cash.ID, ToAccountID: f.bank.ID, Net: usd(t, 250)}
	got, err := f.svc.Update(ctx, edit)
	require.NoError(t, err)
	assert.Equal(t, created.Code, got.Code)
	assert.Equal(t, "alice", got.CreatedBy)
	assert.Equal(t, "2.50", ledger.Format(got.Net))

	byCode, err := f.svc.GetByCode(ctx, ledger.KindContra, "con-1")
	require.NoError(t, err)
	assert.Equal(t, "moved float", byCode.Narration)

	require.NoError(t, f.svc.Delete(ctx, ledger.KindContra, created.ID))
	_, err = f.svc.Get(ctx, ledger.KindContra, created.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestList_Filters(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	d := func(day int) time.Time { return time.Date(2024, 5, day, 0, 0, 0, 0, time.UTC) }
	for _, spec := range []struct {
		day  int
		note string
	}{{1, "float top-up"}, {10, "weekly deposit"}, {20, "archive"}} {
		_, err := f.svc.Create(ctx, ledger.Entry{Kind: ledger.KindContra, Date: d(spec.day), Narration: spec.note, FromAccountID: f.cash.ID, ToAccountID: f.bank.ID, Net: usd(t, 100)})
		require.NoError(t, err)
	}
	page := pagination.Params{Page: 1, Limit: 10}

	got, meta, err := f.svc.List(ctx, ledger.KindContra, entry.ListQuery{Page: page})
	require.NoError(t, err)
	assert.Equal(t, 3, meta.TotalRecords)
	assert.Equal(t, "archive", got[0].Narration, "newest first by default")

	got, _, err = f.svc.List(ctx, ledger.KindContra, entry.ListQuery{Page: page, From: d(5), To: d(20)})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, _, err = f.svc.List(ctx, ledger.KindContra, entry.ListQuery{Page: page, Search: "DEPOSIT", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "CON-2", got[0].Code)

	got, _, err = f.svc.List(ctx, ledger.KindContra, entry.ListQuery{Page: page, AccountID: f.closed.ID})
	require.NoError(t, err)
	assert.Empty(t, got)
}
