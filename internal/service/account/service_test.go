package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/pagination"
	"github.com/tinoosan/voucherledger/internal/service/account"
	"github.com/tinoosan/voucherledger/internal/storage/memory"
)

func setup(t *testing.T) (*memory.Store, account.Service) {
	t.Helper()
	store := memory.New("USD")
	return store, account.New(store, store, store)
}

func usd(t *testing.T, units int64) ledger.Account {
	t.Helper()
	a, err := ledger.FromMinor("USD", units)
	require.NoError(t, err)
	return ledger.Account{Name: "Cash", Type: ledger.AccountTypeAsset, OpeningBalance: a, IsActive: true}
}

func TestCreate_AssignsSequentialCodes(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	next, err := svc.NextCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACC-1", next)

	a1, err := svc.Create(ctx, usd(t, 0))
	require.NoError(t, err)
	a2, err := svc.Create(ctx, usd(t, 0))
	require.NoError(t, err)
	assert.Equal(t, "ACC-1", a1.Code)
	assert.Equal(t, "ACC-2", a2.Code)
	assert.False(t, a1.CreatedAt.IsZero())

	next, _ = svc.NextCode(ctx)
	assert.Equal(t, "ACC-3", next)
}

func TestCreate_ManualCode(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)

	in := usd(t, 0)
	in.Code = " cash-01 "
	a, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "CASH-01", a.Code)

	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, errs.ErrConflict)

	// a manual code in the generated series pushes the counter past it
	in.Code = "ACC-7"
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)
	generated, err := svc.Create(ctx, usd(t, 0))
	require.NoError(t, err)
	assert.Equal(t, "ACC-8", generated.Code)
}

func TestCreate_AccumulatesValidationErrors(t *testing.T) {
	_, svc := setup(t)
	_, err := svc.Create(context.Background(), ledger.Account{Code: "WAY-TOO-LONG-CODE", Type: "cash-ish"})
	require.Error(t, err)
	v, ok := errs.AsValidation(err)
	require.True(t, ok)
	params := []string{}
	for _, fe := range v {
		params = append(params, fe.Param)
	}
	assert.ElementsMatch(t, []string{"code", "name", "type"}, params)
}

func TestUpdate_CodeIsImmutable(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	a, err := svc.Create(ctx, usd(t, 0))
	require.NoError(t, err)

	other := "ACC-99"
	_, err = svc.Update(ctx, a.ID, account.Patch{Code: &other})
	assert.ErrorIs(t, err, errs.ErrImmutable)

	same := a.Code
	name := "Petty Cash"
	inactive := false
	got, err := svc.Update(ctx, a.ID, account.Patch{Code: &same, Name: &name, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "Petty Cash", got.Name)
	assert.False(t, got.IsActive)
	assert.Equal(t, a.Code, got.Code)

	_, err = svc.Update(ctx, uuid.New(), account.Patch{Name: &name})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDelete_ReferencedAccountConflicts(t *testing.T) {
	ctx := context.Background()
	store, svc := setup(t)
	a, err := svc.Create(ctx, usd(t, 100000))
	require.NoError(t, err)
	b, err := svc.Create(ctx, usd(t, 0))
	require.NoError(t, err)
	unused, err := svc.Create(ctx, usd(t, 0))
	require.NoError(t, err)

	amount, _ := ledger.FromMinor("USD", 30000)
	_, err = store.CreateEntry(ctx, ledger.Entry{
		ID: uuid.New(), Kind: ledger.KindContra, Date: time.Now().UTC(),
		FromAccountID: a.ID, ToAccountID: b.ID, Net: amount,
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, a.ID)
	assert.ErrorIs(t, err, errs.ErrConflict)
	_, err = svc.Get(ctx, a.ID)
	assert.NoError(t, err, "account must remain present")

	require.NoError(t, svc.Delete(ctx, unused.ID))
	_, err = svc.Get(ctx, unused.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestList_FiltersSortsAndPages(t *testing.T) {
	ctx := context.Background()
	_, svc := setup(t)
	names := []string{"Cash", "Main Bank", "Savings Bank", "Sales"}
	for _, n := range names {
		in := usd(t, 0)
		in.Name = n
		if n == "Sales" {
			in.Type = ledger.AccountTypeRevenue
		}
		_, err := svc.Create(ctx, in)
		require.NoError(t, err)
	}

	got, meta, err := svc.List(ctx, account.ListQuery{Page: pagination.Params{Page: 1, Limit: 10}, Search: "BANK", SortBy: "name", SortOrder: "desc"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Savings Bank", got[0].Name)
	assert.Equal(t, 2, meta.TotalRecords)

	got, _, err = svc.List(ctx, account.ListQuery{Page: pagination.Params{Page: 1, Limit: 10}, Type: ledger.AccountTypeRevenue})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Sales", got[0].Name)

	got, meta, err = svc.List(ctx, account.ListQuery{Page: pagination.Params{Page: 2, Limit: 3}})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 2, meta.TotalPages)
	assert.Equal(t, "ACC-4", got[0].Code)
}
