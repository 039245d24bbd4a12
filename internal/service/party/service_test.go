package party_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/pagination"
	"github.com/tinoosan/voucherledger/internal/service/party"
	"github.com/tinoosan/voucherledger/internal/storage/memory"
)

func TestParties_CodesPerKind(t *testing.T) {
	ctx := context.Background()
	store := memory.New("USD")
	svc := party.New(store, store, store)
	zero := ledger.MustZero("USD")

	c, err := svc.Create(ctx, ledger.Party{Kind: ledger.PartyCustomer, Name: "Acme", OpeningBalance: zero})
	require.NoError(t, err)
	s, err := svc.Create(ctx, ledger.Party{Kind: ledger.PartySupplier, Name: "Globex", OpeningBalance: zero})
	require.NoError(t, err)
	assert.Equal(t, "CUS-1", c.Code)
	assert.Equal(t, "SUP-1", s.Code)

	next, err := svc.NextCode(ctx, ledger.PartyCustomer)
	require.NoError(t, err)
	assert.Equal(t, "CUS-2", next)

	// a customer is not reachable as a supplier
	_, err = svc.Get(ctx, ledger.PartySupplier, c.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestParties_ValidationAndSearch(t *testing.T) {
	ctx := context.Background()
	store := memory.New("USD")
	svc := party.New(store, store, store)
	zero := ledger.MustZero("USD")

	_, err := svc.Create(ctx, ledger.Party{Kind: ledger.PartyCustomer, Code: "bad code!", OpeningBalance: zero})
	v, ok := errs.AsValidation(err)
	require.True(t, ok)
	assert.Len(t, v, 2)

	for _, p := range []ledger.Party{
		{Kind: ledger.PartyCustomer, Name: "Acme Corp", Contact: "555-0100", Address: "1 Main St", OpeningBalance: zero},
		{Kind: ledger.PartyCustomer, Name: "Blue Shop", Contact: "555-0199", Address: "22 Acme Road", OpeningBalance: zero},
		{Kind: ledger.PartyCustomer, Name: "Corner Store", Contact: "555-0123", Address: "9 Side St", OpeningBalance: zero},
	} {
		_, err := svc.Create(ctx, p)
		require.NoError(t, err)
	}
	got, meta, err := svc.List(ctx, ledger.PartyCustomer, party.ListQuery{Page: pagination.Params{Page: 1, Limit: 10}, Search: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 2, meta.TotalRecords)
	assert.Len(t, got, 2)

	got, _, err = svc.List(ctx, ledger.PartyCustomer, party.ListQuery{Page: pagination.Params{Page: 1, Limit: 10}, Search: "CUS-3"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Corner Store", got[0].Name)

	name := "Acme Corporation"
	updated, err := svc.Update(ctx, ledger.PartyCustomer, got[0].ID, party.Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corporation", updated.Name)
}
