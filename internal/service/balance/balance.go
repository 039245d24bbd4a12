// Package balance folds ledger entries into per-entity balance snapshots.
//
// Everything here is a pure function over a Snapshot: no I/O, no shared state.
// Arithmetic runs on integer minor units and is converted back to money amounts
// only when results are produced, so totals never drift.
package balance

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/voucherledger/internal/ledger"
)

type ScopeKind string

const (
	ScopeAccounts  ScopeKind = "account"
	ScopeCustomers ScopeKind = "customer"
	ScopeSuppliers ScopeKind = "supplier"
)

// Scope selects which entities get a snapshot. A non-nil EntityID narrows the
// result to one entity.
type Scope struct {
	Kind     ScopeKind
	EntityID uuid.UUID
}

// Window is a half-open date range [From, To). Zero bounds are open.
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && !t.Before(w.To) {
		return false
	}
	return true
}

type tally struct {
	opening, bill, received, payment, ret, discount, inflow, outflow int64
}

// balance = opening + bill - received - payment - return - discount + inflow - outflow.
// Parties never see inflow/outflow and accounts never see the party columns.
func (t tally) balance() int64 {
	return t.opening + t.bill - t.received - t.payment - t.ret - t.discount + t.inflow - t.outflow
}

type subject struct {
	id      uuid.UUID
	code    string
	name    string
	contact string
	address string
	opening int64
}

// Compute returns one snapshot per entity in scope, ordered by code.
// Only entries whose date falls inside w are folded; opening is the stored opening.
func Compute(scope Scope, snap ledger.Snapshot, w Window) ([]ledger.BalanceSnapshot, error) {
	subjects := subjectsFor(scope, snap)
	rows := make(map[uuid.UUID]*tally, len(subjects))
	for _, s := range subjects {
		rows[s.id] = &tally{opening: s.opening}
	}
	for _, e := range Ordered(snap.Entries) {
		if !w.Contains(e.Date) {
			continue
		}
		fold(rows, e)
	}
	out := make([]ledger.BalanceSnapshot, 0, len(subjects))
	for _, s := range subjects {
		bs, err := toSnapshot(snap.Currency, s, *rows[s.id])
		if err != nil {
			return nil, err
		}
		out = append(out, bs)
	}
	return out, nil
}

// Ordered returns a copy of entries sorted by (date, createdAt, id) ascending.
// This is the fold order for every running-balance view.
func Ordered(entries []ledger.Entry) []ledger.Entry {
	out := make([]ledger.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return out
}

func subjectsFor(scope Scope, snap ledger.Snapshot) []subject {
	var out []subject
	switch scope.Kind {
	case ScopeAccounts:
		for _, a := range snap.Accounts {
			if scope.EntityID != uuid.Nil && a.ID != scope.EntityID {
				continue
			}
			out = append(out, subject{id: a.ID, code: a.Code, name: a.Name, opening: ledger.Minor(a.OpeningBalance)})
		}
	case ScopeCustomers, ScopeSuppliers:
		want := ledger.PartyCustomer
		if scope.Kind == ScopeSuppliers {
			want = ledger.PartySupplier
		}
		for _, p := range snap.Parties {
			if p.Kind != want || (scope.EntityID != uuid.Nil && p.ID != scope.EntityID) {
				continue
			}
			out = append(out, subject{id: p.ID, code: p.Code, name: p.Name, contact: p.Contact, address: p.Address, opening: ledger.Minor(p.OpeningBalance)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].code != out[j].code {
			return out[i].code < out[j].code
		}
		return out[i].id.String() < out[j].id.String()
	})
	return out
}

// fold applies one entry to every row it touches. Rows outside the map are ignored.
func fold(rows map[uuid.UUID]*tally, e ledger.Entry) {
	var discard tally
	at := func(id uuid.UUID) *tally {
		if t, ok := rows[id]; ok && id != uuid.Nil {
			return t
		}
		discard = tally{}
		return &discard
	}
	net := ledger.Minor(e.Net)
	switch e.Kind {
	case ledger.KindContra:
		at(e.FromAccountID).outflow += net
		at(e.ToAccountID).inflow += net
	case ledger.KindIncome:
		for _, it := range e.Items {
			at(it.AccountID).inflow += ledger.Minor(it.Amount)
		}
	case ledger.KindExpense:
		var total int64
		for _, it := range e.Items {
			total += ledger.Minor(it.Amount)
		}
		at(e.PartyID).bill += total
		at(e.AccountID).outflow += total
	case ledger.KindCustomerReceipt, ledger.KindSalesCollection:
		p := at(e.PartyID)
		p.received += net
		p.discount += ledger.Minor(e.Discount)
		at(e.AccountID).inflow += net
	case ledger.KindSalesBill, ledger.KindPurchaseBill:
		at(e.PartyID).bill += net
	case ledger.KindSupplierPayment:
		p := at(e.PartyID)
		p.payment += net
		p.discount += ledger.Minor(e.Discount)
		at(e.AccountID).outflow += net
	case ledger.KindPurchaseReturn:
		at(e.PartyID).ret += net
	}
}

func toSnapshot(curr string, s subject, t tally) (ledger.BalanceSnapshot, error) {
	bs := ledger.BalanceSnapshot{EntityID: s.id, Code: s.code, Name: s.name, Contact: s.contact, Address: s.address}
	cols := []struct {
		dst   *money.Amount
		units int64
	}{
		{&bs.Opening, t.opening},
		{&bs.BillAmount, t.bill},
		{&bs.Received, t.received},
		{&bs.Payment, t.payment},
		{&bs.ReturnAmount, t.ret},
		{&bs.Discount, t.discount},
		{&bs.Inflow, t.inflow},
		{&bs.Outflow, t.outflow},
		{&bs.Balance, t.balance()},
	}
	for _, c := range cols {
		a, err := ledger.FromMinor(curr, c.units)
		if err != nil {
			return ledger.BalanceSnapshot{}, err
		}
		*c.dst = a
	}
	return bs, nil
}
