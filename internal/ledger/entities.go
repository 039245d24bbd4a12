// Package ledger holds the domain types shared by the store, the services and the HTTP layer.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
	AccountTypeBank      AccountType = "bank"
	AccountTypeCash      AccountType = "cash"
)

// AccountTypes lists the accepted account types in display order.
func AccountTypes() []AccountType {
	return []AccountType{AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense, AccountTypeBank, AccountTypeCash}
}

func (t AccountType) Valid() bool {
	for _, v := range AccountTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// Account is an internally held ledger account. Code never changes after creation.
type Account struct {
	ID             uuid.UUID
	Code           string
	Name           string
	Type           AccountType
	Description    string
	OpeningBalance money.Amount
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type PartyKind string

const (
	PartyCustomer PartyKind = "customer"
	PartySupplier PartyKind = "supplier"
)

func (k PartyKind) Valid() bool { return k == PartyCustomer || k == PartySupplier }

// Prefix is the code series used for parties of this kind.
func (k PartyKind) Prefix() string {
	if k == PartySupplier {
		return "SUP"
	}
	return "CUS"
}

// Party is an external customer or supplier that due balances are tracked against.
type Party struct {
	ID             uuid.UUID
	Kind           PartyKind
	Code           string
	Name           string
	Contact        string
	Address        string
	OpeningBalance money.Amount
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Item is one line of an itemized entry (income or expense recognition).
// Label carries the income head or the expense description.
type Item struct {
	Label     string
	AccountID uuid.UUID
	Amount    money.Amount
	Remark    string
}

// Entry is one financial event. Which fields are meaningful depends on Kind.Shape():
//
//	ShapeTransfer:   FromAccountID, ToAccountID, Net (the transferred amount)
//	ShapeItemized:   Items; AccountID (optional paid-from) and PartyID (optional supplier) for expenses
//	ShapeSettlement: PartyID, Gross, Discount, Net; AccountID optional
type Entry struct {
	ID            uuid.UUID
	Kind          Kind
	Code          string
	Date          time.Time
	Narration     string
	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PartyID       uuid.UUID
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	AccountID     uuid.UUID
	Gross         money.Amount
	Discount      money.Amount
	Net           money.Amount
	Items         []Item
}

// Total is the amount the entry moves: the item sum for itemized kinds, Net otherwise.
func (e Entry) Total() (money.Amount, error) {
	if e.Kind.Shape() != ShapeItemized {
		return e.Net, nil
	}
	total, err := Zero(e.Net.Curr().Code())
	if err != nil {
		return money.Amount{}, err
	}
	for _, it := range e.Items {
		if total, err = total.Add(it.Amount); err != nil {
			return money.Amount{}, err
		}
	}
	return total, nil
}

// References reports whether the entry points at id as an account or a party.
func (e Entry) References(id uuid.UUID) bool {
	if id == uuid.Nil {
		return false
	}
	if e.PartyID == id || e.FromAccountID == id || e.ToAccountID == id || e.AccountID == id {
		return true
	}
	for _, it := range e.Items {
		if it.AccountID == id {
			return true
		}
	}
	return false
}

// BalanceSnapshot is the derived per-entity position. It is never persisted.
type BalanceSnapshot struct {
	EntityID     uuid.UUID
	Code         string
	Name         string
	Contact      string
	Address      string
	Opening      money.Amount
	BillAmount   money.Amount
	Received     money.Amount
	Payment      money.Amount
	ReturnAmount money.Amount
	Discount     money.Amount
	Inflow       money.Amount
	Outflow      money.Amount
	Balance      money.Amount
}

// Snapshot is a consistent read of accounts, parties and entries, taken in one
// transaction (or under one read lock) so no entry is seen half-written.
type Snapshot struct {
	Currency string
	Accounts []Account
	Parties  []Party
	Entries  []Entry
}
