// Package dictionary holds the curated option lists clients render in selects:
// account types, entry kinds and report filters.
package dictionary

import (
	"strings"

	"github.com/tinoosan/voucherledger/internal/ledger"
)

type TypeDef struct {
	Code  ledger.AccountType `json:"code"`
	Label string             `json:"label"`
}

var accountTypes = []TypeDef{
	{Code: ledger.AccountTypeAsset, Label: "Asset"},
	{Code: ledger.AccountTypeLiability, Label: "Liability"},
	{Code: ledger.AccountTypeEquity, Label: "Equity"},
	{Code: ledger.AccountTypeRevenue, Label: "Revenue"},
	{Code: ledger.AccountTypeExpense, Label: "Expense"},
	{Code: ledger.AccountTypeBank, Label: "Bank"},
	{Code: ledger.AccountTypeCash, Label: "Cash"},
}

func AccountTypes() []TypeDef { return append([]TypeDef(nil), accountTypes...) }

type KindDef struct {
	Kind   ledger.Kind `json:"kind"`
	Label  string      `json:"label"`
	Prefix string      `json:"prefix"`
	Route  string      `json:"route"`
}

var entryKinds = []KindDef{
	{Kind: ledger.KindContra, Label: "Contra Entry", Route: "contra-entries"},
	{Kind: ledger.KindIncome, Label: "Income Entry", Route: "income-entries"},
	{Kind: ledger.KindExpense, Label: "Expense Recognition", Route: "expense-recognization-entries"},
	{Kind: ledger.KindPurchaseReturn, Label: "Purchase Return", Route: "purchase-returns"},
	{Kind: ledger.KindCustomerReceipt, Label: "Customer Receipt", Route: "customer-receipts"},
	{Kind: ledger.KindSalesCollection, Label: "Sales Collection", Route: "sales-collections"},
	{Kind: ledger.KindSalesBill, Label: "Sales Bill", Route: "sales-bills"},
	{Kind: ledger.KindPurchaseBill, Label: "Purchase Bill", Route: "purchase-bills"},
	{Kind: ledger.KindSupplierPayment, Label: "Supplier Payment", Route: "supplier-payments"},
}

// EntryKinds lists every entry kind with its route segment and code prefix.
func EntryKinds() []KindDef {
	out := make([]KindDef, len(entryKinds))
	for i, k := range entryKinds {
		k.Prefix = k.Kind.Prefix()
		out[i] = k
	}
	return out
}

// FilterKind is what a report filter does: restrict by balance sign or pick a date window.
type FilterKind int

const (
	FilterAll FilterKind = iota
	FilterPositive
	FilterNegative
	FilterToday
	FilterThisWeek
	FilterThisMonth
	FilterLastMonth
	FilterThisYear
	FilterCustomRange
)

type FilterDef struct {
	Label string
	Kind  FilterKind
}

var dateFilters = []FilterDef{
	{"Today", FilterToday},
	{"This Week", FilterThisWeek},
	{"This Month", FilterThisMonth},
	{"Last Month", FilterLastMonth},
	{"This Year", FilterThisYear},
	{"Custom Range", FilterCustomRange},
}

// Filters returns the report filters for entity ("customer", "supplier" or "account").
func Filters(entity string) []FilterDef {
	var head []FilterDef
	switch entity {
	case "customer":
		head = []FilterDef{{"All Customer", FilterAll}, {"Due Customer", FilterPositive}, {"Advance Customer", FilterNegative}}
	case "supplier":
		head = []FilterDef{{"All Supplier", FilterAll}, {"Due Supplier", FilterPositive}, {"Advance Supplier", FilterNegative}}
	case "account":
		head = []FilterDef{{"All Account", FilterAll}, {"Debit Balance", FilterPositive}, {"Credit Balance", FilterNegative}}
	default:
		return nil
	}
	return append(head, dateFilters...)
}

// FilterLabels returns just the labels, in display order.
func FilterLabels(entity string) []string {
	defs := Filters(entity)
	out := make([]string, len(defs))
	for i, d := range defs {
		out[i] = d.Label
	}
	return out
}

// LookupFilter resolves a label case-insensitively. An empty label is the "All" filter.
func LookupFilter(entity, label string) (FilterDef, bool) {
	label = strings.TrimSpace(label)
	defs := Filters(entity)
	if len(defs) == 0 {
		return FilterDef{}, false
	}
	if label == "" {
		return defs[0], true
	}
	for _, d := range defs {
		if strings.EqualFold(d.Label, label) {
			return d, true
		}
	}
	return FilterDef{}, false
}
