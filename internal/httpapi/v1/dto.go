package v1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/service/balance"
	"github.com/tinoosan/voucherledger/internal/service/entry"
)

// amountJSON renders an amount as a JSON number with two decimals.
func amountJSON(a money.Amount) json.Number { return json.Number(ledger.Format(a)) }

func idPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// Accounts

type accountRequest struct {
	Code           string      `json:"code" validate:"max=10"`
	Name           string      `json:"name" validate:"required,max=100"`
	Type           string      `json:"type" validate:"required"`
	Description    string      `json:"description" validate:"max=500"`
	OpeningBalance amountInput `json:"openingBalance"`
	IsActive       *bool       `json:"isActive"`
}

func (req accountRequest) toDomain(v *errs.ValidationErrors, curr string) ledger.Account {
	opening, _ := amountField(v, "openingBalance", req.OpeningBalance, curr)
	a := ledger.Account{
		Code:           req.Code,
		Name:           req.Name,
		Type:           ledger.AccountType(req.Type),
		Description:    req.Description,
		OpeningBalance: opening,
		IsActive:       true,
	}
	if req.IsActive != nil {
		a.IsActive = *req.IsActive
	}
	return a
}

// accountPatchRequest is a PUT body: absent fields stay as they are.
type accountPatchRequest struct {
	Code           *string      `json:"code"`
	Name           *string      `json:"name" validate:"omitempty,max=100"`
	Type           *string      `json:"type"`
	Description    *string      `json:"description" validate:"omitempty,max=500"`
	OpeningBalance *amountInput `json:"openingBalance"`
	IsActive       *bool        `json:"isActive"`
}

type accountResponse struct {
	ID             uuid.UUID          `json:"id"`
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Type           ledger.AccountType `json:"type"`
	Description    string             `json:"description"`
	OpeningBalance json.Number        `json:"openingBalance"`
	IsActive       bool               `json:"isActive"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type, Description: a.Description,
		OpeningBalance: amountJSON(a.OpeningBalance), IsActive: a.IsActive,
		CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

// Customers and suppliers

type partyRequest struct {
	Code           string      `json:"code" validate:"max=20"`
	Name           string      `json:"name" validate:"required,max=150"`
	Contact        string      `json:"contact" validate:"max=50"`
	Address        string      `json:"address" validate:"max=250"`
	OpeningBalance amountInput `json:"openingBalance"`
	IsActive       *bool       `json:"isActive"`
}

func (req partyRequest) toDomain(v *errs.ValidationErrors, kind ledger.PartyKind, curr string) ledger.Party {
	opening, _ := amountField(v, "openingBalance", req.OpeningBalance, curr)
	p := ledger.Party{
		Kind:           kind,
		Code:           req.Code,
		Name:           req.Name,
		Contact:        req.Contact,
		Address:        req.Address,
		OpeningBalance: opening,
		IsActive:       true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	return p
}

type partyPatchRequest struct {
	Code           *string      `json:"code"`
	Name           *string      `json:"name" validate:"omitempty,max=150"`
	Contact        *string      `json:"contact" validate:"omitempty,max=50"`
	Address        *string      `json:"address" validate:"omitempty,max=250"`
	OpeningBalance *amountInput `json:"openingBalance"`
	IsActive       *bool        `json:"isActive"`
}

type partyResponse struct {
	ID             uuid.UUID        `json:"id"`
	Kind           ledger.PartyKind `json:"kind"`
	Code           string           `json:"code"`
	Name           string           `json:"name"`
	Contact        string           `json:"contact"`
	Address        string           `json:"address"`
	OpeningBalance json.Number      `json:"openingBalance"`
	IsActive       bool             `json:"isActive"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

func toPartyResponse(p ledger.Party) partyResponse {
	return partyResponse{
		ID: p.ID, Kind: p.Kind, Code: p.Code, Name: p.Name, Contact: p.Contact, Address: p.Address,
		OpeningBalance: amountJSON(p.OpeningBalance), IsActive: p.IsActive,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

// Entries

// entryRequest carries every kind's fields; which ones count depends on the route.
// receiptAmount and saleAmount are accepted as aliases of grossAmount.
type entryRequest struct {
	Code           string        `json:"code"`
	Date           string        `json:"date" validate:"required"`
	Narration      string        `json:"narration" validate:"max=500"`
	FromAccountID  string        `json:"fromAccountId" validate:"omitempty,uuid"`
	ToAccountID    string        `json:"toAccountId" validate:"omitempty,uuid"`
	AccountID      string        `json:"accountId" validate:"omitempty,uuid"`
	CustomerID     string        `json:"customerId" validate:"omitempty,uuid"`
	SupplierID     string        `json:"supplierId" validate:"omitempty,uuid"`
	Amount         amountInput   `json:"amount"`
	GrossAmount    amountInput   `json:"grossAmount"`
	ReceiptAmount  amountInput   `json:"receiptAmount"`
	SaleAmount     amountInput   `json:"saleAmount"`
	DiscountAmount amountInput   `json:"discountAmount"`
	NetAmount      amountInput   `json:"netAmount"`
	Items          []itemRequest `json:"items" validate:"dive"`
}

type itemRequest struct {
	IncomeHead  string      `json:"incomeHead" validate:"max=150"`
	Description string      `json:"description" validate:"max=150"`
	AccountID   string      `json:"accountId" validate:"omitempty,uuid"`
	Amount      amountInput `json:"amount" validate:"required"`
	Remark      string      `json:"remark" validate:"max=250"`
}

func (req entryRequest) gross() amountInput {
	for _, n := range []amountInput{req.GrossAmount, req.ReceiptAmount, req.SaleAmount} {
		if !n.blank() {
			return n
		}
	}
	return ""
}

// toDomain builds the entry for kind. Parse failures land in v; ids that fail
// validator tags are simply left unset.
func (req entryRequest) toDomain(v *errs.ValidationErrors, kind ledger.Kind, curr string) ledger.Entry {
	e := ledger.Entry{
		Kind:      kind,
		Code:      req.Code,
		Date:      dateField(v, "date", req.Date),
		Narration: req.Narration,
	}
	zero := ledger.MustZero(curr)
	e.Gross, e.Discount, e.Net = zero, zero, zero
	switch kind.Shape() {
	case ledger.ShapeTransfer:
		e.FromAccountID = idField(v, "fromAccountId", req.FromAccountID)
		e.ToAccountID = idField(v, "toAccountId", req.ToAccountID)
		e.Net, _ = amountField(v, "amount", req.Amount, curr)
	case ledger.ShapeItemized:
		e.AccountID = idField(v, "accountId", req.AccountID)
		if kind == ledger.KindExpense {
			e.PartyID = idField(v, "supplierId", req.SupplierID)
		}
		e.Items = make([]ledger.Item, 0, len(req.Items))
		for i, it := range req.Items {
			label := it.Description
			if kind == ledger.KindIncome {
				label = it.IncomeHead
			}
			amt, _ := amountField(v, entry.ItemParam(i, "amount"), it.Amount, curr)
			e.Items = append(e.Items, ledger.Item{
				Label:     label,
				AccountID: idField(v, entry.ItemParam(i, "accountId"), it.AccountID),
				Amount:    amt,
				Remark:    it.Remark,
			})
		}
	case ledger.ShapeSettlement:
		e.AccountID = idField(v, "accountId", req.AccountID)
		if pk, _ := kind.PartyKind(); pk == ledger.PartySupplier {
			e.PartyID = idField(v, "supplierId", req.SupplierID)
		} else {
			e.PartyID = idField(v, "customerId", req.CustomerID)
		}
		e.Gross, _ = amountField(v, "grossAmount", req.gross(), curr)
		e.Discount, _ = amountField(v, "discountAmount", req.DiscountAmount, curr)
		net, ok := amountField(v, "netAmount", req.NetAmount, curr)
		if !ok && req.NetAmount.blank() {
			// Omitted net is derived; a bad gross or discount is already reported.
			if computed, err := e.Gross.Sub(e.Discount); err == nil {
				net = computed
			}
		}
		e.Net = net
	}
	return e
}

type itemResponse struct {
	IncomeHead  string      `json:"incomeHead,omitempty"`
	Description string      `json:"description,omitempty"`
	AccountID   *uuid.UUID  `json:"accountId,omitempty"`
	Amount      json.Number `json:"amount"`
	Remark      string      `json:"remark,omitempty"`
}

type entryResponse struct {
	ID             uuid.UUID      `json:"id"`
	Kind           ledger.Kind    `json:"kind"`
	Code           string         `json:"code"`
	Date           string         `json:"date"`
	Narration      string         `json:"narration"`
	CreatedBy      string         `json:"createdBy"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	FromAccountID  *uuid.UUID     `json:"fromAccountId,omitempty"`
	ToAccountID    *uuid.UUID     `json:"toAccountId,omitempty"`
	AccountID      *uuid.UUID     `json:"accountId,omitempty"`
	CustomerID     *uuid.UUID     `json:"customerId,omitempty"`
	SupplierID     *uuid.UUID     `json:"supplierId,omitempty"`
	Amount         json.Number    `json:"amount,omitempty"`
	GrossAmount    json.Number    `json:"grossAmount,omitempty"`
	DiscountAmount json.Number    `json:"discountAmount,omitempty"`
	NetAmount      json.Number    `json:"netAmount,omitempty"`
	Total          json.Number    `json:"total"`
	Items          []itemResponse `json:"items,omitempty"`
}

func toEntryResponse(e ledger.Entry) entryResponse {
	out := entryResponse{
		ID: e.ID, Kind: e.Kind, Code: e.Code, Date: e.Date.Format(time.DateOnly), Narration: e.Narration,
		CreatedBy: e.CreatedBy, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt,
		FromAccountID: idPtr(e.FromAccountID), ToAccountID: idPtr(e.ToAccountID), AccountID: idPtr(e.AccountID),
	}
	if pk, ok := e.Kind.PartyKind(); ok {
		if pk == ledger.PartySupplier {
			out.SupplierID = idPtr(e.PartyID)
		} else {
			out.CustomerID = idPtr(e.PartyID)
		}
	}
	if total, err := e.Total(); err == nil {
		out.Total = amountJSON(total)
	}
	switch e.Kind.Shape() {
	case ledger.ShapeTransfer:
		out.Amount = amountJSON(e.Net)
	case ledger.ShapeSettlement:
		out.GrossAmount, out.DiscountAmount, out.NetAmount = amountJSON(e.Gross), amountJSON(e.Discount), amountJSON(e.Net)
	case ledger.ShapeItemized:
		out.Items = make([]itemResponse, 0, len(e.Items))
		for _, it := range e.Items {
			ir := itemResponse{AccountID: idPtr(it.AccountID), Amount: amountJSON(it.Amount), Remark: it.Remark}
			if e.Kind == ledger.KindIncome {
				ir.IncomeHead = it.Label
			} else {
				ir.Description = it.Label
			}
			out.Items = append(out.Items, ir)
		}
	}
	return out
}

// Reports

type balanceRow struct {
	ID           uuid.UUID   `json:"id"`
	Code         string      `json:"code"`
	Name         string      `json:"name"`
	Contact      string      `json:"contact,omitempty"`
	Address      string      `json:"address,omitempty"`
	Opening      json.Number `json:"opening"`
	BillAmount   json.Number `json:"billAmount"`
	Received     json.Number `json:"received"`
	Payment      json.Number `json:"payment"`
	ReturnAmount json.Number `json:"returnAmount"`
	Discount     json.Number `json:"discount"`
	Inflow       json.Number `json:"inflow"`
	Outflow      json.Number `json:"outflow"`
	Balance      json.Number `json:"balance"`
}

func toBalanceRow(b ledger.BalanceSnapshot) balanceRow {
	return balanceRow{
		ID: b.EntityID, Code: b.Code, Name: b.Name, Contact: b.Contact, Address: b.Address,
		Opening: amountJSON(b.Opening), BillAmount: amountJSON(b.BillAmount), Received: amountJSON(b.Received),
		Payment: amountJSON(b.Payment), ReturnAmount: amountJSON(b.ReturnAmount), Discount: amountJSON(b.Discount),
		Inflow: amountJSON(b.Inflow), Outflow: amountJSON(b.Outflow), Balance: amountJSON(b.Balance),
	}
}

type customerSummary struct {
	TotalCustomers  int         `json:"totalCustomers"`
	TotalBillAmount json.Number `json:"totalBillAmount"`
	TotalReceived   json.Number `json:"totalReceived"`
	TotalDiscount   json.Number `json:"totalDiscount"`
	TotalBalance    json.Number `json:"totalBalance"`
}

type supplierSummary struct {
	TotalSuppliers  int         `json:"totalSuppliers"`
	TotalBillAmount json.Number `json:"totalBillAmount"`
	TotalPayment    json.Number `json:"totalPayment"`
	TotalReturn     json.Number `json:"totalReturn"`
	TotalDiscount   json.Number `json:"totalDiscount"`
	TotalBalance    json.Number `json:"totalBalance"`
}

type accountSummary struct {
	TotalAccounts int         `json:"totalAccounts"`
	TotalOpening  json.Number `json:"totalOpening"`
	TotalInflow   json.Number `json:"totalInflow"`
	TotalOutflow  json.Number `json:"totalOutflow"`
	TotalBalance  json.Number `json:"totalBalance"`
}

type movementResponse struct {
	EntryID uuid.UUID   `json:"entryId"`
	Code    string      `json:"code"`
	Kind    ledger.Kind `json:"kind"`
	Date    string      `json:"date"`
	Delta   json.Number `json:"delta"`
	Balance json.Number `json:"balance"`
}

type statementResponse struct {
	Opening json.Number        `json:"opening"`
	Closing json.Number        `json:"closing"`
	Rows    []movementResponse `json:"rows"`
}

func toMovement(m balance.Movement) movementResponse {
	return movementResponse{
		EntryID: m.EntryID, Code: m.Code, Kind: m.Kind, Date: m.Date.Format(time.DateOnly),
		Delta: amountJSON(m.Delta), Balance: amountJSON(m.Balance),
	}
}
