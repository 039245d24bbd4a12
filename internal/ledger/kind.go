package ledger

// Kind tags the variant of an Entry.
type Kind string

const (
	KindContra          Kind = "contra"
	KindIncome          Kind = "income"
	KindExpense         Kind = "expense"
	KindPurchaseReturn  Kind = "purchase_return"
	KindCustomerReceipt Kind = "customer_receipt"
	KindSalesCollection Kind = "sales_collection"
	KindSalesBill       Kind = "sales_bill"
	KindPurchaseBill    Kind = "purchase_bill"
	KindSupplierPayment Kind = "supplier_payment"
)

// Shape groups kinds that carry the same fields.
type Shape int

const (
	ShapeTransfer Shape = iota + 1
	ShapeItemized
	ShapeSettlement
)

type kindDef struct {
	prefix string
	shape  Shape
	party  PartyKind
}

var kinds = map[Kind]kindDef{
	KindContra:          {prefix: "CON", shape: ShapeTransfer},
	KindIncome:          {prefix: "REC", shape: ShapeItemized},
	KindExpense:         {prefix: "VCH", shape: ShapeItemized, party: PartySupplier},
	KindPurchaseReturn:  {prefix: "PRT", shape: ShapeSettlement, party: PartySupplier},
	KindCustomerReceipt: {prefix: "RCV", shape: ShapeSettlement, party: PartyCustomer},
	KindSalesCollection: {prefix: "SCL", shape: ShapeSettlement, party: PartyCustomer},
	KindSalesBill:       {prefix: "SBL", shape: ShapeSettlement, party: PartyCustomer},
	KindPurchaseBill:    {prefix: "PBL", shape: ShapeSettlement, party: PartySupplier},
	KindSupplierPayment: {prefix: "PAY", shape: ShapeSettlement, party: PartySupplier},
}

// Kinds returns every entry kind in a fixed order.
func Kinds() []Kind {
	return []Kind{
		KindContra, KindIncome, KindExpense, KindPurchaseReturn, KindCustomerReceipt,
		KindSalesCollection, KindSalesBill, KindPurchaseBill, KindSupplierPayment,
	}
}

func (k Kind) Valid() bool { _, ok := kinds[k]; return ok }

// Prefix is the code series of the kind, e.g. CON for contra entries.
func (k Kind) Prefix() string { return kinds[k].prefix }

func (k Kind) Shape() Shape { return kinds[k].shape }

// PartyKind reports which party the kind references; ok is false for kinds without one.
func (k Kind) PartyKind() (PartyKind, bool) {
	p := kinds[k].party
	return p, p != ""
}

// AccountPrefix is the code series for accounts.
const AccountPrefix = "ACC"
