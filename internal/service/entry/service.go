// Package entry implements the ledger entry rules for every entry kind.
//
// Validation accumulates: a request reports every invalid field at once.
// Param names in the returned errors match the JSON request fields.
package entry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/pagination"
	"github.com/tinoosan/voucherledger/internal/search"
	"github.com/tinoosan/voucherledger/internal/sequence"
)

const (
	maxNarrationLen = 500
	maxLabelLen     = 150
	maxRemarkLen    = 250
)

// Repo defines read operations needed by the service.
type Repo interface {
	AccountsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
	PartiesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Party, error)
	GetEntry(ctx context.Context, kind ledger.Kind, id uuid.UUID) (ledger.Entry, error)
	GetEntryByCode(ctx context.Context, kind ledger.Kind, code string) (ledger.Entry, error)
	ListEntries(ctx context.Context, kind ledger.Kind) ([]ledger.Entry, error)
}

// Writer persists entries. CreateEntry assigns the code atomically with the insert.
type Writer interface {
	CreateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	UpdateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	DeleteEntry(ctx context.Context, kind ledger.Kind, id uuid.UUID) error
}

type CodePeeker interface {
	PeekCode(ctx context.Context, prefix string) (string, error)
}

// ListQuery filters a kind's entries. From and To are inclusive dates.
type ListQuery struct {
	Page      pagination.Params
	Search    string
	From      time.Time
	To        time.Time
	AccountID uuid.UUID
	PartyID   uuid.UUID
	SortOrder string
}

type Service interface {
	Validate(ctx context.Context, e ledger.Entry) error
	Create(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	Get(ctx context.Context, kind ledger.Kind, id uuid.UUID) (ledger.Entry, error)
	GetByCode(ctx context.Context, kind ledger.Kind, code string) (ledger.Entry, error)
	List(ctx context.Context, kind ledger.Kind, q ListQuery) ([]ledger.Entry, pagination.Meta, error)
	Update(ctx context.Context, e ledger.Entry) (ledger.Entry, error)
	Delete(ctx context.Context, kind ledger.Kind, id uuid.UUID) error
	NextCode(ctx context.Context, kind ledger.Kind) (string, error)
}

type service struct {
	repo     Repo
	writer   Writer
	codes    CodePeeker
	currency string
	now      func() time.Time
}

func New(repo Repo, writer Writer, codes CodePeeker, currency string) Service {
	return &service{repo: repo, writer: writer, codes: codes, currency: currency, now: func() time.Time { return time.Now().UTC() }}
}

// PartyParam is the request field naming the party of kind k.
func PartyParam(k ledger.Kind) string {
	if p, _ := k.PartyKind(); p == ledger.PartySupplier {
		return "supplierId"
	}
	return "customerId"
}

// AmountParam is the request field carrying the single amount of a kind.
func AmountParam(k ledger.Kind) string {
	if k.Shape() == ledger.ShapeTransfer {
		return "amount"
	}
	return "grossAmount"
}

func ItemParam(i int, field string) string { return fmt.Sprintf("items[%d].%s", i, field) }

func positive(a money.Amount) bool { return ledger.Minor(a) > 0 }

// normalize derives the amounts a kind does not carry explicitly and trims text.
func (s *service) normalize(e ledger.Entry) (ledger.Entry, error) {
	e.Code = strings.ToUpper(strings.TrimSpace(e.Code))
	e.Narration = strings.TrimSpace(e.Narration)
	if !e.Date.IsZero() {
		y, m, d := e.Date.UTC().Date()
		e.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	zero, err := ledger.Zero(s.currency)
	if err != nil {
		return e, err
	}
	switch e.Kind.Shape() {
	case ledger.ShapeTransfer:
		e.Gross, e.Discount = e.Net, zero
	case ledger.ShapeSettlement:
		if ledger.Minor(e.Discount) == 0 {
			e.Discount = zero
		}
	case ledger.ShapeItemized:
		var totalErr error
		e.Net = zero
		for i := range e.Items {
			e.Items[i].Label = strings.TrimSpace(e.Items[i].Label)
			sum, err := e.Net.Add(e.Items[i].Amount)
			if err != nil {
				if totalErr == nil {
					totalErr = errs.Field("items", "total cannot be computed: "+err.Error(), nil)
				}
				continue
			}
			e.Net = sum
		}
		e.Gross, e.Discount = e.Net, zero
		if totalErr != nil {
			return e, totalErr
		}
	}
	return e, nil
}

// prepare normalizes and validates e, reporting field errors from both steps together.
func (s *service) prepare(ctx context.Context, e ledger.Entry, prev *ledger.Entry) (ledger.Entry, error) {
	e, err := s.normalize(e)
	v, _ := errs.AsValidation(err)
	if err != nil && v == nil {
		return e, err
	}
	if err := s.validate(ctx, e, prev); err != nil {
		more, ok := errs.AsValidation(err)
		if !ok {
			return e, err
		}
		v.Merge(more)
	}
	if len(v) > 0 {
		return e, v
	}
	return e, nil
}

func (s *service) Validate(ctx context.Context, e ledger.Entry) error {
	_, err := s.prepare(ctx, e, nil)
	return err
}

// validate returns ValidationErrors for rule violations and plain errors for
// failed lookups. prev is the stored version when updating.
func (s *service) validate(ctx context.Context, e ledger.Entry, prev *ledger.Entry) error {
	var v errs.ValidationErrors
	if !e.Kind.Valid() {
		v.Add("kind", "is not a known entry kind", string(e.Kind))
		return v
	}
	if e.Date.IsZero() {
		v.Add("date", "is required", "")
	}
	if len(e.Narration) > maxNarrationLen {
		v.Add("narration", "must be at most 500 characters", e.Narration)
	}
	if e.Code != "" && !sequence.InSeries(e.Kind.Prefix(), e.Code) {
		v.Add("code", "must look like "+e.Kind.Prefix()+"-<number>", e.Code)
	}

	switch e.Kind.Shape() {
	case ledger.ShapeTransfer:
		validateTransfer(&v, e)
	case ledger.ShapeItemized:
		validateItems(&v, e)
	case ledger.ShapeSettlement:
		validateSettlement(&v, e)
	}
	if err := s.validateRefs(ctx, &v, e, prev); err != nil {
		return err
	}
	return v.Err()
}

func validateTransfer(v *errs.ValidationErrors, e ledger.Entry) {
	if e.FromAccountID == uuid.Nil {
		v.Add("fromAccountId", "is required", "")
	}
	if e.ToAccountID == uuid.Nil {
		v.Add("toAccountId", "is required", "")
	}
	if e.FromAccountID != uuid.Nil && e.FromAccountID == e.ToAccountID {
		v.Add("toAccountId", "must differ from fromAccountId", e.ToAccountID.String())
	}
	if !positive(e.Net) {
		v.Add("amount", "must be greater than zero", ledger.Format(e.Net))
	}
}

func validateItems(v *errs.ValidationErrors, e ledger.Entry) {
	if len(e.Items) == 0 {
		v.Add("items", "at least one item is required", nil)
		return
	}
	labelField := "description"
	if e.Kind == ledger.KindIncome {
		labelField = "incomeHead"
	}
	for i, it := range e.Items {
		if it.Label == "" {
			v.Add(ItemParam(i, labelField), "is required", it.Label)
		} else if len(it.Label) > maxLabelLen {
			v.Add(ItemParam(i, labelField), "must be at most 150 characters", it.Label)
		}
		if !positive(it.Amount) {
			v.Add(ItemParam(i, "amount"), "must be greater than zero", ledger.Format(it.Amount))
		}
		if len(it.Remark) > maxRemarkLen {
			v.Add(ItemParam(i, "remark"), "must be at most 250 characters", it.Remark)
		}
		if e.Kind == ledger.KindIncome && it.AccountID == uuid.Nil {
			v.Add(ItemParam(i, "accountId"), "is required", "")
		}
	}
}

func validateSettlement(v *errs.ValidationErrors, e ledger.Entry) {
	if e.PartyID == uuid.Nil {
		v.Add(PartyParam(e.Kind), "is required", "")
	}
	if !positive(e.Gross) {
		v.Add("grossAmount", "must be greater than zero", ledger.Format(e.Gross))
		return
	}
	want, err := e.Gross.Sub(e.Discount)
	if err != nil {
		v.Add("discountAmount", "must be an amount in the ledger currency", ledger.Format(e.Discount))
		return
	}
	if ledger.Minor(want) != ledger.Minor(e.Net) {
		v.Add("netAmount", "must equal grossAmount - discountAmount ("+ledger.Format(want)+")", ledger.Format(e.Net))
		return
	}
	if !positive(e.Net) {
		v.Add("netAmount", "must be greater than zero", ledger.Format(e.Net))
	}
}

type accountRef struct {
	id    uuid.UUID
	param string
}

func accountRefs(e ledger.Entry) []accountRef {
	var refs []accountRef
	add := func(id uuid.UUID, param string) {
		if id != uuid.Nil {
			refs = append(refs, accountRef{id: id, param: param})
		}
	}
	add(e.FromAccountID, "fromAccountId")
	add(e.ToAccountID, "toAccountId")
	add(e.AccountID, "accountId")
	for i, it := range e.Items {
		add(it.AccountID, ItemParam(i, "accountId"))
	}
	return refs
}

// validateRefs checks referenced accounts exist and are active, and the party
// is of the kind the entry expects. Accounts already used by prev may be inactive.
func (s *service) validateRefs(ctx context.Context, v *errs.ValidationErrors, e ledger.Entry, prev *ledger.Entry) error {
	refs := accountRefs(e)
	if len(refs) > 0 {
		ids := make([]uuid.UUID, 0, len(refs))
		for _, r := range refs {
			ids = append(ids, r.id)
		}
		accs, err := s.repo.AccountsByIDs(ctx, unique(ids))
		if err != nil {
			return err
		}
		for _, r := range refs {
			a, ok := accs[r.id]
			switch {
			case !ok:
				v.Add(r.param, "account does not exist", r.id.String())
			case !a.IsActive && (prev == nil || !prev.References(r.id)):
				v.Add(r.param, "account "+a.Code+" is inactive", r.id.String())
			}
		}
	}
	if e.PartyID == uuid.Nil {
		return nil
	}
	want, ok := e.Kind.PartyKind()
	if !ok {
		v.Add("partyId", "is not accepted for this entry kind", e.PartyID.String())
		return nil
	}
	parties, err := s.repo.PartiesByIDs(ctx, []uuid.UUID{e.PartyID})
	if err != nil {
		return err
	}
	p, found := parties[e.PartyID]
	switch {
	case !found || p.Kind != want:
		v.Add(PartyParam(e.Kind), string(want)+" does not exist", e.PartyID.String())
	case !p.IsActive && (prev == nil || prev.PartyID != p.ID):
		v.Add(PartyParam(e.Kind), string(want)+" "+p.Code+" is inactive", e.PartyID.String())
	}
	return nil
}

// Create validates e and persists it. A blank code is assigned by the writer
// in the same write as the entry.
func (s *service) Create(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	e, err := s.prepare(ctx, e, nil)
	if err != nil {
		return ledger.Entry{}, err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	return s.writer.CreateEntry(ctx, e)
}

func (s *service) Get(ctx context.Context, kind ledger.Kind, id uuid.UUID) (ledger.Entry, error) {
	return s.repo.GetEntry(ctx, kind, id)
}

func (s *service) GetByCode(ctx context.Context, kind ledger.Kind, code string) (ledger.Entry, error) {
	return s.repo.GetEntryByCode(ctx, kind, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *service) List(ctx context.Context, kind ledger.Kind, q ListQuery) ([]ledger.Entry, pagination.Meta, error) {
	all, err := s.repo.ListEntries(ctx, kind)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	term := search.New(q.Search)
	out := make([]ledger.Entry, 0, len(all))
	for _, e := range all {
		if !q.From.IsZero() && e.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && e.Date.After(q.To) {
			continue
		}
		if q.AccountID != uuid.Nil && !e.References(q.AccountID) {
			continue
		}
		if q.PartyID != uuid.Nil && e.PartyID != q.PartyID {
			continue
		}
		if !term.Empty() && !term.Match(searchFields(e)...) {
			continue
		}
		out = append(out, e)
	}
	asc := strings.EqualFold(q.SortOrder, "asc")
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		c := a.Date.Compare(b.Date)
		if c == 0 {
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if asc {
			return c < 0
		}
		return c > 0
	})
	page, meta := pagination.Slice(out, q.Page)
	return page, meta, nil
}

func searchFields(e ledger.Entry) []string {
	fields := []string{e.Code, e.Narration, e.CreatedBy}
	for _, it := range e.Items {
		fields = append(fields, it.Label, it.Remark)
	}
	return fields
}

// Update replaces the stored entry with e. Code, kind and creation stamps are kept.
func (s *service) Update(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	cur, err := s.repo.GetEntry(ctx, e.Kind, e.ID)
	if err != nil {
		return ledger.Entry{}, err
	}
	if c := strings.ToUpper(strings.TrimSpace(e.Code)); c != "" && c != cur.Code {
		return ledger.Entry{}, errs.ErrImmutable
	}
	e.Code = cur.Code
	e, err = s.prepare(ctx, e, &cur)
	if err != nil {
		return ledger.Entry{}, err
	}
	e.CreatedAt, e.CreatedBy = cur.CreatedAt, cur.CreatedBy
	e.UpdatedAt = s.now()
	return s.writer.UpdateEntry(ctx, e)
}

func (s *service) Delete(ctx context.Context, kind ledger.Kind, id uuid.UUID) error {
	return s.writer.DeleteEntry(ctx, kind, id)
}

// NextCode previews the code the next created entry of kind would receive.
func (s *service) NextCode(ctx context.Context, kind ledger.Kind) (string, error) {
	if !kind.Valid() {
		return "", errs.Field("kind", "is not a known entry kind", string(kind))
	}
	return s.codes.PeekCode(ctx, kind.Prefix())
}

func unique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
