// Package party manages customers and suppliers, the external entities due
// balances are tracked against.
package party

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/pagination"
	"github.com/tinoosan/voucherledger/internal/search"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9-]{1,20}$`)

type Repo interface {
	ListParties(ctx context.Context, kind ledger.PartyKind) ([]ledger.Party, error)
	GetParty(ctx context.Context, kind ledger.PartyKind, id uuid.UUID) (ledger.Party, error)
}

type Writer interface {
	CreateParty(ctx context.Context, p ledger.Party) (ledger.Party, error)
	UpdateParty(ctx context.Context, p ledger.Party) (ledger.Party, error)
	DeleteParty(ctx context.Context, kind ledger.PartyKind, id uuid.UUID) error
}

type CodePeeker interface {
	PeekCode(ctx context.Context, prefix string) (string, error)
}

// Patch carries the fields a PUT may change. Nil fields are left alone.
type Patch struct {
	Code           *string
	Name           *string
	Contact        *string
	Address        *string
	OpeningBalance *money.Amount
	IsActive       *bool
}

type ListQuery struct {
	Page      pagination.Params
	Search    string
	SortBy    string
	SortOrder string
}

type Service interface {
	Validate(p ledger.Party) error
	Create(ctx context.Context, p ledger.Party) (ledger.Party, error)
	Get(ctx context.Context, kind ledger.PartyKind, id uuid.UUID) (ledger.Party, error)
	List(ctx context.Context, kind ledger.PartyKind, q ListQuery) ([]ledger.Party, pagination.Meta, error)
	Update(ctx context.Context, kind ledger.PartyKind, id uuid.UUID, p Patch) (ledger.Party, error)
	Delete(ctx context.Context, kind ledger.PartyKind, id uuid.UUID) error
	NextCode(ctx context.Context, kind ledger.PartyKind) (string, error)
}

type service struct {
	repo   Repo
	writer Writer
	codes  CodePeeker
	now    func() time.Time
}

func New(repo Repo, writer Writer, codes CodePeeker) Service {
	return &service{repo: repo, writer: writer, codes: codes, now: func() time.Time { return time.Now().UTC() }}
}

func validate(p ledger.Party) error {
	var v errs.ValidationErrors
	if !p.Kind.Valid() {
		v.Add("kind", "must be customer or supplier", string(p.Kind))
	}
	if p.Code != "" && !codePattern.MatchString(p.Code) {
		v.Add("code", "must be 1-20 uppercase letters, digits or dashes", p.Code)
	}
	if strings.TrimSpace(p.Name) == "" {
		v.Add("name", "is required", p.Name)
	} else if len(p.Name) > 150 {
		v.Add("name", "must be at most 150 characters", p.Name)
	}
	if len(p.Contact) > 50 {
		v.Add("contact", "must be at most 50 characters", p.Contact)
	}
	if len(p.Address) > 250 {
		v.Add("address", "must be at most 250 characters", p.Address)
	}
	return v.Err()
}

// Validate checks p as Create would, without writing.
func (s *service) Validate(p ledger.Party) error {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	return validate(p)
}

func (s *service) Create(ctx context.Context, p ledger.Party) (ledger.Party, error) {
	p.Code = strings.ToUpper(strings.TrimSpace(p.Code))
	p.Name = strings.TrimSpace(p.Name)
	if err := validate(p); err != nil {
		return ledger.Party{}, err
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	return s.writer.CreateParty(ctx, p)
}

func (s *service) Get(ctx context.Context, kind ledger.PartyKind, id uuid.UUID) (ledger.Party, error) {
	return s.repo.GetParty(ctx, kind, id)
}

func (s *service) List(ctx context.Context, kind ledger.PartyKind, q ListQuery) ([]ledger.Party, pagination.Meta, error) {
	all, err := s.repo.ListParties(ctx, kind)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	term := search.New(q.Search)
	out := make([]ledger.Party, 0, len(all))
	for _, p := range all {
		if term.Match(p.Name, p.Code, p.Contact, p.Address) {
			out = append(out, p)
		}
	}
	desc := strings.EqualFold(q.SortOrder, "desc")
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		c := 0
		switch q.SortBy {
		case "name":
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case "createdAt":
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if c == 0 {
			c = strings.Compare(a.Code, b.Code)
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
	page, meta := pagination.Slice(out, q.Page)
	return page, meta, nil
}

func (s *service) Update(ctx context.Context, kind ledger.PartyKind, id uuid.UUID, p Patch) (ledger.Party, error) {
	cur, err := s.repo.GetParty(ctx, kind, id)
	if err != nil {
		return ledger.Party{}, err
	}
	if p.Code != nil {
		if c := strings.ToUpper(strings.TrimSpace(*p.Code)); c != "" && c != cur.Code {
			return ledger.Party{}, errs.ErrImmutable
		}
	}
	next := cur
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Contact != nil {
		next.Contact = *p.Contact
	}
	if p.Address != nil {
		next.Address = *p.Address
	}
	if p.OpeningBalance != nil {
		next.OpeningBalance = *p.OpeningBalance
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	if err := validate(next); err != nil {
		return ledger.Party{}, err
	}
	next.UpdatedAt = s.now()
	return s.writer.UpdateParty(ctx, next)
}

func (s *service) Delete(ctx context.Context, kind ledger.PartyKind, id uuid.UUID) error {
	return s.writer.DeleteParty(ctx, kind, id)
}

func (s *service) NextCode(ctx context.Context, kind ledger.PartyKind) (string, error) {
	return s.codes.PeekCode(ctx, kind.Prefix())
}
