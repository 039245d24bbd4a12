// Package account implements the account rules: immutable codes, editable descriptive
// fields, soft deactivation, and hard deletes only while nothing references the account.
package account

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

var codePattern = regexp.MustCompile(`^[A-Z0-9-]{1,10}$`)

const maxNameLen = 100

type Repo interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
}

type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
}

// CodePeeker previews the next generated code.
type CodePeeker interface {
	PeekCode(ctx context.Context, prefix string) (string, error)
}

// Patch carries the fields a PUT may change. Nil fields are left alone.
// Code may be sent back unchanged; any other value is rejected.
type Patch struct {
	Code           *string
	Name           *string
	Type           *ledger.AccountType
	Description    *string
	OpeningBalance *money.Amount
	IsActive       *bool
}

type ListQuery struct {
	Page      pagination.Params
	Search    string
	Type      ledger.AccountType
	IsActive  *bool
	SortBy    string
	SortOrder string
}

type Service interface {
	ValidateCreate(a ledger.Account) error
	Create(ctx context.Context, a ledger.Account) (ledger.Account, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	List(ctx context.Context, q ListQuery) ([]ledger.Account, pagination.Meta, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (ledger.Account, error)
	Delete(ctx context.Context, id uuid.UUID) error
	NextCode(ctx context.Context) (string, error)
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

// NormalizeCode upper-cases and trims a client supplied code.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

func (s *service) ValidateCreate(a ledger.Account) error {
	var v errs.ValidationErrors
	validateFields(&v, a)
	return v.Err()
}

func typeList() string {
	names := make([]string, 0, len(ledger.AccountTypes()))
	for _, t := range ledger.AccountTypes() {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func validateFields(v *errs.ValidationErrors, a ledger.Account) {
	if a.Code != "" && !codePattern.MatchString(a.Code) {
		v.Add("code", "must be 1-10 uppercase letters, digits or dashes", a.Code)
	}
	name := strings.TrimSpace(a.Name)
	if name == "" {
		v.Add("name", "is required", a.Name)
	} else if len(name) > maxNameLen {
		v.Add("name", "must be at most 100 characters", a.Name)
	}
	if !a.Type.Valid() {
		v.Add("type", "must be one of "+typeList(), string(a.Type))
	}
}

func (s *service) Create(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	a.Code = NormalizeCode(a.Code)
	a.Name = strings.TrimSpace(a.Name)
	if err := s.ValidateCreate(a); err != nil {
		return ledger.Account{}, err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	return s.writer.CreateAccount(ctx, a)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

func (s *service) List(ctx context.Context, q ListQuery) ([]ledger.Account, pagination.Meta, error) {
	all, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	term := search.New(q.Search)
	out := make([]ledger.Account, 0, len(all))
	for _, a := range all {
		if q.Type != "" && a.Type != q.Type {
			continue
		}
		if q.IsActive != nil && a.IsActive != *q.IsActive {
			continue
		}
		if !term.Match(a.Name, a.Code, a.Description) {
			continue
		}
		out = append(out, a)
	}
	sortAccounts(out, q.SortBy, q.SortOrder)
	page, meta := pagination.Slice(out, q.Page)
	return page, meta, nil
}

func sortAccounts(list []ledger.Account, by, order string) {
	desc := strings.EqualFold(order, "desc")
	cmp := func(a, b ledger.Account) int {
		switch by {
		case "name":
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case "type", "accountType":
			return strings.Compare(string(a.Type), string(b.Type))
		case "openingBalance":
			return compareInt(ledger.Minor(a.OpeningBalance), ledger.Minor(b.OpeningBalance))
		case "createdAt":
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return 0
	}
	sort.SliceStable(list, func(i, j int) bool {
		c := cmp(list[i], list[j])
		if c == 0 {
			c = strings.Compare(list[i].Code, list[j].Code)
		}
		if c == 0 {
			c = strings.Compare(list[i].ID.String(), list[j].ID.String())
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Update applies p to the stored account. The code is immutable.
func (s *service) Update(ctx context.Context, id uuid.UUID, p Patch) (ledger.Account, error) {
	cur, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return ledger.Account{}, err
	}
	if p.Code != nil {
		if c := NormalizeCode(*p.Code); c != "" && c != cur.Code {
			return ledger.Account{}, errs.ErrImmutable
		}
	}
	next := cur
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		next.Type = *p.Type
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.OpeningBalance != nil {
		next.OpeningBalance = *p.OpeningBalance
	}
	if p.IsActive != nil {
		next.IsActive = *p.IsActive
	}
	var v errs.ValidationErrors
	validateFields(&v, next)
	if err := v.Err(); err != nil {
		return ledger.Account{}, err
	}
	next.UpdatedAt = s.now()
	return s.writer.UpdateAccount(ctx, next)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.writer.DeleteAccount(ctx, id)
}

func (s *service) NextCode(ctx context.Context) (string, error) {
	return s.codes.PeekCode(ctx, ledger.AccountPrefix)
}
