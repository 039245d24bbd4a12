// Package report serves paginated, searchable balance reports over customers,
// suppliers and accounts. It holds no state between calls: every report is
// computed from a fresh consistent snapshot of the store.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"golang.org/x/sync/singleflight"

	"github.com/tinoosan/voucherledger/internal/dictionary"
	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/pagination"
	"github.com/tinoosan/voucherledger/internal/search"
	"github.com/tinoosan/voucherledger/internal/service/balance"
)

const dateLayout = "2006-01-02"

// SnapshotReader takes a consistent read of the whole store.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (ledger.Snapshot, error)
}

type Query struct {
	Entity     balance.ScopeKind
	FilterType string
	StartDate  string
	EndDate    string
	Search     string
	Page       pagination.Params
	SortBy     string
	SortOrder  string
}

// Summary aggregates the whole filtered set, not just the served page.
type Summary struct {
	Count         int
	TotalOpening  money.Amount
	TotalBill     money.Amount
	TotalReceived money.Amount
	TotalPayment  money.Amount
	TotalReturn   money.Amount
	TotalDiscount money.Amount
	TotalInflow   money.Amount
	TotalOutflow  money.Amount
	TotalBalance  money.Amount
}

type Result struct {
	Rows    []ledger.BalanceSnapshot
	Meta    pagination.Meta
	Summary Summary
	Window  balance.Window
}

// Statement is one entity's running balance over a window.
type Statement struct {
	Opening money.Amount
	Closing money.Amount
	Rows    []balance.Movement
}

type Service interface {
	GetReport(ctx context.Context, q Query) (Result, error)
	Statement(ctx context.Context, scope balance.Scope, from, to string) (Statement, error)
}

type Option func(*service)

// WithClock overrides the clock used to resolve relative date filters.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

// WithTimeout bounds a shared report computation.
func WithTimeout(d time.Duration) Option { return func(s *service) { s.timeout = d } }

type service struct {
	reader  SnapshotReader
	now     func() time.Time
	timeout time.Duration
	group   singleflight.Group
}

func New(reader SnapshotReader, opts ...Option) Service {
	s := &service{reader: reader, now: func() time.Time { return time.Now().UTC() }, timeout: 10 * time.Second}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetReport validates q, then computes (or joins an identical in-flight computation of) the report.
func (s *service) GetReport(ctx context.Context, q Query) (Result, error) {
	def, window, err := s.resolve(q)
	if err != nil {
		return Result{}, err
	}
	key := cacheKey(q, window)
	v, err, _ := s.do(ctx, key, func(ctx context.Context) (any, error) {
		return s.compute(ctx, q, def, window)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// do collapses identical concurrent calls. The shared computation is detached
// from any single caller's cancellation; each caller still stops waiting when
// its own context ends.
func (s *service) do(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error, bool) {
	ch := s.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return fn(shared)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-ch:
		return res.Val, res.Err, res.Shared
	}
}

func cacheKey(q Query, w balance.Window) string {
	return strings.Join([]string{
		string(q.Entity), strings.ToLower(strings.TrimSpace(q.FilterType)),
		w.From.Format(dateLayout), w.To.Format(dateLayout),
		search.New(q.Search).String(), fmt.Sprint(q.Page.Page), fmt.Sprint(q.Page.Limit),
		q.SortBy, strings.ToLower(q.SortOrder),
	}, "|")
}

func (s *service) resolve(q Query) (dictionary.FilterDef, balance.Window, error) {
	var v errs.ValidationErrors
	switch q.Entity {
	case balance.ScopeAccounts, balance.ScopeCustomers, balance.ScopeSuppliers:
	default:
		v.Add("entity", "must be customer, supplier or account", string(q.Entity))
		return dictionary.FilterDef{}, balance.Window{}, v
	}
	def, ok := dictionary.LookupFilter(string(q.Entity), q.FilterType)
	if !ok {
		v.Add("filterType", "must be one of: "+strings.Join(dictionary.FilterLabels(string(q.Entity)), ", "), q.FilterType)
		return dictionary.FilterDef{}, balance.Window{}, v
	}
	window, err := s.window(def.Kind, q.StartDate, q.EndDate)
	return def, window, err
}

// window maps a date filter onto a half-open range in UTC.
func (s *service) window(kind dictionary.FilterKind, start, end string) (balance.Window, error) {
	now := s.now().UTC()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	switch kind {
	case dictionary.FilterToday:
		return balance.Window{From: today, To: today.AddDate(0, 0, 1)}, nil
	case dictionary.FilterThisWeek:
		offset := (int(today.Weekday()) + 6) % 7 // weeks start on Monday
		from := today.AddDate(0, 0, -offset)
		return balance.Window{From: from, To: from.AddDate(0, 0, 7)}, nil
	case dictionary.FilterThisMonth:
		from := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return balance.Window{From: from, To: from.AddDate(0, 1, 0)}, nil
	case dictionary.FilterLastMonth:
		to := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return balance.Window{From: to.AddDate(0, -1, 0), To: to}, nil
	case dictionary.FilterThisYear:
		from := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		return balance.Window{From: from, To: from.AddDate(1, 0, 0)}, nil
	case dictionary.FilterCustomRange:
		return customWindow(start, end, true)
	}
	return balance.Window{}, nil
}

// customWindow parses inclusive start/end dates. When required is false both may be blank.
func customWindow(start, end string, required bool) (balance.Window, error) {
	var v errs.ValidationErrors
	var w balance.Window
	parse := func(param, raw string) time.Time {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			if required {
				v.Add(param, "is required for Custom Range", raw)
			}
			return time.Time{}
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			v.Add(param, "must be a date formatted YYYY-MM-DD", raw)
		}
		return t
	}
	w.From = parse("startDate", start)
	if to := parse("endDate", end); !to.IsZero() {
		w.To = to.AddDate(0, 0, 1)
	}
	if !w.From.IsZero() && !w.To.IsZero() && !w.From.Before(w.To) {
		v.Add("endDate", "must not be before startDate", end)
	}
	return w, v.Err()
}

func (s *service) compute(ctx context.Context, q Query, def dictionary.FilterDef, w balance.Window) (Result, error) {
	snap, err := s.reader.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}
	rows, err := balance.Compute(balance.Scope{Kind: q.Entity}, snap, w)
	if err != nil {
		return Result{}, err
	}
	term := search.New(q.Search)
	filtered := make([]ledger.BalanceSnapshot, 0, len(rows))
	for _, r := range rows {
		bal := ledger.Minor(r.Balance)
		if def.Kind == dictionary.FilterPositive && bal <= 0 {
			continue
		}
		if def.Kind == dictionary.FilterNegative && bal >= 0 {
			continue
		}
		if !term.Match(r.Name, r.Code, r.Contact, r.Address) {
			continue
		}
		filtered = append(filtered, r)
	}
	sortRows(filtered, q.SortBy, q.SortOrder)
	summary, err := summarize(snap.Currency, filtered)
	if err != nil {
		return Result{}, err
	}
	page, meta := pagination.Slice(filtered, q.Page)
	return Result{Rows: page, Meta: meta, Summary: summary, Window: w}, nil
}

var sortKeys = map[string]func(ledger.BalanceSnapshot) int64{
	"balance":      func(r ledger.BalanceSnapshot) int64 { return ledger.Minor(r.Balance) },
	"opening":      func(r ledger.BalanceSnapshot) int64 { return ledger.Minor(r.Opening) },
	"billAmount":   func(r ledger.BalanceSnapshot) int64 { return ledger.Minor(r.BillAmount) },
	"received":     func(r ledger.BalanceSnapshot) int64 { return ledger.Minor(r.Received) },
	"payment":      func(r ledger.BalanceSnapshot) int64 { return ledger.Minor(r.Payment) },
	"returnAmount": func(r ledger.BalanceSnapshot) int64 { return ledger.Minor(r.ReturnAmount) },
	"discount":     func(r ledger.BalanceSnapshot) int64 { return ledger.Minor(r.Discount) },
}

// sortRows orders by sortBy (default code). Ties break on code then id so pages are stable.
func sortRows(rows []ledger.BalanceSnapshot, by, order string) {
	desc := strings.EqualFold(order, "desc")
	key := sortKeys[by]
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		c := 0
		switch {
		case key != nil:
			ka, kb := key(a), key(b)
			if ka < kb {
				c = -1
			} else if ka > kb {
				c = 1
			}
		case by == "name":
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		if c == 0 {
			c = strings.Compare(a.Code, b.Code)
		}
		if c == 0 {
			c = strings.Compare(a.EntityID.String(), b.EntityID.String())
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func summarize(curr string, rows []ledger.BalanceSnapshot) (Summary, error) {
	var opening, bill, received, payment, ret, discount, inflow, outflow, bal []int64
	for _, r := range rows {
		opening = append(opening, ledger.Minor(r.Opening))
		bill = append(bill, ledger.Minor(r.BillAmount))
		received = append(received, ledger.Minor(r.Received))
		payment = append(payment, ledger.Minor(r.Payment))
		ret = append(ret, ledger.Minor(r.ReturnAmount))
		discount = append(discount, ledger.Minor(r.Discount))
		inflow = append(inflow, ledger.Minor(r.Inflow))
		outflow = append(outflow, ledger.Minor(r.Outflow))
		bal = append(bal, ledger.Minor(r.Balance))
	}
	sum := Summary{Count: len(rows)}
	for _, f := range []struct {
		dst  *money.Amount
		vals []int64
	}{
		{&sum.TotalOpening, opening}, {&sum.TotalBill, bill}, {&sum.TotalReceived, received},
		{&sum.TotalPayment, payment}, {&sum.TotalReturn, ret}, {&sum.TotalDiscount, discount},
		{&sum.TotalInflow, inflow}, {&sum.TotalOutflow, outflow}, {&sum.TotalBalance, bal},
	} {
		units, err := ledger.AddMinor(f.vals...)
		if err != nil {
			return Summary{}, err
		}
		a, err := ledger.FromMinor(curr, units)
		if err != nil {
			return Summary{}, err
		}
		*f.dst = a
	}
	return sum, nil
}

// Statement lists the running balance of one account or party. Blank dates leave the window open.
func (s *service) Statement(ctx context.Context, scope balance.Scope, from, to string) (Statement, error) {
	if scope.EntityID == uuid.Nil {
		return Statement{}, errs.ErrNotFound
	}
	w, err := customWindow(from, to, false)
	if err != nil {
		return Statement{}, err
	}
	snap, err := s.reader.Snapshot(ctx)
	if err != nil {
		return Statement{}, err
	}
	opening, rows, err := balance.Running(scope, snap, w)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return Statement{}, errs.ErrNotFound
		}
		return Statement{}, err
	}
	closing := opening
	if len(rows) > 0 {
		closing = rows[len(rows)-1].Balance
	}
	return Statement{Opening: opening, Closing: closing, Rows: rows}, nil
}
