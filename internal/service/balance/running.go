package balance

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/voucherledger/internal/ledger"
)

// Movement is one row of an entity's running-balance view.
type Movement struct {
	EntryID uuid.UUID
	Code    string
	Kind    ledger.Kind
	Date    time.Time
	Delta   money.Amount
	Balance money.Amount
}

// Running lists every entry in w touching the entity, in fold order, with the
// balance after each one. The starting balance is the entity's opening plus
// everything folded before w.From.
func Running(scope Scope, snap ledger.Snapshot, w Window) (opening money.Amount, rows []Movement, err error) {
	subjects := subjectsFor(scope, snap)
	if len(subjects) != 1 {
		return money.Amount{}, nil, errNotInScope
	}
	s := subjects[0]
	cur := map[uuid.UUID]*tally{s.id: {opening: s.opening}}
	var started bool
	var start int64
	for _, e := range Ordered(snap.Entries) {
		if !w.To.IsZero() && !e.Date.Before(w.To) {
			break
		}
		before := cur[s.id].balance()
		fold(cur, e)
		after := cur[s.id].balance()
		if !w.From.IsZero() && e.Date.Before(w.From) {
			continue
		}
		if !started {
			start, started = before, true
		}
		if !e.References(s.id) {
			continue
		}
		delta, err := ledger.FromMinor(snap.Currency, after-before)
		if err != nil {
			return money.Amount{}, nil, err
		}
		bal, err := ledger.FromMinor(snap.Currency, after)
		if err != nil {
			return money.Amount{}, nil, err
		}
		rows = append(rows, Movement{EntryID: e.ID, Code: e.Code, Kind: e.Kind, Date: e.Date, Delta: delta, Balance: bal})
	}
	if !started {
		start = cur[s.id].balance()
	}
	opening, err = ledger.FromMinor(snap.Currency, start)
	if err != nil {
		return money.Amount{}, nil, err
	}
	return opening, rows, nil
}
