// Package memory provides an in-memory store used for development and tests.
// It mirrors the postgres store's semantics: codes are assigned inside the
// write, deletes of referenced rows fail, and snapshots are consistent.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/idempotency"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/sequence"
)

// entryKey orders entries per kind: sorted asc by (Date, CreatedAt, ID).
type entryKey struct {
	Date      time.Time
	CreatedAt time.Time
	ID        uuid.UUID
}

func (k entryKey) less(o entryKey) bool {
	if !k.Date.Equal(o.Date) {
		return k.Date.Before(o.Date)
	}
	if !k.CreatedAt.Equal(o.CreatedAt) {
		return k.CreatedAt.Before(o.CreatedAt)
	}
	return k.ID.String() < o.ID.String()
}

// Store is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
	mu       sync.RWMutex
	currency string
	codes    *sequence.Generator
	counter  sequence.Counter

	accounts map[uuid.UUID]ledger.Account
	parties  map[uuid.UUID]ledger.Party
	entries  map[uuid.UUID]*ledger.Entry
	// Per-kind sorted index of entries for ordered scans
	entryKeys map[ledger.Kind][]entryKey
	// code -> id, namespaced per family (see codeKey)
	codeIndex map[string]uuid.UUID
	idem      map[string]idempotency.Response
}

type Option func(*Store)

// WithCounter replaces the in-process code counter, e.g. with a Redis counter.
func WithCounter(c sequence.Counter) Option {
	return func(s *Store) { s.counter = c }
}

// New constructs an empty store holding amounts in currency.
func New(currency string, opts ...Option) *Store {
	s := &Store{currency: currency, counter: sequence.NewMemoryCounter()}
	for _, o := range opts {
		o(s)
	}
	s.codes = sequence.New(s.counter)
	s.resetLocked()
	return s
}

func (s *Store) resetLocked() {
	s.accounts = map[uuid.UUID]ledger.Account{}
	s.parties = map[uuid.UUID]ledger.Party{}
	s.entries = map[uuid.UUID]*ledger.Entry{}
	s.entryKeys = map[ledger.Kind][]entryKey{}
	s.codeIndex = map[string]uuid.UUID{}
	s.idem = map[string]idempotency.Response{}
}

// Reset drops all data. Counters keep their values so codes are never reissued.
func (s *Store) Reset() { s.mu.Lock(); s.resetLocked(); s.mu.Unlock() }

// Currency reports the store's currency.
func (s *Store) Currency() string { return s.currency }

// Ready reports whether the code counter backend is reachable.
func (s *Store) Ready(ctx context.Context) error {
	if rc, ok := s.counter.(interface{ Ready(context.Context) error }); ok {
		return rc.Ready(ctx)
	}
	return nil
}

// PeekCode returns the next code for prefix without consuming it.
func (s *Store) PeekCode(ctx context.Context, prefix string) (string, error) {
	return s.codes.PeekCode(ctx, prefix)
}

// IssueCode consumes and returns the next code for prefix.
func (s *Store) IssueCode(ctx context.Context, prefix string) (string, error) {
	return s.codes.NextCode(ctx, prefix)
}

func codeKey(family, code string) string { return family + "\x00" + code }

func accountFamily() string                 { return "account" }
func partyFamily(k ledger.PartyKind) string { return "party:" + string(k) }
func entryFamily(k ledger.Kind) string      { return "entry:" + string(k) }

// assignCode reserves a code for a new row. A blank code is drawn from the
// counter before the lock is taken; a failed insert afterwards leaves a gap.
func (s *Store) assignCode(ctx context.Context, prefix, code string) (string, bool, error) {
	if code != "" {
		return code, true, nil
	}
	next, err := s.codes.NextCode(ctx, prefix)
	if err != nil {
		return "", false, err
	}
	return next, false, nil
}

// claimCodeLocked indexes code for id and returns the code actually claimed.
// A taken manual code fails with ErrConflict; a taken generated code is
// redrawn from the counter until a free one turns up.
func (s *Store) claimCodeLocked(ctx context.Context, family, prefix, code string, manual bool, id uuid.UUID) (string, error) {
	for {
		owner, ok := s.codeIndex[codeKey(family, code)]
		if !ok || owner == id {
			break
		}
		if manual {
			return "", fmt.Errorf("code %s already exists: %w", code, errs.ErrConflict)
		}
		next, err := s.codes.NextCode(ctx, prefix)
		if err != nil {
			return "", err
		}
		code = next
	}
	if manual {
		if err := s.codes.Reserve(ctx, prefix, code); err != nil {
			return "", err
		}
	}
	s.codeIndex[codeKey(family, code)] = id
	return code, nil
}

func (s *Store) referencedLocked(id uuid.UUID) bool {
	for _, e := range s.entries {
		if e.References(id) {
			return true
		}
	}
	return false
}

// --- Accounts ---

// CreateAccount inserts a, assigning the next ACC code when a.Code is blank.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	code, manual, err := s.assignCode(ctx, ledger.AccountPrefix, a.Code)
	if err != nil {
		return ledger.Account{}, err
	}
	a.Code = code
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return ledger.Account{}, errs.ErrConflict
	}
	claimed, err := s.claimCodeLocked(ctx, accountFamily(), ledger.AccountPrefix, a.Code, manual, a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	a.Code = claimed
	s.accounts[a.ID] = a
	return a, nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// ListAccounts returns all accounts ordered by code.
func (s *Store) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accountsLocked(), nil
}

func (s *Store) accountsLocked() []ledger.Account {
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// AccountsByIDs returns the accounts that exist among ids.
func (s *Store) AccountsByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]ledger.Account, len(ids))
	for _, id := range ids {
		if a, ok := s.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

// UpdateAccount replaces the mutable fields of an existing account.
func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	if a.Code != cur.Code {
		return ledger.Account{}, errs.ErrImmutable
	}
	s.accounts[a.ID] = a
	return a, nil
}

// DeleteAccount removes an account that no entry references.
func (s *Store) DeleteAccount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errs.ErrNotFound
	}
	if s.referencedLocked(id) {
		return fmt.Errorf("account %s is referenced by ledger entries: %w", a.Code, errs.ErrConflict)
	}
	delete(s.accounts, id)
	delete(s.codeIndex, codeKey(accountFamily(), a.Code))
	return nil
}

// --- Parties ---

// CreateParty inserts p, assigning the next CUS/SUP code when p.Code is blank.
func (s *Store) CreateParty(ctx context.Context, p ledger.Party) (ledger.Party, error) {
	prefix := p.Kind.Prefix()
	code, manual, err := s.assignCode(ctx, prefix, p.Code)
	if err != nil {
		return ledger.Party{}, err
	}
	p.Code = code
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parties[p.ID]; ok {
		return ledger.Party{}, errs.ErrConflict
	}
	claimed, err := s.claimCodeLocked(ctx, partyFamily(p.Kind), prefix, p.Code, manual, p.ID)
	if err != nil {
		return ledger.Party{}, err
	}
	p.Code = claimed
	s.parties[p.ID] = p
	return p, nil
}

func (s *Store) GetParty(_ context.Context, kind ledger.PartyKind, id uuid.UUID) (ledger.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parties[id]
	if !ok || p.Kind != kind {
		return ledger.Party{}, errs.ErrNotFound
	}
	return p, nil
}

// ListParties returns parties of kind ordered by code.
func (s *Store) ListParties(_ context.Context, kind ledger.PartyKind) ([]ledger.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Party, 0)
	for _, p := range s.parties {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) PartiesByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]ledger.Party, len(ids))
	for _, id := range ids {
		if p, ok := s.parties[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *Store) UpdateParty(_ context.Context, p ledger.Party) (ledger.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.parties[p.ID]
	if !ok || cur.Kind != p.Kind {
		return ledger.Party{}, errs.ErrNotFound
	}
	if p.Code != cur.Code {
		return ledger.Party{}, errs.ErrImmutable
	}
	s.parties[p.ID] = p
	return p, nil
}

func (s *Store) DeleteParty(_ context.Context, kind ledger.PartyKind, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.parties[id]
	if !ok || p.Kind != kind {
		return errs.ErrNotFound
	}
	if s.referencedLocked(id) {
		return fmt.Errorf("%s %s is referenced by ledger entries: %w", kind, p.Code, errs.ErrConflict)
	}
	delete(s.parties, id)
	delete(s.codeIndex, codeKey(partyFamily(kind), p.Code))
	return nil
}

// --- Entries ---

// CreateEntry inserts e, assigning the next code of its kind when e.Code is blank.
// The referenced accounts and parties must still exist when the write lands.
func (s *Store) CreateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	prefix := e.Kind.Prefix()
	code, manual, err := s.assignCode(ctx, prefix, e.Code)
	if err != nil {
		return ledger.Entry{}, err
	}
	e.Code = code
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[e.ID]; ok {
		return ledger.Entry{}, errs.ErrConflict
	}
	if err := s.checkRefsLocked(e); err != nil {
		return ledger.Entry{}, err
	}
	claimed, err := s.claimCodeLocked(ctx, entryFamily(e.Kind), prefix, e.Code, manual, e.ID)
	if err != nil {
		return ledger.Entry{}, err
	}
	e.Code = claimed
	stored := cloneEntry(e)
	s.entries[e.ID] = &stored
	s.insertEntryIndexLocked(e.Kind, keyOf(e))
	return cloneEntry(e), nil
}

// checkRefsLocked guards against a referenced row deleted between validation and insert.
func (s *Store) checkRefsLocked(e ledger.Entry) error {
	for _, id := range []uuid.UUID{e.FromAccountID, e.ToAccountID, e.AccountID} {
		if _, ok := s.accounts[id]; id != uuid.Nil && !ok {
			return fmt.Errorf("account %s: %w", id, errs.ErrConflict)
		}
	}
	for _, it := range e.Items {
		if _, ok := s.accounts[it.AccountID]; it.AccountID != uuid.Nil && !ok {
			return fmt.Errorf("account %s: %w", it.AccountID, errs.ErrConflict)
		}
	}
	if _, ok := s.parties[e.PartyID]; e.PartyID != uuid.Nil && !ok {
		return fmt.Errorf("party %s: %w", e.PartyID, errs.ErrConflict)
	}
	return nil
}

func (s *Store) GetEntry(_ context.Context, kind ledger.Kind, id uuid.UUID) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || e.Kind != kind {
		return ledger.Entry{}, errs.ErrNotFound
	}
	return cloneEntry(*e), nil
}

func (s *Store) GetEntryByCode(_ context.Context, kind ledger.Kind, code string) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.codeIndex[codeKey(entryFamily(kind), code)]
	if !ok {
		return ledger.Entry{}, errs.ErrNotFound
	}
	return cloneEntry(*s.entries[id]), nil
}

// ListEntries returns entries of kind in (date, createdAt, id) order.
func (s *Store) ListEntries(_ context.Context, kind ledger.Kind) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := s.entryKeys[kind]
	out := make([]ledger.Entry, 0, len(keys))
	for _, k := range keys {
		if e, ok := s.entries[k.ID]; ok {
			out = append(out, cloneEntry(*e))
		}
	}
	return out, nil
}

// UpdateEntry replaces an entry. Its kind and code cannot change.
func (s *Store) UpdateEntry(_ context.Context, e ledger.Entry) (ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[e.ID]
	if !ok || cur.Kind != e.Kind {
		return ledger.Entry{}, errs.ErrNotFound
	}
	if cur.Code != e.Code {
		return ledger.Entry{}, errs.ErrImmutable
	}
	if err := s.checkRefsLocked(e); err != nil {
		return ledger.Entry{}, err
	}
	s.removeEntryIndexLocked(cur.Kind, keyOf(*cur))
	stored := cloneEntry(e)
	s.entries[e.ID] = &stored
	s.insertEntryIndexLocked(e.Kind, keyOf(e))
	return cloneEntry(e), nil
}

func (s *Store) DeleteEntry(_ context.Context, kind ledger.Kind, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[id]
	if !ok || cur.Kind != kind {
		return errs.ErrNotFound
	}
	s.removeEntryIndexLocked(kind, keyOf(*cur))
	delete(s.codeIndex, codeKey(entryFamily(kind), cur.Code))
	delete(s.entries, id)
	return nil
}

// Snapshot copies every account, party and entry under one read lock.
func (s *Store) Snapshot(_ context.Context) (ledger.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := ledger.Snapshot{Currency: s.currency, Accounts: s.accountsLocked()}
	snap.Parties = make([]ledger.Party, 0, len(s.parties))
	for _, p := range s.parties {
		snap.Parties = append(snap.Parties, p)
	}
	snap.Entries = make([]ledger.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		snap.Entries = append(snap.Entries, cloneEntry(*e))
	}
	return snap, nil
}

func keyOf(e ledger.Entry) entryKey {
	return entryKey{Date: e.Date, CreatedAt: e.CreatedAt, ID: e.ID}
}

func cloneEntry(e ledger.Entry) ledger.Entry {
	if e.Items != nil {
		items := make([]ledger.Item, len(e.Items))
		copy(items, e.Items)
		e.Items = items
	}
	return e
}

func (s *Store) insertEntryIndexLocked(kind ledger.Kind, k entryKey) {
	keys := s.entryKeys[kind]
	i := sort.Search(len(keys), func(i int) bool { return k.less(keys[i]) })
	keys = append(keys, entryKey{})
	copy(keys[i+1:], keys[i:])
	keys[i] = k
	s.entryKeys[kind] = keys
}

func (s *Store) removeEntryIndexLocked(kind ledger.Kind, k entryKey) {
	keys := s.entryKeys[kind]
	for i := range keys {
		if keys[i].ID == k.ID {
			s.entryKeys[kind] = append(keys[:i], keys[i+1:]...)
			return
		}
	}
}
