package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
)

const entryColumns = `id, kind, code, date, narration, created_by, created_at, updated_at,
	party_id, from_account_id, to_account_id, account_id, gross_minor, discount_minor, net_minor`

func (s *Store) scanEntry(row rowScanner) (ledger.Entry, error) {
	var e ledger.Entry
	var party, from, to, account uuid.NullUUID
	var gross, discount, net int64
	if err := row.Scan(&e.ID, &e.Kind, &e.Code, &e.Date, &e.Narration, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
		&party, &from, &to, &account, &gross, &discount, &net); err != nil {
		return ledger.Entry{}, err
	}
	e.PartyID, e.FromAccountID, e.ToAccountID, e.AccountID = fromNull(party), fromNull(from), fromNull(to), fromNull(account)
	var err error
	if e.Gross, err = s.amount(gross); err != nil {
		return ledger.Entry{}, err
	}
	if e.Discount, err = s.amount(discount); err != nil {
		return ledger.Entry{}, err
	}
	if e.Net, err = s.amount(net); err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}

// queryEntries loads entries and their items in two round trips.
func (s *Store) queryEntries(ctx context.Context, q querier, sql string, args ...any) ([]ledger.Entry, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	entries := make([]ledger.Entry, 0)
	for rows.Next() {
		e, err := s.scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}
	idx := make(map[uuid.UUID]*ledger.Entry, len(entries))
	ids := make([]uuid.UUID, 0, len(entries))
	for i := range entries {
		idx[entries[i].ID] = &entries[i]
		ids = append(ids, entries[i].ID)
	}
	itemRows, err := q.Query(ctx, `
		select entry_id, label, account_id, amount_minor, remark
		from entry_items
		where entry_id = any($1)
		order by entry_id, position
	`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var entryID uuid.UUID
		var account uuid.NullUUID
		var minor int64
		var it ledger.Item
		if err := itemRows.Scan(&entryID, &it.Label, &account, &minor, &it.Remark); err != nil {
			return nil, err
		}
		e := idx[entryID]
		if e == nil {
			continue
		}
		it.AccountID = fromNull(account)
		if it.Amount, err = s.amount(minor); err != nil {
			return nil, err
		}
		e.Items = append(e.Items, it)
	}
	return entries, itemRows.Err()
}

func (s *Store) getEntry(ctx context.Context, where string, args ...any) (ledger.Entry, error) {
	es, err := s.queryEntries(ctx, s.pool, `select `+entryColumns+` from entries where `+where, args...)
	if err != nil {
		return ledger.Entry{}, err
	}
	if len(es) == 0 {
		return ledger.Entry{}, errs.ErrNotFound
	}
	return es[0], nil
}

func insertItems(ctx context.Context, tx pgx.Tx, e ledger.Entry) error {
	for i, it := range e.Items {
		_, err := tx.Exec(ctx, `
			insert into entry_items (entry_id, position, label, account_id, amount_minor, remark)
			values ($1,$2,$3,$4,$5,$6)
		`, e.ID, i, it.Label, nullable(it.AccountID), ledger.Minor(it.Amount), it.Remark)
		if err != nil {
			return mapErr(err)
		}
	}
	return nil
}

// CreateEntry inserts e and its items, drawing the next code of its kind in
// the same transaction when e.Code is blank.
func (s *Store) CreateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		code, err := assignCode(ctx, tx, e.Kind.Prefix(), e.Code)
		if err != nil {
			return err
		}
		e.Code = code
		_, err = tx.Exec(ctx, `
			insert into entries (`+entryColumns+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		`, e.ID, e.Kind, e.Code, e.Date, e.Narration, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
			nullable(e.PartyID), nullable(e.FromAccountID), nullable(e.ToAccountID), nullable(e.AccountID),
			ledger.Minor(e.Gross), ledger.Minor(e.Discount), ledger.Minor(e.Net))
		if err != nil {
			return mapErr(err)
		}
		return insertItems(ctx, tx, e)
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}

func (s *Store) GetEntry(ctx context.Context, kind ledger.Kind, id uuid.UUID) (ledger.Entry, error) {
	return s.getEntry(ctx, `id = $1 and kind = $2`, id, kind)
}

func (s *Store) GetEntryByCode(ctx context.Context, kind ledger.Kind, code string) (ledger.Entry, error) {
	return s.getEntry(ctx, `code = $1 and kind = $2`, code, kind)
}

// ListEntries returns entries of kind in (date, createdAt, id) order.
func (s *Store) ListEntries(ctx context.Context, kind ledger.Kind) ([]ledger.Entry, error) {
	return s.queryEntries(ctx, s.pool, `
		select `+entryColumns+` from entries
		where kind = $1
		order by date, created_at, id
	`, kind)
}

// UpdateEntry replaces an entry and its items. Its kind and code cannot change.
func (s *Store) UpdateEntry(ctx context.Context, e ledger.Entry) (ledger.Entry, error) {
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var code string
		err := tx.QueryRow(ctx, `select code from entries where id = $1 and kind = $2 for update`, e.ID, e.Kind).Scan(&code)
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.ErrNotFound
		}
		if err != nil {
			return err
		}
		if code != e.Code {
			return errs.ErrImmutable
		}
		_, err = tx.Exec(ctx, `
			update entries
			set date=$1, narration=$2, updated_at=$3, party_id=$4, from_account_id=$5, to_account_id=$6,
			    account_id=$7, gross_minor=$8, discount_minor=$9, net_minor=$10
			where id=$11
		`, e.Date, e.Narration, e.UpdatedAt, nullable(e.PartyID), nullable(e.FromAccountID), nullable(e.ToAccountID),
			nullable(e.AccountID), ledger.Minor(e.Gross), ledger.Minor(e.Discount), ledger.Minor(e.Net), e.ID)
		if err != nil {
			return mapErr(err)
		}
		if _, err := tx.Exec(ctx, `delete from entry_items where entry_id = $1`, e.ID); err != nil {
			return err
		}
		return insertItems(ctx, tx, e)
	})
	if err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}

func (s *Store) DeleteEntry(ctx context.Context, kind ledger.Kind, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `delete from entries where id = $1 and kind = $2`, id, kind)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Snapshot reads every account, party and entry from one repeatable-read transaction.
func (s *Store) Snapshot(ctx context.Context) (ledger.Snapshot, error) {
	snap := ledger.Snapshot{Currency: s.currency}
	err := s.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		if snap.Accounts, err = s.queryAccounts(ctx, tx, `select `+accountColumns+` from accounts order by code`); err != nil {
			return err
		}
		if snap.Parties, err = s.queryParties(ctx, tx, `select `+partyColumns+` from parties order by kind, code`); err != nil {
			return err
		}
		snap.Entries, err = s.queryEntries(ctx, tx, `select `+entryColumns+` from entries order by date, created_at, id`)
		return err
	})
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return snap, nil
}
