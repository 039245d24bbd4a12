package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
)

const partyColumns = `id, kind, code, name, contact, address, opening_minor, is_active, created_at, updated_at`

func (s *Store) scanParty(row rowScanner) (ledger.Party, error) {
	var p ledger.Party
	var opening int64
	if err := row.Scan(&p.ID, &p.Kind, &p.Code, &p.Name, &p.Contact, &p.Address, &opening, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return ledger.Party{}, err
	}
	amt, err := s.amount(opening)
	if err != nil {
		return ledger.Party{}, err
	}
	p.OpeningBalance = amt
	return p, nil
}

func (s *Store) queryParties(ctx context.Context, q querier, sql string, args ...any) ([]ledger.Party, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Party, 0)
	for rows.Next() {
		p, err := s.scanParty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateParty inserts p, assigning the next CUS/SUP code when p.Code is blank.
func (s *Store) CreateParty(ctx context.Context, p ledger.Party) (ledger.Party, error) {
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		code, err := assignCode(ctx, tx, p.Kind.Prefix(), p.Code)
		if err != nil {
			return err
		}
		p.Code = code
		_, err = tx.Exec(ctx, `
			insert into parties (`+partyColumns+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, p.ID, p.Kind, p.Code, p.Name, p.Contact, p.Address, ledger.Minor(p.OpeningBalance), p.IsActive, p.CreatedAt, p.UpdatedAt)
		return mapErr(err)
	})
	if err != nil {
		return ledger.Party{}, err
	}
	return p, nil
}

func (s *Store) GetParty(ctx context.Context, kind ledger.PartyKind, id uuid.UUID) (ledger.Party, error) {
	p, err := s.scanParty(s.pool.QueryRow(ctx, `select `+partyColumns+` from parties where id = $1 and kind = $2`, id, kind))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Party{}, errs.ErrNotFound
	}
	return p, err
}

// ListParties returns parties of kind ordered by code.
func (s *Store) ListParties(ctx context.Context, kind ledger.PartyKind) ([]ledger.Party, error) {
	return s.queryParties(ctx, s.pool, `select `+partyColumns+` from parties where kind = $1 order by code`, kind)
}

func (s *Store) PartiesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Party, error) {
	out := make(map[uuid.UUID]ledger.Party, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	ps, err := s.queryParties(ctx, s.pool, `select `+partyColumns+` from parties where id = any($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range ps {
		out[p.ID] = p
	}
	return out, nil
}

func (s *Store) UpdateParty(ctx context.Context, p ledger.Party) (ledger.Party, error) {
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var code string
		err := tx.QueryRow(ctx, `select code from parties where id = $1 and kind = $2 for update`, p.ID, p.Kind).Scan(&code)
		if err != nil {
			return mapErr(err)
		}
		if code != p.Code {
			return errs.ErrImmutable
		}
		_, err = tx.Exec(ctx, `
			update parties
			set name=$1, contact=$2, address=$3, opening_minor=$4, is_active=$5, updated_at=$6
			where id=$7
		`, p.Name, p.Contact, p.Address, ledger.Minor(p.OpeningBalance), p.IsActive, p.UpdatedAt, p.ID)
		return mapErr(err)
	})
	if err != nil {
		return ledger.Party{}, err
	}
	return p, nil
}

func (s *Store) DeleteParty(ctx context.Context, kind ledger.PartyKind, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `delete from parties where id = $1 and kind = $2`, id, kind)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
