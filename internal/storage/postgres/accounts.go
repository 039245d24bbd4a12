package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
)

const accountColumns = `id, code, name, type, description, opening_minor, is_active, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanAccount(row rowScanner) (ledger.Account, error) {
	var a ledger.Account
	var opening int64
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.Description, &opening, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return ledger.Account{}, err
	}
	amt, err := s.amount(opening)
	if err != nil {
		return ledger.Account{}, err
	}
	a.OpeningBalance = amt
	return a, nil
}

func (s *Store) queryAccounts(ctx context.Context, q querier, sql string, args ...any) ([]ledger.Account, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := s.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAccount inserts a, assigning the next ACC code when a.Code is blank.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		code, err := assignCode(ctx, tx, ledger.AccountPrefix, a.Code)
		if err != nil {
			return err
		}
		a.Code = code
		_, err = tx.Exec(ctx, `
			insert into accounts (`+accountColumns+`)
			values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, a.ID, a.Code, a.Name, a.Type, a.Description, ledger.Minor(a.OpeningBalance), a.IsActive, a.CreatedAt, a.UpdatedAt)
		return mapErr(err)
	})
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	a, err := s.scanAccount(s.pool.QueryRow(ctx, `select `+accountColumns+` from accounts where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

// ListAccounts returns all accounts ordered by code.
func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return s.queryAccounts(ctx, s.pool, `select `+accountColumns+` from accounts order by code`)
}

// AccountsByIDs returns the accounts that exist among ids.
func (s *Store) AccountsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	out := make(map[uuid.UUID]ledger.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	accs, err := s.queryAccounts(ctx, s.pool, `select `+accountColumns+` from accounts where id = any($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range accs {
		out[a.ID] = a
	}
	return out, nil
}

// UpdateAccount replaces the mutable fields of an existing account.
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var code string
		err := tx.QueryRow(ctx, `select code from accounts where id = $1 for update`, a.ID).Scan(&code)
		if err != nil {
			return mapErr(err)
		}
		if code != a.Code {
			return errs.ErrImmutable
		}
		_, err = tx.Exec(ctx, `
			update accounts
			set name=$1, type=$2, description=$3, opening_minor=$4, is_active=$5, updated_at=$6
			where id=$7
		`, a.Name, a.Type, a.Description, ledger.Minor(a.OpeningBalance), a.IsActive, a.UpdatedAt, a.ID)
		return mapErr(err)
	})
	if err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

// DeleteAccount removes an account that no entry references.
func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `delete from accounts where id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
