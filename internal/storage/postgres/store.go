// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the services.
//
// Amounts are stored as minor units in bigint columns. The schema lives in
// migrations/ and is applied by Migrate.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/voucherledger/internal/errs"
	"github.com/tinoosan/voucherledger/internal/ledger"
	"github.com/tinoosan/voucherledger/internal/sequence"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	currency string
	codes    *sequence.Generator
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn, currency string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, currency: currency, codes: sequence.New(counter{q: pool})}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Currency() string { return s.currency }

// PeekCode returns the next code for prefix without consuming it.
func (s *Store) PeekCode(ctx context.Context, prefix string) (string, error) {
	return s.codes.PeekCode(ctx, prefix)
}

// IssueCode consumes and returns the next code for prefix outside any entity write.
func (s *Store) IssueCode(ctx context.Context, prefix string) (string, error) {
	return s.codes.NextCode(ctx, prefix)
}

// Migrate applies every embedded migration not yet recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	if _, err := s.pool.Exec(ctx, `
		create table if not exists schema_migrations (
			version    text primary key,
			applied_at timestamptz not null default now()
		)`); err != nil {
		return nil, fmt.Errorf("postgres: create schema_migrations: %w", err)
	}
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	var applied []string
	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")
		body, err := migrations.ReadFile(name)
		if err != nil {
			return applied, err
		}
		var done bool
		err = s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx, `insert into schema_migrations (version) values ($1) on conflict do nothing`, version)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				done = true
				return nil
			}
			_, err = tx.Exec(ctx, string(body))
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("postgres: migration %s: %w", version, err)
		}
		if !done {
			applied = append(applied, version)
		}
	}
	return applied, nil
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", mapErr(err))
	}
	return nil
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// counter keeps code sequences in the code_sequences table. Used with a
// transaction, the increment commits or rolls back together with the row it numbers.
type counter struct{ q querier }

func (c counter) Increment(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := c.q.QueryRow(ctx, `
		insert into code_sequences (prefix, seq) values ($1, 1)
		on conflict (prefix) do update set seq = code_sequences.seq + 1
		returning seq
	`, prefix).Scan(&n)
	return n, err
}

func (c counter) Peek(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := c.q.QueryRow(ctx, `select seq from code_sequences where prefix = $1`, prefix).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func (c counter) Observe(ctx context.Context, prefix string, n int64) error {
	_, err := c.q.Exec(ctx, `
		insert into code_sequences (prefix, seq) values ($1, $2)
		on conflict (prefix) do update set seq = greatest(code_sequences.seq, excluded.seq)
	`, prefix, n)
	return err
}

// assignCode draws the next code inside tx when code is blank, or records a
// manual code so generated ones skip past it.
func assignCode(ctx context.Context, tx pgx.Tx, prefix, code string) (string, error) {
	gen := sequence.New(counter{q: tx})
	if code == "" {
		return gen.NextCode(ctx, prefix)
	}
	return code, gen.Reserve(ctx, prefix, code)
}

// mapErr translates constraint violations into domain errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", uniqueMessage(pgErr), errs.ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s is referenced by ledger entries or references a missing row: %w", pgErr.TableName, errs.ErrConflict)
		}
	}
	return err
}

func uniqueMessage(pgErr *pgconn.PgError) string {
	if strings.HasSuffix(pgErr.ConstraintName, "_pkey") {
		return "id already exists"
	}
	return "code already exists"
}

func (s *Store) amount(minor int64) (money.Amount, error) {
	return ledger.FromMinor(s.currency, minor)
}

// nullable maps uuid.Nil to SQL NULL.
func nullable(id uuid.UUID) any {
	if id == uuid.Nil {
		return nil
	}
	return id
}

func fromNull(n uuid.NullUUID) uuid.UUID {
	if !n.Valid {
		return uuid.Nil
	}
	return n.UUID
}
