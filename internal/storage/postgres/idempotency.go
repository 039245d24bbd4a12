package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/voucherledger/internal/idempotency"
)

func (s *Store) LookupIdempotency(ctx context.Context, key string) (idempotency.Response, bool, error) {
	var r idempotency.Response
	err := s.pool.QueryRow(ctx, `select body_hash, status, payload from idempotency_keys where key = $1`, key).
		Scan(&r.BodyHash, &r.Status, &r.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return idempotency.Response{}, false, nil
	}
	if err != nil {
		return idempotency.Response{}, false, err
	}
	return r, true, nil
}

// SaveIdempotency keeps the first response stored under key.
func (s *Store) SaveIdempotency(ctx context.Context, key string, r idempotency.Response) error {
	_, err := s.pool.Exec(ctx, `
		insert into idempotency_keys (key, body_hash, status, payload)
		values ($1,$2,$3,$4)
		on conflict (key) do nothing
	`, key, r.BodyHash, r.Status, r.Payload)
	return err
}
