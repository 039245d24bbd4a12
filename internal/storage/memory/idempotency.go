package memory

import (
	"context"

	"github.com/tinoosan/voucherledger/internal/idempotency"
)

// LookupIdempotency returns the stored response for key, if any.
func (s *Store) LookupIdempotency(_ context.Context, key string) (idempotency.Response, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.idem[key]
	return r, ok, nil
}

// SaveIdempotency records the response for key. The first writer wins.
func (s *Store) SaveIdempotency(_ context.Context, key string, r idempotency.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idem[key]; !ok {
		s.idem[key] = r
	}
	return nil
}
