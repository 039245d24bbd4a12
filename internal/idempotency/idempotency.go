// Package idempotency defines how create responses are remembered per Idempotency-Key.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Response is the first response recorded for a key.
type Response struct {
	BodyHash string
	Status   int
	Payload  []byte
}

// Store persists responses by key. Save keeps the first response for a key.
type Store interface {
	LookupIdempotency(ctx context.Context, key string) (Response, bool, error)
	SaveIdempotency(ctx context.Context, key string, r Response) error
}

// Hash fingerprints a request body so a reused key with a different body is detectable.
func Hash(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
