// Package sequence issues human-readable entry codes such as CON-1 and REC-42.
//
// A Counter owns one monotonically increasing integer per prefix. Codes are
// formatted as PREFIX-N without leading zeros. Counters start at zero, so the
// first code issued for a prefix is PREFIX-1.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/voucherledger/internal/errs"
)

// Counter is an atomic per-prefix counter.
type Counter interface {
	// Increment atomically adds one and returns the new value.
	Increment(ctx context.Context, prefix string) (int64, error)
	// Peek returns the last value issued, zero when nothing was issued.
	Peek(ctx context.Context, prefix string) (int64, error)
	// Observe raises the counter to at least n. Used when a code is supplied by hand.
	Observe(ctx context.Context, prefix string, n int64) error
}

var codesIssued = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "ledger",
		Name:      "codes_issued_total",
		Help:      "Codes handed out by the sequence generator, per prefix",
	},
	[]string{"prefix"},
)

// Generator formats counter values as codes.
type Generator struct {
	counter Counter
}

func New(c Counter) *Generator { return &Generator{counter: c} }

// NextCode consumes the next value for prefix. A caller that fails to persist
// its entry afterwards leaves a gap, never a duplicate.
func (g *Generator) NextCode(ctx context.Context, prefix string) (string, error) {
	n, err := g.counter.Increment(ctx, prefix)
	if err != nil {
		return "", unavailable(err)
	}
	codesIssued.WithLabelValues(prefix).Inc()
	return Format(prefix, n), nil
}

// PeekCode reports the code NextCode would return now without consuming it.
func (g *Generator) PeekCode(ctx context.Context, prefix string) (string, error) {
	n, err := g.counter.Peek(ctx, prefix)
	if err != nil {
		return "", unavailable(err)
	}
	return Format(prefix, n+1), nil
}

// Reserve records a manually supplied code so later generated codes skip past it.
// Codes outside the prefix series cannot collide with generated ones and are ignored.
func (g *Generator) Reserve(ctx context.Context, prefix, code string) error {
	p, n, ok := Parse(code)
	if !ok || p != prefix {
		return nil
	}
	if err := g.counter.Observe(ctx, prefix, n); err != nil {
		return unavailable(err)
	}
	return nil
}

// Format renders a code, e.g. Format("CON", 7) == "CON-7".
func Format(prefix string, n int64) string {
	return prefix + "-" + strconv.FormatInt(n, 10)
}

// Parse splits a code into prefix and number. The number must be positive and
// written without leading zeros.
func Parse(code string) (string, int64, bool) {
	i := strings.LastIndexByte(code, '-')
	if i <= 0 || i == len(code)-1 {
		return "", 0, false
	}
	prefix, digits := code[:i], code[i+1:]
	for _, r := range prefix {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", 0, false
		}
	}
	if digits[0] == '0' {
		return "", 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return prefix, n, true
}

// InSeries reports whether code is PREFIX-N for the given prefix.
func InSeries(prefix, code string) bool {
	p, _, ok := Parse(code)
	return ok && p == prefix
}

func unavailable(err error) error {
	return fmt.Errorf("sequence: %w: %w", errs.ErrUnavailable, err)
}
