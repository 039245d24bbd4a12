package ledger

import (
	"errors"
	"strconv"
	"strings"

	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

var (
	ErrAmountFormat    = errors.New("must be a decimal number")
	ErrAmountPrecision = errors.New("must have at most 2 decimal places")
	ErrAmountRange     = errors.New("must not exceed 10000000000000.00 in absolute value")
)

// AmountScale is the number of fraction digits amounts are stored with.
const AmountScale = 2

// MaxAmountMinor bounds a single amount so sums of many amounts stay within int64.
const MaxAmountMinor int64 = 1_000_000_000_000_000

var maxAmount = decimal.MustNew(MaxAmountMinor, AmountScale)

// Zero returns a zero amount in curr.
func Zero(curr string) (money.Amount, error) {
	return money.NewAmountFromMinorUnits(curr, 0)
}

// MustZero is Zero for currencies already validated by config.
func MustZero(curr string) money.Amount {
	z, err := Zero(curr)
	if err != nil {
		panic(err)
	}
	return z
}

// ParseAmount parses a decimal string such as "1250.5" into curr.
// Values with more than two fraction digits are rejected rather than rounded.
func ParseAmount(curr, s string) (money.Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return money.Amount{}, ErrAmountFormat
	}
	d, err := decimal.Parse(s)
	if err != nil {
		return money.Amount{}, ErrAmountFormat
	}
	if d.Scale() > AmountScale {
		return money.Amount{}, ErrAmountPrecision
	}
	if d.Abs().Cmp(maxAmount) > 0 {
		return money.Amount{}, ErrAmountRange
	}
	a, err := money.ParseAmount(curr, d.String())
	if err != nil {
		return money.Amount{}, ErrAmountFormat
	}
	return a, nil
}

// Minor returns the amount in minor units (cents).
func Minor(a money.Amount) int64 {
	units, _ := a.MinorUnits()
	return units
}

// AddMinor sums minor units, failing with ErrAmountRange on int64 overflow.
func AddMinor(vals ...int64) (int64, error) {
	var sum int64
	for _, v := range vals {
		next := sum + v
		if (v > 0 && next < sum) || (v < 0 && next > sum) {
			return 0, ErrAmountRange
		}
		sum = next
	}
	return sum, nil
}

// FromMinor builds an amount from minor units.
func FromMinor(curr string, units int64) (money.Amount, error) {
	return money.NewAmountFromMinorUnits(curr, units)
}

// FormatMinor renders minor units as a fixed two-decimal string, e.g. -1050 -> "-10.50".
func FormatMinor(units int64) string {
	neg := units < 0
	if neg {
		units = -units
	}
	whole := strconv.FormatInt(units/100, 10)
	frac := strconv.FormatInt(units%100, 10)
	if len(frac) < 2 {
		frac = "0" + frac
	}
	if neg {
		return "-" + whole + "." + frac
	}
	return whole + "." + frac
}

// Format renders an amount with exactly two decimals.
func Format(a money.Amount) string { return FormatMinor(Minor(a)) }
