package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidOperation is returned for operations with non-positive divisors or part counts.
var ErrInvalidOperation = errors.New("invalid money operation")

// ErrOverflow is returned when a result exceeds the representable amount range.
var ErrOverflow = errors.New("money amount overflow")

// Money is a fixed-point monetary value stored in minor units (e.g. cents).
// The zero value is a valid zero amount. All operations return new values;
// no floating-point representation is ever used for amounts.
type Money struct {
	amount int64
}

// Zero returns a zero amount.
func Zero() Money {
	return Money{}
}

// New builds a Money from major and minor unit parts.
// New(10, 50) is 10.50.
func New(major, minor int64) (Money, error) {
	scaled, ok := mulCheck(major, 100)
	if !ok {
		return Money{}, fmt.Errorf("new %d.%02d: %w", major, minor, ErrOverflow)
	}
	amount, ok := addCheck(scaled, minor)
	if !ok {
		return Money{}, fmt.Errorf("new %d.%02d: %w", major, minor, ErrOverflow)
	}
	return Money{amount: amount}, nil
}

// FromMinor builds a Money directly from minor units.
func FromMinor(minor int64) Money {
	return Money{amount: minor}
}

// FromDecimal converts a decimal major-unit value into Money, rounding
// half-up to the nearest minor unit. Rounding happens exactly once, at
// construction.
func FromDecimal(d decimal.Decimal) (Money, error) {
	scaled := d.Shift(2).Round(0)
	if !scaled.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("from decimal %s: %w", d, ErrOverflow)
	}
	return Money{amount: scaled.IntPart()}, nil
}

// Minor returns the raw amount in minor units.
func (m Money) Minor() int64 {
	return m.amount
}

// Decimal returns the amount as an exact decimal in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.amount, -2)
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	sum, ok := addCheck(m.amount, other.amount)
	if !ok {
		return Money{}, fmt.Errorf("add %s + %s: %w", m, other, ErrOverflow)
	}
	return Money{amount: sum}, nil
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	diff, ok := addCheck(m.amount, -other.amount)
	if other.amount == math.MinInt64 || !ok {
		return Money{}, fmt.Errorf("sub %s - %s: %w", m, other, ErrOverflow)
	}
	return Money{amount: diff}, nil
}

// MulInt scales the amount by an integer factor.
func (m Money) MulInt(factor int64) (Money, error) {
	product, ok := mulCheck(m.amount, factor)
	if !ok {
		return Money{}, fmt.Errorf("mul %s * %d: %w", m, factor, ErrOverflow)
	}
	return Money{amount: product}, nil
}

// MulDecimal scales the amount by an exact rational factor, rounding
// half-up to the nearest minor unit once.
func (m Money) MulDecimal(factor decimal.Decimal) (Money, error) {
	product := decimal.NewFromInt(m.amount).Mul(factor).Round(0)
	if !product.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("mul %s * %s: %w", m, factor, ErrOverflow)
	}
	return Money{amount: product.IntPart()}, nil
}

// DivInt divides the amount by n, truncating toward zero.
func (m Money) DivInt(n int64) (Money, error) {
	if n <= 0 {
		return Money{}, fmt.Errorf("div by %d: %w", n, ErrInvalidOperation)
	}
	return Money{amount: m.amount / n}, nil
}

// Split divides the amount into n parts that sum exactly to the original.
// Each part holds amount/n; the remainder is distributed one minor unit
// at a time to the last parts, so nothing is lost or fabricated.
func (m Money) Split(n int) ([]Money, error) {
	if n <= 0 {
		return nil, fmt.Errorf("split into %d parts: %w", n, ErrInvalidOperation)
	}
	base := m.amount / int64(n)
	rem := m.amount % int64(n)
	step := int64(1)
	if rem < 0 {
		step = -1
		rem = -rem
	}
	parts := make([]Money, n)
	for i := range parts {
		amount := base
		if int64(n-i) <= rem {
			amount += step
		}
		parts[i] = Money{amount: amount}
	}
	return parts, nil
}

// PercentBps returns the given percentage of the amount, expressed in
// basis points (10000 bps = 100%), rounded half-up to the nearest minor
// unit.
func (m Money) PercentBps(bps int64) (Money, error) {
	part := decimal.NewFromInt(m.amount).
		Mul(decimal.NewFromInt(bps)).
		Shift(-4).
		Round(0)
	if !part.BigInt().IsInt64() {
		return Money{}, fmt.Errorf("percent %d bps of %s: %w", bps, m, ErrOverflow)
	}
	return Money{amount: part.IntPart()}, nil
}

// AddPercentBps adds the given percentage of the amount.
func (m Money) AddPercentBps(bps int64) (Money, error) {
	part, err := m.PercentBps(bps)
	if err != nil {
		return Money{}, err
	}
	return m.Add(part)
}

// SubPercentBps subtracts the given percentage of the amount.
func (m Money) SubPercentBps(bps int64) (Money, error) {
	part, err := m.PercentBps(bps)
	if err != nil {
		return Money{}, err
	}
	return m.Sub(part)
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, 1 if m > other.
func (m Money) Cmp(other Money) int {
	switch {
	case m.amount < other.amount:
		return -1
	case m.amount > other.amount:
		return 1
	default:
		return 0
	}
}

// Equal reports whether both amounts are identical.
func (m Money) Equal(other Money) bool {
	return m.amount == other.amount
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.amount == 0
}

// IsPositive reports whether the amount is strictly positive.
func (m Money) IsPositive() bool {
	return m.amount > 0
}

// IsNegative reports whether the amount is strictly negative.
func (m Money) IsNegative() bool {
	return m.amount < 0
}

// Abs returns the absolute value of the amount.
func (m Money) Abs() (Money, error) {
	if m.amount == math.MinInt64 {
		return Money{}, fmt.Errorf("abs: %w", ErrOverflow)
	}
	if m.amount < 0 {
		return Money{amount: -m.amount}, nil
	}
	return m, nil
}

// Neg returns the negated amount.
func (m Money) Neg() (Money, error) {
	if m.amount == math.MinInt64 {
		return Money{}, fmt.Errorf("neg: %w", ErrOverflow)
	}
	return Money{amount: -m.amount}, nil
}

// String renders the amount as a sign-prefixed two-decimal value, e.g. "-12.05".
func (m Money) String() string {
	sign := ""
	abs := uint64(m.amount)
	if m.amount < 0 {
		// Unsigned magnitude stays exact even at MinInt64, where int64
		// negation would wrap.
		sign = "-"
		abs = -uint64(m.amount)
	}
	return fmt.Sprintf("%s%d.%02d", sign, abs/100, abs%100)
}

func addCheck(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}

func mulCheck(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	// MinInt64 * -1 wraps to MinInt64 and passes the division check.
	if (a == math.MinInt64 && b == -1) || (b == math.MinInt64 && a == -1) {
		return 0, false
	}
	product := a * b
	if product/b != a {
		return 0, false
	}
	return product, true
}
