package money_test

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/walldriyan/financial-engine-single/internal/money"
)

func TestNewFromParts(t *testing.T) {
	m, err := money.New(10, 50)
	require.NoError(t, err)
	require.Equal(t, int64(1050), m.Minor())
	require.Equal(t, "10.50", m.String())
}

func TestFromDecimalRoundsHalfUpOnce(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"10.505", 1051},
		{"10.504", 1050},
		{"0.005", 1},
		{"-1.005", -101},
		{"99.99", 9999},
	}
	for _, tc := range cases {
		m, err := money.FromDecimal(decimal.RequireFromString(tc.in))
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, m.Minor(), tc.in)
	}
}

func TestSplitConservesTotal(t *testing.T) {
	for _, amount := range []int64{10000, 10001, 7, 0, -1003, 99999} {
		for _, n := range []int{1, 2, 3, 7, 100} {
			parts, err := money.FromMinor(amount).Split(n)
			require.NoError(t, err)
			require.Len(t, parts, n)
			var sum int64
			for _, p := range parts {
				sum += p.Minor()
			}
			require.Equal(t, amount, sum, "amount=%d n=%d", amount, n)
		}
	}
}

func TestSplitRemainderGoesToLastParts(t *testing.T) {
	parts, err := money.FromMinor(10).Split(3)
	require.NoError(t, err)
	require.Equal(t, int64(3), parts[0].Minor())
	require.Equal(t, int64(3), parts[1].Minor())
	require.Equal(t, int64(4), parts[2].Minor())
}

func TestSplitRejectsNonPositiveParts(t *testing.T) {
	_, err := money.FromMinor(100).Split(0)
	require.ErrorIs(t, err, money.ErrInvalidOperation)
	_, err = money.FromMinor(100).Split(-2)
	require.ErrorIs(t, err, money.ErrInvalidOperation)
}

func TestPercentBpsRoundsHalfUp(t *testing.T) {
	// 10.05 of 5 bps = 0.005025 -> rounds to 1 minor unit.
	m := money.FromMinor(1005)
	part, err := m.PercentBps(50) // 0.5%
	if err != nil {
		t.Fatalf("percent: %v", err)
	}
	if part.Minor() != 5 {
		t.Fatalf("expected 5, got %d", part.Minor())
	}

	// 125 * 10% = 12.5 -> rounds up to 13.
	part, err = money.FromMinor(125).PercentBps(1000)
	if err != nil {
		t.Fatalf("percent: %v", err)
	}
	if part.Minor() != 13 {
		t.Fatalf("expected 13, got %d", part.Minor())
	}
}

func TestZeroPercentIsIdentity(t *testing.T) {
	m := money.FromMinor(123457)
	up, err := m.AddPercentBps(0)
	require.NoError(t, err)
	require.True(t, up.Equal(m))
	down, err := m.SubPercentBps(0)
	require.NoError(t, err)
	require.True(t, down.Equal(m))
}

func TestAddSubOverflow(t *testing.T) {
	huge := money.FromMinor(math.MaxInt64)
	_, err := huge.Add(money.FromMinor(1))
	require.ErrorIs(t, err, money.ErrOverflow)

	low := money.FromMinor(math.MinInt64)
	_, err = low.Sub(money.FromMinor(1))
	require.ErrorIs(t, err, money.ErrOverflow)
}

func TestMulIntOverflow(t *testing.T) {
	_, err := money.FromMinor(math.MaxInt64 / 2).MulInt(3)
	require.ErrorIs(t, err, money.ErrOverflow)
}

func TestMulDecimal(t *testing.T) {
	m := money.FromMinor(10000) // 100.00
	scaled, err := m.MulDecimal(decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	require.Equal(t, int64(25000), scaled.Minor())

	// Exactly one rounding: 33.33 * 1.5 = 49.995 -> 50.00
	scaled, err = money.FromMinor(3333).MulDecimal(decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	require.Equal(t, int64(5000), scaled.Minor())
}

func TestDivIntRejectsNonPositive(t *testing.T) {
	_, err := money.FromMinor(100).DivInt(0)
	require.ErrorIs(t, err, money.ErrInvalidOperation)
}

func TestCompareAndSigns(t *testing.T) {
	a := money.FromMinor(100)
	b := money.FromMinor(200)
	require.Equal(t, -1, a.Cmp(b))
	require.Equal(t, 1, b.Cmp(a))
	require.Equal(t, 0, a.Cmp(money.FromMinor(100)))
	require.True(t, money.Zero().IsZero())
	require.True(t, a.IsPositive())
	neg, err := a.Neg()
	require.NoError(t, err)
	require.True(t, neg.IsNegative())
	require.Equal(t, "-1.00", neg.String())
}

func TestMulIntMinValueByMinusOneOverflows(t *testing.T) {
	min := money.FromMinor(math.MinInt64)
	_, err := min.MulInt(-1)
	require.ErrorIs(t, err, money.ErrOverflow)

	_, err = money.FromMinor(-1).MulInt(math.MinInt64)
	require.ErrorIs(t, err, money.ErrOverflow)
}

func TestStringAtBounds(t *testing.T) {
	require.Equal(t, "-92233720368547758.08", money.FromMinor(math.MinInt64).String())
	require.Equal(t, "92233720368547758.07", money.FromMinor(math.MaxInt64).String())
}
