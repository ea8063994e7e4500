package proration_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/walldriyan/financial-engine-single/internal/money"
	"github.com/walldriyan/financial-engine-single/internal/proration"
)

func day(d int) time.Time {
	return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC)
}

func TestProrateMidCycle(t *testing.T) {
	// 30-day cycle, change after 10 days: 20/30 unused.
	res, err := proration.Prorate(money.FromMinor(3000), day(1), time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), day(11))
	require.NoError(t, err)
	require.Equal(t, 30, res.DaysTotal)
	require.Equal(t, 20, res.DaysRemaining)
	require.Equal(t, int64(2000), res.Unused.Minor())
	require.Equal(t, int64(1000), res.Used.Minor())
}

func TestProratePartsSumToPrice(t *testing.T) {
	// 9999 over a 31-day cycle does not divide evenly.
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	for d := 1; d <= 30; d++ {
		res, err := proration.Prorate(money.FromMinor(9999), day(1), end, day(d))
		require.NoError(t, err)
		sum, err := res.Unused.Add(res.Used)
		require.NoError(t, err)
		require.Equal(t, int64(9999), sum.Minor())
	}
}

func TestProrateAtBounds(t *testing.T) {
	end := day(30)

	res, err := proration.Prorate(money.FromMinor(2900), day(1), end, day(1))
	require.NoError(t, err)
	require.Equal(t, int64(2900), res.Unused.Minor())
	require.True(t, res.Used.IsZero())

	res, err = proration.Prorate(money.FromMinor(2900), day(1), end, end)
	require.NoError(t, err)
	require.True(t, res.Unused.IsZero())
	require.Equal(t, int64(2900), res.Used.Minor())
}

func TestProrateRejectsInvalidPeriods(t *testing.T) {
	_, err := proration.Prorate(money.FromMinor(1000), day(30), day(1), day(5))
	require.ErrorIs(t, err, proration.ErrInvalidPeriod)

	_, err = proration.Prorate(money.FromMinor(1000), day(10), day(20), day(5))
	require.ErrorIs(t, err, proration.ErrInvalidPeriod)

	_, err = proration.Prorate(money.FromMinor(1000), day(10), day(20), day(25))
	require.ErrorIs(t, err, proration.ErrInvalidPeriod)
}

func TestPlanChangeNet(t *testing.T) {
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	// Upgrade from 3000 to 6000 with 20 of 30 days remaining:
	// credit 2000, charge 4000, net 2000 due.
	change, err := proration.Change(money.FromMinor(3000), money.FromMinor(6000), day(1), end, day(11))
	require.NoError(t, err)
	require.Equal(t, int64(2000), change.Credit.Minor())
	require.Equal(t, int64(4000), change.Charge.Minor())
	require.Equal(t, int64(2000), change.Net.Minor())

	// Downgrade nets a credit.
	change, err = proration.Change(money.FromMinor(6000), money.FromMinor(3000), day(1), end, day(11))
	require.NoError(t, err)
	require.Equal(t, int64(-2000), change.Net.Minor())
}
