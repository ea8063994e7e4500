// Package proration computes day-based billing proration for mid-cycle
// plan changes. All functions are pure; reference times are passed in,
// never read from a clock.
package proration

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/money"
)

// ErrInvalidPeriod is returned for inverted cycle bounds or a change
// date outside the cycle.
var ErrInvalidPeriod = errors.New("invalid billing period")

// Proration is the day-based split of one plan price at a change date.
// Unused plus Used always equals the plan price.
type Proration struct {
	DaysTotal     int
	DaysRemaining int
	Unused        money.Money
	Used          money.Money
}

// PlanChange is the outcome of switching plans mid-cycle: the credit
// for the unused old plan, the charge for the remaining new plan, and
// the net amount (negative means a credit to the customer).
type PlanChange struct {
	Credit money.Money
	Charge money.Money
	Net    money.Money
}

// Prorate splits a plan price for one billing cycle at the change date.
// The unused portion is price scaled by remaining days over total days,
// rounded half up; the used portion is the exact remainder so the two
// always sum to the price.
func Prorate(price money.Money, periodStart, periodEnd, changeAt time.Time) (Proration, error) {
	if !periodEnd.After(periodStart) {
		return Proration{}, fmt.Errorf("cycle end %s not after start %s: %w",
			periodEnd.Format(time.RFC3339), periodStart.Format(time.RFC3339), ErrInvalidPeriod)
	}
	if changeAt.Before(periodStart) || changeAt.After(periodEnd) {
		return Proration{}, fmt.Errorf("change date %s outside cycle: %w",
			changeAt.Format(time.RFC3339), ErrInvalidPeriod)
	}

	daysTotal := daysBetween(periodStart, periodEnd)
	daysRemaining := daysBetween(changeAt, periodEnd)
	if daysTotal <= 0 {
		return Proration{}, fmt.Errorf("zero-day cycle: %w", ErrInvalidPeriod)
	}

	factor := decimal.NewFromInt(int64(daysRemaining)).Div(decimal.NewFromInt(int64(daysTotal)))
	unused, err := price.MulDecimal(factor)
	if err != nil {
		return Proration{}, fmt.Errorf("prorate unused portion: %w", err)
	}
	used, err := price.Sub(unused)
	if err != nil {
		return Proration{}, fmt.Errorf("prorate used portion: %w", err)
	}

	return Proration{
		DaysTotal:     daysTotal,
		DaysRemaining: daysRemaining,
		Unused:        unused,
		Used:          used,
	}, nil
}

// Change computes the mid-cycle switch from one plan price to another:
// credit the unused old plan, charge the same fraction of the new plan.
func Change(oldPrice, newPrice money.Money, periodStart, periodEnd, changeAt time.Time) (PlanChange, error) {
	oldPart, err := Prorate(oldPrice, periodStart, periodEnd, changeAt)
	if err != nil {
		return PlanChange{}, err
	}
	newPart, err := Prorate(newPrice, periodStart, periodEnd, changeAt)
	if err != nil {
		return PlanChange{}, err
	}
	net, err := newPart.Unused.Sub(oldPart.Unused)
	if err != nil {
		return PlanChange{}, fmt.Errorf("plan change net: %w", err)
	}
	return PlanChange{
		Credit: oldPart.Unused,
		Charge: newPart.Unused,
		Net:    net,
	}, nil
}

// daysBetween counts whole days from a to b, truncating partial days.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}
