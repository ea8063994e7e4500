package refund_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/discount"
	"github.com/walldriyan/financial-engine-single/internal/money"
	"github.com/walldriyan/financial-engine-single/internal/pricing"
	"github.com/walldriyan/financial-engine-single/internal/refund"
	"github.com/walldriyan/financial-engine-single/internal/tax"
)

var refundNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func chargedCart(t *testing.T) (*cart.Cart, pricing.CartResult) {
	t.Helper()
	e := pricing.NewEngine()
	e.AddGlobalTax(tax.Rate{Name: "vat", Bps: 1000, AppliesTo: tax.All()})
	e.AddProductDiscount(discount.Config{
		ProductID: "laptop",
		Stackable: true,
		Rules: []discount.Rule{
			{ID: "promo", Name: "promo", Type: discount.Percent(500), Stackable: true},
		},
	})

	c := cart.New()
	c.AddItem(cart.NewItem("laptop", "laptop", money.FromMinor(100000), decimal.NewFromInt(2)))
	c.AddItem(cart.NewItem("mouse", "mouse", money.FromMinor(2500), decimal.NewFromInt(1)))

	calc, err := e.CalculateCart(c, pricing.Context{Now: refundNow})
	require.NoError(t, err)
	return c, calc
}

func TestRefundProportionalToPaidTotal(t *testing.T) {
	c, calc := chargedCart(t)

	// The laptop line paid 209000 for qty 2 (5% discount, 10% tax),
	// so one unit back refunds half of what was paid, not half the
	// list price.
	res, err := refund.Process(c, calc, refund.Request{
		Lines:  []refund.Line{{ProductID: "laptop", Quantity: decimal.NewFromInt(1)}},
		Reason: "damaged unit",
	}, refundNow)
	require.NoError(t, err)
	require.Equal(t, int64(104500), res.Amount.Minor())
	require.Equal(t, refund.Partial, res.Kind)
	require.Equal(t, c.ID, res.CartID)
	require.Len(t, res.Lines, 1)
	require.Equal(t, int64(104500), res.Lines[0].Amount.Minor())
}

func TestRefundFullCart(t *testing.T) {
	c, calc := chargedCart(t)

	res, err := refund.Process(c, calc, refund.Request{
		Lines: []refund.Line{
			{ProductID: "laptop", Quantity: decimal.NewFromInt(2)},
			{ProductID: "mouse", Quantity: decimal.NewFromInt(1)},
		},
	}, refundNow)
	require.NoError(t, err)
	require.Equal(t, refund.Full, res.Kind)
	require.Equal(t, calc.GrandTotal.Minor(), res.Amount.Minor())
}

func TestRefundUnknownProduct(t *testing.T) {
	c, calc := chargedCart(t)

	_, err := refund.Process(c, calc, refund.Request{
		Lines: []refund.Line{{ProductID: "keyboard", Quantity: decimal.NewFromInt(1)}},
	}, refundNow)
	require.ErrorIs(t, err, refund.ErrItemNotFound)
}

func TestRefundQuantityExceedsOriginal(t *testing.T) {
	c, calc := chargedCart(t)

	_, err := refund.Process(c, calc, refund.Request{
		Lines: []refund.Line{{ProductID: "laptop", Quantity: decimal.NewFromInt(3)}},
	}, refundNow)
	require.ErrorIs(t, err, refund.ErrQuantityExceeded)
}

func TestRefundQuantityExceedsAcrossLines(t *testing.T) {
	c, calc := chargedCart(t)

	// Two lines for the same product share one bound.
	_, err := refund.Process(c, calc, refund.Request{
		Lines: []refund.Line{
			{ProductID: "laptop", Quantity: decimal.NewFromInt(1)},
			{ProductID: "laptop", Quantity: decimal.NewFromInt(2)},
		},
	}, refundNow)
	require.ErrorIs(t, err, refund.ErrQuantityExceeded)
}

func TestRefundRejectsNonPositiveQuantity(t *testing.T) {
	c, calc := chargedCart(t)

	_, err := refund.Process(c, calc, refund.Request{
		Lines: []refund.Line{{ProductID: "laptop", Quantity: decimal.Zero}},
	}, refundNow)
	require.ErrorIs(t, err, refund.ErrInvalidQuantity)
}

func TestRefundFractionalQuantityRoundsHalfUp(t *testing.T) {
	e := pricing.NewEngine()
	c := cart.New()
	c.AddItem(cart.NewItem("grain", "grain", money.FromMinor(101), decimal.NewFromInt(3)))
	calc, err := e.CalculateCart(c, pricing.Context{Now: refundNow})
	require.NoError(t, err)

	// 303 paid for qty 3; one unit back is 101 exactly, a third of
	// the paid amount with no drift from the ratio division.
	res, err := refund.Process(c, calc, refund.Request{
		Lines: []refund.Line{{ProductID: "grain", Quantity: decimal.NewFromInt(1)}},
	}, refundNow)
	require.NoError(t, err)
	require.Equal(t, int64(101), res.Amount.Minor())
}

func TestRefundRejectsMismatchedCalculation(t *testing.T) {
	c, _ := chargedCart(t)

	_, err := refund.Process(c, pricing.CartResult{}, refund.Request{
		Lines: []refund.Line{{ProductID: "laptop", Quantity: decimal.NewFromInt(1)}},
	}, refundNow)
	require.Error(t, err)
}
