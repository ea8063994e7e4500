package pricing_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/discount"
	"github.com/walldriyan/financial-engine-single/internal/money"
	"github.com/walldriyan/financial-engine-single/internal/pricing"
	"github.com/walldriyan/financial-engine-single/internal/rule"
	"github.com/walldriyan/financial-engine-single/internal/tax"
)

// laptopEngine: 10% global tax, 5% discount on "laptop".
func laptopEngine() *pricing.Engine {
	e := pricing.NewEngine()
	e.AddGlobalTax(tax.Rate{Name: "vat", Bps: 1000, AppliesTo: tax.All()})
	e.AddProductDiscount(discount.Config{
		ProductID: "laptop",
		Stackable: true,
		Rules: []discount.Rule{
			{ID: "promo", Name: "promo", Type: discount.Percent(500), Stackable: true},
		},
	})
	return e
}

func laptop() cart.Item {
	return cart.NewItem("laptop", "Laptop", money.FromMinor(100000), decimal.NewFromInt(2))
}

func TestDiscountFirstScenario(t *testing.T) {
	e := laptopEngine()
	e.SetOrder(pricing.DiscountFirst)

	res, err := e.CalculateItem(laptop(), pricing.Context{})
	require.NoError(t, err)

	// Base 200000, 5% discount 10000, 10% tax on 190000 = 19000.
	require.Equal(t, int64(200000), res.Base.Minor())
	require.Equal(t, int64(10000), res.Discount.Minor())
	require.Equal(t, int64(19000), res.Tax.Minor())
	require.Equal(t, int64(209000), res.Total.Minor())
}

func TestOrderSensitivity(t *testing.T) {
	df := laptopEngine()
	df.SetOrder(pricing.DiscountFirst)
	tf := laptopEngine()
	tf.SetOrder(pricing.TaxFirst)
	pl := laptopEngine()
	pl.SetOrder(pricing.Parallel)

	resDF, err := df.CalculateItem(laptop(), pricing.Context{})
	require.NoError(t, err)
	resTF, err := tf.CalculateItem(laptop(), pricing.Context{})
	require.NoError(t, err)
	resPL, err := pl.CalculateItem(laptop(), pricing.Context{})
	require.NoError(t, err)

	// Tax-first computes the discount on the gross amount.
	require.Equal(t, int64(20000), resTF.Tax.Minor())
	require.Equal(t, int64(11000), resTF.Discount.Minor())
	require.NotEqual(t, resDF.Discount.Minor(), resTF.Discount.Minor())

	// Parallel applies both to the base and lands on a different total.
	require.Equal(t, int64(210000), resPL.Total.Minor())
	require.NotEqual(t, resDF.Total.Minor(), resPL.Total.Minor())
}

func TestCalculateItemIsIdempotent(t *testing.T) {
	e := laptopEngine()
	item := laptop()

	first, err := e.CalculateItem(item, pricing.Context{})
	require.NoError(t, err)
	second, err := e.CalculateItem(item, pricing.Context{})
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCalculateCartAggregates(t *testing.T) {
	e := laptopEngine()
	e.AddGlobalRule(rule.FixedFee{RuleName: "service", Amount: money.FromMinor(500)})
	e.AddGlobalRule(rule.GiftWithPurchase{
		RuleName:  "gift",
		Threshold: money.FromMinor(100000),
		ProductID: "sticker",
		Qty:       decimal.NewFromInt(1),
	})

	c := cart.New()
	c.AddItem(laptop())
	c.AddItem(cart.NewItem("mouse", "Mouse", money.FromMinor(2500), decimal.NewFromInt(1)))

	res, err := e.CalculateCart(c, pricing.Context{})
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	require.Equal(t, int64(202500), res.Subtotal.Minor())
	require.Equal(t, int64(10000), res.TotalDiscount.Minor())
	// 19000 on the laptop, 250 on the mouse.
	require.Equal(t, int64(19250), res.TotalTax.Minor())
	require.Equal(t, int64(500), res.TotalFees.Minor())
	// 209000 + 2750 + 500 fee; the free item is reported, not totaled.
	require.Equal(t, int64(212250), res.GrandTotal.Minor())

	require.Len(t, res.Actions, 2)
	var gift *rule.Action
	for i := range res.Actions {
		if res.Actions[i].Kind == rule.ActionFreeItem {
			gift = &res.Actions[i]
		}
	}
	require.NotNil(t, gift)
	require.Equal(t, "sticker", gift.ProductID)
}

func TestCartRuleFailureAbortsCalculation(t *testing.T) {
	boom := errors.New("boom")
	e := laptopEngine()
	e.AddGlobalRule(rule.Func{
		RuleName: "broken",
		Fn: func(*cart.Cart) ([]rule.Action, error) {
			return nil, boom
		},
	})

	c := cart.New()
	c.AddItem(laptop())

	_, err := e.CalculateCart(c, pricing.Context{})
	require.ErrorIs(t, err, boom)
}

func TestItemFailureAbortsCart(t *testing.T) {
	e := pricing.NewEngine()
	e.AddProductDiscount(discount.Config{
		ProductID: "bad",
		Stackable: true,
		Rules: []discount.Rule{
			{ID: "t", Name: "t", Stackable: true, Type: discount.Tiered([]discount.Tier{
				{MinQty: decimal.NewFromInt(1), Bps: 500},
				{MinQty: decimal.NewFromInt(1), Bps: 1000},
			})},
		},
	})

	c := cart.New()
	c.AddItem(cart.NewItem("good", "Good", money.FromMinor(1000), decimal.NewFromInt(1)))
	c.AddItem(cart.NewItem("bad", "Bad", money.FromMinor(1000), decimal.NewFromInt(2)))

	_, err := e.CalculateCart(c, pricing.Context{})
	require.ErrorIs(t, err, discount.ErrMalformedTiers)
}

func TestStrictConfigLookup(t *testing.T) {
	e := laptopEngine()

	_, err := e.ProductDiscountConfig("laptop")
	require.NoError(t, err)

	_, err = e.ProductDiscountConfig("unknown")
	require.ErrorIs(t, err, pricing.ErrConfigurationNotFound)

	_, err = e.ProductTaxConfig("laptop")
	require.ErrorIs(t, err, pricing.ErrConfigurationNotFound)
}

func TestParseOrder(t *testing.T) {
	for name, want := range map[string]pricing.Order{
		"discount_first": pricing.DiscountFirst,
		"tax_first":      pricing.TaxFirst,
		"parallel":       pricing.Parallel,
	} {
		got, err := pricing.ParseOrder(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
		require.Equal(t, name, got.String())
	}

	_, err := pricing.ParseOrder("sideways")
	require.ErrorIs(t, err, pricing.ErrUnknownOrder)
}

func TestFacadeChaining(t *testing.T) {
	f := pricing.NewFacade().
		AddItem("laptop", money.FromMinor(100000), decimal.NewFromInt(2)).
		AddGlobalTax(tax.Rate{Name: "vat", Bps: 1000, AppliesTo: tax.All()}).
		AddProductDiscount(discount.Config{
			ProductID: "laptop",
			Stackable: true,
			Rules: []discount.Rule{
				{ID: "promo", Name: "promo", Type: discount.Percent(500), Stackable: true},
			},
		}).
		SetOrder(pricing.DiscountFirst)

	res, err := f.Calculate(pricing.Context{})
	require.NoError(t, err)
	require.Equal(t, int64(209000), res.GrandTotal.Minor())
}
