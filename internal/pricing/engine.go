package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/discount"
	"github.com/walldriyan/financial-engine-single/internal/money"
	"github.com/walldriyan/financial-engine-single/internal/rule"
	"github.com/walldriyan/financial-engine-single/internal/tax"
)

// ErrConfigurationNotFound is returned by the strict lookup helpers when
// a product has no registered config. Plain calculation treats an absent
// config as "no rules", not as an error.
var ErrConfigurationNotFound = errors.New("configuration not found")

// ErrUnknownOrder is returned by ParseOrder for an unrecognized name.
var ErrUnknownOrder = errors.New("unknown calculation order")

// Order controls how discounts and taxes combine on an item.
type Order int

const (
	// DiscountFirst subtracts the discount from the base and taxes the
	// reduced amount.
	DiscountFirst Order = iota
	// TaxFirst taxes the base and computes the discount on the gross
	// (post-tax) amount.
	TaxFirst
	// Parallel computes both on the base independently.
	Parallel
)

func (o Order) String() string {
	switch o {
	case DiscountFirst:
		return "discount_first"
	case TaxFirst:
		return "tax_first"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// ParseOrder maps a config string to an Order.
func ParseOrder(s string) (Order, error) {
	switch s {
	case "discount_first":
		return DiscountFirst, nil
	case "tax_first":
		return TaxFirst, nil
	case "parallel":
		return Parallel, nil
	default:
		return DiscountFirst, fmt.Errorf("%w: %q", ErrUnknownOrder, s)
	}
}

// Context carries the per-request inputs that rules and conditions may
// read. Now is the injected reference time; the engine never consults
// the system clock.
type Context struct {
	PromoCodes    []string
	Jurisdiction  string
	CustomerGroup string
	FirstPurchase bool
	Now           time.Time
	Cart          *cart.Cart
}

// ItemResult is the per-item calculation breakdown.
type ItemResult struct {
	ProductID     string
	Base          money.Money
	Discount      money.Money
	Tax           money.Money
	Total         money.Money
	DiscountLines []discount.Line
	TaxLines      []tax.Line
}

// CartResult aggregates item results with the outcome of global rules.
type CartResult struct {
	Items         []ItemResult
	Subtotal      money.Money
	TotalDiscount money.Money
	TotalTax      money.Money
	TotalFees     money.Money
	GrandTotal    money.Money
	Actions       []rule.Action
}

// Engine orchestrates tax and discount calculation for items and carts
// under a configurable calculation order. Register everything during
// setup; Calculate* methods only read, so a configured engine is safe
// for concurrent use.
type Engine struct {
	order           Order
	taxes           *tax.Engine
	discounts       *discount.Engine
	global          *rule.Processor
	globalStackable bool

	taxConfigs      map[string]tax.Config
	discountConfigs map[string]discount.Config
}

// NewEngine returns an engine with no rates or rules, defaulting to
// discount-first ordering and stackable global rule processing.
func NewEngine() *Engine {
	return &Engine{
		order:           DiscountFirst,
		taxes:           tax.NewEngine(),
		discounts:       discount.NewEngine(),
		global:          rule.NewProcessor(),
		globalStackable: true,
		taxConfigs:      make(map[string]tax.Config),
		discountConfigs: make(map[string]discount.Config),
	}
}

// SetOrder selects the calculation order for subsequent calculations.
func (e *Engine) SetOrder(o Order) {
	e.order = o
}

// Order reports the engine's current calculation order.
func (e *Engine) Order() Order {
	return e.order
}

// AddGlobalTax registers a tax rate that applies to every product,
// subject to the rate's own scope and jurisdiction.
func (e *Engine) AddGlobalTax(r tax.Rate) {
	e.taxes.AddGlobalRate(r)
}

// AddProductTax registers (or replaces) a product's tax config.
func (e *Engine) AddProductTax(cfg tax.Config) {
	e.taxConfigs[cfg.ProductID] = cfg
	e.taxes.AddProductConfig(cfg)
}

// AddProductDiscount registers (or replaces) a product's discount config.
func (e *Engine) AddProductDiscount(cfg discount.Config) {
	e.discountConfigs[cfg.ProductID] = cfg
	e.discounts.AddConfig(cfg)
}

// AddGlobalRule registers a cart-level rule. Rules keep registration
// order among equal priorities.
func (e *Engine) AddGlobalRule(r rule.Rule) {
	e.global.Register(r)
}

// SetGlobalStackable controls whether cart-level rule processing stops
// after the first applicable rule.
func (e *Engine) SetGlobalStackable(stackable bool) {
	e.globalStackable = stackable
}

// ProductTaxConfig is the strict lookup of a product's tax config.
func (e *Engine) ProductTaxConfig(productID string) (tax.Config, error) {
	cfg, ok := e.taxConfigs[productID]
	if !ok {
		return tax.Config{}, fmt.Errorf("tax config for product %q: %w", productID, ErrConfigurationNotFound)
	}
	return cfg, nil
}

// ProductDiscountConfig is the strict lookup of a product's discount
// config.
func (e *Engine) ProductDiscountConfig(productID string) (discount.Config, error) {
	cfg, ok := e.discountConfigs[productID]
	if !ok {
		return discount.Config{}, fmt.Errorf("discount config for product %q: %w", productID, ErrConfigurationNotFound)
	}
	return cfg, nil
}

// CalculateItem computes the discount, tax and total of a single item
// under the engine's calculation order. Identical inputs yield identical
// results; any evaluation failure aborts the calculation.
func (e *Engine) CalculateItem(item cart.Item, ctx Context) (ItemResult, error) {
	base, err := item.Total()
	if err != nil {
		return ItemResult{}, fmt.Errorf("item %q base: %w", item.ProductID, err)
	}

	res := ItemResult{ProductID: item.ProductID, Base: base}

	switch e.order {
	case DiscountFirst:
		disc, err := e.discountOn(item, base, ctx)
		if err != nil {
			return ItemResult{}, err
		}
		taxable, err := base.Sub(disc.Total)
		if err != nil {
			return ItemResult{}, fmt.Errorf("item %q taxable: %w", item.ProductID, err)
		}
		tx, err := e.taxOn(item, taxable, ctx)
		if err != nil {
			return ItemResult{}, err
		}
		total, err := taxable.Add(tx.Total)
		if err != nil {
			return ItemResult{}, fmt.Errorf("item %q total: %w", item.ProductID, err)
		}
		res.Discount, res.DiscountLines = disc.Total, disc.Lines
		res.Tax, res.TaxLines = tx.Total, tx.Lines
		res.Total = total

	case TaxFirst:
		tx, err := e.taxOn(item, base, ctx)
		if err != nil {
			return ItemResult{}, err
		}
		gross, err := base.Add(tx.Total)
		if err != nil {
			return ItemResult{}, fmt.Errorf("item %q gross: %w", item.ProductID, err)
		}
		disc, err := e.discountOn(item, gross, ctx)
		if err != nil {
			return ItemResult{}, err
		}
		total, err := gross.Sub(disc.Total)
		if err != nil {
			return ItemResult{}, fmt.Errorf("item %q total: %w", item.ProductID, err)
		}
		res.Discount, res.DiscountLines = disc.Total, disc.Lines
		res.Tax, res.TaxLines = tx.Total, tx.Lines
		res.Total = total

	case Parallel:
		disc, err := e.discountOn(item, base, ctx)
		if err != nil {
			return ItemResult{}, err
		}
		tx, err := e.taxOn(item, base, ctx)
		if err != nil {
			return ItemResult{}, err
		}
		net, err := base.Sub(disc.Total)
		if err != nil {
			return ItemResult{}, fmt.Errorf("item %q net: %w", item.ProductID, err)
		}
		total, err := net.Add(tx.Total)
		if err != nil {
			return ItemResult{}, fmt.Errorf("item %q total: %w", item.ProductID, err)
		}
		res.Discount, res.DiscountLines = disc.Total, disc.Lines
		res.Tax, res.TaxLines = tx.Total, tx.Lines
		res.Total = total
	}

	return res, nil
}

// CalculateCart runs every item through CalculateItem and then processes
// the global cart-level rules. Fees increase the grand total; free-item
// actions are reported in Actions but never totaled. A failed item or
// rule evaluation fails the whole calculation.
func (e *Engine) CalculateCart(c *cart.Cart, ctx Context) (CartResult, error) {
	if ctx.Cart == nil {
		ctx.Cart = c
	}

	result := CartResult{
		Subtotal:      money.Zero(),
		TotalDiscount: money.Zero(),
		TotalTax:      money.Zero(),
		TotalFees:     money.Zero(),
		GrandTotal:    money.Zero(),
	}

	for _, item := range c.Items {
		ir, err := e.CalculateItem(item, ctx)
		if err != nil {
			return CartResult{}, err
		}
		result.Items = append(result.Items, ir)

		if result.Subtotal, err = result.Subtotal.Add(ir.Base); err != nil {
			return CartResult{}, fmt.Errorf("cart subtotal: %w", err)
		}
		if result.TotalDiscount, err = result.TotalDiscount.Add(ir.Discount); err != nil {
			return CartResult{}, fmt.Errorf("cart discount total: %w", err)
		}
		if result.TotalTax, err = result.TotalTax.Add(ir.Tax); err != nil {
			return CartResult{}, fmt.Errorf("cart tax total: %w", err)
		}
		if result.GrandTotal, err = result.GrandTotal.Add(ir.Total); err != nil {
			return CartResult{}, fmt.Errorf("cart grand total: %w", err)
		}
	}

	actions, err := e.global.Process(c, e.globalStackable)
	if err != nil {
		return CartResult{}, fmt.Errorf("global rules: %w", err)
	}
	result.Actions = actions

	for _, a := range actions {
		switch a.Kind {
		case rule.ActionDiscount:
			if result.TotalDiscount, err = result.TotalDiscount.Add(a.Amount); err != nil {
				return CartResult{}, fmt.Errorf("rule %q discount: %w", a.RuleName, err)
			}
			if result.GrandTotal, err = result.GrandTotal.Sub(a.Amount); err != nil {
				return CartResult{}, fmt.Errorf("rule %q discount: %w", a.RuleName, err)
			}
		case rule.ActionTax:
			if result.TotalTax, err = result.TotalTax.Add(a.Amount); err != nil {
				return CartResult{}, fmt.Errorf("rule %q tax: %w", a.RuleName, err)
			}
			if result.GrandTotal, err = result.GrandTotal.Add(a.Amount); err != nil {
				return CartResult{}, fmt.Errorf("rule %q tax: %w", a.RuleName, err)
			}
		case rule.ActionFee:
			if result.TotalFees, err = result.TotalFees.Add(a.Amount); err != nil {
				return CartResult{}, fmt.Errorf("rule %q fee: %w", a.RuleName, err)
			}
			if result.GrandTotal, err = result.GrandTotal.Add(a.Amount); err != nil {
				return CartResult{}, fmt.Errorf("rule %q fee: %w", a.RuleName, err)
			}
		case rule.ActionFreeItem:
			// Reported only.
		}
	}

	return result, nil
}

func (e *Engine) discountOn(item cart.Item, base money.Money, ctx Context) (discount.Result, error) {
	res, err := e.discounts.Calculate(discount.Input{
		ProductID:     item.ProductID,
		UnitPrice:     item.UnitPrice,
		Base:          base,
		Quantity:      item.Quantity,
		PromoCodes:    ctx.PromoCodes,
		CustomerGroup: ctx.CustomerGroup,
		FirstPurchase: ctx.FirstPurchase,
		Now:           ctx.Now,
		Cart:          ctx.Cart,
	})
	if err != nil {
		return discount.Result{}, fmt.Errorf("item %q discount: %w", item.ProductID, err)
	}
	return res, nil
}

func (e *Engine) taxOn(item cart.Item, base money.Money, ctx Context) (tax.Result, error) {
	res, err := e.taxes.Calculate(tax.Input{
		ProductID:    item.ProductID,
		Category:     item.Category,
		Base:         base,
		Jurisdiction: ctx.Jurisdiction,
	})
	if err != nil {
		return tax.Result{}, fmt.Errorf("item %q tax: %w", item.ProductID, err)
	}
	return res, nil
}
