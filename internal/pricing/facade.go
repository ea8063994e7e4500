package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/discount"
	"github.com/walldriyan/financial-engine-single/internal/money"
	"github.com/walldriyan/financial-engine-single/internal/rule"
	"github.com/walldriyan/financial-engine-single/internal/tax"
)

// Facade bundles a cart with an engine behind a chainable setup API for
// callers that build a calculation in one place.
type Facade struct {
	cart   *cart.Cart
	engine *Engine
}

// NewFacade returns a facade with an empty cart and a fresh engine.
func NewFacade() *Facade {
	return &Facade{cart: cart.New(), engine: NewEngine()}
}

// AddItem appends an item to the cart. The name doubles as the product
// id for rule and config matching.
func (f *Facade) AddItem(name string, price money.Money, qty decimal.Decimal) *Facade {
	f.cart.AddItem(cart.NewItem(name, name, price, qty))
	return f
}

// AddRule registers a cart-level rule.
func (f *Facade) AddRule(r rule.Rule) *Facade {
	f.engine.AddGlobalRule(r)
	return f
}

// AddGlobalTax registers a tax rate applying to every product.
func (f *Facade) AddGlobalTax(r tax.Rate) *Facade {
	f.engine.AddGlobalTax(r)
	return f
}

// AddProductTax registers a product's tax config.
func (f *Facade) AddProductTax(cfg tax.Config) *Facade {
	f.engine.AddProductTax(cfg)
	return f
}

// AddProductDiscount registers a product's discount config.
func (f *Facade) AddProductDiscount(cfg discount.Config) *Facade {
	f.engine.AddProductDiscount(cfg)
	return f
}

// SetOrder selects the calculation order.
func (f *Facade) SetOrder(o Order) *Facade {
	f.engine.SetOrder(o)
	return f
}

// Cart exposes the underlying cart.
func (f *Facade) Cart() *cart.Cart {
	return f.cart
}

// Engine exposes the underlying engine for direct registration.
func (f *Facade) Engine() *Engine {
	return f.engine
}

// Calculate runs the full cart calculation.
func (f *Facade) Calculate(ctx Context) (CartResult, error) {
	return f.engine.CalculateCart(f.cart, ctx)
}
