package rule

import (
	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/money"
)

// Op is a comparison operator used by cart-level conditions.
type Op int

const (
	OpGt Op = iota
	OpGte
	OpLt
	OpLte
	OpEq
)

// Condition is a pure predicate over a cart. Conditions compose with
// And, Or and Not, and back custom Func rules.
type Condition interface {
	Evaluate(c *cart.Cart) bool
}

// Subtotal compares the cart subtotal against a threshold.
type Subtotal struct {
	Op    Op
	Value money.Money
}

// Evaluate implements Condition. A subtotal that fails to compute
// (overflow) evaluates to false rather than panicking; the calculation
// itself will surface the error.
func (s Subtotal) Evaluate(c *cart.Cart) bool {
	subtotal, err := c.Subtotal()
	if err != nil {
		return false
	}
	return compareInt(subtotal.Cmp(s.Value), s.Op)
}

// TotalQuantity compares the summed item quantity against a threshold.
type TotalQuantity struct {
	Op    Op
	Value decimal.Decimal
}

// Evaluate implements Condition.
func (q TotalQuantity) Evaluate(c *cart.Cart) bool {
	return compareInt(c.TotalQuantity().Cmp(q.Value), q.Op)
}

// HasItem holds when the cart carries at least MinQty of a product.
type HasItem struct {
	ProductID string
	MinQty    decimal.Decimal
}

// Evaluate implements Condition.
func (h HasItem) Evaluate(c *cart.Cart) bool {
	return c.QuantityOf(h.ProductID).Cmp(h.MinQty) >= 0
}

// And holds when every child condition holds.
type And []Condition

// Evaluate implements Condition.
func (a And) Evaluate(c *cart.Cart) bool {
	for _, cond := range a {
		if !cond.Evaluate(c) {
			return false
		}
	}
	return true
}

// Or holds when any child condition holds.
type Or []Condition

// Evaluate implements Condition.
func (o Or) Evaluate(c *cart.Cart) bool {
	for _, cond := range o {
		if cond.Evaluate(c) {
			return true
		}
	}
	return false
}

// Not inverts a condition.
type Not struct {
	Cond Condition
}

// Evaluate implements Condition.
func (n Not) Evaluate(c *cart.Cart) bool {
	return !n.Cond.Evaluate(c)
}

// Always holds unconditionally.
type Always struct{}

// Evaluate implements Condition.
func (Always) Evaluate(*cart.Cart) bool { return true }

func compareInt(cmp int, op Op) bool {
	switch op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	case OpEq:
		return cmp == 0
	default:
		return false
	}
}
