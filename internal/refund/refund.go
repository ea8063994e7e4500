// Package refund computes proportional refunds for items from an
// already calculated cart. The refund is derived from what was actually
// paid per line, so discounts and taxes carry through automatically.
// All functions are pure; reference times are passed in, never read
// from a clock.
package refund

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/money"
	"github.com/walldriyan/financial-engine-single/internal/pricing"
)

// ErrItemNotFound is returned when a refund line names a product the
// original cart does not contain.
var ErrItemNotFound = errors.New("item not found in cart")

// ErrQuantityExceeded is returned when a refund line asks for more
// units than the original line held.
var ErrQuantityExceeded = errors.New("refund quantity exceeds original quantity")

// ErrInvalidQuantity is returned for a zero or negative refund quantity.
var ErrInvalidQuantity = errors.New("refund quantity must be positive")

// Kind distinguishes full from partial refunds.
type Kind int

const (
	Partial Kind = iota
	Full
)

func (k Kind) String() string {
	if k == Full {
		return "full"
	}
	return "partial"
}

// Line is one product and quantity to refund.
type Line struct {
	ProductID string
	Quantity  decimal.Decimal
}

// Request describes a refund against a previously calculated cart.
type Request struct {
	Lines  []Line
	Reason string
}

// ResultLine is the refunded amount for one request line.
type ResultLine struct {
	ProductID string
	Quantity  decimal.Decimal
	Amount    money.Money
}

// Result is the outcome of a processed refund.
type Result struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	Timestamp time.Time
	Amount    money.Money
	Kind      Kind
	Lines     []ResultLine
	Reason    string
}

// Process computes the refund for the requested lines. Each line is
// refunded pro rata from the paid total of the matching calculated
// item: paid total x (refund qty / original qty), rounded half up per
// line. The cart and calculation must be the pair the original charge
// was made from; items are matched by product id in cart order.
func Process(c *cart.Cart, calc pricing.CartResult, req Request, now time.Time) (Result, error) {
	if len(calc.Items) != len(c.Items) {
		return Result{}, fmt.Errorf("calculation has %d items for a cart of %d", len(calc.Items), len(c.Items))
	}

	result := Result{
		ID:        uuid.New(),
		CartID:    c.ID,
		Timestamp: now,
		Amount:    money.Zero(),
		Kind:      Partial,
		Reason:    req.Reason,
	}

	refunded := make(map[int]decimal.Decimal, len(req.Lines))
	for _, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			return Result{}, fmt.Errorf("product %q: %w", line.ProductID, ErrInvalidQuantity)
		}

		idx := findItem(c, line.ProductID)
		if idx < 0 {
			return Result{}, fmt.Errorf("product %q: %w", line.ProductID, ErrItemNotFound)
		}
		item := c.Items[idx]

		already := refunded[idx]
		if already.Add(line.Quantity).Cmp(item.Quantity) > 0 {
			return Result{}, fmt.Errorf("product %q: refund %s of %s: %w",
				line.ProductID, already.Add(line.Quantity), item.Quantity, ErrQuantityExceeded)
		}
		refunded[idx] = already.Add(line.Quantity)

		ratio := line.Quantity.Div(item.Quantity)
		amount, err := calc.Items[idx].Total.MulDecimal(ratio)
		if err != nil {
			return Result{}, fmt.Errorf("product %q refund amount: %w", line.ProductID, err)
		}

		result.Lines = append(result.Lines, ResultLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Amount:    amount,
		})
		if result.Amount, err = result.Amount.Add(amount); err != nil {
			return Result{}, fmt.Errorf("refund total: %w", err)
		}
	}

	if coversCart(c, refunded) {
		result.Kind = Full
	}
	return result, nil
}

// findItem returns the index of the first cart line for the product.
// Repeated request lines for the same product accumulate against that
// line and are bounded by its quantity.
func findItem(c *cart.Cart, productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func coversCart(c *cart.Cart, refunded map[int]decimal.Decimal) bool {
	for i, item := range c.Items {
		if refunded[i].Cmp(item.Quantity) != 0 {
			return false
		}
	}
	return len(c.Items) > 0
}
