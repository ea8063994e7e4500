package rule

import (
	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/money"
)

// BuyNGetFree discounts the free units of every complete buy+free group
// of the target product. The cart quantity is expected to already include
// the free units, matching how a POS would scan them.
type BuyNGetFree struct {
	RuleName string
	Target   string
	BuyQty   decimal.Decimal
	FreeQty  decimal.Decimal
	Prio     int
}

// Name implements Rule.
func (r BuyNGetFree) Name() string { return r.RuleName }

// Priority implements Rule.
func (r BuyNGetFree) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r BuyNGetFree) CanApply(c *cart.Cart) bool {
	if !r.BuyQty.IsPositive() || !r.FreeQty.IsPositive() {
		return false
	}
	return c.QuantityOf(r.Target).Cmp(r.BuyQty) >= 0
}

// Apply implements Rule.
func (r BuyNGetFree) Apply(c *cart.Cart) ([]Action, error) {
	groupSize := r.BuyQty.Add(r.FreeQty)
	var actions []Action
	for _, item := range c.Items {
		if item.ProductID != r.Target {
			continue
		}
		groups := item.Quantity.Div(groupSize).Floor()
		if !groups.IsPositive() {
			continue
		}
		freeUnits := groups.Mul(r.FreeQty)
		amount, err := item.UnitPrice.MulDecimal(freeUnits)
		if err != nil {
			return nil, err
		}
		actions = append(actions, Action{Kind: ActionDiscount, Amount: amount})
	}
	return actions, nil
}

// PriceThresholdFixed grants a fixed per-unit discount on a product whose
// unit price exceeds the threshold.
type PriceThresholdFixed struct {
	RuleName  string
	Target    string
	Threshold money.Money
	Discount  money.Money
	Prio      int
}

// Name implements Rule.
func (r PriceThresholdFixed) Name() string { return r.RuleName }

// Priority implements Rule.
func (r PriceThresholdFixed) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r PriceThresholdFixed) CanApply(c *cart.Cart) bool {
	for _, item := range c.Items {
		if item.ProductID == r.Target && item.UnitPrice.Cmp(r.Threshold) > 0 {
			return true
		}
	}
	return false
}

// Apply implements Rule.
func (r PriceThresholdFixed) Apply(c *cart.Cart) ([]Action, error) {
	var actions []Action
	for _, item := range c.Items {
		if item.ProductID != r.Target || item.UnitPrice.Cmp(r.Threshold) <= 0 {
			continue
		}
		amount, err := r.Discount.MulDecimal(item.Quantity)
		if err != nil {
			return nil, err
		}
		actions = append(actions, Action{Kind: ActionDiscount, Amount: amount})
	}
	return actions, nil
}

// QtyThresholdPercent grants a percentage off an item's total once its
// quantity exceeds the threshold.
type QtyThresholdPercent struct {
	RuleName  string
	Target    string
	Threshold decimal.Decimal
	Bps       int64
	Prio      int
}

// Name implements Rule.
func (r QtyThresholdPercent) Name() string { return r.RuleName }

// Priority implements Rule.
func (r QtyThresholdPercent) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r QtyThresholdPercent) CanApply(c *cart.Cart) bool {
	for _, item := range c.Items {
		if item.ProductID == r.Target && item.Quantity.Cmp(r.Threshold) > 0 {
			return true
		}
	}
	return false
}

// Apply implements Rule.
func (r QtyThresholdPercent) Apply(c *cart.Cart) ([]Action, error) {
	var actions []Action
	for _, item := range c.Items {
		if item.ProductID != r.Target || item.Quantity.Cmp(r.Threshold) <= 0 {
			continue
		}
		total, err := item.Total()
		if err != nil {
			return nil, err
		}
		amount, err := total.PercentBps(r.Bps)
		if err != nil {
			return nil, err
		}
		actions = append(actions, Action{Kind: ActionDiscount, Amount: amount})
	}
	return actions, nil
}

// CartQtyThreshold grants a flat bill-level discount once the summed
// quantity of the whole cart exceeds the threshold.
type CartQtyThreshold struct {
	RuleName  string
	Threshold decimal.Decimal
	Discount  money.Money
	Prio      int
}

// Name implements Rule.
func (r CartQtyThreshold) Name() string { return r.RuleName }

// Priority implements Rule.
func (r CartQtyThreshold) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r CartQtyThreshold) CanApply(c *cart.Cart) bool {
	return c.TotalQuantity().Cmp(r.Threshold) > 0
}

// Apply implements Rule.
func (r CartQtyThreshold) Apply(*cart.Cart) ([]Action, error) {
	return []Action{{Kind: ActionDiscount, Amount: r.Discount}}, nil
}

// CartAmountThreshold grants a percentage off the subtotal once the
// subtotal exceeds the threshold.
type CartAmountThreshold struct {
	RuleName  string
	Threshold money.Money
	Bps       int64
	Prio      int
}

// Name implements Rule.
func (r CartAmountThreshold) Name() string { return r.RuleName }

// Priority implements Rule.
func (r CartAmountThreshold) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r CartAmountThreshold) CanApply(c *cart.Cart) bool {
	subtotal, err := c.Subtotal()
	if err != nil {
		return false
	}
	return subtotal.Cmp(r.Threshold) > 0
}

// Apply implements Rule.
func (r CartAmountThreshold) Apply(c *cart.Cart) ([]Action, error) {
	subtotal, err := c.Subtotal()
	if err != nil {
		return nil, err
	}
	amount, err := subtotal.PercentBps(r.Bps)
	if err != nil {
		return nil, err
	}
	return []Action{{Kind: ActionDiscount, Amount: amount}}, nil
}

// LoyaltyPercent grants a subtotal percentage to carts of a customer group.
type LoyaltyPercent struct {
	RuleName string
	Group    string
	Bps      int64
	Prio     int
}

// Name implements Rule.
func (r LoyaltyPercent) Name() string { return r.RuleName }

// Priority implements Rule.
func (r LoyaltyPercent) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r LoyaltyPercent) CanApply(c *cart.Cart) bool {
	return r.Group != "" && c.CustomerGroup == r.Group
}

// Apply implements Rule.
func (r LoyaltyPercent) Apply(c *cart.Cart) ([]Action, error) {
	subtotal, err := c.Subtotal()
	if err != nil {
		return nil, err
	}
	amount, err := subtotal.PercentBps(r.Bps)
	if err != nil {
		return nil, err
	}
	return []Action{{Kind: ActionDiscount, Amount: amount}}, nil
}

// PercentTax emits a subtotal-based tax action.
type PercentTax struct {
	RuleName string
	Bps      int64
	Prio     int
}

// Name implements Rule.
func (r PercentTax) Name() string { return r.RuleName }

// Priority implements Rule.
func (r PercentTax) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r PercentTax) CanApply(*cart.Cart) bool { return true }

// Apply implements Rule.
func (r PercentTax) Apply(c *cart.Cart) ([]Action, error) {
	subtotal, err := c.Subtotal()
	if err != nil {
		return nil, err
	}
	amount, err := subtotal.PercentBps(r.Bps)
	if err != nil {
		return nil, err
	}
	return []Action{{Kind: ActionTax, Amount: amount}}, nil
}

// FixedFee emits a flat fee action (e.g. a service charge).
type FixedFee struct {
	RuleName string
	Amount   money.Money
	Prio     int
}

// Name implements Rule.
func (r FixedFee) Name() string { return r.RuleName }

// Priority implements Rule.
func (r FixedFee) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r FixedFee) CanApply(*cart.Cart) bool { return true }

// Apply implements Rule.
func (r FixedFee) Apply(*cart.Cart) ([]Action, error) {
	return []Action{{Kind: ActionFee, Amount: r.Amount}}, nil
}

// GiftWithPurchase grants free units of a product once the subtotal
// reaches the threshold.
type GiftWithPurchase struct {
	RuleName  string
	Threshold money.Money
	ProductID string
	Qty       decimal.Decimal
	Prio      int
}

// Name implements Rule.
func (r GiftWithPurchase) Name() string { return r.RuleName }

// Priority implements Rule.
func (r GiftWithPurchase) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r GiftWithPurchase) CanApply(c *cart.Cart) bool {
	subtotal, err := c.Subtotal()
	if err != nil {
		return false
	}
	return subtotal.Cmp(r.Threshold) >= 0
}

// Apply implements Rule.
func (r GiftWithPurchase) Apply(*cart.Cart) ([]Action, error) {
	return []Action{{Kind: ActionFreeItem, ProductID: r.ProductID, Quantity: r.Qty}}, nil
}

// Func adapts a condition and a closure into a Rule for custom shapes.
type Func struct {
	RuleName string
	Cond     Condition
	Fn       func(c *cart.Cart) ([]Action, error)
	Prio     int
}

// Name implements Rule.
func (r Func) Name() string { return r.RuleName }

// Priority implements Rule.
func (r Func) Priority() int { return r.Prio }

// CanApply implements Rule.
func (r Func) CanApply(c *cart.Cart) bool {
	if r.Fn == nil {
		return false
	}
	if r.Cond == nil {
		return true
	}
	return r.Cond.Evaluate(c)
}

// Apply implements Rule.
func (r Func) Apply(c *cart.Cart) ([]Action, error) {
	return r.Fn(c)
}
