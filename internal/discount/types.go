package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/money"
)

// Kind enumerates the closed set of discount shapes.
type Kind int

const (
	// KindFixedAmount is a flat reduction in minor units.
	KindFixedAmount Kind = iota
	// KindPercent is a percentage of the base amount.
	KindPercent
	// KindBuyXGetY discounts free units per complete buy group.
	KindBuyXGetY
	// KindTiered selects a percentage from quantity ranges.
	KindTiered
	// KindBundle applies when every listed product is in the cart.
	KindBundle
)

// Tier maps a quantity range onto a discount percentage. A nil MaxQty
// means "and above". Tiers of one rule must not overlap.
type Tier struct {
	MinQty decimal.Decimal
	MaxQty *decimal.Decimal
	Bps    int64
}

// Type is the closed tagged variant describing a discount shape. Only
// the fields of the active Kind are meaningful.
type Type struct {
	Kind        Kind
	Amount      money.Money     // KindFixedAmount
	Bps         int64           // KindPercent, KindBundle
	Buy, Get    decimal.Decimal // KindBuyXGetY
	FreeBps     int64           // KindBuyXGetY
	Tiers       []Tier          // KindTiered
	BundleItems []string        // KindBundle
}

// FixedAmount builds a flat-reduction shape.
func FixedAmount(amount money.Money) Type {
	return Type{Kind: KindFixedAmount, Amount: amount}
}

// Percent builds a percentage shape from basis points.
func Percent(bps int64) Type {
	return Type{Kind: KindPercent, Bps: bps}
}

// BuyXGetY builds a buy-x-get-y shape: for every complete group of buy
// units, get units receive freeBps off their unit price. The per-unit
// free amount is rounded to a minor unit first and then scaled by the
// number of free units, so sub-minor-unit prices discount per unit, not
// per formula.
func BuyXGetY(buy, get decimal.Decimal, freeBps int64) Type {
	return Type{Kind: KindBuyXGetY, Buy: buy, Get: get, FreeBps: freeBps}
}

// Tiered builds a quantity-range shape.
func Tiered(tiers []Tier) Type {
	return Type{Kind: KindTiered, Tiers: tiers}
}

// Bundle builds a cross-item shape that requires every listed product
// to be present in the cart.
func Bundle(items []string, bps int64) Type {
	return Type{Kind: KindBundle, BundleItems: items, Bps: bps}
}

// CondKind enumerates the closed set of eligibility predicates.
type CondKind int

const (
	// CondMinQuantity requires at least a given item quantity.
	CondMinQuantity CondKind = iota
	// CondMinAmount requires at least a given base amount.
	CondMinAmount
	// CondCustomerGroup requires an exact customer group match.
	CondCustomerGroup
	// CondDateRange requires the reference time inside [From, To].
	CondDateRange
	// CondFirstPurchase requires a first-time buyer.
	CondFirstPurchase
	// CondPromoCode requires the code among the active promo codes.
	CondPromoCode
	// CondCartContains requires another product in the cart.
	CondCartContains
)

// Condition is one eligibility predicate of a rule. All conditions of a
// rule are ANDed together.
type Condition struct {
	Kind      CondKind
	Qty       decimal.Decimal
	Amount    money.Money
	Group     string
	From, To  time.Time
	Code      string
	ProductID string
}

// MinQuantity requires the item quantity to reach qty.
func MinQuantity(qty decimal.Decimal) Condition {
	return Condition{Kind: CondMinQuantity, Qty: qty}
}

// MinAmount requires the base amount to reach amount.
func MinAmount(amount money.Money) Condition {
	return Condition{Kind: CondMinAmount, Amount: amount}
}

// CustomerGroup requires the calculation's customer group to equal group.
func CustomerGroup(group string) Condition {
	return Condition{Kind: CondCustomerGroup, Group: group}
}

// DateRange requires the injected reference time to fall within [from, to].
func DateRange(from, to time.Time) Condition {
	return Condition{Kind: CondDateRange, From: from, To: to}
}

// FirstPurchase requires a first-time buyer.
func FirstPurchase() Condition {
	return Condition{Kind: CondFirstPurchase}
}

// PromoCode requires code among the active promo codes.
func PromoCode(code string) Condition {
	return Condition{Kind: CondPromoCode, Code: code}
}

// CartContains requires another product to be present in the cart.
func CartContains(productID string) Condition {
	return Condition{Kind: CondCartContains, ProductID: productID}
}

// Rule is one discount rule of a product config. Higher priority rules
// are evaluated first; ties keep registration order.
type Rule struct {
	ID         string
	Name       string
	Type       Type
	Priority   int
	Conditions []Condition
	Stackable  bool
}

// Config is the registered discount configuration of a product.
type Config struct {
	ProductID      string
	Rules          []Rule
	Stackable      bool
	MaxDiscountBps *int64
}

// Line is the per-rule breakdown entry of a calculation.
type Line struct {
	RuleID string
	Name   string
	Amount money.Money
}

// Result is the computed discount for one base amount.
type Result struct {
	Total money.Money
	Lines []Line
}
