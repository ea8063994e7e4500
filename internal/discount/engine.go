package discount

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/money"
)

// ErrConditionEvaluation is returned when a rule condition cannot be
// evaluated, e.g. a date range with inverted bounds or no reference time.
var ErrConditionEvaluation = errors.New("condition evaluation failed")

// ErrMalformedTiers is returned when a tiered shape carries overlapping
// or inverted quantity ranges.
var ErrMalformedTiers = errors.New("malformed tier configuration")

// Input describes one discount calculation request. Now is the injected
// reference time for date conditions; the engine never reads a clock.
// Cart provides cross-item visibility for bundle shapes and
// cart-contains conditions and may be nil for standalone item calls.
type Input struct {
	ProductID     string
	UnitPrice     money.Money
	Base          money.Money
	Quantity      decimal.Decimal
	PromoCodes    []string
	CustomerGroup string
	FirstPurchase bool
	Now           time.Time
	Cart          *cart.Cart
}

// Engine resolves the applicable discount rules for a product and
// applies stacking, priority and capping policy. Registration happens
// during setup; calculations only read.
type Engine struct {
	products map[string]Config
}

// NewEngine returns an engine with no registered configs.
func NewEngine() *Engine {
	return &Engine{products: make(map[string]Config)}
}

// AddConfig registers (or replaces) the discount config of a product.
func (e *Engine) AddConfig(cfg Config) {
	e.products[cfg.ProductID] = cfg
}

// Calculate evaluates the product's rules against the input. A product
// without a registered config simply yields a zero discount. Eligible
// rules run in priority order (ties keep registration order); a
// non-stackable config applies only the single highest-priority eligible
// rule, and inside a stackable config a non-stackable rule blocks later
// non-stackable rules. The summed discount is clamped to the configured
// maximum percentage of the base; the excess is truncated, never
// redistributed across rules.
func (e *Engine) Calculate(in Input) (Result, error) {
	cfg, ok := e.products[in.ProductID]
	if !ok {
		return Result{Total: money.Zero()}, nil
	}

	ordered := make([]Rule, len(cfg.Rules))
	copy(ordered, cfg.Rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	result := Result{Total: money.Zero()}
	appliedNonStackable := false
	appliedAny := false
	for _, r := range ordered {
		if !cfg.Stackable && appliedAny {
			break
		}
		if appliedNonStackable && !r.Stackable {
			continue
		}
		eligible, err := e.eligible(r, in)
		if err != nil {
			return Result{}, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		if !eligible {
			continue
		}
		amount, err := e.amount(r.Type, in)
		if err != nil {
			return Result{}, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		total, err := result.Total.Add(amount)
		if err != nil {
			return Result{}, fmt.Errorf("rule %q: %w", r.Name, err)
		}
		result.Total = total
		result.Lines = append(result.Lines, Line{RuleID: r.ID, Name: r.Name, Amount: amount})
		appliedAny = true
		if !r.Stackable {
			appliedNonStackable = true
		}
	}

	if cfg.MaxDiscountBps != nil {
		maxAmount, err := in.Base.PercentBps(*cfg.MaxDiscountBps)
		if err != nil {
			return Result{}, fmt.Errorf("discount cap: %w", err)
		}
		if result.Total.Cmp(maxAmount) > 0 {
			result.Total = maxAmount
		}
	}
	return result, nil
}

func (e *Engine) eligible(r Rule, in Input) (bool, error) {
	for _, cond := range r.Conditions {
		met, err := e.evaluate(cond, in)
		if err != nil {
			return false, err
		}
		if !met {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) evaluate(cond Condition, in Input) (bool, error) {
	switch cond.Kind {
	case CondMinQuantity:
		return in.Quantity.Cmp(cond.Qty) >= 0, nil
	case CondMinAmount:
		return in.Base.Cmp(cond.Amount) >= 0, nil
	case CondCustomerGroup:
		return in.CustomerGroup == cond.Group, nil
	case CondDateRange:
		if cond.From.After(cond.To) {
			return false, fmt.Errorf("date range %s..%s inverted: %w", cond.From, cond.To, ErrConditionEvaluation)
		}
		if in.Now.IsZero() {
			return false, fmt.Errorf("date range requires a reference time: %w", ErrConditionEvaluation)
		}
		return !in.Now.Before(cond.From) && !in.Now.After(cond.To), nil
	case CondFirstPurchase:
		return in.FirstPurchase, nil
	case CondPromoCode:
		return slices.Contains(in.PromoCodes, cond.Code), nil
	case CondCartContains:
		return in.Cart != nil && in.Cart.Contains(cond.ProductID), nil
	default:
		return false, fmt.Errorf("unknown condition kind %d: %w", cond.Kind, ErrConditionEvaluation)
	}
}

func (e *Engine) amount(t Type, in Input) (money.Money, error) {
	switch t.Kind {
	case KindFixedAmount:
		amount := t.Amount
		if amount.IsNegative() {
			return money.Zero(), nil
		}
		if amount.Cmp(in.Base) > 0 {
			return in.Base, nil
		}
		return amount, nil

	case KindPercent:
		return in.Base.PercentBps(t.Bps)

	case KindBuyXGetY:
		if !t.Buy.IsPositive() {
			return money.Money{}, fmt.Errorf("buy quantity must be positive: %w", money.ErrInvalidOperation)
		}
		groups := in.Quantity.Div(t.Buy).Floor()
		if !groups.IsPositive() {
			return money.Zero(), nil
		}
		perUnit, err := in.UnitPrice.PercentBps(t.FreeBps)
		if err != nil {
			return money.Money{}, err
		}
		return perUnit.MulDecimal(groups.Mul(t.Get))

	case KindTiered:
		if err := validateTiers(t.Tiers); err != nil {
			return money.Money{}, err
		}
		for _, tier := range t.Tiers {
			if in.Quantity.Cmp(tier.MinQty) < 0 {
				continue
			}
			if tier.MaxQty != nil && in.Quantity.Cmp(*tier.MaxQty) > 0 {
				continue
			}
			return in.Base.PercentBps(tier.Bps)
		}
		return money.Zero(), nil

	case KindBundle:
		if in.Cart == nil {
			return money.Zero(), nil
		}
		for _, id := range t.BundleItems {
			if !in.Cart.Contains(id) {
				return money.Zero(), nil
			}
		}
		return in.Base.PercentBps(t.Bps)

	default:
		return money.Money{}, fmt.Errorf("unknown discount kind %d: %w", t.Kind, money.ErrInvalidOperation)
	}
}

// validateTiers rejects inverted bounds and overlapping ranges. An
// unbounded tier must be the one with the highest MinQty.
func validateTiers(tiers []Tier) error {
	ordered := make([]Tier, len(tiers))
	copy(ordered, tiers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MinQty.Cmp(ordered[j].MinQty) < 0
	})
	for i, tier := range ordered {
		if tier.MaxQty != nil && tier.MaxQty.Cmp(tier.MinQty) < 0 {
			return fmt.Errorf("tier [%s, %s] inverted: %w", tier.MinQty, tier.MaxQty, ErrMalformedTiers)
		}
		if i == len(ordered)-1 {
			continue
		}
		next := ordered[i+1]
		if tier.MaxQty == nil || next.MinQty.Cmp(*tier.MaxQty) <= 0 {
			return fmt.Errorf("tiers starting at %s and %s overlap: %w", tier.MinQty, next.MinQty, ErrMalformedTiers)
		}
	}
	return nil
}
