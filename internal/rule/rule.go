package rule

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/money"
)

// ActionKind enumerates the closed set of effects a rule may produce.
type ActionKind int

const (
	// ActionDiscount reduces the payable total.
	ActionDiscount ActionKind = iota
	// ActionTax increases the payable total.
	ActionTax
	// ActionFee adds a flat charge.
	ActionFee
	// ActionFreeItem grants additional units of a product.
	ActionFreeItem
)

// String names the action kind for logs and result payloads.
func (k ActionKind) String() string {
	switch k {
	case ActionDiscount:
		return "discount"
	case ActionTax:
		return "tax"
	case ActionFee:
		return "fee"
	case ActionFreeItem:
		return "free_item"
	default:
		return "unknown"
	}
}

// Action is the effect a rule evaluation produces. Amount is set for
// discount, tax and fee actions; ProductID and Quantity for free items.
type Action struct {
	Kind      ActionKind
	RuleName  string
	Amount    money.Money
	ProductID string
	Quantity  decimal.Decimal
}

// Rule is the open extension point for caller-supplied cart behaviour.
// CanApply must be a pure predicate; Apply is invoked only after CanApply
// reported true and must not mutate the cart.
type Rule interface {
	Name() string
	Priority() int
	CanApply(c *cart.Cart) bool
	Apply(c *cart.Cart) ([]Action, error)
}

// Processor holds registered rules in an explicit ordered sequence and
// evaluates them by priority. Ties keep registration order, so results
// are deterministic regardless of how rules were assembled.
type Processor struct {
	rules []Rule
}

// NewProcessor returns an empty processor.
func NewProcessor() *Processor {
	return &Processor{}
}

// Register appends a rule. Registration order is the tie-break for
// rules sharing a priority.
func (p *Processor) Register(r Rule) {
	p.rules = append(p.rules, r)
}

// Len reports how many rules are registered.
func (p *Processor) Len() int {
	return len(p.rules)
}

// Process evaluates the registered rules against the cart sorted by
// priority descending. With stackable=true every applicable rule runs
// and the actions are concatenated; with stackable=false only the
// highest-priority applicable rule runs.
func (p *Processor) Process(c *cart.Cart, stackable bool) ([]Action, error) {
	ordered := make([]Rule, len(p.rules))
	copy(ordered, p.rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() > ordered[j].Priority()
	})

	var actions []Action
	for _, r := range ordered {
		if !r.CanApply(c) {
			continue
		}
		produced, err := r.Apply(c)
		if err != nil {
			return nil, fmt.Errorf("apply rule %q: %w", r.Name(), err)
		}
		for i := range produced {
			if produced[i].RuleName == "" {
				produced[i].RuleName = r.Name()
			}
		}
		actions = append(actions, produced...)
		if !stackable {
			break
		}
	}
	return actions, nil
}
