package tax

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/money"
)

// Scope selects which products a tax rate covers.
type Scope int

const (
	// ScopeAll matches every product.
	ScopeAll Scope = iota
	// ScopeCategory matches products in a named category.
	ScopeCategory
	// ScopeProduct matches a single product id.
	ScopeProduct
	// ScopeRegion matches calculations for a jurisdiction code.
	ScopeRegion
)

// AppliesTo is the closed applicability selector of a tax rate.
type AppliesTo struct {
	Scope Scope
	Value string
}

// All matches every product.
func All() AppliesTo { return AppliesTo{Scope: ScopeAll} }

// Category matches products in the given category.
func Category(name string) AppliesTo { return AppliesTo{Scope: ScopeCategory, Value: name} }

// Product matches the given product id.
func Product(id string) AppliesTo { return AppliesTo{Scope: ScopeProduct, Value: id} }

// Region matches calculations performed for the given jurisdiction.
func Region(code string) AppliesTo { return AppliesTo{Scope: ScopeRegion, Value: code} }

// Rate is an immutable tax rate configuration. The percentage is held in
// basis points (1200 bps = 12%).
type Rate struct {
	Name         string
	Bps          int64
	Jurisdiction string
	AppliesTo    AppliesTo
}

// Config carries the product-scoped tax settings registered by the caller.
type Config struct {
	ProductID       string
	Rates           []Rate
	Exempt          bool
	IncludedInPrice bool
}

// Line is the per-rate breakdown entry of a calculation.
type Line struct {
	Name   string
	Bps    int64
	Amount money.Money
}

// Result is the computed tax for one base amount.
type Result struct {
	Total money.Money
	Lines []Line
}

// Input describes one tax calculation request.
type Input struct {
	ProductID    string
	Category     string
	Base         money.Money
	Jurisdiction string
}

// Engine resolves applicable tax rates and computes tax amounts. Rates
// are additive: each matching rate applies independently to the same
// base, never compounding on another rate's output. Registration happens
// during setup; calculations only read.
type Engine struct {
	global   []Rate
	products map[string]Config
}

// NewEngine returns an engine with no registered rates.
func NewEngine() *Engine {
	return &Engine{products: make(map[string]Config)}
}

// AddGlobalRate registers a rate that applies independent of any product
// config. Rates keep registration order in breakdowns.
func (e *Engine) AddGlobalRate(r Rate) {
	e.global = append(e.global, r)
}

// AddProductConfig registers (or replaces) the tax config of a product.
func (e *Engine) AddProductConfig(cfg Config) {
	e.products[cfg.ProductID] = cfg
}

// Calculate resolves the matching rate set for the input and computes
// per-rate amounts. A tax-exempt product yields zero. Product-specific
// rates and global rates are unioned, both subject to the jurisdiction
// filter: an empty jurisdiction accepts every rate, otherwise the rate's
// jurisdiction tag must match exactly.
func (e *Engine) Calculate(in Input) (Result, error) {
	cfg, hasConfig := e.products[in.ProductID]
	if hasConfig && cfg.Exempt {
		return Result{Total: money.Zero()}, nil
	}

	var matched []Rate
	if hasConfig {
		for _, r := range cfg.Rates {
			if e.matches(r, in) {
				matched = append(matched, r)
			}
		}
	}
	for _, r := range e.global {
		if e.matches(r, in) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return Result{Total: money.Zero()}, nil
	}

	if hasConfig && cfg.IncludedInPrice {
		return backOut(in.Base, matched)
	}

	result := Result{Total: money.Zero()}
	for _, r := range matched {
		amount, err := in.Base.PercentBps(r.Bps)
		if err != nil {
			return Result{}, fmt.Errorf("tax rate %q: %w", r.Name, err)
		}
		total, err := result.Total.Add(amount)
		if err != nil {
			return Result{}, fmt.Errorf("tax rate %q: %w", r.Name, err)
		}
		result.Total = total
		result.Lines = append(result.Lines, Line{Name: r.Name, Bps: r.Bps, Amount: amount})
	}
	return result, nil
}

func (e *Engine) matches(r Rate, in Input) bool {
	if in.Jurisdiction != "" && r.Jurisdiction != "" && r.Jurisdiction != in.Jurisdiction {
		return false
	}
	switch r.AppliesTo.Scope {
	case ScopeAll:
		return true
	case ScopeCategory:
		return in.Category != "" && r.AppliesTo.Value == in.Category
	case ScopeProduct:
		return r.AppliesTo.Value == in.ProductID
	case ScopeRegion:
		return in.Jurisdiction != "" && r.AppliesTo.Value == in.Jurisdiction
	default:
		return false
	}
}

// backOut extracts the tax already contained in the base price:
// tax = base - base / (1 + total rate). The per-rate lines are prorated
// by each rate's share with the remainder on the last line, so the lines
// always sum exactly to the total.
func backOut(base money.Money, matched []Rate) (Result, error) {
	var totalBps int64
	for _, r := range matched {
		totalBps += r.Bps
	}
	if totalBps <= 0 {
		return Result{Total: money.Zero()}, nil
	}

	net := decimal.NewFromInt(base.Minor()).
		Mul(decimal.NewFromInt(10000)).
		Div(decimal.NewFromInt(10000 + totalBps)).
		Round(0)
	if !net.BigInt().IsInt64() {
		return Result{}, fmt.Errorf("back out tax: %w", money.ErrOverflow)
	}
	total, err := base.Sub(money.FromMinor(net.IntPart()))
	if err != nil {
		return Result{}, fmt.Errorf("back out tax: %w", err)
	}

	result := Result{Total: total}
	assigned := int64(0)
	for i, r := range matched {
		var amount int64
		if i == len(matched)-1 {
			amount = total.Minor() - assigned
		} else {
			share := decimal.NewFromInt(total.Minor()).
				Mul(decimal.NewFromInt(r.Bps)).
				Div(decimal.NewFromInt(totalBps)).
				Round(0)
			amount = share.IntPart()
			assigned += amount
		}
		result.Lines = append(result.Lines, Line{Name: r.Name, Bps: r.Bps, Amount: money.FromMinor(amount)})
	}
	return result, nil
}
