package httpapi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/cart"
	"github.com/walldriyan/financial-engine-single/internal/money"
	"github.com/walldriyan/financial-engine-single/internal/pricing"
	"github.com/walldriyan/financial-engine-single/internal/refund"
)

// ItemDTO is one line item in a calculation request. Amounts are minor
// units; quantity is a decimal string so fractional quantities survive
// JSON intact.
type ItemDTO struct {
	ProductID string `json:"productId" validate:"required"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unitPrice" validate:"gte=0"`
	Quantity  string `json:"quantity" validate:"required"`
	Category  string `json:"category"`
}

// ContextDTO carries the request-scoped calculation inputs.
type ContextDTO struct {
	PromoCodes    []string `json:"promoCodes"`
	Jurisdiction  string   `json:"jurisdiction"`
	CustomerGroup string   `json:"customerGroup"`
	FirstPurchase bool     `json:"firstPurchase"`
	Now           string   `json:"now"`
}

// ItemCalcRequest asks for a single-item calculation.
type ItemCalcRequest struct {
	Item    ItemDTO    `json:"item" validate:"required"`
	Context ContextDTO `json:"context"`
}

// CartCalcRequest asks for a full cart calculation.
type CartCalcRequest struct {
	Items   []ItemDTO  `json:"items" validate:"required,min=1,dive"`
	Context ContextDTO `json:"context"`
}

// RefundLineDTO names a product and quantity to refund.
type RefundLineDTO struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  string `json:"quantity" validate:"required"`
}

// RefundCalcRequest asks for a refund quote. Items and Context restate
// the original charge so the paid amounts can be recomputed; Refund
// lists what comes back.
type RefundCalcRequest struct {
	Items   []ItemDTO       `json:"items" validate:"required,min=1,dive"`
	Context ContextDTO      `json:"context"`
	Refund  []RefundLineDTO `json:"refund" validate:"required,min=1,dive"`
	Reason  string          `json:"reason"`
}

// ProrationRequest asks for a billing-cycle proration. NewPrice, when
// present, turns the response into a plan-change quote.
type ProrationRequest struct {
	Price       int64  `json:"price" validate:"gte=0"`
	NewPrice    *int64 `json:"newPrice"`
	PeriodStart string `json:"periodStart" validate:"required"`
	PeriodEnd   string `json:"periodEnd" validate:"required"`
	ChangeAt    string `json:"changeAt" validate:"required"`
}

// AmountDTO renders a monetary value in minor units with its display form.
type AmountDTO struct {
	Minor   int64  `json:"minor"`
	Display string `json:"display"`
}

// LineDTO is one named breakdown entry.
type LineDTO struct {
	Name   string    `json:"name"`
	Amount AmountDTO `json:"amount"`
}

// ItemResultDTO mirrors a per-item calculation breakdown.
type ItemResultDTO struct {
	ProductID     string    `json:"productId"`
	Base          AmountDTO `json:"base"`
	Discount      AmountDTO `json:"discount"`
	Tax           AmountDTO `json:"tax"`
	Total         AmountDTO `json:"total"`
	DiscountLines []LineDTO `json:"discountLines,omitempty"`
	TaxLines      []LineDTO `json:"taxLines,omitempty"`
}

// ActionDTO reports one cart-level rule outcome.
type ActionDTO struct {
	Kind      string    `json:"kind"`
	RuleName  string    `json:"ruleName"`
	Amount    AmountDTO `json:"amount"`
	ProductID string    `json:"productId,omitempty"`
	Quantity  string    `json:"quantity,omitempty"`
}

// CartResultDTO mirrors a full cart calculation.
type CartResultDTO struct {
	Items         []ItemResultDTO `json:"items"`
	Subtotal      AmountDTO       `json:"subtotal"`
	TotalDiscount AmountDTO       `json:"totalDiscount"`
	TotalTax      AmountDTO       `json:"totalTax"`
	TotalFees     AmountDTO       `json:"totalFees"`
	GrandTotal    AmountDTO       `json:"grandTotal"`
	Actions       []ActionDTO     `json:"actions,omitempty"`
}

// RefundLineResultDTO is the refunded amount for one requested line.
type RefundLineResultDTO struct {
	ProductID string    `json:"productId"`
	Quantity  string    `json:"quantity"`
	Amount    AmountDTO `json:"amount"`
}

// RefundResultDTO mirrors a refund quote.
type RefundResultDTO struct {
	Amount AmountDTO             `json:"amount"`
	Kind   string                `json:"kind"`
	Lines  []RefundLineResultDTO `json:"lines"`
}

// ProrationResultDTO mirrors a proration or plan-change quote.
type ProrationResultDTO struct {
	DaysTotal     int        `json:"daysTotal"`
	DaysRemaining int        `json:"daysRemaining"`
	Unused        AmountDTO  `json:"unused"`
	Used          AmountDTO  `json:"used"`
	Credit        *AmountDTO `json:"credit,omitempty"`
	Charge        *AmountDTO `json:"charge,omitempty"`
	Net           *AmountDTO `json:"net,omitempty"`
}

func amountDTO(m money.Money) AmountDTO {
	return AmountDTO{Minor: m.Minor(), Display: m.String()}
}

func (d ItemDTO) toItem() (cart.Item, error) {
	qty, err := decimal.NewFromString(d.Quantity)
	if err != nil {
		return cart.Item{}, fmt.Errorf("quantity %q: %w", d.Quantity, err)
	}
	if qty.IsNegative() {
		return cart.Item{}, fmt.Errorf("quantity %q is negative", d.Quantity)
	}
	name := d.Name
	if name == "" {
		name = d.ProductID
	}
	item := cart.NewItem(d.ProductID, name, money.FromMinor(d.UnitPrice), qty)
	item.Category = d.Category
	return item, nil
}

// toContext resolves the pricing context. An absent reference time
// defaults to the server clock here at the boundary; the engines below
// never read a clock themselves.
func (d ContextDTO) toContext(nowFallback func() time.Time) (pricing.Context, error) {
	now := nowFallback()
	if d.Now != "" {
		parsed, err := time.Parse(time.RFC3339, d.Now)
		if err != nil {
			return pricing.Context{}, fmt.Errorf("now %q: %w", d.Now, err)
		}
		now = parsed
	}
	return pricing.Context{
		PromoCodes:    d.PromoCodes,
		Jurisdiction:  d.Jurisdiction,
		CustomerGroup: d.CustomerGroup,
		FirstPurchase: d.FirstPurchase,
		Now:           now,
	}, nil
}

func (d RefundCalcRequest) toRefundRequest() (refund.Request, error) {
	req := refund.Request{Reason: d.Reason}
	for _, line := range d.Refund {
		qty, err := decimal.NewFromString(line.Quantity)
		if err != nil {
			return refund.Request{}, fmt.Errorf("refund quantity %q: %w", line.Quantity, err)
		}
		req.Lines = append(req.Lines, refund.Line{ProductID: line.ProductID, Quantity: qty})
	}
	return req, nil
}

func refundResultDTO(res refund.Result) RefundResultDTO {
	out := RefundResultDTO{
		Amount: amountDTO(res.Amount),
		Kind:   res.Kind.String(),
	}
	for _, l := range res.Lines {
		out.Lines = append(out.Lines, RefundLineResultDTO{
			ProductID: l.ProductID,
			Quantity:  l.Quantity.String(),
			Amount:    amountDTO(l.Amount),
		})
	}
	return out
}

func itemResultDTO(res pricing.ItemResult) ItemResultDTO {
	out := ItemResultDTO{
		ProductID: res.ProductID,
		Base:      amountDTO(res.Base),
		Discount:  amountDTO(res.Discount),
		Tax:       amountDTO(res.Tax),
		Total:     amountDTO(res.Total),
	}
	for _, l := range res.DiscountLines {
		out.DiscountLines = append(out.DiscountLines, LineDTO{Name: l.Name, Amount: amountDTO(l.Amount)})
	}
	for _, l := range res.TaxLines {
		out.TaxLines = append(out.TaxLines, LineDTO{Name: l.Name, Amount: amountDTO(l.Amount)})
	}
	return out
}

func cartResultDTO(res pricing.CartResult) CartResultDTO {
	out := CartResultDTO{
		Subtotal:      amountDTO(res.Subtotal),
		TotalDiscount: amountDTO(res.TotalDiscount),
		TotalTax:      amountDTO(res.TotalTax),
		TotalFees:     amountDTO(res.TotalFees),
		GrandTotal:    amountDTO(res.GrandTotal),
	}
	for _, item := range res.Items {
		out.Items = append(out.Items, itemResultDTO(item))
	}
	for _, a := range res.Actions {
		dto := ActionDTO{
			Kind:      a.Kind.String(),
			RuleName:  a.RuleName,
			Amount:    amountDTO(a.Amount),
			ProductID: a.ProductID,
		}
		if !a.Quantity.IsZero() {
			dto.Quantity = a.Quantity.String()
		}
		out.Actions = append(out.Actions, dto)
	}
	return out
}
