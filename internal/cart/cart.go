package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/walldriyan/financial-engine-single/internal/money"
)

// Item is a priced line inside a cart. Quantity is a non-negative
// rational to support fractional units (e.g. 1.5 kg).
type Item struct {
	ID        uuid.UUID
	ProductID string
	Name      string
	UnitPrice money.Money
	Quantity  decimal.Decimal
	Category  string
	TaxClass  string
}

// NewItem builds an item with a fresh identifier.
func NewItem(productID, name string, unitPrice money.Money, quantity decimal.Decimal) Item {
	return Item{
		ID:        uuid.New(),
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  quantity,
	}
}

// Total returns unit price x quantity, rounded half-up once.
func (i Item) Total() (money.Money, error) {
	return i.UnitPrice.MulDecimal(i.Quantity)
}

// Cart is an ordered sequence of items. It owns its items exclusively;
// item order is insertion order and is preserved.
type Cart struct {
	ID            uuid.UUID
	CustomerID    string
	CustomerGroup string
	Items         []Item
}

// New returns an empty cart with a fresh identifier.
func New() *Cart {
	return &Cart{ID: uuid.New()}
}

// AddItem appends an item to the cart.
func (c *Cart) AddItem(item Item) {
	c.Items = append(c.Items, item)
}

// Subtotal is the sum of all item totals before discounts and taxes.
func (c *Cart) Subtotal() (money.Money, error) {
	total := money.Zero()
	for _, item := range c.Items {
		line, err := item.Total()
		if err != nil {
			return money.Money{}, err
		}
		total, err = total.Add(line)
		if err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}

// TotalQuantity sums the quantities of every item.
func (c *Cart) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Quantity)
	}
	return total
}

// Contains reports whether any item carries the given product id.
func (c *Cart) Contains(productID string) bool {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// QuantityOf returns the combined quantity of the given product across lines.
func (c *Cart) QuantityOf(productID string) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		if item.ProductID == productID {
			total = total.Add(item.Quantity)
		}
	}
	return total
}
