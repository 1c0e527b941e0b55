package cart

import (
	"storefront/internal/catalog"

	"github.com/shopspring/decimal"
)

// Cart is an insertion-ordered set of lines keyed by product id. It is not
// safe for concurrent use; Conf serialises access.
//
// Quantities are not checked against Product.Stock here. Callers that care
// (the HTTP layer) check stock before adding.
type Cart struct {
	order []string
	lines map[string]*CartItem
}

func New() *Cart {
	return &Cart{lines: make(map[string]*CartItem)}
}

// Add increments an existing line or appends a new one.
func (c *Cart) Add(p catalog.Product, qty int) {
	if qty <= 0 {
		return
	}
	if l, ok := c.lines[p.ID]; ok {
		l.Quantity += qty
		return
	}
	c.lines[p.ID] = &CartItem{Product: p, Quantity: qty}
	c.order = append(c.order, p.ID)
}

// UpdateQuantity sets the quantity of a line; qty <= 0 removes it.
// Unknown ids are ignored.
func (c *Cart) UpdateQuantity(productID string, qty int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	if l, ok := c.lines[productID]; ok {
		l.Quantity = qty
	}
}

func (c *Cart) Remove(productID string) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) Clear() {
	c.order = nil
	clear(c.lines)
}

func (c *Cart) Quantity(productID string) int {
	if l, ok := c.lines[productID]; ok {
		return l.Quantity
	}
	return 0
}

func (c *Cart) Len() int { return len(c.order) }

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

func (c *Cart) TotalItems() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.LineTotal())
	}
	return total
}

func (c *Cart) Response() *CartResponse {
	return &CartResponse{
		Items:      c.Items(),
		TotalItems: c.TotalItems(),
		TotalPrice: c.TotalPrice(),
	}
}
