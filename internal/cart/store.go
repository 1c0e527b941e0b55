package cart

import (
	"sync"

	"storefront/internal/catalog"
)

// Conf holds the session-scoped cart of every user. Carts live only in
// memory; they are not persisted.
type Conf struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewConf() *Conf {
	return &Conf{carts: make(map[string]*Cart)}
}

func (c *Conf) cartFor(userID string) *Cart {
	ct, ok := c.carts[userID]
	if !ok {
		ct = New()
		c.carts[userID] = ct
	}
	return ct
}

// AddToCart adds qty of p to the user's cart and returns the resulting
// quantity of that line.
func (c *Conf) AddToCart(userID string, p catalog.Product, qty int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	ct := c.cartFor(userID)
	ct.Add(p, qty)
	return ct.Quantity(p.ID)
}

func (c *Conf) UpdateQuantity(userID, productID string, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cartFor(userID).UpdateQuantity(productID, qty)
}

func (c *Conf) RemoveFromCart(userID, productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cartFor(userID).Remove(productID)
}

func (c *Conf) ClearCart(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.carts, userID)
}

// RemoveItems takes the quantities in items out of the user's cart. Lines
// added or topped up since items was read keep the difference.
func (c *Conf) RemoveItems(userID string, items []CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ct, ok := c.carts[userID]
	if !ok {
		return
	}
	for _, it := range items {
		ct.UpdateQuantity(it.Product.ID, ct.Quantity(it.Product.ID)-it.Quantity)
	}
	if ct.Len() == 0 {
		delete(c.carts, userID)
	}
}

// QuantityOf reports how many of productID the user already holds.
func (c *Conf) QuantityOf(userID, productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ct, ok := c.carts[userID]; ok {
		return ct.Quantity(productID)
	}
	return 0
}

// GetActiveCartItems returns a snapshot of the user's cart. A user without a
// cart gets an empty one.
func (c *Conf) GetActiveCartItems(userID string) *CartResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ct, ok := c.carts[userID]; ok {
		return ct.Response()
	}
	return New().Response()
}
