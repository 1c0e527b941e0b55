package cart

import (
	"storefront/internal/catalog"

	"github.com/shopspring/decimal"
)

// CartItem is one product/quantity pairing. Quantity is always >= 1 while
// the line is in a cart.
type CartItem struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartResponse struct {
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}
