package kafka

import (
	"time"

	"storefront/internal/orders"
)

const (
	TopicOrderPlaced = `storefront.order-placed`
	TopicOrderPaid   = `storefront.order-paid`
)

// OrderPlacedEvent is written to TopicOrderPlaced, keyed by order id, once
// checkout has stored an order.
type OrderPlacedEvent struct {
	OrderID       int64       `json:"order_id"`
	UserID        string      `json:"user_id"`
	Items         []EventItem `json:"items"`
	Total         string      `json:"total"`
	PaymentMethod string      `json:"payment_method"`
	Pincode       string      `json:"pincode"`
	CreatedAt     time.Time   `json:"created_at"`
}

type EventItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func NewOrderPlacedEvent(o orders.Order) OrderPlacedEvent {
	items := make([]EventItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, EventItem{ProductID: it.Product.ID, Quantity: it.Quantity})
	}
	return OrderPlacedEvent{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Items:         items,
		Total:         o.Total.StringFixed(2),
		PaymentMethod: string(o.PaymentMethod),
		Pincode:       o.Address.Pincode,
		CreatedAt:     o.OrderDate.UTC(),
	}
}

// OrderPaidEvent is written to TopicOrderPaid when the payment provider
// confirms an order's payment.
type OrderPaidEvent struct {
	OrderID          int64     `json:"order_id"`
	PaymentReference string    `json:"payment_reference"`
	Total            string    `json:"total"`
	PaidAt           time.Time `json:"paid_at"`
}
