package orders

import (
	"time"

	"storefront/internal/catalog"

	"github.com/shopspring/decimal"
)

// Status of an order. Normally derived from the order's age, see DeriveStatus.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
)

// Statuses in lifecycle order.
var Statuses = []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentPhonePe   PaymentMethod = "PhonePe"
	PaymentGooglePay PaymentMethod = "GooglePay"
	PaymentPaytm     PaymentMethod = "Paytm"
	PaymentUPI       PaymentMethod = "UPI"
	PaymentCOD       PaymentMethod = "COD"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m.IsUPI()
}

// IsUPI reports whether the method needs a UPI handle.
func (m PaymentMethod) IsUPI() bool {
	switch m {
	case PaymentPhonePe, PaymentGooglePay, PaymentPaytm, PaymentUPI:
		return true
	}
	return false
}

// Address is the shipping address snapshot stored with an order.
type Address struct {
	FullName      string `json:"full_name" validate:"required"`
	StreetAddress string `json:"street_address" validate:"required"`
	City          string `json:"city" validate:"required"`
	State         string `json:"state" validate:"required"`
	Pincode       string `json:"pincode" validate:"required,len=6"`
	Phone         string `json:"phone" validate:"required"`
}

// Item is a frozen copy of a cart line at checkout time. Later catalog
// changes do not reach it.
type Item struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

type Order struct {
	ID                    int64           `json:"id"`
	UserID                string          `json:"user_id"`
	Items                 []Item          `json:"items"`
	Total                 decimal.Decimal `json:"total"`
	Address               Address         `json:"address"`
	Status                Status          `json:"status"`
	StatusOverride        bool            `json:"status_override,omitempty"`
	OrderDate             time.Time       `json:"order_date"`
	EstimatedDeliveryDate time.Time       `json:"estimated_delivery_date"`
	PaymentMethod         PaymentMethod   `json:"payment_method"`
	PaymentReference      string          `json:"payment_reference,omitempty"`
}

// DeliveryWindow is how long after ordering delivery is promised.
const DeliveryWindow = 5 * 24 * time.Hour

func (o Order) ItemCount() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
