package checkout

import (
	"context"
	"time"

	"storefront/internal/orders"

	"github.com/shopspring/decimal"
)

type PaymentRequest struct {
	Reference string
	UserID    string
	Method    orders.PaymentMethod
	UPIHandle string
	Amount    decimal.Decimal
}

type PaymentResult struct {
	Reference string
}

// PaymentProcessor settles a payment. An error moves checkout to Failed.
type PaymentProcessor interface {
	Process(ctx context.Context, req PaymentRequest) (PaymentResult, error)
}

// SimulatedProcessor always succeeds after a method-dependent delay.
type SimulatedProcessor struct {
	CODDelay    time.Duration
	OnlineDelay time.Duration
}

func (p SimulatedProcessor) Process(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	d := p.OnlineDelay
	if req.Method == orders.PaymentCOD {
		d = p.CODDelay
	}
	if err := wait(ctx, d); err != nil {
		return PaymentResult{}, err
	}
	return PaymentResult{Reference: "sim_" + req.Reference}, nil
}
