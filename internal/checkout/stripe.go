package checkout

import (
	"context"
	"fmt"

	"storefront/internal/orders"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeProcessor records electronic payments as Stripe payment intents in
// INR. Cash on delivery never reaches Stripe and goes to cod instead.
type StripeProcessor struct {
	api *client.API
	cod PaymentProcessor
}

func NewStripeProcessor(key string, cod PaymentProcessor) *StripeProcessor {
	sc := &client.API{}
	sc.Init(key, nil)
	return &StripeProcessor{api: sc, cod: cod}
}

func (p *StripeProcessor) Process(ctx context.Context, req PaymentRequest) (PaymentResult, error) {
	if req.Method == orders.PaymentCOD {
		return p.cod.Process(ctx, req)
	}

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(minorUnits(req.Amount)),
		Currency:    stripe.String(string(stripe.CurrencyINR)),
		Description: stripe.String("storefront order"),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Reference)
	params.AddMetadata("user_id", req.UserID)
	params.AddMetadata("payment_method", string(req.Method))
	params.AddMetadata("upi_id", req.UPIHandle)

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("creating payment intent: %w", err)
	}
	if pi.Status == stripe.PaymentIntentStatusCanceled {
		return PaymentResult{}, fmt.Errorf("payment intent %s was canceled", pi.ID)
	}
	return PaymentResult{Reference: pi.ID}, nil
}

// minorUnits converts rupees to paise.
func minorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
