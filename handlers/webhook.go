package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"storefront/internal/orders"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
)

// OrderEvents is told when the payment provider confirms an order.
type OrderEvents interface {
	PublishOrderPaid(ctx context.Context, o orders.Order) error
}

// Webhook receives Stripe events. Confirmed payment intents are matched to
// the order that stored their id and announced on the order-paid topic.
func (h *Handler) Webhook(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	const MaxBodyBytes = int64(65536)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Error("reading webhook body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "could not read request body"})
		return
	}

	var event stripe.Event
	if h.secret != "" {
		event, err = webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.secret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	} else {
		err = json.Unmarshal(payload, &event)
	}
	if err != nil {
		slog.Warn("rejecting webhook event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var paymentIntent stripe.PaymentIntent
		if event.Data == nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payment intent"})
			return
		}
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			slog.Error("decoding payment intent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid payment intent"})
			return
		}

		ctx := c.Request.Context()
		order, err := h.o.FindByPaymentReference(ctx, paymentIntent.ID)
		if errors.Is(err, orders.ErrNotFound) {
			slog.Warn("no order for payment intent", slog.String(logkey.TraceID, traceId), slog.String("PaymentIntent", paymentIntent.ID))
			c.JSON(http.StatusOK, gin.H{"message": "no matching order"})
			return
		}
		if err != nil {
			abortWithError(c, "looking up order for payment", err, slog.String("PaymentIntent", paymentIntent.ID))
			return
		}
		orderAttrs := []any{
			slog.String(logkey.TraceID, traceId),
			slog.Int64(logkey.OrderID, order.ID),
			slog.String(logkey.UserID, order.UserID),
		}

		if event.Type == stripe.EventTypePaymentIntentPaymentFailed {
			slog.Warn("payment failed after order was placed", orderAttrs...)
			c.Status(http.StatusOK)
			return
		}

		slog.Info("payment confirmed", orderAttrs...)
		if h.events != nil {
			if err := h.events.PublishOrderPaid(ctx, order); err != nil {
				slog.Error("publishing order paid event", append(orderAttrs, slog.String(logkey.ERROR, err.Error()))...)
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "could not record payment, retry later"})
				return
			}
		}
		c.Status(http.StatusOK)

	default:
		slog.Info("unhandled event type", slog.String(logkey.TraceID, traceId), slog.String("EventType", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{
			"message": "Event type not handled",
			"event":   event.Type,
		})
	}
}
