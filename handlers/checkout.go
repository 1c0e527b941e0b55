package handlers

import (
	"log/slog"
	"net/http"

	"storefront/internal/orders"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CheckoutStatus(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.checkout.View(claims.Subject))
}

func (h *Handler) BeginCheckout(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	view, err := h.checkout.Begin(claims.Subject)
	if err != nil {
		abortWithError(c, "cannot begin checkout", err, slog.String(logkey.UserID, claims.Subject))
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) SubmitAddress(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	var addr orders.Address
	if !bindJSON(c, &addr) {
		return
	}
	view, err := h.checkout.SubmitAddress(c.Request.Context(), claims.Subject, addr)
	if err != nil {
		abortWithError(c, "address rejected", err, slog.String(logkey.UserID, claims.Subject))
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) SelectPayment(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	var request struct {
		PaymentMethod orders.PaymentMethod `json:"payment_method"`
		UPIID         string               `json:"upi_id"`
	}
	if !bindJSON(c, &request) {
		return
	}
	view, err := h.checkout.SelectPayment(claims.Subject, request.PaymentMethod, request.UPIID)
	if err != nil {
		abortWithError(c, "payment method rejected", err, slog.String(logkey.UserID, claims.Subject))
		return
	}
	c.JSON(http.StatusOK, view)
}

// Pay blocks for the simulated processing delay and answers with the
// confirmed order.
func (h *Handler) Pay(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	order, err := h.checkout.Pay(c.Request.Context(), claims.Subject)
	if err != nil {
		abortWithError(c, "payment failed", err, slog.String(logkey.UserID, claims.Subject))
		return
	}
	slog.Info("checkout confirmed", slog.String(logkey.TraceID, traceId), slog.Int64(logkey.OrderID, order.ID))
	c.JSON(http.StatusCreated, gin.H{
		"order":              order,
		"order_date_display": orders.FormatOrderDate(order.OrderDate, h.loc),
	})
}

func (h *Handler) CancelCheckout(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	view, err := h.checkout.Cancel(claims.Subject)
	if err != nil {
		abortWithError(c, "cannot cancel checkout", err, slog.String(logkey.UserID, claims.Subject))
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) FinishCheckout(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	view, err := h.checkout.Finish(claims.Subject)
	if err != nil {
		abortWithError(c, "cannot finish checkout", err, slog.String(logkey.UserID, claims.Subject))
		return
	}
	c.JSON(http.StatusOK, view)
}
