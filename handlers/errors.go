package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/orders"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 16 * 1024

// errorResponse maps a domain error onto a status code and JSON body.
// Anything unrecognised is a 500 without details.
func errorResponse(err error) (int, gin.H) {
	var vErr *checkout.ValidationError
	switch {
	case errors.Is(err, checkout.ErrServiceabilityDenied):
		if errors.As(err, &vErr) {
			return http.StatusUnprocessableEntity, gin.H{"error": vErr.Message, "field": vErr.Field}
		}
		return http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "field": "pincode"}
	case errors.As(err, &vErr):
		return http.StatusBadRequest, gin.H{"error": vErr.Message, "field": vErr.Field}
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": "Product not found"}
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": "Order not found"}
	case errors.Is(err, catalog.ErrInvalidSort), errors.Is(err, orders.ErrInvalidStatus):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, gin.H{"error": "Invalid username or password"}
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict, gin.H{"error": "Username already taken"}
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		return http.StatusConflict, gin.H{"error": "Payment is already being processed"}
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusConflict, gin.H{"error": "Your cart is empty"}
	case errors.Is(err, checkout.ErrSuperseded):
		return http.StatusConflict, gin.H{"error": "Address was changed while it was being checked"}
	case errors.Is(err, checkout.ErrInvalidTransition):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case errors.Is(err, checkout.ErrPaymentFailed):
		return http.StatusPaymentRequired, gin.H{"error": "Payment failed, please try again"}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, gin.H{"error": "Request timed out, please try again"}
	}
	return http.StatusInternalServerError, gin.H{"error": http.StatusText(http.StatusInternalServerError)}
}

func abortWithError(c *gin.Context, msg string, err error, attrs ...any) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	status, body := errorResponse(err)
	attrs = append([]any{slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error())}, attrs...)
	if status >= http.StatusInternalServerError {
		slog.Error(msg, attrs...)
	} else {
		slog.Warn(msg, attrs...)
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes a size-limited request body into v.
func bindJSON(c *gin.Context, v any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(v); err != nil {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return false
	}
	return true
}

func (h *Handler) claims(c *gin.Context) (auth.Claims, bool) {
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return claims, ok
}
