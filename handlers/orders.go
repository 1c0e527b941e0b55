package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"storefront/internal/orders"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

type orderView struct {
	orders.Order
	OrderDateDisplay string `json:"order_date_display"`
	ItemCount        int    `json:"item_count"`
}

func (h *Handler) views(list []orders.Order) []orderView {
	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, orderView{
			Order:            o,
			OrderDateDisplay: orders.FormatOrderDate(o.OrderDate, h.loc),
			ItemCount:        o.ItemCount(),
		})
	}
	return out
}

// ListOrders serves the caller's order history. status selects a tab and q
// searches order ids and displayed order dates. counts always covers every
// order of the caller.
func (h *Handler) ListOrders(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}

	status := c.Query("status")
	if status != "" && status != orders.StatusAll && !orders.Status(status).Valid() {
		abortWithError(c, "invalid status filter", fmt.Errorf("%q: %w", status, orders.ErrInvalidStatus))
		return
	}

	list, err := h.o.ListOrders(c.Request.Context())
	if err != nil {
		abortWithError(c, "error listing orders", err, slog.String(logkey.UserID, claims.Subject))
		return
	}
	mine := orders.FilterOrders(list, orders.Filter{UserID: claims.Subject}, h.loc)
	shown := orders.FilterOrders(mine, orders.Filter{Status: status, Query: c.Query("q")}, h.loc)

	c.JSON(http.StatusOK, gin.H{
		"orders": h.views(shown),
		"counts": orders.CountByStatus(mine),
	})
}

// GetOrder returns one order. Other users' orders are reported as missing
// unless the caller is an admin.
func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	id, ok := orderID(c)
	if !ok {
		return
	}

	order, err := h.o.GetOrder(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "error retrieving order", err, slog.Int64(logkey.OrderID, id))
		return
	}
	if order.UserID != claims.Subject && !claims.IsAdmin() {
		slog.Warn("order belongs to another user", slog.String(logkey.TraceID, traceId),
			slog.Int64(logkey.OrderID, id), slog.String(logkey.UserID, claims.Subject))
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, h.views([]orders.Order{order})[0])
}

func orderID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		traceId := ctxmanage.GetTraceIdOfRequest(c)
		slog.Error("invalid order id", slog.String(logkey.TraceID, traceId), slog.String(logkey.OrderID, raw))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Order ID must be a positive number"})
		return 0, false
	}
	return id, true
}
