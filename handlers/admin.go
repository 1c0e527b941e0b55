package handlers

import (
	"log/slog"
	"net/http"

	"storefront/internal/orders"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AdminSummary(c *gin.Context) {
	list, err := h.o.ListOrders(c.Request.Context())
	if err != nil {
		abortWithError(c, "error listing orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"products": h.catalog.Len(),
		"orders":   len(list),
		"users":    len(h.users.Users()),
		"revenue":  orders.Revenue(list),
		"counts":   orders.CountByStatus(list),
	})
}

// AdminListOrders lists every order, optionally searched by id or customer
// name through q.
func (h *Handler) AdminListOrders(c *gin.Context) {
	list, err := h.o.ListOrders(c.Request.Context())
	if err != nil {
		abortWithError(c, "error listing orders", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": h.views(orders.SearchAdmin(list, c.Query("q")))})
}

func (h *Handler) OverrideOrderStatus(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	id, ok := orderID(c)
	if !ok {
		return
	}
	var request struct {
		Status orders.Status `json:"status"`
	}
	if !bindJSON(c, &request) {
		return
	}

	order, err := h.o.OverrideStatus(c.Request.Context(), id, request.Status)
	if err != nil {
		abortWithError(c, "error overriding order status", err, slog.Int64(logkey.OrderID, id))
		return
	}
	slog.Info("order status overridden", slog.String(logkey.TraceID, traceId),
		slog.Int64(logkey.OrderID, id), slog.String("Status", string(order.Status)))
	c.JSON(http.StatusOK, h.views([]orders.Order{order})[0])
}

func (h *Handler) ClearOrderStatusOverride(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := h.o.ClearOverride(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "error clearing order status override", err, slog.Int64(logkey.OrderID, id))
		return
	}
	c.JSON(http.StatusOK, h.views([]orders.Order{order})[0])
}

func (h *Handler) ListUsers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"users": h.users.Users()})
}
