package handlers

import (
	"log/slog"
	"net/http"

	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AddToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	userId := claims.Subject

	var request struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if !bindJSON(c, &request) {
		return
	}
	if request.ProductID == "" || request.Quantity <= 0 {
		slog.Error("invalid product ID or quantity", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Product ID and quantity must be valid", "field": "quantity"})
		return
	}

	product, err := h.catalog.GetProduct(request.ProductID)
	if err != nil {
		abortWithError(c, "error fetching product", err, slog.String("ProductID", request.ProductID))
		return
	}

	inCart := h.cConf.QuantityOf(userId, product.ID)
	if inCart+request.Quantity > product.Stock {
		slog.Error("insufficient stock", slog.String(logkey.TraceID, traceId),
			slog.String("ProductID", product.ID), slog.Int("Requested", request.Quantity),
			slog.Int("InCart", inCart), slog.Int("Available", product.Stock))
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Insufficient stock available"})
		return
	}

	qty := h.cConf.AddToCart(userId, product, request.Quantity)

	slog.Info("product added to cart", slog.String(logkey.TraceID, traceId),
		slog.String("ProductID", product.ID), slog.Int("Quantity", qty), slog.String(logkey.UserID, userId))
	c.JSON(http.StatusOK, h.cConf.GetActiveCartItems(userId))
}

// UpdateCartItem sets a line's quantity. Zero or less removes the line.
func (h *Handler) UpdateCartItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	userId := claims.Subject
	productID := c.Param("productID")

	var request struct {
		Quantity *int `json:"quantity"`
	}
	if !bindJSON(c, &request) {
		return
	}
	if request.Quantity == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "quantity value missing", "field": "quantity"})
		return
	}

	if h.cConf.QuantityOf(userId, productID) == 0 {
		slog.Warn("cart line not found", slog.String(logkey.TraceID, traceId), slog.String("ProductID", productID))
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product is not in the cart"})
		return
	}
	if *request.Quantity > 0 {
		product, err := h.catalog.GetProduct(productID)
		if err != nil {
			abortWithError(c, "error fetching product", err, slog.String("ProductID", productID))
			return
		}
		if *request.Quantity > product.Stock {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Insufficient stock available"})
			return
		}
	}

	h.cConf.UpdateQuantity(userId, productID, *request.Quantity)
	c.JSON(http.StatusOK, h.cConf.GetActiveCartItems(userId))
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	h.cConf.RemoveFromCart(claims.Subject, c.Param("productID"))
	c.JSON(http.StatusOK, h.cConf.GetActiveCartItems(claims.Subject))
}

func (h *Handler) ClearCart(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	h.cConf.ClearCart(claims.Subject)
	c.JSON(http.StatusOK, h.cConf.GetActiveCartItems(claims.Subject))
}

func (h *Handler) GetActiveCartItems(c *gin.Context) {
	claims, ok := h.claims(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.cConf.GetActiveCartItems(claims.Subject))
}
