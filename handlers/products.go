package handlers

import (
	"log/slog"
	"net/http"

	"storefront/internal/catalog"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListProducts serves GET /products with optional category, q (alias
// search), min_price, max_price and sort query parameters.
func (h *Handler) ListProducts(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	q := catalog.Query{
		Category: c.Query("category"),
		Search:   c.DefaultQuery("q", c.Query("search")),
		Sort:     c.Query("sort"),
	}
	for param, dst := range map[string]**decimal.Decimal{"min_price": &q.MinPrice, "max_price": &q.MaxPrice} {
		raw := c.Query(param)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			slog.Error("invalid price filter", slog.String(logkey.TraceID, traceId), slog.String(param, raw))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": param + " must be a number"})
			return
		}
		*dst = &d
	}

	products, err := h.catalog.ListProducts(q)
	if err != nil {
		abortWithError(c, "error listing products", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
}

func (h *Handler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalog.Categories()})
}

func (h *Handler) GetProduct(c *gin.Context) {
	productID := c.Param("id")
	product, err := h.catalog.GetProduct(productID)
	if err != nil {
		abortWithError(c, "error retrieving product", err, slog.String("ProductID", productID))
		return
	}
	c.JSON(http.StatusOK, product)
}
