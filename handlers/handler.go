package handlers

import (
	"net/http"
	"os"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/orders"
	"storefront/middleware"
	"storefront/pkg/ctxmanage"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ProductCatalog is the read side of the catalog the API serves.
type ProductCatalog interface {
	catalog.Source
	Categories() []string
	Len() int
}

type Deps struct {
	Catalog  ProductCatalog
	Carts    *cart.Conf
	Checkout *checkout.Conf
	Orders   *orders.Conf
	Users    *auth.Service
	Keys     *auth.Keys
	// Events receives payment confirmations from the webhook. Optional.
	Events OrderEvents
	// WebhookSecret verifies Stripe-Signature headers. Unsigned events are
	// accepted when empty.
	WebhookSecret string
	// Location order dates are displayed and searched in. Defaults to IST.
	Location *time.Location
}

type Handler struct {
	catalog  ProductCatalog
	cConf    *cart.Conf
	checkout *checkout.Conf
	o        *orders.Conf
	users    *auth.Service
	events   OrderEvents
	secret   string
	validate *validator.Validate
	loc      *time.Location
}

func NewHandler(d Deps) *Handler {
	loc := d.Location
	if loc == nil {
		loc = orders.IST
	}
	return &Handler{
		catalog:  d.Catalog,
		cConf:    d.Carts,
		checkout: d.Checkout,
		o:        d.Orders,
		users:    d.Users,
		events:   d.Events,
		secret:   d.WebhookSecret,
		validate: validator.New(),
		loc:      loc,
	}
}

func API(endpointPrefix string, d Deps) *gin.Engine {
	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode || mode == gin.TestMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	m, err := middleware.NewMid(d.Keys)
	if err != nil {
		panic(err)
	}

	h := NewHandler(d)
	r.Use(middleware.Logger(), gin.Recovery())
	r.GET("/ping", healthCheck)

	v1 := r.Group(endpointPrefix)
	{
		v1.POST("/auth/register", h.Register)
		v1.POST("/auth/login", h.Login)

		v1.GET("/products", h.ListProducts)
		v1.GET("/products/categories", h.ListCategories)
		v1.GET("/products/:id", h.GetProduct)

		v1.POST("/webhook", h.Webhook)
	}

	shop := r.Group(endpointPrefix)
	{
		shop.Use(m.Authentication())
		shop.POST("/auth/logout", h.Logout)
		shop.GET("/me", m.Authorize(h.Me, auth.RoleUser, auth.RoleAdmin))

		shop.GET("/cart", m.Authorize(h.GetActiveCartItems, auth.RoleUser, auth.RoleAdmin))
		shop.POST("/cart/items", m.Authorize(h.AddToCart, auth.RoleUser, auth.RoleAdmin))
		shop.PUT("/cart/items/:productID", m.Authorize(h.UpdateCartItem, auth.RoleUser, auth.RoleAdmin))
		shop.DELETE("/cart/items/:productID", m.Authorize(h.RemoveCartItem, auth.RoleUser, auth.RoleAdmin))
		shop.DELETE("/cart", m.Authorize(h.ClearCart, auth.RoleUser, auth.RoleAdmin))

		shop.GET("/checkout", m.Authorize(h.CheckoutStatus, auth.RoleUser, auth.RoleAdmin))
		shop.POST("/checkout/begin", m.Authorize(h.BeginCheckout, auth.RoleUser, auth.RoleAdmin))
		shop.POST("/checkout/address", m.Authorize(h.SubmitAddress, auth.RoleUser, auth.RoleAdmin))
		shop.POST("/checkout/payment", m.Authorize(h.SelectPayment, auth.RoleUser, auth.RoleAdmin))
		shop.POST("/checkout/pay", m.Authorize(h.Pay, auth.RoleUser, auth.RoleAdmin))
		shop.POST("/checkout/cancel", m.Authorize(h.CancelCheckout, auth.RoleUser, auth.RoleAdmin))
		shop.POST("/checkout/finish", m.Authorize(h.FinishCheckout, auth.RoleUser, auth.RoleAdmin))

		shop.GET("/orders", m.Authorize(h.ListOrders, auth.RoleUser, auth.RoleAdmin))
		shop.GET("/orders/:id", m.Authorize(h.GetOrder, auth.RoleUser, auth.RoleAdmin))
	}

	admin := r.Group(endpointPrefix + "/admin")
	{
		admin.Use(m.Authentication())
		admin.GET("/summary", m.Authorize(h.AdminSummary, auth.RoleAdmin))
		admin.GET("/orders", m.Authorize(h.AdminListOrders, auth.RoleAdmin))
		admin.PUT("/orders/:id/status", m.Authorize(h.OverrideOrderStatus, auth.RoleAdmin))
		admin.DELETE("/orders/:id/status", m.Authorize(h.ClearOrderStatusOverride, auth.RoleAdmin))
		admin.GET("/users", m.Authorize(h.ListUsers, auth.RoleAdmin))
	}

	return r
}

func healthCheck(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "trace_id": traceId})
}
