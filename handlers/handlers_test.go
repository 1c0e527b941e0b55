package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/checkout"
	"storefront/internal/orders"
	"storefront/internal/stores/kv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("GIN_MODE", gin.TestMode)
	os.Exit(m.Run())
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testServer struct {
	r      http.Handler
	clock  *clock
	carts  *cart.Conf
	orders *orders.Conf
}

func newServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	cat, err := catalog.LoadDefault(ctx, 0)
	require.NoError(t, err)

	keys, err := auth.NewKeys([]byte("test-secret"))
	require.NoError(t, err)
	users := auth.NewService(keys, time.Hour)
	for _, u := range []struct {
		nu   auth.NewUser
		role string
	}{
		{auth.NewUser{Username: "admin", Email: "admin@simpleshop.com", Password: "adminpass1"}, auth.RoleAdmin},
		{auth.NewUser{Username: "bob", Email: "bob@example.com", Password: "bobpassword"}, auth.RoleUser},
		{auth.NewUser{Username: "carol", Email: "carol@example.com", Password: "carolpassword"}, auth.RoleUser},
	} {
		_, err := users.AddUser(u.nu, u.role)
		require.NoError(t, err)
	}

	// 10:00 IST on 28 May 2025.
	clk := &clock{t: time.Date(2025, 5, 28, 4, 30, 0, 0, time.UTC)}
	oc, err := orders.NewConf(orders.NewKVRepository(kv.NewMemory()), clk.Now)
	require.NoError(t, err)

	carts := cart.NewConf()
	co, err := checkout.NewConf(checkout.Deps{
		Carts:          carts,
		Orders:         oc,
		Serviceability: checkout.NewPincodeAllowList(0),
		Payments:       checkout.SimulatedProcessor{},
	})
	require.NoError(t, err)

	r := API("/v1", Deps{
		Catalog:  cat,
		Carts:    carts,
		Checkout: co,
		Orders:   oc,
		Users:    users,
		Keys:     keys,
	})
	return &testServer{r: r, clock: clk, carts: carts, orders: oc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, username, password string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var mumbai = gin.H{
	"full_name":      "Bob Kumar",
	"street_address": "12 MG Road",
	"city":           "Mumbai",
	"state":          "Maharashtra",
	"pincode":        "400001",
	"phone":          "9876543210",
}

// placeOrder runs the whole checkout for token and returns the order.
func (s *testServer) placeOrder(t *testing.T, token, productID string, qty int) orders.Order {
	t.Helper()
	w := s.do(t, http.MethodPost, "/v1/cart/items", token, gin.H{"product_id": productID, "quantity": qty})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/v1/checkout/begin", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/v1/checkout/address", token, mumbai)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/v1/checkout/payment", token, gin.H{"payment_method": "COD"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(t, http.MethodPost, "/v1/checkout/pay", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[struct {
		Order orders.Order `json:"order"`
	}](t, w)
	w = s.do(t, http.MethodPost, "/v1/checkout/finish", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return resp.Order
}

func TestPing(t *testing.T) {
	s := newServer(t)
	w := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestProducts(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodGet, "/v1/products?category=Books&sort=price-desc", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Products []catalog.Product `json:"products"`
		Count    int               `json:"count"`
	}](t, w)
	assert.Equal(t, 3, list.Count)
	assert.Equal(t, "11", list.Products[0].ID)

	w = s.do(t, http.MethodGet, "/v1/products?min_price=20000", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	for _, p := range decode[struct {
		Products []catalog.Product `json:"products"`
	}](t, w).Products {
		assert.True(t, p.Price.GreaterThanOrEqual(decimal.NewFromInt(20000)), p.ID)
	}

	for _, path := range []string{"/v1/products?q=smoothies", "/v1/products?search=SMOOTHIES"} {
		w = s.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		found := decode[struct {
			Products []catalog.Product `json:"products"`
			Count    int               `json:"count"`
		}](t, w)
		assert.Equal(t, 1, found.Count, path)
	}

	tests := []struct {
		path string
		want int
	}{
		{"/v1/products?min_price=cheap", http.StatusBadRequest},
		{"/v1/products?sort=random", http.StatusBadRequest},
		{"/v1/products/1", http.StatusOK},
		{"/v1/products/99", http.StatusNotFound},
		{"/v1/products/categories", http.StatusOK},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.do(t, http.MethodGet, tt.path, "", nil).Code, tt.path)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t)

	w := s.do(t, http.MethodPost, "/v1/auth/register", "", gin.H{"username": "dave", "email": "dave@example.com", "password": "davepassword"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := s.login(t, "dave", "davepassword")

	w = s.do(t, http.MethodGet, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"USER"`)

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"duplicate", gin.H{"username": "DAVE", "email": "d2@example.com", "password": "davepassword"}, http.StatusConflict},
		{"short password", gin.H{"username": "erin", "email": "erin@example.com", "password": "short"}, http.StatusBadRequest},
		{"bad email", gin.H{"username": "erin", "email": "erin", "password": "erinpassword"}, http.StatusBadRequest},
		{"missing username", gin.H{"email": "erin@example.com", "password": "erinpassword"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/v1/auth/register", "", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	w = s.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"username": "admin", "password": "admin"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthGate(t *testing.T) {
	s := newServer(t)
	bob := s.login(t, "bob", "bobpassword")
	admin := s.login(t, "admin", "adminpass1")

	w := s.do(t, http.MethodGet, "/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"login"`)

	w = s.do(t, http.MethodGet, "/v1/admin/summary", bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/v1/admin/summary", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[struct {
		Products int `json:"products"`
		Users    int `json:"users"`
	}](t, w)
	assert.Equal(t, 12, summary.Products)
	assert.Equal(t, 3, summary.Users)

	w = s.do(t, http.MethodGet, "/v1/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = s.do(t, http.MethodPost, "/v1/auth/logout", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/v1/cart", bob, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartValidation(t *testing.T) {
	s := newServer(t)
	bob := s.login(t, "bob", "bobpassword")

	tests := []struct {
		name string
		body gin.H
		want int
	}{
		{"zero quantity", gin.H{"product_id": "1", "quantity": 0}, http.StatusBadRequest},
		{"negative quantity", gin.H{"product_id": "1", "quantity": -2}, http.StatusBadRequest},
		{"unknown product", gin.H{"product_id": "99", "quantity": 1}, http.StatusNotFound},
		{"over stock", gin.H{"product_id": "1", "quantity": 16}, http.StatusConflict},
		{"ok", gin.H{"product_id": "1", "quantity": 15}, http.StatusOK},
		{"over stock with cart", gin.H{"product_id": "1", "quantity": 1}, http.StatusConflict},
	}
	for _, tt := range tests {
		w := s.do(t, http.MethodPost, "/v1/cart/items", bob, tt.body)
		assert.Equal(t, tt.want, w.Code, "%s: %s", tt.name, w.Body.String())
	}

	w := s.do(t, http.MethodPut, "/v1/cart/items/1", bob, gin.H{"quantity": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[cart.CartResponse](t, w).TotalItems)

	w = s.do(t, http.MethodPut, "/v1/cart/items/2", bob, gin.H{"quantity": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/v1/cart/items/1", bob, gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[cart.CartResponse](t, w).Items)
}

func TestCheckoutFlow(t *testing.T) {
	s := newServer(t)
	bob := s.login(t, "bob", "bobpassword")

	w := s.do(t, http.MethodPost, "/v1/checkout/begin", bob, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "empty cart")

	w = s.do(t, http.MethodPost, "/v1/cart/items", bob, gin.H{"product_id": "1", "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/v1/checkout/begin", bob, nil).Code)

	blocked := gin.H{}
	for k, v := range mumbai {
		blocked[k] = v
	}
	blocked["pincode"] = "999999"
	w = s.do(t, http.MethodPost, "/v1/checkout/address", bob, blocked)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"pincode"`)

	w = s.do(t, http.MethodPost, "/v1/checkout/address", bob, gin.H{"full_name": "Bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/v1/checkout/payment", bob, gin.H{"payment_method": "UPI", "upi_id": "bob@hdfc"})
	assert.Equal(t, http.StatusConflict, w.Code, "payment before address")

	w = s.do(t, http.MethodPost, "/v1/checkout/address", bob, mumbai)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[checkout.View](t, w)
	assert.Equal(t, checkout.StatePaymentSelection, view.State)
	assert.True(t, view.Quote.Total.Equal(decimal.RequireFromString("16997.8")), view.Quote.Total.String())

	w = s.do(t, http.MethodPost, "/v1/checkout/payment", bob, gin.H{"payment_method": "GooglePay", "upi_id": "bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"upi_id"`)

	w = s.do(t, http.MethodPost, "/v1/checkout/payment", bob, gin.H{"payment_method": "UPI", "upi_id": "bob@hdfc"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/v1/checkout/pay", bob, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := decode[struct {
		Order   orders.Order `json:"order"`
		Display string       `json:"order_date_display"`
	}](t, w)
	assert.Equal(t, "28/5/2025", placed.Display)
	assert.Equal(t, orders.StatusPending, placed.Order.Status)
	assert.True(t, placed.Order.Total.Equal(decimal.RequireFromString("16997.8")))

	w = s.do(t, http.MethodGet, "/v1/cart", bob, nil)
	assert.Zero(t, decode[cart.CartResponse](t, w).TotalItems)
	w = s.do(t, http.MethodGet, "/v1/checkout", bob, nil)
	assert.Equal(t, checkout.StateConfirmed, decode[checkout.View](t, w).State)

	type listing struct {
		Orders []orders.Order `json:"orders"`
		Counts map[string]int `json:"counts"`
	}
	w = s.do(t, http.MethodGet, "/v1/orders", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[listing](t, w)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, 1, got.Counts["All"])
	assert.Equal(t, 1, got.Counts["PENDING"])

	s.clock.Advance(3 * 24 * time.Hour)
	w = s.do(t, http.MethodGet, "/v1/orders?status=SHIPPED", bob, nil)
	got = decode[listing](t, w)
	require.Len(t, got.Orders, 1)
	assert.Equal(t, orders.StatusShipped, got.Orders[0].Status)

	w = s.do(t, http.MethodGet, "/v1/orders?q=28/5/2025", bob, nil)
	assert.Len(t, decode[listing](t, w).Orders, 1)
	w = s.do(t, http.MethodGet, "/v1/orders?q=1/1/2020", bob, nil)
	assert.Empty(t, decode[listing](t, w).Orders)
	w = s.do(t, http.MethodGet, "/v1/orders?status=LOST", bob, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	carol := s.login(t, "carol", "carolpassword")
	w = s.do(t, http.MethodGet, "/v1/orders", carol, nil)
	assert.Empty(t, decode[listing](t, w).Orders)
}

func TestCheckoutCancel(t *testing.T) {
	s := newServer(t)
	bob := s.login(t, "bob", "bobpassword")

	s.do(t, http.MethodPost, "/v1/cart/items", bob, gin.H{"product_id": "3", "quantity": 1})
	s.do(t, http.MethodPost, "/v1/checkout/begin", bob, nil)
	s.do(t, http.MethodPost, "/v1/checkout/address", bob, mumbai)

	w := s.do(t, http.MethodPost, "/v1/checkout/cancel", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode[checkout.View](t, w)
	assert.Equal(t, checkout.StateBrowsing, view.State)
	assert.Equal(t, 1, view.Cart.TotalItems)

	w = s.do(t, http.MethodPost, "/v1/checkout/pay", bob, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrderOwnership(t *testing.T) {
	s := newServer(t)
	bob := s.login(t, "bob", "bobpassword")
	order := s.placeOrder(t, bob, "2", 1)
	path := "/v1/orders/" + strconv.FormatInt(order.ID, 10)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path, bob, nil).Code)
	carol := s.login(t, "carol", "carolpassword")
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, carol, nil).Code)
	admin := s.login(t, "admin", "adminpass1")
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, path, admin, nil).Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/v1/orders/abc", bob, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/v1/orders/42", bob, nil).Code)
}

func TestAdminStatusOverride(t *testing.T) {
	s := newServer(t)
	bob := s.login(t, "bob", "bobpassword")
	admin := s.login(t, "admin", "adminpass1")
	order := s.placeOrder(t, bob, "5", 2)
	path := "/v1/admin/orders/" + strconv.FormatInt(order.ID, 10) + "/status"

	w := s.do(t, http.MethodPut, path, admin, gin.H{"status": "DELIVERED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[orders.Order](t, w).StatusOverride)

	s.clock.Advance(24 * time.Hour)
	w = s.do(t, http.MethodGet, "/v1/orders/"+strconv.FormatInt(order.ID, 10), bob, nil)
	assert.Equal(t, orders.StatusDelivered, decode[orders.Order](t, w).Status)

	w = s.do(t, http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := decode[orders.Order](t, w)
	assert.False(t, cleared.StatusOverride)
	assert.Equal(t, orders.StatusProcessing, cleared.Status)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, path, admin, gin.H{"status": "LOST"}).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPut, "/v1/admin/orders/42/status", admin, gin.H{"status": "SHIPPED"}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodPut, path, bob, gin.H{"status": "SHIPPED"}).Code)

	w = s.do(t, http.MethodGet, "/v1/admin/orders?q=bob%20kumar", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Orders []orders.Order `json:"orders"`
	}](t, w).Orders, 1)
}
