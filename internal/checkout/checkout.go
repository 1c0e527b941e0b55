package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"storefront/internal/cart"
	"storefront/internal/orders"
	"storefront/pkg/ctxmanage"
	"storefront/pkg/logkey"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ShippingFee = decimal.NewFromInt(500)
	TaxRate     = decimal.New(1, -1)
)

type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// QuoteFor prices a cart of totalItems units: flat shipping plus tax on the
// subtotal. An empty cart owes nothing.
func QuoteFor(totalItems int, subtotal decimal.Decimal) Quote {
	if totalItems <= 0 {
		return Quote{Subtotal: subtotal, Shipping: decimal.Zero, Tax: decimal.Zero, Total: decimal.Zero}
	}
	tax := subtotal.Mul(TaxRate)
	return Quote{
		Subtotal: subtotal,
		Shipping: ShippingFee,
		Tax:      tax,
		Total:    subtotal.Add(ShippingFee).Add(tax),
	}
}

// OrderPublisher is told about every order checkout creates.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, o orders.Order) error
}

type session struct {
	state     State
	address   *orders.Address
	method    orders.PaymentMethod
	upiHandle string
	order     *orders.Order
	lastError string
	// settled is set once the processor has taken the money, so a retry
	// after a storage failure does not charge again.
	settled *settlement
	// gen increments on every address submission so a slow serviceability
	// answer for an older address is dropped.
	gen uint64
}

type settlement struct {
	snapshot *cart.CartResponse
	quote    Quote
	method   orders.PaymentMethod
	result   PaymentResult
}

// View is the externally visible checkout state of one user.
type View struct {
	State         State                `json:"state"`
	Address       *orders.Address      `json:"address,omitempty"`
	PaymentMethod orders.PaymentMethod `json:"payment_method,omitempty"`
	Cart          *cart.CartResponse   `json:"cart"`
	Quote         Quote                `json:"quote"`
	Order         *orders.Order        `json:"order,omitempty"`
	LastError     string               `json:"last_error,omitempty"`
}

type Deps struct {
	Carts          *cart.Conf
	Orders         *orders.Conf
	Serviceability Serviceability
	Payments       PaymentProcessor
	// Publisher may be nil.
	Publisher      OrderPublisher
	PincodeTimeout time.Duration
}

// Conf runs one checkout session per user. Steps on a session are
// serialised by mu; slow work (serviceability, payment) runs unlocked and
// re-validates the session afterwards.
type Conf struct {
	carts          *cart.Conf
	orders         *orders.Conf
	svc            Serviceability
	payments       PaymentProcessor
	publisher      OrderPublisher
	pincodeTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*session
}

func NewConf(d Deps) (*Conf, error) {
	if d.Carts == nil || d.Orders == nil {
		return nil, errors.New("checkout needs a cart store and an order store")
	}
	if d.Serviceability == nil {
		return nil, errors.New("checkout needs a serviceability checker")
	}
	if d.Payments == nil {
		return nil, errors.New("checkout needs a payment processor")
	}
	if d.PincodeTimeout <= 0 {
		d.PincodeTimeout = 3 * time.Second
	}
	return &Conf{
		carts:          d.Carts,
		orders:         d.Orders,
		svc:            d.Serviceability,
		payments:       d.Payments,
		publisher:      d.Publisher,
		pincodeTimeout: d.PincodeTimeout,
		sessions:       make(map[string]*session),
	}, nil
}

// View returns the user's checkout state. Users without a session are
// Browsing.
func (c *Conf) View(userID string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked(userID)
}

func (c *Conf) viewLocked(userID string) View {
	items := c.carts.GetActiveCartItems(userID)
	v := View{State: StateBrowsing, Cart: items, Quote: QuoteFor(items.TotalItems, items.TotalPrice)}
	s, ok := c.sessions[userID]
	if !ok {
		return v
	}
	v.State = s.state
	v.PaymentMethod = s.method
	v.LastError = s.lastError
	if s.address != nil {
		a := *s.address
		v.Address = &a
	}
	if s.order != nil {
		o := *s.order
		v.Order = &o
		v.Quote = QuoteFor(0, decimal.Zero)
	}
	return v
}

// Begin enters address entry. It is idempotent while the user is already
// filling in the form.
func (c *Conf) Begin(userID string) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions[userID]; ok {
		switch s.state {
		case StateAddressEntry, StatePaymentSelection:
			return c.viewLocked(userID), nil
		case StateProcessing, StateSucceeded:
			return View{}, ErrCheckoutInProgress
		case StateFailed:
			return View{}, fmt.Errorf("%w: retry payment or cancel", ErrInvalidTransition)
		}
	}
	if c.carts.GetActiveCartItems(userID).TotalItems == 0 {
		return View{}, ErrEmptyCart
	}
	c.sessions[userID] = &session{state: StateAddressEntry}
	return c.viewLocked(userID), nil
}

// SubmitAddress validates addr and checks its pincode. Any new submission
// resets the session to address entry until the check passes. A failed
// check leaves the session in address entry with the cart untouched.
func (c *Conf) SubmitAddress(ctx context.Context, userID string, addr orders.Address) (View, error) {
	c.mu.Lock()
	s, ok := c.sessions[userID]
	if !ok || (s.state != StateAddressEntry && s.state != StatePaymentSelection) {
		c.mu.Unlock()
		return View{}, c.transitionError(s)
	}
	s.state = StateAddressEntry
	s.address = nil
	s.gen++
	gen := s.gen
	c.mu.Unlock()

	addr, err := ValidateAddress(addr)
	if err != nil {
		return View{}, err
	}

	cctx, cancel := context.WithTimeout(ctx, c.pincodeTimeout)
	defer cancel()
	serviceable, err := c.svc.IsServiceable(cctx, addr.Pincode)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.sessions[userID]; !ok || cur != s || s.gen != gen || s.state != StateAddressEntry {
		return View{}, ErrSuperseded
	}
	if err != nil {
		return View{}, fmt.Errorf("checking pincode %s: %w", addr.Pincode, err)
	}
	if !serviceable {
		return View{}, &ValidationError{
			Field:   "pincode",
			Message: "Sorry, we don't deliver to this pincode yet.",
			Err:     ErrServiceabilityDenied,
		}
	}
	s.address = &addr
	s.state = StatePaymentSelection
	return c.viewLocked(userID), nil
}

// SelectPayment records the payment method. After a failed payment it
// returns the session to payment selection.
func (c *Conf) SelectPayment(userID string, method orders.PaymentMethod, upiHandle string) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[userID]
	if !ok || (s.state != StatePaymentSelection && s.state != StateFailed) {
		return View{}, c.transitionError(s)
	}
	if err := ValidatePayment(method, upiHandle); err != nil {
		return View{}, err
	}
	s.method = method
	s.upiHandle = ""
	if method.IsUPI() {
		s.upiHandle = strings.TrimSpace(upiHandle)
	}
	s.state = StatePaymentSelection
	s.lastError = ""
	return c.viewLocked(userID), nil
}

// Pay settles the cart with the selected method, stores the order, takes
// the paid items out of the cart and confirms. A second Pay while one is
// running fails with ErrCheckoutInProgress. A processor error leaves the
// cart as it was and the session in Failed. If the order could not be
// stored after the payment went through, Pay may be called again from
// Failed and stores the same payment without charging twice.
func (c *Conf) Pay(ctx context.Context, userID string) (orders.Order, error) {
	traceId := ctxmanage.TraceIdFromContext(ctx)

	c.mu.Lock()
	s, ok := c.sessions[userID]
	if ok && s.settled != nil && (s.state == StateFailed || s.state == StatePaymentSelection) {
		s.state = StateProcessing
		settled := *s.settled
		addr := *s.address
		c.mu.Unlock()
		slog.Info("storing previously settled payment", slog.String(logkey.TraceID, traceId), slog.String(logkey.UserID, userID))
		return c.placeOrder(ctx, traceId, userID, s, addr, settled)
	}
	if !ok || s.state != StatePaymentSelection {
		c.mu.Unlock()
		return orders.Order{}, c.transitionError(s)
	}
	if s.address == nil {
		c.mu.Unlock()
		return orders.Order{}, &ValidationError{Field: "address", Message: "Please fill in all address fields."}
	}
	if s.method == "" {
		c.mu.Unlock()
		return orders.Order{}, &ValidationError{Field: "payment_method", Message: "Please select a payment method."}
	}
	snapshot := c.carts.GetActiveCartItems(userID)
	if len(snapshot.Items) == 0 {
		c.mu.Unlock()
		return orders.Order{}, ErrEmptyCart
	}
	s.state = StateProcessing
	addr := *s.address
	method, handle := s.method, s.upiHandle
	c.mu.Unlock()

	quote := QuoteFor(snapshot.TotalItems, snapshot.TotalPrice)
	res, err := c.payments.Process(ctx, PaymentRequest{
		Reference: uuid.NewString(),
		UserID:    userID,
		Method:    method,
		UPIHandle: handle,
		Amount:    quote.Total,
	})
	if err != nil {
		slog.Error("payment failed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.fail(userID, s, err)
		return orders.Order{}, fmt.Errorf("%w: %w", ErrPaymentFailed, err)
	}
	settled := settlement{snapshot: snapshot, quote: quote, method: method, result: res}
	c.mu.Lock()
	if cur, ok := c.sessions[userID]; ok && cur == s {
		s.state = StateSucceeded
		s.settled = &settled
	}
	c.mu.Unlock()

	return c.placeOrder(ctx, traceId, userID, s, addr, settled)
}

func (c *Conf) placeOrder(ctx context.Context, traceId, userID string, s *session, addr orders.Address, settled settlement) (orders.Order, error) {
	snapshot := settled.snapshot
	items := make([]orders.Item, 0, len(snapshot.Items))
	for _, it := range snapshot.Items {
		items = append(items, orders.Item{Product: it.Product, Quantity: it.Quantity})
	}
	// The money has moved; a client hanging up now must not lose the order.
	persistCtx := context.WithoutCancel(ctx)
	order, err := c.orders.CreateOrder(persistCtx, orders.Order{
		UserID:           userID,
		Items:            items,
		Total:            settled.quote.Total,
		Address:          addr,
		PaymentMethod:    settled.method,
		PaymentReference: settled.result.Reference,
	})
	if err != nil {
		slog.Error("storing order failed", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.UserID, userID), slog.String(logkey.ERROR, err.Error()))
		c.fail(userID, s, err)
		return orders.Order{}, err
	}

	if c.publisher != nil {
		if err := c.publisher.PublishOrderPlaced(persistCtx, order); err != nil {
			slog.Error("publishing order event failed", slog.String(logkey.TraceID, traceId),
				slog.Int64(logkey.OrderID, order.ID), slog.String(logkey.ERROR, err.Error()))
		}
	}

	c.carts.RemoveItems(userID, snapshot.Items)

	c.mu.Lock()
	if cur, ok := c.sessions[userID]; ok && cur == s {
		s.state = StateConfirmed
		s.order = &order
		s.settled = nil
	}
	c.mu.Unlock()

	slog.Info("order placed", slog.String(logkey.TraceID, traceId),
		slog.Int64(logkey.OrderID, order.ID), slog.String(logkey.UserID, userID),
		slog.String("Total", order.Total.StringFixed(2)))
	return order, nil
}

// Cancel abandons checkout and discards the address and payment choice.
// It is refused while a payment is running.
func (c *Conf) Cancel(userID string) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[userID]
	if !ok {
		return c.viewLocked(userID), nil
	}
	if !s.state.Cancellable() {
		return View{}, c.transitionError(s)
	}
	if s.settled != nil {
		return View{}, fmt.Errorf("%w: payment already taken, retry to store the order", ErrInvalidTransition)
	}
	delete(c.sessions, userID)
	return c.viewLocked(userID), nil
}

// Finish leaves the confirmation and returns the user to browsing.
func (c *Conf) Finish(userID string) (View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[userID]
	if !ok || s.state != StateConfirmed {
		return View{}, c.transitionError(s)
	}
	delete(c.sessions, userID)
	return c.viewLocked(userID), nil
}

func (c *Conf) fail(userID string, s *session, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.sessions[userID]; ok && cur == s {
		s.state = StateFailed
		s.lastError = err.Error()
	}
}

func (c *Conf) transitionError(s *session) error {
	if s == nil {
		return fmt.Errorf("%w: checkout not started", ErrInvalidTransition)
	}
	switch s.state {
	case StateProcessing, StateSucceeded:
		return ErrCheckoutInProgress
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, s.state)
}
