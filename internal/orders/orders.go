package orders

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
)

// Conf is the order store. Every operation is a load-modify-save cycle over
// the repository, serialised by mu.
type Conf struct {
	repo Repository
	now  func() time.Time
	mu   sync.Mutex
}

func NewConf(repo Repository, now func() time.Time) (*Conf, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository is nil")
	}
	if now == nil {
		now = time.Now
	}
	return &Conf{repo: repo, now: now}, nil
}

func (c *Conf) Now() time.Time { return c.now() }

// CreateOrder stores o. The id is o.ID when set, otherwise the current time
// in milliseconds; it is bumped until it collides with no stored order.
// Status and delivery estimate are filled from the order date.
func (c *Conf) CreateOrder(ctx context.Context, o Order) (Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.repo.LoadOrders(ctx)
	if err != nil {
		return Order{}, err
	}

	if o.OrderDate.IsZero() {
		o.OrderDate = c.now()
	}
	if o.EstimatedDeliveryDate.IsZero() {
		o.EstimatedDeliveryDate = o.OrderDate.Add(DeliveryWindow)
	}
	if o.ID == 0 {
		o.ID = o.OrderDate.UnixMilli()
	}
	taken := make(map[int64]bool, len(list))
	for _, existing := range list {
		taken[existing.ID] = true
	}
	for taken[o.ID] {
		o.ID++
	}
	o.Status = DeriveStatus(c.now(), o.OrderDate)
	o.StatusOverride = false

	if err := c.repo.SaveOrders(ctx, Merge(list, []Order{o})); err != nil {
		return Order{}, fmt.Errorf("failed to create order: %w", err)
	}
	return o, nil
}

// ImportOrders merges incoming into the stored list, incoming winning on
// duplicate ids, and returns the size of the merged list.
func (c *Conf) ImportOrders(ctx context.Context, incoming []Order) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.repo.LoadOrders(ctx)
	if err != nil {
		return 0, err
	}
	incoming = slices.Clone(incoming)
	for i, o := range incoming {
		if o.OrderDate.IsZero() {
			return 0, fmt.Errorf("order %d: missing order date", o.ID)
		}
		if o.EstimatedDeliveryDate.IsZero() {
			incoming[i].EstimatedDeliveryDate = o.OrderDate.Add(DeliveryWindow)
		}
		if !o.Status.Valid() {
			incoming[i].Status = StatusPending
		}
	}
	merged, _ := Refresh(Merge(list, incoming), c.now())
	if err := c.repo.SaveOrders(ctx, merged); err != nil {
		return 0, fmt.Errorf("failed to import orders: %w", err)
	}
	return len(merged), nil
}

// ListOrders returns every order with freshly derived statuses, saving the
// list back when a status moved.
func (c *Conf) ListOrders(ctx context.Context) ([]Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list, _, err := c.refreshLocked(ctx)
	return list, err
}

// Refresh re-derives statuses and reports whether anything changed.
func (c *Conf) Refresh(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, changed, err := c.refreshLocked(ctx)
	return changed, err
}

func (c *Conf) refreshLocked(ctx context.Context) ([]Order, bool, error) {
	list, err := c.repo.LoadOrders(ctx)
	if err != nil {
		return nil, false, err
	}
	list, changed := Refresh(list, c.now())
	if changed {
		if err := c.repo.SaveOrders(ctx, list); err != nil {
			return nil, false, fmt.Errorf("failed to save refreshed orders: %w", err)
		}
	}
	return list, changed, nil
}

func (c *Conf) GetOrder(ctx context.Context, id int64) (Order, error) {
	list, err := c.ListOrders(ctx)
	if err != nil {
		return Order{}, err
	}
	for _, o := range list {
		if o.ID == id {
			return o, nil
		}
	}
	return Order{}, fmt.Errorf("order %d: %w", id, ErrNotFound)
}

// FindByPaymentReference returns the order whose payment carries ref.
func (c *Conf) FindByPaymentReference(ctx context.Context, ref string) (Order, error) {
	list, err := c.ListOrders(ctx)
	if err != nil {
		return Order{}, err
	}
	for _, o := range list {
		if ref != "" && o.PaymentReference == ref {
			return o, nil
		}
	}
	return Order{}, fmt.Errorf("payment %q: %w", ref, ErrNotFound)
}

// OverrideStatus pins an order to status. Pinned orders are skipped by
// Refresh until ClearOverride.
func (c *Conf) OverrideStatus(ctx context.Context, id int64, status Status) (Order, error) {
	if !status.Valid() {
		return Order{}, fmt.Errorf("%q: %w", status, ErrInvalidStatus)
	}
	return c.update(ctx, id, func(o *Order) {
		o.Status = status
		o.StatusOverride = true
	})
}

// ClearOverride unpins an order and re-derives its status immediately.
func (c *Conf) ClearOverride(ctx context.Context, id int64) (Order, error) {
	now := c.now()
	return c.update(ctx, id, func(o *Order) {
		o.StatusOverride = false
		o.Status = DeriveStatus(now, o.OrderDate)
	})
}

func (c *Conf) update(ctx context.Context, id int64, fn func(*Order)) (Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.repo.LoadOrders(ctx)
	if err != nil {
		return Order{}, err
	}
	for i := range list {
		if list[i].ID != id {
			continue
		}
		fn(&list[i])
		if err := c.repo.SaveOrders(ctx, list); err != nil {
			return Order{}, fmt.Errorf("failed to update order: %w", err)
		}
		return list[i], nil
	}
	return Order{}, fmt.Errorf("order %d: %w", id, ErrNotFound)
}
