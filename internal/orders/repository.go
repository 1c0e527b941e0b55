package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"storefront/internal/stores/kv"
	"storefront/pkg/logkey"
)

// StorageKey is the key the order list lives under.
const StorageKey = "orders"

var ErrCorrupt = errors.New("stored orders are corrupt")

type Repository interface {
	LoadOrders(ctx context.Context) ([]Order, error)
	SaveOrders(ctx context.Context, list []Order) error
}

// KVRepository keeps the whole order list as one JSON array in a kv.Store.
type KVRepository struct {
	store kv.Store
}

func NewKVRepository(store kv.Store) *KVRepository {
	return &KVRepository{store: store}
}

// LoadOrders returns the stored list. Corrupt data is dropped wholesale: the
// key is deleted and an empty list returned, never an error.
func (r *KVRepository) LoadOrders(ctx context.Context) ([]Order, error) {
	raw, err := r.store.Get(ctx, StorageKey)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return []Order{}, nil
		}
		return nil, fmt.Errorf("loading orders: %w", err)
	}

	list, err := decodeOrders(raw)
	if err != nil {
		slog.Warn("discarding stored orders", slog.String("StorageKey", StorageKey), slog.String(logkey.ERROR, err.Error()))
		if derr := r.store.Delete(ctx, StorageKey); derr != nil {
			return nil, fmt.Errorf("resetting corrupt orders: %w", derr)
		}
		return []Order{}, nil
	}
	return list, nil
}

func (r *KVRepository) SaveOrders(ctx context.Context, list []Order) error {
	if list == nil {
		list = []Order{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encoding orders: %w", err)
	}
	if err := r.store.Set(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("saving orders: %w", err)
	}
	return nil
}

func decodeOrders(raw []byte) ([]Order, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: not a list", ErrCorrupt)
	}
	var list []Order
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for i := range list {
		o := &list[i]
		if o.OrderDate.IsZero() || o.EstimatedDeliveryDate.IsZero() {
			return nil, fmt.Errorf("%w: order %d has an invalid date", ErrCorrupt, o.ID)
		}
		if !o.Status.Valid() {
			o.Status = StatusPending
		}
	}
	return list, nil
}
