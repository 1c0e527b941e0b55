// Package kv is the key-value storage the storefront persists state into.
// Each backend stores opaque byte values under string keys, the same
// contract a browser's localStorage offers.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
