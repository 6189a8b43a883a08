package storage

import (
	"context"
	"errors"
)

// KV is the key-value slot store the cart persists into.
// Consumers depend on this interface, not on a backend.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")
