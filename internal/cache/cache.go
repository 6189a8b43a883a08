package cache

import (
	"fmt"

	"github.com/fjod/go_giftpack/internal/storage"
)

// ErrCacheMiss also matches storage.ErrNotFound so the cache can stand in for
// the durable store.
var ErrCacheMiss = fmt.Errorf("cache miss: %w", storage.ErrNotFound)

var _ storage.KV = RedisCache{}
