package service

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_giftpack/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// TieredStore reads through a cache in front of the durable store. Writes go
// to the durable store and invalidate the cached slot.
type TieredStore struct {
	durable storage.KV
	cache   storage.KV
	sfg     singleflight.Group // Prevents cache stampede
	logger  *zap.Logger
}

func NewTieredStore(durable, cache storage.KV, logger *zap.Logger) *TieredStore {
	return &TieredStore{
		durable: durable,
		cache:   cache,
		logger:  logger,
	}
}

func (s *TieredStore) Get(ctx context.Context, key string) ([]byte, error) {
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		data, err := s.cache.Get(ctx, key)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("cache get error", zap.String("key", key), zap.Error(err))
		}

		data, err = s.durable.Get(ctx, key)
		if err != nil {
			return nil, err
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), key, data); errSet != nil {
				s.logger.Warn("cache set error", zap.String("key", key), zap.Error(errSet))
			}
		}()

		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *TieredStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.durable.Set(ctx, key, value); err != nil {
		return err
	}
	s.invalidate(key)
	return nil
}

func (s *TieredStore) Delete(ctx context.Context, key string) error {
	if err := s.durable.Delete(ctx, key); err != nil {
		return err
	}
	s.invalidate(key)
	return nil
}

func (s *TieredStore) invalidate(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("cache invalidate error", zap.String("key", key), zap.Error(err))
	}
}

var _ storage.KV = (*TieredStore)(nil)
