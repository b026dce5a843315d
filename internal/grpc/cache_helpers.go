package grpc

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/godilite/review-insights/pkg/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
)

// cacheEntry records when a value was stored so hits can decide whether to
// refresh ahead of expiry.
type cacheEntry[T any] struct {
	Value    T         `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// addTTLJitter adds up to ±15s random jitter to TTL to avoid mass expiration.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 30*time.Second {
		return ttl
	}
	jitter := time.Duration(rand.Intn(30)-15) * time.Second
	return ttl + jitter
}

// stale reports whether a cached entry is past half its TTL.
func stale(storedAt time.Time, ttl time.Duration) bool {
	return time.Since(storedAt) > ttl/2
}

func storeEntry[T any](c Cacher, key string, value T, ttl time.Duration, logger *zap.Logger) {
	setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
	defer cancel()

	ttlWithJitter := addTTLJitter(ttl)
	entry := cacheEntry[T]{Value: value, StoredAt: time.Now()}
	if err := c.Set(setCtx, key, entry, ttlWithJitter); err != nil {
		logger.Warn("failed to set cache", zap.String("key", key), zap.Error(err))
		return
	}
	logger.Debug("cache populated", zap.String("key", key), zap.Duration("ttl", ttlWithJitter))
}

func triggerBackgroundRefresh[T any](
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) {
	go func() {
		_, _, _ = sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				logger.Warn("background refresh failed",
					zap.String("key", key),
					zap.Error(err))
				return nil, err
			}
			storeEntry(c, key, value, ttl, logger)
			return value, nil
		})
	}()
}

// FindAndCache implements read-through caching with singleflight. Entries
// older than half the TTL are served and refreshed in the background.
func FindAndCache[T any](
	ctx context.Context,
	c Cacher,
	sf *singleflight.Group,
	key string,
	ttl time.Duration,
	logger *zap.Logger,
	fn FetchFunc[T],
) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}

	var cached cacheEntry[T]
	err := c.Get(ctx, key, &cached)
	switch {
	case err == nil:
		logger.Debug("cache hit", zap.String("key", key))
		if stale(cached.StoredAt, ttl) {
			triggerBackgroundRefresh(c, sf, key, ttl, logger, fn)
		}
		return cached.Value, nil

	case cache.IsMiss(err):
		logger.Debug("cache miss", zap.String("key", key))

	default:
		logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := sf.Do(key, func() (any, error) {
		value, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		go storeEntry(c, key, value, ttl, logger)
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if shared {
		logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}
