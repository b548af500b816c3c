package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"goflare.io/storefront/models"
)

const defaultCacheTTL = 10 * time.Minute

var _ Repository = (*cachedClient)(nil)

// cachedClient is cache-aside over Redis. Cache failures fall through to next.
type cachedClient struct {
	next   Repository
	rdb    *redis.Client
	sf     singleflight.Group
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedClient(next Repository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) Repository {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &cachedClient{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *cachedClient) ListProducts(ctx context.Context) ([]*models.Product, error) {
	return cached(ctx, c, "catalog:products", func() ([]*models.Product, error) {
		return c.next.ListProducts(ctx)
	})
}

func (c *cachedClient) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return cached(ctx, c, fmt.Sprintf("catalog:product:%s", id), func() (*models.Product, error) {
		return c.next.GetProduct(ctx, id)
	})
}

func (c *cachedClient) ListCategories(ctx context.Context) ([]string, error) {
	return cached(ctx, c, "catalog:categories", func() ([]string, error) {
		return c.next.ListCategories(ctx)
	})
}

func (c *cachedClient) ListProductsByCategory(ctx context.Context, category string) ([]*models.Product, error) {
	return cached(ctx, c, fmt.Sprintf("catalog:category:%s", category), func() ([]*models.Product, error) {
		return c.next.ListProductsByCategory(ctx, category)
	})
}

// GetUser is never cached; the profile is edited locally after login.
func (c *cachedClient) GetUser(ctx context.Context, id string) (*models.User, error) {
	return c.next.GetUser(ctx, id)
}

func cached[T any](ctx context.Context, c *cachedClient, key string, load func() (T, error)) (T, error) {
	var zero T

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var v T
		if err = json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.logger.Warn("Failed to decode cached catalog entry", zap.String("key", key), zap.Error(err))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("Failed to get catalog entry from cache", zap.String("key", key), zap.Error(err))
	}

	result, err, shared := c.sf.Do(key, func() (interface{}, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err == nil {
			ttl := c.ttl + time.Duration(rand.IntN(60))*time.Second
			if err = c.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
				c.logger.Warn("Failed to cache catalog entry", zap.String("key", key), zap.Error(err))
			}
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	if shared {
		c.logger.Debug("Shared catalog load", zap.String("key", key))
	}
	return result.(T), nil
}
