package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ Store = (*Redis)(nil)

type Redis struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedis stores every key as prefix+key. Values never expire.
func NewRedis(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		r.logger.Error("Failed to get key from redis", zap.String("key", key), zap.Error(err))
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		r.logger.Error("Failed to set key in redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
