package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opsdesk/task-service/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

const sweepMarkerPrefix = "task-service:sweep:"

// RedisMarker records sweep watermarks with SET NX so each key fires once per TTL.
type RedisMarker struct {
	client redis.Cmdable
}

// NewRedisMarker builds a marker on top of any go-redis client.
func NewRedisMarker(client redis.Cmdable) *RedisMarker {
	return &RedisMarker{client: client}
}

// MarkOnce returns true the first time key is marked within ttl.
func (m *RedisMarker) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if m == nil || m.client == nil {
		return false, errors.New("redis client not configured")
	}
	return m.client.SetNX(ctx, sweepMarkerPrefix+key, time.Now().Unix(), ttl).Result()
}

// Release drops a mark so the next sweep retries the item.
func (m *RedisMarker) Release(ctx context.Context, key string) error {
	if m == nil || m.client == nil {
		return errors.New("redis client not configured")
	}
	return m.client.Del(ctx, sweepMarkerPrefix+key).Err()
}
