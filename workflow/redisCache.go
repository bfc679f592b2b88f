package workflow

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/stock_backend/config"
)

// RedisSnapshotCache stores JSON snapshots through the shared config Redis client.
// It is a no-op while Redis is not connected.
type RedisSnapshotCache struct{}

func (RedisSnapshotCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	return config.GetRedisObject(ctx, key, dest)
}

func (RedisSnapshotCache) Set(ctx context.Context, key string, obj interface{}, ttl time.Duration) error {
	return config.SetRedisObject(ctx, key, obj, ttl)
}

func (RedisSnapshotCache) Delete(ctx context.Context, key string) error {
	return config.RemoveRedisKey(ctx, key)
}
