package names

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NameStore is the subset of the Redis client used by RedisDirectory.
type NameStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisDirectory is a Lookup backed by a shared Redis name directory.
// Misses go to the fallback Lookup and are written back with a TTL so that
// several exporters share one set of remote lookups and renames still surface.
type RedisDirectory struct {
	store    NameStore
	fallback Lookup
	ttl      time.Duration
	logger   *zap.SugaredLogger
}

// NewRedisDirectory wraps fallback with a Redis-backed directory.
func NewRedisDirectory(store NameStore, fallback Lookup, ttl time.Duration, logger *zap.Logger) *RedisDirectory {
	return &RedisDirectory{
		store:    store,
		fallback: fallback,
		ttl:      ttl,
		logger:   logger.Sugar(),
	}
}

func nameKey(id string) string {
	return "player:" + id + ":name"
}

func (d *RedisDirectory) LookupName(ctx context.Context, id string) (string, error) {
	name, err := d.store.Get(ctx, nameKey(id)).Result()
	switch {
	case err == nil && name != "":
		return name, nil
	case err != nil && !errors.Is(err, redis.Nil):
		// Directory unavailable; the remote lookup still works without it.
		d.logger.Warnw("Name directory read failed", "player", id, "error", err)
	}

	name, err = d.fallback.LookupName(ctx, id)
	if err != nil {
		return "", err
	}

	if err := d.store.Set(ctx, nameKey(id), name, d.ttl).Err(); err != nil {
		d.logger.Warnw("Name directory write failed", "player", id, "error", err)
	}

	return name, nil
}
