package contractcache

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisCache backs the same Cache contract with a shared redis instance,
// for deployments running more than one read-API replica against the same
// forest.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisCache dials addr and returns a Cache storing keys under
// "bridge-forest:contractcache:<key>".
func NewRedisCache(addr string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
		prefix: "bridge-forest:contractcache:",
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (uint64, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "redis get")
	}
	count, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, errors.Wrap(err, "parse cached count")
	}
	return count, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, count uint64) error {
	err := c.client.Set(ctx, c.prefix+key, strconv.FormatUint(count, 10), c.ttl).Err()
	if err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
