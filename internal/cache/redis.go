package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// setIfNewer compares against the version floor and writes value and floor
// together. KEYS[1] value, KEYS[2] version; ARGV value, version, ttl ms.
var setIfNewer = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[2]) or '-1')
local version = tonumber(ARGV[2])
if current > version then
	return 0
end
if current == version and redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisOptions tunes a RedisCache.
type RedisOptions struct {
	KeyPrefix  string
	DefaultTTL time.Duration
	// OpTimeout bounds each round trip; zero leaves the caller's deadline alone.
	OpTimeout time.Duration
	Observer  Observer
}

// RedisCache implements Cache on top of go-redis.
type RedisCache struct {
	client     redis.UniversalClient
	keyPrefix  string
	defaultTTL time.Duration
	opTimeout  time.Duration
	observer   Observer
}

func NewRedisCache(client redis.UniversalClient, opts RedisOptions) *RedisCache {
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{
		client:     client,
		keyPrefix:  opts.KeyPrefix,
		defaultTTL: ttl,
		opTimeout:  opts.OpTimeout,
		observer:   opts.Observer,
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	value, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		c.observe("get", ResultMiss)
		return nil, false, nil
	case err != nil:
		c.observe("get", ResultError)
		return nil, false, err
	}
	c.observe("get", ResultHit)
	return value, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.client.Set(ctx, c.keyPrefix+key, value, ttl).Err(); err != nil {
		c.observe("set", ResultError)
		return err
	}
	c.observe("set", ResultOK)
	return nil
}

func (c *RedisCache) SetIfNewer(ctx context.Context, key string, value []byte, version int64, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	keys := []string{c.keyPrefix + key, c.keyPrefix + VersionKey(key)}
	written, err := setIfNewer.Run(ctx, c.client, keys, value, version, ttl.Milliseconds()).Int()
	if err != nil {
		c.observe("set", ResultError)
		return false, err
	}
	if written == 0 {
		c.observe("set", ResultStale)
		return false, nil
	}
	c.observe("set", ResultOK)
	return true, nil
}

func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.keyPrefix + k
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()

	if err := c.client.Del(ctx, prefixed...).Err(); err != nil {
		c.observe("delete", ResultError)
		return err
	}
	c.observe("delete", ResultOK)
	return nil
}

func (c *RedisCache) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

func (c *RedisCache) observe(op, result string) {
	if c.observer != nil {
		c.observer.ObserveCacheOp(op, result)
	}
}
