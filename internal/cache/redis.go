package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisOpTimeout = 2 * time.Second
	clearBatch     = 200
)

// RedisCache shares cached pages and generation counters between replicas
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisConfig holds connection settings for the Redis backend
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects and pings Redis. Keys are namespaced under cfg.Prefix.
func NewRedis(cfg RedisConfig, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "griva:"
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}, nil
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) generationKey(namespace string) string {
	return c.prefix + "gen:" + namespace
}

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), redisOpTimeout)
}

func (c *RedisCache) load(key string) ([]byte, bool) {
	ctx, cancel := opContext()
	defer cancel()

	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (c *RedisCache) Get(key string) (interface{}, bool) {
	data, ok := c.load(key)
	if !ok {
		return nil, false
	}
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, false
	}
	return value, true
}

func (c *RedisCache) GetInto(key string, dst interface{}) bool {
	data, ok := c.load(key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (c *RedisCache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

func (c *RedisCache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	ctx, cancel := opContext()
	defer cancel()
	c.client.Set(ctx, c.key(key), data, ttl)
}

func (c *RedisCache) Delete(key string) {
	ctx, cancel := opContext()
	defer cancel()
	c.client.Del(ctx, c.key(key))
}

// Clear unlinks every cached entry under the prefix in batches. Generation
// counters are kept.
func (c *RedisCache) Clear() {
	ctx := context.Background()
	genPrefix := c.generationKey("")

	batch := make([]string, 0, clearBatch)
	flush := func() {
		if len(batch) > 0 {
			c.client.Unlink(ctx, batch...)
			batch = batch[:0]
		}
	}

	iter := c.client.Scan(ctx, 0, c.prefix+"*", clearBatch).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		if strings.HasPrefix(k, genPrefix) {
			continue
		}
		batch = append(batch, k)
		if len(batch) == clearBatch {
			flush()
		}
	}
	flush()
}

// Generation reads the namespace counter. A missing key reads as 0; any
// other failure is returned so callers never fall back to generation 0.
func (c *RedisCache) Generation(namespace string) (int64, error) {
	ctx, cancel := opContext()
	defer cancel()

	n, err := c.client.Get(ctx, c.generationKey(namespace)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read generation %s: %w", namespace, err)
	}
	return n, nil
}

// Bump atomically increments the namespace counter with INCR
func (c *RedisCache) Bump(namespace string) (int64, error) {
	ctx, cancel := opContext()
	defer cancel()

	n, err := c.client.Incr(ctx, c.generationKey(namespace)).Result()
	if err != nil {
		return 0, fmt.Errorf("bump generation %s: %w", namespace, err)
	}
	return n, nil
}

// Client exposes the connection for the Redis-backed rate limiters
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
