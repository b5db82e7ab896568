// Package rediscache implements the estimation cache on Redis. Each series
// fingerprint maps to one hash whose fields are query strings, so a changed
// series is invalidated with a single DEL.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/okian/bodymetrics/internal/domain/cache"
)

// Default configuration constants.
const (
	defaultPrefix = "bodymetrics:est:"
	defaultTTL    = 24 * time.Hour
	scanBatch     = 256
	pingTimeout   = 5 * time.Second
)

// Option applies a configuration option to the Cache.
type Option func(*Cache)

// WithTTL sets how long a fingerprint's hash lives after its last write.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// Cache implements cache.Cache on Redis.
type Cache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

var _ cache.Cache = (*Cache)(nil)

// New wraps client with configuration options.
func New(client redis.Cmdable, opts ...Option) *Cache {
	c := &Cache{client: client, prefix: defaultPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect parses url, dials and pings Redis.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (c *Cache) key(fp cache.Fingerprint) string {
	return c.prefix + fp.String()
}

// Get implements cache.Cache.
func (c *Cache) Get(ctx context.Context, key cache.Key) (cache.Entry, bool, error) {
	data, err := c.client.HGet(ctx, c.key(key.Series), key.Query).Bytes()
	if errors.Is(err, redis.Nil) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("%w: get %s: %w", cache.ErrUnavailable, key, err)
	}

	var e cache.Entry
	if err := go_json.Unmarshal(data, &e); err != nil {
		return cache.Entry{}, false, fmt.Errorf("failed to unmarshal cached entry %s: %w", key, err)
	}
	return e, true, nil
}

// Set implements cache.Cache.
func (c *Cache) Set(ctx context.Context, key cache.Key, e cache.Entry) error {
	data, err := go_json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry %s: %w", key, err)
	}

	k := c.key(key.Series)
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, k, key.Query, data)
		p.Expire(ctx, k, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", cache.ErrUnavailable, key, err)
	}
	return nil
}

// Invalidate implements cache.Cache.
func (c *Cache) Invalidate(ctx context.Context, fp cache.Fingerprint) error {
	if err := c.client.Del(ctx, c.key(fp)).Err(); err != nil {
		return fmt.Errorf("%w: invalidate %s: %w", cache.ErrUnavailable, fp, err)
	}
	return nil
}

// Purge implements cache.Cache. It deletes every key under the prefix.
func (c *Cache) Purge(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("%w: purge scan: %w", cache.ErrUnavailable, err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: purge delete: %w", cache.ErrUnavailable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
