package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheHelper scopes Redis access to one key namespace. A helper built
// without a client answers reads with ErrCacheNotAvailable and ignores writes.
type CacheHelper struct {
	client *redis.Client
	prefix string
}

func NewCacheHelper(client *redis.Client, prefix string) *CacheHelper {
	return &CacheHelper{client: client, prefix: prefix}
}

type CacheConfig struct {
	TTL    time.Duration
	Prefix string
}

var (
	// Course listings; invalidated on every course write
	CourseCacheConfig = CacheConfig{
		TTL:    5 * time.Minute,
		Prefix: "course:",
	}

	// Revoked session tokens, kept until the token would have expired anyway
	TokenCacheConfig = CacheConfig{
		TTL:    24 * time.Hour,
		Prefix: "token:revoked:",
	}

	// One-time password reset codes
	ResetCacheConfig = CacheConfig{
		TTL:    15 * time.Minute,
		Prefix: "reset:",
	}
)

var (
	ErrCacheNotAvailable = errors.New("cache not available")
	ErrCacheNotFound     = errors.New("cache not found")
)

// GetCacheKey prefixes key with the helper's namespace
func (c *CacheHelper) GetCacheKey(key string) string {
	return c.prefix + key
}

func (c *CacheHelper) Available() bool {
	return c.client != nil
}

func (c *CacheHelper) raw(ctx context.Context, key string) (string, error) {
	if c.client == nil {
		return "", ErrCacheNotAvailable
	}
	val, err := c.client.Get(ctx, c.GetCacheKey(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", ErrCacheNotFound
	case err != nil:
		// The key is left out so user input never reaches the logs
		return "", fmt.Errorf("cache get %s: %w", c.prefix, err)
	}
	return val, nil
}

// Get decodes the JSON value stored under key into dest
func (c *CacheHelper) Get(ctx context.Context, key string, dest interface{}) error {
	val, err := c.raw(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return fmt.Errorf("cache decode %s: %w", c.prefix, err)
	}
	return nil
}

// Set stores value as JSON
func (c *CacheHelper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", c.prefix, err)
	}
	return c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err()
}

func (c *CacheHelper) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.client == nil {
		return nil
	}
	return c.client.Set(ctx, c.GetCacheKey(key), value, ttl).Err()
}

func (c *CacheHelper) GetString(ctx context.Context, key string) (string, error) {
	return c.raw(ctx, key)
}

func (c *CacheHelper) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = c.GetCacheKey(key)
	}
	return c.client.Del(ctx, full...).Err()
}

func (c *CacheHelper) Exists(ctx context.Context, key string) (bool, error) {
	if c.client == nil {
		return false, ErrCacheNotAvailable
	}
	n, err := c.client.Exists(ctx, c.GetCacheKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists %s: %w", c.prefix, err)
	}
	return n > 0, nil
}

// InvalidatePattern unlinks every key in the namespace matching pattern.
// Keys are found with SCAN and removed in batches of 100.
func (c *CacheHelper) InvalidatePattern(ctx context.Context, pattern string) error {
	if c.client == nil {
		return nil
	}

	const batchSize = 100
	batch := make([]string, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := c.client.Unlink(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}

	iter := c.client.Scan(ctx, 0, c.GetCacheKey(pattern), batchSize).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return fmt.Errorf("cache unlink %s: %w", c.prefix, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan %s: %w", c.prefix, err)
	}
	if err := flush(); err != nil {
		return fmt.Errorf("cache unlink %s: %w", c.prefix, err)
	}
	return nil
}

// CacheOrExecute fills dest from the cache, or from fetchFunc on a miss and
// stores the result. Cache failures never fail the call.
func (c *CacheHelper) CacheOrExecute(ctx context.Context, key string, dest interface{}, ttl time.Duration, fetchFunc func() (interface{}, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCacheNotFound) && !errors.Is(err, ErrCacheNotAvailable) {
		slog.WarnContext(ctx, "Cache read failed, fetching", "error", err)
	}

	value, err := fetchFunc()
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", c.prefix, err)
	}
	if c.client != nil {
		if err := c.client.Set(ctx, c.GetCacheKey(key), data, ttl).Err(); err != nil {
			slog.ErrorContext(ctx, "Cache write failed", "error", err, "namespace", c.prefix)
		}
	}
	return json.Unmarshal(data, dest)
}

// CacheManager holds one helper per namespace the service uses
type CacheManager struct {
	Course *CacheHelper
	Token  *CacheHelper
	Reset  *CacheHelper
	client *redis.Client
}

// NewCacheManager accepts a nil client; every helper then degrades to a no-op.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{
		Course: NewCacheHelper(client, CourseCacheConfig.Prefix),
		Token:  NewCacheHelper(client, TokenCacheConfig.Prefix),
		Reset:  NewCacheHelper(client, ResetCacheConfig.Prefix),
		client: client,
	}
}

func (cm *CacheManager) HealthCheck(ctx context.Context) error {
	if cm.client == nil {
		return ErrCacheNotAvailable
	}
	if err := cm.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache health check failed: %w", err)
	}
	return nil
}
