package pushtoken

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache remembers which user/token pairs were already saved so repeated
// registrations can skip the store. It is advisory: a miss only costs a read.
//
// Entries are dropped when a user logs out (Clear), when their tokens are
// pruned as invalid (Remove), and, for MemoryCache, when the process restarts.
type Cache interface {
	Has(ctx context.Context, userID, token string) (bool, error)
	Add(ctx context.Context, userID, token string) error
	Remove(ctx context.Context, userID string, tokens ...string) error
	Clear(ctx context.Context, userID string) error
}

// MemoryCache is a process-local Cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]struct{}
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]map[string]struct{})}
}

func (c *MemoryCache) Has(_ context.Context, userID, token string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[userID][token]
	return ok, nil
}

func (c *MemoryCache) Add(_ context.Context, userID, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.entries[userID]
	if !ok {
		set = make(map[string]struct{})
		c.entries[userID] = set
	}
	set[token] = struct{}{}
	return nil
}

func (c *MemoryCache) Remove(_ context.Context, userID string, tokens ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	set, ok := c.entries[userID]
	if !ok {
		return nil
	}
	for _, t := range tokens {
		delete(set, t)
	}
	if len(set) == 0 {
		delete(c.entries, userID)
	}
	return nil
}

func (c *MemoryCache) Clear(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

// DefaultRedisTTL bounds how long a registration stays cached in Redis.
const DefaultRedisTTL = 24 * time.Hour

const redisKeyPrefix = "pushtoken:registered:"

// RedisCache shares registrations between server instances. Each user is a
// Redis set of tokens with a sliding TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisCache connects to the Redis server at redisURL.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return NewRedisCacheWithClient(redis.NewClient(opts), ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(rdb *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func redisKey(userID string) string {
	return redisKeyPrefix + userID
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *RedisCache) Has(ctx context.Context, userID, token string) (bool, error) {
	ok, err := c.rdb.SIsMember(ctx, redisKey(userID), token).Result()
	if err != nil {
		return false, fmt.Errorf("redis sismember: %w", err)
	}
	return ok, nil
}

func (c *RedisCache) Add(ctx context.Context, userID, token string) error {
	key := redisKey(userID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, token)
		pipe.Expire(ctx, key, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

func (c *RedisCache) Remove(ctx context.Context, userID string, tokens ...string) error {
	if len(tokens) == 0 {
		return nil
	}
	members := make([]any, len(tokens))
	for i, t := range tokens {
		members[i] = t
	}
	if err := c.rdb.SRem(ctx, redisKey(userID), members...).Err(); err != nil {
		return fmt.Errorf("redis srem: %w", err)
	}
	return nil
}

func (c *RedisCache) Clear(ctx context.Context, userID string) error {
	if err := c.rdb.Del(ctx, redisKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Close closes the Redis client connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*RedisCache)(nil)
)
