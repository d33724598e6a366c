package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// versionTTL outlives every cached entry so a bumped version is never
// forgotten while a stale write could still be in flight.
const versionTTL = 24 * time.Hour

// setIfVersionScript stores ARGV[2] under KEYS[1] only while KEYS[2] still
// holds the version the caller read before loading the value.
const setIfVersionScript = `
local current = redis.call("get", KEYS[2]) or ""
if current == ARGV[1] then
    return redis.call("set", KEYS[1], ARGV[2], "PX", ARGV[3])
end
return 0
`

// Client wraps redis.Client but fails safe by swallowing connectivity errors.
// A nil *Client is valid and behaves as an always-empty cache.
type Client struct {
	client *redis.Client
}

// New creates a new Redis client. An empty addr disables caching and returns nil.
func New(addr, password string, db int) *Client {
	if addr == "" {
		return nil
	}
	return NewFromRedis(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

// NewFromRedis wraps an existing redis client.
func NewFromRedis(rc *redis.Client) *Client {
	return &Client{client: rc}
}

// Enabled reports whether a backing redis is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Ping checks connectivity; a disabled cache is always reachable.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if !c.Enabled() {
		return nil, nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		// fail safe: behave like cache miss
		return nil, nil
	}
	return res, nil
}

// GetJSON decodes a cached value into dst. It reports false on a miss or a
// payload that no longer decodes.
func (c *Client) GetJSON(ctx context.Context, key string, dst any) bool {
	data, _ := c.Get(ctx, key)
	if data == nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

// Version reads the current value of versionKey ("" when unset). ok is false
// when the cache is disabled or unreachable, in which case nothing should be
// written back.
func (c *Client) Version(ctx context.Context, versionKey string) (version string, ok bool) {
	if !c.Enabled() {
		return "", false
	}
	v, err := c.client.Get(ctx, versionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", true
	}
	if err != nil {
		return "", false
	}
	return v, true
}

// SetJSONIfVersion stores value under key only if versionKey still holds
// version. A concurrent Invalidate makes the write a no-op.
func (c *Client) SetJSONIfVersion(ctx context.Context, key, versionKey, version string, value any, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if !c.Enabled() {
		return nil
	}
	ms := ttl.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	_ = c.client.Eval(ctx, setIfVersionScript, []string{key, versionKey}, version, payload, ms).Err()
	return nil
}

// Invalidate bumps versionKey and removes key in one transaction.
func (c *Client) Invalidate(ctx context.Context, key, versionKey string) error {
	if !c.Enabled() {
		return nil
	}
	_, _ = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey)
		pipe.Expire(ctx, versionKey, versionTTL)
		pipe.Del(ctx, key)
		return nil
	})
	return nil
}

// DeletePattern removes every key matching pattern and returns how many were
// deleted. Unlike the other helpers it reports redis errors.
func (c *Client) DeletePattern(ctx context.Context, pattern string) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	var keys []string
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.client.Del(ctx, keys...).Result()
	return int(n), err
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
