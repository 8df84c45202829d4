package redisclient

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

//go:embed scripts/release_lock.lua
var releaseLockScript string

type Client struct {
	rdb           *redis.Client
	releaseScript *redis.Script
}

// CheckoutSession is the cached reference to a processor checkout session
type CheckoutSession struct {
	ID  string
	URL string
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromRedis(rdb), nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{
		rdb:           rdb,
		releaseScript: redis.NewScript(releaseLockScript),
	}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// AcquireLock acquires a distributed lock. The returned token must be handed
// back to ReleaseLock; an empty token means the lock is held elsewhere.
func (c *Client) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, fmt.Sprintf("lock:%s", lockKey), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire lock %s: %w", lockKey, err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// ReleaseLock releases a distributed lock if it is still owned by token
func (c *Client) ReleaseLock(ctx context.Context, lockKey, token string) error {
	_, err := c.releaseScript.Run(ctx, c.rdb, []string{fmt.Sprintf("lock:%s", lockKey)}, token).Result()
	if err != nil {
		return fmt.Errorf("release lock script failed: %w", err)
	}
	return nil
}

// CacheCheckoutSession remembers the processor session opened for a booking
func (c *Client) CacheCheckoutSession(ctx context.Context, bookingID string, session CheckoutSession, ttl time.Duration) error {
	key := fmt.Sprintf("checkout:session:%s", bookingID)

	pipe := c.rdb.TxPipeline()
	pipe.HSet(ctx, key, "id", session.ID, "url", session.URL)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// GetCheckoutSession returns the cached session for a booking, or nil if none
func (c *Client) GetCheckoutSession(ctx context.Context, bookingID string) (*CheckoutSession, error) {
	key := fmt.Sprintf("checkout:session:%s", bookingID)

	result, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || result["id"] == "" {
		return nil, nil
	}

	return &CheckoutSession{ID: result["id"], URL: result["url"]}, nil
}

// ForgetCheckoutSession drops the cached session of a booking
func (c *Client) ForgetCheckoutSession(ctx context.Context, bookingID string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("checkout:session:%s", bookingID)).Err()
}
