package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss is returned when no cached value exists for a key.
var ErrCacheMiss = errors.New("cache miss")

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
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

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func cartViewKey(sessionToken string) string {
	return fmt.Sprintf("cart:view:%s", sessionToken)
}

// SetCartView caches a rendered cart view for a session token. Views are
// best-effort display state; the database stays the source of truth.
func (c *Client) SetCartView(ctx context.Context, sessionToken string, payload []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, cartViewKey(sessionToken), payload, ttl).Err()
}

// GetCartView retrieves a cached cart view, or ErrCacheMiss.
func (c *Client) GetCartView(ctx context.Context, sessionToken string) ([]byte, error) {
	payload, err := c.rdb.Get(ctx, cartViewKey(sessionToken)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// InvalidateCartView drops the cached view for a session token. Called on
// every cart mutation and after a successful conversion.
func (c *Client) InvalidateCartView(ctx context.Context, sessionToken string) error {
	return c.rdb.Del(ctx, cartViewKey(sessionToken)).Err()
}
