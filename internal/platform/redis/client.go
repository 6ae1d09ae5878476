// Package redis holds the shared Redis connection used by the velocity
// window store.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis with a connection health probe.
type Client struct {
	*redis.Client
}

// New dials the Redis instance at a redis:// URL and verifies it responds
// before returning.
func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether the connection still responds.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
