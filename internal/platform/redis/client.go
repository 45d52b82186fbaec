// Package redis owns the shared go-redis client. Session records, grant use
// counters and the revocation list all ride on the same connection pool.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the shared connection handle passed to the Redis-backed stores.
type Client struct {
	*redis.Client
}

// New dials Redis from a URL, verifying the connection before the stores
// start depending on it. An empty URL means Redis is not configured and the
// caller should fall back to in-memory stores; New returns (nil, nil).
func New(url string) (*Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers. The readiness probe
// calls this on every check.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
