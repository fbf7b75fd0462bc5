// Package cache records which listing links have already been stored so a
// run can report how many records are new.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/jobboard-scraper/internal/hash/sha256"
)

// DefaultPrefix namespaces seen markers.
const DefaultPrefix = "scraper:seen:"

// DefaultTTL is how long a link stays marked.
const DefaultTTL = 30 * 24 * time.Hour

// ErrUnavailable means no Redis connection is configured.
var ErrUnavailable = errors.New("cache unavailable")

// Config controls the Redis connection.
type Config struct {
	URL    string
	Prefix string
	TTL    time.Duration
}

// SeenCache marks links in Redis using SETNX.
type SeenCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// New parses the URL, connects and pings the server.
func New(ctx context.Context, cfg Config) (*SeenCache, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("cache.url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client, cfg.Prefix, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, prefix string, ttl time.Duration) *SeenCache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SeenCache{client: client, prefix: prefix, ttl: ttl}
}

// MarkSeen records link and reports whether it was not already marked.
func (c *SeenCache) MarkSeen(ctx context.Context, link string) (bool, error) {
	if c == nil || c.client == nil {
		return false, ErrUnavailable
	}
	if link == "" {
		return false, nil
	}
	created, err := c.client.SetNX(ctx, c.key(link), time.Now().UTC().Unix(), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark seen: %w", err)
	}
	return created, nil
}

// Ping checks the connection.
func (c *SeenCache) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrUnavailable
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close releases the connection.
func (c *SeenCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

func (c *SeenCache) key(link string) string {
	return c.prefix + sha256.Sum(link)
}
