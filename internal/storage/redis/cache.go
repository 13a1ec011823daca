package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	return &Client{redis.NewClient(opt)}
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.Set(ctx, key, data, expiration).Err()
}

func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := c.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(data), dest)
}

// Resolve lookups are cached per domain with a short TTL. The TTL bounds how
// long a license renewal takes to become visible on the resolve path.
func (c *Client) CacheResolvedTenant(ctx context.Context, domain string, cfg interface{}, ttl time.Duration) error {
	return c.SetJSON(ctx, resolveKey(domain), cfg, ttl)
}

func (c *Client) GetResolvedTenant(ctx context.Context, domain string, dest interface{}) error {
	return c.GetJSON(ctx, resolveKey(domain), dest)
}

func (c *Client) InvalidateResolvedTenant(ctx context.Context, domain string) error {
	return c.Del(ctx, resolveKey(domain)).Err()
}

func resolveKey(domain string) string {
	return fmt.Sprintf("tenant:resolve:%s", domain)
}
