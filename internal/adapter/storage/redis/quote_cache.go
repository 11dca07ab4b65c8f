package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// QuoteCache implements ports.QuoteCache using Redis. Carrier cost quotes
// are deterministic per customer/zone/weight, so short-lived caching skips
// a carrier round trip during repeated sandbox runs.
type QuoteCache struct {
	client *goredis.Client
	prefix string
}

// NewQuoteCache creates a new Redis-backed quote cache.
func NewQuoteCache(client *goredis.Client) *QuoteCache {
	return &QuoteCache{
		client: client,
		prefix: "quote:",
	}
}

// Get retrieves a cached quote. Returns found=false if the key does not exist.
func (c *QuoteCache) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if err == goredis.Nil {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("redis quote get: %w", err)
	}
	cost, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("redis quote parse: %w", err)
	}
	return cost, true, nil
}

// Set stores a quote with TTL.
func (c *QuoteCache) Set(ctx context.Context, key string, cost decimal.Decimal, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, cost.String(), ttl).Err(); err != nil {
		return fmt.Errorf("redis quote set: %w", err)
	}
	return nil
}
