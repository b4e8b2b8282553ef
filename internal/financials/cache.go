package financials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kurio/internal/common/database"
)

const DefaultCacheTTL = 24 * time.Hour

// RedisCache keeps fetched summaries for a day; EDGAR data only changes with
// a new annual filing.
type RedisCache struct {
	redis *database.RedisClient
	ttl   time.Duration
}

func NewRedisCache(redis *database.RedisClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{redis: redis, ttl: ttl}
}

func cacheKey(ticker string) string {
	return "kurio:financials:" + ticker
}

// Get returns database.ErrCacheMiss when nothing is cached.
func (c *RedisCache) Get(ctx context.Context, ticker string) (*Financials, error) {
	var f Financials
	if err := c.redis.GetJSON(ctx, cacheKey(ticker), &f); err != nil {
		if errors.Is(err, database.ErrCacheMiss) {
			return nil, err
		}
		return nil, fmt.Errorf("read cached financials: %w", err)
	}
	return &f, nil
}

func (c *RedisCache) Set(ctx context.Context, f *Financials) error {
	return c.redis.SetJSON(ctx, cacheKey(f.Ticker), f, c.ttl)
}
