package cache

import (
	"context"
	"time"
)

// WithMaxTTL caps the lifetime of every entry written through c. Entries
// stored without expiry get max. A max of zero returns c unchanged.
func WithMaxTTL(c Cache, max time.Duration) Cache {
	if max <= 0 {
		return c
	}
	return &cappedCache{Cache: c, max: max}
}

type cappedCache struct {
	Cache
	max time.Duration
}

func (c *cappedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 || ttl > c.max {
		ttl = c.max
	}
	return c.Cache.Set(ctx, key, data, ttl)
}

// Unwrap returns the underlying cache.
func (c *cappedCache) Unwrap() Cache { return c.Cache }
