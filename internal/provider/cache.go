package provider

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"realtyassist/internal/logger"
	"realtyassist/internal/metrics"
	"realtyassist/internal/model"
)

// CachedProvider keeps provider results in Redis for ttl. Any cache failure
// falls through to the wrapped provider.
type CachedProvider struct {
	next  ListingsProvider
	redis *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

// NewCachedProvider wraps next with a Redis cache
func NewCachedProvider(next ListingsProvider, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedProvider {
	return &CachedProvider{
		next:  next,
		redis: client,
		ttl:   ttl,
		log:   log.With(map[string]interface{}{"component": "listings-cache"}),
	}
}

// Name reports the wrapped provider's name
func (c *CachedProvider) Name() string { return c.next.Name() }

// Fetch implements ListingsProvider. Empty results are not cached.
func (c *CachedProvider) Fetch(ctx context.Context, filter model.SearchFilter) ([]model.Listing, error) {
	key := c.cacheKey(filter)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var listings []model.Listing
		if jerr := json.Unmarshal([]byte(val), &listings); jerr == nil {
			metrics.ListingsCacheTotal.WithLabelValues("hit").Inc()
			return listings, nil
		}
		metrics.ListingsCacheTotal.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.ListingsCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.ListingsCacheTotal.WithLabelValues("error").Inc()
		c.log.Warn("listings cache read failed", map[string]interface{}{"error": err})
	}

	listings, err := c.next.Fetch(ctx, filter)
	if err != nil || len(listings) == 0 {
		return listings, err
	}

	if data, err := json.Marshal(listings); err == nil {
		if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("listings cache write failed", map[string]interface{}{"error": err})
		}
	}
	return listings, nil
}

// Warm refreshes the cached entry for filter regardless of its TTL. An
// empty result leaves the cache untouched, as in Fetch.
func (c *CachedProvider) Warm(ctx context.Context, filter model.SearchFilter) error {
	listings, err := c.next.Fetch(ctx, filter)
	if err != nil || len(listings) == 0 {
		return err
	}
	data, err := json.Marshal(listings)
	if err != nil {
		return err
	}
	return c.redis.Set(ctx, c.cacheKey(filter), data, c.ttl).Err()
}

func (c *CachedProvider) cacheKey(filter model.SearchFilter) string {
	b, _ := json.Marshal(filter)
	sum := sha1.Sum(b)
	return "listings:" + c.next.Name() + ":" + hex.EncodeToString(sum[:])
}
