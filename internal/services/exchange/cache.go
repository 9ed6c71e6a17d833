package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/subtrackr/backend/internal/models"
)

// CachedRateProvider decorates a RateProvider with a Redis-backed snapshot
// cache. Caching lives here, at the fetch boundary, with an explicit TTL;
// the aggregation core only ever sees finished snapshots.
type CachedRateProvider struct {
	inner RateProvider
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedRateProvider wraps inner with a cache of the given TTL
func NewCachedRateProvider(inner RateProvider, client *redis.Client, ttl time.Duration) *CachedRateProvider {
	return &CachedRateProvider{inner: inner, redis: client, ttl: ttl}
}

func cacheKey(base models.Currency) string {
	return fmt.Sprintf("exchange:rates:%s", base)
}

// RateTable returns a cached snapshot when one is fresh, otherwise fetches
// and caches a new one. Cache failures degrade to a direct fetch.
func (p *CachedRateProvider) RateTable(ctx context.Context, base models.Currency) (RateTable, error) {
	key := cacheKey(base)

	cached, err := p.redis.Get(ctx, key).Bytes()
	if err == nil {
		var table RateTable
		if err := json.Unmarshal(cached, &table); err == nil {
			return table, nil
		}
		log.Printf("Discarding unreadable cached rate table for %s", base)
	} else if err != redis.Nil {
		log.Printf("Rate table cache read failed for %s: %v", base, err)
	}

	table, err := p.inner.RateTable(ctx, base)
	if err != nil {
		return RateTable{}, err
	}

	if encoded, err := json.Marshal(table); err == nil {
		if err := p.redis.Set(ctx, key, encoded, p.ttl).Err(); err != nil {
			log.Printf("Rate table cache write failed for %s: %v", base, err)
		}
	}

	return table, nil
}
