package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trip-optimizer-service/internal/domain"
	"trip-optimizer-service/internal/platform/obs"
	"trip-optimizer-service/internal/ports"

	"github.com/redis/go-redis/v9"
)

const travelKeyPrefix = "tripopt:travel:"

// RedisTravelCache stores routed two-point estimates with a TTL.
// Estimated (fallback) values are never stored.
type RedisTravelCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTravelCache(client *redis.Client, ttl time.Duration) *RedisTravelCache {
	return &RedisTravelCache{client: client, ttl: ttl}
}

// travelKey rounds to ~1 m so jittery coordinates share an entry.
func travelKey(from, to domain.Coordinates) string {
	return fmt.Sprintf("%s%.5f,%.5f:%.5f,%.5f", travelKeyPrefix, from.Lat, from.Lon, to.Lat, to.Lon)
}

func (c *RedisTravelCache) Get(
	ctx context.Context,
	from, to domain.Coordinates,
) (_ domain.TravelEstimate, _ bool, err error) {
	defer obs.Time(ctx, "travel.cache.Get")(&err)

	raw, err := c.client.Get(ctx, travelKey(from, to)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TravelEstimate{}, false, nil
	}
	if err != nil {
		return domain.TravelEstimate{}, false, fmt.Errorf("get travel cache: %w", err)
	}

	var est domain.TravelEstimate
	if err := json.Unmarshal(raw, &est); err != nil {
		return domain.TravelEstimate{}, false, fmt.Errorf("get travel cache: decode: %w", err)
	}
	return est, true, nil
}

func (c *RedisTravelCache) Put(
	ctx context.Context,
	from, to domain.Coordinates,
	est domain.TravelEstimate,
) (err error) {
	defer obs.Time(ctx, "travel.cache.Put")(&err)

	if est.Estimated {
		return nil
	}

	raw, err := json.Marshal(est)
	if err != nil {
		return fmt.Errorf("put travel cache: encode: %w", err)
	}
	if err := c.client.Set(ctx, travelKey(from, to), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("put travel cache: %w", err)
	}
	return nil
}

var _ ports.TravelTimeCache = (*RedisTravelCache)(nil)
