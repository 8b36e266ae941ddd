package maps

import (
	"context"
	"encoding/json"
	"time"
)

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GeocodeKey(lat, lng float64) string
}

// RedisCache keeps resolved places in Redis. Errors are swallowed: a cache
// miss only costs one more upstream request.
type RedisCache struct {
	store redisStore
	ttl   time.Duration
}

func NewRedisCache(store redisStore, ttl time.Duration) *RedisCache {
	if store == nil {
		return nil
	}
	return &RedisCache{store: store, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, lat, lng float64) (*Place, bool) {
	if r == nil {
		return nil, false
	}
	raw, err := r.store.Get(ctx, r.store.GeocodeKey(lat, lng))
	if err != nil || raw == "" {
		return nil, false
	}
	var place Place
	if err := json.Unmarshal([]byte(raw), &place); err != nil {
		return nil, false
	}
	return &place, true
}

func (r *RedisCache) Put(ctx context.Context, lat, lng float64, place Place) {
	if r == nil {
		return
	}
	payload, err := json.Marshal(place)
	if err != nil {
		return
	}
	_ = r.store.Set(ctx, r.store.GeocodeKey(lat, lng), string(payload), r.ttl)
}
