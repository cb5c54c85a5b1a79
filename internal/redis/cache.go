package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"kostaxi/internal/domain"
)

// PricingCacheTTL bounds how stale a cached tariff may get if an
// invalidation is lost.
const PricingCacheTTL = 5 * time.Minute

const pricingCacheKey = "cache:pricing"

// CachedPricing is the JSON form of a cached tariff.
type CachedPricing struct {
	ID         int64     `json:"id"`
	BaseFare   float64   `json:"base_fare"`
	PricePerKm float64   `json:"price_per_km"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CacheStore handles tariff caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// GetPricing retrieves the tariff from cache. A miss returns nil, nil.
func (s *CacheStore) GetPricing(ctx context.Context) (*domain.PricingConfig, error) {
	data, err := s.client.Get(ctx, pricingCacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var cached CachedPricing
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &domain.PricingConfig{
		ID:         cached.ID,
		BaseFare:   cached.BaseFare,
		PricePerKm: cached.PricePerKm,
		UpdatedAt:  cached.UpdatedAt,
	}, nil
}

// SetPricing stores the tariff in cache.
func (s *CacheStore) SetPricing(ctx context.Context, cfg *domain.PricingConfig) error {
	data, err := json.Marshal(CachedPricing{
		ID:         cfg.ID,
		BaseFare:   cfg.BaseFare,
		PricePerKm: cfg.PricePerKm,
		UpdatedAt:  cfg.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, pricingCacheKey, data, PricingCacheTTL).Err()
}

// InvalidatePricing removes the tariff from cache.
func (s *CacheStore) InvalidatePricing(ctx context.Context) error {
	return s.client.Del(ctx, pricingCacheKey).Err()
}
