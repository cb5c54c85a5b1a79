package redis

import (
	"context"

	"kostaxi/internal/domain"
)

// PricingCacheInterface defines the tariff cache operations.
type PricingCacheInterface interface {
	GetPricing(ctx context.Context) (*domain.PricingConfig, error)
	SetPricing(ctx context.Context, cfg *domain.PricingConfig) error
	InvalidatePricing(ctx context.Context) error
}

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID int64, lat, lon float64) error
	FindNearbyDrivers(ctx context.Context, lat, lon, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID int64) error
}

// EventLedgerInterface defines webhook event deduplication.
type EventLedgerInterface interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ PricingCacheInterface  = (*CacheStore)(nil)
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ EventLedgerInterface   = (*EventLedger)(nil)
)
