package repository

import (
	"context"

	"kostaxi/internal/domain"
)

// PricingRepository stores the singleton tariff.
type PricingRepository interface {
	// Get returns the stored tariff or ErrNotFound.
	Get(ctx context.Context) (*domain.PricingConfig, error)

	// EnsureDefault stores def if no tariff exists and returns the stored tariff.
	EnsureDefault(ctx context.Context, def domain.PricingConfig) (*domain.PricingConfig, error)

	// Save creates or replaces the tariff.
	Save(ctx context.Context, cfg *domain.PricingConfig) error
}
