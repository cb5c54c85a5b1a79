package service

import (
	"context"
	"fmt"

	"kostaxi/internal/domain"
	"kostaxi/internal/logger"
	"kostaxi/internal/redis"
	"kostaxi/internal/repository"
)

// PricingService reads and updates the tariff. Reads go through an
// optional Redis cache.
type PricingService struct {
	store repository.Store
	cache redis.PricingCacheInterface
	log   *logger.Logger
}

// NewPricingService creates a new PricingService. cache may be nil.
func NewPricingService(store repository.Store, cache redis.PricingCacheInterface, log *logger.Logger) *PricingService {
	return &PricingService{
		store: store,
		cache: cache,
		log:   logger.OrNop(log).Named("pricing"),
	}
}

// Current returns the tariff in effect, creating the default one on
// first use.
func (s *PricingService) Current(ctx context.Context) (*domain.PricingConfig, error) {
	if s.cache != nil {
		cached, err := s.cache.GetPricing(ctx)
		if err != nil {
			s.log.Warn("pricing cache read failed", logger.Err(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	cfg, err := s.store.Pricing().EnsureDefault(ctx, domain.DefaultPricing())
	if err != nil {
		return nil, fmt.Errorf("load pricing: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetPricing(ctx, cfg); err != nil {
			s.log.Warn("pricing cache write failed", logger.Err(err))
		}
	}
	return cfg, nil
}

// PricingUpdate holds the fields to change. Nil fields are kept.
type PricingUpdate struct {
	BaseFare   *float64
	PricePerKm *float64
}

// Update changes the tariff. Rides created earlier keep their fare.
func (s *PricingService) Update(ctx context.Context, upd PricingUpdate) (*domain.PricingConfig, error) {
	details := map[string]string{}
	if upd.BaseFare != nil && *upd.BaseFare < 0 {
		details["base_fare"] = "Base fare must not be negative."
	}
	if upd.PricePerKm != nil && *upd.PricePerKm < 0 {
		details["price_per_km"] = "Price per km must not be negative."
	}
	if len(details) > 0 {
		return nil, &ValidationError{Message: "Invalid pricing", Details: details}
	}

	var updated *domain.PricingConfig
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		cfg, err := uow.Pricing().EnsureDefault(ctx, domain.DefaultPricing())
		if err != nil {
			return err
		}
		if upd.BaseFare != nil {
			cfg.BaseFare = *upd.BaseFare
		}
		if upd.PricePerKm != nil {
			cfg.PricePerKm = *upd.PricePerKm
		}
		if err := uow.Pricing().Save(ctx, cfg); err != nil {
			return err
		}
		updated = cfg
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update pricing: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidatePricing(ctx); err != nil {
			s.log.Warn("pricing cache invalidation failed", logger.Err(err))
		}
	}

	s.log.Info("pricing updated",
		logger.Float64("base_fare", updated.BaseFare),
		logger.Float64("price_per_km", updated.PricePerKm),
	)
	return updated, nil
}
