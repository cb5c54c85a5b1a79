package domain

import (
	"math"
	"time"
)

// Default tariff applied when no pricing record exists yet.
const (
	DefaultBaseFare   = 3.0
	DefaultPricePerKm = 1.5
)

// PricingConfig is the singleton tariff record.
type PricingConfig struct {
	ID         int64
	BaseFare   float64
	PricePerKm float64
	UpdatedAt  time.Time
}

// DefaultPricing returns the tariff used when none is stored.
func DefaultPricing() PricingConfig {
	return PricingConfig{BaseFare: DefaultBaseFare, PricePerKm: DefaultPricePerKm}
}

// Fare returns base_fare + distance*price_per_km rounded to cents.
func (p PricingConfig) Fare(distanceKm float64) float64 {
	return RoundCents(p.BaseFare + distanceKm*p.PricePerKm)
}

// RoundCents rounds v to two decimals.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// MinorUnits converts a major currency amount to minor units.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
