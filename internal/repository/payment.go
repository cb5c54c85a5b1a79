package repository

import (
	"context"

	"kostaxi/internal/domain"
)

// PaymentStats summarizes stored payments.
type PaymentStats struct {
	Succeeded     int
	NotSucceeded  int
	RevenueAmount int64
}

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicate if the ride already has one.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByRideID retrieves the payment of a ride.
	GetByRideID(ctx context.Context, rideID int64) (*domain.Payment, error)

	// GetByIntentID retrieves a payment by its provider intent ID.
	GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error)

	// Update overwrites the mutable fields of a payment.
	Update(ctx context.Context, payment *domain.Payment) error

	// List retrieves payments newest first, optionally filtered by status.
	List(ctx context.Context, status string, limit int) ([]*domain.Payment, error)

	// Stats aggregates payment outcomes.
	Stats(ctx context.Context) (PaymentStats, error)
}
