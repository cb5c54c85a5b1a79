package repository

import (
	"context"

	"kostaxi/internal/domain"
)

// RideFilter narrows ride listings. Zero values match everything.
type RideFilter struct {
	Statuses []domain.RideStatus
	DriverID int64
	// PaymentStatus matches the ride's denormalized payment status;
	// PaymentStatusUnpaid matches anything but succeeded.
	PaymentStatus string
	Limit         int
}

// PaymentStatusUnpaid is a filter value, never a stored status.
const PaymentStatusUnpaid = "unpaid"

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride and assigns its ID and timestamps.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id int64) (*domain.Ride, error)

	// List retrieves rides newest first.
	List(ctx context.Context, filter RideFilter) ([]*domain.Ride, error)

	// CompareAndSetStatus moves a ride from one status to another and returns
	// the updated ride. A positive driverID also assigns the driver.
	// Returns ErrStateChanged when the ride is no longer in status from.
	CompareAndSetStatus(ctx context.Context, id int64, from, to domain.RideStatus, driverID int64) (*domain.Ride, error)

	// SetPaymentLink updates the ride's denormalized payment fields.
	SetPaymentLink(ctx context.Context, id int64, intentID, status string) error

	// CountByStatus returns the number of rides per status.
	CountByStatus(ctx context.Context) (map[domain.RideStatus]int, error)
}
