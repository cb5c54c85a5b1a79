package repository

import (
	"context"

	"kostaxi/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver. Returns ErrDuplicate for a taken email.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id int64) (*domain.Driver, error)

	// GetByEmail retrieves a driver by normalized email.
	GetByEmail(ctx context.Context, email string) (*domain.Driver, error)

	// List retrieves all drivers, newest first.
	List(ctx context.Context) ([]*domain.Driver, error)

	// Update overwrites the mutable fields of a driver.
	Update(ctx context.Context, driver *domain.Driver) error

	// Count returns the number of drivers.
	Count(ctx context.Context) (int, error)
}
