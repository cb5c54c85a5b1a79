package repository

import "context"

// UnitOfWork groups the repositories bound to one transaction.
type UnitOfWork interface {
	Rides() RideRepository
	Payments() PaymentRepository
	Pricing() PricingRepository
	Drivers() DriverRepository
}

// Store is the entry point to persistence. Its own repositories run
// outside any transaction; WithinTx runs fn in a single transaction that
// commits when fn returns nil and rolls back otherwise.
type Store interface {
	UnitOfWork
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
}
