package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"kostaxi/internal/repository"
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
	unitOfWork
}

// unitOfWork binds the repositories to one Querier.
type unitOfWork struct {
	rides    *RideRepository
	payments *PaymentRepository
	pricing  *PricingRepository
	drivers  *DriverRepository
}

func (u unitOfWork) Rides() repository.RideRepository       { return u.rides }
func (u unitOfWork) Payments() repository.PaymentRepository { return u.payments }
func (u unitOfWork) Pricing() repository.PricingRepository  { return u.pricing }
func (u unitOfWork) Drivers() repository.DriverRepository   { return u.drivers }

var _ repository.Store = (*Store)(nil)

// NewStore creates a store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db: db,
		unitOfWork: unitOfWork{
			rides:    NewRideRepository(db),
			payments: NewPaymentRepository(db),
			pricing:  NewPricingRepository(db),
			drivers:  NewDriverRepository(db),
		},
	}
}

// WithinTx runs fn inside a database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Create transaction-scoped repositories.
	uow := unitOfWork{
		rides:    NewRideRepositoryWithTx(tx),
		payments: NewPaymentRepositoryWithTx(tx),
		pricing:  NewPricingRepositoryWithTx(tx),
		drivers:  NewDriverRepositoryWithTx(tx),
	}

	if err = fn(uow); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
