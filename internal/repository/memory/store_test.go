package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kostaxi/internal/domain"
	"kostaxi/internal/repository"
)

func newPendingRide(t *testing.T, store *Store) *domain.Ride {
	t.Helper()
	ride := &domain.Ride{
		PickupAddress:  "Kos Town Square",
		DropoffAddress: "Kos Airport",
		Status:         domain.RideStatusPending,
		Fare:           27.09,
		DistanceKm:     16.06,
		PassengerCount: 1,
	}
	require.NoError(t, store.Rides().Create(context.Background(), ride))
	return ride
}

func TestRides_CreateAssignsIDs(t *testing.T) {
	store := NewStore()

	first := newPendingRide(t, store)
	second := newPendingRide(t, store)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, domain.PaymentStatusPending, first.PaymentStatus)
	assert.False(t, first.CreatedAt.IsZero())
}

func TestRides_ReturnedValuesAreCopies(t *testing.T) {
	store := NewStore()
	ride := newPendingRide(t, store)

	got, err := store.Rides().GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	got.Status = domain.RideStatusCancelled

	again, err := store.Rides().GetByID(context.Background(), ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusPending, again.Status)
}

func TestRides_CompareAndSetStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	ride := newPendingRide(t, store)

	updated, err := store.Rides().CompareAndSetStatus(ctx, ride.ID, domain.RideStatusPending, domain.RideStatusAccepted, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusAccepted, updated.Status)
	assert.Equal(t, int64(7), updated.DriverID)

	_, err = store.Rides().CompareAndSetStatus(ctx, ride.ID, domain.RideStatusPending, domain.RideStatusAccepted, 8)
	assert.ErrorIs(t, err, repository.ErrStateChanged)

	// Zero driver keeps the assignment.
	updated, err = store.Rides().CompareAndSetStatus(ctx, ride.ID, domain.RideStatusAccepted, domain.RideStatusCompleted, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), updated.DriverID)
}

func TestRides_ConcurrentCompareAndSetHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	ride := newPendingRide(t, store)

	var wins int32
	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(driverID int64) {
			defer wg.Done()
			_, err := store.Rides().CompareAndSetStatus(ctx, ride.ID, domain.RideStatusPending, domain.RideStatusAccepted, driverID)
			if err == nil {
				atomic.AddInt32(&wins, 1)
			}
		}(int64(i))
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestRides_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	a := newPendingRide(t, store)
	b := newPendingRide(t, store)
	c := newPendingRide(t, store)

	_, err := store.Rides().CompareAndSetStatus(ctx, b.ID, domain.RideStatusPending, domain.RideStatusAccepted, 3)
	require.NoError(t, err)
	require.NoError(t, store.Rides().SetPaymentLink(ctx, c.ID, "pi_c", domain.PaymentStatusSucceeded))

	pending, err := store.Rides().List(ctx, repository.RideFilter{Statuses: []domain.RideStatus{domain.RideStatusPending}})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, c.ID, pending[0].ID, "newest first")
	assert.Equal(t, a.ID, pending[1].ID)

	mine, err := store.Rides().List(ctx, repository.RideFilter{DriverID: 3})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, b.ID, mine[0].ID)

	unpaid, err := store.Rides().List(ctx, repository.RideFilter{PaymentStatus: repository.PaymentStatusUnpaid})
	require.NoError(t, err)
	assert.Len(t, unpaid, 2)

	limited, err := store.Rides().List(ctx, repository.RideFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	counts, err := store.Rides().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.RideStatusPending])
	assert.Equal(t, 1, counts[domain.RideStatusAccepted])
}

func TestPayments_OnePerRide(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	ride := newPendingRide(t, store)

	first := &domain.Payment{RideID: ride.ID, IntentID: "pi_1", Status: domain.PaymentStatusRequiresPaymentMethod, Amount: 2709}
	require.NoError(t, store.Payments().Create(ctx, first))

	err := store.Payments().Create(ctx, &domain.Payment{RideID: ride.ID, IntentID: "pi_2"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	got, err := store.Payments().GetByIntentID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = store.Payments().GetByIntentID(ctx, "pi_2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPayments_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	r1 := newPendingRide(t, store)
	r2 := newPendingRide(t, store)
	require.NoError(t, store.Payments().Create(ctx, &domain.Payment{RideID: r1.ID, IntentID: "pi_1", Status: domain.PaymentStatusSucceeded, Amount: 2709}))
	require.NoError(t, store.Payments().Create(ctx, &domain.Payment{RideID: r2.ID, IntentID: "pi_2", Status: domain.PaymentStatusFailed, Amount: 1000}))

	stats, err := store.Payments().Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.NotSucceeded)
	assert.Equal(t, int64(2709), stats.RevenueAmount)

	succeeded, err := store.Payments().List(ctx, domain.PaymentStatusSucceeded, 0)
	require.NoError(t, err)
	assert.Len(t, succeeded, 1)
}

func TestPricing_EnsureDefaultKeepsExisting(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.Pricing().Get(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	cfg, err := store.Pricing().EnsureDefault(ctx, domain.DefaultPricing())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBaseFare, cfg.BaseFare)

	require.NoError(t, store.Pricing().Save(ctx, &domain.PricingConfig{BaseFare: 5, PricePerKm: 2}))

	cfg, err = store.Pricing().EnsureDefault(ctx, domain.DefaultPricing())
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.BaseFare)
	assert.Equal(t, 2.0, cfg.PricePerKm)
}

func TestDrivers_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Drivers().Create(ctx, &domain.Driver{Name: "Nikos", Email: "nikos@example.com"}))
	err := store.Drivers().Create(ctx, &domain.Driver{Name: "Other", Email: "nikos@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	second := &domain.Driver{Name: "Maria", Email: "maria@example.com"}
	require.NoError(t, store.Drivers().Create(ctx, second))

	second.Email = "nikos@example.com"
	assert.ErrorIs(t, store.Drivers().Update(ctx, second), repository.ErrDuplicate)

	n, err := store.Drivers().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	ride := newPendingRide(t, store)

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		if _, err := uow.Rides().CompareAndSetStatus(ctx, ride.ID, domain.RideStatusPending, domain.RideStatusCancelled, 0); err != nil {
			return err
		}
		if err := uow.Payments().Create(ctx, &domain.Payment{RideID: ride.ID, IntentID: "pi_x"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Rides().GetByID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RideStatusPending, got.Status)

	_, err = store.Payments().GetByRideID(ctx, ride.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWithinTx_Commits(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var rideID int64
	err := store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		if _, err := uow.Pricing().EnsureDefault(ctx, domain.DefaultPricing()); err != nil {
			return err
		}
		ride := &domain.Ride{PickupAddress: "A", DropoffAddress: "B", Status: domain.RideStatusPending}
		if err := uow.Rides().Create(ctx, ride); err != nil {
			return err
		}
		rideID = ride.ID
		return nil
	})
	require.NoError(t, err)

	_, err = store.Rides().GetByID(ctx, rideID)
	assert.NoError(t, err)
	_, err = store.Pricing().Get(ctx)
	assert.NoError(t, err)
}

func TestWithinTx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := NewStore().WithinTx(ctx, func(uow repository.UnitOfWork) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
