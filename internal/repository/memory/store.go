// Package memory provides an in-process repository.Store used for local
// runs and tests. Transactions serialize on a single lock and roll back by
// restoring a snapshot.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"kostaxi/internal/domain"
	"kostaxi/internal/repository"
)

type data struct {
	rides    map[int64]*domain.Ride
	payments map[int64]*domain.Payment
	drivers  map[int64]*domain.Driver
	pricing  *domain.PricingConfig

	nextRideID    int64
	nextPaymentID int64
	nextDriverID  int64
}

func newData() *data {
	return &data{
		rides:    make(map[int64]*domain.Ride),
		payments: make(map[int64]*domain.Payment),
		drivers:  make(map[int64]*domain.Driver),
	}
}

func (d *data) clone() *data {
	c := &data{
		rides:         make(map[int64]*domain.Ride, len(d.rides)),
		payments:      make(map[int64]*domain.Payment, len(d.payments)),
		drivers:       make(map[int64]*domain.Driver, len(d.drivers)),
		nextRideID:    d.nextRideID,
		nextPaymentID: d.nextPaymentID,
		nextDriverID:  d.nextDriverID,
	}
	for id, r := range d.rides {
		c.rides[id] = copyRide(r)
	}
	for id, p := range d.payments {
		c.payments[id] = copyPayment(p)
	}
	for id, drv := range d.drivers {
		c.drivers[id] = copyDriver(drv)
	}
	if d.pricing != nil {
		p := *d.pricing
		c.pricing = &p
	}
	return c
}

// Store is an in-memory implementation of repository.Store.
type Store struct {
	mu   sync.RWMutex
	data *data
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{data: newData(), now: time.Now}
}

func (s *Store) Rides() repository.RideRepository       { return &rideRepo{s: s} }
func (s *Store) Payments() repository.PaymentRepository { return &paymentRepo{s: s} }
func (s *Store) Pricing() repository.PricingRepository  { return &pricingRepo{s: s} }
func (s *Store) Drivers() repository.DriverRepository   { return &driverRepo{s: s} }

// WithinTx runs fn while holding the store lock. Changes made by fn are
// discarded if it returns an error or panics.
func (s *Store) WithinTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	defer func() {
		if p := recover(); p != nil {
			s.data = snapshot
			panic(p)
		}
		if err != nil {
			s.data = snapshot
		}
	}()

	return fn(txUnit{s: s})
}

// txUnit hands out repositories that assume the store lock is held.
type txUnit struct {
	s *Store
}

func (u txUnit) Rides() repository.RideRepository       { return &rideRepo{s: u.s, locked: true} }
func (u txUnit) Payments() repository.PaymentRepository { return &paymentRepo{s: u.s, locked: true} }
func (u txUnit) Pricing() repository.PricingRepository  { return &pricingRepo{s: u.s, locked: true} }
func (u txUnit) Drivers() repository.DriverRepository   { return &driverRepo{s: u.s, locked: true} }

func (s *Store) read(locked bool, fn func(d *data) error) error {
	if !locked {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return fn(s.data)
}

func (s *Store) write(locked bool, fn func(d *data) error) error {
	if !locked {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.data)
}

// ──────────────────────────────────────────────
// RIDES
// ──────────────────────────────────────────────

type rideRepo struct {
	s      *Store
	locked bool
}

func (r *rideRepo) Create(ctx context.Context, ride *domain.Ride) error {
	return r.s.write(r.locked, func(d *data) error {
		d.nextRideID++
		now := r.s.now()
		ride.ID = d.nextRideID
		ride.CreatedAt = now
		ride.UpdatedAt = now
		if ride.PaymentStatus == "" {
			ride.PaymentStatus = domain.PaymentStatusPending
		}
		d.rides[ride.ID] = copyRide(ride)
		return nil
	})
}

func (r *rideRepo) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	var out *domain.Ride
	err := r.s.read(r.locked, func(d *data) error {
		ride, ok := d.rides[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyRide(ride)
		return nil
	})
	return out, err
}

func (r *rideRepo) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	var out []*domain.Ride
	err := r.s.read(r.locked, func(d *data) error {
		for _, ride := range d.rides {
			if matchRide(ride, filter) {
				out = append(out, copyRide(ride))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchRide(ride *domain.Ride, filter repository.RideFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, s := range filter.Statuses {
			if ride.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.DriverID > 0 && ride.DriverID != filter.DriverID {
		return false
	}
	switch filter.PaymentStatus {
	case "":
	case repository.PaymentStatusUnpaid:
		if ride.PaymentStatus == domain.PaymentStatusSucceeded {
			return false
		}
	default:
		if ride.PaymentStatus != filter.PaymentStatus {
			return false
		}
	}
	return true
}

func (r *rideRepo) CompareAndSetStatus(ctx context.Context, id int64, from, to domain.RideStatus, driverID int64) (*domain.Ride, error) {
	var out *domain.Ride
	err := r.s.write(r.locked, func(d *data) error {
		ride, ok := d.rides[id]
		if !ok || ride.Status != from {
			return repository.ErrStateChanged
		}
		ride.Status = to
		if driverID > 0 {
			ride.DriverID = driverID
		}
		ride.UpdatedAt = r.s.now()
		out = copyRide(ride)
		return nil
	})
	return out, err
}

func (r *rideRepo) SetPaymentLink(ctx context.Context, id int64, intentID, status string) error {
	return r.s.write(r.locked, func(d *data) error {
		ride, ok := d.rides[id]
		if !ok {
			return repository.ErrNotFound
		}
		ride.PaymentIntentID = intentID
		ride.PaymentStatus = status
		ride.UpdatedAt = r.s.now()
		return nil
	})
}

func (r *rideRepo) CountByStatus(ctx context.Context) (map[domain.RideStatus]int, error) {
	counts := make(map[domain.RideStatus]int)
	err := r.s.read(r.locked, func(d *data) error {
		for _, ride := range d.rides {
			counts[ride.Status]++
		}
		return nil
	})
	return counts, err
}

// ──────────────────────────────────────────────
// PAYMENTS
// ──────────────────────────────────────────────

type paymentRepo struct {
	s      *Store
	locked bool
}

func (r *paymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	return r.s.write(r.locked, func(d *data) error {
		for _, existing := range d.payments {
			if existing.RideID == payment.RideID {
				return repository.ErrDuplicate
			}
		}
		d.nextPaymentID++
		now := r.s.now()
		payment.ID = d.nextPaymentID
		payment.CreatedAt = now
		payment.UpdatedAt = now
		d.payments[payment.ID] = copyPayment(payment)
		return nil
	})
}

func (r *paymentRepo) GetByRideID(ctx context.Context, rideID int64) (*domain.Payment, error) {
	return r.find(func(p *domain.Payment) bool { return p.RideID == rideID })
}

func (r *paymentRepo) GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	return r.find(func(p *domain.Payment) bool { return p.IntentID == intentID })
}

func (r *paymentRepo) find(match func(p *domain.Payment) bool) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.s.read(r.locked, func(d *data) error {
		for _, p := range d.payments {
			if match(p) && (out == nil || p.ID < out.ID) {
				out = p
			}
		}
		if out == nil {
			return repository.ErrNotFound
		}
		out = copyPayment(out)
		return nil
	})
	return out, err
}

func (r *paymentRepo) Update(ctx context.Context, payment *domain.Payment) error {
	return r.s.write(r.locked, func(d *data) error {
		existing, ok := d.payments[payment.ID]
		if !ok {
			return repository.ErrNotFound
		}
		payment.RideID = existing.RideID
		payment.CreatedAt = existing.CreatedAt
		payment.UpdatedAt = r.s.now()
		d.payments[payment.ID] = copyPayment(payment)
		return nil
	})
}

func (r *paymentRepo) List(ctx context.Context, status string, limit int) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := r.s.read(r.locked, func(d *data) error {
		for _, p := range d.payments {
			if status == "" || p.Status == status {
				out = append(out, copyPayment(p))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *paymentRepo) Stats(ctx context.Context) (repository.PaymentStats, error) {
	var stats repository.PaymentStats
	err := r.s.read(r.locked, func(d *data) error {
		for _, p := range d.payments {
			if p.Status == domain.PaymentStatusSucceeded {
				stats.Succeeded++
				stats.RevenueAmount += p.Amount
			} else {
				stats.NotSucceeded++
			}
		}
		return nil
	})
	return stats, err
}

// ──────────────────────────────────────────────
// PRICING
// ──────────────────────────────────────────────

type pricingRepo struct {
	s      *Store
	locked bool
}

func (r *pricingRepo) Get(ctx context.Context) (*domain.PricingConfig, error) {
	var out *domain.PricingConfig
	err := r.s.read(r.locked, func(d *data) error {
		if d.pricing == nil {
			return repository.ErrNotFound
		}
		cfg := *d.pricing
		out = &cfg
		return nil
	})
	return out, err
}

func (r *pricingRepo) EnsureDefault(ctx context.Context, def domain.PricingConfig) (*domain.PricingConfig, error) {
	var out *domain.PricingConfig
	err := r.s.write(r.locked, func(d *data) error {
		if d.pricing == nil {
			def.ID = 1
			def.UpdatedAt = r.s.now()
			d.pricing = &def
		}
		cfg := *d.pricing
		out = &cfg
		return nil
	})
	return out, err
}

func (r *pricingRepo) Save(ctx context.Context, cfg *domain.PricingConfig) error {
	return r.s.write(r.locked, func(d *data) error {
		cfg.ID = 1
		cfg.UpdatedAt = r.s.now()
		stored := *cfg
		d.pricing = &stored
		return nil
	})
}

// ──────────────────────────────────────────────
// DRIVERS
// ──────────────────────────────────────────────

type driverRepo struct {
	s      *Store
	locked bool
}

func (r *driverRepo) Create(ctx context.Context, driver *domain.Driver) error {
	return r.s.write(r.locked, func(d *data) error {
		for _, existing := range d.drivers {
			if existing.Email == driver.Email {
				return repository.ErrDuplicate
			}
		}
		d.nextDriverID++
		now := r.s.now()
		driver.ID = d.nextDriverID
		driver.CreatedAt = now
		driver.UpdatedAt = now
		d.drivers[driver.ID] = copyDriver(driver)
		return nil
	})
}

func (r *driverRepo) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	var out *domain.Driver
	err := r.s.read(r.locked, func(d *data) error {
		driver, ok := d.drivers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyDriver(driver)
		return nil
	})
	return out, err
}

func (r *driverRepo) GetByEmail(ctx context.Context, email string) (*domain.Driver, error) {
	var out *domain.Driver
	err := r.s.read(r.locked, func(d *data) error {
		for _, driver := range d.drivers {
			if driver.Email == email {
				out = copyDriver(driver)
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *driverRepo) List(ctx context.Context) ([]*domain.Driver, error) {
	var out []*domain.Driver
	err := r.s.read(r.locked, func(d *data) error {
		for _, driver := range d.drivers {
			out = append(out, copyDriver(driver))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *driverRepo) Update(ctx context.Context, driver *domain.Driver) error {
	return r.s.write(r.locked, func(d *data) error {
		existing, ok := d.drivers[driver.ID]
		if !ok {
			return repository.ErrNotFound
		}
		for id, other := range d.drivers {
			if id != driver.ID && other.Email == driver.Email {
				return repository.ErrDuplicate
			}
		}
		driver.CreatedAt = existing.CreatedAt
		driver.UpdatedAt = r.s.now()
		d.drivers[driver.ID] = copyDriver(driver)
		return nil
	})
}

func (r *driverRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.s.read(r.locked, func(d *data) error {
		n = len(d.drivers)
		return nil
	})
	return n, err
}

// ──────────────────────────────────────────────
// COPY HELPERS
// ──────────────────────────────────────────────

func copyRide(r *domain.Ride) *domain.Ride {
	c := *r
	return &c
}

func copyPayment(p *domain.Payment) *domain.Payment {
	c := *p
	if p.Metadata != nil {
		c.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func copyDriver(d *domain.Driver) *domain.Driver {
	c := *d
	if d.CurrentLat != nil {
		lat := *d.CurrentLat
		c.CurrentLat = &lat
	}
	if d.CurrentLon != nil {
		lon := *d.CurrentLon
		c.CurrentLon = &lon
	}
	if d.LastLoginAt != nil {
		at := *d.LastLoginAt
		c.LastLoginAt = &at
	}
	return &c
}
