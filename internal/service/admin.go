package service

import (
	"context"
	"fmt"
	"strings"

	"kostaxi/internal/domain"
	"kostaxi/internal/repository"
)

const overviewLimit = 200

// OverviewFilter narrows the admin overview. Empty strings and "all"
// match everything; a zero DriverID matches every driver.
type OverviewFilter struct {
	RideStatus    string
	PaymentStatus string
	DriverID      int64
}

// OverviewTotals are the dashboard counters.
type OverviewTotals struct {
	RidesTotal        int
	RidesPending      int
	RidesCompleted    int
	PaymentsSucceeded int
	PaymentsFailed    int
	DriversTotal      int
	RevenueEUR        float64
}

// Overview is the admin dashboard snapshot.
type Overview struct {
	Filters  OverviewFilter
	Rides    []RideDetails
	Drivers  []*domain.Driver
	Payments []*domain.Payment
	Totals   OverviewTotals
}

// AdminService builds read-only summaries for internal dashboards.
type AdminService struct {
	store repository.Store
}

// NewAdminService creates a new AdminService.
func NewAdminService(store repository.Store) *AdminService {
	return &AdminService{store: store}
}

// Overview returns filtered rides and payments (at most 200 each), every
// driver, and global totals.
func (s *AdminService) Overview(ctx context.Context, filter OverviewFilter) (*Overview, error) {
	filter.RideStatus = normalizeFilter(filter.RideStatus)
	filter.PaymentStatus = normalizeFilter(filter.PaymentStatus)
	if filter.DriverID < 0 {
		filter.DriverID = 0
	}

	rideFilter := repository.RideFilter{DriverID: filter.DriverID, Limit: overviewLimit}
	if filter.RideStatus != "all" {
		rideFilter.Statuses = []domain.RideStatus{domain.RideStatus(filter.RideStatus)}
	}
	paymentStatus := ""
	if filter.PaymentStatus != "all" {
		rideFilter.PaymentStatus = filter.PaymentStatus
		if filter.PaymentStatus != repository.PaymentStatusUnpaid {
			paymentStatus = filter.PaymentStatus
		}
	}

	rides, err := s.store.Rides().List(ctx, rideFilter)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	details, err := attachPayments(ctx, s.store.Payments(), rides)
	if err != nil {
		return nil, err
	}

	drivers, err := s.store.Drivers().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}

	payments, err := s.store.Payments().List(ctx, paymentStatus, overviewLimit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	totals, err := s.totals(ctx, len(drivers))
	if err != nil {
		return nil, err
	}

	return &Overview{
		Filters:  filter,
		Rides:    details,
		Drivers:  drivers,
		Payments: payments,
		Totals:   totals,
	}, nil
}

func (s *AdminService) totals(ctx context.Context, drivers int) (OverviewTotals, error) {
	counts, err := s.store.Rides().CountByStatus(ctx)
	if err != nil {
		return OverviewTotals{}, fmt.Errorf("count rides: %w", err)
	}
	stats, err := s.store.Payments().Stats(ctx)
	if err != nil {
		return OverviewTotals{}, fmt.Errorf("payment stats: %w", err)
	}

	totals := OverviewTotals{
		RidesPending:      counts[domain.RideStatusPending],
		RidesCompleted:    counts[domain.RideStatusCompleted],
		PaymentsSucceeded: stats.Succeeded,
		PaymentsFailed:    stats.NotSucceeded,
		DriversTotal:      drivers,
		RevenueEUR:        domain.RoundCents(float64(stats.RevenueAmount) / 100),
	}
	for _, n := range counts {
		totals.RidesTotal += n
	}
	return totals, nil
}

func normalizeFilter(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "all") {
		return "all"
	}
	return v
}
