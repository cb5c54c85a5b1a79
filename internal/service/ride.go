package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"kostaxi/internal/domain"
	"kostaxi/internal/estimator"
	"kostaxi/internal/logger"
	"kostaxi/internal/metrics"
	"kostaxi/internal/notification"
	"kostaxi/internal/repository"
)

// AllowedTargetStatuses are the statuses a driver may set on an assigned ride.
var AllowedTargetStatuses = []domain.RideStatus{
	domain.RideStatusAccepted,
	domain.RideStatusInProgress,
	domain.RideStatusCompleted,
	domain.RideStatusCancelled,
}

// RideDetails is a ride together with its payment, if any.
type RideDetails struct {
	Ride    *domain.Ride
	Payment *domain.Payment
}

// CreateRideResult is the outcome of CreateRide. Payment is nil and
// PaymentError set when the payment intent could not be created.
type CreateRideResult struct {
	Ride         *domain.Ride
	Estimate     domain.Estimate
	Payment      *PaymentResult
	PaymentError string
}

// RideService owns the ride state machine and orchestrates estimation,
// payment and notification around it.
type RideService struct {
	store    repository.Store
	pricing  *PricingService
	payments *PaymentService
	notifier Notifier
	log      *logger.Logger
}

// NewRideService creates a new RideService. notifier may be nil.
func NewRideService(
	store repository.Store,
	pricing *PricingService,
	payments *PaymentService,
	notifier Notifier,
	log *logger.Logger,
) *RideService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &RideService{
		store:    store,
		pricing:  pricing,
		payments: payments,
		notifier: notifier,
		log:      logger.OrNop(log).Named("rides"),
	}
}

// Estimate quotes distance, duration and fare without persisting anything.
func (s *RideService) Estimate(ctx context.Context, in RideInput) (*domain.Estimate, error) {
	req, err := ParseRideInput(in, false)
	if err != nil {
		return nil, err
	}

	quote, err := estimator.Estimate(req.PickupAddress, req.DropoffAddress, req.ScheduledTime, req.PassengerCount)
	if err != nil {
		return nil, &ValidationError{Message: "Invalid ride request", Details: map[string]string{"pickup_address": err.Error()}}
	}

	pricing, err := s.pricing.Current(ctx)
	if err != nil {
		return nil, err
	}

	return &domain.Estimate{
		DistanceKm:      quote.DistanceKm,
		DurationMinutes: quote.DurationMinutes,
		Fare:            pricing.Fare(quote.DistanceKm),
	}, nil
}

// CreateRide validates and persists a pending ride, then makes a
// best-effort attempt at its payment intent and notification. Payment
// failure never undoes the ride.
func (s *RideService) CreateRide(ctx context.Context, in RideInput) (*CreateRideResult, error) {
	req, err := ParseRideInput(in, true)
	if err != nil {
		return nil, err
	}

	quote, err := estimator.Estimate(req.PickupAddress, req.DropoffAddress, req.ScheduledTime, req.PassengerCount)
	if err != nil {
		return nil, &ValidationError{Message: "Invalid ride request", Details: map[string]string{"pickup_address": err.Error()}}
	}

	ride := &domain.Ride{
		RiderName:                req.RiderName,
		UserEmail:                req.Email,
		UserPhone:                req.Phone,
		PickupAddress:            req.PickupAddress,
		DropoffAddress:           req.DropoffAddress,
		Status:                   domain.RideStatusPending,
		DistanceKm:               quote.DistanceKm,
		EstimatedDurationMinutes: quote.DurationMinutes,
		PassengerCount:           req.PassengerCount,
		ScheduledTime:            req.ScheduledTime,
		Notes:                    req.Notes,
		PaymentStatus:            domain.PaymentStatusPending,
	}

	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		pricing, err := uow.Pricing().EnsureDefault(ctx, domain.DefaultPricing())
		if err != nil {
			return err
		}
		ride.Fare = pricing.Fare(quote.DistanceKm)
		return uow.Rides().Create(ctx, ride)
	})
	if err != nil {
		return nil, fmt.Errorf("create ride: %w", err)
	}
	metrics.RidesCreated.Inc()

	result := &CreateRideResult{
		Ride: ride,
		Estimate: domain.Estimate{
			DistanceKm:      ride.DistanceKm,
			DurationMinutes: ride.EstimatedDurationMinutes,
			Fare:            ride.Fare,
		},
	}

	payment, err := s.payments.EnsureIntent(ctx, ride)
	if err != nil {
		result.PaymentError = err.Error()
		s.log.Warn("ride created without payment intent", logger.Int64("ride_id", ride.ID), logger.Err(err))
	} else {
		result.Payment = payment
	}

	var notified *domain.Payment
	if result.Payment != nil {
		notified = result.Payment.Payment
	}
	s.notifier.Notify(notification.NewEvent(notification.EventCreated, ride, &result.Estimate, notified))

	s.log.Info("ride created",
		logger.Int64("ride_id", ride.ID),
		logger.Float64("fare", ride.Fare),
		logger.Float64("distance_km", ride.DistanceKm),
	)
	return result, nil
}

// GetRide returns a ride and its payment.
func (s *RideService) GetRide(ctx context.Context, id int64) (*RideDetails, error) {
	ride, err := s.store.Rides().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrRideNotFound)
	}
	payment, err := loadPayment(ctx, s.store.Payments(), id)
	if err != nil {
		return nil, err
	}
	return &RideDetails{Ride: ride, Payment: payment}, nil
}

// ListPending returns pending rides, newest first.
func (s *RideService) ListPending(ctx context.Context) ([]RideDetails, error) {
	return s.list(ctx, repository.RideFilter{Statuses: []domain.RideStatus{domain.RideStatusPending}})
}

// ListDriverRides returns the rides assigned to a driver, optionally
// narrowed to statuses.
func (s *RideService) ListDriverRides(ctx context.Context, driverID int64, statuses []string) ([]RideDetails, error) {
	filter := repository.RideFilter{DriverID: driverID}
	for _, st := range statuses {
		if st = strings.ToLower(strings.TrimSpace(st)); st != "" {
			filter.Statuses = append(filter.Statuses, domain.RideStatus(st))
		}
	}
	return s.list(ctx, filter)
}

func (s *RideService) list(ctx context.Context, filter repository.RideFilter) ([]RideDetails, error) {
	rides, err := s.store.Rides().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list rides: %w", err)
	}
	return attachPayments(ctx, s.store.Payments(), rides)
}

// Accept assigns a pending ride to a driver. Of several concurrent
// accepts exactly one succeeds.
func (s *RideService) Accept(ctx context.Context, rideID, driverID int64) (*RideDetails, error) {
	if driverID <= 0 {
		return nil, ErrDriverIDRequired
	}

	var details *RideDetails
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		ride, err := uow.Rides().GetByID(ctx, rideID)
		if err != nil {
			return mapNotFound(err, ErrRideNotFound)
		}
		if _, err := uow.Drivers().GetByID(ctx, driverID); err != nil {
			return mapNotFound(err, ErrDriverNotFound)
		}

		notAvailable := &TransitionError{From: ride.Status, To: domain.RideStatusAccepted, Message: "Ride is not available"}
		if ride.Status != domain.RideStatusPending {
			return notAvailable
		}

		updated, err := uow.Rides().CompareAndSetStatus(ctx, rideID, domain.RideStatusPending, domain.RideStatusAccepted, driverID)
		if errors.Is(err, repository.ErrStateChanged) {
			return notAvailable
		}
		if err != nil {
			return err
		}

		payment, err := loadPayment(ctx, uow.Payments(), rideID)
		if err != nil {
			return err
		}
		details = &RideDetails{Ride: updated, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(details.Ride)
	return details, nil
}

// Complete marks an accepted or in-progress ride as completed.
func (s *RideService) Complete(ctx context.Context, rideID int64) (*RideDetails, error) {
	return s.transition(ctx, rideID, domain.RideStatusCompleted, "Ride cannot be completed")
}

// Cancel cancels any ride that has not finished.
func (s *RideService) Cancel(ctx context.Context, rideID int64) (*RideDetails, error) {
	return s.transition(ctx, rideID, domain.RideStatusCancelled, "Ride cannot be cancelled")
}

// UpdateStatus moves a ride assigned to driverID to status. Rides assigned
// to another driver are reported as not found.
func (s *RideService) UpdateStatus(ctx context.Context, rideID, driverID int64, status string) (*RideDetails, error) {
	target := domain.RideStatus(strings.ToLower(strings.TrimSpace(status)))

	var details *RideDetails
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		ride, err := uow.Rides().GetByID(ctx, rideID)
		if err != nil {
			return mapNotFound(err, ErrRideNotFound)
		}
		if !ride.HasDriver() || ride.DriverID != driverID {
			return ErrRideNotFound
		}

		if !isAllowedTarget(target) {
			return &StatusError{Allowed: allowedTargetNames()}
		}
		if target == domain.RideStatusAccepted && ride.Status != domain.RideStatusPending {
			return &TransitionError{From: ride.Status, To: target, Message: "Ride cannot be re-accepted"}
		}

		updated, err := s.compareAndSet(ctx, uow, ride, target, "")
		if err != nil {
			return err
		}

		payment, err := loadPayment(ctx, uow.Payments(), rideID)
		if err != nil {
			return err
		}
		details = &RideDetails{Ride: updated, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(details.Ride)
	return details, nil
}

func (s *RideService) transition(ctx context.Context, rideID int64, to domain.RideStatus, message string) (*RideDetails, error) {
	var details *RideDetails
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		ride, err := uow.Rides().GetByID(ctx, rideID)
		if err != nil {
			return mapNotFound(err, ErrRideNotFound)
		}

		updated, err := s.compareAndSet(ctx, uow, ride, to, message)
		if err != nil {
			return err
		}

		payment, err := loadPayment(ctx, uow.Payments(), rideID)
		if err != nil {
			return err
		}
		details = &RideDetails{Ride: updated, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(details.Ride)
	return details, nil
}

// compareAndSet applies ride.Status -> to if the state machine allows it
// and the stored status has not moved in the meantime.
func (s *RideService) compareAndSet(ctx context.Context, uow repository.UnitOfWork, ride *domain.Ride, to domain.RideStatus, message string) (*domain.Ride, error) {
	rejected := &TransitionError{From: ride.Status, To: to, Message: message}
	if !ride.Status.CanTransitionTo(to) {
		return nil, rejected
	}

	updated, err := uow.Rides().CompareAndSetStatus(ctx, ride.ID, ride.Status, to, 0)
	if errors.Is(err, repository.ErrStateChanged) {
		return nil, rejected
	}
	return updated, err
}

func (s *RideService) transitioned(ride *domain.Ride) {
	metrics.RideTransitions.WithLabelValues(string(ride.Status)).Inc()
	s.log.Info("ride status changed",
		logger.Int64("ride_id", ride.ID),
		logger.String("status", string(ride.Status)),
		logger.Int64("driver_id", ride.DriverID),
	)
	notifyStatus(s.notifier, ride)
}

func isAllowedTarget(status domain.RideStatus) bool {
	for _, allowed := range AllowedTargetStatuses {
		if status == allowed {
			return true
		}
	}
	return false
}

func allowedTargetNames() []string {
	names := make([]string, 0, len(AllowedTargetStatuses))
	for _, st := range AllowedTargetStatuses {
		names = append(names, string(st))
	}
	sort.Strings(names)
	return names
}

// loadPayment returns the ride's payment, or nil when it has none.
func loadPayment(ctx context.Context, payments repository.PaymentRepository, rideID int64) (*domain.Payment, error) {
	payment, err := payments.GetByRideID(ctx, rideID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load payment: %w", err)
	}
	return payment, nil
}

func attachPayments(ctx context.Context, payments repository.PaymentRepository, rides []*domain.Ride) ([]RideDetails, error) {
	out := make([]RideDetails, 0, len(rides))
	for _, ride := range rides {
		payment, err := loadPayment(ctx, payments, ride.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RideDetails{Ride: ride, Payment: payment})
	}
	return out, nil
}
