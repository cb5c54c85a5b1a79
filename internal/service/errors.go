package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"kostaxi/internal/domain"
	"kostaxi/internal/repository"
)

// notFoundError is a user-facing not-found error that matches
// repository.ErrNotFound.
type notFoundError string

func (e notFoundError) Error() string { return string(e) }
func (e notFoundError) Unwrap() error { return repository.ErrNotFound }

var (
	// ErrRideNotFound is returned when a ride does not exist or is not
	// visible to the acting driver.
	ErrRideNotFound error = notFoundError("Ride not found")

	// ErrDriverNotFound is returned when a driver does not exist.
	ErrDriverNotFound error = notFoundError("Driver not found")

	// ErrInvalidTransition is returned when the ride state machine forbids a move.
	ErrInvalidTransition = errors.New("invalid ride status transition")

	// ErrDriverIDRequired is returned when accept is called without a driver.
	ErrDriverIDRequired = errors.New("Driver ID is required")

	// ErrInvalidStatus is returned for a target status outside AllowedTargetStatuses.
	ErrInvalidStatus = errors.New("Invalid status")

	// ErrGatewayUnavailable is returned when the payment provider call failed.
	ErrGatewayUnavailable = errors.New("payment provider unavailable")

	// ErrPaymentIntentFailed is returned when no payment intent could be created.
	ErrPaymentIntentFailed = errors.New("Unable to create payment intent")

	// ErrWebhookNotConfigured is returned when no webhook secret is set.
	ErrWebhookNotConfigured = errors.New("Webhook secret not configured")

	// ErrInvalidWebhook is returned when a webhook fails verification.
	ErrInvalidWebhook = errors.New("Invalid signature")

	// ErrDriverExists is returned when registering a taken email.
	ErrDriverExists = errors.New("Driver with this email already exists")

	// ErrInvalidCredentials is returned on a failed login.
	ErrInvalidCredentials = errors.New("Invalid credentials")

	// ErrInvalidToken is returned for an unusable refresh token.
	ErrInvalidToken = errors.New("Invalid refresh token")

	// ErrExpiredToken is returned for an expired refresh token.
	ErrExpiredToken = errors.New("Refresh token expired")

	// ErrLocationsUnavailable is returned when the geo index is not configured.
	ErrLocationsUnavailable = errors.New("Driver locations unavailable")
)

// TransitionError describes a rejected ride status change.
type TransitionError struct {
	From    domain.RideStatus
	To      domain.RideStatus
	Message string
}

func (e *TransitionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("Ride cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ValidationError carries every field problem of a request at once.
type ValidationError struct {
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e.Message + ": " + strings.Join(keys, ", ")
}

// StatusError is returned by UpdateStatus for an unknown target status.
type StatusError struct {
	Allowed []string
}

func (e *StatusError) Error() string { return ErrInvalidStatus.Error() }

func (e *StatusError) Unwrap() error { return ErrInvalidStatus }
