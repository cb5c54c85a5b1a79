package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusInProgress RideStatus = "in_progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// rideTransitions lists the permitted next states for every state.
var rideTransitions = map[RideStatus][]RideStatus{
	RideStatusPending:    {RideStatusAccepted, RideStatusCancelled},
	RideStatusAccepted:   {RideStatusInProgress, RideStatusCompleted, RideStatusCancelled},
	RideStatusInProgress: {RideStatusCompleted, RideStatusCancelled},
	RideStatusCompleted:  nil,
	RideStatusCancelled:  nil,
}

// RideStatuses returns every known ride status in lifecycle order.
func RideStatuses() []RideStatus {
	return []RideStatus{
		RideStatusPending,
		RideStatusAccepted,
		RideStatusInProgress,
		RideStatusCompleted,
		RideStatusCancelled,
	}
}

// Valid reports whether s is a known status.
func (s RideStatus) Valid() bool {
	_, ok := rideTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// CanTransitionTo reports whether next is a permitted successor of s.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	for _, candidate := range rideTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Ride is a single trip booking from pickup to dropoff.
// DriverID is zero until the ride is accepted.
type Ride struct {
	ID                       int64
	RiderName                string
	UserEmail                string
	UserPhone                string
	DriverID                 int64
	PickupAddress            string
	DropoffAddress           string
	Status                   RideStatus
	Fare                     float64
	DistanceKm               float64
	EstimatedDurationMinutes int
	PassengerCount           int
	ScheduledTime            time.Time
	Notes                    string
	PaymentIntentID          string
	PaymentStatus            string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// HasDriver reports whether a driver has been assigned.
func (r *Ride) HasDriver() bool {
	return r.DriverID > 0
}

// Estimate is the quote produced for a trip request.
type Estimate struct {
	DistanceKm      float64
	DurationMinutes int
	Fare            float64
}
