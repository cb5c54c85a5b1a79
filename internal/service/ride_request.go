package service

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// RideInput is a ride request as received at the API boundary, before
// validation. PassengerCount is the raw textual value; empty means 1.
type RideInput struct {
	PickupAddress  string
	DropoffAddress string
	ScheduledTime  string
	PassengerCount string
	RiderName      string
	Email          string
	Phone          string
	Notes          string
}

// RideRequest is a validated ride request.
type RideRequest struct {
	PickupAddress  string
	DropoffAddress string
	ScheduledTime  time.Time
	PassengerCount int
	RiderName      string
	Email          string
	Phone          string
	Notes          string
}

// scheduledTimeLayouts are the accepted ISO 8601 forms, with and without offset.
var scheduledTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseRideInput validates in and collects every field problem into a
// single ValidationError. The contact rule applies only when
// requireContact is set.
func ParseRideInput(in RideInput, requireContact bool) (*RideRequest, error) {
	details := map[string]string{}

	req := &RideRequest{
		PickupAddress:  strings.TrimSpace(in.PickupAddress),
		DropoffAddress: strings.TrimSpace(in.DropoffAddress),
		RiderName:      strings.TrimSpace(in.RiderName),
		Email:          strings.TrimSpace(in.Email),
		Phone:          strings.TrimSpace(in.Phone),
		Notes:          strings.TrimSpace(in.Notes),
		PassengerCount: 1,
	}

	if req.PickupAddress == "" {
		details["pickup_address"] = "Pickup address is required."
	}
	if req.DropoffAddress == "" {
		details["dropoff_address"] = "Drop-off address is required."
	}

	if raw := strings.TrimSpace(in.PassengerCount); raw != "" {
		count, ok := parseWholeNumber(raw)
		switch {
		case !ok:
			details["passenger_count"] = "Passenger count must be a whole number."
		case count < 1:
			details["passenger_count"] = "Passenger count must be at least 1."
		default:
			req.PassengerCount = count
		}
	}

	if raw := strings.TrimSpace(in.ScheduledTime); raw == "" {
		details["scheduled_time"] = "Scheduled time is required."
	} else if t, ok := parseScheduledTime(raw); ok {
		req.ScheduledTime = t
	} else {
		details["scheduled_time"] = "Scheduled time must be an ISO formatted date string."
	}

	if requireContact && req.Email == "" && req.Phone == "" {
		details["contact"] = "Provide at least an email or phone number so drivers can reach you."
	}

	if len(details) > 0 {
		return nil, &ValidationError{Message: "Invalid ride request", Details: details}
	}
	return req, nil
}

// parseWholeNumber accepts integers and integral decimals such as "2.0".
func parseWholeNumber(raw string) (int, bool) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// parseScheduledTime parses raw; values without an offset are taken as UTC.
func parseScheduledTime(raw string) (time.Time, bool) {
	for _, layout := range scheduledTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
