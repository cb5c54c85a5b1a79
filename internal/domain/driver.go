package domain

import (
	"strings"
	"time"
)

// Driver is a registered driver that can accept rides.
type Driver struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	VehicleModel string
	VehiclePlate string
	PasswordHash string
	IsAvailable  bool
	CurrentLat   *float64
	CurrentLon   *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
