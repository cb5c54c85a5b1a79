// Package estimator produces deterministic distance and duration quotes
// from address strings. Distances are a stable stand-in for real routing:
// the same address pair always yields the same distance, in either order.
package estimator

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	MinDistanceKm      = 1.2
	MaxDistanceKm      = 65.0
	AverageSpeedKmh    = 35.0
	RushHourMultiplier = 1.25
	MinDurationMinutes = 10

	signatureHexDigits = 12
	signatureModulus   = 50000
	signatureScale     = 900.0
	perPassengerBuffer = 2
	loadingBuffer      = 5
)

// rushWindows are inclusive local-hour ranges.
var rushWindows = [][2]int{{7, 9}, {16, 19}}

// ErrMissingAddress is returned when either address is empty.
var ErrMissingAddress = errors.New("pickup and drop-off addresses are required for estimation")

// Result holds a distance and duration quote.
type Result struct {
	DistanceKm      float64
	DurationMinutes int
}

// Estimate quotes distance and duration for a trip.
// A zero scheduled time disables the rush hour adjustment.
func Estimate(pickup, dropoff string, scheduled time.Time, passengers int) (Result, error) {
	distance, err := DistanceKm(pickup, dropoff)
	if err != nil {
		return Result{}, err
	}
	return Result{
		DistanceKm:      distance,
		DurationMinutes: DurationMinutes(distance, scheduled, passengers),
	}, nil
}

// DistanceKm returns the pseudo-distance between two addresses,
// clamped to [MinDistanceKm, MaxDistanceKm] and rounded to two decimals.
func DistanceKm(pickup, dropoff string) (float64, error) {
	if pickup == "" || dropoff == "" {
		return 0, ErrMissingAddress
	}

	if strings.ToLower(strings.TrimSpace(pickup)) == strings.ToLower(strings.TrimSpace(dropoff)) {
		return MinDistanceKm, nil
	}

	delta := signature(pickup) - signature(dropoff)
	if delta < 0 {
		delta = -delta
	}

	distance := MinDistanceKm + float64(delta%signatureModulus)/signatureScale
	distance = math.Min(MaxDistanceKm, math.Max(MinDistanceKm, distance))
	return math.Round(distance*100) / 100, nil
}

// DurationMinutes returns the travel time in whole minutes, never below MinDurationMinutes.
func DurationMinutes(distanceKm float64, scheduled time.Time, passengers int) int {
	if distanceKm <= 0 {
		distanceKm = MinDistanceKm
	}

	minutes := distanceKm / AverageSpeedKmh * 60
	minutes *= trafficMultiplier(scheduled)
	if passengers > 1 {
		minutes += float64((passengers - 1) * perPassengerBuffer)
	}
	minutes += loadingBuffer

	total := int(math.Ceil(minutes))
	if total < MinDurationMinutes {
		return MinDurationMinutes
	}
	return total
}

func trafficMultiplier(scheduled time.Time) float64 {
	if scheduled.IsZero() {
		return 1.0
	}
	hour := scheduled.Hour()
	for _, window := range rushWindows {
		if hour >= window[0] && hour <= window[1] {
			return RushHourMultiplier
		}
	}
	return 1.0
}

// normalize keeps lowercase letters and numeric characters only, so
// "25½" and "Ⅳ" survive alongside ASCII digits.
func normalize(address string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(address) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// signature is the leading 48 bits of the SHA-1 of the normalized address.
func signature(address string) int64 {
	normalized := normalize(address)
	if normalized == "" {
		return 0
	}
	sum := sha1.Sum([]byte(normalized))
	digest := hex.EncodeToString(sum[:])
	value, _ := strconv.ParseInt(digest[:signatureHexDigits], 16, 64)
	return value
}
