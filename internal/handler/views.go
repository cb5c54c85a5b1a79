package handler

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"kostaxi/internal/auth"
	"kostaxi/internal/domain"
	"kostaxi/internal/service"
)

// RideView is the JSON form of a ride. The drop-off address is exposed
// under all three names clients use.
type RideView struct {
	ID                       int64        `json:"id"`
	RiderName                string       `json:"rider_name"`
	UserEmail                string       `json:"user_email"`
	UserPhone                string       `json:"user_phone"`
	DriverID                 *int64       `json:"driver_id"`
	PickupAddress            string       `json:"pickup_address"`
	DestAddress              string       `json:"dest_address"`
	DropoffAddress           string       `json:"dropoff_address"`
	DestinationAddress       string       `json:"destination_address"`
	Status                   string       `json:"status"`
	Fare                     float64      `json:"fare"`
	DistanceKm               float64      `json:"distance_km"`
	EstimatedDurationMinutes int          `json:"estimated_duration_minutes"`
	PassengerCount           int          `json:"passenger_count"`
	ScheduledTime            *string      `json:"scheduled_time"`
	Notes                    string       `json:"notes"`
	PaymentIntentID          string       `json:"payment_intent_id"`
	PaymentStatus            string       `json:"payment_status"`
	CustomerPhone            string       `json:"customer_phone"`
	CreatedAt                *string      `json:"created_at"`
	UpdatedAt                *string      `json:"updated_at"`
	Payment                  *PaymentView `json:"payment"`
}

// PaymentView is the JSON form of a payment. ClientSecret is only filled
// for the paying client.
type PaymentView struct {
	ID              int64             `json:"id"`
	RideID          int64             `json:"ride_id"`
	PaymentIntentID string            `json:"payment_intent_id"`
	Status          string            `json:"status"`
	Amount          int64             `json:"amount"`
	AmountEUR       float64           `json:"amount_eur"`
	Currency        string            `json:"currency"`
	Metadata        map[string]string `json:"metadata"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerPhone   string            `json:"customer_phone"`
	LastError       string            `json:"last_error"`
	CreatedAt       *string           `json:"created_at"`
	UpdatedAt       *string           `json:"updated_at"`
	ClientSecret    string            `json:"client_secret,omitempty"`
}

// IntentView is a payment returned to the paying client, flagged when it
// was synthesized without a live gateway.
type IntentView struct {
	PaymentView
	Placeholder bool   `json:"placeholder,omitempty"`
	Message     string `json:"message,omitempty"`
}

// EstimateView is the quote returned by the estimate endpoint.
type EstimateView struct {
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes int     `json:"durationMinutes"`
	Fare            float64 `json:"fare"`
}

// DriverView is the JSON form of a driver; the password hash never leaves.
type DriverView struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Phone        string   `json:"phone"`
	VehicleModel string   `json:"vehicle_model"`
	VehiclePlate string   `json:"vehicle_plate"`
	IsAvailable  bool     `json:"is_available"`
	CurrentLat   *float64 `json:"current_lat"`
	CurrentLon   *float64 `json:"current_lon"`
	CreatedAt    *string  `json:"created_at"`
	UpdatedAt    *string  `json:"updated_at"`
	LastLoginAt  *string  `json:"last_login_at"`
}

// PricingView is the JSON form of the tariff.
type PricingView struct {
	ID         int64   `json:"id"`
	BaseFare   float64 `json:"base_fare"`
	PricePerKm float64 `json:"price_per_km"`
	UpdatedAt  *string `json:"updated_at"`
}

// TokenResponse carries a token pair and, on login, the driver.
type TokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	Driver       *DriverView `json:"driver,omitempty"`
}

func isoTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339Nano)
	return &s
}

func isoTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return isoTime(*t)
}

// newRideView renders a ride. A known payment overrides the ride's
// denormalized payment fields.
func newRideView(ride *domain.Ride, payment *domain.Payment) RideView {
	v := RideView{
		ID:                       ride.ID,
		RiderName:                ride.RiderName,
		UserEmail:                ride.UserEmail,
		UserPhone:                ride.UserPhone,
		PickupAddress:            ride.PickupAddress,
		DestAddress:              ride.DropoffAddress,
		DropoffAddress:           ride.DropoffAddress,
		DestinationAddress:       ride.DropoffAddress,
		Status:                   string(ride.Status),
		Fare:                     ride.Fare,
		DistanceKm:               ride.DistanceKm,
		EstimatedDurationMinutes: ride.EstimatedDurationMinutes,
		PassengerCount:           ride.PassengerCount,
		ScheduledTime:            isoTime(ride.ScheduledTime),
		Notes:                    ride.Notes,
		PaymentIntentID:          ride.PaymentIntentID,
		PaymentStatus:            ride.PaymentStatus,
		CustomerPhone:            ride.UserPhone,
		CreatedAt:                isoTime(ride.CreatedAt),
		UpdatedAt:                isoTime(ride.UpdatedAt),
	}
	if ride.HasDriver() {
		id := ride.DriverID
		v.DriverID = &id
	}
	if payment != nil {
		v.PaymentIntentID = payment.IntentID
		v.PaymentStatus = payment.Status
		pv := newPaymentView(payment, false)
		v.Payment = &pv
	}
	return v
}

func newRideViews(details []service.RideDetails) []RideView {
	out := make([]RideView, 0, len(details))
	for _, d := range details {
		out = append(out, newRideView(d.Ride, d.Payment))
	}
	return out
}

func newPaymentView(p *domain.Payment, withSecret bool) PaymentView {
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	v := PaymentView{
		ID:              p.ID,
		RideID:          p.RideID,
		PaymentIntentID: p.IntentID,
		Status:          p.Status,
		Amount:          p.Amount,
		AmountEUR:       p.AmountMajor(),
		Currency:        p.Currency,
		Metadata:        metadata,
		CustomerEmail:   p.CustomerEmail,
		CustomerPhone:   p.CustomerPhone,
		LastError:       p.LastError,
		CreatedAt:       isoTime(p.CreatedAt),
		UpdatedAt:       isoTime(p.UpdatedAt),
	}
	if withSecret {
		v.ClientSecret = p.ClientSecret
	}
	return v
}

func newPaymentViews(payments []*domain.Payment) []PaymentView {
	out := make([]PaymentView, 0, len(payments))
	for _, p := range payments {
		out = append(out, newPaymentView(p, false))
	}
	return out
}

func newIntentView(res *service.PaymentResult) *IntentView {
	if res == nil || res.Payment == nil {
		return nil
	}
	return &IntentView{
		PaymentView: newPaymentView(res.Payment, true),
		Placeholder: res.Placeholder,
		Message:     res.Message,
	}
}

func newDriverView(d *domain.Driver) DriverView {
	return DriverView{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		Phone:        d.Phone,
		VehicleModel: d.VehicleModel,
		VehiclePlate: d.VehiclePlate,
		IsAvailable:  d.IsAvailable,
		CurrentLat:   d.CurrentLat,
		CurrentLon:   d.CurrentLon,
		CreatedAt:    isoTime(d.CreatedAt),
		UpdatedAt:    isoTime(d.UpdatedAt),
		LastLoginAt:  isoTimePtr(d.LastLoginAt),
	}
}

func newDriverViews(drivers []*domain.Driver) []DriverView {
	out := make([]DriverView, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, newDriverView(d))
	}
	return out
}

func newPricingView(p *domain.PricingConfig) PricingView {
	return PricingView{
		ID:         p.ID,
		BaseFare:   p.BaseFare,
		PricePerKm: p.PricePerKm,
		UpdatedAt:  isoTime(p.UpdatedAt),
	}
}

func newTokenResponse(pair *auth.TokenPair, driver *domain.Driver) TokenResponse {
	resp := TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		ExpiresIn:    pair.ExpiresIn,
	}
	if driver != nil {
		dv := newDriverView(driver)
		resp.Driver = &dv
	}
	return resp
}

// flexString accepts a JSON string or number; null and other types leave
// it empty.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == 'n' || b[0] == 't' || b[0] == 'f' || b[0] == '{' || b[0] == '[' {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

// first returns the first non-blank value.
func first(values ...flexString) string {
	for _, v := range values {
		if s := string(v); strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
