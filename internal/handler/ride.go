package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"kostaxi/internal/domain"
	"kostaxi/internal/service"
)

// RideHandler handles HTTP requests for rides, their payments and the tariff.
type RideHandler struct {
	rideService    *service.RideService
	paymentService *service.PaymentService
	pricingService *service.PricingService
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rideService *service.RideService, paymentService *service.PaymentService, pricingService *service.PricingService) *RideHandler {
	return &RideHandler{
		rideService:    rideService,
		paymentService: paymentService,
		pricingService: pricingService,
	}
}

// RideRequestBody is the HTTP request body for estimating or booking a
// ride. Web and mobile clients send different spellings of the same field.
type RideRequestBody struct {
	PickupAddress       flexString `json:"pickup_address"`
	PickupAddressCamel  flexString `json:"pickupAddress"`
	DropoffAddress      flexString `json:"dropoff_address"`
	DropoffAddressCamel flexString `json:"dropoffAddress"`
	DestinationAddress  flexString `json:"destination_address"`
	ScheduledTime       flexString `json:"scheduled_time"`
	ScheduledTimeCamel  flexString `json:"scheduledTime"`
	PassengerCount      flexString `json:"passenger_count"`
	PassengerCountCamel flexString `json:"passengerCount"`
	RiderName           flexString `json:"rider_name"`
	RiderNameCamel      flexString `json:"riderName"`
	Email               flexString `json:"email"`
	RiderEmail          flexString `json:"rider_email"`
	RiderEmailCamel     flexString `json:"riderEmail"`
	Phone               flexString `json:"phone"`
	RiderPhone          flexString `json:"rider_phone"`
	RiderPhoneCamel     flexString `json:"riderPhone"`
	Notes               flexString `json:"notes"`
}

func (b RideRequestBody) input() service.RideInput {
	return service.RideInput{
		PickupAddress:  first(b.PickupAddress, b.PickupAddressCamel),
		DropoffAddress: first(b.DropoffAddress, b.DropoffAddressCamel, b.DestinationAddress),
		ScheduledTime:  first(b.ScheduledTime, b.ScheduledTimeCamel),
		PassengerCount: first(b.PassengerCount, b.PassengerCountCamel),
		RiderName:      first(b.RiderName, b.RiderNameCamel),
		Email:          first(b.Email, b.RiderEmail, b.RiderEmailCamel),
		Phone:          first(b.Phone, b.RiderPhone, b.RiderPhoneCamel),
		Notes:          first(b.Notes),
	}
}

// AcceptRideRequest is the HTTP request body for accepting a ride.
type AcceptRideRequest struct {
	DriverID flexString `json:"driver_id"`
}

// UpdatePricingRequest is the HTTP request body for changing the tariff.
type UpdatePricingRequest struct {
	BaseFare   *float64 `json:"base_fare"`
	PricePerKm *float64 `json:"price_per_km"`
}

// CreateRideResponse is the HTTP response for a booked ride.
type CreateRideResponse struct {
	Message        string       `json:"message"`
	Ride           RideView     `json:"ride"`
	Estimate       EstimateView `json:"estimate"`
	Payment        *IntentView  `json:"payment"`
	PaymentError   *string      `json:"payment_error"`
	PublishableKey string       `json:"publishable_key"`
}

// RideActionResponse is the HTTP response for a ride state change.
type RideActionResponse struct {
	Message string   `json:"message"`
	Ride    RideView `json:"ride"`
}

// RideListResponse wraps a list of rides.
type RideListResponse struct {
	Rides []RideView `json:"rides"`
}

// PaymentStatusResponse is the HTTP response for a ride's payment status.
type PaymentStatusResponse struct {
	PaymentStatus string       `json:"payment_status"`
	Payment       *PaymentView `json:"payment,omitempty"`
}

// bindRideRequest decodes the body leniently; an unreadable body counts as
// empty so that validation reports every missing field.
func bindRideRequest(c *gin.Context) RideRequestBody {
	var body RideRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		body = RideRequestBody{}
	}
	return body
}

// Estimate handles POST /api/rides/estimate
func (h *RideHandler) Estimate(c *gin.Context) {
	body := bindRideRequest(c)

	est, err := h.rideService.Estimate(c.Request.Context(), body.input())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EstimateView{
		DistanceKm:      est.DistanceKm,
		DurationMinutes: est.DurationMinutes,
		Fare:            est.Fare,
	})
}

// CreateRide handles POST /api/rides and POST /api/rides/request
func (h *RideHandler) CreateRide(c *gin.Context) {
	body := bindRideRequest(c)

	result, err := h.rideService.CreateRide(c.Request.Context(), body.input())
	if err != nil {
		respondError(c, err)
		return
	}

	var paymentErr *string
	if result.PaymentError != "" {
		msg := result.PaymentError
		paymentErr = &msg
	}
	var payment *domain.Payment
	if result.Payment != nil {
		payment = result.Payment.Payment
	}

	respondJSON(c, http.StatusCreated, CreateRideResponse{
		Message: "Ride requested successfully",
		Ride:    newRideView(result.Ride, payment),
		Estimate: EstimateView{
			DistanceKm:      result.Estimate.DistanceKm,
			DurationMinutes: result.Estimate.DurationMinutes,
			Fare:            result.Estimate.Fare,
		},
		Payment:        newIntentView(result.Payment),
		PaymentError:   paymentErr,
		PublishableKey: h.paymentService.PublishableKey(),
	})
}

// ListPending handles GET /api/rides/pending
func (h *RideHandler) ListPending(c *gin.Context) {
	rides, err := h.rideService.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RideListResponse{Rides: newRideViews(rides)})
}

// GetRide handles GET /api/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	rideID, ok := pathID(c, "id", service.ErrRideNotFound)
	if !ok {
		return
	}

	details, err := h.rideService.GetRide(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newRideView(details.Ride, details.Payment))
}

// AcceptRide handles POST /api/rides/:id/accept
func (h *RideHandler) AcceptRide(c *gin.Context) {
	rideID, ok := pathID(c, "id", service.ErrRideNotFound)
	if !ok {
		return
	}

	var req AcceptRideRequest
	_ = c.ShouldBindJSON(&req)
	driverID, _ := strconv.ParseInt(strings.TrimSpace(string(req.DriverID)), 10, 64)

	details, err := h.rideService.Accept(c.Request.Context(), rideID, driverID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RideActionResponse{
		Message: "Ride accepted successfully",
		Ride:    newRideView(details.Ride, details.Payment),
	})
}

// CompleteRide handles POST /api/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	rideID, ok := pathID(c, "id", service.ErrRideNotFound)
	if !ok {
		return
	}

	details, err := h.rideService.Complete(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RideActionResponse{
		Message: "Ride completed successfully",
		Ride:    newRideView(details.Ride, details.Payment),
	})
}

// CancelRide handles POST /api/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	rideID, ok := pathID(c, "id", service.ErrRideNotFound)
	if !ok {
		return
	}

	details, err := h.rideService.Cancel(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, RideActionResponse{
		Message: "Ride cancelled successfully",
		Ride:    newRideView(details.Ride, details.Payment),
	})
}

// CreatePaymentIntent handles POST /api/rides/:id/payment-intent
func (h *RideHandler) CreatePaymentIntent(c *gin.Context) {
	rideID, ok := pathID(c, "id", service.ErrRideNotFound)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	details, err := h.rideService.GetRide(ctx, rideID)
	if err != nil {
		respondError(c, err)
		return
	}
	if details.Payment != nil && details.Payment.ClientSecret != "" {
		respondJSON(c, http.StatusOK, newPaymentView(details.Payment, true))
		return
	}

	result, err := h.paymentService.EnsureIntent(ctx, details.Ride)
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newIntentView(result))
}

// PaymentStatus handles GET /api/rides/:id/payment-status
func (h *RideHandler) PaymentStatus(c *gin.Context) {
	rideID, ok := pathID(c, "id", service.ErrRideNotFound)
	if !ok {
		return
	}

	ride, payment, err := h.paymentService.RefreshForRide(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	if payment == nil {
		status := ride.PaymentStatus
		if status == "" {
			status = "pending"
		}
		respondJSON(c, http.StatusOK, PaymentStatusResponse{PaymentStatus: status})
		return
	}

	pv := newPaymentView(payment, false)
	respondJSON(c, http.StatusOK, PaymentStatusResponse{PaymentStatus: payment.Status, Payment: &pv})
}

// GetPricing handles GET /api/pricing
func (h *RideHandler) GetPricing(c *gin.Context) {
	cfg, err := h.pricingService.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newPricingView(cfg))
}

// UpdatePricing handles PUT /api/pricing
func (h *RideHandler) UpdatePricing(c *gin.Context) {
	var req UpdatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	cfg, err := h.pricingService.Update(c.Request.Context(), service.PricingUpdate{
		BaseFare:   req.BaseFare,
		PricePerKm: req.PricePerKm,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, newPricingView(cfg))
}
