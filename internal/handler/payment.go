package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"kostaxi/internal/service"
)

// maxWebhookBytes bounds webhook payloads.
const maxWebhookBytes = 64 << 10

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// PaymentConfigResponse is the public payment configuration.
type PaymentConfigResponse struct {
	PublishableKey string `json:"publishableKey"`
	Configured     bool   `json:"configured"`
}

// RidePaymentResponse is the HTTP response for a ride's payment, secret
// included. Payment is null when the ride has none.
type RidePaymentResponse struct {
	Payment       *PaymentView `json:"payment"`
	PaymentStatus string       `json:"payment_status"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Received bool `json:"received"`
}

// Config handles GET /api/payments/config
func (h *PaymentHandler) Config(c *gin.Context) {
	cfg := h.paymentService.Config()
	respondJSON(c, http.StatusOK, PaymentConfigResponse{
		PublishableKey: cfg.PublishableKey,
		Configured:     cfg.Configured,
	})
}

// Webhook handles POST /api/payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, WebhookResponse{Received: true})
}

// GetForRide handles GET /api/payments/:ride_id
func (h *PaymentHandler) GetForRide(c *gin.Context) {
	rideID, ok := pathID(c, "ride_id", service.ErrRideNotFound)
	if !ok {
		return
	}

	ride, payment, err := h.paymentService.RefreshForRide(c.Request.Context(), rideID)
	if err != nil {
		respondError(c, err)
		return
	}

	if payment == nil {
		respondJSON(c, http.StatusOK, RidePaymentResponse{PaymentStatus: ride.PaymentStatus})
		return
	}

	pv := newPaymentView(payment, true)
	respondJSON(c, http.StatusOK, RidePaymentResponse{Payment: &pv, PaymentStatus: payment.Status})
}
