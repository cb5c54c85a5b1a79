// Package payment adapts the Stripe API to the provider-neutral payment
// types used by the services.
package payment

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"kostaxi/internal/domain"
)

// StripeConfig configures a StripeGateway.
type StripeConfig struct {
	SecretKey string
	Timeout   time.Duration
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// StripeGateway creates and retrieves Stripe payment intents.
type StripeGateway struct {
	client *client.API
}

// NewStripeGateway creates a gateway with a bounded HTTP client.
func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripe.String(cfg.BaseURL)
	}

	sc := &client.API{}
	sc.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})

	return &StripeGateway{client: sc}
}

// CreateIntent creates a payment intent with automatic payment methods.
func (g *StripeGateway) CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(req.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return convertIntent(pi), nil
}

// GetIntent retrieves the current state of a payment intent.
func (g *StripeGateway) GetIntent(ctx context.Context, intentID string) (*domain.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.client.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve payment intent %s: %w", intentID, err)
	}
	return convertIntent(pi), nil
}

func convertIntent(pi *stripe.PaymentIntent) *domain.PaymentIntent {
	if pi == nil {
		return nil
	}

	intent := &domain.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		ReceiptEmail: pi.ReceiptEmail,
	}
	if len(pi.Metadata) > 0 {
		intent.Metadata = make(map[string]string, len(pi.Metadata))
		for k, v := range pi.Metadata {
			intent.Metadata[k] = v
		}
	}

	switch {
	case pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "":
		intent.FailureMessage = pi.LastPaymentError.Msg
	case pi.LatestCharge != nil && pi.LatestCharge.FailureMessage != "":
		intent.FailureMessage = pi.LatestCharge.FailureMessage
	}
	if pi.Shipping != nil {
		intent.ShippingPhone = pi.Shipping.Phone
	}

	return intent
}
