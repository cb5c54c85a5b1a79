package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"kostaxi/internal/domain"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// WebhookParser verifies Stripe webhook signatures and decodes
// payment_intent events.
type WebhookParser struct {
	secret string
}

// NewWebhookParser creates a parser for the given endpoint secret.
func NewWebhookParser(secret string) *WebhookParser {
	return &WebhookParser{secret: secret}
}

// Parse verifies payload against the Stripe-Signature header. The event's
// intent is decoded only for payment_intent.* events.
func (p *WebhookParser) Parse(payload []byte, signature string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	result := &domain.PaymentEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}

	if strings.HasPrefix(result.Type, "payment_intent.") && event.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		result.Intent = convertIntent(&pi)
	}

	return result, nil
}
