package domain

import "time"

// Payment intent statuses as reported by the payment provider.
const (
	PaymentStatusPending               = "pending"
	PaymentStatusRequiresPaymentMethod = "requires_payment_method"
	PaymentStatusProcessing            = "processing"
	PaymentStatusSucceeded             = "succeeded"
	PaymentStatusFailed                = "failed"
	PaymentStatusCanceled              = "canceled"
)

const (
	// MetadataProvider marks how an intent was produced.
	MetadataProvider = "provider"
	// ProviderPlaceholder tags intents synthesized without a live gateway.
	ProviderPlaceholder = "placeholder"
)

// Payment mirrors one external payment intent for a ride.
// Amount is in minor currency units.
type Payment struct {
	ID            int64
	RideID        int64
	IntentID      string
	ClientSecret  string
	Status        string
	Amount        int64
	Currency      string
	Metadata      map[string]string
	CustomerEmail string
	CustomerPhone string
	LastError     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AmountMajor returns the amount in major currency units.
func (p *Payment) AmountMajor() float64 {
	return float64(p.Amount) / 100
}

// IsPlaceholder reports whether the payment was synthesized locally.
func (p *Payment) IsPlaceholder() bool {
	return p.Metadata[MetadataProvider] == ProviderPlaceholder
}

// Merge folds a fresher provider snapshot into the payment.
// Applying the same snapshot twice yields the same result.
func (p *Payment) Merge(intent *PaymentIntent) {
	if intent == nil {
		return
	}
	if intent.Status != "" {
		p.Status = intent.Status
	}
	if len(intent.Metadata) > 0 {
		p.Metadata = copyMetadata(intent.Metadata)
	}
	if intent.FailureMessage != "" {
		p.LastError = intent.FailureMessage
	}
	if intent.ReceiptEmail != "" {
		p.CustomerEmail = intent.ReceiptEmail
	}
	if intent.ShippingPhone != "" {
		p.CustomerPhone = intent.ShippingPhone
	}
	if intent.ClientSecret != "" {
		p.ClientSecret = intent.ClientSecret
	}
}

// PaymentIntent is a provider-neutral snapshot of an external payment intent.
type PaymentIntent struct {
	ID             string
	ClientSecret   string
	Status         string
	Amount         int64
	Currency       string
	Metadata       map[string]string
	FailureMessage string
	ReceiptEmail   string
	ShippingPhone  string
}

// IntentRequest describes a payment intent to create.
type IntentRequest struct {
	Amount         int64
	Currency       string
	Description    string
	ReceiptEmail   string
	Metadata       map[string]string
	IdempotencyKey string
}

// PaymentEvent is a verified provider webhook event.
type PaymentEvent struct {
	ID     string
	Type   string
	Intent *PaymentIntent
}

func copyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
