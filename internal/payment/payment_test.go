package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"kostaxi/internal/domain"
)

// ──────────────────────────────────────────────
// GATEWAY
// ──────────────────────────────────────────────

func TestStripeGateway_CreateIntent(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "ride-7-payment-intent", r.Header.Get("Idempotency-Key"))

		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "2709", r.PostForm.Get("amount"))
		assert.Equal(t, "eur", r.PostForm.Get("currency"))
		assert.Equal(t, "true", r.PostForm.Get("automatic_payment_methods[enabled]"))
		assert.Equal(t, "Ride from Kos Town Square to Kos Airport", r.PostForm.Get("description"))
		assert.Equal(t, "rider@example.com", r.PostForm.Get("receipt_email"))
		assert.Equal(t, "7", r.PostForm.Get("metadata[ride_id]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "pi_live_1",
			"object": "payment_intent",
			"client_secret": "pi_live_1_secret_abc",
			"status": "requires_payment_method",
			"amount": 2709,
			"currency": "eur",
			"receipt_email": "rider@example.com",
			"metadata": {"ride_id": "7"}
		}`))
	}))
	defer server.Close()

	gw := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", Timeout: 2 * time.Second, BaseURL: server.URL})

	intent, err := gw.CreateIntent(context.Background(), domain.IntentRequest{
		Amount:         2709,
		Currency:       "eur",
		Description:    "Ride from Kos Town Square to Kos Airport",
		ReceiptEmail:   "rider@example.com",
		Metadata:       map[string]string{"ride_id": "7"},
		IdempotencyKey: "ride-7-payment-intent",
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "pi_live_1", intent.ID)
	assert.Equal(t, "pi_live_1_secret_abc", intent.ClientSecret)
	assert.Equal(t, domain.PaymentStatusRequiresPaymentMethod, intent.Status)
	assert.Equal(t, int64(2709), intent.Amount)
	assert.Equal(t, "7", intent.Metadata["ride_id"])
}

func TestStripeGateway_GetIntentMapsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payment_intents/pi_live_2", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "pi_live_2",
			"object": "payment_intent",
			"status": "requires_payment_method",
			"amount": 1000,
			"currency": "eur",
			"last_payment_error": {"message": "Your card was declined."},
			"shipping": {"phone": "+302242000000"}
		}`))
	}))
	defer server.Close()

	gw := NewStripeGateway(StripeConfig{SecretKey: "sk_test_123", BaseURL: server.URL})

	intent, err := gw.GetIntent(context.Background(), "pi_live_2")
	require.NoError(t, err)
	assert.Equal(t, "Your card was declined.", intent.FailureMessage)
	assert.Equal(t, "+302242000000", intent.ShippingPhone)
}

func TestStripeGateway_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "Invalid API Key provided"}}`))
	}))
	defer server.Close()

	gw := NewStripeGateway(StripeConfig{SecretKey: "sk_test_bad", BaseURL: server.URL})

	_, err := gw.GetIntent(context.Background(), "pi_x")
	assert.Error(t, err)
}

// ──────────────────────────────────────────────
// WEBHOOK
// ──────────────────────────────────────────────

func signedEvent(t *testing.T, secret string, event map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload,
		Secret:  secret,
	})
	return signed.Payload, signed.Header
}

func TestWebhookParser_PaymentIntentEvent(t *testing.T) {
	t.Parallel()

	payload, header := signedEvent(t, "whsec_test", map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        "payment_intent.succeeded",
		"api_version": "2020-08-27",
		"data": map[string]any{
			"object": map[string]any{
				"id":       "pi_live_1",
				"object":   "payment_intent",
				"status":   "succeeded",
				"amount":   2709,
				"currency": "eur",
				"metadata": map[string]string{"ride_id": "7"},
			},
		},
	})

	event, err := NewWebhookParser("whsec_test").Parse(payload, header)
	require.NoError(t, err)

	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, "payment_intent.succeeded", event.Type)
	require.NotNil(t, event.Intent)
	assert.Equal(t, "pi_live_1", event.Intent.ID)
	assert.Equal(t, domain.PaymentStatusSucceeded, event.Intent.Status)
}

func TestWebhookParser_OtherEventHasNoIntent(t *testing.T) {
	t.Parallel()

	payload, header := signedEvent(t, "whsec_test", map[string]any{
		"id":     "evt_2",
		"object": "event",
		"type":   "charge.refunded",
		"data":   map[string]any{"object": map[string]any{"id": "ch_1", "object": "charge"}},
	})

	event, err := NewWebhookParser("whsec_test").Parse(payload, header)
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", event.Type)
	assert.Nil(t, event.Intent)
}

func TestWebhookParser_BadSignature(t *testing.T) {
	t.Parallel()

	payload, header := signedEvent(t, "whsec_other", map[string]any{
		"id":     "evt_3",
		"object": "event",
		"type":   "payment_intent.succeeded",
	})

	_, err := NewWebhookParser("whsec_test").Parse(payload, header)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = NewWebhookParser("whsec_test").Parse(payload, "")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
