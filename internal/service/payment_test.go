package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kostaxi/internal/domain"
	"kostaxi/internal/repository/memory"
	"kostaxi/internal/service"
)

func newWebhookService(f *fixture, parser service.WebhookParser, ledger *MockLedger) *service.PaymentService {
	var gateway service.PaymentGateway
	if f.gateway != nil {
		gateway = f.gateway
	}
	if ledger == nil {
		return service.NewPaymentService(f.store, gateway, parser, nil, service.PaymentConfig{}, nil)
	}
	return service.NewPaymentService(f.store, gateway, parser, ledger, service.PaymentConfig{}, nil)
}

func intentEvent(id, eventType, intentID, status string) *domain.PaymentEvent {
	return &domain.PaymentEvent{
		ID:     id,
		Type:   eventType,
		Intent: &domain.PaymentIntent{ID: intentID, Status: status},
	}
}

// ──────────────────────────────────────────────
// CONFIG
// ──────────────────────────────────────────────

func TestPaymentConfig(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()

	off := service.NewPaymentService(store, nil, nil, nil, service.PaymentConfig{PublishableKey: "pk_test"}, nil)
	assert.Equal(t, service.PaymentsConfig{PublishableKey: "pk_test", Configured: false}, off.Config())

	on := service.NewPaymentService(store, NewMockGateway(), nil, nil, service.PaymentConfig{PublishableKey: "pk_test"}, nil)
	assert.True(t, on.Config().Configured)
	assert.Equal(t, "pk_test", on.PublishableKey())
}

// ──────────────────────────────────────────────
// REFRESH
// ──────────────────────────────────────────────

func TestRefreshForRide_PullsProviderState(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	ctx := context.Background()

	ride := f.createRide(t)
	f.gateway.SetStatus(ride.PaymentIntentID, domain.PaymentStatusSucceeded)

	refreshed, payment, err := f.payments.RefreshForRide(ctx, ride.ID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, domain.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, domain.PaymentStatusSucceeded, refreshed.PaymentStatus)

	stored, err := f.store.Payments().GetByRideID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, stored.Status)

	storedRide, err := f.store.Rides().GetByID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, storedRide.PaymentStatus)
}

func TestRefreshForRide_GatewayFailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	ctx := context.Background()

	ride := f.createRide(t)
	f.gateway.GetErr = errors.New("provider timeout")

	_, _, err := f.payments.RefreshForRide(ctx, ride.ID)
	require.ErrorIs(t, err, service.ErrGatewayUnavailable)

	stored, err := f.store.Payments().GetByRideID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRequiresPaymentMethod, stored.Status)
}

func TestRefreshForRide_PlaceholderSkipsProvider(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	ride := f.createRide(t)
	_, payment, err := f.payments.RefreshForRide(context.Background(), ride.ID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.True(t, payment.IsPlaceholder())
}

func TestRefreshForRide_NoPaymentOrRide(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	f.gateway.CreateErr = errors.New("down")
	ctx := context.Background()

	ride := f.createRide(t)
	got, payment, err := f.payments.RefreshForRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Nil(t, payment)
	assert.Equal(t, ride.ID, got.ID)

	_, _, err = f.payments.RefreshForRide(ctx, 777)
	assert.ErrorIs(t, err, service.ErrRideNotFound)
}

// ──────────────────────────────────────────────
// WEBHOOKS
// ──────────────────────────────────────────────

func TestHandleWebhook_NotConfigured(t *testing.T) {
	t.Parallel()
	f := newFixture(t, false)

	err := f.payments.HandleWebhook(context.Background(), []byte(`{}`), "sig")
	assert.ErrorIs(t, err, service.ErrWebhookNotConfigured)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	svc := newWebhookService(f, &MockParser{Err: errors.New("bad signature")}, nil)

	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "sig")
	assert.ErrorIs(t, err, service.ErrInvalidWebhook)
}

func TestHandleWebhook_AppliesSucceeded(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	ctx := context.Background()

	ride := f.createRide(t)
	parser := &MockParser{Event: intentEvent("evt_1", service.EventIntentSucceeded, ride.PaymentIntentID, domain.PaymentStatusSucceeded)}
	svc := newWebhookService(f, parser, nil)

	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig"))

	payment, err := f.store.Payments().GetByRideID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, payment.Status)

	stored, err := f.store.Rides().GetByID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, stored.PaymentStatus)

	// Replaying the same event converges on the same state.
	require.NoError(t, svc.HandleWebhook(ctx, []byte(`{}`), "sig"))
	again, err := f.store.Payments().GetByRideID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.Status, again.Status)
	assert.Equal(t, payment.ClientSecret, again.ClientSecret)
}

func TestHandleWebhook_LedgerDropsReplays(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	ctx := context.Background()
	ledger := NewMockLedger()

	ride := f.createRide(t)
	parser := &MockParser{Event: intentEvent("evt_dup", service.EventIntentSucceeded, ride.PaymentIntentID, domain.PaymentStatusSucceeded)}
	svc := newWebhookService(f, parser, ledger)
	require.NoError(t, svc.HandleWebhook(ctx, nil, "sig"))

	// A replay carrying a different snapshot under the same event ID is skipped.
	parser.Event = intentEvent("evt_dup", service.EventIntentProcessing, ride.PaymentIntentID, domain.PaymentStatusProcessing)
	require.NoError(t, svc.HandleWebhook(ctx, nil, "sig"))

	payment, err := f.store.Payments().GetByRideID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, payment.Status)
	assert.Zero(t, ledger.ReleaseCallCount)
}

func TestHandleWebhook_LedgerErrorStillApplies(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	ctx := context.Background()
	ledger := NewMockLedger()
	ledger.ClaimErr = errors.New("redis down")

	ride := f.createRide(t)
	parser := &MockParser{Event: intentEvent("evt_2", service.EventIntentFailed, ride.PaymentIntentID, domain.PaymentStatusRequiresPaymentMethod)}
	parser.Event.Intent.FailureMessage = "card declined"
	svc := newWebhookService(f, parser, ledger)

	require.NoError(t, svc.HandleWebhook(ctx, nil, "sig"))

	payment, err := f.store.Payments().GetByRideID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, "card declined", payment.LastError)
}

func TestHandleWebhook_IgnoredEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t, true)
	ctx := context.Background()

	ride := f.createRide(t)

	testCases := []struct {
		name  string
		event *domain.PaymentEvent
	}{
		{"unknown intent", intentEvent("evt_3", service.EventIntentSucceeded, "pi_unknown", domain.PaymentStatusSucceeded)},
		{"unhandled type", intentEvent("evt_4", "charge.refunded", ride.PaymentIntentID, domain.PaymentStatusSucceeded)},
		{"missing intent", &domain.PaymentEvent{ID: "evt_5", Type: service.EventIntentSucceeded}},
	}

	for _, tc := range testCases {
		svc := newWebhookService(f, &MockParser{Event: tc.event}, NewMockLedger())
		assert.NoError(t, svc.HandleWebhook(ctx, nil, "sig"), tc.name)
	}

	payment, err := f.store.Payments().GetByRideID(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRequiresPaymentMethod, payment.Status)
}
