package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"kostaxi/internal/domain"
	"kostaxi/internal/logger"
	"kostaxi/internal/metrics"
	"kostaxi/internal/redis"
	"kostaxi/internal/repository"
)

// PaymentGateway creates and reads payment intents at the provider.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error)
}

// WebhookParser verifies and decodes provider webhook payloads.
type WebhookParser interface {
	Parse(payload []byte, signature string) (*domain.PaymentEvent, error)
}

// Webhook event types that update a payment.
const (
	EventIntentSucceeded  = "payment_intent.succeeded"
	EventIntentProcessing = "payment_intent.processing"
	EventIntentFailed     = "payment_intent.payment_failed"
	EventIntentCanceled   = "payment_intent.canceled"
)

// PlaceholderMessage accompanies freshly synthesized placeholder intents.
const PlaceholderMessage = "Stripe not configured. Returning placeholder payment intent."

const defaultCurrency = "eur"

// PaymentConfig holds the provider-facing settings of PaymentService.
type PaymentConfig struct {
	Currency       string
	PublishableKey string
}

// PaymentResult is the outcome of EnsureIntent. Placeholder and Message are
// set only when a placeholder intent was created by this call.
type PaymentResult struct {
	Payment     *domain.Payment
	Placeholder bool
	Message     string
}

// PaymentsConfig is the public payment configuration.
type PaymentsConfig struct {
	PublishableKey string
	Configured     bool
}

// PaymentService keeps local Payment rows in sync with provider intents.
type PaymentService struct {
	store          repository.Store
	gateway        PaymentGateway
	webhooks       WebhookParser
	ledger         redis.EventLedgerInterface
	currency       string
	publishableKey string
	log            *logger.Logger
}

// NewPaymentService creates a PaymentService. A nil gateway yields
// placeholder intents; a nil parser disables webhooks; a nil ledger
// disables event de-duplication.
func NewPaymentService(
	store repository.Store,
	gateway PaymentGateway,
	webhooks WebhookParser,
	ledger redis.EventLedgerInterface,
	cfg PaymentConfig,
	log *logger.Logger,
) *PaymentService {
	currency := strings.ToLower(cfg.Currency)
	if currency == "" {
		currency = defaultCurrency
	}
	return &PaymentService{
		store:          store,
		gateway:        gateway,
		webhooks:       webhooks,
		ledger:         ledger,
		currency:       currency,
		publishableKey: cfg.PublishableKey,
		log:            logger.OrNop(log).Named("payments"),
	}
}

// Config reports whether live payments are available.
func (s *PaymentService) Config() PaymentsConfig {
	return PaymentsConfig{
		PublishableKey: s.publishableKey,
		Configured:     s.gateway != nil && s.publishableKey != "",
	}
}

// PublishableKey returns the client-side provider key.
func (s *PaymentService) PublishableKey() string {
	return s.publishableKey
}

// EnsureIntent returns the ride's payment, creating the provider intent
// on first call. The ride's payment link fields are updated in place.
func (s *PaymentService) EnsureIntent(ctx context.Context, ride *domain.Ride) (*PaymentResult, error) {
	existing, err := s.store.Payments().GetByRideID(ctx, ride.ID)
	if err == nil {
		return &PaymentResult{Payment: existing}, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load payment: %w", err)
	}

	metadata := map[string]string{
		"ride_id":         strconv.FormatInt(ride.ID, 10),
		"rider_name":      ride.RiderName,
		"pickup_address":  ride.PickupAddress,
		"dropoff_address": ride.DropoffAddress,
	}
	amount := domain.MinorUnits(ride.Fare)

	var (
		payment  *domain.Payment
		provider = "stripe"
	)
	if s.gateway == nil {
		provider = domain.ProviderPlaceholder
		payment = s.placeholderPayment(ride, amount, metadata)
	} else {
		intent, err := s.gateway.CreateIntent(ctx, domain.IntentRequest{
			Amount:         amount,
			Currency:       s.currency,
			Description:    fmt.Sprintf("Ride from %s to %s", ride.PickupAddress, ride.DropoffAddress),
			ReceiptEmail:   ride.UserEmail,
			Metadata:       metadata,
			IdempotencyKey: fmt.Sprintf("ride-%d-payment-intent", ride.ID),
		})
		if err != nil {
			metrics.PaymentIntents.WithLabelValues(provider, "error").Inc()
			s.log.Error("payment intent creation failed", logger.Int64("ride_id", ride.ID), logger.Err(err))
			return nil, fmt.Errorf("%w: %v", ErrPaymentIntentFailed, err)
		}
		payment = paymentFromIntent(ride, intent, s.currency)
	}

	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		if err := uow.Payments().Create(ctx, payment); err != nil {
			return err
		}
		return uow.Rides().SetPaymentLink(ctx, ride.ID, payment.IntentID, payment.Status)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// A concurrent call won; its row is the ride's payment.
		winner, gerr := s.store.Payments().GetByRideID(ctx, ride.ID)
		if gerr != nil {
			return nil, fmt.Errorf("load payment: %w", gerr)
		}
		ride.PaymentIntentID = winner.IntentID
		ride.PaymentStatus = winner.Status
		return &PaymentResult{Payment: winner}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store payment: %w", err)
	}

	ride.PaymentIntentID = payment.IntentID
	ride.PaymentStatus = payment.Status
	metrics.PaymentIntents.WithLabelValues(provider, "created").Inc()

	result := &PaymentResult{Payment: payment}
	if provider == domain.ProviderPlaceholder {
		result.Placeholder = true
		result.Message = PlaceholderMessage
	}
	return result, nil
}

func (s *PaymentService) placeholderPayment(ride *domain.Ride, amount int64, metadata map[string]string) *domain.Payment {
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]

	tagged := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		tagged[k] = v
	}
	tagged[domain.MetadataProvider] = domain.ProviderPlaceholder

	return &domain.Payment{
		RideID:        ride.ID,
		IntentID:      id,
		ClientSecret:  id + "_secret_placeholder",
		Status:        domain.PaymentStatusRequiresPaymentMethod,
		Amount:        amount,
		Currency:      s.currency,
		Metadata:      tagged,
		CustomerEmail: ride.UserEmail,
		CustomerPhone: ride.UserPhone,
	}
}

func paymentFromIntent(ride *domain.Ride, intent *domain.PaymentIntent, currency string) *domain.Payment {
	p := &domain.Payment{
		RideID:        ride.ID,
		IntentID:      intent.ID,
		ClientSecret:  intent.ClientSecret,
		Status:        intent.Status,
		Amount:        intent.Amount,
		Currency:      intent.Currency,
		Metadata:      intent.Metadata,
		CustomerEmail: ride.UserEmail,
		CustomerPhone: ride.UserPhone,
		LastError:     intent.FailureMessage,
	}
	if p.Currency == "" {
		p.Currency = currency
	}
	if p.Amount == 0 {
		p.Amount = domain.MinorUnits(ride.Fare)
	}
	return p
}

// RefreshForRide returns the ride and its payment, first pulling the
// current intent state from the provider for live payments. The payment
// is nil when the ride has none.
func (s *PaymentService) RefreshForRide(ctx context.Context, rideID int64) (*domain.Ride, *domain.Payment, error) {
	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, nil, mapNotFound(err, ErrRideNotFound)
	}

	payment, err := s.store.Payments().GetByRideID(ctx, rideID)
	if errors.Is(err, repository.ErrNotFound) {
		return ride, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load payment: %w", err)
	}

	if s.gateway == nil || payment.IsPlaceholder() {
		return ride, payment, nil
	}

	intent, err := s.gateway.GetIntent(ctx, payment.IntentID)
	if err != nil {
		s.log.Error("payment intent refresh failed",
			logger.Int64("ride_id", rideID),
			logger.String("intent_id", payment.IntentID),
			logger.Err(err),
		)
		return nil, nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	payment.Merge(intent)
	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		if err := uow.Payments().Update(ctx, payment); err != nil {
			return err
		}
		return uow.Rides().SetPaymentLink(ctx, rideID, payment.IntentID, payment.Status)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("store payment: %w", err)
	}

	ride.PaymentIntentID = payment.IntentID
	ride.PaymentStatus = payment.Status
	return ride, payment, nil
}

// HandleWebhook verifies a provider webhook and applies payment intent
// updates. Replays of an already processed event are acknowledged
// without being applied again.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.webhooks == nil {
		s.log.Error("webhook received but no webhook secret configured")
		return ErrWebhookNotConfigured
	}

	event, err := s.webhooks.Parse(payload, signature)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		s.log.Warn("webhook rejected", logger.Err(err))
		return ErrInvalidWebhook
	}

	if !isIntentUpdate(event.Type) {
		metrics.WebhookEvents.WithLabelValues(event.Type, "ignored").Inc()
		s.log.Debug("unhandled webhook event", logger.String("type", event.Type))
		return nil
	}

	claimed := false
	if s.ledger != nil && event.ID != "" {
		ok, err := s.ledger.Claim(ctx, event.ID)
		switch {
		case err != nil:
			s.log.Warn("webhook ledger unavailable", logger.String("event_id", event.ID), logger.Err(err))
		case !ok:
			metrics.WebhookEvents.WithLabelValues(event.Type, "duplicate").Inc()
			s.log.Info("duplicate webhook event", logger.String("event_id", event.ID))
			return nil
		default:
			claimed = true
		}
	}

	if err := s.applyIntent(ctx, event.Intent); err != nil {
		if claimed {
			if rerr := s.ledger.Release(ctx, event.ID); rerr != nil {
				s.log.Warn("webhook ledger release failed", logger.String("event_id", event.ID), logger.Err(rerr))
			}
		}
		metrics.WebhookEvents.WithLabelValues(event.Type, "error").Inc()
		return fmt.Errorf("apply webhook %s: %w", event.ID, err)
	}

	metrics.WebhookEvents.WithLabelValues(event.Type, "applied").Inc()
	return nil
}

func isIntentUpdate(eventType string) bool {
	switch eventType {
	case EventIntentSucceeded, EventIntentProcessing, EventIntentFailed, EventIntentCanceled:
		return true
	}
	return false
}

// applyIntent merges an intent snapshot into its local payment and ride.
// Unknown intents are logged and skipped.
func (s *PaymentService) applyIntent(ctx context.Context, intent *domain.PaymentIntent) error {
	if intent == nil || intent.ID == "" {
		s.log.Error("webhook event without payment intent id")
		return nil
	}

	return s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		payment, err := uow.Payments().GetByIntentID(ctx, intent.ID)
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("no payment record for intent", logger.String("intent_id", intent.ID))
			return nil
		}
		if err != nil {
			return err
		}

		payment.Merge(intent)
		if err := uow.Payments().Update(ctx, payment); err != nil {
			return err
		}

		err = uow.Rides().SetPaymentLink(ctx, payment.RideID, payment.IntentID, payment.Status)
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	})
}

// mapNotFound replaces a repository not-found error with target.
func mapNotFound(err, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}
