package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"kostaxi/internal/domain"
	"kostaxi/internal/notification"
	"kostaxi/internal/redis"
)

// ──────────────────────────────────────────────
// PAYMENT GATEWAY
// ──────────────────────────────────────────────

type MockGateway struct {
	mu      sync.Mutex
	intents map[string]*domain.PaymentIntent
	seq     int

	CreateErr       error
	GetErr          error
	CreateCallCount int
	GetCallCount    int
	LastRequest     domain.IntentRequest
}

func NewMockGateway() *MockGateway {
	return &MockGateway{intents: make(map[string]*domain.PaymentIntent)}
}

func (m *MockGateway) CreateIntent(ctx context.Context, req domain.IntentRequest) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCallCount++
	m.LastRequest = req
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.seq++
	id := fmt.Sprintf("pi_live_%d", m.seq)
	intent := &domain.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       domain.PaymentStatusRequiresPaymentMethod,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Metadata:     req.Metadata,
	}
	m.intents[id] = intent
	cp := *intent
	return &cp, nil
}

func (m *MockGateway) GetIntent(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCallCount++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	intent, ok := m.intents[id]
	if !ok {
		return nil, errors.New("no such intent")
	}
	cp := *intent
	return &cp, nil
}

// SetStatus changes the provider-side status of an intent.
func (m *MockGateway) SetStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if intent, ok := m.intents[id]; ok {
		intent.Status = status
	}
}

// ──────────────────────────────────────────────
// WEBHOOK PARSER
// ──────────────────────────────────────────────

type MockParser struct {
	Event *domain.PaymentEvent
	Err   error
}

func (m *MockParser) Parse(payload []byte, signature string) (*domain.PaymentEvent, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Event, nil
}

// ──────────────────────────────────────────────
// EVENT LEDGER
// ──────────────────────────────────────────────

type MockLedger struct {
	mu      sync.Mutex
	claimed map[string]bool

	ClaimErr         error
	ReleaseCallCount int
}

func NewMockLedger() *MockLedger {
	return &MockLedger{claimed: make(map[string]bool)}
}

func (m *MockLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ClaimErr != nil {
		return false, m.ClaimErr
	}
	if m.claimed[eventID] {
		return false, nil
	}
	m.claimed[eventID] = true
	return true, nil
}

func (m *MockLedger) Release(ctx context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCallCount++
	delete(m.claimed, eventID)
	return nil
}

// ──────────────────────────────────────────────
// NOTIFIER
// ──────────────────────────────────────────────

type RecordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *RecordingNotifier) Notify(event notification.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *RecordingNotifier) Types() []notification.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.EventType, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

func (n *RecordingNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

// ──────────────────────────────────────────────
// PRICING CACHE
// ──────────────────────────────────────────────

type MockPricingCache struct {
	mu  sync.Mutex
	cfg *domain.PricingConfig

	GetErr              error
	GetCallCount        int
	SetCallCount        int
	InvalidateCallCount int
}

func (m *MockPricingCache) GetPricing(ctx context.Context) (*domain.PricingConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCallCount++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	if m.cfg == nil {
		return nil, nil
	}
	cp := *m.cfg
	return &cp, nil
}

func (m *MockPricingCache) SetPricing(ctx context.Context, cfg *domain.PricingConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SetCallCount++
	cp := *cfg
	m.cfg = &cp
	return nil
}

func (m *MockPricingCache) InvalidatePricing(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvalidateCallCount++
	m.cfg = nil
	return nil
}

// ──────────────────────────────────────────────
// LOCATION STORE
// ──────────────────────────────────────────────

type MockLocationStore struct {
	mu        sync.Mutex
	locations map[int64]redis.DriverLocation

	FindErr                 error
	UpdateLocationCallCount int
	RemoveLocationCallCount int
}

func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{locations: make(map[int64]redis.DriverLocation)}
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID int64, lat, lon float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateLocationCallCount++
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lon: lon}
	return nil
}

// FindNearbyDrivers returns every stored location with a distance of one
// kilometre per driver ID, ignoring the radius.
func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lon, radiusKm float64) ([]redis.DriverLocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	out := make([]redis.DriverLocation, 0, len(m.locations))
	for id, loc := range m.locations {
		loc.DistKm = float64(id)
		out = append(out, loc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistKm < out[j].DistKm })
	return out, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, driverID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RemoveLocationCallCount++
	delete(m.locations, driverID)
	return nil
}

func (m *MockLocationStore) Has(driverID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.locations[driverID]
	return ok
}

// Put seeds a location without counting it as an update.
func (m *MockLocationStore) Put(driverID int64, lat, lon float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[driverID] = redis.DriverLocation{DriverID: driverID, Lat: lat, Lon: lon}
}
