package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventTTL is how long a processed webhook event id is remembered.
const EventTTL = 24 * time.Hour

const eventKeyPrefix = "webhook:event:"

// EventLedger records processed webhook event ids so replays can be
// acknowledged without being applied twice.
type EventLedger struct {
	client *redis.Client
}

// NewEventLedger creates a new EventLedger.
func NewEventLedger(client *redis.Client) *EventLedger {
	return &EventLedger{client: client}
}

// Claim marks eventID as processed. It returns false if another delivery
// already claimed it.
func (l *EventLedger) Claim(ctx context.Context, eventID string) (bool, error) {
	return l.client.SetNX(ctx, eventKeyPrefix+eventID, "1", EventTTL).Result()
}

// Release forgets eventID so a redelivery is applied again.
func (l *EventLedger) Release(ctx context.Context, eventID string) error {
	return l.client.Del(ctx, eventKeyPrefix+eventID).Err()
}
