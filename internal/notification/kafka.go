package notification

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes ride events to a Kafka topic keyed by ride id,
// so events of one ride stay ordered within a partition.
type KafkaPublisher struct {
	writer messageWriter
}

// NewKafkaPublisher creates a publisher for topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}
}

// rideEvent is the JSON document written to the topic.
type rideEvent struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	RideID         int64     `json:"ride_id"`
	Status         string    `json:"status"`
	DriverID       *int64    `json:"driver_id"`
	PickupAddress  string    `json:"pickup_address"`
	DropoffAddress string    `json:"dropoff_address"`
	Fare           float64   `json:"fare"`
	DistanceKm     float64   `json:"distance_km"`
	PaymentStatus  string    `json:"payment_status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

func (k *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	doc := rideEvent{
		ID:             event.ID,
		Type:           string(event.Type),
		RideID:         event.Ride.ID,
		Status:         string(event.Ride.Status),
		PickupAddress:  event.Ride.PickupAddress,
		DropoffAddress: event.Ride.DropoffAddress,
		Fare:           event.Ride.Fare,
		DistanceKm:     event.Ride.DistanceKm,
		PaymentStatus:  event.Ride.PaymentStatus,
		OccurredAt:     event.OccurredAt,
	}
	if event.Ride.HasDriver() {
		id := event.Ride.DriverID
		doc.DriverID = &id
	}

	value, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.Ride.ID, 10)),
		Value: value,
	})
}

// Close flushes pending messages and closes the writer.
func (k *KafkaPublisher) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
