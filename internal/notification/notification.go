// Package notification delivers ride status updates to riders over email,
// SMS and an event stream without ever blocking the caller.
package notification

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"kostaxi/internal/domain"
)

// EventType names the ride status change being announced.
type EventType string

const (
	EventCreated    EventType = "created"
	EventAccepted   EventType = "accepted"
	EventInProgress EventType = "in_progress"
	EventCompleted  EventType = "completed"
	EventCancelled  EventType = "cancelled"
)

// EventForStatus maps a ride status to its event type.
func EventForStatus(status domain.RideStatus) EventType {
	if status == domain.RideStatusPending {
		return EventCreated
	}
	return EventType(status)
}

// Event is one ride status change. Ride and Payment are snapshots taken
// when the event was raised.
type Event struct {
	ID         string
	Type       EventType
	Ride       domain.Ride
	Estimate   *domain.Estimate
	Payment    *domain.Payment
	OccurredAt time.Time
}

// NewEvent snapshots ride (and payment, if any) into an event.
func NewEvent(eventType EventType, ride *domain.Ride, estimate *domain.Estimate, payment *domain.Payment) Event {
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Ride:       *ride,
		OccurredAt: time.Now().UTC(),
	}
	if estimate != nil {
		e := *estimate
		event.Estimate = &e
	}
	if payment != nil {
		p := *payment
		event.Payment = &p
	}
	return event
}

// Message is the rendered text of an event.
type Message struct {
	Subject string
	Body    string
}

// BuildMessage renders the subject and body sent to riders.
func BuildMessage(event Event) Message {
	status := string(event.Type)

	lines := []string{
		"Status: " + status,
		"Pickup: " + event.Ride.PickupAddress,
		"Drop-off: " + event.Ride.DropoffAddress,
	}
	if !event.Ride.ScheduledTime.IsZero() {
		lines = append(lines, "Scheduled for: "+event.Ride.ScheduledTime.Format(time.RFC3339))
	}
	if event.Estimate != nil {
		lines = append(lines, "Estimated fare: €"+formatAmount(event.Estimate.Fare)+
			" | Duration: "+strconv.Itoa(event.Estimate.DurationMinutes)+" mins")
	}
	if event.Payment != nil {
		lines = append(lines, "Payment status: "+event.Payment.Status+
			" | Amount: €"+formatAmount(event.Payment.AmountMajor()))
	}

	return Message{
		Subject: "Kos Taxi ride " + strings.ReplaceAll(status, "_", " "),
		Body:    strings.Join(lines, "\n"),
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
