package service

import (
	"kostaxi/internal/domain"
	"kostaxi/internal/notification"
)

// Notifier accepts ride events for asynchronous delivery. Implementations
// must not block and must not report delivery failures.
type Notifier interface {
	Notify(event notification.Event)
}

// Ensure Dispatcher implements Notifier.
var _ Notifier = (*notification.Dispatcher)(nil)

type nopNotifier struct{}

func (nopNotifier) Notify(notification.Event) {}

// notifyStatus raises the event matching the ride's current status.
func notifyStatus(n Notifier, ride *domain.Ride) {
	n.Notify(notification.NewEvent(notification.EventForStatus(ride.Status), ride, nil, nil))
}
