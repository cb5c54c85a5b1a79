package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"kostaxi/internal/logger"
	"kostaxi/internal/metrics"
)

// ErrDispatcherClosed is returned by Close when called twice.
var ErrDispatcherClosed = errors.New("notification dispatcher closed")

// DispatcherConfig tunes the delivery queue.
type DispatcherConfig struct {
	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// Dispatcher queues ride events and delivers them from a fixed worker
// pool. Notify never blocks and never reports delivery failures.
type Dispatcher struct {
	channels    Channels
	log         *logger.Logger
	sendTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher and starts its workers.
func NewDispatcher(channels Channels, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}

	d := &Dispatcher{
		channels:    channels,
		log:         logger.OrNop(log).Named("notifications"),
		sendTimeout: cfg.SendTimeout,
		queue:       make(chan Event, cfg.QueueSize),
	}

	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

// Notify enqueues event for delivery. When the queue is full or the
// dispatcher is closed the event is dropped and logged.
func (d *Dispatcher) Notify(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	select {
	case d.queue <- event:
	default:
		d.drop(event, "queue full")
	}
}

func (d *Dispatcher) drop(event Event, reason string) {
	metrics.NotificationsDropped.Inc()
	d.log.Warn("notification dropped",
		logger.String("reason", reason),
		logger.String("event", string(event.Type)),
		logger.Int64("ride_id", event.Ride.ID),
	)
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

// deliver sends event on every applicable channel. A failing channel does
// not stop the others.
func (d *Dispatcher) deliver(event Event) {
	msg := BuildMessage(event)

	if d.channels.Email != nil && event.Ride.UserEmail != "" {
		d.attempt(event, "email", func(ctx context.Context) error {
			return d.channels.Email.SendEmail(ctx, event.Ride.UserEmail, msg.Subject, msg.Body)
		})
	}
	if d.channels.SMS != nil && event.Ride.UserPhone != "" {
		d.attempt(event, "sms", func(ctx context.Context) error {
			return d.channels.SMS.SendSMS(ctx, event.Ride.UserPhone, msg.Body)
		})
	}
	if d.channels.Events != nil {
		d.attempt(event, "events", func(ctx context.Context) error {
			return d.channels.Events.Publish(ctx, event)
		})
	}
}

func (d *Dispatcher) attempt(event Event, channel string, send func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.NotificationsSent.WithLabelValues(channel, "error").Inc()
			d.log.Error("notification channel panicked",
				logger.String("channel", channel),
				logger.Int64("ride_id", event.Ride.ID),
				logger.Any("panic", r),
			)
		}
	}()

	if err := send(ctx); err != nil {
		metrics.NotificationsSent.WithLabelValues(channel, "error").Inc()
		d.log.Warn("notification delivery failed",
			logger.String("channel", channel),
			logger.String("event", string(event.Type)),
			logger.Int64("ride_id", event.Ride.ID),
			logger.Err(err),
		)
		return
	}
	metrics.NotificationsSent.WithLabelValues(channel, "sent").Inc()
}
