// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kos_taxi"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RidesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "rides_created_total", Help: "Rides created",
	})
	RideTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "ride_transitions_total", Help: "Ride status transitions"},
		[]string{"to"},
	)

	PaymentIntents = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "payment_intents_total", Help: "Payment intents by provider and outcome"},
		[]string{"provider", "outcome"},
	)
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "payment_webhook_events_total", Help: "Payment webhook events by type and outcome"},
		[]string{"type", "outcome"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Notification deliveries by channel and outcome"},
		[]string{"channel", "outcome"},
	)
	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "notifications_dropped_total", Help: "Notifications dropped because the queue was full",
	})
)
