package notification

import (
	"context"

	"kostaxi/internal/logger"
)

// EmailSender delivers one email.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers one text message.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EventPublisher publishes raw ride events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Channels groups the delivery channels. A nil channel is disabled.
type Channels struct {
	Email  EmailSender
	SMS    SMSSender
	Events EventPublisher
}

// ConsoleEmail logs emails instead of sending them.
type ConsoleEmail struct {
	log *logger.Logger
}

// NewConsoleEmail creates a logging email channel.
func NewConsoleEmail(log *logger.Logger) *ConsoleEmail {
	return &ConsoleEmail{log: logger.OrNop(log)}
}

func (c *ConsoleEmail) SendEmail(ctx context.Context, to, subject, body string) error {
	c.log.Info("email notification",
		logger.String("to", to),
		logger.String("subject", subject),
		logger.String("body", body),
	)
	return nil
}

// ConsoleSMS logs text messages instead of sending them.
type ConsoleSMS struct {
	log *logger.Logger
}

// NewConsoleSMS creates a logging SMS channel.
func NewConsoleSMS(log *logger.Logger) *ConsoleSMS {
	return &ConsoleSMS{log: logger.OrNop(log)}
}

func (c *ConsoleSMS) SendSMS(ctx context.Context, to, message string) error {
	c.log.Info("sms notification",
		logger.String("to", to),
		logger.String("message", message),
	)
	return nil
}
