package notification

import (
	"kostaxi/internal/config"
	"kostaxi/internal/logger"
)

// ChannelsFromConfig builds the delivery channels selected in cfg.
// Misconfigured providers are disabled with a warning. The returned
// publisher, when non-nil, must be closed on shutdown.
func ChannelsFromConfig(cfg config.NotificationConfig, log *logger.Logger) (Channels, *KafkaPublisher) {
	log = logger.OrNop(log)
	var channels Channels

	switch cfg.EmailProvider {
	case "disabled":
	case "smtp":
		if cfg.SMTP.Host == "" || cfg.FromEmail == "" {
			log.Warn("smtp email provider selected but SMTP_HOST or NOTIFICATIONS_FROM_EMAIL missing")
			break
		}
		channels.Email = NewSMTPEmail(SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.FromEmail,
		})
	default:
		channels.Email = NewConsoleEmail(log)
	}

	switch cfg.SMSProvider {
	case "disabled":
	case "twilio":
		if cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" || cfg.Twilio.FromNumber == "" {
			log.Warn("twilio sms provider selected but credentials missing")
			break
		}
		channels.SMS = NewTwilioSMS(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
	case "webhook":
		if cfg.SMSWebhook.URL == "" {
			log.Warn("webhook sms provider selected but NOTIFICATIONS_SMS_WEBHOOK_URL missing")
			break
		}
		channels.SMS = NewWebhookSMS(cfg.SMSWebhook.URL, cfg.SMSWebhook.Token, cfg.SMSSender)
	default:
		channels.SMS = NewConsoleSMS(log)
	}

	var publisher *KafkaPublisher
	if cfg.EventsDriver == "kafka" {
		if len(cfg.EventsKafka.Brokers) == 0 || cfg.EventsKafka.Topic == "" {
			log.Warn("kafka events provider selected but brokers or topic missing")
		} else {
			publisher = NewKafkaPublisher(cfg.EventsKafka.Brokers, cfg.EventsKafka.Topic)
			channels.Events = publisher
		}
	}

	return channels, publisher
}
