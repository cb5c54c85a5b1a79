package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	NewRelic      NewRelicConfig
	Log           LogConfig
	Stripe        StripeConfig
	Notifications NotificationConfig
	JWT           JWTConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	APIPrefix    string
	CORSOrigins  []string
}

// DatabaseConfig holds PostgreSQL configuration.
// Driver "memory" runs the service without a database.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Migrate  bool
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string
}

// StripeConfig holds payment gateway configuration.
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
	WebhookSecret  string
	Currency       string
	Timeout        time.Duration
}

// Configured reports whether live payment intents can be created.
func (c StripeConfig) Configured() bool {
	return c.SecretKey != ""
}

// NotificationConfig holds notification channel configuration.
type NotificationConfig struct {
	EmailProvider string
	FromEmail     string
	SMTP          SMTPConfig

	SMSProvider  string
	SMSSender    string
	Twilio       TwilioConfig
	SMSWebhook   SMSWebhookConfig
	EventsKafka  KafkaConfig
	EventsDriver string

	QueueSize   int
	Workers     int
	SendTimeout time.Duration
}

// SMTPConfig holds SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// TwilioConfig holds Twilio credentials.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// SMSWebhookConfig holds the HTTP SMS relay settings.
type SMSWebhookConfig struct {
	URL   string
	Token string
}

// KafkaConfig holds the ride event topic settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// JWTConfig holds driver token settings.
type JWTConfig struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// DefaultJWTSecret signs tokens when JWT_SECRET_KEY is unset. Development only.
const DefaultJWTSecret = "kos-taxi-dev-secret"

// UsesDefaultSecret reports whether tokens are signed with DefaultJWTSecret.
func (c JWTConfig) UsesDefaultSecret() bool {
	return c.Secret == DefaultJWTSecret
}

// Load loads configuration from a .env file (if present) and environment variables.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			APIPrefix:    getEnv("API_PREFIX", "/api"),
			CORSOrigins:  getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "kos_taxi"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Migrate:  getBoolEnv("DB_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "kos-taxi-backend"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Stripe: StripeConfig{
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
			WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
			Currency:       getEnv("STRIPE_CURRENCY", "eur"),
			Timeout:        getDurationEnv("STRIPE_TIMEOUT", 10*time.Second),
		},
		Notifications: NotificationConfig{
			EmailProvider: strings.ToLower(getEnv("NOTIFICATIONS_EMAIL_PROVIDER", "console")),
			FromEmail:     getEnv("NOTIFICATIONS_FROM_EMAIL", ""),
			SMTP: SMTPConfig{
				Host:     getEnv("SMTP_HOST", ""),
				Port:     getIntEnv("SMTP_PORT", 587),
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
			},
			SMSProvider: strings.ToLower(getEnv("NOTIFICATIONS_SMS_PROVIDER", "console")),
			SMSSender:   getEnv("NOTIFICATIONS_DEFAULT_SMS_SENDER", "KosTaxi"),
			Twilio: TwilioConfig{
				AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
				AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
				FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
			},
			SMSWebhook: SMSWebhookConfig{
				URL:   getEnv("NOTIFICATIONS_SMS_WEBHOOK_URL", ""),
				Token: getEnv("NOTIFICATIONS_SMS_WEBHOOK_TOKEN", ""),
			},
			EventsDriver: strings.ToLower(getEnv("NOTIFICATIONS_EVENTS_PROVIDER", "disabled")),
			EventsKafka: KafkaConfig{
				Brokers: getListEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
				Topic:   getEnv("KAFKA_RIDE_EVENTS_TOPIC", "ride-events"),
			},
			QueueSize:   getIntEnv("NOTIFICATIONS_QUEUE_SIZE", 256),
			Workers:     getIntEnv("NOTIFICATIONS_WORKERS", 2),
			SendTimeout: getDurationEnv("NOTIFICATIONS_SEND_TIMEOUT", 10*time.Second),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET_KEY", DefaultJWTSecret),
			Issuer:     getEnv("JWT_ISSUER", "kos-taxi"),
			AccessTTL:  getDurationEnv("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTTL: getDurationEnv("JWT_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated value, dropping blanks.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}
