package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"kostaxi/internal/app"
	"kostaxi/internal/auth"
	"kostaxi/internal/config"
	"kostaxi/internal/handler"
	"kostaxi/internal/logger"
	"kostaxi/internal/notification"
	"kostaxi/internal/payment"
	internalRedis "kostaxi/internal/redis"
	"kostaxi/internal/repository"
	"kostaxi/internal/repository/memory"
	"kostaxi/internal/repository/postgres"
	"kostaxi/internal/service"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// New Relic comes first so the database and Redis clients are instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Warn("failed to initialize New Relic", logger.Err(err))
		} else {
			log.Info("New Relic enabled", logger.String("app", cfg.NewRelic.AppName))
		}
	}

	store, db, err := openStore(ctx, cfg.Database, nrApp, log)
	if err != nil {
		log.Fatal("failed to open store", logger.Err(err))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = app.NewRedisClient(ctx, cfg.Redis, nrApp)
		if err != nil {
			log.Warn("redis unavailable, continuing without cache, geo index and replay protection", logger.Err(err))
			redisClient = nil
		} else {
			log.Info("connected to redis", logger.String("addr", cfg.Redis.Addr))
		}
	}

	channels, publisher := notification.ChannelsFromConfig(cfg.Notifications, log)
	dispatcher := notification.NewDispatcher(channels, notification.DispatcherConfig{
		QueueSize:   cfg.Notifications.QueueSize,
		Workers:     cfg.Notifications.Workers,
		SendTimeout: cfg.Notifications.SendTimeout,
	}, log)

	server := wireServer(cfg, store, redisClient, dispatcher, nrApp, log)

	go func() {
		log.Info("starting server", logger.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", logger.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", logger.Err(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Warn("notification queue not drained", logger.Err(err))
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Warn("failed to close kafka publisher", logger.Err(err))
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = db.Close()
	}
	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	log.Info("server exited")
}

// openStore returns the configured repository store. The returned *sql.DB
// is nil for the in-memory driver.
func openStore(ctx context.Context, cfg config.DatabaseConfig, nrApp *newrelic.Application, log *logger.Logger) (repository.Store, *sql.DB, error) {
	if cfg.Driver == "memory" {
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), nil, nil
	}

	db, err := app.NewDatabase(ctx, cfg, nrApp)
	if err != nil {
		return nil, nil, err
	}
	log.Info("connected to postgres", logger.String("host", cfg.Host), logger.String("db", cfg.DBName))

	if cfg.Migrate {
		if err := app.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}

	return postgres.NewStore(db), db, nil
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	cfg *config.Config,
	store repository.Store,
	redisClient *redis.Client,
	notifier service.Notifier,
	nrApp *newrelic.Application,
	log *logger.Logger,
) *http.Server {
	// Optional collaborators stay untyped nil so the services can detect
	// their absence.
	var (
		pricingCache internalRedis.PricingCacheInterface
		locations    internalRedis.LocationStoreInterface
		ledger       internalRedis.EventLedgerInterface
		replay       redis.UniversalClient
	)
	if redisClient != nil {
		pricingCache = internalRedis.NewCacheStore(redisClient)
		locations = internalRedis.NewLocationStore(redisClient)
		ledger = internalRedis.NewEventLedger(redisClient)
		replay = redisClient
	}

	var (
		gateway  service.PaymentGateway
		webhooks service.WebhookParser
	)
	if cfg.Stripe.Configured() {
		gateway = payment.NewStripeGateway(payment.StripeConfig{
			SecretKey: cfg.Stripe.SecretKey,
			Timeout:   cfg.Stripe.Timeout,
		})
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, rides get placeholder payment intents")
	}
	if cfg.Stripe.WebhookSecret != "" {
		webhooks = payment.NewWebhookParser(cfg.Stripe.WebhookSecret)
	}

	if cfg.JWT.UsesDefaultSecret() {
		log.Warn("JWT_SECRET_KEY not set, driver tokens are signed with the development secret")
	}
	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	pricingService := service.NewPricingService(store, pricingCache, log)
	paymentService := service.NewPaymentService(store, gateway, webhooks, ledger, service.PaymentConfig{
		Currency:       cfg.Stripe.Currency,
		PublishableKey: cfg.Stripe.PublishableKey,
	}, log)
	rideService := service.NewRideService(store, pricingService, paymentService, notifier, log)
	driverService := service.NewDriverService(store, tokens, locations, log)
	adminService := service.NewAdminService(store)

	router := app.NewRouter(app.RouterDeps{
		RideHandler:    handler.NewRideHandler(rideService, paymentService, pricingService),
		PaymentHandler: handler.NewPaymentHandler(paymentService),
		DriverHandler:  handler.NewDriverHandler(driverService, rideService),
		AuthHandler:    handler.NewAuthHandler(driverService),
		AdminHandler:   handler.NewAdminHandler(adminService),
		Tokens:         tokens,
		RedisClient:    replay,
		NewRelicApp:    nrApp,
		Logger:         log,
		APIPrefix:      cfg.Server.APIPrefix,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
