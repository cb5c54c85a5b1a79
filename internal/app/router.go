package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"kostaxi/internal/handler"
	"kostaxi/internal/logger"
	"kostaxi/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	PaymentHandler *handler.PaymentHandler
	DriverHandler  *handler.DriverHandler
	AuthHandler    *handler.AuthHandler
	AdminHandler   *handler.AdminHandler

	Tokens middleware.TokenValidator
	// RedisClient enables the idempotent replay of ride creation. Leave nil
	// when Redis is disabled.
	RedisClient redis.UniversalClient
	NewRelicApp *newrelic.Application
	Logger      *logger.Logger

	APIPrefix   string
	CORSOrigins []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp), middleware.NewRelicAttributes())
	}
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORSMiddleware(deps.CORSOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	prefix := deps.APIPrefix
	if prefix == "" {
		prefix = "/api"
	}
	api := router.Group(prefix)

	idempotent := middleware.IdempotencyMiddleware(deps.RedisClient)

	rides := api.Group("/rides")
	{
		rides.POST("/estimate", deps.RideHandler.Estimate)
		rides.POST("", idempotent, deps.RideHandler.CreateRide)
		rides.POST("/request", idempotent, deps.RideHandler.CreateRide)
		rides.GET("/pending", deps.RideHandler.ListPending)
		rides.GET("/:id", deps.RideHandler.GetRide)
		rides.POST("/:id/accept", deps.RideHandler.AcceptRide)
		rides.POST("/:id/complete", deps.RideHandler.CompleteRide)
		rides.POST("/:id/cancel", deps.RideHandler.CancelRide)
		rides.POST("/:id/payment-intent", deps.RideHandler.CreatePaymentIntent)
		rides.GET("/:id/payment-status", deps.RideHandler.PaymentStatus)
	}

	api.GET("/pricing", deps.RideHandler.GetPricing)
	api.PUT("/pricing", deps.RideHandler.UpdatePricing)

	payments := api.Group("/payments")
	{
		payments.GET("/config", deps.PaymentHandler.Config)
		payments.POST("/webhook", deps.PaymentHandler.Webhook)
		payments.GET("/:ride_id", deps.PaymentHandler.GetForRide)
	}

	authGroup := api.Group("/auth/driver")
	{
		authGroup.POST("/signup", deps.AuthHandler.Signup)
		authGroup.POST("/login", deps.AuthHandler.Login)
		authGroup.POST("/refresh", deps.AuthHandler.Refresh)
		authGroup.POST("/logout", deps.AuthHandler.Logout)
	}

	drivers := api.Group("/drivers")
	{
		drivers.POST("", deps.DriverHandler.Register)
		drivers.GET("", deps.DriverHandler.List)
		drivers.GET("/nearby", deps.DriverHandler.Nearby)

		me := drivers.Group("/me", middleware.DriverAuth(deps.Tokens))
		{
			me.GET("", deps.DriverHandler.Me)
			me.GET("/assigned-rides", deps.DriverHandler.AssignedRides)
			me.POST("/rides/:id/accept", deps.DriverHandler.AcceptRide)
			me.PATCH("/rides/:id/status", deps.DriverHandler.UpdateRideStatus)
		}

		drivers.GET("/:id", deps.DriverHandler.Get)
		drivers.PUT("/:id", deps.DriverHandler.Update)
		drivers.PUT("/:id/location", deps.DriverHandler.UpdateLocation)
		drivers.POST("/:id/toggle-availability", deps.DriverHandler.ToggleAvailability)
		drivers.GET("/:id/rides", deps.DriverHandler.Rides)
	}

	api.GET("/admin/overview", deps.AdminHandler.Overview)

	return router
}
