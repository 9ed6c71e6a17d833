package routes

import (
	"gorm.io/gorm"

	"github.com/gin-gonic/gin"

	"github.com/subtrackr/backend/internal/config"
	"github.com/subtrackr/backend/internal/handlers"
	"github.com/subtrackr/backend/internal/middleware"
	"github.com/subtrackr/backend/internal/services/duplicate"
	"github.com/subtrackr/backend/internal/services/exchange"
	"github.com/subtrackr/backend/internal/services/payment"
	"github.com/subtrackr/backend/internal/services/subscription"
)

// RegisterRoutes configures all API routes
func RegisterRoutes(router *gin.Engine, db *gorm.DB, rateProvider exchange.RateProvider, cfg *config.Config) {
	subscriptionSvc := subscription.NewService(db)
	paymentSvc := payment.NewService(db, duplicate.NewSameDayClassifier())

	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionSvc)
	paymentHandler := handlers.NewPaymentHandler(paymentSvc)
	statisticsHandler := handlers.NewStatisticsHandler(subscriptionSvc, paymentSvc, rateProvider, cfg.Exchange.DefaultCurrency)
	healthHandler := handlers.NewHealthHandler(db)

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitPerSecond, cfg.Server.RateLimitBurst)

	router.GET("/health", healthHandler.Check)

	api := router.Group("/api")
	api.Use(rateLimiter.Middleware())
	{
		subscriptions := api.Group("/subscriptions")
		{
			subscriptions.POST("", subscriptionHandler.Create)
			subscriptions.GET("", subscriptionHandler.List)
			subscriptions.GET("/:id", subscriptionHandler.Get)
			subscriptions.PATCH("/:id", subscriptionHandler.Update)
			subscriptions.DELETE("/:id", subscriptionHandler.Cancel)
			subscriptions.POST("/:id/renew", subscriptionHandler.Renew)
			subscriptions.GET("/:id/payments", paymentHandler.ListBySubscription)
		}

		payments := api.Group("/payments")
		{
			payments.POST("", paymentHandler.Record)
			payments.PATCH("/:id/status", paymentHandler.CorrectStatus)
		}

		api.GET("/statistics", statisticsHandler.Get)
	}
}
