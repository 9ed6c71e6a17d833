package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/subtrackr/backend/internal/models"
	"github.com/subtrackr/backend/internal/services/exchange"
	"github.com/subtrackr/backend/internal/services/payment"
	"github.com/subtrackr/backend/internal/services/statistics"
	"github.com/subtrackr/backend/internal/services/subscription"
)

// StatisticsHandler serves aggregated spending statistics
type StatisticsHandler struct {
	subscriptionService *subscription.Service
	paymentService      *payment.Service
	rateProvider        exchange.RateProvider
	defaultCurrency     models.Currency
}

// NewStatisticsHandler creates a new statistics handler
func NewStatisticsHandler(
	subscriptionService *subscription.Service,
	paymentService *payment.Service,
	rateProvider exchange.RateProvider,
	defaultCurrency models.Currency,
) *StatisticsHandler {
	return &StatisticsHandler{
		subscriptionService: subscriptionService,
		paymentService:      paymentService,
		rateProvider:        rateProvider,
		defaultCurrency:     defaultCurrency,
	}
}

// Get computes monthly, quarterly and yearly spending statistics in the
// requested target currency. Rates and "now" are fixed once per request so
// all three period lists agree with each other.
func (h *StatisticsHandler) Get(c *gin.Context) {
	target := h.defaultCurrency
	if raw := c.Query("currency"); raw != "" {
		parsed, err := models.ParseCurrency(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid target currency"})
			return
		}
		target = parsed
	}

	subs, err := h.subscriptionService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	payments, err := h.paymentService.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Quoting the snapshot against the target currency gives every
	// subscription currency a direct or cross path to it.
	rates, err := h.rateProvider.RateTable(c.Request.Context(), target)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	result := statistics.Compute(subs, payments, rates, target, time.Now().UTC())
	c.JSON(http.StatusOK, gin.H{"status": "success", "statistics": result})
}
