package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subtrackr/backend/internal/models"
	"github.com/subtrackr/backend/internal/services/billing"
	"github.com/subtrackr/backend/internal/services/subscription"
)

// SubscriptionHandler handles subscription-related requests
type SubscriptionHandler struct {
	subscriptionService *subscription.Service
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptionService *subscription.Service) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// CreateSubscriptionRequest represents a request to create a subscription
type CreateSubscriptionRequest struct {
	Name         string                    `json:"name" binding:"required"`
	Amount       decimal.Decimal           `json:"amount" binding:"required"`
	Currency     models.Currency           `json:"currency" binding:"required"`
	BillingCycle models.BillingCycle       `json:"billing_cycle" binding:"required"`
	Status       models.SubscriptionStatus `json:"status"`
	StartDate    string                    `json:"start_date" binding:"required"`
	RenewalType  models.RenewalType        `json:"renewal_type"`
	Notes        string                    `json:"notes"`
}

// Create creates a new subscription
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
		return
	}

	sub, err := h.subscriptionService.Create(subscription.CreateInput{
		Name:         req.Name,
		Amount:       req.Amount,
		Currency:     req.Currency,
		BillingCycle: req.BillingCycle,
		Status:       req.Status,
		StartDate:    startDate,
		RenewalType:  req.RenewalType,
		Notes:        req.Notes,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, subscription.ErrInvalidAmount) ||
			errors.Is(err, models.ErrInvalidCurrency) ||
			errors.Is(err, billing.ErrInvalidCycle) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "subscription": sub})
}

// List returns all subscriptions
func (h *SubscriptionHandler) List(c *gin.Context) {
	subs, err := h.subscriptionService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "subscriptions": subs})
}

// Get returns a single subscription
func (h *SubscriptionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	sub, err := h.subscriptionService.Get(id)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "subscription": sub})
}

// UpdateSubscriptionRequest represents a request to update a subscription
type UpdateSubscriptionRequest struct {
	Name   *string          `json:"name"`
	Amount *decimal.Decimal `json:"amount"`
	Notes  *string          `json:"notes"`
}

// Update modifies a subscription's mutable fields
func (h *SubscriptionHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.subscriptionService.Update(id, subscription.UpdateInput{
		Name:   req.Name,
		Amount: req.Amount,
		Notes:  req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, subscription.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "subscription": sub})
}

// Cancel soft-cancels a subscription
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	sub, err := h.subscriptionService.Cancel(id)
	if err != nil {
		if errors.Is(err, subscription.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "subscription": sub})
}

// Renew manually renews a subscription as of today
func (h *SubscriptionHandler) Renew(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	sub, err := h.subscriptionService.Renew(id, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, subscription.ErrNotBillable):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "subscription": sub})
}
