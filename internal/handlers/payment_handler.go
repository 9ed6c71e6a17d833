package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subtrackr/backend/internal/models"
	"github.com/subtrackr/backend/internal/services/payment"
)

// PaymentHandler handles payment-record requests
type PaymentHandler struct {
	paymentService *payment.Service
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *payment.Service) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// RecordPaymentRequest represents a request to record a payment
type RecordPaymentRequest struct {
	SubscriptionID     uuid.UUID            `json:"subscription_id" binding:"required"`
	PaymentDate        string               `json:"payment_date" binding:"required"`
	AmountPaid         decimal.Decimal      `json:"amount_paid" binding:"required"`
	Currency           models.Currency      `json:"currency"`
	BillingPeriodStart string               `json:"billing_period_start"`
	BillingPeriodEnd   string               `json:"billing_period_end"`
	Status             models.PaymentStatus `json:"status"`
	Force              bool                 `json:"force"`
}

func parseOptionalDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", value)
}

// Record records a payment against a subscription
func (h *PaymentHandler) Record(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	paymentDate, err := time.Parse("2006-01-02", req.PaymentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "payment_date must be YYYY-MM-DD"})
		return
	}
	periodStart, err := parseOptionalDate(req.BillingPeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "billing_period_start must be YYYY-MM-DD"})
		return
	}
	periodEnd, err := parseOptionalDate(req.BillingPeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "billing_period_end must be YYYY-MM-DD"})
		return
	}

	record, err := h.paymentService.Record(payment.RecordInput{
		SubscriptionID:     req.SubscriptionID,
		PaymentDate:        paymentDate,
		AmountPaid:         req.AmountPaid,
		Currency:           req.Currency,
		BillingPeriodStart: periodStart,
		BillingPeriodEnd:   periodEnd,
		Status:             req.Status,
		Force:              req.Force,
	})
	if err != nil {
		var dupErr *payment.DuplicateError
		switch {
		case errors.As(err, &dupErr):
			c.JSON(http.StatusConflict, gin.H{
				"error":   dupErr.Error(),
				"verdict": dupErr.Verdict,
			})
		case errors.Is(err, payment.ErrSubscriptionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, payment.ErrMissingPaymentDate),
			errors.Is(err, payment.ErrInvalidAmount),
			errors.Is(err, payment.ErrInvalidPeriod),
			errors.Is(err, models.ErrInvalidCurrency):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "success", "payment": record})
}

// ListBySubscription returns a subscription's payment history
func (h *PaymentHandler) ListBySubscription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	records, err := h.paymentService.ListBySubscription(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payments": records})
}

// CorrectStatusRequest represents a payment status correction
type CorrectStatusRequest struct {
	Status models.PaymentStatus `json:"status" binding:"required"`
}

// CorrectStatus corrects a payment record's status
func (h *PaymentHandler) CorrectStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payment id"})
		return
	}

	var req CorrectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.paymentService.CorrectStatus(id, req.Status)
	if err != nil {
		if errors.Is(err, payment.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "payment": record})
}
