// Package subscription implements subscription lifecycle operations around
// the billing-cycle engine: creation, updates, cancellation and renewal.
package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/subtrackr/backend/internal/models"
	"github.com/subtrackr/backend/internal/services/billing"
)

var (
	// ErrNotFound means the subscription does not exist
	ErrNotFound = errors.New("subscription not found")

	// ErrInvalidAmount means the amount is missing or not positive
	ErrInvalidAmount = errors.New("subscription amount must be positive")

	// ErrNotBillable means the subscription is cancelled and cannot renew
	ErrNotBillable = errors.New("subscription is not billable")
)

// Service manages subscriptions
type Service struct {
	db *gorm.DB
}

// NewService creates a new subscription service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CreateInput is the payload for creating a subscription
type CreateInput struct {
	Name         string
	Amount       decimal.Decimal
	Currency     models.Currency
	BillingCycle models.BillingCycle
	Status       models.SubscriptionStatus
	StartDate    time.Time
	RenewalType  models.RenewalType
	Notes        string
}

// Create validates the input, derives the first next-billing date and
// persists the subscription.
func (s *Service) Create(input CreateInput) (*models.Subscription, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !input.Currency.IsValid() {
		return nil, models.ErrInvalidCurrency
	}
	if !input.BillingCycle.IsValid() {
		return nil, fmt.Errorf("%w: %q", billing.ErrInvalidCycle, input.BillingCycle)
	}
	if input.StartDate.IsZero() {
		return nil, errors.New("start date is required")
	}

	status := input.Status
	if status == "" {
		status = models.SubscriptionStatusActive
	}
	renewalType := input.RenewalType
	if renewalType == "" {
		renewalType = models.RenewalTypeAuto
	}

	next, err := billing.NextBillingForNewSubscription(input.StartDate, input.BillingCycle)
	if err != nil {
		return nil, err
	}

	sub := models.Subscription{
		Name:            input.Name,
		Amount:          input.Amount,
		Currency:        input.Currency,
		BillingCycle:    input.BillingCycle,
		Status:          status,
		StartDate:       billing.TruncateToDate(input.StartDate),
		NextBillingDate: &next,
		RenewalType:     renewalType,
		Notes:           input.Notes,
	}

	if err := s.db.Create(&sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return &sub, nil
}

// Get retrieves a subscription by ID
func (s *Service) Get(id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.First(&sub, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// List returns all subscriptions, newest first
func (s *Service) List() ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := s.db.Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// UpdateInput carries the mutable subscription fields. Billing dates are
// deliberately absent: they only move through renewals and accepted
// payments.
type UpdateInput struct {
	Name   *string
	Amount *decimal.Decimal
	Notes  *string
}

// Update applies the given field changes
func (s *Service) Update(id uuid.UUID, input UpdateInput) (*models.Subscription, error) {
	sub, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		sub.Name = *input.Name
	}
	if input.Amount != nil {
		if !input.Amount.IsPositive() {
			return nil, ErrInvalidAmount
		}
		sub.Amount = *input.Amount
	}
	if input.Notes != nil {
		sub.Notes = *input.Notes
	}

	if err := s.db.Save(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	return sub, nil
}

// Cancel soft-cancels a subscription and clears its next billing date so
// the renewal job never picks it up again.
func (s *Service) Cancel(id uuid.UUID) (*models.Subscription, error) {
	sub, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	sub.Status = models.SubscriptionStatusCancelled
	sub.NextBillingDate = nil

	if err := s.db.Save(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return sub, nil
}

// Renew processes a renewal at asOf: advances the billing dates through the
// billing engine and writes the covering payment record in one transaction.
func (s *Service) Renew(id uuid.UUID, asOf time.Time) (*models.Subscription, error) {
	sub, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !sub.IsBillable() {
		return nil, ErrNotBillable
	}

	renewal, err := billing.ProcessRenewal(sub, asOf)
	if err != nil {
		return nil, err
	}

	periodStart, err := billing.BillingPeriodStartFromNextBilling(renewal.NextBillingDate, sub.BillingCycle)
	if err != nil {
		return nil, err
	}
	periodEnd := renewal.NextBillingDate.AddDate(0, 0, -1)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		sub.LastBillingDate = &renewal.LastBillingDate
		sub.NextBillingDate = &renewal.NextBillingDate
		if err := tx.Save(sub).Error; err != nil {
			return fmt.Errorf("failed to update billing dates: %w", err)
		}

		record := models.PaymentRecord{
			SubscriptionID:     sub.ID,
			PaymentDate:        renewal.LastBillingDate,
			AmountPaid:         sub.Amount,
			Currency:           sub.Currency,
			BillingPeriodStart: periodStart,
			BillingPeriodEnd:   periodEnd,
			Status:             models.PaymentStatusSuccess,
		}
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create renewal payment record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Due returns the auto-renewing subscriptions whose next billing date has
// arrived as of asOf.
func (s *Service) Due(asOf time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := s.db.
		Where("status IN ?", []models.SubscriptionStatus{models.SubscriptionStatusActive, models.SubscriptionStatusTrial}).
		Where("renewal_type = ?", models.RenewalTypeAuto).
		Where("next_billing_date IS NOT NULL AND next_billing_date <= ?", billing.TruncateToDate(asOf)).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find due subscriptions: %w", err)
	}
	return subs, nil
}
