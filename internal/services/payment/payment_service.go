// Package payment records subscription payments: it gates new records
// through the duplicate-risk classifier, validates period lengths against
// the declared billing cycle and advances billing dates for successful
// payments.
package payment

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/subtrackr/backend/internal/models"
	"github.com/subtrackr/backend/internal/services/billing"
	"github.com/subtrackr/backend/internal/services/duplicate"
)

var (
	// ErrRecordNotFound means the payment record does not exist
	ErrRecordNotFound = errors.New("payment record not found")

	// ErrSubscriptionNotFound means the referenced subscription does not exist
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrMissingPaymentDate means the required payment date is absent
	ErrMissingPaymentDate = errors.New("payment date is required")

	// ErrInvalidAmount means the paid amount is missing or not positive
	ErrInvalidAmount = errors.New("paid amount must be positive")

	// ErrInvalidPeriod means billing period start is not before its end
	ErrInvalidPeriod = errors.New("billing period start must be before its end")
)

// DuplicateError is returned when the classifier flags the candidate as
// high risk and force-adding was not requested (or not allowed).
type DuplicateError struct {
	Verdict duplicate.Verdict
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("payment flagged as likely duplicate (%d conflicting records)", len(e.Verdict.ConflictingPayments))
}

// Service manages payment records
type Service struct {
	db         *gorm.DB
	classifier duplicate.Classifier
}

// NewService creates a new payment service
func NewService(db *gorm.DB, classifier duplicate.Classifier) *Service {
	return &Service{db: db, classifier: classifier}
}

// RecordInput is the payload for recording a payment. Period dates may be
// omitted; they are then pre-filled from the subscription's billing anchor.
type RecordInput struct {
	SubscriptionID     uuid.UUID
	PaymentDate        time.Time
	AmountPaid         decimal.Decimal
	Currency           models.Currency
	BillingPeriodStart time.Time
	BillingPeriodEnd   time.Time
	Status             models.PaymentStatus
	Force              bool
}

// Record validates and persists a payment record. Successful payments
// advance the subscription's last/next billing dates in the same
// transaction.
func (s *Service) Record(input RecordInput) (*models.PaymentRecord, error) {
	if input.PaymentDate.IsZero() {
		return nil, ErrMissingPaymentDate
	}
	if !input.AmountPaid.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var sub models.Subscription
	if err := s.db.First(&sub, "id = ?", input.SubscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}

	currency := input.Currency
	if currency == "" {
		currency = sub.Currency
	}
	if !currency.IsValid() {
		return nil, models.ErrInvalidCurrency
	}

	periodStart, periodEnd, err := s.resolvePeriod(&sub, input)
	if err != nil {
		return nil, err
	}
	if !periodStart.Before(periodEnd) {
		return nil, ErrInvalidPeriod
	}

	status := input.Status
	if status == "" {
		status = models.PaymentStatusSuccess
	}

	var existing []models.PaymentRecord
	if err := s.db.Where("subscription_id = ?", sub.ID).Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to load existing payments: %w", err)
	}

	record := models.PaymentRecord{
		SubscriptionID:     sub.ID,
		PaymentDate:        billing.TruncateToDate(input.PaymentDate),
		AmountPaid:         input.AmountPaid,
		Currency:           currency,
		BillingPeriodStart: periodStart,
		BillingPeriodEnd:   periodEnd,
		Status:             status,
	}

	verdict := s.classifier.Classify(record, existing)
	if verdict.Severity == duplicate.SeverityHigh && !(input.Force && verdict.AllowForceAdd) {
		return nil, &DuplicateError{Verdict: verdict}
	}

	// Period-length mismatches are recorded, not rejected: imported history
	// often predates cycle changes.
	if ok, err := billing.ValidatePeriodLength(periodStart, periodEnd, sub.BillingCycle); err == nil && !ok {
		log.Printf("Payment period %s..%s does not match %s cycle for subscription %s",
			periodStart.Format("2006-01-02"), periodEnd.Format("2006-01-02"), sub.BillingCycle, sub.ID)
		record.Metadata = models.JSON{"period_length_mismatch": true}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to create payment record: %w", err)
		}
		if record.Status == models.PaymentStatusSuccess {
			if err := s.advanceBillingDates(tx, &sub, &record); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// resolvePeriod fills in absent period dates from the billing anchor
func (s *Service) resolvePeriod(sub *models.Subscription, input RecordInput) (time.Time, time.Time, error) {
	start := input.BillingPeriodStart
	end := input.BillingPeriodEnd

	if start.IsZero() {
		if sub.NextBillingDate != nil {
			derived, err := billing.BillingPeriodStartFromNextBilling(*sub.NextBillingDate, sub.BillingCycle)
			if err != nil {
				return time.Time{}, time.Time{}, err
			}
			start = derived
		} else {
			start = billing.TruncateToDate(input.PaymentDate)
		}
	} else {
		start = billing.TruncateToDate(start)
	}

	if end.IsZero() {
		derived, err := billing.BillingPeriodEnd(start, sub.BillingCycle)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = derived
	} else {
		end = billing.TruncateToDate(end)
	}

	return start, end, nil
}

// advanceBillingDates moves the subscription's billing dates forward for an
// accepted successful payment. Older payments (backfilled history) never
// move the dates backwards.
func (s *Service) advanceBillingDates(tx *gorm.DB, sub *models.Subscription, record *models.PaymentRecord) error {
	if sub.LastBillingDate != nil && !record.PaymentDate.After(*sub.LastBillingDate) {
		return nil
	}

	next, err := billing.Advance(record.BillingPeriodStart, sub.BillingCycle)
	if err != nil {
		return err
	}
	// A payment recorded after its covered period would leave the last
	// billing date ahead of the next one; walk the next date forward past
	// the payment date to keep last <= next.
	if !next.After(record.PaymentDate) {
		next, err = billing.NextBillingFromStart(record.BillingPeriodStart, record.PaymentDate, sub.BillingCycle)
		if err != nil {
			return err
		}
	}
	if sub.NextBillingDate != nil && next.Before(*sub.NextBillingDate) {
		next = *sub.NextBillingDate
	}

	paymentDate := record.PaymentDate
	sub.LastBillingDate = &paymentDate
	sub.NextBillingDate = &next

	if err := tx.Save(sub).Error; err != nil {
		return fmt.Errorf("failed to advance billing dates: %w", err)
	}
	return nil
}

// ListBySubscription returns a subscription's payment history, newest first
func (s *Service) ListBySubscription(subscriptionID uuid.UUID) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	err := s.db.
		Where("subscription_id = ?", subscriptionID).
		Order("payment_date DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payment records: %w", err)
	}
	return records, nil
}

// ListAll returns every payment record, used by the statistics endpoint
func (s *Service) ListAll() ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	if err := s.db.Order("payment_date DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list payment records: %w", err)
	}
	return records, nil
}

// CorrectStatus is the single permitted mutation of a persisted payment
// record. Correcting a record to success advances billing dates the same
// way an originally successful payment would have.
func (s *Service) CorrectStatus(id uuid.UUID, status models.PaymentStatus) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := s.db.First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get payment record: %w", err)
	}

	previous := record.Status
	record.Status = status

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&record).Error; err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		if previous != models.PaymentStatusSuccess && status == models.PaymentStatusSuccess {
			var sub models.Subscription
			if err := tx.First(&sub, "id = ?", record.SubscriptionID).Error; err != nil {
				return fmt.Errorf("failed to load subscription: %w", err)
			}
			return s.advanceBillingDates(tx, &sub, &record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}
