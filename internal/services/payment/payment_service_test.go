package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/subtrackr/backend/internal/models"
	"github.com/subtrackr/backend/internal/services/duplicate"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.PaymentRecord{}))
	return db
}

func seedSubscription(t *testing.T, db *gorm.DB) *models.Subscription {
	next := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	sub := &models.Subscription{
		Name:            "cloud drive",
		Amount:          decimal.RequireFromString("4.99"),
		Currency:        models.CurrencyUSD,
		BillingCycle:    models.BillingCycleMonthly,
		Status:          models.SubscriptionStatusActive,
		StartDate:       time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		NextBillingDate: &next,
		RenewalType:     models.RenewalTypeAuto,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}

func recordInput(sub *models.Subscription) RecordInput {
	return RecordInput{
		SubscriptionID:     sub.ID,
		PaymentDate:        time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
		AmountPaid:         decimal.RequireFromString("4.99"),
		Currency:           models.CurrencyUSD,
		BillingPeriodStart: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		BillingPeriodEnd:   time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestRecordSuccessfulPaymentAdvancesBillingDates(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, duplicate.NewSameDayClassifier())
	sub := seedSubscription(t, db)

	record, err := svc.Record(recordInput(sub))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, record.Status)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	require.NotNil(t, reloaded.LastBillingDate)
	require.NotNil(t, reloaded.NextBillingDate)
	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), *reloaded.LastBillingDate)
	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), *reloaded.NextBillingDate)
	assert.False(t, reloaded.LastBillingDate.After(*reloaded.NextBillingDate))
}

func TestRecordLatePaymentKeepsLastBeforeNext(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, duplicate.NewSameDayClassifier())
	sub := seedSubscription(t, db)

	// Paid months after the period it covers: the next billing date must be
	// walked forward past the payment date, never left behind it.
	late := recordInput(sub)
	late.PaymentDate = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Record(late)
	require.NoError(t, err)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	require.NotNil(t, reloaded.LastBillingDate)
	require.NotNil(t, reloaded.NextBillingDate)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), *reloaded.LastBillingDate)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), *reloaded.NextBillingDate)
	assert.False(t, reloaded.LastBillingDate.After(*reloaded.NextBillingDate), "last billing date never trails next")
}

func TestRecordFailedPaymentLeavesBillingDatesAlone(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, duplicate.NewSameDayClassifier())
	sub := seedSubscription(t, db)

	input := recordInput(sub)
	input.Status = models.PaymentStatusFailed
	_, err := svc.Record(input)
	require.NoError(t, err)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	assert.Nil(t, reloaded.LastBillingDate, "failed payments never advance billing dates")
}

func TestRecordValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, duplicate.NewSameDayClassifier())
	sub := seedSubscription(t, db)

	input := recordInput(sub)
	input.PaymentDate = time.Time{}
	_, err := svc.Record(input)
	assert.ErrorIs(t, err, ErrMissingPaymentDate)

	input = recordInput(sub)
	input.AmountPaid = decimal.Zero
	_, err = svc.Record(input)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	input = recordInput(sub)
	input.BillingPeriodStart = input.BillingPeriodEnd
	_, err = svc.Record(input)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestRecordPrefillsPeriodFromBillingAnchor(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, duplicate.NewSameDayClassifier())
	sub := seedSubscription(t, db)

	input := recordInput(sub)
	input.BillingPeriodStart = time.Time{}
	input.BillingPeriodEnd = time.Time{}

	record, err := svc.Record(input)
	require.NoError(t, err)

	// One cycle back from the April 1 anchor, ending the day before it.
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), record.BillingPeriodStart)
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), record.BillingPeriodEnd)
}

func TestRecordDuplicateIsRejectedUnlessForced(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, duplicate.NewSameDayClassifier())
	sub := seedSubscription(t, db)

	_, err := svc.Record(recordInput(sub))
	require.NoError(t, err)

	_, err = svc.Record(recordInput(sub))
	var dupErr *DuplicateError
	require.True(t, errors.As(err, &dupErr), "same-day same-amount payment must be flagged")
	assert.Equal(t, duplicate.SeverityHigh, dupErr.Verdict.Severity)
	assert.NotEmpty(t, dupErr.Verdict.ConflictingPayments)

	forced := recordInput(sub)
	forced.Force = true
	record, err := svc.Record(forced)
	require.NoError(t, err, "explicit force-add bypasses the duplicate gate")
	assert.Equal(t, models.PaymentStatusSuccess, record.Status)
}

func TestRecordPeriodMismatchIsFlaggedNotRejected(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, duplicate.NewSameDayClassifier())
	sub := seedSubscription(t, db)

	// A ten-day period against a monthly cycle: accepted, but flagged.
	input := recordInput(sub)
	input.BillingPeriodStart = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	input.BillingPeriodEnd = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

	record, err := svc.Record(input)
	require.NoError(t, err)
	require.NotNil(t, record.Metadata)
	assert.Equal(t, true, record.Metadata["period_length_mismatch"])
}

func TestCorrectStatusToSuccessAdvancesBillingDates(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, duplicate.NewSameDayClassifier())
	sub := seedSubscription(t, db)

	input := recordInput(sub)
	input.Status = models.PaymentStatusPending
	record, err := svc.Record(input)
	require.NoError(t, err)

	var beforeCorrection models.Subscription
	require.NoError(t, db.First(&beforeCorrection, "id = ?", sub.ID).Error)
	require.Nil(t, beforeCorrection.LastBillingDate)

	corrected, err := svc.CorrectStatus(record.ID, models.PaymentStatusSuccess)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, corrected.Status)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, "id = ?", sub.ID).Error)
	require.NotNil(t, reloaded.LastBillingDate)
	assert.Equal(t, time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC), *reloaded.LastBillingDate)
}

func TestListBySubscriptionOrdersNewestFirst(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db, duplicate.NewSameDayClassifier())
	sub := seedSubscription(t, db)

	older := recordInput(sub)
	older.PaymentDate = time.Date(2025, time.February, 15, 0, 0, 0, 0, time.UTC)
	older.BillingPeriodStart = time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	older.BillingPeriodEnd = time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)
	_, err := svc.Record(older)
	require.NoError(t, err)

	_, err = svc.Record(recordInput(sub))
	require.NoError(t, err)

	records, err := svc.ListBySubscription(sub.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].PaymentDate.After(records[1].PaymentDate))
}
