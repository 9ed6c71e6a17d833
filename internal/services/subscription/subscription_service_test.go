package subscription

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/subtrackr/backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Subscription{}, &models.PaymentRecord{}))
	return db
}

func validInput() CreateInput {
	return CreateInput{
		Name:         "music streaming",
		Amount:       decimal.RequireFromString("9.99"),
		Currency:     models.CurrencyUSD,
		BillingCycle: models.BillingCycleMonthly,
		StartDate:    time.Date(2025, time.January, 31, 15, 4, 5, 0, time.UTC),
	}
}

func TestCreateDerivesNextBillingDate(t *testing.T) {
	svc := NewService(setupTestDB(t))

	sub, err := svc.Create(validInput())
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), sub.StartDate, "start date is truncated to a calendar date")
	require.NotNil(t, sub.NextBillingDate)
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), *sub.NextBillingDate, "month-end start clamps, not overflows")
	assert.Nil(t, sub.LastBillingDate)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, models.RenewalTypeAuto, sub.RenewalType)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(setupTestDB(t))

	bad := validInput()
	bad.Amount = decimal.Zero
	_, err := svc.Create(bad)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	bad = validInput()
	bad.Currency = models.Currency("dollars")
	_, err = svc.Create(bad)
	assert.ErrorIs(t, err, models.ErrInvalidCurrency)

	bad = validInput()
	bad.BillingCycle = models.BillingCycle("biweekly")
	_, err = svc.Create(bad)
	assert.Error(t, err)
}

func TestCancelClearsNextBillingDate(t *testing.T) {
	svc := NewService(setupTestDB(t))

	sub, err := svc.Create(validInput())
	require.NoError(t, err)
	require.NotNil(t, sub.NextBillingDate)

	cancelled, err := svc.Cancel(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.NextBillingDate)

	// Cancelled subscriptions cannot renew.
	_, err = svc.Renew(sub.ID, time.Now())
	assert.ErrorIs(t, err, ErrNotBillable)
}

func TestRenewAdvancesDatesAndRecordsPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)

	sub, err := svc.Create(validInput())
	require.NoError(t, err)

	asOf := time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC)
	renewed, err := svc.Renew(sub.ID, asOf)
	require.NoError(t, err)

	require.NotNil(t, renewed.LastBillingDate)
	require.NotNil(t, renewed.NextBillingDate)
	assert.Equal(t, asOf, *renewed.LastBillingDate)
	assert.Equal(t, time.Date(2025, time.March, 28, 0, 0, 0, 0, time.UTC), *renewed.NextBillingDate)
	assert.False(t, renewed.LastBillingDate.After(*renewed.NextBillingDate), "last billing date never trails next")

	var records []models.PaymentRecord
	require.NoError(t, db.Where("subscription_id = ?", sub.ID).Find(&records).Error)
	require.Len(t, records, 1)
	assert.Equal(t, models.PaymentStatusSuccess, records[0].Status)
	assert.True(t, sub.Amount.Equal(records[0].AmountPaid))
	assert.True(t, records[0].BillingPeriodStart.Before(records[0].BillingPeriodEnd))
}

func TestDueFindsOnlyDueAutoSubscriptions(t *testing.T) {
	svc := NewService(setupTestDB(t))

	due := validInput()
	due.StartDate = time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	dueSub, err := svc.Create(due)
	require.NoError(t, err)

	manual := validInput()
	manual.Name = "manual one"
	manual.StartDate = due.StartDate
	manual.RenewalType = models.RenewalTypeManual
	_, err = svc.Create(manual)
	require.NoError(t, err)

	notYet := validInput()
	notYet.Name = "future one"
	notYet.StartDate = time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(notYet)
	require.NoError(t, err)

	found, err := svc.Due(time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, dueSub.ID, found[0].ID)
}

func TestUpdateRejectsNonPositiveAmount(t *testing.T) {
	svc := NewService(setupTestDB(t))

	sub, err := svc.Create(validInput())
	require.NoError(t, err)

	negative := decimal.RequireFromString("-1")
	_, err = svc.Update(sub.ID, UpdateInput{Amount: &negative})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	name := "renamed"
	updated, err := svc.Update(sub.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
}
