package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment record
type PaymentStatus string

const (
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
	PaymentStatusPending PaymentStatus = "pending"
)

// PaymentRecord represents a single payment made for a subscription.
// Records are immutable once persisted except for status correction;
// only successful records may advance a subscription's billing dates.
type PaymentRecord struct {
	Base
	SubscriptionID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"subscription_id"`
	Subscription       Subscription    `gorm:"foreignKey:SubscriptionID" json:"-"`
	PaymentDate        time.Time       `gorm:"not null;index" json:"payment_date"`
	AmountPaid         decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount_paid"`
	Currency           Currency        `gorm:"type:varchar(3);not null" json:"currency"`
	BillingPeriodStart time.Time       `gorm:"not null" json:"billing_period_start"`
	BillingPeriodEnd   time.Time       `gorm:"not null" json:"billing_period_end"`
	Status             PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	Metadata           JSON            `gorm:"type:jsonb" json:"metadata"`
}
