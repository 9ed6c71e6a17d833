package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle represents the recurrence cadence of a subscription
type BillingCycle string

const (
	BillingCycleMonthly      BillingCycle = "monthly"
	BillingCycleQuarterly    BillingCycle = "quarterly"
	BillingCycleYearly       BillingCycle = "yearly"
	BillingCycleSemiAnnually BillingCycle = "semi_annually"
	BillingCycleWeekly       BillingCycle = "weekly"
	BillingCycleDaily        BillingCycle = "daily"
)

// IsValid reports whether the cycle is one of the known cadences
func (c BillingCycle) IsValid() bool {
	switch c {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleYearly,
		BillingCycleSemiAnnually, BillingCycleWeekly, BillingCycleDaily:
		return true
	}
	return false
}

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// RenewalType controls whether the renewal job may advance billing dates
type RenewalType string

const (
	RenewalTypeAuto   RenewalType = "auto"
	RenewalTypeManual RenewalType = "manual"
)

// Subscription represents a recurring subscription being tracked
type Subscription struct {
	Base
	Name            string             `gorm:"type:varchar(255);not null" json:"name"`
	Amount          decimal.Decimal    `gorm:"type:decimal(20,8);not null" json:"amount"`
	Currency        Currency           `gorm:"type:varchar(3);not null" json:"currency"`
	BillingCycle    BillingCycle       `gorm:"type:varchar(20);not null" json:"billing_cycle"`
	Status          SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	StartDate       time.Time          `gorm:"not null" json:"start_date"`
	LastBillingDate *time.Time         `json:"last_billing_date"`
	NextBillingDate *time.Time         `json:"next_billing_date"`
	RenewalType     RenewalType        `gorm:"type:varchar(10);not null;default:'auto'" json:"renewal_type"`
	Notes           string             `gorm:"type:text" json:"notes"`
	Metadata        JSON               `gorm:"type:jsonb" json:"metadata"`
}

// IsBillable reports whether the subscription still accrues charges.
// Cancelled subscriptions keep their history but never renew.
func (s *Subscription) IsBillable() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrial
}
