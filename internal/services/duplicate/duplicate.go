// Package duplicate defines the duplicate-payment risk classifier consumed
// before accepting a new payment record. The heuristic itself is an
// external collaborator; this package owns the verdict contract and ships a
// conservative default so the wiring runs out of the box.
package duplicate

import (
	"github.com/subtrackr/backend/internal/models"
	"github.com/subtrackr/backend/internal/services/billing"
)

// Severity grades how likely a candidate payment is a duplicate
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Verdict is the classifier's answer for one candidate payment
type Verdict struct {
	Severity            Severity               `json:"severity"`
	ConflictingPayments []models.PaymentRecord `json:"conflicting_payments,omitempty"`
	AllowForceAdd       bool                   `json:"allow_force_add"`
}

// Classifier inspects a candidate payment against the subscription's
// existing records and returns a risk verdict.
type Classifier interface {
	Classify(candidate models.PaymentRecord, existing []models.PaymentRecord) Verdict
}

// SameDayClassifier is the default heuristic: a payment on the same day as
// an existing record for the same subscription is high risk when the
// amounts match, medium otherwise. Everything else is low risk. Force-adds
// are always permitted; the caller decides whether to require one.
type SameDayClassifier struct{}

// NewSameDayClassifier creates the default classifier
func NewSameDayClassifier() *SameDayClassifier {
	return &SameDayClassifier{}
}

// Classify implements Classifier
func (c *SameDayClassifier) Classify(candidate models.PaymentRecord, existing []models.PaymentRecord) Verdict {
	candidateDay := billing.TruncateToDate(candidate.PaymentDate)

	var conflicts []models.PaymentRecord
	severity := SeverityLow
	for _, record := range existing {
		if record.ID == candidate.ID {
			continue
		}
		if !billing.TruncateToDate(record.PaymentDate).Equal(candidateDay) {
			continue
		}
		conflicts = append(conflicts, record)
		if record.AmountPaid.Equal(candidate.AmountPaid) && record.Currency == candidate.Currency {
			severity = SeverityHigh
		} else if severity != SeverityHigh {
			severity = SeverityMedium
		}
	}

	return Verdict{
		Severity:            severity,
		ConflictingPayments: conflicts,
		AllowForceAdd:       true,
	}
}
