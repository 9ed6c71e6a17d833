package statistics

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/subtrackr/backend/internal/models"
	"github.com/subtrackr/backend/internal/services/billing"
)

// staleFloorYears is how far back a payment date may lie before the record
// is treated as stale garbage rather than history.
const staleFloorYears = 10

// GroupedPayments holds three independent multi-maps over the same records:
// one month bucket, one quarter bucket and one year bucket per accepted
// record.
type GroupedPayments struct {
	Month   map[string][]models.PaymentRecord
	Quarter map[string][]models.PaymentRecord
	Year    map[string][]models.PaymentRecord
}

// GroupReport counts how the batch was handled. Rejected records are
// skipped, never fatal.
type GroupReport struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`

	Malformed   int `json:"malformed"`
	InvalidDate int `json:"invalid_date"`
	FutureDate  int `json:"future_date"`
	StaleDate   int `json:"stale_date"`
}

// Group buckets a batch of payment records by calendar month, quarter and
// year relative to now. Per-record acceptance gate, in order: required
// fields, parseable date, not in the future, not older than the stale
// floor. A record dated exactly today is accepted.
func Group(payments []models.PaymentRecord, now time.Time) (GroupedPayments, GroupReport) {
	grouped := GroupedPayments{
		Month:   make(map[string][]models.PaymentRecord),
		Quarter: make(map[string][]models.PaymentRecord),
		Year:    make(map[string][]models.PaymentRecord),
	}
	report := GroupReport{}

	today := billing.TruncateToDate(now)
	staleFloor := today.AddDate(-staleFloorYears, 0, 0)

	for _, payment := range payments {
		if payment.ID == uuid.Nil || payment.PaymentDate.IsZero() {
			report.Skipped++
			report.Malformed++
			continue
		}

		monthKey, err := MonthKey(payment.PaymentDate)
		if err != nil {
			report.Skipped++
			report.InvalidDate++
			continue
		}

		paidOn := billing.TruncateToDate(payment.PaymentDate)
		if paidOn.After(today) {
			report.Skipped++
			report.FutureDate++
			continue
		}
		if paidOn.Before(staleFloor) {
			report.Skipped++
			report.StaleDate++
			continue
		}

		// The key derivations below cannot fail once MonthKey has accepted
		// the date.
		quarterKey, _ := QuarterKey(payment.PaymentDate)
		yearKey, _ := YearKey(payment.PaymentDate)

		grouped.Month[monthKey] = append(grouped.Month[monthKey], payment)
		grouped.Quarter[quarterKey] = append(grouped.Quarter[quarterKey], payment)
		grouped.Year[yearKey] = append(grouped.Year[yearKey], payment)
		report.Processed++
	}

	if report.Skipped > 0 {
		log.Printf("Payment grouping skipped %d of %d records (malformed=%d invalid_date=%d future=%d stale=%d)",
			report.Skipped, len(payments), report.Malformed, report.InvalidDate, report.FutureDate, report.StaleDate)
	}

	return grouped, report
}

// CountForPeriod returns the number of payments bucketed under the given
// period key. Absent keys count as zero, never as an error.
func CountForPeriod(grouped GroupedPayments, periodType PeriodType, key string) int {
	switch periodType {
	case PeriodMonth:
		return len(grouped.Month[key])
	case PeriodQuarter:
		return len(grouped.Quarter[key])
	case PeriodYear:
		return len(grouped.Year[key])
	}
	return 0
}
