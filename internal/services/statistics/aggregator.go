package statistics

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subtrackr/backend/internal/models"
	"github.com/subtrackr/backend/internal/services/billing"
	"github.com/subtrackr/backend/internal/services/exchange"
)

// Reporting windows, counted backwards from "now" and including the
// current period.
const (
	monthlyWindow   = 4
	quarterlyWindow = 4
	yearlyWindow    = 3
)

// PeriodStatistic is one reporting row: normalized spend for a calendar
// period, in the target currency, with the number of recorded payments.
// Change is only populated for yearly periods.
type PeriodStatistic struct {
	Period       string           `json:"period"`
	Amount       decimal.Decimal  `json:"amount"`
	Change       *decimal.Decimal `json:"change,omitempty"`
	Currency     models.Currency  `json:"currency"`
	PaymentCount int              `json:"payment_count"`
}

// Result is the full statistics snapshot for one target currency. The
// counts expose what the computation had to skip or leave unconverted so
// totals can be audited.
type Result struct {
	Monthly   []PeriodStatistic `json:"monthly"`
	Quarterly []PeriodStatistic `json:"quarterly"`
	Yearly    []PeriodStatistic `json:"yearly"`

	Payments                 GroupReport `json:"payments"`
	MalformedSubscriptions   int         `json:"malformed_subscriptions"`
	UnconvertedSubscriptions int         `json:"unconverted_subscriptions"`
}

// Compute aggregates per-period spend across the subscription set. It is a
// pure function over its inputs: rates and now are fixed for the whole run
// so the monthly, quarterly and yearly passes agree with each other.
func Compute(subs []models.Subscription, payments []models.PaymentRecord, rates exchange.RateTable, target models.Currency, now time.Time) Result {
	grouped, report := Group(payments, now)

	malformed := make(map[uuid.UUID]bool)
	unconverted := make(map[uuid.UUID]bool)

	monthly := computePeriods(PeriodMonth, monthlyWindow, subs, grouped, rates, target, now, malformed, unconverted)
	quarterly := computePeriods(PeriodQuarter, quarterlyWindow, subs, grouped, rates, target, now, malformed, unconverted)
	yearly := computePeriods(PeriodYear, yearlyWindow, subs, grouped, rates, target, now, malformed, unconverted)

	attachYearlyChange(yearly)

	return Result{
		Monthly:                  monthly,
		Quarterly:                quarterly,
		Yearly:                   yearly,
		Payments:                 report,
		MalformedSubscriptions:   len(malformed),
		UnconvertedSubscriptions: len(unconverted),
	}
}

// periodStart returns the first day of the period index steps back from
// now (index 0 is the current period).
func periodStart(periodType PeriodType, now time.Time, index int) time.Time {
	now = billing.TruncateToDate(now)
	switch periodType {
	case PeriodMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -index, 0)
	case PeriodQuarter:
		quarterMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
		first := time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -3*index, 0)
	default:
		return time.Date(now.Year()-index, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
}

func periodKey(periodType PeriodType, start time.Time) string {
	switch periodType {
	case PeriodMonth:
		key, _ := MonthKey(start)
		return key
	case PeriodQuarter:
		key, _ := QuarterKey(start)
		return key
	default:
		key, _ := YearKey(start)
		return key
	}
}

// periodCadenceMonths is the reporting cadence each bucket normalizes to
func periodCadenceMonths(periodType PeriodType) int64 {
	switch periodType {
	case PeriodMonth:
		return 1
	case PeriodQuarter:
		return 3
	default:
		return 12
	}
}

var (
	weeksPerYear  = decimal.NewFromInt(52)
	daysPerYear   = decimal.NewFromInt(365)
	oneHundred    = decimal.NewFromInt(100)
	monthsPerYear = decimal.NewFromInt(12)
)

// monthlyEquivalent normalizes a subscription's native-cadence amount to a
// one-month equivalent. Bucket contributions are this value scaled by the
// bucket's cadence in months.
func monthlyEquivalent(amount decimal.Decimal, cycle models.BillingCycle) (decimal.Decimal, error) {
	switch cycle {
	case models.BillingCycleMonthly:
		return amount, nil
	case models.BillingCycleQuarterly:
		return amount.Div(decimal.NewFromInt(3)), nil
	case models.BillingCycleSemiAnnually:
		return amount.Div(decimal.NewFromInt(6)), nil
	case models.BillingCycleYearly:
		return amount.Div(monthsPerYear), nil
	case models.BillingCycleWeekly:
		return amount.Mul(weeksPerYear).Div(monthsPerYear), nil
	case models.BillingCycleDaily:
		return amount.Mul(daysPerYear).Div(monthsPerYear), nil
	}
	return decimal.Decimal{}, fmt.Errorf("%w: %q", billing.ErrInvalidCycle, cycle)
}

// computePeriods builds the ordered period list for one period type,
// oldest first. Subscriptions that started after a period's first day are
// excluded from that period entirely; there is no partial-period
// pro-ration.
func computePeriods(
	periodType PeriodType,
	window int,
	subs []models.Subscription,
	grouped GroupedPayments,
	rates exchange.RateTable,
	target models.Currency,
	now time.Time,
	malformed map[uuid.UUID]bool,
	unconverted map[uuid.UUID]bool,
) []PeriodStatistic {
	cadence := decimal.NewFromInt(periodCadenceMonths(periodType))
	stats := make([]PeriodStatistic, 0, window)

	for index := window - 1; index >= 0; index-- {
		start := periodStart(periodType, now, index)
		key := periodKey(periodType, start)

		total := decimal.Zero
		for i := range subs {
			sub := &subs[i]
			if !sub.IsBillable() {
				continue
			}
			// A subscription contributes nothing to periods that began
			// before it existed.
			if billing.TruncateToDate(sub.StartDate).After(start) {
				continue
			}

			perMonth, err := monthlyEquivalent(sub.Amount, sub.BillingCycle)
			if err != nil {
				if !malformed[sub.ID] {
					log.Printf("Skipping subscription %s in statistics: %v", sub.ID, err)
					malformed[sub.ID] = true
				}
				continue
			}

			conv := exchange.Convert(perMonth.Mul(cadence), sub.Currency, target, rates)
			if !conv.Converted {
				unconverted[sub.ID] = true
			}
			total = total.Add(conv.Amount)
		}

		stats = append(stats, PeriodStatistic{
			Period:       key,
			Amount:       total.Round(2),
			Currency:     target,
			PaymentCount: CountForPeriod(grouped, periodType, key),
		})
	}

	return stats
}

// attachYearlyChange fills in year-over-year change percentages, oldest
// first. The first year in the window, and any year following a zero year,
// reports 0 rather than dividing by zero.
func attachYearlyChange(yearly []PeriodStatistic) {
	for i := range yearly {
		change := decimal.Zero
		if i > 0 && !yearly[i-1].Amount.IsZero() {
			previous := yearly[i-1].Amount
			change = yearly[i].Amount.Sub(previous).Div(previous).Mul(oneHundred).Round(1)
		}
		yearly[i].Change = &change
	}
}
