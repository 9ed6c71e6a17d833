// Package billing implements the billing-cycle date engine: pure calendar
// arithmetic over a subscription's cadence. All functions truncate inputs to
// calendar-date granularity and never consult a clock of their own.
package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/subtrackr/backend/internal/models"
)

// ErrInvalidCycle signals a billing-cycle value outside the known enum.
// This is a caller contract violation, not bad user data, so it is
// returned loudly instead of being defaulted away.
var ErrInvalidCycle = errors.New("invalid billing cycle")

// PeriodDayRange bounds the accepted length, in days, of a billing period
type PeriodDayRange struct {
	Min int
	Max int
}

// Renewal is the pair of billing dates produced by processing a renewal
type Renewal struct {
	LastBillingDate time.Time
	NextBillingDate time.Time
}

// TruncateToDate drops the time-of-day component, keeping UTC midnight
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// addMonths adds n calendar months, clamping the day to the last valid day
// of the target month. time.Time.AddDate would overflow Jan 31 into Mar 3;
// billing dates must land on Feb 28/29 instead.
func addMonths(t time.Time, n int) time.Time {
	t = TruncateToDate(t)
	y, m, d := t.Date()

	months := int(m) - 1 + n
	year := y + months/12
	month := time.Month(months%12 + 1)
	if months < 0 {
		// Go's integer division truncates toward zero; normalize so the
		// month index stays in [1,12].
		year = y + (months-11)/12
		month = time.Month((months%12+12)%12 + 1)
	}

	if last := daysInMonth(year, month); d > last {
		d = last
	}
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// cycleMonths returns the cycle length in whole months, or 0 for the
// day-based cycles (weekly, daily).
func cycleMonths(cycle models.BillingCycle) (int, bool) {
	switch cycle {
	case models.BillingCycleMonthly:
		return 1, true
	case models.BillingCycleQuarterly:
		return 3, true
	case models.BillingCycleSemiAnnually:
		return 6, true
	case models.BillingCycleYearly:
		return 12, true
	}
	return 0, false
}

// Advance returns the date one full billing cycle after date
func Advance(date time.Time, cycle models.BillingCycle) (time.Time, error) {
	date = TruncateToDate(date)
	if months, ok := cycleMonths(cycle); ok {
		return addMonths(date, months), nil
	}
	switch cycle {
	case models.BillingCycleWeekly:
		return date.AddDate(0, 0, 7), nil
	case models.BillingCycleDaily:
		return date.AddDate(0, 0, 1), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
}

// retreat returns the date one full billing cycle before date
func retreat(date time.Time, cycle models.BillingCycle) (time.Time, error) {
	date = TruncateToDate(date)
	if months, ok := cycleMonths(cycle); ok {
		return addMonths(date, -months), nil
	}
	switch cycle {
	case models.BillingCycleWeekly:
		return date.AddDate(0, 0, -7), nil
	case models.BillingCycleDaily:
		return date.AddDate(0, 0, -1), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
}

// NextBillingForNewSubscription derives the first due date of a brand-new
// subscription: exactly one cycle after its start date.
func NextBillingForNewSubscription(startDate time.Time, cycle models.BillingCycle) (time.Time, error) {
	return Advance(startDate, cycle)
}

// NextBillingFromStart walks whole cycles forward from the fixed anchor
// startDate and returns the first date strictly after asOf. The anchor keeps
// long-dormant subscriptions on their original schedule no matter how many
// cycles have elapsed.
func NextBillingFromStart(startDate, asOf time.Time, cycle models.BillingCycle) (time.Time, error) {
	next := TruncateToDate(startDate)
	asOf = TruncateToDate(asOf)
	for !next.After(asOf) {
		advanced, err := Advance(next, cycle)
		if err != nil {
			return time.Time{}, err
		}
		next = advanced
	}
	return next, nil
}

// IsDue reports whether a billing date has arrived. A date equal to asOf
// counts as due.
func IsDue(nextBillingDate, asOf time.Time) bool {
	return !TruncateToDate(nextBillingDate).After(TruncateToDate(asOf))
}

// ProcessRenewal computes the billing dates resulting from renewing the
// subscription at asOf. This is the only legitimate way last/next billing
// dates advance automatically. When the subscription has no next billing
// date on record (e.g. freshly imported data) the schedule restarts from
// the renewal date.
func ProcessRenewal(sub *models.Subscription, asOf time.Time) (Renewal, error) {
	asOf = TruncateToDate(asOf)

	anchor := asOf
	if sub.NextBillingDate != nil {
		anchor = TruncateToDate(*sub.NextBillingDate)
	}

	next, err := Advance(anchor, sub.BillingCycle)
	if err != nil {
		return Renewal{}, err
	}
	return Renewal{LastBillingDate: asOf, NextBillingDate: next}, nil
}

// ExpectedPeriodDays returns the accepted inclusive day-count range for one
// period of the given cycle. Used for validating recorded payments, never
// for date arithmetic.
func ExpectedPeriodDays(cycle models.BillingCycle) (PeriodDayRange, error) {
	switch cycle {
	case models.BillingCycleMonthly:
		return PeriodDayRange{Min: 28, Max: 31}, nil
	case models.BillingCycleQuarterly:
		return PeriodDayRange{Min: 89, Max: 92}, nil
	case models.BillingCycleYearly:
		return PeriodDayRange{Min: 365, Max: 366}, nil
	case models.BillingCycleSemiAnnually:
		return PeriodDayRange{Min: 181, Max: 184}, nil
	case models.BillingCycleWeekly:
		return PeriodDayRange{Min: 7, Max: 7}, nil
	case models.BillingCycleDaily:
		return PeriodDayRange{Min: 1, Max: 1}, nil
	}
	return PeriodDayRange{}, fmt.Errorf("%w: %q", ErrInvalidCycle, cycle)
}

// ValidatePeriodLength reports whether the inclusive span from start to end
// is a plausible single period of the given cycle (e.g. Mar 1 through
// Mar 31 is 31 days, valid for monthly, absurd for yearly).
func ValidatePeriodLength(start, end time.Time, cycle models.BillingCycle) (bool, error) {
	bounds, err := ExpectedPeriodDays(cycle)
	if err != nil {
		return false, err
	}
	start = TruncateToDate(start)
	end = TruncateToDate(end)
	if end.Before(start) {
		return false, nil
	}
	days := int(end.Sub(start).Hours()/24) + 1
	return days >= bounds.Min && days <= bounds.Max, nil
}

// BillingPeriodEnd returns the last day covered by a period starting at
// start: one cycle forward, minus a day (periods include their last day).
func BillingPeriodEnd(start time.Time, cycle models.BillingCycle) (time.Time, error) {
	next, err := Advance(start, cycle)
	if err != nil {
		return time.Time{}, err
	}
	return next.AddDate(0, 0, -1), nil
}

// BillingPeriodStartFromNextBilling derives a period start from the known
// next-billing anchor by stepping one cycle back. Used to pre-fill payment
// records when the user did not enter period dates manually.
func BillingPeriodStartFromNextBilling(nextBillingDate time.Time, cycle models.BillingCycle) (time.Time, error) {
	return retreat(nextBillingDate, cycle)
}
