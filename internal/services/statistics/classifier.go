// Package statistics buckets payment history into calendar periods and
// aggregates normalized, currency-converted subscription spend per period.
package statistics

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDate signals a date that is missing or not a real calendar date
var ErrInvalidDate = errors.New("invalid payment date")

// PeriodType selects one of the three calendar bucket granularities
type PeriodType string

const (
	PeriodMonth   PeriodType = "month"
	PeriodQuarter PeriodType = "quarter"
	PeriodYear    PeriodType = "year"
)

// validDate rejects the zero value and dates outside a sane calendar range
func validDate(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	year := t.Year()
	return year >= 1 && year <= 9999
}

// MonthKey maps a date to its calendar-month bucket key, "YYYY-MM"
func MonthKey(t time.Time) (string, error) {
	if !validDate(t) {
		return "", ErrInvalidDate
	}
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())), nil
}

// QuarterKey maps a date to its calendar-quarter bucket key, "YYYY-QN"
func QuarterKey(t time.Time) (string, error) {
	if !validDate(t) {
		return "", ErrInvalidDate
	}
	quarter := (int(t.Month())-1)/3 + 1
	return fmt.Sprintf("%04d-Q%d", t.Year(), quarter), nil
}

// YearKey maps a date to its calendar-year bucket key, "YYYY"
func YearKey(t time.Time) (string, error) {
	if !validDate(t) {
		return "", ErrInvalidDate
	}
	return fmt.Sprintf("%04d", t.Year()), nil
}
