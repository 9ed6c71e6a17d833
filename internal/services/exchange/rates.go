// Package exchange converts monetary amounts between currencies against an
// immutable rate-table snapshot. Conversion never aborts an aggregation: a
// missing rate falls back to the original amount and says so.
package exchange

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/subtrackr/backend/internal/models"
)

// ErrMissingRate signals that no conversion path exists between two
// currencies in the snapshot. Non-fatal: callers keep the unconverted
// amount and count the miss.
var ErrMissingRate = errors.New("no exchange rate available for currency pair")

// RateTable is a snapshot of exchange rates quoted against a single base
// currency: one unit of Base buys Rates[c] units of c. The table must not
// be mutated during an aggregation run.
type RateTable struct {
	Base      models.Currency                     `json:"base"`
	Rates     map[models.Currency]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                           `json:"fetched_at"`
}

// NewRateTable builds a snapshot, ensuring the base currency itself always
// resolves to exactly 1.
func NewRateTable(base models.Currency, rates map[models.Currency]decimal.Decimal, fetchedAt time.Time) RateTable {
	copied := make(map[models.Currency]decimal.Decimal, len(rates)+1)
	for c, r := range rates {
		copied[c] = r
	}
	copied[base] = decimal.NewFromInt(1)
	return RateTable{Base: base, Rates: copied, FetchedAt: fetchedAt}
}

// Rate returns the multiplier taking an amount in from to an amount in to.
// Lookup order: identity, direct quote off the base, inverted quote into
// the base, then the cross rate composed through the base.
func (t RateTable) Rate(from, to models.Currency) (decimal.Decimal, bool) {
	if from == to {
		return decimal.NewFromInt(1), true
	}
	if from == t.Base {
		rate, ok := t.Rates[to]
		return rate, ok && rate.IsPositive()
	}
	if to == t.Base {
		rate, ok := t.Rates[from]
		if !ok || !rate.IsPositive() {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromInt(1).Div(rate), true
	}

	fromRate, okFrom := t.Rates[from]
	toRate, okTo := t.Rates[to]
	if !okFrom || !okTo || !fromRate.IsPositive() {
		return decimal.Decimal{}, false
	}
	return toRate.Div(fromRate), true
}

// Conversion is the observable result of a currency conversion. Amount is
// always usable; Converted distinguishes a real conversion from the
// missing-rate fallback so aggregate totals can audit coverage.
type Conversion struct {
	Amount    decimal.Decimal
	From      models.Currency
	To        models.Currency
	Converted bool
	Reason    error
}

// Convert converts amount from one currency to another using the snapshot.
// Identity conversions return the amount untouched with no rounding drift.
// When no path exists the original amount is returned with Converted=false
// and Reason=ErrMissingRate.
func Convert(amount decimal.Decimal, from, to models.Currency, table RateTable) Conversion {
	if from == to {
		return Conversion{Amount: amount, From: from, To: to, Converted: true}
	}

	rate, ok := table.Rate(from, to)
	if !ok {
		return Conversion{Amount: amount, From: from, To: to, Converted: false, Reason: ErrMissingRate}
	}
	return Conversion{Amount: amount.Mul(rate), From: from, To: to, Converted: true}
}
