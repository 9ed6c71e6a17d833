package exchange

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subtrackr/backend/internal/models"
)

func usdTable() RateTable {
	return NewRateTable(models.CurrencyUSD, map[models.Currency]decimal.Decimal{
		models.CurrencyEUR: decimal.RequireFromString("0.92"),
		models.CurrencyGBP: decimal.RequireFromString("0.79"),
		models.CurrencyJPY: decimal.RequireFromString("149.50"),
	}, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
}

func TestConvertIdentity(t *testing.T) {
	amount := decimal.RequireFromString("123.45")

	for _, currency := range []models.Currency{models.CurrencyUSD, models.CurrencyEUR, models.Currency("XXX")} {
		got := Convert(amount, currency, currency, usdTable())
		assert.True(t, got.Converted)
		assert.True(t, amount.Equal(got.Amount), "identity conversion must not touch the amount")
	}
}

func TestConvertDirectFromBase(t *testing.T) {
	got := Convert(decimal.NewFromInt(100), models.CurrencyUSD, models.CurrencyEUR, usdTable())
	require.True(t, got.Converted)
	assert.True(t, decimal.RequireFromString("92").Equal(got.Amount), "got %s", got.Amount)
}

func TestConvertIntoBase(t *testing.T) {
	got := Convert(decimal.NewFromInt(92), models.CurrencyEUR, models.CurrencyUSD, usdTable())
	require.True(t, got.Converted)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Amount), "got %s", got.Amount)
}

func TestConvertCrossRate(t *testing.T) {
	// EUR -> GBP composes through the USD base: 0.79 / 0.92.
	got := Convert(decimal.NewFromInt(92), models.CurrencyEUR, models.CurrencyGBP, usdTable())
	require.True(t, got.Converted)
	assert.True(t, decimal.NewFromInt(79).Equal(got.Amount), "got %s", got.Amount)
}

func TestConvertInverseConsistency(t *testing.T) {
	table := usdTable()
	amount := decimal.RequireFromString("57.31")

	there := Convert(amount, models.CurrencyUSD, models.CurrencyJPY, table)
	require.True(t, there.Converted)
	back := Convert(there.Amount, models.CurrencyJPY, models.CurrencyUSD, table)
	require.True(t, back.Converted)

	diff := back.Amount.Sub(amount).Abs()
	assert.True(t, diff.LessThan(decimal.RequireFromString("0.0001")), "round trip drifted by %s", diff)
}

func TestConvertMissingRateFallsBack(t *testing.T) {
	amount := decimal.NewFromInt(500)
	got := Convert(amount, models.Currency("NOK"), models.CurrencyEUR, usdTable())

	assert.False(t, got.Converted)
	assert.ErrorIs(t, got.Reason, ErrMissingRate)
	assert.True(t, amount.Equal(got.Amount), "fallback must preserve the original amount")
}

func TestRateTableBaseAlwaysPresent(t *testing.T) {
	table := NewRateTable(models.CurrencyEUR, nil, time.Now())
	rate, ok := table.Rate(models.CurrencyEUR, models.CurrencyEUR)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
}
