package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthKey(t *testing.T) {
	key, err := MonthKey(time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2025-03", key)

	key, err = MonthKey(time.Date(2024, time.December, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2024-12", key)
}

func TestQuarterKey(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "2025-Q1"},
		{time.March, "2025-Q1"},
		{time.April, "2025-Q2"},
		{time.June, "2025-Q2"},
		{time.July, "2025-Q3"},
		{time.October, "2025-Q4"},
		{time.December, "2025-Q4"},
	}

	for _, tt := range tests {
		key, err := QuarterKey(time.Date(2025, tt.month, 15, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, tt.want, key)
	}
}

func TestYearKey(t *testing.T) {
	key, err := YearKey(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2025", key)
}

func TestKeysRejectInvalidDates(t *testing.T) {
	var zero time.Time

	_, err := MonthKey(zero)
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = QuarterKey(zero)
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = YearKey(zero)
	assert.ErrorIs(t, err, ErrInvalidDate)
}
