package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Currency is an ISO-4217-like currency code (e.g. "USD", "EUR").
type Currency string

// Common currencies used throughout the application
const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyCHF Currency = "CHF"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

// ErrInvalidCurrency is returned when a currency code fails validation
var ErrInvalidCurrency = errors.New("invalid currency code")

// IsValid reports whether the code is three uppercase ASCII letters.
// Validation happens at construction so bad codes are rejected before
// they reach conversion arithmetic.
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for i := 0; i < len(c); i++ {
		if c[i] < 'A' || c[i] > 'Z' {
			return false
		}
	}
	return true
}

// ParseCurrency validates a raw currency code
func ParseCurrency(code string) (Currency, error) {
	c := Currency(code)
	if !c.IsValid() {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

func (c Currency) String() string {
	return string(c)
}

// JSON is a custom type for handling JSON data in GORM
type JSON map[string]interface{}

// Value implements the driver.Valuer interface for JSON
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSON
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	var result JSON
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*j = result
	return nil
}
