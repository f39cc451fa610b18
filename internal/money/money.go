package money

import (
	"errors"
	"fmt"
)

// Default currency settings used when requests omit them.
const (
	DefaultCurrency  = "EUR"
	DefaultPrecision = 2
)

// ErrCurrencyMismatch indicates arithmetic across different currencies or
// precisions. This is a data-integrity violation and is never coerced.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is an exact monetary amount in integer minor units.
type Money struct {
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Precision int    `json:"precision"`
}

// New constructs a Money in the default currency.
func New(amount int64) Money {
	return Money{Amount: amount, Currency: DefaultCurrency, Precision: DefaultPrecision}
}

// Zero returns a zero amount in the default currency.
func Zero() Money {
	return New(0)
}

// SameUnit reports whether both amounts share currency and precision.
func (m Money) SameUnit(other Money) bool {
	return m.Currency == other.Currency && m.Precision == other.Precision
}

// Add returns m + other. Fails with ErrCurrencyMismatch on unit mismatch.
func (m Money) Add(other Money) (Money, error) {
	if !m.SameUnit(other) {
		return Money{}, fmt.Errorf("%w: %s/%d vs %s/%d", ErrCurrencyMismatch,
			m.Currency, m.Precision, other.Currency, other.Precision)
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency, Precision: m.Precision}, nil
}

// Sub returns m - other. Fails with ErrCurrencyMismatch on unit mismatch.
func (m Money) Sub(other Money) (Money, error) {
	if !m.SameUnit(other) {
		return Money{}, fmt.Errorf("%w: %s/%d vs %s/%d", ErrCurrencyMismatch,
			m.Currency, m.Precision, other.Currency, other.Precision)
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency, Precision: m.Precision}, nil
}

// MulInt returns m multiplied by an integer factor.
func (m Money) MulInt(factor int64) Money {
	return Money{Amount: m.Amount * factor, Currency: m.Currency, Precision: m.Precision}
}

// Neg returns the negated amount.
func (m Money) Neg() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency, Precision: m.Precision}
}

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool {
	return m.Amount < 0
}

// IsZero reports whether the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// LessThan reports m < other. Fails with ErrCurrencyMismatch on unit mismatch.
func (m Money) LessThan(other Money) (bool, error) {
	if !m.SameUnit(other) {
		return false, fmt.Errorf("%w: %s/%d vs %s/%d", ErrCurrencyMismatch,
			m.Currency, m.Precision, other.Currency, other.Precision)
	}
	return m.Amount < other.Amount, nil
}

// Sum folds amounts into a single total, verifying a uniform unit. An
// empty slice yields the default-currency zero.
func Sum(amounts []Money) (Money, error) {
	if len(amounts) == 0 {
		return Zero(), nil
	}
	total := amounts[0]
	for _, a := range amounts[1:] {
		var err error
		total, err = total.Add(a)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
