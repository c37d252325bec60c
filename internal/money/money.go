// Package money implements an immutable, currency-tagged amount rounded to
// two decimal places.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/MrJamesThe3rd/ledger/internal/apperror"
)

const (
	DefaultCurrency = "USD"
	scale           = 2
	domain          = "MONEY"
)

var (
	ErrInvalidAmount      = apperror.New(apperror.KindInvalidInput, domain, "INVALID_AMOUNT", "Amount is required")
	ErrInvalidCurrency    = apperror.New(apperror.KindInvalidInput, domain, "INVALID_CURRENCY", "Invalid currency code")
	ErrCurrencyMismatch   = apperror.New(apperror.KindInvalidInput, domain, "CURRENCY_MISMATCH", "Cannot operate on different currencies")
	ErrNegativeResult     = apperror.New(apperror.KindInvalidInput, domain, "NEGATIVE_RESULT", "Result cannot be negative")
	ErrNegativeMultiplier = apperror.New(apperror.KindInvalidInput, domain, "NEGATIVE_MULTIPLIER", "Multiplier cannot be negative")
)

type Money struct {
	amount   decimal.Decimal
	currency string
}

// New rounds amount half-up to two decimals. An empty currency means USD.
func New(amount decimal.Decimal, code string) (Money, error) {
	cur, err := normalizeCurrency(code)
	if err != nil {
		return Money{}, err
	}

	return Money{amount: amount.Round(scale), currency: cur}, nil
}

// Parse builds a Money from its decimal string form.
func Parse(amount, code string) (Money, error) {
	if amount == "" {
		return Money{}, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, ErrInvalidAmount.Withf("Invalid amount %q", amount)
	}

	return New(d, code)
}

func MustNew(amount decimal.Decimal, code string) Money {
	m, err := New(amount, code)
	if err != nil {
		panic(err)
	}

	return m
}

func MustParse(amount, code string) Money {
	m, err := Parse(amount, code)
	if err != nil {
		panic(err)
	}

	return m
}

func Zero(code string) (Money, error) {
	return New(decimal.Zero, code)
}

func normalizeCurrency(code string) (string, error) {
	if code == "" {
		return DefaultCurrency, nil
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", ErrInvalidCurrency.Withf("Invalid currency code %q", code)
	}

	return unit.String(), nil
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }

func (m Money) Add(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}

	return Money{amount: m.amount.Add(other.amount).Round(scale), currency: m.currency}, nil
}

func (m Money) Subtract(other Money) (Money, error) {
	if err := m.sameCurrency(other); err != nil {
		return Money{}, err
	}

	result := m.amount.Sub(other.amount).Round(scale)
	if result.IsNegative() {
		return Money{}, ErrNegativeResult.Withf("Cannot subtract %s from %s", other, m)
	}

	return Money{amount: result, currency: m.currency}, nil
}

func (m Money) Multiply(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, ErrNegativeMultiplier
	}

	return Money{amount: m.amount.Mul(factor).Round(scale), currency: m.currency}, nil
}

// Compare returns -1, 0 or 1. Amounts in different currencies are not comparable.
func (m Money) Compare(other Money) (int, error) {
	if err := m.sameCurrency(other); err != nil {
		return 0, err
	}

	return m.amount.Cmp(other.amount), nil
}

func (m Money) IsGreaterThan(other Money) bool {
	c, err := m.Compare(other)
	return err == nil && c > 0
}

func (m Money) IsLessThan(other Money) bool {
	c, err := m.Compare(other)
	return err == nil && c < 0
}

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(scale), m.currency)
}

func (m Money) sameCurrency(other Money) error {
	if m.currency != other.currency {
		return ErrCurrencyMismatch.Withf("Cannot operate on %s and %s", m.currency, other.currency)
	}

	return nil
}
