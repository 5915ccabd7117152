package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const Scale int32 = 2

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
)

// Parse reads a plain decimal amount with at most two fractional digits.
func Parse(input string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || strings.ContainsAny(trimmed, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.Exponent() < -Scale && !amount.Equal(amount.Round(Scale)) {
		return decimal.Zero, ErrTooManyDecimals
	}
	return amount.Round(Scale), nil
}

// ParsePositive is Parse restricted to amounts greater than zero.
func ParsePositive(input string) (decimal.Decimal, error) {
	amount, err := Parse(input)
	if err != nil {
		return decimal.Zero, err
	}
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

func Format(value decimal.Decimal) string {
	return value.StringFixed(Scale)
}

// HasCents reports whether value fits in two fractional digits.
func HasCents(value decimal.Decimal) bool {
	return value.Equal(value.Round(Scale))
}
