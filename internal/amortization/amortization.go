// Package amortization computes equated monthly installments and the
// principal/interest split of a loan over its tenure.
package amortization

import (
	"bankledger/internal/apperrors"

	"github.com/shopspring/decimal"
)

const (
	// monthlyRateScale matches the fractional digits kept for the monthly rate.
	monthlyRateScale int32 = 10
	// factorScale bounds the growth of (1+r)^n while compounding.
	factorScale int32 = 28
	moneyScale  int32 = 2
)

var (
	one     = decimal.NewFromInt(1)
	monthly = decimal.NewFromInt(1200)
)

type Installment struct {
	Month     int             `json:"month"`
	Payment   decimal.Decimal `json:"payment"`
	Interest  decimal.Decimal `json:"interest"`
	Principal decimal.Decimal `json:"principal"`
	Remaining decimal.Decimal `json:"remaining"`
}

// ComputeEMI returns the monthly installment rounded half-up to cents.
// A zero rate splits the principal evenly across the tenure.
func ComputeEMI(principal, annualRatePct decimal.Decimal, tenureMonths int) (decimal.Decimal, error) {
	if err := validate(principal, annualRatePct, tenureMonths); err != nil {
		return decimal.Zero, err
	}
	months := decimal.NewFromInt(int64(tenureMonths))
	if annualRatePct.IsZero() {
		return principal.DivRound(months, moneyScale), nil
	}
	rate := MonthlyRate(annualRatePct)
	factor := compound(one.Add(rate), tenureMonths)
	numerator := principal.Mul(rate).Mul(factor)
	return numerator.DivRound(factor.Sub(one), moneyScale), nil
}

// MonthlyRate converts an annual percentage to a monthly fraction.
func MonthlyRate(annualRatePct decimal.Decimal) decimal.Decimal {
	return annualRatePct.DivRound(monthly, monthlyRateScale)
}

// Schedule splits each installment into interest and principal. The final
// installment absorbs the rounding remainder so the loan closes at zero.
func Schedule(principal, annualRatePct decimal.Decimal, tenureMonths int) ([]Installment, error) {
	emi, err := ComputeEMI(principal, annualRatePct, tenureMonths)
	if err != nil {
		return nil, err
	}
	rate := MonthlyRate(annualRatePct)
	remaining := principal
	schedule := make([]Installment, 0, tenureMonths)
	for month := 1; month <= tenureMonths; month++ {
		interest := remaining.Mul(rate).Round(moneyScale)
		principalPart := emi.Sub(interest)
		if month == tenureMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
		}
		remaining = remaining.Sub(principalPart)
		schedule = append(schedule, Installment{
			Month:     month,
			Payment:   principalPart.Add(interest),
			Interest:  interest,
			Principal: principalPart,
			Remaining: remaining,
		})
		if remaining.IsZero() {
			break
		}
	}
	return schedule, nil
}

// ApplyPayment reduces outstanding by amount. It reports paid when the
// outstanding amount reaches exactly zero and refuses overpayment.
func ApplyPayment(outstanding, amount decimal.Decimal) (decimal.Decimal, bool, error) {
	if !amount.IsPositive() {
		return outstanding, false, apperrors.Wrap(apperrors.ErrInvalidArgument, "payment amount must be positive")
	}
	if amount.GreaterThan(outstanding) {
		return outstanding, false, apperrors.Wrap(apperrors.ErrInsufficientBalance, "payment %s exceeds outstanding %s", amount.StringFixed(moneyScale), outstanding.StringFixed(moneyScale))
	}
	next := outstanding.Sub(amount)
	return next, next.IsZero(), nil
}

func validate(principal, annualRatePct decimal.Decimal, tenureMonths int) error {
	if !principal.IsPositive() {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, "principal must be positive")
	}
	if annualRatePct.IsNegative() {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, "interest rate cannot be negative")
	}
	if tenureMonths <= 0 {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, "tenure must be at least one month")
	}
	return nil
}

func compound(base decimal.Decimal, periods int) decimal.Decimal {
	result := one
	for i := 0; i < periods; i++ {
		result = result.Mul(base).Truncate(factorScale)
	}
	return result
}
