// Package ledger holds the balance arithmetic for accounts and cards. It
// computes the next state only; persisting the new balance together with its
// transaction record is the caller's job.
package ledger

import (
	"bankledger/internal/apperrors"
	"bankledger/internal/models"
	"bankledger/internal/money"

	"github.com/shopspring/decimal"
)

// CheckAmount requires a strictly positive amount with at most two decimals.
func CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, "amount must be positive")
	}
	if !money.HasCents(amount) {
		return apperrors.Wrap(apperrors.ErrInvalidArgument, "amount has more than two decimal places")
	}
	return nil
}

// ApplyAccount returns the balance after a CREDIT or DEBIT. A debit that would
// take the balance below zero fails and leaves balance untouched.
func ApplyAccount(balance decimal.Decimal, kind models.TransactionKind, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := CheckAmount(amount); err != nil {
		return balance, err
	}
	switch kind {
	case models.Credit:
		return balance.Add(amount), nil
	case models.Debit:
		next := balance.Sub(amount)
		if next.IsNegative() {
			return balance, apperrors.Wrap(apperrors.ErrInsufficientBalance, "balance %s cannot cover %s", money.Format(balance), money.Format(amount))
		}
		return next, nil
	}
	return balance, apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown transaction kind %q", kind)
}

// RequireZero guards account closure.
func RequireZero(balance decimal.Decimal) error {
	if !balance.IsZero() {
		return apperrors.Wrap(apperrors.ErrInsufficientBalance, "account balance is %s, must be zero to close", money.Format(balance))
	}
	return nil
}

type CardBalances struct {
	CreditLimit decimal.Decimal
	Current     decimal.Decimal
	Available   decimal.Decimal
}

func CardBalancesOf(card models.Card) CardBalances {
	return CardBalances{
		CreditLimit: card.CreditLimit,
		Current:     card.CurrentBalance,
		Available:   card.AvailableBalance,
	}
}

// OverLimit reports an available balance above the credit limit, which a
// repayment larger than the current balance can produce.
func (b CardBalances) OverLimit() bool {
	return b.Available.GreaterThan(b.CreditLimit)
}

// ApplyCard applies a purchase (DEBIT) or repayment (CREDIT). Repayments floor
// the current balance at zero but always add the full amount to available.
func ApplyCard(b CardBalances, op models.TransactionKind, amount decimal.Decimal) (CardBalances, error) {
	if err := CheckAmount(amount); err != nil {
		return b, err
	}
	switch op {
	case models.Debit:
		if b.Available.LessThan(amount) {
			return b, apperrors.Wrap(apperrors.ErrInsufficientBalance, "available balance %s cannot cover %s", money.Format(b.Available), money.Format(amount))
		}
		return CardBalances{
			CreditLimit: b.CreditLimit,
			Current:     b.Current.Add(amount),
			Available:   b.Available.Sub(amount),
		}, nil
	case models.Credit:
		current := b.Current.Sub(amount)
		if current.IsNegative() {
			current = decimal.Zero
		}
		return CardBalances{
			CreditLimit: b.CreditLimit,
			Current:     current,
			Available:   b.Available.Add(amount),
		}, nil
	}
	return b, apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown card operation %q", op)
}

func IncreaseLimit(b CardBalances, amount decimal.Decimal) (CardBalances, error) {
	if err := CheckAmount(amount); err != nil {
		return b, err
	}
	return CardBalances{
		CreditLimit: b.CreditLimit.Add(amount),
		Current:     b.Current,
		Available:   b.Available.Add(amount),
	}, nil
}

// DecreaseLimit refuses to put the limit below the current balance.
func DecreaseLimit(b CardBalances, amount decimal.Decimal) (CardBalances, error) {
	if err := CheckAmount(amount); err != nil {
		return b, err
	}
	limit := b.CreditLimit.Sub(amount)
	if limit.LessThan(b.Current) {
		return b, apperrors.Wrap(apperrors.ErrInvalidArgument, "limit %s would fall below current balance %s", money.Format(limit), money.Format(b.Current))
	}
	return CardBalances{
		CreditLimit: limit,
		Current:     b.Current,
		Available:   b.Available.Sub(amount),
	}, nil
}
