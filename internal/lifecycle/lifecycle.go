// Package lifecycle holds the persisted states of accounts, cards and loans
// and the transitions allowed between them.
package lifecycle

import (
	"strings"
	"time"

	"bankledger/internal/apperrors"
)

type AccountStatus string

const (
	AccountActive AccountStatus = "ACTIVE"
	AccountClosed AccountStatus = "CLOSED"
)

type CardStatus string

const (
	CardActive  CardStatus = "ACTIVE"
	CardBlocked CardStatus = "BLOCKED"
	// CardExpired is only ever computed from the expiry date; it is never stored.
	CardExpired CardStatus = "EXPIRED"
)

type LoanStatus string

const (
	LoanActive  LoanStatus = "ACTIVE"
	LoanPaid    LoanStatus = "PAID"
	LoanDefault LoanStatus = "DEFAULT"
)

var accountTransitions = map[AccountStatus][]AccountStatus{
	AccountActive: {AccountClosed},
}

var cardTransitions = map[CardStatus][]CardStatus{
	CardActive:  {CardBlocked},
	CardBlocked: {CardActive},
}

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanActive: {LoanPaid, LoanDefault},
}

func ParseAccountStatus(raw string) (AccountStatus, error) {
	switch s := AccountStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case AccountActive, AccountClosed:
		return s, nil
	}
	return "", apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown account status %q", raw)
}

func ParseCardStatus(raw string) (CardStatus, error) {
	switch s := CardStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case CardActive, CardBlocked, CardExpired:
		return s, nil
	}
	return "", apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown card status %q", raw)
}

func ParseLoanStatus(raw string) (LoanStatus, error) {
	switch s := LoanStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case LoanActive, LoanPaid, LoanDefault:
		return s, nil
	}
	return "", apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown loan status %q", raw)
}

func (s AccountStatus) CanTransition(to AccountStatus) bool {
	return contains(accountTransitions[s], to)
}

func (s CardStatus) CanTransition(to CardStatus) bool {
	return contains(cardTransitions[s], to)
}

func (s LoanStatus) CanTransition(to LoanStatus) bool {
	return contains(loanTransitions[s], to)
}

func (s LoanStatus) Terminal() bool {
	return len(loanTransitions[s]) == 0
}

// CheckAccount returns ErrInvalidState when from -> to is not allowed.
func CheckAccount(from, to AccountStatus) error {
	if !from.CanTransition(to) {
		return apperrors.Wrap(apperrors.ErrInvalidState, "account cannot move from %s to %s", from, to)
	}
	return nil
}

func CheckCard(from, to CardStatus) error {
	if to == CardExpired {
		return apperrors.Wrap(apperrors.ErrInvalidState, "card expiry is derived from the expiry date")
	}
	if !from.CanTransition(to) {
		return apperrors.Wrap(apperrors.ErrInvalidState, "card cannot move from %s to %s", from, to)
	}
	return nil
}

func CheckLoan(from, to LoanStatus) error {
	if !from.CanTransition(to) {
		return apperrors.Wrap(apperrors.ErrInvalidState, "loan cannot move from %s to %s", from, to)
	}
	return nil
}

// Expired reports whether now is strictly past the card's expiry month.
func Expired(now time.Time, expiryMonth, expiryYear int) bool {
	year, month := now.Year(), int(now.Month())
	return year > expiryYear || (year == expiryYear && month > expiryMonth)
}

// EffectiveCardStatus overlays the derived EXPIRED state on a stored status.
func EffectiveCardStatus(stored CardStatus, now time.Time, expiryMonth, expiryYear int) CardStatus {
	if Expired(now, expiryMonth, expiryYear) {
		return CardExpired
	}
	return stored
}

func contains[T comparable](values []T, target T) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
