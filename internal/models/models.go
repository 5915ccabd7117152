package models

import (
	"strings"
	"time"

	"bankledger/internal/lifecycle"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
)

type CardType string

const (
	CardCredit CardType = "CREDIT"
	CardDebit  CardType = "DEBIT"
)

// TransactionKind is the direction of a ledger movement. For cards DEBIT is a
// purchase and CREDIT a repayment.
type TransactionKind string

const (
	Debit  TransactionKind = "DEBIT"
	Credit TransactionKind = "CREDIT"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type Account struct {
	ID        string                  `db:"id" json:"id"`
	OwnerID   string                  `db:"owner_id" json:"owner_id"`
	Number    string                  `db:"number" json:"number"`
	Type      AccountType             `db:"type" json:"type"`
	Balance   decimal.Decimal         `db:"balance" json:"balance"`
	Status    lifecycle.AccountStatus `db:"status" json:"status"`
	CreatedAt time.Time               `db:"created_at" json:"created_at"`
}

type Transaction struct {
	ID          string          `db:"id" json:"id"`
	AccountID   string          `db:"account_id" json:"account_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Kind        TransactionKind `db:"kind" json:"kind"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type Card struct {
	ID               string               `db:"id" json:"id"`
	OwnerID          string               `db:"owner_id" json:"owner_id"`
	Number           string               `db:"number" json:"number"`
	HolderName       string               `db:"holder_name" json:"holder_name"`
	ExpiryMonth      int                  `db:"expiry_month" json:"expiry_month"`
	ExpiryYear       int                  `db:"expiry_year" json:"expiry_year"`
	Type             CardType             `db:"type" json:"type"`
	Status           lifecycle.CardStatus `db:"status" json:"status"`
	CreditLimit      decimal.Decimal      `db:"credit_limit" json:"credit_limit"`
	CurrentBalance   decimal.Decimal      `db:"current_balance" json:"current_balance"`
	AvailableBalance decimal.Decimal      `db:"available_balance" json:"available_balance"`
	CreatedAt        time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time            `db:"updated_at" json:"updated_at"`
}

type CardTransaction struct {
	ID          string          `db:"id" json:"id"`
	CardID      string          `db:"card_id" json:"card_id"`
	Kind        TransactionKind `db:"kind" json:"kind"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Merchant    string          `db:"merchant" json:"merchant"`
	Description string          `db:"description" json:"description"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type Loan struct {
	ID                string               `db:"id" json:"id"`
	OwnerID           string               `db:"owner_id" json:"owner_id"`
	Principal         decimal.Decimal      `db:"principal" json:"principal"`
	AnnualRatePct     decimal.Decimal      `db:"annual_rate_pct" json:"annual_rate_pct"`
	TenureMonths      int                  `db:"tenure_months" json:"tenure_months"`
	MonthlyEMI        decimal.Decimal      `db:"monthly_emi" json:"monthly_emi"`
	OutstandingAmount decimal.Decimal      `db:"outstanding_amount" json:"outstanding_amount"`
	Status            lifecycle.LoanStatus `db:"status" json:"status"`
	CreatedAt         time.Time            `db:"created_at" json:"created_at"`
}

type LoanPayment struct {
	ID        string          `db:"id" json:"id"`
	LoanID    string          `db:"loan_id" json:"loan_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

func ParseAccountType(raw string) (AccountType, bool) {
	switch t := AccountType(normalize(raw)); t {
	case AccountChecking, AccountSavings:
		return t, true
	}
	return "", false
}

func ParseCardType(raw string) (CardType, bool) {
	switch t := CardType(normalize(raw)); t {
	case CardCredit, CardDebit:
		return t, true
	}
	return "", false
}

func ParseTransactionKind(raw string) (TransactionKind, bool) {
	switch k := TransactionKind(normalize(raw)); k {
	case Debit, Credit:
		return k, true
	}
	return "", false
}

func normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
