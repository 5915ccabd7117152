package handlers

import (
	"context"

	"bankledger/internal/amortization"
	"bankledger/internal/models"
	"bankledger/internal/services"
	"bankledger/internal/store"

	"github.com/shopspring/decimal"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, user models.User) error
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByUsername(ctx context.Context, username string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	SetActive(ctx context.Context, tx store.Execer, userID string, active bool) (bool, error)
}

type AdminStore interface {
	Lookup(ctx context.Context, userID string) (store.Admin, bool, error)
	CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error
	HasAnyAdmin(ctx context.Context, tx store.Getter) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID string, data any) error
	List(ctx context.Context, entityType, entityID string, page store.Page) ([]store.AuditEntry, error)
}

type AccountService interface {
	CreateAccount(ctx context.Context, ownerID string, accountType models.AccountType, description string) (models.Account, error)
	AddTransaction(ctx context.Context, req services.AddTransactionRequest) (models.Account, models.Transaction, error)
	CloseAccount(ctx context.Context, accountID, ownerID string) (models.Account, error)
	Get(ctx context.Context, accountID, ownerID string) (models.Account, error)
	GetByNumber(ctx context.Context, number, ownerID string) (models.Account, error)
	List(ctx context.Context, ownerID string) ([]models.Account, error)
	ListTransactions(ctx context.Context, accountID, ownerID string, page store.Page) ([]models.Transaction, error)
	ListOwnerTransactions(ctx context.Context, ownerID string, page store.Page) ([]models.Transaction, error)
	Reconcile(ctx context.Context, accountID, ownerID string) (services.Reconciliation, error)
}

type CardService interface {
	CreateCard(ctx context.Context, req services.CreateCardRequest) (models.Card, bool, error)
	UpdateBalance(ctx context.Context, op services.CardOperation) (models.Card, models.CardTransaction, error)
	IncreaseLimit(ctx context.Context, cardID, ownerID string, amount decimal.Decimal) (models.Card, error)
	DecreaseLimit(ctx context.Context, cardID, ownerID string, amount decimal.Decimal) (models.Card, error)
	Block(ctx context.Context, cardID, ownerID string) (models.Card, error)
	Unblock(ctx context.Context, cardID, ownerID string) (models.Card, error)
	UpdateStatus(ctx context.Context, cardID, ownerID, raw string) (models.Card, error)
	IsExpired(ctx context.Context, cardID, ownerID string) (bool, error)
	UpdateDetails(ctx context.Context, cardID, ownerID, holderName string, expiryMonth, expiryYear int) (models.Card, error)
	Delete(ctx context.Context, cardID, ownerID string) error
	Get(ctx context.Context, cardID, ownerID string) (models.Card, error)
	GetByNumber(ctx context.Context, number, ownerID string) (models.Card, error)
	List(ctx context.Context, ownerID string) ([]models.Card, error)
	ListTransactions(ctx context.Context, cardID, ownerID string, page store.Page) ([]models.CardTransaction, error)
}

type LoanService interface {
	CreateLoan(ctx context.Context, req services.CreateLoanRequest) (models.Loan, error)
	MakePayment(ctx context.Context, loanID, ownerID string, amount decimal.Decimal) (models.Loan, models.LoanPayment, error)
	UpdateTerms(ctx context.Context, loanID, ownerID string, terms services.LoanTerms) (models.Loan, error)
	UpdateStatus(ctx context.Context, loanID, actorID, raw string) (models.Loan, error)
	Delete(ctx context.Context, loanID, ownerID string) error
	Get(ctx context.Context, loanID, ownerID string) (models.Loan, error)
	List(ctx context.Context, ownerID string) ([]models.Loan, error)
	ListActive(ctx context.Context, ownerID string) ([]models.Loan, error)
	ListPayments(ctx context.Context, loanID, ownerID string) ([]models.LoanPayment, error)
	Schedule(ctx context.Context, loanID, ownerID string) ([]amortization.Installment, error)
}
