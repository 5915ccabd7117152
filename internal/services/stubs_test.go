package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"bankledger/internal/lifecycle"
	"bankledger/internal/models"
	"bankledger/internal/store"
	"bankledger/internal/userclient"
	"bankledger/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var errUnexpected = errors.New("unexpected store call")

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type auditCall struct {
	actorID, action, entityType, entityID string
}

type stubAuditStore struct {
	calls *[]auditCall
}

func (s stubAuditStore) Log(_ context.Context, _ store.Execer, actorID, action, entityType, entityID string, _ any) error {
	if s.calls != nil {
		*s.calls = append(*s.calls, auditCall{actorID, action, entityType, entityID})
	}
	return nil
}

type stubHub struct {
	calls []websocket.BalanceUpdate
}

func (s *stubHub) BroadcastBalance(_ string, update websocket.BalanceUpdate) {
	s.calls = append(s.calls, update)
}

type stubValidator struct {
	result userclient.Validation
	err    error
	calls  *int
}

func (s stubValidator) Validate(ctx context.Context, _ string) (userclient.Validation, error) {
	if s.calls != nil {
		*s.calls++
	}
	if s.err != nil {
		return userclient.Validation{}, s.err
	}
	return s.result, nil
}

func validFor(ownerID string) stubValidator {
	return stubValidator{result: userclient.Validation{Valid: true, Active: true, OwnerID: ownerID}}
}

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func testOptions(now time.Time) Options {
	return Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    fixedClock(now),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubAccountStore struct {
	createFn        func(ctx context.Context, tx store.Execer, account models.Account) error
	getByIDFn       func(ctx context.Context, accountID string) (models.Account, error)
	getByNumberFn   func(ctx context.Context, number string) (models.Account, error)
	getForUpdateFn  func(ctx context.Context, tx store.Getter, accountID string) (models.Account, error)
	listActiveFn    func(ctx context.Context, ownerID string) ([]models.Account, error)
	countFn         func(ctx context.Context, tx store.Getter, ownerID string, accountType models.AccountType) (int, error)
	numberExistsFn  func(ctx context.Context, tx store.Getter, number string) (bool, error)
	updateBalanceFn func(ctx context.Context, tx store.Execer, accountID string, balance decimal.Decimal) error
	updateStatusFn  func(ctx context.Context, tx store.Execer, accountID string, status lifecycle.AccountStatus) error
}

func (s stubAccountStore) Create(ctx context.Context, tx store.Execer, account models.Account) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, account)
}

func (s stubAccountStore) GetByID(ctx context.Context, accountID string) (models.Account, error) {
	if s.getByIDFn == nil {
		return models.Account{}, errUnexpected
	}
	return s.getByIDFn(ctx, accountID)
}

func (s stubAccountStore) GetByNumber(ctx context.Context, number string) (models.Account, error) {
	if s.getByNumberFn == nil {
		return models.Account{}, errUnexpected
	}
	return s.getByNumberFn(ctx, number)
}

func (s stubAccountStore) GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (models.Account, error) {
	if s.getForUpdateFn == nil {
		return models.Account{}, errUnexpected
	}
	return s.getForUpdateFn(ctx, tx, accountID)
}

func (s stubAccountStore) ListActiveByOwner(ctx context.Context, ownerID string) ([]models.Account, error) {
	if s.listActiveFn == nil {
		return nil, nil
	}
	return s.listActiveFn(ctx, ownerID)
}

func (s stubAccountStore) CountByOwnerAndType(ctx context.Context, tx store.Getter, ownerID string, accountType models.AccountType) (int, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx, tx, ownerID, accountType)
}

func (s stubAccountStore) NumberExists(ctx context.Context, tx store.Getter, number string) (bool, error) {
	if s.numberExistsFn == nil {
		return false, nil
	}
	return s.numberExistsFn(ctx, tx, number)
}

func (s stubAccountStore) UpdateBalance(ctx context.Context, tx store.Execer, accountID string, balance decimal.Decimal) error {
	if s.updateBalanceFn == nil {
		return nil
	}
	return s.updateBalanceFn(ctx, tx, accountID, balance)
}

func (s stubAccountStore) UpdateStatus(ctx context.Context, tx store.Execer, accountID string, status lifecycle.AccountStatus) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, tx, accountID, status)
}

type stubTransactionStore struct {
	createFn func(ctx context.Context, tx store.Execer, t models.Transaction) error
	listFn   func(ctx context.Context, accountID string, page store.Page) ([]models.Transaction, error)
	netFn    func(ctx context.Context, accountID string) (decimal.Decimal, error)
}

func (s stubTransactionStore) Create(ctx context.Context, tx store.Execer, t models.Transaction) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, t)
}

func (s stubTransactionStore) ListByAccount(ctx context.Context, accountID string, page store.Page) ([]models.Transaction, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, accountID, page)
}

func (s stubTransactionStore) ListByOwner(context.Context, string, store.Page) ([]models.Transaction, error) {
	return nil, nil
}

func (s stubTransactionStore) NetByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if s.netFn == nil {
		return decimal.Zero, nil
	}
	return s.netFn(ctx, accountID)
}

type stubCardStore struct {
	createFn         func(ctx context.Context, tx store.Execer, card models.Card) error
	getByIDFn        func(ctx context.Context, cardID string) (models.Card, error)
	getForUpdateFn   func(ctx context.Context, tx store.Getter, cardID string) (models.Card, error)
	listByOwnerFn    func(ctx context.Context, ownerID string) ([]models.Card, error)
	countFn          func(ctx context.Context, tx store.Getter, ownerID string) (int, error)
	createdSinceFn   func(ctx context.Context, tx store.Selecter, ownerID string, since time.Time) ([]models.Card, error)
	numberExistsFn   func(ctx context.Context, tx store.Getter, number string) (bool, error)
	updateBalancesFn func(ctx context.Context, tx store.Execer, cardID string, current, available decimal.Decimal) error
	updateLimitFn    func(ctx context.Context, tx store.Execer, cardID string, limit, available decimal.Decimal) error
	updateStatusFn   func(ctx context.Context, tx store.Execer, cardID string, status lifecycle.CardStatus) error
	deleteFn         func(ctx context.Context, tx store.Execer, cardID string) error
}

func (s stubCardStore) Create(ctx context.Context, tx store.Execer, card models.Card) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, card)
}

func (s stubCardStore) GetByID(ctx context.Context, cardID string) (models.Card, error) {
	if s.getByIDFn == nil {
		return models.Card{}, errUnexpected
	}
	return s.getByIDFn(ctx, cardID)
}

func (s stubCardStore) GetByNumber(context.Context, string) (models.Card, error) {
	return models.Card{}, errUnexpected
}

func (s stubCardStore) GetForUpdate(ctx context.Context, tx store.Getter, cardID string) (models.Card, error) {
	if s.getForUpdateFn == nil {
		return models.Card{}, errUnexpected
	}
	return s.getForUpdateFn(ctx, tx, cardID)
}

func (s stubCardStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Card, error) {
	if s.listByOwnerFn == nil {
		return nil, nil
	}
	return s.listByOwnerFn(ctx, ownerID)
}

func (s stubCardStore) CountByOwner(ctx context.Context, tx store.Getter, ownerID string) (int, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx, tx, ownerID)
}

func (s stubCardStore) ListCreatedSince(ctx context.Context, tx store.Selecter, ownerID string, since time.Time) ([]models.Card, error) {
	if s.createdSinceFn == nil {
		return nil, nil
	}
	return s.createdSinceFn(ctx, tx, ownerID, since)
}

func (s stubCardStore) NumberExists(ctx context.Context, tx store.Getter, number string) (bool, error) {
	if s.numberExistsFn == nil {
		return false, nil
	}
	return s.numberExistsFn(ctx, tx, number)
}

func (s stubCardStore) UpdateBalances(ctx context.Context, tx store.Execer, cardID string, current, available decimal.Decimal) error {
	if s.updateBalancesFn == nil {
		return nil
	}
	return s.updateBalancesFn(ctx, tx, cardID, current, available)
}

func (s stubCardStore) UpdateLimit(ctx context.Context, tx store.Execer, cardID string, limit, available decimal.Decimal) error {
	if s.updateLimitFn == nil {
		return nil
	}
	return s.updateLimitFn(ctx, tx, cardID, limit, available)
}

func (s stubCardStore) UpdateStatus(ctx context.Context, tx store.Execer, cardID string, status lifecycle.CardStatus) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, tx, cardID, status)
}

func (s stubCardStore) UpdateDetails(context.Context, store.Execer, string, string, int, int) error {
	return nil
}

func (s stubCardStore) Delete(ctx context.Context, tx store.Execer, cardID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, tx, cardID)
}

type stubCardTransactionStore struct {
	created *[]models.CardTransaction
}

func (s stubCardTransactionStore) Create(_ context.Context, _ store.Execer, t models.CardTransaction) error {
	if s.created != nil {
		*s.created = append(*s.created, t)
	}
	return nil
}

func (s stubCardTransactionStore) ListByCard(context.Context, string, store.Page) ([]models.CardTransaction, error) {
	return nil, nil
}

type stubLoanStore struct {
	createFn            func(ctx context.Context, tx store.Execer, loan models.Loan) error
	getByIDFn           func(ctx context.Context, loanID string) (models.Loan, error)
	getForUpdateFn      func(ctx context.Context, tx store.Getter, loanID string) (models.Loan, error)
	listByOwnerFn       func(ctx context.Context, ownerID string, status lifecycle.LoanStatus) ([]models.Loan, error)
	countFn             func(ctx context.Context, tx store.Getter, ownerID string, status lifecycle.LoanStatus) (int, error)
	updateOutstandingFn func(ctx context.Context, tx store.Execer, loanID string, outstanding decimal.Decimal, status lifecycle.LoanStatus) error
	updateTermsFn       func(ctx context.Context, tx store.Execer, loan models.Loan) error
	updateStatusFn      func(ctx context.Context, tx store.Execer, loanID string, status lifecycle.LoanStatus) error
	deleteFn            func(ctx context.Context, tx store.Execer, loanID string) error
}

func (s stubLoanStore) Create(ctx context.Context, tx store.Execer, loan models.Loan) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, loan)
}

func (s stubLoanStore) GetByID(ctx context.Context, loanID string) (models.Loan, error) {
	if s.getByIDFn == nil {
		return models.Loan{}, errUnexpected
	}
	return s.getByIDFn(ctx, loanID)
}

func (s stubLoanStore) GetForUpdate(ctx context.Context, tx store.Getter, loanID string) (models.Loan, error) {
	if s.getForUpdateFn == nil {
		return models.Loan{}, errUnexpected
	}
	return s.getForUpdateFn(ctx, tx, loanID)
}

func (s stubLoanStore) ListByOwner(ctx context.Context, ownerID string, status lifecycle.LoanStatus) ([]models.Loan, error) {
	if s.listByOwnerFn == nil {
		return nil, nil
	}
	return s.listByOwnerFn(ctx, ownerID, status)
}

func (s stubLoanStore) CountByOwnerAndStatus(ctx context.Context, tx store.Getter, ownerID string, status lifecycle.LoanStatus) (int, error) {
	if s.countFn == nil {
		return 0, nil
	}
	return s.countFn(ctx, tx, ownerID, status)
}

func (s stubLoanStore) UpdateOutstanding(ctx context.Context, tx store.Execer, loanID string, outstanding decimal.Decimal, status lifecycle.LoanStatus) error {
	if s.updateOutstandingFn == nil {
		return nil
	}
	return s.updateOutstandingFn(ctx, tx, loanID, outstanding, status)
}

func (s stubLoanStore) UpdateTerms(ctx context.Context, tx store.Execer, loan models.Loan) error {
	if s.updateTermsFn == nil {
		return nil
	}
	return s.updateTermsFn(ctx, tx, loan)
}

func (s stubLoanStore) UpdateStatus(ctx context.Context, tx store.Execer, loanID string, status lifecycle.LoanStatus) error {
	if s.updateStatusFn == nil {
		return nil
	}
	return s.updateStatusFn(ctx, tx, loanID, status)
}

func (s stubLoanStore) Delete(ctx context.Context, tx store.Execer, loanID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, tx, loanID)
}

type stubLoanPaymentStore struct {
	created *[]models.LoanPayment
}

func (s stubLoanPaymentStore) Create(_ context.Context, _ store.Execer, p models.LoanPayment) error {
	if s.created != nil {
		*s.created = append(*s.created, p)
	}
	return nil
}

func (s stubLoanPaymentStore) ListByLoan(context.Context, string) ([]models.LoanPayment, error) {
	return nil, nil
}
