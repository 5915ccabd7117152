package handlers

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bankledger/internal/auth"
	"bankledger/internal/config"
	"bankledger/internal/models"
	"bankledger/internal/services"
	"bankledger/internal/store"
	"bankledger/internal/websocket"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const testSecret = "secret"

type fakeTxRunner struct {
	err error
}

func (f fakeTxRunner) WithTx(_ context.Context, fn func(*sqlx.Tx) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn        func(ctx context.Context, tx store.Execer, user models.User) error
	getByEmailFn    func(ctx context.Context, email string) (models.User, error)
	getByUsernameFn func(ctx context.Context, username string) (models.User, error)
	getByIDFn       func(ctx context.Context, userID string) (models.User, error)
	setActiveFn     func(ctx context.Context, tx store.Execer, userID string, active bool) (bool, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, user models.User) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, user)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	if s.getByUsernameFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) SetActive(ctx context.Context, tx store.Execer, userID string, active bool) (bool, error) {
	if s.setActiveFn == nil {
		return true, nil
	}
	return s.setActiveFn(ctx, tx, userID, active)
}

type stubAdminStore struct {
	admins        map[string]store.Admin
	createAdminFn func(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error
	grantRoleFn   func(ctx context.Context, tx store.Execer, adminUserID, role string) error
	hasAnyAdmin   bool
}

func (s stubAdminStore) Lookup(_ context.Context, userID string) (store.Admin, bool, error) {
	admin, ok := s.admins[userID]
	return admin, ok, nil
}

func (s stubAdminStore) CreateAdmin(ctx context.Context, tx store.Execer, userID string, isSuper bool, createdBy *string) error {
	if s.createAdminFn == nil {
		return nil
	}
	return s.createAdminFn(ctx, tx, userID, isSuper, createdBy)
}

func (s stubAdminStore) GrantRole(ctx context.Context, tx store.Execer, adminUserID, role string) error {
	if s.grantRoleFn == nil {
		return nil
	}
	return s.grantRoleFn(ctx, tx, adminUserID, role)
}

func (s stubAdminStore) HasAnyAdmin(context.Context, store.Getter) (bool, error) {
	return s.hasAnyAdmin, nil
}

type stubAuditStore struct {
	actions *[]string
	listFn  func(ctx context.Context, entityType, entityID string, page store.Page) ([]store.AuditEntry, error)
}

func (s stubAuditStore) Log(_ context.Context, _ store.Execer, _, action, _, _ string, _ any) error {
	if s.actions != nil {
		*s.actions = append(*s.actions, action)
	}
	return nil
}

func (s stubAuditStore) List(ctx context.Context, entityType, entityID string, page store.Page) ([]store.AuditEntry, error) {
	if s.listFn == nil {
		return []store.AuditEntry{}, nil
	}
	return s.listFn(ctx, entityType, entityID, page)
}

// The service stubs embed the interface so tests only spell out the methods
// they exercise.

type stubAccountService struct {
	AccountService
	createFn         func(ctx context.Context, ownerID string, accountType models.AccountType, description string) (models.Account, error)
	addTransactionFn func(ctx context.Context, req services.AddTransactionRequest) (models.Account, models.Transaction, error)
	listFn           func(ctx context.Context, ownerID string) ([]models.Account, error)
	reconcileFn      func(ctx context.Context, accountID, ownerID string) (services.Reconciliation, error)
}

func (s stubAccountService) CreateAccount(ctx context.Context, ownerID string, accountType models.AccountType, description string) (models.Account, error) {
	return s.createFn(ctx, ownerID, accountType, description)
}

func (s stubAccountService) AddTransaction(ctx context.Context, req services.AddTransactionRequest) (models.Account, models.Transaction, error) {
	return s.addTransactionFn(ctx, req)
}

func (s stubAccountService) List(ctx context.Context, ownerID string) ([]models.Account, error) {
	return s.listFn(ctx, ownerID)
}

func (s stubAccountService) Reconcile(ctx context.Context, accountID, ownerID string) (services.Reconciliation, error) {
	return s.reconcileFn(ctx, accountID, ownerID)
}

type stubCardService struct {
	CardService
	createFn        func(ctx context.Context, req services.CreateCardRequest) (models.Card, bool, error)
	increaseLimitFn func(ctx context.Context, cardID, ownerID string, amount decimal.Decimal) (models.Card, error)
	deleteFn        func(ctx context.Context, cardID, ownerID string) error
}

func (s stubCardService) CreateCard(ctx context.Context, req services.CreateCardRequest) (models.Card, bool, error) {
	return s.createFn(ctx, req)
}

func (s stubCardService) IncreaseLimit(ctx context.Context, cardID, ownerID string, amount decimal.Decimal) (models.Card, error) {
	return s.increaseLimitFn(ctx, cardID, ownerID, amount)
}

func (s stubCardService) Delete(ctx context.Context, cardID, ownerID string) error {
	return s.deleteFn(ctx, cardID, ownerID)
}

type stubLoanService struct {
	LoanService
	createFn       func(ctx context.Context, req services.CreateLoanRequest) (models.Loan, error)
	listFn         func(ctx context.Context, ownerID string) ([]models.Loan, error)
	listActiveFn   func(ctx context.Context, ownerID string) ([]models.Loan, error)
	updateStatusFn func(ctx context.Context, loanID, actorID, raw string) (models.Loan, error)
}

func (s stubLoanService) CreateLoan(ctx context.Context, req services.CreateLoanRequest) (models.Loan, error) {
	return s.createFn(ctx, req)
}

func (s stubLoanService) List(ctx context.Context, ownerID string) ([]models.Loan, error) {
	return s.listFn(ctx, ownerID)
}

func (s stubLoanService) ListActive(ctx context.Context, ownerID string) ([]models.Loan, error) {
	return s.listActiveFn(ctx, ownerID)
}

func (s stubLoanService) UpdateStatus(ctx context.Context, loanID, actorID, raw string) (models.Loan, error) {
	return s.updateStatusFn(ctx, loanID, actorID, raw)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestHandler fills any collaborator left zero in deps with an empty stub.
func newTestHandler(deps Deps) *Handler {
	if deps.TxRunner == nil {
		deps.TxRunner = fakeTxRunner{}
	}
	if deps.Users == nil {
		deps.Users = stubUserStore{}
	}
	if deps.Admins == nil {
		deps.Admins = stubAdminStore{}
	}
	if deps.Audit == nil {
		deps.Audit = stubAuditStore{}
	}
	if deps.Accounts == nil {
		deps.Accounts = stubAccountService{}
	}
	if deps.Cards == nil {
		deps.Cards = stubCardService{}
	}
	if deps.Loans == nil {
		deps.Loans = stubLoanService{}
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub(discardLogger())
	}
	deps.Logger = discardLogger()
	return New(config.Config{
		JWTSecret:      testSecret,
		TokenTTL:       time.Hour,
		AllowedOrigins: []string{"*"},
	}, deps)
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	return token
}

// serve runs one request through the full router. An empty token sends no
// Authorization header.
func serve(t *testing.T, handler *Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	return rr
}

