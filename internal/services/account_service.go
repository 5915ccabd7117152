package services

import (
	"context"
	"log/slog"
	"strings"

	"bankledger/internal/apperrors"
	"bankledger/internal/db"
	"bankledger/internal/idgen"
	"bankledger/internal/ledger"
	"bankledger/internal/lifecycle"
	"bankledger/internal/models"
	"bankledger/internal/money"
	"bankledger/internal/store"
	"bankledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// accountQuota caps how many accounts of each type an owner may ever open.
var accountQuota = map[models.AccountType]int{
	models.AccountSavings:  1,
	models.AccountChecking: 3,
}

const closureDescription = "Account closed"

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, account models.Account) error
	GetByID(ctx context.Context, accountID string) (models.Account, error)
	GetByNumber(ctx context.Context, number string) (models.Account, error)
	GetForUpdate(ctx context.Context, tx store.Getter, accountID string) (models.Account, error)
	ListActiveByOwner(ctx context.Context, ownerID string) ([]models.Account, error)
	CountByOwnerAndType(ctx context.Context, tx store.Getter, ownerID string, accountType models.AccountType) (int, error)
	NumberExists(ctx context.Context, tx store.Getter, number string) (bool, error)
	UpdateBalance(ctx context.Context, tx store.Execer, accountID string, balance decimal.Decimal) error
	UpdateStatus(ctx context.Context, tx store.Execer, accountID string, status lifecycle.AccountStatus) error
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, t models.Transaction) error
	ListByAccount(ctx context.Context, accountID string, page store.Page) ([]models.Transaction, error)
	ListByOwner(ctx context.Context, ownerID string, page store.Page) ([]models.Transaction, error)
	NetByAccount(ctx context.Context, accountID string) (decimal.Decimal, error)
}

type AccountService struct {
	txRunner     db.TxRunner
	accounts     AccountStore
	transactions TransactionStore
	audit        AuditStore
	hub          BalanceHub
	ids          *idgen.Generator
	opts         Options
	logger       *slog.Logger
}

func NewAccountService(txRunner db.TxRunner, accounts AccountStore, transactions TransactionStore, audit AuditStore, hub BalanceHub, ids *idgen.Generator, opts Options) *AccountService {
	opts = opts.withDefaults()
	return &AccountService{
		txRunner:     txRunner,
		accounts:     accounts,
		transactions: transactions,
		audit:        audit,
		hub:          hub,
		ids:          ids,
		opts:         opts,
		logger:       opts.Logger.With("service", "accounts"),
	}
}

// CreateAccount opens an empty ACTIVE account. A non-empty description is
// recorded as a zero-amount CREDIT opening entry.
func (s *AccountService) CreateAccount(ctx context.Context, ownerID string, accountType models.AccountType, description string) (models.Account, error) {
	limit, ok := accountQuota[accountType]
	if !ok {
		return models.Account{}, apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown account type %q", accountType)
	}
	now := s.opts.now()
	account := models.Account{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Type:      accountType,
		Balance:   decimal.Zero,
		Status:    lifecycle.AccountActive,
		CreatedAt: now,
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		count, err := s.accounts.CountByOwnerAndType(ctx, tx, ownerID, accountType)
		if err != nil {
			return err
		}
		if count >= limit {
			return apperrors.Wrap(apperrors.ErrQuotaExceeded, "owner already has %d %s account(s)", count, accountType)
		}
		number, err := s.ids.Generate(ctx, idgen.AccountNumberLength, func(ctx context.Context, candidate string) (bool, error) {
			return s.accounts.NumberExists(ctx, tx, candidate)
		})
		if err != nil {
			return err
		}
		account.Number = number
		if err := s.accounts.Create(ctx, tx, account); err != nil {
			return err
		}
		if description != "" {
			if err := s.transactions.Create(ctx, tx, models.Transaction{
				ID:          uuid.NewString(),
				AccountID:   account.ID,
				Amount:      decimal.Zero,
				Kind:        models.Credit,
				Description: description,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
		}
		return s.audit.Log(ctx, tx, ownerID, "account.open", "account", account.ID, map[string]string{
			"number": account.Number,
			"type":   string(accountType),
		})
	})
	if err != nil {
		logRejection(s.logger, "account creation rejected", err, "owner_id", ownerID, "type", accountType)
		return models.Account{}, err
	}
	s.logger.Info("account opened", "owner_id", ownerID, "account_id", account.ID, "type", accountType)
	return account, nil
}

type AddTransactionRequest struct {
	AccountID   string
	OwnerID     string
	Kind        models.TransactionKind
	Amount      decimal.Decimal
	Description string
}

// AddTransaction applies a CREDIT or DEBIT and records it in the same
// transaction. A debit that would overdraw fails without any write.
func (s *AccountService) AddTransaction(ctx context.Context, req AddTransactionRequest) (models.Account, models.Transaction, error) {
	if err := ledger.CheckAmount(req.Amount); err != nil {
		return models.Account{}, models.Transaction{}, err
	}
	var account models.Account
	record := models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Kind:        req.Kind,
		Description: req.Description,
		CreatedAt:   s.opts.now(),
	}
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		account, err = s.lockOwned(ctx, tx, req.AccountID, req.OwnerID)
		if err != nil {
			return err
		}
		if account.Status != lifecycle.AccountActive {
			return apperrors.Wrap(apperrors.ErrInvalidState, "account %s is %s", account.ID, account.Status)
		}
		balance, err := ledger.ApplyAccount(account.Balance, req.Kind, req.Amount)
		if err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, account.ID, balance); err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, tx, record); err != nil {
			return err
		}
		account.Balance = balance
		return s.audit.Log(ctx, tx, req.OwnerID, "account."+strings.ToLower(string(req.Kind)), "account", account.ID, map[string]string{
			"transaction_id": record.ID,
			"amount":         money.Format(req.Amount),
			"balance":        money.Format(balance),
		})
	})
	if err != nil {
		logRejection(s.logger, "account transaction rejected", err, "owner_id", req.OwnerID, "account_id", req.AccountID, "kind", req.Kind)
		return models.Account{}, models.Transaction{}, err
	}
	s.logger.Info("account transaction applied", "owner_id", req.OwnerID, "account_id", account.ID,
		"kind", req.Kind, "amount", money.Format(req.Amount), "balance", money.Format(account.Balance))
	s.broadcast(account)
	return account, record, nil
}

// CloseAccount moves a zero-balance account to CLOSED and appends a
// zero-amount DEBIT marking the closure.
func (s *AccountService) CloseAccount(ctx context.Context, accountID, ownerID string) (models.Account, error) {
	var account models.Account
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		account, err = s.lockOwned(ctx, tx, accountID, ownerID)
		if err != nil {
			return err
		}
		if err := lifecycle.CheckAccount(account.Status, lifecycle.AccountClosed); err != nil {
			return err
		}
		if err := ledger.RequireZero(account.Balance); err != nil {
			return err
		}
		if err := s.accounts.UpdateStatus(ctx, tx, account.ID, lifecycle.AccountClosed); err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, tx, models.Transaction{
			ID:          uuid.NewString(),
			AccountID:   account.ID,
			Amount:      decimal.Zero,
			Kind:        models.Debit,
			Description: closureDescription,
			CreatedAt:   s.opts.now(),
		}); err != nil {
			return err
		}
		account.Status = lifecycle.AccountClosed
		return s.audit.Log(ctx, tx, ownerID, "account.close", "account", account.ID, map[string]string{})
	})
	if err != nil {
		logRejection(s.logger, "account closure rejected", err, "owner_id", ownerID, "account_id", accountID)
		return models.Account{}, err
	}
	s.logger.Info("account closed", "owner_id", ownerID, "account_id", account.ID)
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, accountID, ownerID string) (models.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return models.Account{}, notFound(err, "account", accountID)
	}
	if err := owned(account.OwnerID, ownerID, "account", accountID); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (s *AccountService) GetByNumber(ctx context.Context, number, ownerID string) (models.Account, error) {
	account, err := s.accounts.GetByNumber(ctx, number)
	if err != nil {
		return models.Account{}, notFound(err, "account", number)
	}
	if err := owned(account.OwnerID, ownerID, "account", number); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// List returns the owner's ACTIVE accounts.
func (s *AccountService) List(ctx context.Context, ownerID string) ([]models.Account, error) {
	return s.accounts.ListActiveByOwner(ctx, ownerID)
}

func (s *AccountService) ListTransactions(ctx context.Context, accountID, ownerID string, page store.Page) ([]models.Transaction, error) {
	if _, err := s.Get(ctx, accountID, ownerID); err != nil {
		return nil, err
	}
	return s.transactions.ListByAccount(ctx, accountID, page)
}

func (s *AccountService) ListOwnerTransactions(ctx context.Context, ownerID string, page store.Page) ([]models.Transaction, error) {
	return s.transactions.ListByOwner(ctx, ownerID, page)
}

type Reconciliation struct {
	AccountID  string          `json:"account_id"`
	Stored     decimal.Decimal `json:"stored_balance"`
	Calculated decimal.Decimal `json:"calculated_balance"`
	Difference decimal.Decimal `json:"difference"`
}

func (r Reconciliation) Consistent() bool {
	return r.Difference.IsZero()
}

// Reconcile compares the stored balance with the net of the account's
// transaction records.
func (s *AccountService) Reconcile(ctx context.Context, accountID, ownerID string) (Reconciliation, error) {
	account, err := s.Get(ctx, accountID, ownerID)
	if err != nil {
		return Reconciliation{}, err
	}
	net, err := s.transactions.NetByAccount(ctx, accountID)
	if err != nil {
		return Reconciliation{}, err
	}
	result := Reconciliation{
		AccountID:  accountID,
		Stored:     account.Balance,
		Calculated: net,
		Difference: account.Balance.Sub(net),
	}
	if !result.Consistent() {
		s.logger.Error("account balance drift", "account_id", accountID, "stored", money.Format(account.Balance), "calculated", money.Format(net))
	}
	return result, nil
}

func (s *AccountService) lockOwned(ctx context.Context, tx store.Getter, accountID, ownerID string) (models.Account, error) {
	account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return models.Account{}, notFound(err, "account", accountID)
	}
	if err := owned(account.OwnerID, ownerID, "account", accountID); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

func (s *AccountService) broadcast(account models.Account) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastBalance(account.OwnerID, websocket.BalanceUpdate{
		Entity:  websocket.EntityAccount,
		ID:      account.ID,
		Balance: money.Format(account.Balance),
		Status:  string(account.Status),
	})
}
