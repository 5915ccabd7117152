package store

import (
	"context"

	"bankledger/internal/models"

	"github.com/shopspring/decimal"
)

const transactionColumns = `id, account_id, amount, kind, description, created_at`

// TransactionStore persists account ledger entries. Rows are append-only.
type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, t models.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO account_transactions (id, account_id, amount, kind, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.AccountID, t.Amount, t.Kind, t.Description, t.CreatedAt)
	return err
}

func (s *TransactionStore) ListByAccount(ctx context.Context, accountID string, page Page) ([]models.Transaction, error) {
	page = page.Normalize()
	rows := []models.Transaction{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM account_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, accountID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListByOwner(ctx context.Context, ownerID string, page Page) ([]models.Transaction, error) {
	page = page.Normalize()
	rows := []models.Transaction{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT t.id, t.account_id, t.amount, t.kind, t.description, t.created_at
		FROM account_transactions t
		JOIN accounts a ON a.id = t.account_id
		WHERE a.owner_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3
	`, ownerID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// NetByAccount is the sum of credits minus debits recorded for the account.
func (s *TransactionStore) NetByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var net decimal.Decimal
	err := s.db.GetContext(ctx, &net, `
		SELECT COALESCE(SUM(CASE WHEN kind = 'CREDIT' THEN amount ELSE -amount END), 0)
		FROM account_transactions
		WHERE account_id = $1
	`, accountID)
	return net, err
}
