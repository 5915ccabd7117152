package store

import (
	"context"

	"bankledger/internal/lifecycle"
	"bankledger/internal/models"

	"github.com/shopspring/decimal"
)

const accountColumns = `id, owner_id, number, type, balance, status, created_at`

type AccountStore struct {
	db DB
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, account models.Account) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO accounts (id, owner_id, number, type, balance, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, account.ID, account.OwnerID, account.Number, account.Type, account.Balance, account.Status, account.CreatedAt)
	return err
}

func (s *AccountStore) GetByID(ctx context.Context, accountID string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	return row, err
}

func (s *AccountStore) GetByNumber(ctx context.Context, number string) (models.Account, error) {
	var row models.Account
	err := s.db.GetContext(ctx, &row, `SELECT `+accountColumns+` FROM accounts WHERE number = $1`, number)
	return row, err
}

func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, accountID string) (models.Account, error) {
	var row models.Account
	err := tx.GetContext(ctx, &row, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`, accountID)
	return row, err
}

func (s *AccountStore) ListActiveByOwner(ctx context.Context, ownerID string) ([]models.Account, error) {
	rows := []models.Account{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE owner_id = $1 AND status = $2
		ORDER BY created_at
	`, ownerID, lifecycle.AccountActive)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByOwnerAndType counts every account of the type, closed ones included.
func (s *AccountStore) CountByOwnerAndType(ctx context.Context, tx Getter, ownerID string, accountType models.AccountType) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM accounts
		WHERE owner_id = $1 AND type = $2
	`, ownerID, accountType)
	return count, err
}

func (s *AccountStore) NumberExists(ctx context.Context, tx Getter, number string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM accounts WHERE number = $1)`, number)
	return exists, err
}

func (s *AccountStore) UpdateBalance(ctx context.Context, tx Execer, accountID string, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, accountID)
	return err
}

func (s *AccountStore) UpdateStatus(ctx context.Context, tx Execer, accountID string, status lifecycle.AccountStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE accounts
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, accountID)
	return err
}
