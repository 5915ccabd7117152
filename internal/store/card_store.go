package store

import (
	"context"
	"time"

	"bankledger/internal/lifecycle"
	"bankledger/internal/models"

	"github.com/shopspring/decimal"
)

const cardColumns = `id, owner_id, number, holder_name, expiry_month, expiry_year, type, status,
	credit_limit, current_balance, available_balance, created_at, updated_at`

type CardStore struct {
	db DB
}

func NewCardStore(db DB) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) Create(ctx context.Context, tx Execer, card models.Card) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO cards (id, owner_id, number, holder_name, expiry_month, expiry_year, type, status,
		                   credit_limit, current_balance, available_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, card.ID, card.OwnerID, card.Number, card.HolderName, card.ExpiryMonth, card.ExpiryYear, card.Type,
		card.Status, card.CreditLimit, card.CurrentBalance, card.AvailableBalance, card.CreatedAt, card.UpdatedAt)
	return err
}

func (s *CardStore) GetByID(ctx context.Context, cardID string) (models.Card, error) {
	var row models.Card
	err := s.db.GetContext(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE id = $1`, cardID)
	return row, err
}

func (s *CardStore) GetByNumber(ctx context.Context, number string) (models.Card, error) {
	var row models.Card
	err := s.db.GetContext(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE number = $1`, number)
	return row, err
}

func (s *CardStore) GetForUpdate(ctx context.Context, tx Getter, cardID string) (models.Card, error) {
	var row models.Card
	err := tx.GetContext(ctx, &row, `SELECT `+cardColumns+` FROM cards WHERE id = $1 FOR UPDATE`, cardID)
	return row, err
}

func (s *CardStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Card, error) {
	rows := []models.Card{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE owner_id = $1
		ORDER BY created_at
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *CardStore) CountByOwner(ctx context.Context, tx Getter, ownerID string) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `SELECT COUNT(1) FROM cards WHERE owner_id = $1`, ownerID)
	return count, err
}

// ListCreatedSince returns the owner's cards created at or after since, newest
// first.
func (s *CardStore) ListCreatedSince(ctx context.Context, tx Selecter, ownerID string, since time.Time) ([]models.Card, error) {
	rows := []models.Card{}
	err := tx.SelectContext(ctx, &rows, `
		SELECT `+cardColumns+`
		FROM cards
		WHERE owner_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, ownerID, since)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *CardStore) NumberExists(ctx context.Context, tx Getter, number string) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM cards WHERE number = $1)`, number)
	return exists, err
}

func (s *CardStore) UpdateBalances(ctx context.Context, tx Execer, cardID string, current, available decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET current_balance = $1, available_balance = $2, updated_at = NOW()
		WHERE id = $3
	`, current, available, cardID)
	return err
}

func (s *CardStore) UpdateLimit(ctx context.Context, tx Execer, cardID string, limit, available decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET credit_limit = $1, available_balance = $2, updated_at = NOW()
		WHERE id = $3
	`, limit, available, cardID)
	return err
}

func (s *CardStore) UpdateStatus(ctx context.Context, tx Execer, cardID string, status lifecycle.CardStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, cardID)
	return err
}

func (s *CardStore) UpdateDetails(ctx context.Context, tx Execer, cardID, holderName string, expiryMonth, expiryYear int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE cards
		SET holder_name = $1, expiry_month = $2, expiry_year = $3, updated_at = NOW()
		WHERE id = $4
	`, holderName, expiryMonth, expiryYear, cardID)
	return err
}

func (s *CardStore) Delete(ctx context.Context, tx Execer, cardID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, cardID)
	return err
}

const cardTransactionColumns = `id, card_id, kind, amount, merchant, description, created_at`

type CardTransactionStore struct {
	db DB
}

func NewCardTransactionStore(db DB) *CardTransactionStore {
	return &CardTransactionStore{db: db}
}

func (s *CardTransactionStore) Create(ctx context.Context, tx Execer, t models.CardTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO card_transactions (id, card_id, kind, amount, merchant, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.CardID, t.Kind, t.Amount, t.Merchant, t.Description, t.CreatedAt)
	return err
}

func (s *CardTransactionStore) ListByCard(ctx context.Context, cardID string, page Page) ([]models.CardTransaction, error) {
	page = page.Normalize()
	rows := []models.CardTransaction{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+cardTransactionColumns+`
		FROM card_transactions
		WHERE card_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, cardID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
