package store

import (
	"context"

	"bankledger/internal/models"
)

const userColumns = `id, username, email, password_hash, active, created_at`

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, user models.User) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, active)
		VALUES ($1, $2, $3, $4, $5)
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.Active)
	return err
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return row, err
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return row, err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return row, err
}

func (s *UserStore) SetActive(ctx context.Context, tx Execer, userID string, active bool) (bool, error) {
	res, err := tx.ExecContext(ctx, `UPDATE users SET active = $1 WHERE id = $2`, active, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
