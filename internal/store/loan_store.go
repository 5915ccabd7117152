package store

import (
	"context"

	"bankledger/internal/lifecycle"
	"bankledger/internal/models"

	"github.com/shopspring/decimal"
)

const loanColumns = `id, owner_id, principal, annual_rate_pct, tenure_months, monthly_emi,
	outstanding_amount, status, created_at`

type LoanStore struct {
	db DB
}

func NewLoanStore(db DB) *LoanStore {
	return &LoanStore{db: db}
}

func (s *LoanStore) Create(ctx context.Context, tx Execer, loan models.Loan) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loans (id, owner_id, principal, annual_rate_pct, tenure_months, monthly_emi,
		                   outstanding_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, loan.ID, loan.OwnerID, loan.Principal, loan.AnnualRatePct, loan.TenureMonths, loan.MonthlyEMI,
		loan.OutstandingAmount, loan.Status, loan.CreatedAt)
	return err
}

func (s *LoanStore) GetByID(ctx context.Context, loanID string) (models.Loan, error) {
	var row models.Loan
	err := s.db.GetContext(ctx, &row, `SELECT `+loanColumns+` FROM loans WHERE id = $1`, loanID)
	return row, err
}

func (s *LoanStore) GetForUpdate(ctx context.Context, tx Getter, loanID string) (models.Loan, error) {
	var row models.Loan
	err := tx.GetContext(ctx, &row, `SELECT `+loanColumns+` FROM loans WHERE id = $1 FOR UPDATE`, loanID)
	return row, err
}

// ListByOwner returns the owner's loans, restricted to status when it is set.
func (s *LoanStore) ListByOwner(ctx context.Context, ownerID string, status lifecycle.LoanStatus) ([]models.Loan, error) {
	rows := []models.Loan{}
	query := `SELECT ` + loanColumns + ` FROM loans WHERE owner_id = $1`
	args := []any{ownerID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LoanStore) CountByOwnerAndStatus(ctx context.Context, tx Getter, ownerID string, status lifecycle.LoanStatus) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, `
		SELECT COUNT(1)
		FROM loans
		WHERE owner_id = $1 AND status = $2
	`, ownerID, status)
	return count, err
}

func (s *LoanStore) UpdateOutstanding(ctx context.Context, tx Execer, loanID string, outstanding decimal.Decimal, status lifecycle.LoanStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET outstanding_amount = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`, outstanding, status, loanID)
	return err
}

func (s *LoanStore) UpdateTerms(ctx context.Context, tx Execer, loan models.Loan) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET annual_rate_pct = $1, tenure_months = $2, monthly_emi = $3, updated_at = NOW()
		WHERE id = $4
	`, loan.AnnualRatePct, loan.TenureMonths, loan.MonthlyEMI, loan.ID)
	return err
}

func (s *LoanStore) UpdateStatus(ctx context.Context, tx Execer, loanID string, status lifecycle.LoanStatus) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`, status, loanID)
	return err
}

func (s *LoanStore) Delete(ctx context.Context, tx Execer, loanID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, loanID)
	return err
}

type LoanPaymentStore struct {
	db DB
}

func NewLoanPaymentStore(db DB) *LoanPaymentStore {
	return &LoanPaymentStore{db: db}
}

func (s *LoanPaymentStore) Create(ctx context.Context, tx Execer, p models.LoanPayment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loan_payments (id, loan_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.LoanID, p.Amount, p.CreatedAt)
	return err
}

func (s *LoanPaymentStore) ListByLoan(ctx context.Context, loanID string) ([]models.LoanPayment, error) {
	rows := []models.LoanPayment{}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, loan_id, amount, created_at
		FROM loan_payments
		WHERE loan_id = $1
		ORDER BY created_at DESC, id DESC
	`, loanID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
