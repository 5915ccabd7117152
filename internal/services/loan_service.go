package services

import (
	"context"
	"log/slog"

	"bankledger/internal/amortization"
	"bankledger/internal/apperrors"
	"bankledger/internal/db"
	"bankledger/internal/lifecycle"
	"bankledger/internal/models"
	"bankledger/internal/money"
	"bankledger/internal/store"
	"bankledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const maxActiveLoansPerOwner = 3

type LoanStore interface {
	Create(ctx context.Context, tx store.Execer, loan models.Loan) error
	GetByID(ctx context.Context, loanID string) (models.Loan, error)
	GetForUpdate(ctx context.Context, tx store.Getter, loanID string) (models.Loan, error)
	ListByOwner(ctx context.Context, ownerID string, status lifecycle.LoanStatus) ([]models.Loan, error)
	CountByOwnerAndStatus(ctx context.Context, tx store.Getter, ownerID string, status lifecycle.LoanStatus) (int, error)
	UpdateOutstanding(ctx context.Context, tx store.Execer, loanID string, outstanding decimal.Decimal, status lifecycle.LoanStatus) error
	UpdateTerms(ctx context.Context, tx store.Execer, loan models.Loan) error
	UpdateStatus(ctx context.Context, tx store.Execer, loanID string, status lifecycle.LoanStatus) error
	Delete(ctx context.Context, tx store.Execer, loanID string) error
}

type LoanPaymentStore interface {
	Create(ctx context.Context, tx store.Execer, p models.LoanPayment) error
	ListByLoan(ctx context.Context, loanID string) ([]models.LoanPayment, error)
}

type LoanService struct {
	txRunner  db.TxRunner
	loans     LoanStore
	payments  LoanPaymentStore
	audit     AuditStore
	hub       BalanceHub
	validator TokenValidator
	opts      Options
	logger    *slog.Logger
}

func NewLoanService(txRunner db.TxRunner, loans LoanStore, payments LoanPaymentStore, audit AuditStore, hub BalanceHub, validator TokenValidator, opts Options) *LoanService {
	opts = opts.withDefaults()
	return &LoanService{
		txRunner:  txRunner,
		loans:     loans,
		payments:  payments,
		audit:     audit,
		hub:       hub,
		validator: validator,
		opts:      opts,
		logger:    opts.Logger.With("service", "loans"),
	}
}

type CreateLoanRequest struct {
	OwnerID       string
	Token         string
	Principal     decimal.Decimal
	AnnualRatePct decimal.Decimal
	TenureMonths  int
}

// CreateLoan originates an ACTIVE loan with the full principal outstanding.
func (s *LoanService) CreateLoan(ctx context.Context, req CreateLoanRequest) (models.Loan, error) {
	if !money.HasCents(req.Principal) {
		return models.Loan{}, apperrors.Wrap(apperrors.ErrInvalidArgument, "principal has more than two decimal places")
	}
	if !req.AnnualRatePct.IsPositive() {
		return models.Loan{}, apperrors.Wrap(apperrors.ErrInvalidArgument, "interest rate must be positive")
	}
	emi, err := amortization.ComputeEMI(req.Principal, req.AnnualRatePct, req.TenureMonths)
	if err != nil {
		return models.Loan{}, err
	}
	if err := validateOwner(ctx, s.validator, s.opts, req.Token, req.OwnerID); err != nil {
		return models.Loan{}, err
	}
	loan := models.Loan{
		ID:                uuid.NewString(),
		OwnerID:           req.OwnerID,
		Principal:         req.Principal,
		AnnualRatePct:     req.AnnualRatePct,
		TenureMonths:      req.TenureMonths,
		MonthlyEMI:        emi,
		OutstandingAmount: req.Principal,
		Status:            lifecycle.LoanActive,
		CreatedAt:         s.opts.now(),
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		count, err := s.loans.CountByOwnerAndStatus(ctx, tx, req.OwnerID, lifecycle.LoanActive)
		if err != nil {
			return err
		}
		if count >= maxActiveLoansPerOwner {
			return apperrors.Wrap(apperrors.ErrQuotaExceeded, "owner already has %d active loans", count)
		}
		if err := s.loans.Create(ctx, tx, loan); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, req.OwnerID, "loan.originate", "loan", loan.ID, map[string]any{
			"principal":     money.Format(loan.Principal),
			"rate":          loan.AnnualRatePct.String(),
			"tenure_months": loan.TenureMonths,
			"monthly_emi":   money.Format(emi),
		})
	})
	if err != nil {
		logRejection(s.logger, "loan creation rejected", err, "owner_id", req.OwnerID)
		return models.Loan{}, err
	}
	s.logger.Info("loan originated", "owner_id", req.OwnerID, "loan_id", loan.ID,
		"principal", money.Format(loan.Principal), "monthly_emi", money.Format(emi))
	s.broadcast(loan)
	return loan, nil
}

// MakePayment reduces the outstanding amount of an ACTIVE loan. Paying the
// exact outstanding amount moves the loan to PAID.
func (s *LoanService) MakePayment(ctx context.Context, loanID, ownerID string, amount decimal.Decimal) (models.Loan, models.LoanPayment, error) {
	if !money.HasCents(amount) {
		return models.Loan{}, models.LoanPayment{}, apperrors.Wrap(apperrors.ErrInvalidArgument, "amount has more than two decimal places")
	}
	payment := models.LoanPayment{
		ID:        uuid.NewString(),
		LoanID:    loanID,
		Amount:    amount,
		CreatedAt: s.opts.now(),
	}
	var loan models.Loan
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loan, err = s.lockOwned(ctx, tx, loanID, ownerID)
		if err != nil {
			return err
		}
		if loan.Status != lifecycle.LoanActive {
			return apperrors.Wrap(apperrors.ErrInvalidState, "loan %s is %s", loan.ID, loan.Status)
		}
		outstanding, paid, err := amortization.ApplyPayment(loan.OutstandingAmount, amount)
		if err != nil {
			return err
		}
		status := lifecycle.LoanActive
		if paid {
			status = lifecycle.LoanPaid
		}
		if err := s.loans.UpdateOutstanding(ctx, tx, loan.ID, outstanding, status); err != nil {
			return err
		}
		if err := s.payments.Create(ctx, tx, payment); err != nil {
			return err
		}
		loan.OutstandingAmount, loan.Status = outstanding, status
		return s.audit.Log(ctx, tx, ownerID, "loan.payment", "loan", loan.ID, map[string]string{
			"payment_id":  payment.ID,
			"amount":      money.Format(amount),
			"outstanding": money.Format(outstanding),
			"status":      string(status),
		})
	})
	if err != nil {
		logRejection(s.logger, "loan payment rejected", err, "owner_id", ownerID, "loan_id", loanID)
		return models.Loan{}, models.LoanPayment{}, err
	}
	s.logger.Info("loan payment applied", "owner_id", ownerID, "loan_id", loan.ID,
		"amount", money.Format(amount), "outstanding", money.Format(loan.OutstandingAmount), "status", loan.Status)
	s.broadcast(loan)
	return loan, payment, nil
}

type LoanTerms struct {
	AnnualRatePct *decimal.Decimal
	TenureMonths  *int
}

// UpdateTerms changes the rate and/or tenure of an ACTIVE loan and recomputes
// the installment against the original principal. Payments already made do
// not shorten the recomputed schedule.
func (s *LoanService) UpdateTerms(ctx context.Context, loanID, ownerID string, terms LoanTerms) (models.Loan, error) {
	if terms.AnnualRatePct != nil && !terms.AnnualRatePct.IsPositive() {
		return models.Loan{}, apperrors.Wrap(apperrors.ErrInvalidArgument, "interest rate must be positive")
	}
	var loan models.Loan
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loan, err = s.lockOwned(ctx, tx, loanID, ownerID)
		if err != nil {
			return err
		}
		if loan.Status != lifecycle.LoanActive {
			return apperrors.Wrap(apperrors.ErrInvalidState, "loan %s is %s", loan.ID, loan.Status)
		}
		if terms.AnnualRatePct != nil {
			loan.AnnualRatePct = *terms.AnnualRatePct
		}
		if terms.TenureMonths != nil {
			loan.TenureMonths = *terms.TenureMonths
		}
		loan.MonthlyEMI, err = amortization.ComputeEMI(loan.Principal, loan.AnnualRatePct, loan.TenureMonths)
		if err != nil {
			return err
		}
		if err := s.loans.UpdateTerms(ctx, tx, loan); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, ownerID, "loan.terms", "loan", loan.ID, map[string]any{
			"rate":          loan.AnnualRatePct.String(),
			"tenure_months": loan.TenureMonths,
			"monthly_emi":   money.Format(loan.MonthlyEMI),
		})
	})
	if err != nil {
		logRejection(s.logger, "loan terms update rejected", err, "owner_id", ownerID, "loan_id", loanID)
		return models.Loan{}, err
	}
	s.logger.Info("loan terms updated", "owner_id", ownerID, "loan_id", loan.ID, "monthly_emi", money.Format(loan.MonthlyEMI))
	return loan, nil
}

// UpdateStatus is the external trigger for moving a loan to DEFAULT. It is
// called on behalf of an administrator, so ownership is not checked. PAID is
// only reachable through payments.
func (s *LoanService) UpdateStatus(ctx context.Context, loanID, actorID, raw string) (models.Loan, error) {
	target, err := lifecycle.ParseLoanStatus(raw)
	if err != nil {
		return models.Loan{}, err
	}
	if target == lifecycle.LoanPaid {
		return models.Loan{}, apperrors.Wrap(apperrors.ErrInvalidState, "loans become PAID only when fully repaid")
	}
	var loan models.Loan
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		loan, err = s.loans.GetForUpdate(ctx, tx, loanID)
		if err != nil {
			return notFound(err, "loan", loanID)
		}
		if err := lifecycle.CheckLoan(loan.Status, target); err != nil {
			return err
		}
		if err := s.loans.UpdateStatus(ctx, tx, loan.ID, target); err != nil {
			return err
		}
		from := loan.Status
		loan.Status = target
		return s.audit.Log(ctx, tx, actorID, "loan.status", "loan", loan.ID, map[string]string{
			"from": string(from),
			"to":   string(target),
		})
	})
	if err != nil {
		logRejection(s.logger, "loan status change rejected", err, "actor_id", actorID, "loan_id", loanID, "status", target)
		return models.Loan{}, err
	}
	s.logger.Info("loan status changed", "actor_id", actorID, "loan_id", loan.ID, "status", target)
	s.broadcast(loan)
	return loan, nil
}

// Delete removes a loan unless it is ACTIVE with money still owed.
func (s *LoanService) Delete(ctx context.Context, loanID, ownerID string) error {
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		loan, err := s.lockOwned(ctx, tx, loanID, ownerID)
		if err != nil {
			return err
		}
		if loan.Status == lifecycle.LoanActive && loan.OutstandingAmount.IsPositive() {
			return apperrors.Wrap(apperrors.ErrInvalidState, "loan %s still has %s outstanding", loan.ID, money.Format(loan.OutstandingAmount))
		}
		if err := s.loans.Delete(ctx, tx, loan.ID); err != nil {
			return err
		}
		return s.audit.Log(ctx, tx, ownerID, "loan.delete", "loan", loan.ID, map[string]string{"status": string(loan.Status)})
	})
	if err != nil {
		logRejection(s.logger, "loan deletion rejected", err, "owner_id", ownerID, "loan_id", loanID)
		return err
	}
	s.logger.Info("loan deleted", "owner_id", ownerID, "loan_id", loanID)
	return nil
}

func (s *LoanService) Get(ctx context.Context, loanID, ownerID string) (models.Loan, error) {
	loan, err := s.loans.GetByID(ctx, loanID)
	if err != nil {
		return models.Loan{}, notFound(err, "loan", loanID)
	}
	if err := owned(loan.OwnerID, ownerID, "loan", loanID); err != nil {
		return models.Loan{}, err
	}
	return loan, nil
}

func (s *LoanService) List(ctx context.Context, ownerID string) ([]models.Loan, error) {
	return s.loans.ListByOwner(ctx, ownerID, "")
}

func (s *LoanService) ListActive(ctx context.Context, ownerID string) ([]models.Loan, error) {
	return s.loans.ListByOwner(ctx, ownerID, lifecycle.LoanActive)
}

func (s *LoanService) ListPayments(ctx context.Context, loanID, ownerID string) ([]models.LoanPayment, error) {
	if _, err := s.Get(ctx, loanID, ownerID); err != nil {
		return nil, err
	}
	return s.payments.ListByLoan(ctx, loanID)
}

// Schedule returns the amortization table for the loan's current terms.
func (s *LoanService) Schedule(ctx context.Context, loanID, ownerID string) ([]amortization.Installment, error) {
	loan, err := s.Get(ctx, loanID, ownerID)
	if err != nil {
		return nil, err
	}
	return amortization.Schedule(loan.Principal, loan.AnnualRatePct, loan.TenureMonths)
}

func (s *LoanService) lockOwned(ctx context.Context, tx store.Getter, loanID, ownerID string) (models.Loan, error) {
	loan, err := s.loans.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return models.Loan{}, notFound(err, "loan", loanID)
	}
	if err := owned(loan.OwnerID, ownerID, "loan", loanID); err != nil {
		return models.Loan{}, err
	}
	return loan, nil
}

func (s *LoanService) broadcast(loan models.Loan) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastBalance(loan.OwnerID, websocket.BalanceUpdate{
		Entity:  websocket.EntityLoan,
		ID:      loan.ID,
		Balance: money.Format(loan.OutstandingAmount),
		Status:  string(loan.Status),
	})
}
