package handlers

import (
	"net/http"
	"strings"

	"bankledger/internal/apperrors"
	"bankledger/internal/middleware"
	"bankledger/internal/models"
	"bankledger/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type createLoanRequest struct {
	Principal     string `json:"principal" validate:"required,amount"`
	AnnualRatePct string `json:"annual_rate_pct" validate:"required"`
	TenureMonths  int    `json:"tenure_months" validate:"required,min=1,max=600"`
}

func parseRate(raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInvalidArgument, "invalid rate %q", raw)
	}
	return rate, nil
}

func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req createLoanRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	principal, err := parseAmount(req.Principal)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	rate, err := parseRate(req.AnnualRatePct)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	token := middleware.TokenFromContext(r.Context())
	loan, err := h.loans.CreateLoan(r.Context(), services.CreateLoanRequest{
		OwnerID:       userID,
		Token:         token,
		Principal:     principal,
		AnnualRatePct: rate,
		TenureMonths:  req.TenureMonths,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, loan)
}

// ListLoans returns the caller's loans; ?status=active narrows to ACTIVE.
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var (
		loans []models.Loan
		err   error
	)
	if strings.EqualFold(r.URL.Query().Get("status"), "active") {
		loans, err = h.loans.ListActive(r.Context(), userID)
	} else {
		loans, err = h.loans.List(r.Context(), userID)
	}
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, loans)
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	loan, err := h.loans.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, loan)
}

func (h *Handler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.loans.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type loanTermsRequest struct {
	AnnualRatePct *string `json:"annual_rate_pct"`
	TenureMonths  *int    `json:"tenure_months" validate:"omitempty,min=1,max=600"`
}

func (h *Handler) UpdateLoanTerms(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req loanTermsRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	terms := services.LoanTerms{TenureMonths: req.TenureMonths}
	if req.AnnualRatePct != nil {
		rate, err := parseRate(*req.AnnualRatePct)
		if err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
		terms.AnnualRatePct = &rate
	}
	loan, err := h.loans.UpdateTerms(r.Context(), chi.URLParam(r, "id"), userID, terms)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, loan)
}

type loanPaymentRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
}

func (h *Handler) MakeLoanPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req loanPaymentRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	loan, payment, err := h.loans.MakePayment(r.Context(), chi.URLParam(r, "id"), userID, amount)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"loan":    loan,
		"payment": payment,
	})
}

func (h *Handler) ListLoanPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	payments, err := h.loans.ListPayments(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

func (h *Handler) LoanSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	schedule, err := h.loans.Schedule(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, schedule)
}
