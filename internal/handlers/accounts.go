package handlers

import (
	"net/http"

	"bankledger/internal/apperrors"
	"bankledger/internal/models"
	"bankledger/internal/services"

	"github.com/go-chi/chi/v5"
)

type createAccountRequest struct {
	Type        string `json:"type" validate:"required"`
	Description string `json:"description" validate:"max=255"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req createAccountRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	accountType, ok := models.ParseAccountType(req.Type)
	if !ok {
		respondServiceError(w, h.logger, apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown account type %q", req.Type))
		return
	}
	account, err := h.accounts.CreateAccount(r.Context(), userID, accountType, req.Description)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, account)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	accounts, err := h.accounts.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, accounts)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *Handler) GetAccountByNumber(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.GetByNumber(r.Context(), chi.URLParam(r, "number"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

type accountTransactionRequest struct {
	Kind        string `json:"kind" validate:"required"`
	Amount      string `json:"amount" validate:"required,amount"`
	Description string `json:"description" validate:"max=255"`
}

func (h *Handler) AddAccountTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req accountTransactionRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	kind, ok := models.ParseTransactionKind(req.Kind)
	if !ok {
		respondServiceError(w, h.logger, apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown transaction kind %q", req.Kind))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	account, record, err := h.accounts.AddTransaction(r.Context(), services.AddTransactionRequest{
		AccountID:   chi.URLParam(r, "id"),
		OwnerID:     userID,
		Kind:        kind,
		Amount:      amount,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"account":     account,
		"transaction": record,
	})
}

func (h *Handler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	rows, err := h.accounts.ListTransactions(r.Context(), chi.URLParam(r, "id"), userID, pageFromQuery(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) ListOwnerTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	rows, err := h.accounts.ListOwnerTransactions(r.Context(), userID, pageFromQuery(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *Handler) CloseAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.CloseAccount(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, account)
}

func (h *Handler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	result, err := h.accounts.Reconcile(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"account_id":         result.AccountID,
		"stored_balance":     result.Stored,
		"calculated_balance": result.Calculated,
		"difference":         result.Difference,
		"consistent":         result.Consistent(),
	})
}
