package handlers

import (
	"context"
	"net/http"

	"bankledger/internal/apperrors"
	"bankledger/internal/middleware"
	"bankledger/internal/models"
	"bankledger/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type createCardRequest struct {
	HolderName  string `json:"holder_name" validate:"required,max=100"`
	ExpiryMonth int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" validate:"required"`
	Type        string `json:"type" validate:"required"`
	CreditLimit string `json:"credit_limit" validate:"required,amount"`
}

// CreateCard issues a card. A repeat of a card issued within the duplicate
// window answers 200 with the existing card instead of 201.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req createCardRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	cardType, ok := models.ParseCardType(req.Type)
	if !ok {
		respondServiceError(w, h.logger, apperrors.Wrap(apperrors.ErrInvalidArgument, "unknown card type %q", req.Type))
		return
	}
	limit, err := parseAmount(req.CreditLimit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	token := middleware.TokenFromContext(r.Context())
	card, created, err := h.cards.CreateCard(r.Context(), services.CreateCardRequest{
		OwnerID:     userID,
		Token:       token,
		HolderName:  req.HolderName,
		ExpiryMonth: req.ExpiryMonth,
		ExpiryYear:  req.ExpiryYear,
		Type:        cardType,
		CreditLimit: limit,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	respondJSON(w, status, card)
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	cards, err := h.cards.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, cards)
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	card, err := h.cards.Get(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) GetCardByNumber(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	card, err := h.cards.GetByNumber(r.Context(), chi.URLParam(r, "number"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

type cardDetailsRequest struct {
	HolderName  string `json:"holder_name" validate:"required,max=100"`
	ExpiryMonth int    `json:"expiry_month" validate:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year" validate:"required"`
}

func (h *Handler) UpdateCardDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req cardDetailsRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	card, err := h.cards.UpdateDetails(r.Context(), chi.URLParam(r, "id"), userID, req.HolderName, req.ExpiryMonth, req.ExpiryYear)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.cards.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type cardTransactionRequest struct {
	Kind        string `json:"kind" validate:"required"`
	Amount      string `json:"amount" validate:"required,amount"`
	Merchant    string `json:"merchant" validate:"max=100"`
	Description string `json:"description" validate:"max=255"`
}

func (h *Handler) UpdateCardBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req cardTransactionRequest
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
	card, record, err := h.cards.UpdateBalance(r.Context(), services.CardOperation{
		CardID:      chi.URLParam(r, "id"),
		OwnerID:     userID,
		Kind:        kind,
		Amount:      amount,
		Merchant:    req.Merchant,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"card":        card,
		"transaction": record,
	})
}

func (h *Handler) ListCardTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	rows, err := h.cards.ListTransactions(r.Context(), chi.URLParam(r, "id"), userID, pageFromQuery(r))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type limitRequest struct {
	Amount string `json:"amount" validate:"required,amount"`
}

func (h *Handler) IncreaseCardLimit(w http.ResponseWriter, r *http.Request) {
	h.changeCardLimit(w, r, h.cards.IncreaseLimit)
}

func (h *Handler) DecreaseCardLimit(w http.ResponseWriter, r *http.Request) {
	h.changeCardLimit(w, r, h.cards.DecreaseLimit)
}

func (h *Handler) changeCardLimit(w http.ResponseWriter, r *http.Request, change func(ctx context.Context, cardID, ownerID string, amount decimal.Decimal) (models.Card, error)) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req limitRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	card, err := change(r.Context(), chi.URLParam(r, "id"), userID, amount)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	card, err := h.cards.Block(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) UnblockCard(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	card, err := h.cards.Unblock(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *Handler) UpdateCardStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	card, err := h.cards.UpdateStatus(r.Context(), chi.URLParam(r, "id"), userID, req.Status)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) CardExpired(w http.ResponseWriter, r *http.Request) {
	userID, ok := caller(w, r)
	if !ok {
		return
	}
	cardID := chi.URLParam(r, "id")
	expired, err := h.cards.IsExpired(r.Context(), cardID, userID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"card_id": cardID, "expired": expired})
}
