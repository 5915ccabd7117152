package handlers

import (
	"context"
	"net/http"
	"testing"

	"bankledger/internal/apperrors"
	"bankledger/internal/models"
	"bankledger/internal/services"

	"github.com/shopspring/decimal"
)

const cardBody = `{"holder_name":"Ada Lovelace","expiry_month":3,"expiry_year":2030,"type":"credit","credit_limit":"1000.00"}`

func TestCreateCardPassesCallerToken(t *testing.T) {
	token := tokenFor(t, "user-1")
	var got services.CreateCardRequest
	handler := newTestHandler(Deps{Cards: stubCardService{
		createFn: func(_ context.Context, req services.CreateCardRequest) (models.Card, bool, error) {
			got = req
			return models.Card{ID: "card-1"}, true, nil
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/cards", token, cardBody)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Token != token || got.OwnerID != "user-1" || got.Type != models.CardCredit {
		t.Fatalf("unexpected request: %#v", got)
	}
	if !got.CreditLimit.Equal(decimal.RequireFromString("1000")) {
		t.Fatalf("unexpected limit %s", got.CreditLimit)
	}
}

func TestCreateCardDuplicateAnswersOK(t *testing.T) {
	handler := newTestHandler(Deps{Cards: stubCardService{
		createFn: func(context.Context, services.CreateCardRequest) (models.Card, bool, error) {
			return models.Card{ID: "card-1"}, false, nil
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/cards", tokenFor(t, "user-1"), cardBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestCreateCardAuthValidationFailed(t *testing.T) {
	handler := newTestHandler(Deps{Cards: stubCardService{
		createFn: func(context.Context, services.CreateCardRequest) (models.Card, bool, error) {
			return models.Card{}, false, apperrors.Wrap(apperrors.ErrAuthValidationFailed, "user service unreachable")
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/cards", tokenFor(t, "user-1"), cardBody)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestCreateCardRejectsBadExpiry(t *testing.T) {
	handler := newTestHandler(Deps{})
	body := `{"holder_name":"Ada","expiry_month":13,"expiry_year":2030,"type":"credit","credit_limit":"10"}`
	rr := serve(t, handler, http.MethodPost, "/cards", tokenFor(t, "user-1"), body)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestIncreaseCardLimit(t *testing.T) {
	var got decimal.Decimal
	handler := newTestHandler(Deps{Cards: stubCardService{
		increaseLimitFn: func(_ context.Context, cardID, ownerID string, amount decimal.Decimal) (models.Card, error) {
			if cardID != "card-1" || ownerID != "user-1" {
				t.Fatalf("unexpected card %s owner %s", cardID, ownerID)
			}
			got = amount
			return models.Card{ID: cardID}, nil
		},
	}})
	rr := serve(t, handler, http.MethodPost, "/cards/card-1/limit/increase", tokenFor(t, "user-1"), `{"amount":"250.50"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !got.Equal(decimal.RequireFromString("250.50")) {
		t.Fatalf("unexpected amount %s", got)
	}
}

func TestDeleteCardWithBalance(t *testing.T) {
	handler := newTestHandler(Deps{Cards: stubCardService{
		deleteFn: func(context.Context, string, string) error {
			return apperrors.Wrap(apperrors.ErrInsufficientBalance, "card carries a balance")
		},
	}})
	rr := serve(t, handler, http.MethodDelete, "/cards/card-1", tokenFor(t, "user-1"), "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	handler = newTestHandler(Deps{Cards: stubCardService{
		deleteFn: func(context.Context, string, string) error { return nil },
	}})
	rr = serve(t, handler, http.MethodDelete, "/cards/card-1", tokenFor(t, "user-1"), "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
}
