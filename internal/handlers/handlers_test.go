package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bankledger/internal/apperrors"
)

func TestRespondServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.Wrap(apperrors.ErrNotFound, "account %s not found", "a"), http.StatusNotFound, "not_found"},
		{apperrors.ErrQuotaExceeded, http.StatusConflict, "quota_exceeded"},
		{apperrors.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
		{apperrors.ErrInvalidState, http.StatusConflict, "invalid_state"},
		{apperrors.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
		{apperrors.ErrGenerationExhausted, http.StatusServiceUnavailable, "generation_exhausted"},
		{apperrors.ErrAuthValidationFailed, http.StatusUnauthorized, "auth_validation_failed"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		respondServiceError(rr, discardLogger(), tc.err)
		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["code"] != tc.code {
			t.Fatalf("%v: expected code %s, got %s", tc.err, tc.code, body["code"])
		}
	}
}

func TestRespondServiceErrorHidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	respondServiceError(rr, discardLogger(), errors.New("pq: password authentication failed"))
	var body map[string]string
	_ = json.NewDecoder(rr.Body).Decode(&body)
	if body["error"] != "internal error" {
		t.Fatalf("internal detail leaked: %q", body["error"])
	}
}

func TestPageFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/accounts/a/transactions?limit=20&page=3", nil)
	page := pageFromQuery(req)
	if page.Limit != 20 || page.Offset != 40 {
		t.Fatalf("unexpected page: %#v", page)
	}

	req = httptest.NewRequest(http.MethodGet, "/accounts/a/transactions?limit=oops&page=-1", nil)
	page = pageFromQuery(req)
	if page.Limit != 50 || page.Offset != 0 {
		t.Fatalf("expected defaults, got %#v", page)
	}
}

func TestHealth(t *testing.T) {
	rr := serve(t, newTestHandler(Deps{}), http.MethodGet, "/health", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
