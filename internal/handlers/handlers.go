package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"bankledger/internal/apperrors"
	"bankledger/internal/middleware"
	"bankledger/internal/money"
	"bankledger/internal/store"
	"bankledger/internal/validator"

	"github.com/shopspring/decimal"
)

var errInvalidPayload = errors.New("invalid payload")

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

var statusByCode = map[apperrors.ErrorCode]int{
	apperrors.CodeNotFound:             http.StatusNotFound,
	apperrors.CodeQuotaExceeded:        http.StatusConflict,
	apperrors.CodeInsufficientBalance:  http.StatusUnprocessableEntity,
	apperrors.CodeInvalidState:         http.StatusConflict,
	apperrors.CodeInvalidArgument:      http.StatusBadRequest,
	apperrors.CodeGenerationExhausted:  http.StatusServiceUnavailable,
	apperrors.CodeAuthValidationFailed: http.StatusUnauthorized,
}

// respondServiceError writes a ledger failure as {"error", "code"}. Unknown
// errors are logged and hidden behind a 500.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	code := apperrors.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		logger.Error("request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error", "code": string(apperrors.CodeInternal)})
		return
	}
	respondJSON(w, status, map[string]string{"error": err.Error(), "code": string(code)})
}

// decode reads a JSON body into dst and validates its struct tags.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidPayload
	}
	return validator.Struct(dst)
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := money.ParsePositive(raw)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInvalidArgument, "invalid amount %q", raw)
	}
	return amount, nil
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// pageFromQuery reads ?limit= and ?page= (1-based).
func pageFromQuery(r *http.Request) store.Page {
	query := r.URL.Query()
	limit := parseInt(query.Get("limit"), store.DefaultPageLimit)
	page := parseInt(query.Get("page"), 1)
	return store.Page{Limit: limit, Offset: (page - 1) * limit}.Normalize()
}

// caller returns the authenticated user id or writes a 401.
func caller(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}
